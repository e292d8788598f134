// Package service wires the domain calculators to the result store and runs
// the recompute passes that rebuild every derived row for a discipline.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/echelon/internal/adapters/repository"
	"github.com/okian/echelon/internal/domain/classify"
	"github.com/okian/echelon/internal/domain/model"
	"github.com/okian/echelon/internal/domain/rating"
	"github.com/okian/echelon/internal/domain/schedule"
	"github.com/okian/echelon/internal/domain/upgrade"
	"github.com/okian/echelon/pkg/logger"
	"github.com/okian/echelon/pkg/metrics"
)

// Storage is the persistence surface the service needs: the full store plus
// transaction scoping.
type Storage interface {
	repository.Store
	repository.TxRunner
}

// Service implements the recompute and reporting operations.
type Service struct {
	store      Storage
	oracle     upgrade.CategorySource
	classifier classify.Classifier
	rules      upgrade.Rules
	resolver   *schedule.Resolver
	log        logger.Logger
	now        func() time.Time
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithOracle wires the registration oracle used for elite-bracket bootstraps
// and upgrade confirmation. Without one both fall back to history alone.
func WithOracle(src upgrade.CategorySource) Option {
	return func(s *Service) {
		s.oracle = src
	}
}

// WithClassifier overrides the race-name classifier.
func WithClassifier(c classify.Classifier) Option {
	return func(s *Service) {
		if c != nil {
			s.classifier = c
		}
	}
}

// WithRules overrides the upgrade rules.
func WithRules(r upgrade.Rules) Option {
	return func(s *Service) {
		if r != nil {
			s.rules = r
		}
	}
}

// WithResolver overrides the points schedule resolver.
func WithResolver(r *schedule.Resolver) Option {
	return func(s *Service) {
		if r != nil {
			s.resolver = r
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock overrides the time source used for reporting windows.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New builds the service over the given storage.
func New(store Storage, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, ErrNilStorage
	}
	s := &Service{
		store:      store,
		classifier: classify.NewRegexpClassifier(),
		rules:      upgrade.DefaultRules(),
		resolver:   schedule.NewResolver(),
		log:        logger.Get().Named("service"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Recalculate rebuilds every derived row for the discipline: the rating pass
// first, then the points pass that depends on nothing but raw results.
func (s *Service) Recalculate(ctx context.Context, discipline string) error {
	run := uuid.NewString()
	log := s.log.Named("recalculate")
	log.Info(ctx, "recompute started",
		logger.String("run_id", run), logger.String("discipline", discipline))

	if err := s.RecalculateRatings(ctx, discipline); err != nil {
		return fmt.Errorf("rating pass: %w", err)
	}
	if err := s.RecalculatePoints(ctx, discipline); err != nil {
		return fmt.Errorf("points pass: %w", err)
	}

	log.Info(ctx, "recompute finished",
		logger.String("run_id", run), logger.String("discipline", discipline))
	return nil
}

// RecalculateRatings deletes and rebuilds the quality and rank rows for the
// discipline inside one transaction.
func (s *Service) RecalculateRatings(ctx context.Context, discipline string) error {
	if !model.KnownDiscipline(discipline) {
		return fmt.Errorf("%w: %s", repository.ErrUnknownDiscipline, discipline)
	}

	started := s.now()
	defer func() {
		metrics.ObserveRecompute(discipline, "ratings", s.now().Sub(started).Seconds())
	}()

	return s.store.InTx(ctx, func(tx repository.Store) error {
		if err := tx.DeleteRatings(ctx, discipline); err != nil {
			return fmt.Errorf("delete ratings: %w", err)
		}

		races, err := tx.QualifyingRaces(ctx, discipline)
		if err != nil {
			return err
		}

		calc := rating.NewCalculator()
		for _, rr := range races {
			if err := ctx.Err(); err != nil {
				return err
			}

			quality, ranks := calc.Rate(rr.Race, s.finishers(ctx, rr))
			if err := tx.SaveQuality(ctx, quality); err != nil {
				return fmt.Errorf("save quality for race %d: %w", rr.Race.ID, err)
			}

			// Too few finishers: the (0, 0) quality row is kept, no ranks.
			if len(ranks) == 0 {
				metrics.RecordRaceUnrated(discipline)
				s.log.Debug(ctx, "race too small to rate",
					logger.Int("race_id", rr.Race.ID), logger.Date("date", rr.Race.Date))
				continue
			}
			if err := tx.SaveRanks(ctx, ranks); err != nil {
				return fmt.Errorf("save ranks for race %d: %w", rr.Race.ID, err)
			}
			metrics.RecordRaceRated(discipline)
			metrics.RecordRanksWritten(discipline, len(ranks))
		}
		return nil
	})
}

// finishers extracts the rateable results of one race. Non-numeric places
// that are not recognized dns/dnf/dq markers are logged and skipped.
func (s *Service) finishers(ctx context.Context, rr repository.RaceResults) []rating.Finisher {
	out := make([]rating.Finisher, 0, len(rr.Results))
	for _, res := range rr.Results {
		place, ok := model.NumericPlace(res.Place)
		if !ok {
			if res.Place != "" && !model.IsNonFinishMarker(res.Place) {
				s.log.Warn(ctx, "unparseable place",
					logger.Int("result_id", res.ID), logger.String("place", res.Place))
			}
			continue
		}
		out = append(out, rating.Finisher{ResultID: res.ID, PersonID: res.PersonID, Place: place})
	}
	return out
}

// RecalculatePoints deletes and rebuilds the upgrade-ledger rows for the
// discipline inside one transaction, folding each person's results through
// the category state machine in chronological order.
func (s *Service) RecalculatePoints(ctx context.Context, discipline string) error {
	if !model.KnownDiscipline(discipline) {
		return fmt.Errorf("%w: %s", repository.ErrUnknownDiscipline, discipline)
	}

	started := s.now()
	defer func() {
		metrics.ObserveRecompute(discipline, "points", s.now().Sub(started).Seconds())
	}()

	tracker := upgrade.NewTracker(discipline,
		upgrade.WithRules(s.rules),
		upgrade.WithClassifier(s.classifier),
		upgrade.WithCategorySource(s.oracle),
	)

	return s.store.InTx(ctx, func(tx repository.Store) error {
		if err := tx.DeletePoints(ctx, discipline); err != nil {
			return fmt.Errorf("delete points: %w", err)
		}

		rows, err := tx.ResultRows(ctx, discipline)
		if err != nil {
			return err
		}

		var (
			person  int
			st      *upgrade.State
			written int
		)
		for _, row := range rows {
			if st == nil || row.PersonID != person {
				person = row.PersonID
				st = upgrade.NewState()
			}

			out, err := tracker.Process(ctx, st, s.pointsInput(ctx, discipline, row))
			if err != nil {
				return fmt.Errorf("person %d result %d: %w", row.PersonID, row.ResultID, err)
			}
			if !out.Persist {
				continue
			}

			if err := tx.SavePoints(ctx, out.Row); err != nil {
				return fmt.Errorf("save points for result %d: %w", row.ResultID, err)
			}
			written++
			if out.Row.NeedsUpgrade {
				metrics.RecordUpgradeFlagged(discipline)
			}
		}

		metrics.RecordPointsRows(discipline, written)
		return nil
	})
}

// pointsInput assigns the raw schedule points for one result and packages it
// for the state machine.
func (s *Service) pointsInput(ctx context.Context, discipline string, row repository.ResultRow) upgrade.Input {
	in := upgrade.Input{
		ResultID:        row.ResultID,
		PersonID:        row.PersonID,
		Place:           row.Place,
		RaceID:          row.RaceID,
		RaceName:        row.RaceName,
		RaceDate:        row.RaceDate,
		RaceCategories:  row.RaceCategories,
		EventDiscipline: row.EventDiscipline,
	}

	// Placeholder rows in scraped results never earn raw points, but they
	// still flow through the state machine like any other result.
	if !model.PlausibleName(row.FirstName, row.LastName) {
		s.log.Debug(ctx, "no points for implausible name",
			logger.Int("person_id", row.PersonID),
			logger.String("name", row.FirstName+" "+row.LastName))
		return in
	}

	points := s.resolver.Lookup(row.EventDiscipline, s.classifier.Field(row.RaceName), row.Starters, row.RaceDate)
	if len(points) == 0 {
		if s.resolver.Covered(row.EventDiscipline, row.RaceDate) {
			metrics.RecordScheduleMiss(discipline)
			s.log.Debug(ctx, "no points tier for field size",
				logger.Int("race_id", row.RaceID), logger.Int("starters", row.Starters))
		}
		return in
	}

	if place, ok := model.NumericPlace(row.Place); ok && place <= len(points) {
		in.RawPoints = points[place-1]
		in.HasPoints = true
	}
	return in
}

// SummarizeUpgrades lists the competitors flagged as needing an upgrade,
// dropping anyone the registration oracle shows as already upgraded. Results
// are limited to people who raced since January 1st of the previous year.
func (s *Service) SummarizeUpgrades(ctx context.Context, discipline string) ([]repository.PendingUpgrade, error) {
	since := time.Date(s.now().Year()-1, time.January, 1, 0, 0, 0, 0, time.UTC)
	pending, err := s.store.PendingUpgrades(ctx, discipline, since)
	if err != nil {
		return nil, err
	}
	if s.oracle == nil {
		return pending, nil
	}

	confirmed := make([]repository.PendingUpgrade, 0, len(pending))
	for _, p := range pending {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cat, err := s.oracle.CategoryFor(ctx, p.PersonID, p.EventDiscipline, p.LastRaceDate)
		if err != nil {
			// Without an answer assume the upgrade is still pending.
			s.log.Warn(ctx, "upgrade confirmation failed",
				logger.Int("person_id", p.PersonID), logger.Error(err))
			confirmed = append(confirmed, p)
			continue
		}
		if cat >= p.Categories.Min() {
			confirmed = append(confirmed, p)
		}
	}
	return confirmed, nil
}
