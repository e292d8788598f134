// Package oracle answers "what category is this person officially registered
// at?" from stored snapshots, scraping the sanctioning body's site only when
// no snapshot exists yet.
package oracle

import (
	"context"
	"time"

	"github.com/okian/echelon/internal/domain/model"
	"github.com/okian/echelon/pkg/logger"
	"github.com/okian/echelon/pkg/metrics"
)

// SnapshotStore is the slice of the result store the oracle reads and writes.
type SnapshotStore interface {
	SnapshotsByPerson(ctx context.Context, personID int) ([]model.Snapshot, error)
	SaveSnapshot(ctx context.Context, s model.Snapshot) error
}

// Fetcher retrieves a fresh registration snapshot from the outside world.
type Fetcher interface {
	Fetch(ctx context.Context, personID int) (model.Snapshot, error)
}

// Service implements the category source consulted during elite-bracket
// bootstraps. Lookups prefer the newest snapshot taken on or before the race
// date, fall back to the oldest snapshot on record, and only hit the network
// for people with no snapshot at all.
type Service struct {
	store SnapshotStore
	fetch Fetcher
	log   logger.Logger
	memo  *memoCache
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithFetcher wires the network fetcher. Without one the oracle is
// store-only and unknown people report ErrNoSnapshot.
func WithFetcher(f Fetcher) Option {
	return func(s *Service) {
		s.fetch = f
	}
}

// WithLogger overrides the default named logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMemoSize bounds the per-person memo cache.
func WithMemoSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.memo = newMemoCache(n)
		}
	}
}

// NewService builds an oracle over the given snapshot store.
func NewService(store SnapshotStore, opts ...Option) *Service {
	s := &Service{
		store: store,
		log:   logger.Get().Named("oracle"),
		memo:  newMemoCache(defaultMemoSize),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CategoryFor resolves the person's registered category for the event
// discipline as of the given date.
func (s *Service) CategoryFor(ctx context.Context, personID int, eventDiscipline string, asOf time.Time) (int, error) {
	snap, err := s.snapshotFor(ctx, personID, asOf)
	if err != nil {
		return 0, err
	}
	return snap.CategoryFor(eventDiscipline), nil
}

func (s *Service) snapshotFor(ctx context.Context, personID int, asOf time.Time) (model.Snapshot, error) {
	if snap, ok := s.memo.get(personID, asOf); ok {
		metrics.RecordOracleCacheHit()
		return snap, nil
	}

	snaps, err := s.store.SnapshotsByPerson(ctx, personID)
	if err != nil {
		return model.Snapshot{}, err
	}

	if len(snaps) == 0 {
		snap, err := s.fetchAndSave(ctx, personID)
		if err != nil {
			return model.Snapshot{}, err
		}
		snaps = []model.Snapshot{snap}
	}

	snap := pick(snaps, asOf)
	s.memo.put(personID, asOf, snap)
	return snap, nil
}

// pick returns the newest snapshot dated on or before asOf. Snapshots arrive
// in ascending date order, so when every snapshot postdates the race the
// first one is the closest available approximation.
func pick(snaps []model.Snapshot, asOf time.Time) model.Snapshot {
	chosen := snaps[0]
	for _, snap := range snaps {
		if snap.Date.After(asOf) {
			break
		}
		chosen = snap
	}
	return chosen
}

func (s *Service) fetchAndSave(ctx context.Context, personID int) (model.Snapshot, error) {
	if s.fetch == nil {
		return model.Snapshot{}, ErrNoSnapshot
	}

	metrics.RecordOracleFetch()
	snap, err := s.fetch.Fetch(ctx, personID)
	if err != nil {
		return model.Snapshot{}, err
	}

	if err := s.store.SaveSnapshot(ctx, snap); err != nil {
		// The lookup already succeeded, so a failed save is not fatal.
		s.log.Warn(ctx, "snapshot save failed",
			logger.Int("person_id", personID), logger.Error(err))
	}
	return snap, nil
}
