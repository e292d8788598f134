// Package repository provides the result store: persisted people, events,
// races and results, plus the derived quality/rank/points rows the recompute
// passes rebuild.
package repository

import (
	"context"
	"time"

	"github.com/okian/echelon/internal/domain/model"
)

// RaceResults is one qualifying race with its results in creation order.
type RaceResults struct {
	Race            model.Race
	EventName       string
	EventDiscipline string
	Results         []model.Result
}

// ResultRow is one result joined with its person, race and event, in the
// (person, date, created) order the points pass consumes.
type ResultRow struct {
	ResultID        int
	PersonID        int
	FirstName       string
	LastName        string
	Place           string
	RaceID          int
	RaceName        string
	RaceDate        time.Time
	RaceCategories  model.CategorySet
	Starters        int
	EventID         int
	EventName       string
	EventDiscipline string
}

// PendingUpgrade is one competitor currently flagged as needing an upgrade.
type PendingUpgrade struct {
	PersonID        int
	FirstName       string
	LastName        string
	Categories      model.CategorySet
	Sum             int
	LastRaceDate    time.Time
	EventDiscipline string
}

// Store is the read/write contract the core needs from the result store.
// Iteration order is part of the contract: the rating and points passes are
// only correct over chronologically ordered input.
type Store interface {
	SavePerson(ctx context.Context, p model.Person) error
	SaveEvent(ctx context.Context, e model.Event) error
	SaveRace(ctx context.Context, r model.Race) error
	SaveResult(ctx context.Context, r model.Result) error

	// QualifyingRaces returns the discipline's categorized races ordered by
	// (date, created).
	QualifyingRaces(ctx context.Context, discipline string) ([]RaceResults, error)
	// ResultRows returns every result for the discipline ordered by person,
	// then (date, created).
	ResultRows(ctx context.Context, discipline string) ([]ResultRow, error)

	DeleteRatings(ctx context.Context, discipline string) error
	DeletePoints(ctx context.Context, discipline string) error
	SaveQuality(ctx context.Context, q model.Quality) error
	SaveRanks(ctx context.Context, ranks []model.Rank) error
	SavePoints(ctx context.Context, p model.Points) error

	// QualityForRace and RankForResult read back derived rows.
	QualityForRace(ctx context.Context, raceID int) (model.Quality, error)
	RankForResult(ctx context.Context, resultID int) (model.Rank, error)
	PointsForResult(ctx context.Context, resultID int) (model.Points, error)

	// PendingUpgrades lists flagged competitors with results since the given
	// date, most urgent first.
	PendingUpgrades(ctx context.Context, discipline string, since time.Time) ([]PendingUpgrade, error)

	SnapshotsByPerson(ctx context.Context, personID int) ([]model.Snapshot, error)
	SaveSnapshot(ctx context.Context, s model.Snapshot) error
}

// TxRunner scopes a function to one transaction. A recompute is
// delete-then-rebuild, so it must run inside a single transaction: any error
// rolls the whole rebuild back and leaves the previous derived state intact.
type TxRunner interface {
	InTx(ctx context.Context, fn func(Store) error) error
}
