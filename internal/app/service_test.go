package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/echelon/internal/adapters/repository"
	"github.com/okian/echelon/internal/domain/model"
	"github.com/okian/echelon/internal/fixtures"
)

type fixedSource struct {
	category int
	err      error
}

func (f fixedSource) CategoryFor(context.Context, int, string, time.Time) (int, error) {
	return f.category, f.err
}

func newTestService(t *testing.T, opts ...Option) (*Service, *repository.SQLiteStore) {
	t.Helper()
	store, err := repository.New(filepath.Join(t.TempDir(), "echelon.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	opts = append([]Option{WithClock(func() time.Time {
		return time.Date(2019, time.December, 1, 0, 0, 0, 0, time.UTC)
	})}, opts...)
	svc, err := New(store, opts...)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc, store
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// noviceField seeds one race of n first-time riders finishing in id order.
func noviceField(season *fixtures.Season, date time.Time, n int) []int {
	event := season.Event("Banana Belt Road Race", "road", date.Year())
	race := season.Race(event, "Men 4", date, 4)
	riders := season.Riders(1, n)
	return season.FinishAll(race, riders)
}

func TestRecalculateRatings(t *testing.T) {
	ctx := context.Background()

	Convey("Given a field of riders with no history", t, func() {
		svc, store := newTestService(t)
		season := fixtures.NewSeason()
		results := noviceField(season, day(2019, 4, 6), 11)
		So(season.Seed(ctx, store), ShouldBeNil)

		So(svc.RecalculateRatings(ctx, model.Road), ShouldBeNil)

		Convey("The field quality is the damped default", func() {
			q, err := store.QualityForRace(ctx, 1000)
			So(err, ShouldBeNil)
			So(q.Value, ShouldAlmostEqual, 540)
			So(q.PointsPerPlace, ShouldAlmostEqual, 12)
		})

		Convey("Ranks step by points-per-place and cap at the ceiling", func() {
			first, err := store.RankForResult(ctx, results[0])
			So(err, ShouldBeNil)
			So(first.Value, ShouldAlmostEqual, 540)

			second, err := store.RankForResult(ctx, results[1])
			So(err, ShouldBeNil)
			So(second.Value, ShouldAlmostEqual, 552)

			last, err := store.RankForResult(ctx, results[10])
			So(err, ShouldBeNil)
			So(last.Value, ShouldAlmostEqual, 590)
		})
	})

	Convey("A two-rider race keeps a zero quality row and no ranks", t, func() {
		svc, store := newTestService(t)
		season := fixtures.NewSeason()
		event := season.Event("Tuesday Crit", "criterium", 2019)
		race := season.Race(event, "Men 4", day(2019, 6, 4), 4)
		results := season.FinishAll(race, season.Riders(1, 2))
		So(season.Seed(ctx, store), ShouldBeNil)

		So(svc.RecalculateRatings(ctx, model.Road), ShouldBeNil)

		q, err := store.QualityForRace(ctx, race)
		So(err, ShouldBeNil)
		So(q.Value, ShouldEqual, 0)
		So(q.PointsPerPlace, ShouldEqual, 0)

		for _, id := range results {
			_, err := store.RankForResult(ctx, id)
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		}
	})

	Convey("Markers and junk places are skipped, not fatal", t, func() {
		svc, store := newTestService(t)
		season := fixtures.NewSeason()
		event := season.Event("Banana Belt Road Race", "road", 2019)
		race := season.Race(event, "Men 4", day(2019, 4, 6), 4)
		riders := season.Riders(1, 5)
		season.FinishAll(race, riders[:3])
		season.Finish(race, riders[3], "dnf")
		season.Finish(race, riders[4], "OTL")
		So(season.Seed(ctx, store), ShouldBeNil)

		So(svc.RecalculateRatings(ctx, model.Road), ShouldBeNil)

		q, err := store.QualityForRace(ctx, race)
		So(err, ShouldBeNil)
		So(q.Value, ShouldAlmostEqual, 540)
	})

	Convey("An unknown discipline is rejected", t, func() {
		svc, _ := newTestService(t)
		err := svc.RecalculateRatings(ctx, "curling")
		So(errors.Is(err, repository.ErrUnknownDiscipline), ShouldBeTrue)
	})
}

// winningStreak seeds seven weekly criteriums where rider 1 always wins a
// 25-rider category 4 field, earning 5 points per win under the current
// schedule.
func winningStreak(season *fixtures.Season) (winner int, lastResult int) {
	event := season.Event("Autumn Crit Series", "criterium", 2019)
	riders := season.Riders(1, 25)
	var results []int
	for week := 0; week < 7; week++ {
		race := season.Race(event, "Men 4", day(2019, 9, 7).AddDate(0, 0, 7*week), 4)
		results = season.FinishAll(race, riders)
	}
	return riders[0], results[0]
}

func TestRecalculatePoints(t *testing.T) {
	ctx := context.Background()

	Convey("Given a rider far over the mandatory threshold", t, func() {
		svc, store := newTestService(t)
		season := fixtures.NewSeason()
		_, lastResult := winningStreak(season)
		So(season.Seed(ctx, store), ShouldBeNil)

		So(svc.RecalculatePoints(ctx, model.Road), ShouldBeNil)

		Convey("The final ledger row carries the flag and the tally", func() {
			row, err := store.PointsForResult(ctx, lastResult)
			So(err, ShouldBeNil)
			So(row.Value, ShouldEqual, 5)
			So(row.Sum, ShouldEqual, 35)
			So(row.Categories.Sorted(), ShouldResemble, []int{4})
			So(row.NeedsUpgrade, ShouldBeTrue)
			So(row.Notes, ShouldContainSubstring, "Needs upgrade")
		})

		Convey("Riders under the threshold are not flagged", func() {
			pending, err := store.PendingUpgrades(ctx, model.Road, day(2018, 1, 1))
			So(err, ShouldBeNil)
			So(pending, ShouldHaveLength, 1)
			So(pending[0].PersonID, ShouldEqual, 1)
		})
	})

	Convey("Placeholder names earn no points but still enter the ledger", t, func() {
		svc, store := newTestService(t)
		season := fixtures.NewSeason()
		event := season.Event("Midweek Crit", "criterium", 2019)
		race := season.Race(event, "Men 3/4", day(2019, 9, 7), 3, 4)
		ghost := season.Rider(501, "300", "300")
		riders := append([]int{ghost}, season.Riders(1, 5)...)
		results := season.FinishAll(race, riders)
		So(season.Seed(ctx, store), ShouldBeNil)

		So(svc.RecalculatePoints(ctx, model.Road), ShouldBeNil)

		Convey("The winning placeholder still bootstraps categories", func() {
			row, err := store.PointsForResult(ctx, results[0])
			So(err, ShouldBeNil)
			So(row.Value, ShouldEqual, 0)
			So(row.Sum, ShouldEqual, 0)
			So(row.Categories.Sorted(), ShouldResemble, []int{3, 4})
			So(row.NeedsUpgrade, ShouldBeFalse)
		})

		Convey("Real riders behind it score from the schedule", func() {
			row, err := store.PointsForResult(ctx, results[1])
			So(err, ShouldBeNil)
			So(row.Value, ShouldEqual, 2)
		})
	})
}

func TestRecalculateIdempotence(t *testing.T) {
	ctx := context.Background()

	Convey("Recomputing from the same inputs yields identical rows", t, func() {
		svc, store := newTestService(t)
		season := fixtures.NewSeason()
		_, lastResult := winningStreak(season)
		So(season.Seed(ctx, store), ShouldBeNil)

		So(svc.Recalculate(ctx, model.Road), ShouldBeNil)
		firstQuality, err := store.QualityForRace(ctx, 1000)
		So(err, ShouldBeNil)
		firstPoints, err := store.PointsForResult(ctx, lastResult)
		So(err, ShouldBeNil)

		So(svc.Recalculate(ctx, model.Road), ShouldBeNil)
		secondQuality, err := store.QualityForRace(ctx, 1000)
		So(err, ShouldBeNil)
		secondPoints, err := store.PointsForResult(ctx, lastResult)
		So(err, ShouldBeNil)

		So(secondQuality, ShouldResemble, firstQuality)
		So(secondPoints, ShouldResemble, firstPoints)
	})
}

func TestRecalculateRollback(t *testing.T) {
	Convey("A cancelled recompute leaves the previous rows intact", t, func() {
		ctx := context.Background()
		svc, store := newTestService(t)
		season := fixtures.NewSeason()
		results := noviceField(season, day(2019, 4, 6), 11)
		So(season.Seed(ctx, store), ShouldBeNil)

		So(svc.Recalculate(ctx, model.Road), ShouldBeNil)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		So(svc.Recalculate(cancelled, model.Road), ShouldNotBeNil)

		rank, err := store.RankForResult(ctx, results[0])
		So(err, ShouldBeNil)
		So(rank.Value, ShouldAlmostEqual, 540)
	})
}

func TestSummarizeUpgrades(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T, opts ...Option) *Service {
		svc, store := newTestService(t, opts...)
		season := fixtures.NewSeason()
		winningStreak(season)
		if err := season.Seed(ctx, store); err != nil {
			t.Fatalf("seed season: %v", err)
		}
		if err := svc.RecalculatePoints(ctx, model.Road); err != nil {
			t.Fatalf("points pass: %v", err)
		}
		return svc
	}

	Convey("A rider the oracle still shows at their category stays listed", t, func() {
		svc := seed(t, WithOracle(fixedSource{category: 4}))
		pending, err := svc.SummarizeUpgrades(ctx, model.Road)
		So(err, ShouldBeNil)
		So(pending, ShouldHaveLength, 1)
		So(pending[0].PersonID, ShouldEqual, 1)
		So(pending[0].Sum, ShouldEqual, 35)
	})

	Convey("A rider already upgraded on the site is dropped", t, func() {
		svc := seed(t, WithOracle(fixedSource{category: 3}))
		pending, err := svc.SummarizeUpgrades(ctx, model.Road)
		So(err, ShouldBeNil)
		So(pending, ShouldBeEmpty)
	})

	Convey("An oracle failure keeps the rider listed", t, func() {
		svc := seed(t, WithOracle(fixedSource{err: errors.New("site unreachable")}))
		pending, err := svc.SummarizeUpgrades(ctx, model.Road)
		So(err, ShouldBeNil)
		So(pending, ShouldHaveLength, 1)
	})

	Convey("Without an oracle the raw list is returned", t, func() {
		svc := seed(t)
		pending, err := svc.SummarizeUpgrades(ctx, model.Road)
		So(err, ShouldBeNil)
		So(pending, ShouldHaveLength, 1)
	})
}

func TestNewValidation(t *testing.T) {
	Convey("The service refuses to build without storage", t, func() {
		_, err := New(nil)
		So(errors.Is(err, ErrNilStorage), ShouldBeTrue)
	})
}
