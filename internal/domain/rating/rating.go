// Package rating computes per-race field quality and per-finisher rank
// values. The rating is self-referential: a finisher's prior rank is derived
// from rank values produced earlier in the same pass, so races must be fed
// to the calculator in ascending (date, created) order.
package rating

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/okian/echelon/internal/domain/model"
)

// Default algorithm parameters. Lower rank is better; unrated riders are
// seeded with a conservative default that damping pulls down over time.
const (
	defaultRank    = 600.0
	rankCeiling    = 590.0
	qualityDamping = 0.9
	windowDays     = 365
	seedCount      = 5
	topSample      = 10
	minFinishers   = 3
)

// Finisher is one ranked participant of a race, place ascending.
type Finisher struct {
	ResultID int
	PersonID int
	Place    int
}

// Calculator runs the forward rating pass for one discipline recompute.
// It is not safe for concurrent use; the computation is strictly ordered.
type Calculator struct {
	defaultRank float64
	ceiling     float64
	damping     float64
	window      time.Duration

	// history holds every rank produced so far, per person, in pass order.
	history map[int][]histEntry

	// cacheDate/cache memoize prior-rank lookups for all races sharing one
	// calendar date, since the window end excludes the date itself.
	cacheDate time.Time
	cache     map[int]float64
}

type histEntry struct {
	date  time.Time
	value float64
}

// Option applies a configuration option to the Calculator.
type Option func(*Calculator)

// WithDefaultRank overrides the seed rank for unrated riders.
func WithDefaultRank(v float64) Option {
	return func(c *Calculator) {
		if v > 0 {
			c.defaultRank = v
		}
	}
}

// WithCeiling overrides the maximum rank value.
func WithCeiling(v float64) Option {
	return func(c *Calculator) {
		if v > 0 {
			c.ceiling = v
		}
	}
}

// WithWindowDays overrides the trailing window for prior-rank lookups.
func WithWindowDays(days int) Option {
	return func(c *Calculator) {
		if days > 0 {
			c.window = time.Duration(days) * 24 * time.Hour
		}
	}
}

// NewCalculator builds a calculator with the historical parameters.
func NewCalculator(opts ...Option) *Calculator {
	c := &Calculator{
		defaultRank: defaultRank,
		ceiling:     rankCeiling,
		damping:     qualityDamping,
		window:      windowDays * 24 * time.Hour,
		history:     make(map[int][]histEntry),
		cache:       make(map[int]float64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Rate computes the quality pair and rank rows for one race. Finishers must
// exclude dns/dnf/dq results. Races with two or fewer finishers are unrated:
// the quality pair is (0, 0) and no rank rows are produced.
func (c *Calculator) Rate(race model.Race, finishers []Finisher) (model.Quality, []model.Rank) {
	if len(finishers) < minFinishers {
		return model.Quality{RaceID: race.ID}, nil
	}

	ordered := make([]Finisher, len(finishers))
	copy(ordered, finishers)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Place < ordered[j].Place })

	if !c.cacheDate.Equal(race.Date) {
		c.cacheDate = race.Date
		c.cache = make(map[int]float64)
	}

	top := make([]float64, 0, seedCount+topSample)
	for i := 0; i < seedCount; i++ {
		top = append(top, c.defaultRank)
	}
	for i, f := range ordered {
		if i >= topSample {
			break
		}
		top = append(top, c.priorRankCached(f.PersonID, race.Date))
	}
	minRank := floats.Min(top)
	topAverage := bestAverage(top, seedCount)

	all := make([]float64, len(ordered))
	for i, f := range ordered {
		all[i] = c.priorRankCached(f.PersonID, race.Date)
	}
	allAverage := stat.Mean(all, nil)

	value := topAverage
	if allAverage < topAverage && allAverage > minRank {
		value = allAverage
	}
	value *= c.damping
	perPlace := (allAverage - value) * 2 / float64(len(ordered)-1)

	ranks := make([]model.Rank, 0, len(ordered))
	for i, f := range ordered {
		rv := value + float64(i)*perPlace
		if rv > c.ceiling {
			rv = c.ceiling
		}
		ranks = append(ranks, model.Rank{ResultID: f.ResultID, Value: rv})
		c.history[f.PersonID] = append(c.history[f.PersonID], histEntry{date: race.Date, value: rv})
	}

	return model.Quality{RaceID: race.ID, Value: value, PointsPerPlace: perPlace}, ranks
}

// PriorRank returns the rider's rating as of a date: the mean of the best
// five values among five default seeds and the rider's rank values dated in
// [asOf-window, asOf). Identical history always yields the same value.
func (c *Calculator) PriorRank(personID int, asOf time.Time) float64 {
	start := asOf.Add(-c.window)
	pool := make([]float64, 0, seedCount+len(c.history[personID]))
	for i := 0; i < seedCount; i++ {
		pool = append(pool, c.defaultRank)
	}
	for _, e := range c.history[personID] {
		if !e.date.Before(start) && e.date.Before(asOf) {
			pool = append(pool, e.value)
		}
	}
	return bestAverage(pool, seedCount)
}

func (c *Calculator) priorRankCached(personID int, asOf time.Time) float64 {
	if v, ok := c.cache[personID]; ok {
		return v
	}
	v := c.PriorRank(personID, asOf)
	c.cache[personID] = v
	return v
}

// bestAverage returns the mean of the n smallest values.
func bestAverage(values []float64, n int) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return stat.Mean(sorted, nil)
}
