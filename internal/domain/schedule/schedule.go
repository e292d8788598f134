// Package schedule resolves points-per-place tables for a race. Schedules
// are versioned by effective date; lookup picks the generation in force,
// falls back from a gender field to the open field, then selects the tier
// whose starter range contains the field size.
package schedule

import (
	"sort"
	"time"

	"github.com/okian/echelon/internal/domain/classify"
)

// Tier awards Points to the top finishing places when the starter count
// falls inside [MinStarters, MaxStarters]. Tiers within a field must not
// overlap; together they may leave gaps, and field sizes outside every tier
// earn no points.
type Tier struct {
	MinStarters int
	MaxStarters int
	Points      []int
}

// FieldTables maps a schedule field (open, women) to its ordered tiers.
type FieldTables map[classify.Field][]Tier

// Tables maps an event discipline to its field tables.
type Tables map[string]FieldTables

// Generation is one dated revision of the rules. A generation applies to
// races dated on or after Effective, until a newer generation takes over.
type Generation struct {
	Effective time.Time
	Tables    Tables
}

// Resolver answers points-schedule lookups across rule generations.
type Resolver struct {
	generations []Generation // sorted by Effective ascending
}

// Option applies a configuration option to the Resolver.
type Option func(*Resolver)

// WithGenerations replaces the built-in rule generations.
func WithGenerations(gens ...Generation) Option {
	return func(r *Resolver) {
		if len(gens) > 0 {
			r.generations = gens
		}
	}
}

// NewResolver builds a resolver over the historical generations.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		generations: defaultGenerations(),
	}
	for _, opt := range opts {
		opt(r)
	}
	sort.Slice(r.generations, func(i, j int) bool {
		return r.generations[i].Effective.Before(r.generations[j].Effective)
	})
	return r
}

// Lookup returns the points-by-place slice for a race, or an empty slice
// when the discipline is unknown or no tier covers the starter count.
// Callers treat an empty slice as "no points awarded"; it is never an error.
func (r *Resolver) Lookup(eventDiscipline string, field classify.Field, starters int, raceDate time.Time) []int {
	tables := r.generationFor(raceDate)
	fields, ok := tables[eventDiscipline]
	if !ok {
		return nil
	}

	tiers, ok := fields[field]
	if !ok {
		tiers, ok = fields[classify.FieldOpen]
		if !ok {
			return nil
		}
	}

	for _, tier := range tiers {
		if starters >= tier.MinStarters && starters <= tier.MaxStarters {
			return tier.Points
		}
	}
	return nil
}

// Covered reports whether the event discipline has any schedule in force on
// the given date.
func (r *Resolver) Covered(eventDiscipline string, raceDate time.Time) bool {
	_, ok := r.generationFor(raceDate)[eventDiscipline]
	return ok
}

// generationFor returns the newest generation effective at or before the
// date. Races older than every generation use the oldest one.
func (r *Resolver) generationFor(raceDate time.Time) Tables {
	tables := r.generations[0].Tables
	for _, gen := range r.generations {
		if raceDate.Before(gen.Effective) {
			break
		}
		tables = gen.Tables
	}
	return tables
}
