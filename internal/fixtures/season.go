// Package fixtures builds small deterministic race seasons for integration
// tests. IDs are assigned sequentially so tests can reference them directly.
package fixtures

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/echelon/internal/adapters/repository"
	"github.com/okian/echelon/internal/domain/model"
)

// Season accumulates people, events, races and results, then seeds them into
// a store in one call. Race starter counts are derived from the results.
type Season struct {
	people  []model.Person
	events  []model.Event
	races   []model.Race
	results []model.Result

	nextEventID  int
	nextRaceID   int
	nextResultID int
}

// NewSeason returns an empty season.
func NewSeason() *Season {
	return &Season{
		nextEventID:  100,
		nextRaceID:   1000,
		nextResultID: 10000,
	}
}

// Rider registers a person.
func (s *Season) Rider(id int, first, last string) int {
	s.people = append(s.people, model.Person{ID: id, FirstName: first, LastName: last})
	return id
}

// Riders registers n people with generated names and ids starting at from.
func (s *Season) Riders(from, n int) []int {
	ids := make([]int, 0, n)
	for i := 0; i < n; i++ {
		id := from + i
		ids = append(ids, s.Rider(id, fmt.Sprintf("Rider%03d", id), fmt.Sprintf("Tester%03d", id)))
	}
	return ids
}

// Event registers an event and returns its id.
func (s *Season) Event(name, discipline string, year int) int {
	id := s.nextEventID
	s.nextEventID++
	s.events = append(s.events, model.Event{ID: id, Name: name, Discipline: discipline, Year: year})
	return id
}

// Race registers a race and returns its id. Created is derived from the race
// date plus the registration order, keeping same-day races in insertion order.
func (s *Season) Race(eventID int, name string, date time.Time, categories ...int) int {
	id := s.nextRaceID
	s.nextRaceID++
	s.races = append(s.races, model.Race{
		ID:         id,
		EventID:    eventID,
		Name:       name,
		Date:       date,
		Created:    date.Add(20*time.Hour + time.Duration(id)*time.Second),
		Categories: model.NewCategorySet(categories...),
	})
	return id
}

// Finish records one result and returns its id.
func (s *Season) Finish(raceID, personID int, place string) int {
	id := s.nextResultID
	s.nextResultID++
	s.results = append(s.results, model.Result{
		ID:       id,
		RaceID:   raceID,
		PersonID: personID,
		Place:    place,
	})
	return id
}

// FinishAll records places 1..n for the given riders in order, returning the
// result ids.
func (s *Season) FinishAll(raceID int, riders []int) []int {
	ids := make([]int, 0, len(riders))
	for i, rider := range riders {
		ids = append(ids, s.Finish(raceID, rider, fmt.Sprintf("%d", i+1)))
	}
	return ids
}

// Seed writes the season into the store.
func (s *Season) Seed(ctx context.Context, st repository.Store) error {
	counts := make(map[int]int, len(s.races))
	for _, r := range s.results {
		counts[r.RaceID]++
	}

	for _, p := range s.people {
		if err := st.SavePerson(ctx, p); err != nil {
			return fmt.Errorf("seed person %d: %w", p.ID, err)
		}
	}
	for _, e := range s.events {
		if err := st.SaveEvent(ctx, e); err != nil {
			return fmt.Errorf("seed event %d: %w", e.ID, err)
		}
	}
	for _, r := range s.races {
		r.Starters = counts[r.ID]
		if err := st.SaveRace(ctx, r); err != nil {
			return fmt.Errorf("seed race %d: %w", r.ID, err)
		}
	}
	for _, res := range s.results {
		if err := st.SaveResult(ctx, res); err != nil {
			return fmt.Errorf("seed result %d: %w", res.ID, err)
		}
	}
	return nil
}
