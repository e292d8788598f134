// Package model contains domain records passed between layers.
package model

import (
	"regexp"
	"strconv"
	"time"
)

// UnknownCategory is the sentinel category assigned to a competitor before
// any category has been inferred from their race history.
const UnknownCategory = 9

// nonFinishPlace is the place value used for ordering comparisons when a
// result's place is not numeric (dnf, dq and friends sort last).
const nonFinishPlace = 999

// Person is a competitor.
type Person struct {
	ID        int
	FirstName string
	LastName  string
}

// Event is a scored competition that races belong to. The event carries the
// event-level discipline (e.g. "criterium") that the discipline map groups
// under an upgrade discipline (e.g. "road").
type Event struct {
	ID         int
	Name       string
	Discipline string
	Year       int
}

// Race is a single scored field within an event. Categories and Starters may
// be recomputed after scraping; everything else is immutable.
type Race struct {
	ID         int
	EventID    int
	Name       string
	Date       time.Time
	Created    time.Time
	Categories CategorySet
	Starters   int
}

// Result is one competitor's outcome in a race. Place is kept as scraped:
// a positive integer rendered as text, or a marker such as "dnf", "dns" or
// "dq". ElapsedTime and Laps are optional and unused by the core algorithms.
type Result struct {
	ID          int
	RaceID      int
	PersonID    int
	Place       string
	ElapsedTime string
	Laps        int
}

// Quality is the derived per-race field-strength pair.
type Quality struct {
	RaceID         int
	Value          float64
	PointsPerPlace float64
}

// Rank is the derived per-result rating value. Lower is better.
type Rank struct {
	ResultID int
	Value    float64
}

// Points is the derived upgrade-ledger row for one result.
type Points struct {
	ResultID     int
	Value        int
	Sum          int
	Categories   CategorySet
	Notes        string
	NeedsUpgrade bool
}

// Snapshot is a dated, externally sourced record of a competitor's
// officially registered categories, one field per discipline family.
type Snapshot struct {
	PersonID int
	Date     time.Time
	License  int
	MTB      int
	DH       int
	CCX      int
	Road     int
	Track    int
}

var (
	numericPlaceRE = regexp.MustCompile(`^[0-9]+$`)
	markerPlaceRE  = regexp.MustCompile(`(?i)dns|dnf|dq`)
	personNameRE   = regexp.MustCompile(`(?i)^[a-z.'-]+`)
)

// NumericPlace parses a finishing place, reporting whether it is a plain
// positive integer.
func NumericPlace(place string) (int, bool) {
	if !numericPlaceRE.MatchString(place) {
		return 0, false
	}
	n, err := strconv.Atoi(place)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// IsNonFinishMarker reports whether the place string is a recognized
// did-not-start / did-not-finish / disqualified marker.
func IsNonFinishMarker(place string) bool {
	return markerPlaceRE.MatchString(place)
}

// SafePlace returns the numeric place, or 999 for any non-numeric place so
// that markers never count as podium finishes.
func SafePlace(place string) int {
	if n, ok := NumericPlace(place); ok {
		return n
	}
	return nonFinishPlace
}

// PlausibleName reports whether a name looks like a real person's name
// rather than a placeholder row in the scraped results.
func PlausibleName(first, last string) bool {
	return personNameRE.MatchString(first) && personNameRE.MatchString(last)
}
