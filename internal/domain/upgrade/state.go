// Package upgrade implements the category/upgrade state machine. Each
// competitor's results are folded, in ascending (date, created) order,
// through an explicit State record; every transition rule is a pure function
// of (state, result) and unit-testable in isolation.
package upgrade

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/okian/echelon/internal/domain/classify"
	"github.com/okian/echelon/internal/domain/model"
)

// Historical window lengths. The ledger expires after a year plus a one-week
// grace period; administrative downgrades need a year of quiet.
const (
	defaultExpiryDays = 372
	defaultGraceDays  = 365
	hoursPerDay       = 24
)

// Entry is one ledger row: points earned, the place string they came from,
// and the race date used for expiry and podium checks.
type Entry struct {
	Value int
	Place string
	Date  time.Time
}

// State is the per-competitor fold state. Categories is never empty: it
// starts as the unknown sentinel {9} and only ever narrows or moves.
type State struct {
	Categories     model.CategorySet
	Ledger         []Entry
	Woman          bool
	LastChange     time.Time
	PrevCategories model.CategorySet

	notes map[string]struct{}
}

// NewState returns the initial state for a competitor.
func NewState() *State {
	return &State{
		Categories:     model.UnknownCategories(),
		PrevCategories: model.CategorySet{},
		notes:          make(map[string]struct{}),
	}
}

// Sum returns the rolling point total of the ledger.
func (s *State) Sum() int {
	total := 0
	for _, e := range s.Ledger {
		total += e.Value
	}
	return total
}

func (s *State) note(format string, args ...any) {
	s.notes[fmt.Sprintf(format, args...)] = struct{}{}
}

// expire drops ledger entries older than maxAge relative to asOf and returns
// the point total they carried.
func (s *State) expire(asOf time.Time, maxAge time.Duration) int {
	expired := 0
	kept := s.Ledger[:0]
	for _, e := range s.Ledger {
		if asOf.Sub(e.Date) > maxAge {
			expired += e.Value
		} else {
			kept = append(kept, e)
		}
	}
	s.Ledger = kept
	return expired
}

// CategorySource supplies an authoritative registered category, used to
// disambiguate riders first seen in an elite bracket.
type CategorySource interface {
	CategoryFor(ctx context.Context, personID int, eventDiscipline string, asOf time.Time) (int, error)
}

// Input is one result, with its race context and any raw schedule points
// already assigned to it.
type Input struct {
	ResultID        int
	PersonID        int
	Place           string
	RaceID          int
	RaceName        string
	RaceDate        time.Time
	RaceCategories  model.CategorySet
	EventDiscipline string
	RawPoints       int
	HasPoints       bool
}

// Outcome reports what to persist for one processed result. Persist is set
// when the result had a raw points row, or a transition or note demands an
// audit row.
type Outcome struct {
	Row     model.Points
	Persist bool
}

// Tracker drives the state machine for one discipline.
type Tracker struct {
	discipline string
	rules      Rules
	classifier classify.Classifier
	confirm    CategorySource
	expiry     time.Duration
	grace      time.Duration
}

// Option applies a configuration option to the Tracker.
type Option func(*Tracker)

// WithRules overrides the upgrade rules.
func WithRules(r Rules) Option {
	return func(t *Tracker) {
		if r != nil {
			t.rules = r
		}
	}
}

// WithClassifier overrides the race-name classifier.
func WithClassifier(c classify.Classifier) Option {
	return func(t *Tracker) {
		if c != nil {
			t.classifier = c
		}
	}
}

// WithCategorySource wires the upgrade-confirmation oracle. Without one,
// elite-bracket bootstraps fall back to the least skilled race category.
func WithCategorySource(src CategorySource) Option {
	return func(t *Tracker) {
		t.confirm = src
	}
}

// WithExpiryDays overrides the ledger expiry window.
func WithExpiryDays(days int) Option {
	return func(t *Tracker) {
		if days > 0 {
			t.expiry = time.Duration(days) * hoursPerDay * time.Hour
		}
	}
}

// WithGraceDays overrides the downgrade grace period.
func WithGraceDays(days int) Option {
	return func(t *Tracker) {
		if days > 0 {
			t.grace = time.Duration(days) * hoursPerDay * time.Hour
		}
	}
}

// NewTracker builds a tracker for one upgrade discipline.
func NewTracker(discipline string, opts ...Option) *Tracker {
	t := &Tracker{
		discipline: discipline,
		rules:      DefaultRules(),
		classifier: classify.NewRegexpClassifier(),
		expiry:     defaultExpiryDays * hoursPerDay * time.Hour,
		grace:      defaultGraceDays * hoursPerDay * time.Hour,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Process folds one result through the state machine and reports the Points
// row to persist, if any. Results must arrive in (date, created) order.
func (t *Tracker) Process(ctx context.Context, st *State, in Input) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}

	if expired := t.expireLedger(st, in.RaceDate); expired > 0 {
		if expired == 1 {
			st.note("%d POINT HAS EXPIRED", expired)
		} else {
			st.note("%d POINTS HAVE EXPIRED", expired)
		}
	}

	pointsValue := 0
	if in.HasPoints {
		pointsValue = in.RawPoints
	}
	hasPoints := in.HasPoints
	changedThisRace := false

	_, numeric := model.NumericPlace(in.Place)
	if numeric && in.RaceCategories.Len() > 0 {
		if t.classifier.IsWomenRace(in.RaceName) {
			st.Woman = true
		}
		var zeroed bool
		changedThisRace, zeroed = t.transition(ctx, st, in)
		if zeroed {
			pointsValue = 0
		}
	}

	st.Ledger = append(st.Ledger, Entry{Value: pointsValue, Place: in.Place, Date: in.RaceDate})

	// An upgrade or note on a result without raw points still gets an audit row.
	if (changedThisRace || len(st.notes) > 0) && !hasPoints {
		hasPoints = true
	}

	out := Outcome{}
	if hasPoints {
		sum := st.Sum()
		row := model.Points{
			ResultID:   in.ResultID,
			Value:      pointsValue,
			Sum:        sum,
			Categories: st.Categories.Clone(),
		}
		if t.rules.NeedsUpgrade(t.discipline, st.Categories, sum, st.Ledger) {
			st.note("NEEDS UPGRADE")
			row.NeedsUpgrade = true
		}
		row.Notes = formatNotes(st.notes)
		st.notes = make(map[string]struct{})
		out = Outcome{Row: row, Persist: true}
	}

	st.PrevCategories = in.RaceCategories.Clone()
	return out, nil
}

// transition applies the first matching category rule. It returns whether a
// category change happened and whether this result's points were zeroed.
func (t *Tracker) transition(ctx context.Context, st *State, in Input) (changed, zeroed bool) {
	r := in.RaceCategories
	upgradeCategory := st.Categories.Max() - 1
	sum := st.Sum()

	switch {
	case r.Contains(upgradeCategory) &&
		t.rules.CanUpgrade(t.discipline, sum, upgradeCategory, st.Ledger, false) &&
		t.rules.NeedsUpgrade(t.discipline, st.Categories, sum, st.Ledger) &&
		!st.PrevCategories.Equal(r):
		// Eligible for and needing an upgrade, racing a new field that
		// includes the upgrade category.
		st.note("UPGRADED TO %d WITH %d POINTS", upgradeCategory, sum)
		st.Ledger = nil
		st.Categories = model.NewCategorySet(upgradeCategory)
		st.LastChange = in.RaceDate
		return true, false

	case !st.Categories.Overlaps(r) && st.Categories.Min() > r.Min():
		// The race field is more skilled than the rider's categories.
		if st.Categories.IsUnknown() {
			t.bootstrap(ctx, st, in)
			st.note("")
			return false, false
		}
		prefix := ""
		if !t.rules.CanUpgrade(t.discipline, sum, r.Max(), st.Ledger, true) {
			prefix = "PREMATURELY "
		}
		st.note(prefix+"UPGRADED TO %d WITH %d POINTS", r.Max(), sum)
		st.Ledger = nil
		st.Categories = model.NewCategorySet(r.Max())
		st.LastChange = in.RaceDate
		return true, false

	case !st.Categories.Overlaps(r) && st.Categories.Max() < r.Max():
		// The race field is less skilled than the rider's categories.
		if st.Woman && !t.classifier.IsWomenRace(in.RaceName) {
			// Women may race down-category in an open field.
			return false, false
		}
		if sum == 0 && in.RaceDate.Sub(st.LastChange) > t.grace {
			st.Ledger = nil
			st.note("DOWNGRADED TO %d", r.Min())
			st.Categories = model.NewCategorySet(r.Min())
			st.LastChange = in.RaceDate
			return true, false
		}
		if in.HasPoints {
			st.note("NO POINTS FOR RACING BELOW CATEGORY")
			return false, true
		}
		return false, false

	case st.Categories.Len() > 1 && properSubset(st.Categories, r):
		// Narrow a rider only ever seen in multi-category fields.
		st.Categories = st.Categories.Intersect(r)
		st.note("")
		return false, false
	}

	return false, false
}

// bootstrap adopts a first-seen rider's categories from the race. Riders
// first seen in an elite bracket are checked against the registered category
// when a source is available; otherwise the least skilled race category is
// assumed.
func (t *Tracker) bootstrap(ctx context.Context, st *State, in Input) {
	r := in.RaceCategories
	if !eliteBracket(r) {
		st.Categories = r.Clone()
		return
	}

	if t.confirm != nil {
		cat, err := t.confirm.CategoryFor(ctx, in.PersonID, in.EventDiscipline, in.RaceDate)
		if err == nil && r.Contains(cat) {
			st.Categories = model.NewCategorySet(cat)
			return
		}
	}
	st.Categories = model.NewCategorySet(r.Max())
}

func (t *Tracker) expireLedger(st *State, asOf time.Time) int {
	return st.expire(asOf, t.expiry)
}

// eliteBracket reports whether the set is {1}, {1,2} or {1,2,3}: fields
// whose riders have usually held their category longer than our history.
func eliteBracket(r model.CategorySet) bool {
	switch {
	case r.Equal(model.NewCategorySet(1)),
		r.Equal(model.NewCategorySet(1, 2)),
		r.Equal(model.NewCategorySet(1, 2, 3)):
		return true
	}
	return false
}

// properSubset reports whether cats∩r is a proper, non-empty subset of cats.
func properSubset(cats, r model.CategorySet) bool {
	inter := cats.Intersect(r)
	return inter.Len() > 0 && inter.Len() < cats.Len()
}

// formatNotes renders the accumulated notes sentence-capitalized, sorted
// descending and joined with "; ". Empty placeholder notes are dropped.
func formatNotes(notes map[string]struct{}) string {
	out := make([]string, 0, len(notes))
	for n := range notes {
		if n == "" {
			continue
		}
		out = append(out, capitalize(n))
	}
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return strings.Join(out, "; ")
}

func capitalize(s string) string {
	lower := strings.ToLower(s)
	runes := []rune(lower)
	if len(runes) > 0 {
		runes[0] = unicode.ToUpper(runes[0])
	}
	return string(runes)
}
