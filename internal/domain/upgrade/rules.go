package upgrade

import (
	"fmt"
	"strconv"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/echelon/internal/domain/model"
)

// Rule holds the upgrade thresholds for one discipline/category pair. The
// thresholds are versioned data, not constants: MinPoints gates voluntary
// upgrades, MaxPoints forces one, MinRaces is the race-count alternative to
// MinPoints, and Podiums switches the category to podium-counted upgrades.
type Rule struct {
	MinPoints *int `koanf:"min"`
	MaxPoints *int `koanf:"max"`
	MinRaces  *int `koanf:"races"`
	Podiums   *int `koanf:"podiums"`
}

// PodiumBased reports whether the category upgrades on podium counts rather
// than accumulated points.
func (r Rule) PodiumBased() bool { return r.Podiums != nil }

// Rules maps discipline -> category -> rule.
type Rules map[string]map[int]Rule

func intp(v int) *int { return &v }

// DefaultRules returns the current association rules.
func DefaultRules() Rules {
	return Rules{
		model.Cyclocross: {
			4: {MinPoints: intp(0), MaxPoints: intp(20)},
			3: {MinPoints: intp(0), MaxPoints: intp(20)},
			2: {MinPoints: intp(20), MaxPoints: intp(20)},
			1: {MinPoints: intp(20), MaxPoints: intp(35)},
		},
		model.MountainBike: {
			3: {Podiums: intp(0)},
			2: {Podiums: intp(3)},
			1: {Podiums: intp(3)},
			0: {Podiums: intp(5)},
		},
		model.Track: {
			4: {MinPoints: intp(0), MinRaces: intp(4)},
			3: {MinPoints: intp(20), MinRaces: intp(5)},
			2: {MinPoints: intp(25), MinRaces: intp(5)},
			1: {MinPoints: intp(30), MinRaces: intp(5)},
		},
		model.Road: {
			4: {MinPoints: intp(15), MaxPoints: intp(25), MinRaces: intp(10)},
			3: {MinPoints: intp(20), MaxPoints: intp(30), MinRaces: intp(25)},
			2: {MinPoints: intp(25), MaxPoints: intp(40)},
			1: {MinPoints: intp(30), MaxPoints: intp(50)},
		},
	}
}

// LoadRulesFile reads a YAML rules file, keyed by discipline then category.
// It lets the thresholds ship as configuration rather than a rebuild.
func LoadRulesFile(path string) (Rules, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadRules, err)
	}

	// YAML map keys arrive as strings; convert the category level.
	var raw map[string]map[string]Rule
	if err := k.UnmarshalWithConf("", &raw, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadRules, err)
	}

	rules := make(Rules, len(raw))
	for discipline, byCat := range raw {
		rules[discipline] = make(map[int]Rule, len(byCat))
		for key, rule := range byCat {
			cat, err := strconv.Atoi(key)
			if err != nil {
				return nil, fmt.Errorf("%w: category %q in %s", ErrLoadRules, key, discipline)
			}
			rules[discipline][cat] = rule
		}
	}
	return rules, nil
}

// NeedsUpgrade reports whether a rider in the given categories must move to
// the next category up. Category 0 never fires on points; podium-based
// categories fire on top-3 ledger finishes. Missing rules never fire.
func (r Rules) NeedsUpgrade(discipline string, categories model.CategorySet, sum int, ledger []Entry) bool {
	category := categories.Max() - 1
	rule, ok := r.rule(discipline, category)
	if !ok {
		return false
	}

	if rule.PodiumBased() {
		return podiumCount(ledger) >= *rule.Podiums
	}
	if category == 0 {
		return false
	}
	return rule.MaxPoints != nil && sum >= *rule.MaxPoints
}

// CanUpgrade reports whether the rider may move to the given category on the
// strength of the current ledger. With checkMinRaces set, a long enough
// ledger satisfies disciplines that allow race-count upgrades. Categories
// without a rule are freely upgradable.
func (r Rules) CanUpgrade(discipline string, sum int, category int, ledger []Entry, checkMinRaces bool) bool {
	rule, ok := r.rule(discipline, category)
	if !ok {
		return true
	}

	if rule.PodiumBased() {
		return category > 0
	}
	if checkMinRaces && rule.MinRaces != nil && len(ledger) >= *rule.MinRaces {
		return true
	}
	return rule.MinPoints != nil && sum >= *rule.MinPoints
}

func (r Rules) rule(discipline string, category int) (Rule, bool) {
	byCat, ok := r[discipline]
	if !ok {
		return Rule{}, false
	}
	rule, ok := byCat[category]
	return rule, ok
}

func podiumCount(ledger []Entry) int {
	n := 0
	for _, e := range ledger {
		if model.SafePlace(e.Place) <= 3 {
			n++
		}
	}
	return n
}
