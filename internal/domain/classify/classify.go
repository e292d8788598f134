// Package classify infers gender-field information from free-text race
// names. The heuristics are inherently fuzzy, so they live behind a narrow
// interface and the rest of the core never touches the string matching.
package classify

import "regexp"

// Field identifies which points table a race scores against.
type Field string

// Recognized fields.
const (
	FieldOpen  Field = "open"
	FieldWomen Field = "women"
)

// Classifier answers field questions about a race from its name.
type Classifier interface {
	// Field returns the points-schedule field for the race.
	Field(raceName string) Field
	// IsWomenRace reports whether the race is a women's race. This is the
	// narrower check used to flag competitors and to permit cross-gender
	// down-category racing.
	IsWomenRace(raceName string) bool
}

// Option applies a configuration option to the regexp classifier.
type Option func(*RegexpClassifier)

// WithFieldPattern overrides the pattern selecting the women's points table.
func WithFieldPattern(re *regexp.Regexp) Option {
	return func(c *RegexpClassifier) {
		if re != nil {
			c.fieldRE = re
		}
	}
}

// WithWomenPattern overrides the pattern recognizing women's races.
func WithWomenPattern(re *regexp.Regexp) Option {
	return func(c *RegexpClassifier) {
		if re != nil {
			c.womenRE = re
		}
	}
}

// RegexpClassifier implements Classifier with pattern matching over the race
// name. Junior fields score against the women's tables, but a junior race is
// not a women's race for flagging purposes.
type RegexpClassifier struct {
	fieldRE *regexp.Regexp
	womenRE *regexp.Regexp
}

// NewRegexpClassifier builds a classifier with the historical patterns.
func NewRegexpClassifier(opts ...Option) *RegexpClassifier {
	c := &RegexpClassifier{
		fieldRE: regexp.MustCompile(`(?i)women|junior`),
		womenRE: regexp.MustCompile(`(?i)women`),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Field returns FieldWomen for women's and junior fields, FieldOpen
// otherwise.
func (c *RegexpClassifier) Field(raceName string) Field {
	if c.fieldRE.MatchString(raceName) {
		return FieldWomen
	}
	return FieldOpen
}

// IsWomenRace reports whether the race name marks a women's race.
func (c *RegexpClassifier) IsWomenRace(raceName string) bool {
	return c.womenRE.MatchString(raceName)
}
