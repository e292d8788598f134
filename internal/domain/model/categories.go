package model

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// CategorySet is a small set of category integers. Lower numbers denote more
// advanced competitors; 0 is open/elite. The zero value is the empty set.
type CategorySet map[int]struct{}

// NewCategorySet builds a set from the given categories.
func NewCategorySet(cats ...int) CategorySet {
	s := make(CategorySet, len(cats))
	for _, c := range cats {
		s[c] = struct{}{}
	}
	return s
}

// UnknownCategories returns the sentinel set used before any category is
// known for a competitor.
func UnknownCategories() CategorySet {
	return NewCategorySet(UnknownCategory)
}

// Len returns the number of categories in the set.
func (s CategorySet) Len() int { return len(s) }

// Contains reports whether cat is in the set.
func (s CategorySet) Contains(cat int) bool {
	_, ok := s[cat]
	return ok
}

// Min returns the smallest (most advanced) category. Calling Min on an empty
// set is a programming error; it returns 0.
func (s CategorySet) Min() int {
	first := true
	var m int
	for c := range s {
		if first || c < m {
			m = c
			first = false
		}
	}
	return m
}

// Max returns the largest (least advanced) category, or 0 for an empty set.
func (s CategorySet) Max() int {
	first := true
	var m int
	for c := range s {
		if first || c > m {
			m = c
			first = false
		}
	}
	return m
}

// Intersect returns the intersection of s and other.
func (s CategorySet) Intersect(other CategorySet) CategorySet {
	out := make(CategorySet)
	for c := range s {
		if other.Contains(c) {
			out[c] = struct{}{}
		}
	}
	return out
}

// Overlaps reports whether the two sets share any category.
func (s CategorySet) Overlaps(other CategorySet) bool {
	for c := range s {
		if other.Contains(c) {
			return true
		}
	}
	return false
}

// Equal reports whether the two sets contain the same categories.
func (s CategorySet) Equal(other CategorySet) bool {
	if len(s) != len(other) {
		return false
	}
	for c := range s {
		if !other.Contains(c) {
			return false
		}
	}
	return true
}

// IsUnknown reports whether the set is exactly the sentinel {9}.
func (s CategorySet) IsUnknown() bool {
	return len(s) == 1 && s.Contains(UnknownCategory)
}

// Clone returns a copy of the set.
func (s CategorySet) Clone() CategorySet {
	out := make(CategorySet, len(s))
	for c := range s {
		out[c] = struct{}{}
	}
	return out
}

// Sorted returns the categories in ascending order.
func (s CategorySet) Sorted() []int {
	out := make([]int, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Ints(out)
	return out
}

// String renders the set as "1/2/3", or "-" for the empty set.
func (s CategorySet) String() string {
	if len(s) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(s))
	for _, c := range s.Sorted() {
		parts = append(parts, strconv.Itoa(c))
	}
	return strings.Join(parts, "/")
}

// MarshalJSON encodes the set as a sorted JSON array, matching the stored
// representation of race and points categories.
func (s CategorySet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// UnmarshalJSON decodes a JSON array of category integers.
func (s *CategorySet) UnmarshalJSON(data []byte) error {
	var cats []int
	if err := json.Unmarshal(data, &cats); err != nil {
		return err
	}
	*s = NewCategorySet(cats...)
	return nil
}
