package schedule

import (
	"time"

	"github.com/okian/echelon/internal/domain/classify"
)

// The association revised its points schedule effective 2019-08-31; races
// before that date score against the prior tables.
var schedule2019Effective = time.Date(2019, time.August, 31, 0, 0, 0, 0, time.UTC)

func defaultGenerations() []Generation {
	return []Generation{
		{Effective: time.Time{}, Tables: tables2018()},
		{Effective: schedule2019Effective, Tables: tables2019()},
	}
}

func tables2019() Tables {
	return Tables{
		"cyclocross": FieldTables{
			classify.FieldOpen: {
				{MinStarters: 10, MaxStarters: 25, Points: []int{3, 2, 1}},
				{MinStarters: 26, MaxStarters: 40, Points: []int{5, 4, 3, 2, 1}},
				{MinStarters: 41, MaxStarters: 75, Points: []int{7, 6, 5, 4, 3, 2, 1}},
				{MinStarters: 76, MaxStarters: 999, Points: []int{10, 8, 7, 5, 4, 3, 2, 1}},
			},
			classify.FieldWomen: {
				{MinStarters: 6, MaxStarters: 15, Points: []int{3, 2, 1}},
				{MinStarters: 16, MaxStarters: 25, Points: []int{5, 4, 3, 2, 1}},
				{MinStarters: 26, MaxStarters: 60, Points: []int{7, 6, 5, 4, 3, 2, 1}},
				{MinStarters: 61, MaxStarters: 999, Points: []int{10, 8, 7, 5, 4, 3, 2, 1}},
			},
		},
		"circuit": FieldTables{
			classify.FieldOpen: {
				{MinStarters: 5, MaxStarters: 10, Points: []int{3, 2, 1}},
				{MinStarters: 11, MaxStarters: 20, Points: []int{4, 3, 2, 1}},
				{MinStarters: 21, MaxStarters: 49, Points: []int{5, 4, 3, 2, 1}},
				{MinStarters: 50, MaxStarters: 999, Points: []int{7, 5, 4, 3, 2, 1}},
			},
		},
		// criterium scores identically to circuit
		"criterium": FieldTables{
			classify.FieldOpen: {
				{MinStarters: 5, MaxStarters: 10, Points: []int{3, 2, 1}},
				{MinStarters: 11, MaxStarters: 20, Points: []int{4, 3, 2, 1}},
				{MinStarters: 21, MaxStarters: 49, Points: []int{5, 4, 3, 2, 1}},
				{MinStarters: 50, MaxStarters: 999, Points: []int{7, 5, 4, 3, 2, 1}},
			},
		},
		"road": FieldTables{
			classify.FieldOpen: {
				{MinStarters: 5, MaxStarters: 10, Points: []int{3, 2, 1}},
				{MinStarters: 11, MaxStarters: 20, Points: []int{7, 5, 4, 3, 2, 1}},
				{MinStarters: 21, MaxStarters: 49, Points: []int{8, 6, 5, 4, 3, 2, 1}},
				{MinStarters: 50, MaxStarters: 999, Points: []int{10, 8, 7, 6, 5, 4, 3, 2, 1}},
			},
		},
		"tour": FieldTables{
			classify.FieldOpen: {
				{MinStarters: 10, MaxStarters: 19, Points: []int{5, 3, 2, 1}},
				{MinStarters: 20, MaxStarters: 35, Points: []int{7, 5, 3, 2, 1}},
				{MinStarters: 36, MaxStarters: 49, Points: []int{10, 8, 6, 5, 4, 3, 2, 1}},
				{MinStarters: 50, MaxStarters: 999, Points: []int{20, 18, 16, 14, 12, 10, 9, 8, 7, 6, 5, 4, 3, 2, 1}},
			},
		},
	}
}

func tables2018() Tables {
	return Tables{
		"cyclocross": FieldTables{
			classify.FieldOpen: {
				{MinStarters: 10, MaxStarters: 15, Points: []int{3, 2, 1}},
				{MinStarters: 16, MaxStarters: 25, Points: []int{5, 4, 3, 2, 1}},
				{MinStarters: 26, MaxStarters: 60, Points: []int{7, 6, 5, 4, 3, 2, 1}},
				{MinStarters: 61, MaxStarters: 999, Points: []int{10, 8, 7, 5, 4, 3, 2, 1}},
			},
			classify.FieldWomen: {
				{MinStarters: 6, MaxStarters: 10, Points: []int{3, 2, 1}},
				{MinStarters: 11, MaxStarters: 20, Points: []int{5, 4, 3, 2, 1}},
				{MinStarters: 21, MaxStarters: 50, Points: []int{7, 6, 5, 4, 3, 2, 1}},
				{MinStarters: 51, MaxStarters: 999, Points: []int{10, 8, 7, 5, 4, 3, 2, 1}},
			},
		},
		"circuit": FieldTables{
			classify.FieldOpen: {
				{MinStarters: 5, MaxStarters: 10, Points: []int{3, 2, 1}},
				{MinStarters: 11, MaxStarters: 20, Points: []int{4, 3, 2, 1}},
				{MinStarters: 21, MaxStarters: 49, Points: []int{5, 4, 3, 2, 1}},
				{MinStarters: 50, MaxStarters: 999, Points: []int{7, 5, 4, 3, 2, 1}},
			},
		},
		"criterium": FieldTables{
			classify.FieldOpen: {
				{MinStarters: 5, MaxStarters: 10, Points: []int{3, 2, 1}},
				{MinStarters: 11, MaxStarters: 20, Points: []int{4, 3, 2, 1}},
				{MinStarters: 21, MaxStarters: 49, Points: []int{5, 4, 3, 2, 1}},
				{MinStarters: 50, MaxStarters: 999, Points: []int{7, 5, 4, 3, 2, 1}},
			},
		},
		"road": FieldTables{
			classify.FieldOpen: {
				{MinStarters: 5, MaxStarters: 10, Points: []int{3, 2, 1}},
				{MinStarters: 11, MaxStarters: 20, Points: []int{7, 5, 4, 3, 2, 1}},
				{MinStarters: 21, MaxStarters: 49, Points: []int{8, 6, 5, 4, 3, 2, 1}},
				{MinStarters: 50, MaxStarters: 999, Points: []int{10, 8, 7, 6, 5, 4, 3, 2, 1}},
			},
		},
		"tour": FieldTables{
			classify.FieldOpen: {
				{MinStarters: 10, MaxStarters: 19, Points: []int{5, 3, 2, 1}},
				{MinStarters: 20, MaxStarters: 35, Points: []int{7, 5, 3, 2, 1}},
				{MinStarters: 36, MaxStarters: 49, Points: []int{10, 8, 6, 5, 4, 3, 2, 1}},
				{MinStarters: 50, MaxStarters: 999, Points: []int{20, 18, 16, 14, 12, 10, 9, 8, 7, 6, 5, 4, 3, 2, 1}},
			},
		},
	}
}
