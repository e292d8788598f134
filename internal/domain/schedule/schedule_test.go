package schedule_test

import (
	"testing"
	"time"

	"github.com/okian/echelon/internal/domain/classify"
	"github.com/okian/echelon/internal/domain/schedule"
	. "github.com/smartystreets/goconvey/convey"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestLookup(t *testing.T) {
	Convey("Given the historical schedules", t, func() {
		r := schedule.NewResolver()

		Convey("Cyclocross, open field, 30 starters under the 2019 rules", func() {
			pts := r.Lookup("cyclocross", classify.FieldOpen, 30, day(2019, time.September, 15))
			So(pts, ShouldResemble, []int{5, 4, 3, 2, 1})
		})

		Convey("The same field before the cutover uses the 2018 tables", func() {
			pts := r.Lookup("cyclocross", classify.FieldOpen, 30, day(2019, time.August, 30))
			So(pts, ShouldResemble, []int{7, 6, 5, 4, 3, 2, 1})
		})

		Convey("The cutover date itself is on the new schedule", func() {
			pts := r.Lookup("cyclocross", classify.FieldOpen, 30, day(2019, time.August, 31))
			So(pts, ShouldResemble, []int{5, 4, 3, 2, 1})
		})

		Convey("Disciplines without a women's table fall back to open", func() {
			pts := r.Lookup("criterium", classify.FieldWomen, 15, day(2019, time.June, 1))
			So(pts, ShouldResemble, []int{4, 3, 2, 1})
		})

		Convey("Field sizes outside every tier earn nothing", func() {
			So(r.Lookup("cyclocross", classify.FieldOpen, 5, day(2020, time.January, 1)), ShouldBeEmpty)
			So(r.Lookup("road", classify.FieldOpen, 3, day(2020, time.January, 1)), ShouldBeEmpty)
		})

		Convey("Unknown disciplines earn nothing and are reported uncovered", func() {
			So(r.Lookup("bmx", classify.FieldOpen, 30, day(2020, time.January, 1)), ShouldBeEmpty)
			So(r.Covered("bmx", day(2020, time.January, 1)), ShouldBeFalse)
			So(r.Covered("road", day(2020, time.January, 1)), ShouldBeTrue)
		})
	})

	Convey("Given custom generations", t, func() {
		custom := schedule.Generation{
			Effective: time.Time{},
			Tables: schedule.Tables{
				"road": schedule.FieldTables{
					classify.FieldOpen: {
						{MinStarters: 1, MaxStarters: 999, Points: []int{1}},
					},
				},
			},
		}
		r := schedule.NewResolver(schedule.WithGenerations(custom))

		So(r.Lookup("road", classify.FieldOpen, 50, day(2019, time.January, 1)), ShouldResemble, []int{1})
		So(r.Lookup("cyclocross", classify.FieldOpen, 30, day(2019, time.January, 1)), ShouldBeEmpty)
	})
}
