package model_test

import (
	"encoding/json"
	"testing"

	"github.com/okian/echelon/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestPlaces(t *testing.T) {
	Convey("Given scraped place strings", t, func() {
		Convey("Numeric places parse", func() {
			n, ok := model.NumericPlace("12")
			So(ok, ShouldBeTrue)
			So(n, ShouldEqual, 12)
		})

		Convey("Zero and markers do not parse", func() {
			_, ok := model.NumericPlace("0")
			So(ok, ShouldBeFalse)
			_, ok = model.NumericPlace("dnf")
			So(ok, ShouldBeFalse)
			_, ok = model.NumericPlace("")
			So(ok, ShouldBeFalse)
		})

		Convey("Markers are recognized case-insensitively", func() {
			So(model.IsNonFinishMarker("DNF"), ShouldBeTrue)
			So(model.IsNonFinishMarker("dns"), ShouldBeTrue)
			So(model.IsNonFinishMarker("dq"), ShouldBeTrue)
			So(model.IsNonFinishMarker("3"), ShouldBeFalse)
		})

		Convey("SafePlace keeps markers off the podium", func() {
			So(model.SafePlace("2"), ShouldEqual, 2)
			So(model.SafePlace("dnf"), ShouldEqual, 999)
		})
	})
}

func TestCategorySet(t *testing.T) {
	Convey("Given category sets", t, func() {
		cats := model.NewCategorySet(3, 4)

		Convey("Min, Max and Contains behave", func() {
			So(cats.Min(), ShouldEqual, 3)
			So(cats.Max(), ShouldEqual, 4)
			So(cats.Contains(3), ShouldBeTrue)
			So(cats.Contains(2), ShouldBeFalse)
		})

		Convey("Intersection and overlap", func() {
			other := model.NewCategorySet(4, 5)
			So(cats.Overlaps(other), ShouldBeTrue)
			So(cats.Intersect(other).Sorted(), ShouldResemble, []int{4})
			So(cats.Overlaps(model.NewCategorySet(1, 2)), ShouldBeFalse)
		})

		Convey("The unknown sentinel is detected", func() {
			So(model.UnknownCategories().IsUnknown(), ShouldBeTrue)
			So(cats.IsUnknown(), ShouldBeFalse)
		})

		Convey("String renders slash-separated, ascending", func() {
			So(model.NewCategorySet(4, 3).String(), ShouldEqual, "3/4")
			So(model.CategorySet{}.String(), ShouldEqual, "-")
		})

		Convey("JSON round-trips as a sorted array", func() {
			data, err := json.Marshal(model.NewCategorySet(4, 1, 2))
			So(err, ShouldBeNil)
			So(string(data), ShouldEqual, "[1,2,4]")

			var back model.CategorySet
			So(json.Unmarshal(data, &back), ShouldBeNil)
			So(back.Equal(model.NewCategorySet(1, 2, 4)), ShouldBeTrue)
		})
	})
}

func TestDisciplines(t *testing.T) {
	Convey("Given the discipline map", t, func() {
		Convey("Event disciplines resolve to their family", func() {
			So(model.UpgradeDiscipline("criterium"), ShouldEqual, model.Road)
			So(model.UpgradeDiscipline("cyclocross"), ShouldEqual, model.Cyclocross)
			So(model.UpgradeDiscipline("bmx"), ShouldEqual, "")
		})

		Convey("Snapshots answer per-family categories", func() {
			s := model.Snapshot{Road: 3, CCX: 2, MTB: 1, DH: 2, Track: 4}
			So(s.CategoryFor("criterium"), ShouldEqual, 3)
			So(s.CategoryFor("cyclocross"), ShouldEqual, 2)
			So(s.CategoryFor("downhill"), ShouldEqual, 2)
			So(s.CategoryFor("short_track"), ShouldEqual, 1)
			So(s.CategoryFor("unknown"), ShouldEqual, 0)
		})
	})
}
