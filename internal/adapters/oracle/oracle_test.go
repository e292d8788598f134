package oracle

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/echelon/internal/domain/model"
)

type fakeStore struct {
	snaps   map[int][]model.Snapshot
	saved   []model.Snapshot
	reads   int
	saveErr error
}

func (f *fakeStore) SnapshotsByPerson(_ context.Context, personID int) ([]model.Snapshot, error) {
	f.reads++
	return f.snaps[personID], nil
}

func (f *fakeStore) SaveSnapshot(_ context.Context, s model.Snapshot) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, s)
	return nil
}

type fakeFetcher struct {
	snap  model.Snapshot
	err   error
	calls int
}

func (f *fakeFetcher) Fetch(_ context.Context, personID int) (model.Snapshot, error) {
	f.calls++
	if f.err != nil {
		return model.Snapshot{}, f.err
	}
	s := f.snap
	s.PersonID = personID
	return s, nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCategoryFor(t *testing.T) {
	ctx := context.Background()

	Convey("Given stored snapshots", t, func() {
		store := &fakeStore{snaps: map[int][]model.Snapshot{
			7: {
				{PersonID: 7, Date: day(2019, 2, 1), Road: 4, CCX: 3},
				{PersonID: 7, Date: day(2019, 8, 1), Road: 3, CCX: 2},
			},
		}}
		svc := NewService(store)

		Convey("The newest snapshot on or before the date wins", func() {
			cat, err := svc.CategoryFor(ctx, 7, "criterium", day(2019, 9, 15))
			So(err, ShouldBeNil)
			So(cat, ShouldEqual, 3)
		})

		Convey("An earlier date resolves against the earlier snapshot", func() {
			cat, err := svc.CategoryFor(ctx, 7, "criterium", day(2019, 5, 1))
			So(err, ShouldBeNil)
			So(cat, ShouldEqual, 4)
		})

		Convey("A date before every snapshot falls back to the oldest", func() {
			cat, err := svc.CategoryFor(ctx, 7, "cyclocross", day(2018, 1, 1))
			So(err, ShouldBeNil)
			So(cat, ShouldEqual, 3)
		})

		Convey("Repeat lookups are served from the memo", func() {
			_, err := svc.CategoryFor(ctx, 7, "criterium", day(2019, 9, 15))
			So(err, ShouldBeNil)
			_, err = svc.CategoryFor(ctx, 7, "cyclocross", day(2019, 9, 15))
			So(err, ShouldBeNil)
			So(store.reads, ShouldEqual, 1)
		})
	})

	Convey("Given a person with no snapshots", t, func() {
		Convey("The fetcher is consulted and the snapshot persisted", func() {
			store := &fakeStore{snaps: map[int][]model.Snapshot{}}
			fetch := &fakeFetcher{snap: model.Snapshot{Date: day(2019, 10, 5), Road: 2}}
			svc := NewService(store, WithFetcher(fetch))

			cat, err := svc.CategoryFor(ctx, 9, "circuit", day(2019, 10, 5))
			So(err, ShouldBeNil)
			So(cat, ShouldEqual, 2)
			So(fetch.calls, ShouldEqual, 1)
			So(store.saved, ShouldHaveLength, 1)
			So(store.saved[0].PersonID, ShouldEqual, 9)
		})

		Convey("A failed save does not fail the lookup", func() {
			store := &fakeStore{snaps: map[int][]model.Snapshot{}, saveErr: errors.New("disk full")}
			fetch := &fakeFetcher{snap: model.Snapshot{Date: day(2019, 10, 5), Road: 2}}
			svc := NewService(store, WithFetcher(fetch))

			cat, err := svc.CategoryFor(ctx, 9, "circuit", day(2019, 10, 5))
			So(err, ShouldBeNil)
			So(cat, ShouldEqual, 2)
		})

		Convey("Without a fetcher the lookup reports no snapshot", func() {
			svc := NewService(&fakeStore{snaps: map[int][]model.Snapshot{}})
			_, err := svc.CategoryFor(ctx, 9, "circuit", day(2019, 10, 5))
			So(errors.Is(err, ErrNoSnapshot), ShouldBeTrue)
		})

		Convey("Fetcher errors propagate", func() {
			boom := errors.New("timeout")
			svc := NewService(&fakeStore{snaps: map[int][]model.Snapshot{}},
				WithFetcher(&fakeFetcher{err: boom}))
			_, err := svc.CategoryFor(ctx, 9, "circuit", day(2019, 10, 5))
			So(errors.Is(err, boom), ShouldBeTrue)
		})
	})
}

func TestHTTPFetcher(t *testing.T) {
	ctx := context.Background()

	page := `<html><body>
		<p id="person_license">5551</p>
		<p id="person_mtb_category">2</p>
		<p id="person_dh_category"></p>
		<p id="person_ccx_category">3</p>
		<p id="person_road_category">4</p>
		<p id="person_track_category">junk</p>
	</body></html>`

	Convey("Given a registration page", t, func() {
		var gotPath string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			fmt.Fprint(w, page)
		}))
		defer srv.Close()

		f := NewHTTPFetcher(srv.URL, WithClock(func() time.Time {
			return time.Date(2019, 10, 5, 14, 30, 0, 0, time.UTC)
		}))

		Convey("The snapshot carries every parseable field", func() {
			snap, err := f.Fetch(ctx, 5551)
			So(err, ShouldBeNil)
			So(gotPath, ShouldEqual, "/people/5551/1900")
			So(snap.PersonID, ShouldEqual, 5551)
			So(snap.License, ShouldEqual, 5551)
			So(snap.MTB, ShouldEqual, 2)
			So(snap.CCX, ShouldEqual, 3)
			So(snap.Road, ShouldEqual, 4)
			So(snap.Date.Equal(day(2019, 10, 5)), ShouldBeTrue)
		})

		Convey("Empty and non-numeric fields read as zero", func() {
			snap, err := f.Fetch(ctx, 5551)
			So(err, ShouldBeNil)
			So(snap.DH, ShouldEqual, 0)
			So(snap.Track, ShouldEqual, 0)
		})
	})

	Convey("A non-200 response is a fetch error", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}))
		defer srv.Close()

		_, err := NewHTTPFetcher(srv.URL).Fetch(ctx, 5551)
		So(errors.Is(err, ErrFetch), ShouldBeTrue)
	})
}

func TestMemoCache(t *testing.T) {
	Convey("The memo evicts its oldest entry at capacity", t, func() {
		c := newMemoCache(2)
		when := day(2019, 10, 5)

		c.put(1, when, model.Snapshot{PersonID: 1})
		c.put(2, when, model.Snapshot{PersonID: 2})
		c.put(3, when, model.Snapshot{PersonID: 3})

		So(c.size(), ShouldEqual, 2)
		_, ok := c.get(1, when)
		So(ok, ShouldBeFalse)
		got, ok := c.get(3, when)
		So(ok, ShouldBeTrue)
		So(got.PersonID, ShouldEqual, 3)
	})

	Convey("Different dates are distinct keys", t, func() {
		c := newMemoCache(10)
		c.put(1, day(2019, 10, 5), model.Snapshot{Road: 3})
		c.put(1, day(2019, 10, 6), model.Snapshot{Road: 2})

		a, _ := c.get(1, day(2019, 10, 5))
		b, _ := c.get(1, day(2019, 10, 6))
		So(a.Road, ShouldEqual, 3)
		So(b.Road, ShouldEqual, 2)
	})
}
