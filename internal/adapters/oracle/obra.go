package oracle

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/okian/echelon/internal/domain/model"
)

const defaultFetchTimeout = 15 * time.Second

// HTTPFetcher scrapes a person's registration page. The page exposes the
// license number and one category per discipline family as p elements with
// person_* ids.
type HTTPFetcher struct {
	baseURL string
	client  *http.Client
	now     func() time.Time
}

// FetcherOption applies a configuration option to the HTTPFetcher.
type FetcherOption func(*HTTPFetcher)

// WithHTTPClient overrides the default client.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *HTTPFetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithClock overrides the snapshot timestamp source.
func WithClock(now func() time.Time) FetcherOption {
	return func(f *HTTPFetcher) {
		if now != nil {
			f.now = now
		}
	}
}

// NewHTTPFetcher builds a fetcher against the given results site.
func NewHTTPFetcher(baseURL string, opts ...FetcherOption) *HTTPFetcher {
	f := &HTTPFetcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: defaultFetchTimeout},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves the current registration snapshot for the person. Missing
// or non-numeric page fields read as 0.
func (f *HTTPFetcher) Fetch(ctx context.Context, personID int) (model.Snapshot, error) {
	url := fmt.Sprintf("%s/people/%d/1900", f.baseURL, personID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("%w: %v", ErrFetch, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.Snapshot{}, fmt.Errorf("%w: %s returned %d", ErrFetch, url, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("%w: parse %s: %v", ErrFetch, url, err)
	}

	day := f.now().UTC()
	snap := model.Snapshot{
		PersonID: personID,
		Date:     time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC),
		License:  pageField(doc, "person_license"),
		MTB:      pageField(doc, "person_mtb_category"),
		DH:       pageField(doc, "person_dh_category"),
		CCX:      pageField(doc, "person_ccx_category"),
		Road:     pageField(doc, "person_road_category"),
		Track:    pageField(doc, "person_track_category"),
	}
	return snap, nil
}

func pageField(doc *goquery.Document, id string) int {
	text := strings.TrimSpace(doc.Find("p#" + id).First().Text())
	if text == "" {
		return 0
	}
	n, err := strconv.Atoi(text)
	if err != nil {
		return 0
	}
	return n
}
