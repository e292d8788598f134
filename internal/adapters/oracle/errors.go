package oracle

import "errors"

// Sentinel error kinds for this package, matchable with errors.Is.
var (
	// ErrNoSnapshot is returned when no snapshot exists and no fetcher is
	// configured to retrieve one.
	ErrNoSnapshot = errors.New("no registration snapshot")
	// ErrFetch is returned when the registration site cannot be scraped.
	ErrFetch = errors.New("registration fetch failed")
)
