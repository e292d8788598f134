package upgrade

import "errors"

// Sentinel error kinds for this package, matchable with errors.Is.
var (
	ErrLoadRules = errors.New("load upgrade rules failed")
)
