package repository

import "errors"

// Sentinel error kinds for this package, matchable with errors.Is.
var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrMigrate is returned when schema migrations fail.
	ErrMigrate = errors.New("migration failed")
	// ErrUnknownDiscipline is returned for disciplines outside the map.
	ErrUnknownDiscipline = errors.New("unknown discipline")
)
