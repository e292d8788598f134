package service

import "errors"

// ErrNilStorage is returned when the service is built without a store.
var ErrNilStorage = errors.New("nil storage")
