package repositories

import "errors"

// ErrNotFound is returned when a lookup, update or delete targets a missing record.
var ErrNotFound = errors.New("record not found")
