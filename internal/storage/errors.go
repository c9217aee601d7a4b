package storage

import "errors"

// Sentinel error kinds surfaced by the catalog and the table store. Callers
// classify with errors.Is; messages carry the offending name via fmt.Errorf
// wrapping.
var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicate    = errors.New("duplicate name")
	ErrTypeMismatch = errors.New("type mismatch")
)
