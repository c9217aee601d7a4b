package engine

import (
	"errors"

	"github.com/SimonWaldherr/slimSQL/internal/storage"
)

// Error kinds raised by the executor and the evaluator. Catalog errors are
// re-exported from storage so callers only need one import to classify.
var (
	ErrParse        = errors.New("parse error")
	ErrDivideByZero = errors.New("division by zero")

	ErrNotFound     = storage.ErrNotFound
	ErrDuplicate    = storage.ErrDuplicate
	ErrTypeMismatch = storage.ErrTypeMismatch
)
