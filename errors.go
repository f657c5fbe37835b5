package persistkit

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by strict accessors when a key or element is
	// absent. Locally recoverable: GetOr variants never return it.
	ErrNotFound = errors.New("not found")

	// ErrEmptyCollection is returned by Pop, MinKey and similar operations
	// that need at least one element.
	ErrEmptyCollection = errors.New("collection is empty")

	// ErrInvalidPrefix is returned when a collection is constructed with an
	// empty prefix.
	ErrInvalidPrefix = errors.New("collection prefix cannot be empty")
)

// ErrOutOfRange indicates an index outside [0, length) after negative-index
// normalization. It is reported, never silently clamped.
type ErrOutOfRange struct {
	Index  int64
	Length uint64
}

func (e *ErrOutOfRange) Error() string {
	return fmt.Sprintf("index %d out of range (length %d)", e.Index, e.Length)
}

// ErrInconsistent indicates that tracked state disagrees with stored slots:
// an index entry pointing at a slot that does not hold the expected element,
// or a slot missing inside [0, length). It means storage corruption and must
// not be swallowed or retried.
type ErrInconsistent struct {
	Prefix string
	Detail string
}

func (e *ErrInconsistent) Error() string {
	return fmt.Sprintf("inconsistent collection state at %q: %s", e.Prefix, e.Detail)
}

func inconsistent(prefix, format string, args ...any) error {
	return &ErrInconsistent{Prefix: prefix, Detail: fmt.Sprintf(format, args...)}
}
