package concat

import (
	"errors"
	"fmt"

	"github.com/liuxd6825/smconcat/lib/sourcenode"
)

var (
	// ErrInvalidMapInput is returned for a fragment map of an unsupported
	// representation, or one that cannot be decoded.
	ErrInvalidMapInput = errors.New("invalid source map input")

	// ErrMapContentMismatch is returned when a fragment map describes
	// positions that do not exist in the fragment content.
	ErrMapContentMismatch = sourcenode.ErrMapContentMismatch

	// ErrInvalidPath is returned for a map path or sources root that cannot
	// be related to each other.
	ErrInvalidPath = errors.New("invalid path")
)

// FragmentError reports which fragment made Concat fail.
type FragmentError struct {
	Index int
	Err   error
}

func (e *FragmentError) Error() string {
	return fmt.Sprintf("fragment #%d: %s", e.Index, e.Err)
}

// Unwrap returns the underlying error.
func (e *FragmentError) Unwrap() error {
	return e.Err
}
