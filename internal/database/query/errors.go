package query

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidValue marks input that cannot be bound to its column.
var ErrInvalidValue = errors.New("invalid value")

// ResolutionError reports a table, key or column that none of its candidate
// names matched. It unwraps to the catalog sentinel.
type ResolutionError struct {
	Entity     string
	Role       string
	Candidates []string
	Err        error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("%s: cannot resolve %s (tried %s): %v",
		e.Entity, e.Role, strings.Join(e.Candidates, ", "), e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

func invalid(field, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidValue, field, fmt.Sprintf(format, args...))
}
