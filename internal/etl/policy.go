package etl

import (
	"errors"
	"fmt"
)

// ErrorPolicy decides what happens when a file or record cannot be loaded.
type ErrorPolicy string

const (
	// FailFast stops the run at the first malformed record or failed file.
	// The failing file's transaction is rolled back; earlier files stay committed.
	FailFast ErrorPolicy = "fail-fast"

	// Skip logs malformed records and failed files and continues with the rest.
	Skip ErrorPolicy = "skip"
)

// ErrInvalidPolicy is returned by ParseErrorPolicy for unknown names.
var ErrInvalidPolicy = errors.New("invalid error policy")

// ParseErrorPolicy parses a policy name. The empty string means FailFast.
func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch ErrorPolicy(s) {
	case "", FailFast:
		return FailFast, nil
	case Skip:
		return Skip, nil
	default:
		return "", fmt.Errorf("%w: %q (want %q or %q)", ErrInvalidPolicy, s, FailFast, Skip)
	}
}
