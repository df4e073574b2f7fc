package repository

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no record matches the identifier.
var ErrNotFound = errors.New("record not found")

const (
	FieldEmail    = "email"
	FieldUsername = "username"
)

// DuplicateError reports a write rejected by a store-level uniqueness constraint.
type DuplicateError struct {
	Field string
	Err   error
}

func (e *DuplicateError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("duplicate %s: %v", e.Field, e.Err)
	}
	return "duplicate " + e.Field
}

func (e *DuplicateError) Unwrap() error {
	return e.Err
}

// AsDuplicate extracts a *DuplicateError from err's chain.
func AsDuplicate(err error) (*DuplicateError, bool) {
	var dup *DuplicateError
	if errors.As(err, &dup) {
		return dup, true
	}
	return nil, false
}
