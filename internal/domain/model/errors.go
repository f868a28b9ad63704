package model

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCategory is the kind behind every CategoryError.
	ErrInvalidCategory = errors.New("invalid category")
	// ErrNotFound is returned by lookups of unknown ids.
	ErrNotFound = errors.New("not found")
)

// CategoryError reports a category outside the recognized literals.
type CategoryError struct {
	Value string
}

func (e *CategoryError) Error() string {
	return fmt.Sprintf("invalid category %q: must be %q or %q", e.Value, CategoryPutra, CategoryPutri)
}

// Is makes errors.Is(err, ErrInvalidCategory) hold.
func (e *CategoryError) Is(target error) bool {
	return target == ErrInvalidCategory
}
