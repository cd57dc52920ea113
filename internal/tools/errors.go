package tools

import (
	"errors"
	"fmt"
)

// ErrToolNotFound is returned by Registry.Execute for unknown tool names.
var ErrToolNotFound = errors.New("tool not found")

// ValidationError reports malformed caller input. It is the only error a
// handler returns; every other failure is rendered into the response text.
type ValidationError struct {
	Field   string
	Problem string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid arguments: " + e.Problem
	}
	return fmt.Sprintf("invalid argument %q: %s", e.Field, e.Problem)
}

func invalid(field, problem string) error {
	return &ValidationError{Field: field, Problem: problem}
}
