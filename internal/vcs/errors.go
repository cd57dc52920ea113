package vcs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotRepository is returned by Open when the path is not inside a
	// git working tree.
	ErrNotRepository = errors.New("not a git repository")
	// ErrTimeout is returned when a git command exceeds its deadline.
	ErrTimeout = errors.New("git command timed out")
)

// CommandError is a failed git invocation.
type CommandError struct {
	Args     []string
	ExitCode int
	Stdout   string
	Stderr   string
	Err      error
}

// Error returns the text git printed. Some failures ("nothing to commit")
// are reported on stdout only, so both streams are included.
func (e *CommandError) Error() string {
	parts := make([]string, 0, 2)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		parts = append(parts, s)
	}
	if s := strings.TrimSpace(e.Stdout); s != "" {
		parts = append(parts, s)
	}
	if len(parts) == 0 {
		return fmt.Sprintf("git %s: exit status %d", strings.Join(e.Args, " "), e.ExitCode)
	}
	return strings.Join(parts, "\n")
}

func (e *CommandError) Unwrap() error {
	return e.Err
}
