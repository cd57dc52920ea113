package vcs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

const (
	DefaultTimeout        = 60 * time.Second
	DefaultNetworkTimeout = 5 * time.Minute
)

// Runner executes the git binary in one working tree.
type Runner struct {
	Binary         string
	Dir            string
	Timeout        time.Duration
	NetworkTimeout time.Duration
}

// networkCommands may talk to a remote and get the longer deadline.
var networkCommands = map[string]bool{
	"fetch": true,
	"pull":  true,
	"push":  true,
}

// Run executes git with args and returns stdout. A non-zero exit yields a
// *CommandError; a deadline yields an error wrapping ErrTimeout.
func (r *Runner) Run(ctx context.Context, args ...string) (string, error) {
	stdout, _, err := r.run(ctx, args...)
	return stdout, err
}

// RunOutput is like Run but also returns stderr, where git reports
// progress for fetch.
func (r *Runner) RunOutput(ctx context.Context, args ...string) (string, string, error) {
	return r.run(ctx, args...)
}

func (r *Runner) run(ctx context.Context, args ...string) (string, string, error) {
	timeout := r.timeoutFor(args)
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	binary := r.Binary
	if binary == "" {
		binary = "git"
	}
	cmd := exec.CommandContext(timeoutCtx, binary, args...)
	cmd.Dir = r.Dir
	cmd.Env = append(os.Environ(),
		"GIT_TERMINAL_PROMPT=0",
		"GIT_EDITOR=true",
		"LC_ALL=C",
	)

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	slog.Debug("git command finished",
		"args", strings.Join(args, " "),
		"dir", r.Dir,
		"duration", time.Since(start),
		"error", err,
	)
	if err == nil {
		return stdout.String(), stderr.String(), nil
	}
	if errors.Is(timeoutCtx.Err(), context.DeadlineExceeded) {
		return stdout.String(), stderr.String(),
			fmt.Errorf("git %s exceeded %s: %w", subcommand(args), timeout, ErrTimeout)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return stdout.String(), stderr.String(), ctxErr
	}

	exitCode := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
	}
	return stdout.String(), stderr.String(), &CommandError{
		Args:     append([]string(nil), args...),
		ExitCode: exitCode,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Err:      err,
	}
}

func (r *Runner) timeoutFor(args []string) time.Duration {
	if networkCommands[subcommand(args)] {
		if r.NetworkTimeout > 0 {
			return r.NetworkTimeout
		}
		return DefaultNetworkTimeout
	}
	if r.Timeout > 0 {
		return r.Timeout
	}
	return DefaultTimeout
}

func subcommand(args []string) string {
	for _, arg := range args {
		if !strings.HasPrefix(arg, "-") {
			return arg
		}
	}
	return ""
}
