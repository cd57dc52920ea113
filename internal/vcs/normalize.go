package vcs

import (
	"errors"
	"strings"
)

// ErrorKind names the rule that matched a backend failure.
type ErrorKind string

const (
	KindTimeout         ErrorKind = "timeout"
	KindNotRepository   ErrorKind = "not_repository"
	KindPathspec        ErrorKind = "pathspec"
	KindNothingToCommit ErrorKind = "nothing_to_commit"
	KindNoChangesAdded  ErrorKind = "no_changes_added"
	KindMergeConflict   ErrorKind = "merge_conflict"
	KindPushRejected    ErrorKind = "push_rejected"
	KindAuthFailed      ErrorKind = "auth_failed"
	KindUnknown         ErrorKind = "unknown"
)

type errorRule struct {
	kind    ErrorKind
	match   func(err error, lower string) bool
	message string
}

// errorRules is ordered; the first matching rule wins.
var errorRules = []errorRule{
	{
		kind:    KindTimeout,
		match:   func(err error, _ string) bool { return errors.Is(err, ErrTimeout) },
		message: "Git command timed out. The repository may be locked or the remote unreachable.",
	},
	{
		kind:    KindNotRepository,
		match:   containsAll("not a git repository"),
		message: "Not a git repository. Ensure the path points to a valid repo.",
	},
	{
		kind:    KindPathspec,
		match:   containsAll("pathspec", "did not match"),
		message: "One or more file paths do not exist or are not in the repo.",
	},
	{
		kind:    KindNothingToCommit,
		match:   containsAll("nothing to commit"),
		message: "Nothing to commit. Stage changes first.",
	},
	{
		kind:    KindNoChangesAdded,
		match:   containsAll("no changes added to commit"),
		message: "No changes added to commit.",
	},
	{
		kind:    KindMergeConflict,
		match:   containsAny("conflict"),
		message: "Merge conflict. Resolve conflicts manually, then stage and commit.",
	},
	{
		kind:    KindPushRejected,
		match:   containsAll("rejected", "push"),
		message: "Push rejected (non-fast-forward). Pull first or use rebase.",
	},
	{
		kind:    KindAuthFailed,
		match:   containsAny("permission denied", "authentication failed"),
		message: "Authentication failed. Check SSH keys or credentials.",
	},
}

func containsAll(subs ...string) func(error, string) bool {
	return func(_ error, lower string) bool {
		for _, s := range subs {
			if !strings.Contains(lower, s) {
				return false
			}
		}
		return true
	}
}

func containsAny(subs ...string) func(error, string) bool {
	return func(_ error, lower string) bool {
		for _, s := range subs {
			if strings.Contains(lower, s) {
				return true
			}
		}
		return false
	}
}

// Classify maps a backend failure to a stable message. Matching is
// case-insensitive over the error text; unmatched errors keep their raw
// text and KindUnknown.
func Classify(err error) (ErrorKind, string) {
	if err == nil {
		return "", ""
	}
	raw := strings.TrimSpace(err.Error())
	lower := strings.ToLower(raw)
	for _, rule := range errorRules {
		if rule.match(err, lower) {
			return rule.kind, rule.message
		}
	}
	return KindUnknown, raw
}

// FormatError returns the user-facing text for err.
func FormatError(err error) string {
	_, msg := Classify(err)
	return msg
}
