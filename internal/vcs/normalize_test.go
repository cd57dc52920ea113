package vcs

import (
	"errors"
	"fmt"
	"testing"
)

func TestFormatError_RuleTable(t *testing.T) {
	tests := []struct {
		raw  string
		kind ErrorKind
		want string
	}{
		{"fatal: not a git repository (or any of the parent directories): .git", KindNotRepository, "Not a git repository. Ensure the path points to a valid repo."},
		{"Not a git repository", KindNotRepository, "Not a git repository. Ensure the path points to a valid repo."},
		{"error: pathspec 'nope.txt' did not match any file(s) known to git", KindPathspec, "One or more file paths do not exist or are not in the repo."},
		{"On branch main\nnothing to commit, working tree clean", KindNothingToCommit, "Nothing to commit. Stage changes first."},
		{"no changes added to commit (use \"git add\" and/or \"git commit -a\")", KindNoChangesAdded, "No changes added to commit."},
		{"CONFLICT (content): Merge conflict in a.txt", KindMergeConflict, "Merge conflict. Resolve conflicts manually, then stage and commit."},
		{"error: could not apply 1234567... msg\nhint: after resolving the conflicts", KindMergeConflict, "Merge conflict. Resolve conflicts manually, then stage and commit."},
		{"! [rejected]        main -> main (non-fast-forward)\nerror: failed to push some refs", KindPushRejected, "Push rejected (non-fast-forward). Pull first or use rebase."},
		{"git@host: Permission denied (publickey).", KindAuthFailed, "Authentication failed. Check SSH keys or credentials."},
		{"fatal: Authentication failed for 'https://host/repo.git/'", KindAuthFailed, "Authentication failed. Check SSH keys or credentials."},
		{"fatal: bad revision 'nope'", KindUnknown, "fatal: bad revision 'nope'"},
	}

	for _, tt := range tests {
		kind, got := Classify(errors.New(tt.raw))
		if kind != tt.kind || got != tt.want {
			t.Fatalf("Classify(%q) = (%s, %q), want (%s, %q)", tt.raw, kind, got, tt.kind, tt.want)
		}
	}
}

func TestFormatError_FirstMatchWins(t *testing.T) {
	// Matches both the repository rule and the pathspec rule.
	raw := "not a git repository; pathspec 'x' did not match"
	if got := FormatError(errors.New(raw)); got != "Not a git repository. Ensure the path points to a valid repo." {
		t.Fatalf("expected repository rule to win, got %q", got)
	}

	// Conflict text on a push rejection is reported as a conflict.
	raw = "push rejected: conflict"
	if kind, _ := Classify(errors.New(raw)); kind != KindMergeConflict {
		t.Fatalf("expected merge conflict rule to win, got %s", kind)
	}
}

func TestFormatError_RejectedNeedsPush(t *testing.T) {
	if kind, _ := Classify(errors.New("hook rejected the change")); kind != KindUnknown {
		t.Fatalf("expected unknown without push keyword, got %s", kind)
	}
}

func TestFormatError_Timeout(t *testing.T) {
	err := fmt.Errorf("git fetch exceeded 5m0s: %w", ErrTimeout)
	kind, msg := Classify(err)
	if kind != KindTimeout {
		t.Fatalf("expected timeout kind, got %s", kind)
	}
	if msg == err.Error() {
		t.Fatal("expected normalized timeout message")
	}
}

func TestFormatError_NotRepositorySentinel(t *testing.T) {
	err := fmt.Errorf("%w: /tmp/nowhere", ErrNotRepository)
	if kind, _ := Classify(err); kind != KindNotRepository {
		t.Fatalf("expected not_repository, got %s", kind)
	}
}

func TestFormatError_CommandErrorIncludesStdout(t *testing.T) {
	err := &CommandError{
		Args:     []string{"commit", "-m", "x"},
		ExitCode: 1,
		Stdout:   "On branch feature\nnothing to commit, working tree clean\n",
	}
	if kind, _ := Classify(err); kind != KindNothingToCommit {
		t.Fatalf("expected nothing_to_commit from stdout, got %s", kind)
	}
}

func TestCommandError_FallbackText(t *testing.T) {
	err := &CommandError{Args: []string{"status"}, ExitCode: 128}
	if got := err.Error(); got != "git status: exit status 128" {
		t.Fatalf("unexpected fallback text: %q", got)
	}
}

func TestFormatError_Nil(t *testing.T) {
	if got := FormatError(nil); got != "" {
		t.Fatalf("expected empty text for nil error, got %q", got)
	}
}
