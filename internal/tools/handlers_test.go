package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/MEKXH/gitmind/internal/policy"
	"github.com/MEKXH/gitmind/internal/vcs"
	"github.com/MEKXH/gitmind/internal/vcs/vcstest"
)

const allMutations = "stage,unstage,commit,push,pull,checkout,create_branch,delete_branch,merge,stash,fetch,reset,cherry_pick,revert,tag"

type harness struct {
	reg     *Registry
	repo    *vcstest.Repository
	opened  []string
	records []CallRecord
}

func newHarness(t *testing.T, repo *vcstest.Repository, cfg policy.Config) *harness {
	t.Helper()
	h := &harness{reg: NewRegistry(), repo: repo}
	svc, err := NewService(Options{
		Opener: vcs.OpenerFunc(func(ctx context.Context, path string) (vcs.Repository, error) {
			h.opened = append(h.opened, path)
			return repo, nil
		}),
		Policy: policy.NewEvaluator(cfg),
	})
	if err != nil {
		t.Fatalf("NewService error: %v", err)
	}
	if err := svc.RegisterAll(h.reg); err != nil {
		t.Fatalf("RegisterAll error: %v", err)
	}
	h.reg.Observe(ObserverFunc(func(_ context.Context, rec CallRecord) {
		h.records = append(h.records, rec)
	}))
	return h
}

func (h *harness) call(t *testing.T, name, args string) string {
	t.Helper()
	out, err := h.reg.Execute(context.Background(), name, args)
	if err != nil {
		t.Fatalf("%s returned error: %v", name, err)
	}
	return out
}

func (h *harness) last(t *testing.T) CallRecord {
	t.Helper()
	if len(h.records) == 0 {
		t.Fatal("no call recorded")
	}
	return h.records[len(h.records)-1]
}

func onBranch(branch string) *vcstest.Repository {
	return &vcstest.Repository{
		RootPath: "/work/repo",
		CurrentBranchFunc: func(ctx context.Context) (string, error) {
			return branch, nil
		},
	}
}

func permissive() policy.Config {
	return policy.FromRaw(allMutations, "", "")
}

func TestService_RegistersEveryTool(t *testing.T) {
	h := newHarness(t, onBranch("main"), policy.Default())
	infos, err := h.reg.Infos(context.Background())
	if err != nil {
		t.Fatalf("Infos error: %v", err)
	}
	want := []string{
		"get_status", "get_commit_history", "get_diff", "get_blame", "get_branches",
		"get_remotes", "suggest_commit_message", "stage", "unstage", "commit", "push",
		"pull", "checkout", "create_branch", "delete_branch", "merge", "stash", "fetch",
		"reset", "cherry_pick", "revert", "tag",
	}
	if len(infos) != len(want) {
		t.Fatalf("expected %d tools, got %d", len(want), len(infos))
	}
	for i, info := range infos {
		if info.Name != want[i] {
			t.Fatalf("tool %d: expected %s, got %s", i, want[i], info.Name)
		}
		if info.Desc == "" {
			t.Fatalf("tool %s has no description", info.Name)
		}
		if info.ParamsOneOf == nil {
			t.Fatalf("tool %s has no parameter schema", info.Name)
		}
	}
}

func TestNewService_RequiresOpener(t *testing.T) {
	if _, err := NewService(Options{}); err == nil {
		t.Fatal("expected error without opener")
	}
}

func TestPush_ForceToProtectedDenied(t *testing.T) {
	repo := onBranch("main")
	h := newHarness(t, repo, permissive())

	out := h.call(t, "push", `{"force":true}`)
	if !strings.Contains(out, "protected") || !strings.Contains(out, "main") {
		t.Fatalf("expected protected branch denial, got %q", out)
	}
	if repo.Called("Push") {
		t.Fatal("push must not reach the backend")
	}
	rec := h.last(t)
	if rec.Outcome != OutcomeDenied || rec.Category != CategoryPolicy {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestPush_PlainToProtectedAllowed(t *testing.T) {
	repo := onBranch("main")
	var gotRemote, gotBranch string
	var gotForce bool
	repo.PushFunc = func(ctx context.Context, remote, branch string, force bool) error {
		gotRemote, gotBranch, gotForce = remote, branch, force
		return nil
	}
	h := newHarness(t, repo, permissive())

	out := h.call(t, "push", `{}`)
	if out != "Pushed main to origin." {
		t.Fatalf("unexpected output %q", out)
	}
	if gotRemote != "origin" || gotBranch != "HEAD:refs/heads/main" || gotForce {
		t.Fatalf("unexpected push args: %s %s %v", gotRemote, gotBranch, gotForce)
	}
	if rec := h.last(t); rec.Outcome != OutcomeSucceeded || rec.Branch != "main" {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestPush_ForceToFeatureBranch(t *testing.T) {
	repo := onBranch("main")
	var gotForce bool
	var gotBranch string
	repo.PushFunc = func(ctx context.Context, remote, branch string, force bool) error {
		gotBranch, gotForce = branch, force
		return nil
	}
	h := newHarness(t, repo, permissive())

	out := h.call(t, "push", `{"branch":"feature/foo","force":true}`)
	if out != "Pushed feature/foo to origin." {
		t.Fatalf("unexpected output %q", out)
	}
	if gotBranch != "feature/foo:refs/heads/feature/foo" || !gotForce {
		t.Fatalf("expected forced push of feature/foo, got %s force=%v", gotBranch, gotForce)
	}
}

func TestPush_ForceBlockedInStrictMode(t *testing.T) {
	repo := onBranch("feature/foo")
	h := newHarness(t, repo, policy.FromRaw(allMutations, "", "1"))

	out := h.call(t, "push", `{"force":true}`)
	if !strings.Contains(out, "Force operations are disabled") {
		t.Fatalf("expected strict mode denial, got %q", out)
	}
	if repo.Called("Push") {
		t.Fatal("push must not reach the backend")
	}
}

func TestPush_RemoteProtectedRefNormalized(t *testing.T) {
	repo := onBranch("feature/foo")
	h := newHarness(t, repo, permissive())

	out := h.call(t, "push", `{"branch":"remotes/origin/master","force":true}`)
	if !strings.Contains(out, "protected branch 'master'") {
		t.Fatalf("expected denial naming local branch, got %q", out)
	}
}

func TestPush_DetachedHead(t *testing.T) {
	repo := onBranch("")
	h := newHarness(t, repo, permissive())

	out := h.call(t, "push", `{}`)
	if out != "No branch to push (detached HEAD state)." {
		t.Fatalf("unexpected output %q", out)
	}
	if rec := h.last(t); rec.Outcome != OutcomeDenied || rec.Category != CategoryState {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestPush_RefspecForceToProtectedDenied(t *testing.T) {
	for _, branch := range []string{"+main", "+HEAD:main", "+feature/foo:main", "+HEAD:refs/heads/master", "refs/heads/main"} {
		t.Run(branch, func(t *testing.T) {
			repo := onBranch("main")
			h := newHarness(t, repo, permissive())

			args := fmt.Sprintf(`{"branch":%q}`, branch)
			if !strings.HasPrefix(branch, "+") {
				args = fmt.Sprintf(`{"branch":%q,"force":true}`, branch)
			}
			out := h.call(t, "push", args)
			if !strings.Contains(out, "protected branch") {
				t.Fatalf("expected protected branch denial, got %q", out)
			}
			if repo.Called("Push") {
				t.Fatal("push must not reach the backend")
			}
			if rec := h.last(t); rec.Outcome != OutcomeDenied || rec.Category != CategoryPolicy {
				t.Fatalf("unexpected record: %+v", rec)
			}
		})
	}
}

func TestPush_RefspecPlainToProtectedAllowed(t *testing.T) {
	repo := onBranch("feature/foo")
	var gotBranch string
	var gotForce bool
	repo.PushFunc = func(ctx context.Context, remote, branch string, force bool) error {
		gotBranch, gotForce = branch, force
		return nil
	}
	h := newHarness(t, repo, permissive())

	out := h.call(t, "push", `{"branch":"HEAD:main"}`)
	if out != "Pushed main to origin." {
		t.Fatalf("unexpected output %q", out)
	}
	if gotBranch != "HEAD:refs/heads/main" || gotForce {
		t.Fatalf("unexpected push args: %s force=%v", gotBranch, gotForce)
	}
	if rec := h.last(t); rec.Outcome != OutcomeSucceeded || rec.Branch != "main" {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestPush_PlusRefspecForcesFeatureBranch(t *testing.T) {
	repo := onBranch("main")
	var gotBranch string
	var gotForce bool
	repo.PushFunc = func(ctx context.Context, remote, branch string, force bool) error {
		gotBranch, gotForce = branch, force
		return nil
	}
	h := newHarness(t, repo, permissive())

	out := h.call(t, "push", `{"branch":"+feature/foo"}`)
	if out != "Pushed feature/foo to origin." {
		t.Fatalf("unexpected output %q", out)
	}
	if gotBranch != "feature/foo:refs/heads/feature/foo" || !gotForce {
		t.Fatalf("expected forced push of feature/foo without '+', got %s force=%v", gotBranch, gotForce)
	}
}

func TestPush_HeadResolvesToCurrentBranch(t *testing.T) {
	repo := onBranch("main")
	h := newHarness(t, repo, permissive())

	out := h.call(t, "push", `{"branch":"+HEAD"}`)
	if !strings.Contains(out, "protected branch 'main'") {
		t.Fatalf("expected denial naming current branch, got %q", out)
	}
	if repo.Called("Push") {
		t.Fatal("push must not reach the backend")
	}
}

func TestPush_ShortDestinationNeverReachesBackend(t *testing.T) {
	cases := []string{
		`{"branch":"+heads/main"}`,
		`{"branch":"+HEAD:heads/main"}`,
		`{"branch":"heads/main","force":true}`,
		`{"branch":"HEAD:heads/main","force":true}`,
		`{"branch":"heads/main"}`,
	}
	for _, args := range cases {
		t.Run(args, func(t *testing.T) {
			repo := onBranch("main")
			h := newHarness(t, repo, permissive())

			_, err := h.reg.Execute(context.Background(), "push", args)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if repo.Called("Push") {
				t.Fatal("push must not reach the backend")
			}
		})
	}
}

func TestPush_BackendReceivesQualifiedDestination(t *testing.T) {
	tests := []struct {
		current string
		args    string
		want    string
		force   bool
	}{
		{current: "feature/foo", args: `{"force":true}`, want: "HEAD:refs/heads/feature/foo", force: true},
		{current: "feature/foo", args: `{"branch":"+HEAD"}`, want: "HEAD:refs/heads/feature/foo", force: true},
		{current: "main", args: `{"branch":"+topic:feature/foo"}`, want: "topic:refs/heads/feature/foo", force: true},
		{current: "main", args: `{"branch":"remotes/origin/release"}`, want: "remotes/origin/release:refs/heads/release"},
		{current: "remotes/origin/feature/foo", args: `{}`, want: "HEAD:refs/heads/feature/foo"},
	}
	for _, tt := range tests {
		t.Run(tt.args, func(t *testing.T) {
			repo := onBranch(tt.current)
			var gotBranch string
			var gotForce bool
			repo.PushFunc = func(ctx context.Context, remote, branch string, force bool) error {
				gotBranch, gotForce = branch, force
				return nil
			}
			h := newHarness(t, repo, permissive())

			h.call(t, "push", tt.args)
			if gotBranch != tt.want || gotForce != tt.force {
				t.Fatalf("expected %s force=%v, got %s force=%v", tt.want, tt.force, gotBranch, gotForce)
			}
			if rec := h.last(t); rec.Outcome != OutcomeSucceeded || "refs/heads/"+rec.Branch != tt.want[strings.Index(tt.want, ":")+1:] {
				t.Fatalf("guarded branch and pushed ref differ: %+v vs %s", rec, tt.want)
			}
		})
	}
}

func TestPush_PlusRefspecBlockedInStrictMode(t *testing.T) {
	for _, branch := range []string{"+feature/foo", "+HEAD:feature/foo"} {
		t.Run(branch, func(t *testing.T) {
			repo := onBranch("feature/foo")
			h := newHarness(t, repo, policy.FromRaw(allMutations, "", "1"))

			out := h.call(t, "push", fmt.Sprintf(`{"branch":%q}`, branch))
			if !strings.Contains(out, "Force operations are disabled") {
				t.Fatalf("expected strict mode denial, got %q", out)
			}
			if repo.Called("Push") {
				t.Fatal("push must not reach the backend")
			}
		})
	}
}

func TestPush_InvalidRefspecRejected(t *testing.T) {
	for _, branch := range []string{":main", "+:main", "main:", "+", "refs/heads/*:refs/heads/*", "a:b:c", "+-f"} {
		t.Run(branch, func(t *testing.T) {
			repo := onBranch("feature/foo")
			h := newHarness(t, repo, permissive())

			_, err := h.reg.Execute(context.Background(), "push", fmt.Sprintf(`{"branch":%q}`, branch))
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if len(h.opened) != 0 || repo.Called("Push") {
				t.Fatal("invalid refspec must not reach the repository")
			}
			if rec := h.last(t); rec.Outcome != OutcomeRejected {
				t.Fatalf("expected rejected record, got %+v", rec)
			}
		})
	}
}

func TestCherryPick_DetachedHeadDenied(t *testing.T) {
	repo := onBranch("")
	h := newHarness(t, repo, permissive())

	out := h.call(t, "cherry_pick", `{"commit":"abc1234"}`)
	if out != "Cannot cherry-pick in detached HEAD state." {
		t.Fatalf("unexpected output %q", out)
	}
	if repo.Called("CherryPick") {
		t.Fatal("cherry-pick must not reach the backend")
	}
}

func TestCherryPick_AbortsOnFailure(t *testing.T) {
	repo := onBranch("feature/foo")
	repo.CherryPickFunc = func(ctx context.Context, commit string) error {
		return &vcs.CommandError{Args: []string{"cherry-pick", commit}, ExitCode: 1, Stderr: "error: could not apply abc1234"}
	}
	h := newHarness(t, repo, permissive())

	out := h.call(t, "cherry_pick", `{"commit":"abc1234"}`)
	if !strings.HasPrefix(out, "Error: ") {
		t.Fatalf("expected error text, got %q", out)
	}
	if !repo.Called("AbortCherryPick") {
		t.Fatal("expected cherry-pick abort after failure")
	}
}

func TestMerge_ReportsConflicts(t *testing.T) {
	repo := onBranch("feature/foo")
	repo.MergeFunc = func(ctx context.Context, branch string) (vcs.MergeResult, error) {
		return vcs.MergeResult{
			Failed: true,
			Conflicts: []vcs.Conflict{
				{File: "a.txt", Reason: "content"},
				{File: "b.txt", Reason: "modify/delete"},
			},
		}, nil
	}
	h := newHarness(t, repo, permissive())

	out := h.call(t, "merge", `{"branch":"topic"}`)
	want := "Merge failed (conflicts). Conflicting files: a.txt (content), b.txt (modify/delete)"
	if out != want {
		t.Fatalf("expected %q, got %q", want, out)
	}
	if repo.Called("AbortMerge") {
		t.Fatal("conflicted merge must be left for manual resolution")
	}
	if rec := h.last(t); rec.Outcome != OutcomeFailed {
		t.Fatalf("expected failed outcome, got %+v", rec)
	}
}

func TestMerge_AbortsOnBackendError(t *testing.T) {
	repo := onBranch("feature/foo")
	repo.MergeFunc = func(ctx context.Context, branch string) (vcs.MergeResult, error) {
		return vcs.MergeResult{}, &vcs.CommandError{ExitCode: 128, Stderr: "merge: topic - not something we can merge"}
	}
	repo.AbortMergeFunc = func(ctx context.Context) error {
		return errors.New("There is no merge to abort")
	}
	h := newHarness(t, repo, permissive())

	out := h.call(t, "merge", `{"branch":"topic"}`)
	if out != "Error: merge: topic - not something we can merge" {
		t.Fatalf("unexpected output %q", out)
	}
	if !repo.Called("AbortMerge") {
		t.Fatal("expected merge abort after failure")
	}
}

func TestMerge_IntoProtectedDenied(t *testing.T) {
	repo := onBranch("main")
	h := newHarness(t, repo, permissive())

	out := h.call(t, "merge", `{"branch":"feature/foo"}`)
	if !strings.Contains(out, "Cannot merge into protected branch 'main'") {
		t.Fatalf("unexpected output %q", out)
	}
	if repo.Called("Merge") {
		t.Fatal("merge must not reach the backend")
	}
}

func TestMerge_Success(t *testing.T) {
	repo := onBranch("develop")
	repo.MergeFunc = func(ctx context.Context, branch string) (vcs.MergeResult, error) {
		return vcs.MergeResult{
			Merged:  []string{"a.go"},
			Summary: vcs.ChangeSummary{Changes: 2, Insertions: 10, Deletions: 3},
		}, nil
	}
	h := newHarness(t, repo, permissive())

	out := h.call(t, "merge", `{"branch":"remotes/origin/topic"}`)
	want := "Merged remotes/origin/topic into develop.\n  Files merged: 1\n  Files changed: 2\n  Insertions: 10\n  Deletions: 3"
	if out != want {
		t.Fatalf("expected %q, got %q", want, out)
	}
}

func TestAllowList_DeniesBeforeBackend(t *testing.T) {
	repo := onBranch("feature/foo")
	h := newHarness(t, repo, policy.Default())

	out := h.call(t, "push", `{}`)
	if !strings.Contains(out, "Operation 'push' is not in allowed actions") {
		t.Fatalf("unexpected output %q", out)
	}
	if len(h.opened) != 0 {
		t.Fatalf("repository must not be opened on denial, opened %v", h.opened)
	}
	if calls := repo.Calls(); len(calls) != 0 {
		t.Fatalf("expected no backend calls, got %v", calls)
	}
}

func TestReadOnlyTools_SkipAllowList(t *testing.T) {
	repo := onBranch("main")
	repo.LogFunc = func(ctx context.Context, limit int) ([]vcs.Commit, error) {
		return nil, nil
	}
	h := newHarness(t, repo, policy.FromRaw("stage", "", ""))

	if out := h.call(t, "get_commit_history", `{}`); out != "No commits found." {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestValidation_ReturnsError(t *testing.T) {
	repo := onBranch("feature/foo")
	h := newHarness(t, repo, permissive())

	cases := []struct {
		tool string
		args string
	}{
		{"commit", `{"message":"   "}`},
		{"stage", `{"files":[]}`},
		{"get_commit_history", `{"limit":0}`},
		{"get_blame", `{}`},
		{"reset", `{"ref":"HEAD","mode":"hard"}`},
		{"reset", `{"ref":"--hard"}`},
		{"checkout", `{"target":"-b evil"}`},
		{"stash", `{"action":"drop"}`},
		{"tag", `{"action":"create"}`},
	}
	for _, tc := range cases {
		_, err := h.reg.Execute(context.Background(), tc.tool, tc.args)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("%s %s: expected ValidationError, got %v", tc.tool, tc.args, err)
		}
		if rec := h.last(t); rec.Outcome != OutcomeRejected {
			t.Fatalf("%s: expected rejected outcome, got %+v", tc.tool, rec)
		}
	}
	if len(h.opened) != 0 {
		t.Fatalf("validation failures must not open the repository, opened %v", h.opened)
	}
}

func TestStage_AcceptsStringOrArray(t *testing.T) {
	repo := onBranch("feature/foo")
	var got [][]string
	repo.AddFunc = func(ctx context.Context, paths []string) error {
		got = append(got, paths)
		return nil
	}
	h := newHarness(t, repo, policy.Default())

	if out := h.call(t, "stage", `{"files":["a.go","b.go"]}`); out != "Staged a.go, b.go." {
		t.Fatalf("unexpected output %q", out)
	}
	if out := h.call(t, "stage", `{"files":"."}`); out != "Staged .." {
		t.Fatalf("unexpected output %q", out)
	}
	if len(got) != 2 || len(got[0]) != 2 || got[1][0] != "." {
		t.Fatalf("unexpected add calls %v", got)
	}
}

func TestCommit_Flow(t *testing.T) {
	t.Run("protected branch", func(t *testing.T) {
		repo := onBranch("master")
		h := newHarness(t, repo, policy.Default())
		out := h.call(t, "commit", `{"message":"feat: x"}`)
		if !strings.Contains(out, "Cannot commit directly to protected branch 'master'") {
			t.Fatalf("unexpected output %q", out)
		}
		if repo.Called("Commit") {
			t.Fatal("commit must not reach the backend")
		}
	})

	t.Run("detached", func(t *testing.T) {
		h := newHarness(t, onBranch(""), policy.Default())
		if out := h.call(t, "commit", `{"message":"feat: x"}`); out != "Cannot commit in detached HEAD state." {
			t.Fatalf("unexpected output %q", out)
		}
	})

	t.Run("feature branch", func(t *testing.T) {
		repo := onBranch("feature/foo")
		repo.CommitFunc = func(ctx context.Context, message string) (string, error) {
			return "abc1234", nil
		}
		h := newHarness(t, repo, policy.Default())
		if out := h.call(t, "commit", `{"message":"feat: x"}`); out != "Committed: abc1234\nfeat: x" {
			t.Fatalf("unexpected output %q", out)
		}
	})

	t.Run("nothing to commit", func(t *testing.T) {
		repo := onBranch("feature/foo")
		repo.CommitFunc = func(ctx context.Context, message string) (string, error) {
			return "", &vcs.CommandError{ExitCode: 1, Stdout: "On branch feature/foo\nnothing to commit, working tree clean"}
		}
		h := newHarness(t, repo, policy.Default())
		if out := h.call(t, "commit", `{"message":"feat: x"}`); out != "Error: Nothing to commit. Stage changes first." {
			t.Fatalf("unexpected output %q", out)
		}
		if rec := h.last(t); rec.Outcome != OutcomeFailed || rec.Category != CategoryBackend {
			t.Fatalf("unexpected record: %+v", rec)
		}
	})
}

func TestDeleteBranch_Guards(t *testing.T) {
	t.Run("protected remote ref", func(t *testing.T) {
		repo := onBranch("feature/foo")
		h := newHarness(t, repo, permissive())
		out := h.call(t, "delete_branch", `{"branch":"remotes/origin/main"}`)
		if !strings.Contains(out, "Cannot delete protected branch 'main'") {
			t.Fatalf("unexpected output %q", out)
		}
	})

	t.Run("current branch", func(t *testing.T) {
		repo := onBranch("feature/foo")
		h := newHarness(t, repo, permissive())
		out := h.call(t, "delete_branch", `{"branch":"feature/foo"}`)
		if out != "Cannot delete current branch 'feature/foo'. Checkout another branch first." {
			t.Fatalf("unexpected output %q", out)
		}
		if repo.Called("DeleteBranch") {
			t.Fatal("delete must not reach the backend")
		}
	})

	t.Run("current branch written differently", func(t *testing.T) {
		for _, branch := range []string{" feature/foo ", "remotes/origin/feature/foo", "feature/foo\t"} {
			repo := onBranch("feature/foo")
			h := newHarness(t, repo, permissive())
			out := h.call(t, "delete_branch", fmt.Sprintf(`{"branch":%q,"force":true}`, branch))
			if out != "Cannot delete current branch 'feature/foo'. Checkout another branch first." {
				t.Fatalf("%q: unexpected output %q", branch, out)
			}
			if repo.Called("DeleteBranch") {
				t.Fatalf("%q: delete must not reach the backend", branch)
			}
			if rec := h.last(t); rec.Outcome != OutcomeDenied || rec.Category != CategoryState {
				t.Fatalf("%q: unexpected record: %+v", branch, rec)
			}
		}
	})

	t.Run("trimmed name reaches backend", func(t *testing.T) {
		repo := onBranch("develop")
		var gotName string
		repo.DeleteBranchFunc = func(ctx context.Context, name string, force bool) error {
			gotName = name
			return nil
		}
		h := newHarness(t, repo, permissive())
		if out := h.call(t, "delete_branch", `{"branch":"  old "}`); out != "Deleted branch: old" {
			t.Fatalf("unexpected output %q", out)
		}
		if gotName != "old" {
			t.Fatalf("expected trimmed name, got %q", gotName)
		}
	})

	t.Run("force in strict mode", func(t *testing.T) {
		repo := onBranch("develop")
		h := newHarness(t, repo, policy.FromRaw(allMutations, "", "true"))
		out := h.call(t, "delete_branch", `{"branch":"old","force":true}`)
		if !strings.Contains(out, "Force operations are disabled") {
			t.Fatalf("unexpected output %q", out)
		}
	})

	t.Run("deleted", func(t *testing.T) {
		repo := onBranch("develop")
		var gotForce bool
		repo.DeleteBranchFunc = func(ctx context.Context, name string, force bool) error {
			gotForce = force
			return nil
		}
		h := newHarness(t, repo, permissive())
		if out := h.call(t, "delete_branch", `{"branch":"old","force":true}`); out != "Deleted branch: old" {
			t.Fatalf("unexpected output %q", out)
		}
		if !gotForce {
			t.Fatal("expected force delete")
		}
	})
}

func TestRevert_DoesNotAbort(t *testing.T) {
	repo := onBranch("feature/foo")
	repo.RevertFunc = func(ctx context.Context, commit string) error {
		return &vcs.CommandError{ExitCode: 1, Stderr: "CONFLICT (content): Merge conflict in a.txt"}
	}
	h := newHarness(t, repo, permissive())

	out := h.call(t, "revert", `{"commit":"HEAD~1"}`)
	if out != "Error: Merge conflict. Resolve conflicts manually, then stage and commit." {
		t.Fatalf("unexpected output %q", out)
	}
	for _, c := range repo.Calls() {
		if strings.HasPrefix(c, "Abort") {
			t.Fatalf("revert must not abort, saw %s", c)
		}
	}
}

func TestOpenFailure_NotRepository(t *testing.T) {
	reg := NewRegistry()
	svc, err := NewService(Options{
		Opener: vcs.OpenerFunc(func(ctx context.Context, path string) (vcs.Repository, error) {
			return nil, fmt.Errorf("open %s: %w", path, vcs.ErrNotRepository)
		}),
		Policy: policy.NewEvaluator(policy.Default()),
	})
	if err != nil {
		t.Fatalf("NewService error: %v", err)
	}
	if err := svc.RegisterAll(reg); err != nil {
		t.Fatalf("RegisterAll error: %v", err)
	}
	var rec CallRecord
	reg.Observe(ObserverFunc(func(_ context.Context, r CallRecord) { rec = r }))

	out, err := reg.Execute(context.Background(), "get_status", `{"repoPath":"/tmp/nope"}`)
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if out != "Error: Not a git repository. Ensure the path points to a valid repo." {
		t.Fatalf("unexpected output %q", out)
	}
	if rec.Outcome != OutcomeFailed || rec.Category != CategoryRepository {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestGetStatus_Render(t *testing.T) {
	repo := onBranch("main")
	repo.StatusFunc = func(ctx context.Context) (vcs.Status, error) {
		return vcs.Status{
			Branch:    "main",
			Staged:    []string{"a.go"},
			Modified:  []string{"b.go"},
			Untracked: []string{"c.go"},
		}, nil
	}
	h := newHarness(t, repo, policy.Default())

	out := h.call(t, "get_status", `{}`)
	want := "Current branch: main\n\nStaged changes:\n  + a.go\n\nModified (not staged):\n  M b.go\n\nUntracked:\n  ? c.go"
	if out != want {
		t.Fatalf("expected %q, got %q", want, out)
	}
}

func TestGetStatus_Clean(t *testing.T) {
	repo := onBranch("main")
	repo.StatusFunc = func(ctx context.Context) (vcs.Status, error) {
		return vcs.Status{Branch: "main"}, nil
	}
	h := newHarness(t, repo, policy.Default())

	if out := h.call(t, "get_status", `{}`); out != "Current branch: main\nWorking tree clean. No changes." {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestGetBranches_Render(t *testing.T) {
	repo := onBranch("main")
	repo.BranchesFunc = func(ctx context.Context) ([]vcs.Branch, error) {
		return []vcs.Branch{
			{Name: "feature/foo"},
			{Name: "main", Current: true},
			{Name: "origin/main", Remote: true},
		}, nil
	}
	h := newHarness(t, repo, policy.Default())

	out := h.call(t, "get_branches", `{}`)
	want := "Local branches:\n   feature/foo\n * main\n\nRemote branches:\n   origin/main"
	if out != want {
		t.Fatalf("expected %q, got %q", want, out)
	}
}

func TestStash_Actions(t *testing.T) {
	repo := onBranch("feature/foo")
	repo.StashListFunc = func(ctx context.Context) ([]vcs.StashEntry, error) {
		return []vcs.StashEntry{
			{Hash: "0123456789abcdef", Message: "WIP on feature/foo: tweak"},
			{Hash: "fedcba9876543210"},
		}, nil
	}
	repo.StashPushFunc = func(ctx context.Context, message string) (bool, error) {
		return false, nil
	}
	var poppedRef string
	repo.StashPopFunc = func(ctx context.Context, ref string) error {
		poppedRef = ref
		return nil
	}
	h := newHarness(t, repo, permissive())

	list := h.call(t, "stash", `{"action":"list"}`)
	wantList := "Stashes (2):\n  stash@{0}: 0123456 WIP on feature/foo: tweak\n  stash@{1}: fedcba9 (no message)"
	if list != wantList {
		t.Fatalf("expected %q, got %q", wantList, list)
	}
	if out := h.call(t, "stash", `{"action":"push","message":"wip"}`); out != "No local changes to save." {
		t.Fatalf("unexpected output %q", out)
	}
	if out := h.call(t, "stash", `{"action":"pop"}`); out != "Applied and removed stash@{0}." {
		t.Fatalf("unexpected output %q", out)
	}
	if poppedRef != "stash@{0}" {
		t.Fatalf("unexpected pop ref %q", poppedRef)
	}
}

func TestTag_Actions(t *testing.T) {
	repo := onBranch("main")
	repo.TagsFunc = func(ctx context.Context) ([]string, error) {
		return []string{"v1.0.0", "v1.1.0"}, nil
	}
	var gotName, gotMessage string
	repo.CreateTagFunc = func(ctx context.Context, name, message string) error {
		gotName, gotMessage = name, message
		return nil
	}
	h := newHarness(t, repo, permissive())

	if out := h.call(t, "tag", `{"action":"list"}`); out != "Tags (2):\n  v1.0.0\n  v1.1.0" {
		t.Fatalf("unexpected output %q", out)
	}
	if out := h.call(t, "tag", `{"action":"create","name":"v2.0.0","message":"release"}`); out != "Created annotated tag 'v2.0.0' with message." {
		t.Fatalf("unexpected output %q", out)
	}
	if gotName != "v2.0.0" || gotMessage != "release" {
		t.Fatalf("unexpected tag args %q %q", gotName, gotMessage)
	}
	if out := h.call(t, "tag", `{"action":"create","name":"v2.0.1"}`); out != "Created lightweight tag 'v2.0.1'." {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestReset_DefaultsToMixed(t *testing.T) {
	repo := onBranch("feature/foo")
	var gotMode vcs.ResetMode
	repo.ResetFunc = func(ctx context.Context, mode vcs.ResetMode, ref string) error {
		gotMode = mode
		return nil
	}
	h := newHarness(t, repo, permissive())

	if out := h.call(t, "reset", `{"ref":"HEAD~1"}`); out != "Reset (mixed) to HEAD~1." {
		t.Fatalf("unexpected output %q", out)
	}
	if gotMode != vcs.ResetMixed {
		t.Fatalf("expected mixed reset, got %s", gotMode)
	}
}

func TestPullAndFetch_Summaries(t *testing.T) {
	repo := onBranch("feature/foo")
	repo.PullFunc = func(ctx context.Context, remote, branch string) (vcs.ChangeSummary, error) {
		if branch != "feature/foo" {
			t.Errorf("expected pull of current branch, got %q", branch)
		}
		return vcs.ChangeSummary{Changes: 1, Insertions: 4}, nil
	}
	repo.FetchFunc = func(ctx context.Context, remote string) (vcs.FetchResult, error) {
		return vcs.FetchResult{Updated: []string{"origin/main"}, Deleted: []string{"origin/old"}}, nil
	}
	h := newHarness(t, repo, permissive())

	if out := h.call(t, "pull", `{}`); out != "Pull complete.\n  Files changed: 1\n  Insertions: 4" {
		t.Fatalf("unexpected output %q", out)
	}
	if out := h.call(t, "fetch", `{}`); out != "Fetch complete.\n  Updated: origin/main\n  Deleted: 1 ref(s)" {
		t.Fatalf("unexpected output %q", out)
	}
}

type stubDrafter struct {
	files []vcs.FileStat
	out   string
	err   error
}

func (d *stubDrafter) DraftCommitMessage(ctx context.Context, stat string, files []vcs.FileStat, patch string) (string, error) {
	d.files = files
	return d.out, d.err
}

func TestSuggestCommitMessage(t *testing.T) {
	const patch = "diff --git a/a.go b/a.go\n--- a/a.go\n+++ b/a.go\n@@ -1,1 +1,2 @@\n line\n+added\n"
	newRepo := func() *vcstest.Repository {
		repo := onBranch("feature/foo")
		repo.StagedStatFunc = func(ctx context.Context) (string, error) {
			return " a.go | 1 +\n 1 file changed, 1 insertion(+)\n", nil
		}
		repo.StagedPatchFunc = func(ctx context.Context) (string, error) {
			return patch, nil
		}
		return repo
	}
	newSvc := func(t *testing.T, repo vcs.Repository, d CommitMessageDrafter) *Registry {
		t.Helper()
		reg := NewRegistry()
		svc, err := NewService(Options{
			Opener: vcs.OpenerFunc(func(ctx context.Context, path string) (vcs.Repository, error) {
				return repo, nil
			}),
			Policy:  policy.NewEvaluator(policy.Default()),
			Drafter: d,
		})
		if err != nil {
			t.Fatalf("NewService error: %v", err)
		}
		if err := svc.RegisterAll(reg); err != nil {
			t.Fatalf("RegisterAll error: %v", err)
		}
		return reg
	}

	t.Run("with drafter", func(t *testing.T) {
		d := &stubDrafter{out: "feat: add line\n"}
		reg := newSvc(t, newRepo(), d)
		out, err := reg.Execute(context.Background(), "suggest_commit_message", `{}`)
		if err != nil {
			t.Fatalf("Execute error: %v", err)
		}
		if !strings.HasSuffix(out, "\n\nSuggested commit message:\nfeat: add line") {
			t.Fatalf("unexpected output %q", out)
		}
		if len(d.files) != 1 || d.files[0].Path != "a.go" || d.files[0].Insertions != 1 {
			t.Fatalf("unexpected file stats %+v", d.files)
		}
	})

	t.Run("drafter failure falls back to stat", func(t *testing.T) {
		reg := newSvc(t, newRepo(), &stubDrafter{err: errors.New("provider down")})
		out, err := reg.Execute(context.Background(), "suggest_commit_message", `{}`)
		if err != nil {
			t.Fatalf("Execute error: %v", err)
		}
		if strings.Contains(out, "Suggested") || !strings.Contains(out, "1 file changed") {
			t.Fatalf("unexpected output %q", out)
		}
	})

	t.Run("nothing staged", func(t *testing.T) {
		repo := onBranch("feature/foo")
		reg := newSvc(t, repo, nil)
		out, err := reg.Execute(context.Background(), "suggest_commit_message", `{}`)
		if err != nil {
			t.Fatalf("Execute error: %v", err)
		}
		if out != "No staged changes. Use 'git add' to stage files first." {
			t.Fatalf("unexpected output %q", out)
		}
	})
}
