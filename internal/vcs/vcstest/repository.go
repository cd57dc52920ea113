// Package vcstest provides an in-memory vcs.Repository for handler tests.
package vcstest

import (
	"context"
	"sync"

	"github.com/MEKXH/gitmind/internal/vcs"
)

// Repository is a vcs.Repository for tests. Each method calls the matching
// Func field when set and otherwise returns a zero result. Every call is
// recorded by method name.
type Repository struct {
	RootPath string

	CurrentBranchFunc   func(ctx context.Context) (string, error)
	StatusFunc          func(ctx context.Context) (vcs.Status, error)
	LogFunc             func(ctx context.Context, limit int) ([]vcs.Commit, error)
	DiffFunc            func(ctx context.Context, opts vcs.DiffOptions) (string, error)
	StagedStatFunc      func(ctx context.Context) (string, error)
	StagedPatchFunc     func(ctx context.Context) (string, error)
	BlameFunc           func(ctx context.Context, path string) (string, error)
	BranchesFunc        func(ctx context.Context) ([]vcs.Branch, error)
	RemotesFunc         func(ctx context.Context) ([]vcs.Remote, error)
	AddFunc             func(ctx context.Context, paths []string) error
	UnstageFunc         func(ctx context.Context, paths []string) error
	CommitFunc          func(ctx context.Context, message string) (string, error)
	PushFunc            func(ctx context.Context, remote, branch string, force bool) error
	PullFunc            func(ctx context.Context, remote, branch string) (vcs.ChangeSummary, error)
	FetchFunc           func(ctx context.Context, remote string) (vcs.FetchResult, error)
	CheckoutFunc        func(ctx context.Context, target string) error
	CreateBranchFunc    func(ctx context.Context, name string, checkout bool) error
	DeleteBranchFunc    func(ctx context.Context, name string, force bool) error
	MergeFunc           func(ctx context.Context, branch string) (vcs.MergeResult, error)
	AbortMergeFunc      func(ctx context.Context) error
	CherryPickFunc      func(ctx context.Context, commit string) error
	AbortCherryPickFunc func(ctx context.Context) error
	RevertFunc          func(ctx context.Context, commit string) error
	StashPushFunc       func(ctx context.Context, message string) (bool, error)
	StashPopFunc        func(ctx context.Context, ref string) error
	StashListFunc       func(ctx context.Context) ([]vcs.StashEntry, error)
	TagsFunc            func(ctx context.Context) ([]string, error)
	CreateTagFunc       func(ctx context.Context, name, message string) error
	ResetFunc           func(ctx context.Context, mode vcs.ResetMode, ref string) error

	mu    sync.Mutex
	calls []string
}

func (m *Repository) record(name string) {
	m.mu.Lock()
	m.calls = append(m.calls, name)
	m.mu.Unlock()
}

// Calls returns the recorded method names in call order.
func (m *Repository) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// Called reports whether name was invoked at least once.
func (m *Repository) Called(name string) bool {
	for _, c := range m.Calls() {
		if c == name {
			return true
		}
	}
	return false
}

func (m *Repository) Root() string {
	return m.RootPath
}

func (m *Repository) CurrentBranch(ctx context.Context) (string, error) {
	m.record("CurrentBranch")
	if m.CurrentBranchFunc != nil {
		return m.CurrentBranchFunc(ctx)
	}
	return "", nil
}

func (m *Repository) Status(ctx context.Context) (vcs.Status, error) {
	m.record("Status")
	if m.StatusFunc != nil {
		return m.StatusFunc(ctx)
	}
	return vcs.Status{}, nil
}

func (m *Repository) Log(ctx context.Context, limit int) ([]vcs.Commit, error) {
	m.record("Log")
	if m.LogFunc != nil {
		return m.LogFunc(ctx, limit)
	}
	return nil, nil
}

func (m *Repository) Diff(ctx context.Context, opts vcs.DiffOptions) (string, error) {
	m.record("Diff")
	if m.DiffFunc != nil {
		return m.DiffFunc(ctx, opts)
	}
	return "", nil
}

func (m *Repository) StagedStat(ctx context.Context) (string, error) {
	m.record("StagedStat")
	if m.StagedStatFunc != nil {
		return m.StagedStatFunc(ctx)
	}
	return "", nil
}

func (m *Repository) StagedPatch(ctx context.Context) (string, error) {
	m.record("StagedPatch")
	if m.StagedPatchFunc != nil {
		return m.StagedPatchFunc(ctx)
	}
	return "", nil
}

func (m *Repository) Blame(ctx context.Context, path string) (string, error) {
	m.record("Blame")
	if m.BlameFunc != nil {
		return m.BlameFunc(ctx, path)
	}
	return "", nil
}

func (m *Repository) Branches(ctx context.Context) ([]vcs.Branch, error) {
	m.record("Branches")
	if m.BranchesFunc != nil {
		return m.BranchesFunc(ctx)
	}
	return nil, nil
}

func (m *Repository) Remotes(ctx context.Context) ([]vcs.Remote, error) {
	m.record("Remotes")
	if m.RemotesFunc != nil {
		return m.RemotesFunc(ctx)
	}
	return nil, nil
}

func (m *Repository) Add(ctx context.Context, paths []string) error {
	m.record("Add")
	if m.AddFunc != nil {
		return m.AddFunc(ctx, paths)
	}
	return nil
}

func (m *Repository) Unstage(ctx context.Context, paths []string) error {
	m.record("Unstage")
	if m.UnstageFunc != nil {
		return m.UnstageFunc(ctx, paths)
	}
	return nil
}

func (m *Repository) Commit(ctx context.Context, message string) (string, error) {
	m.record("Commit")
	if m.CommitFunc != nil {
		return m.CommitFunc(ctx, message)
	}
	return "", nil
}

func (m *Repository) Push(ctx context.Context, remote, branch string, force bool) error {
	m.record("Push")
	if m.PushFunc != nil {
		return m.PushFunc(ctx, remote, branch, force)
	}
	return nil
}

func (m *Repository) Pull(ctx context.Context, remote, branch string) (vcs.ChangeSummary, error) {
	m.record("Pull")
	if m.PullFunc != nil {
		return m.PullFunc(ctx, remote, branch)
	}
	return vcs.ChangeSummary{}, nil
}

func (m *Repository) Fetch(ctx context.Context, remote string) (vcs.FetchResult, error) {
	m.record("Fetch")
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, remote)
	}
	return vcs.FetchResult{}, nil
}

func (m *Repository) Checkout(ctx context.Context, target string) error {
	m.record("Checkout")
	if m.CheckoutFunc != nil {
		return m.CheckoutFunc(ctx, target)
	}
	return nil
}

func (m *Repository) CreateBranch(ctx context.Context, name string, checkout bool) error {
	m.record("CreateBranch")
	if m.CreateBranchFunc != nil {
		return m.CreateBranchFunc(ctx, name, checkout)
	}
	return nil
}

func (m *Repository) DeleteBranch(ctx context.Context, name string, force bool) error {
	m.record("DeleteBranch")
	if m.DeleteBranchFunc != nil {
		return m.DeleteBranchFunc(ctx, name, force)
	}
	return nil
}

func (m *Repository) Merge(ctx context.Context, branch string) (vcs.MergeResult, error) {
	m.record("Merge")
	if m.MergeFunc != nil {
		return m.MergeFunc(ctx, branch)
	}
	return vcs.MergeResult{}, nil
}

func (m *Repository) AbortMerge(ctx context.Context) error {
	m.record("AbortMerge")
	if m.AbortMergeFunc != nil {
		return m.AbortMergeFunc(ctx)
	}
	return nil
}

func (m *Repository) CherryPick(ctx context.Context, commit string) error {
	m.record("CherryPick")
	if m.CherryPickFunc != nil {
		return m.CherryPickFunc(ctx, commit)
	}
	return nil
}

func (m *Repository) AbortCherryPick(ctx context.Context) error {
	m.record("AbortCherryPick")
	if m.AbortCherryPickFunc != nil {
		return m.AbortCherryPickFunc(ctx)
	}
	return nil
}

func (m *Repository) Revert(ctx context.Context, commit string) error {
	m.record("Revert")
	if m.RevertFunc != nil {
		return m.RevertFunc(ctx, commit)
	}
	return nil
}

func (m *Repository) StashPush(ctx context.Context, message string) (bool, error) {
	m.record("StashPush")
	if m.StashPushFunc != nil {
		return m.StashPushFunc(ctx, message)
	}
	return true, nil
}

func (m *Repository) StashPop(ctx context.Context, ref string) error {
	m.record("StashPop")
	if m.StashPopFunc != nil {
		return m.StashPopFunc(ctx, ref)
	}
	return nil
}

func (m *Repository) StashList(ctx context.Context) ([]vcs.StashEntry, error) {
	m.record("StashList")
	if m.StashListFunc != nil {
		return m.StashListFunc(ctx)
	}
	return nil, nil
}

func (m *Repository) Tags(ctx context.Context) ([]string, error) {
	m.record("Tags")
	if m.TagsFunc != nil {
		return m.TagsFunc(ctx)
	}
	return nil, nil
}

func (m *Repository) CreateTag(ctx context.Context, name, message string) error {
	m.record("CreateTag")
	if m.CreateTagFunc != nil {
		return m.CreateTagFunc(ctx, name, message)
	}
	return nil
}

func (m *Repository) Reset(ctx context.Context, mode vcs.ResetMode, ref string) error {
	m.record("Reset")
	if m.ResetFunc != nil {
		return m.ResetFunc(ctx, mode, ref)
	}
	return nil
}

var _ vcs.Repository = (*Repository)(nil)
