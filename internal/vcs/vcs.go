// Package vcs is the git backend used by the tool handlers.
// Mutations go through the git CLI; read-only inspection of HEAD, history,
// remotes and tags goes through go-git.
package vcs

import "context"

// Repository is the capability set a handler may call against one working
// tree. A Repository is obtained from an Opener, which also performs the
// validity check.
type Repository interface {
	// Root returns the absolute path of the working tree.
	Root() string

	// CurrentBranch returns the checked-out branch name, or "" when HEAD
	// is detached.
	CurrentBranch(ctx context.Context) (string, error)

	Status(ctx context.Context) (Status, error)
	Log(ctx context.Context, limit int) ([]Commit, error)
	Diff(ctx context.Context, opts DiffOptions) (string, error)
	// StagedStat returns `git diff --cached --stat` output.
	StagedStat(ctx context.Context) (string, error)
	// StagedPatch returns the full staged patch.
	StagedPatch(ctx context.Context) (string, error)
	Blame(ctx context.Context, path string) (string, error)
	Branches(ctx context.Context) ([]Branch, error)
	Remotes(ctx context.Context) ([]Remote, error)

	Add(ctx context.Context, paths []string) error
	Unstage(ctx context.Context, paths []string) error
	// Commit records the index and returns the new commit hash.
	Commit(ctx context.Context, message string) (string, error)
	Push(ctx context.Context, remote, branch string, force bool) error
	// Pull merges remote changes. branch may be empty.
	Pull(ctx context.Context, remote, branch string) (ChangeSummary, error)
	// Fetch updates refs from remote, or from the default remote when empty.
	Fetch(ctx context.Context, remote string) (FetchResult, error)
	Checkout(ctx context.Context, target string) error
	CreateBranch(ctx context.Context, name string, checkout bool) error
	DeleteBranch(ctx context.Context, name string, force bool) error

	// Merge merges branch into the current branch. Conflicts are reported in
	// the result, not as an error, and the conflicted state is left in place.
	Merge(ctx context.Context, branch string) (MergeResult, error)
	AbortMerge(ctx context.Context) error
	CherryPick(ctx context.Context, commit string) error
	AbortCherryPick(ctx context.Context) error
	Revert(ctx context.Context, commit string) error

	// StashPush reports false when there was nothing to stash.
	StashPush(ctx context.Context, message string) (bool, error)
	StashPop(ctx context.Context, ref string) error
	StashList(ctx context.Context) ([]StashEntry, error)

	Tags(ctx context.Context) ([]string, error)
	// CreateTag creates an annotated tag when message is non-empty,
	// otherwise a lightweight one.
	CreateTag(ctx context.Context, name, message string) error
	Reset(ctx context.Context, mode ResetMode, ref string) error
}

// Opener resolves a repository path and confirms it is a git working tree.
// An empty path selects the opener's default repository.
type Opener interface {
	Open(ctx context.Context, path string) (Repository, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context, path string) (Repository, error)

func (f OpenerFunc) Open(ctx context.Context, path string) (Repository, error) {
	return f(ctx, path)
}

// Status groups working tree paths the way the status summary prints them.
type Status struct {
	Branch     string
	Staged     []string
	Modified   []string
	Untracked  []string
	Deleted    []string
	Conflicted []string
}

// Clean reports whether the tree has no changes of any kind.
func (s Status) Clean() bool {
	return len(s.Staged) == 0 && len(s.Modified) == 0 && len(s.Untracked) == 0 &&
		len(s.Deleted) == 0 && len(s.Conflicted) == 0
}

type Commit struct {
	Hash    string
	Author  string
	Date    string
	Message string
}

// Branch is one row of `git branch -a -v`.
type Branch struct {
	Name    string
	Commit  string
	Current bool
	Remote  bool
}

type Remote struct {
	Name string
	URLs []string
}

// ChangeSummary is the parsed shortstat line of a merge or pull.
type ChangeSummary struct {
	Changes    int
	Insertions int
	Deletions  int
}

// Empty reports whether nothing changed.
func (c ChangeSummary) Empty() bool {
	return c.Changes == 0 && c.Insertions == 0 && c.Deletions == 0
}

type Conflict struct {
	File   string
	Reason string
}

type MergeResult struct {
	Failed    bool
	Conflicts []Conflict
	// Merged lists files git reported as auto-merged.
	Merged  []string
	Summary ChangeSummary
}

type FetchResult struct {
	Updated []string
	Tags    []string
	Deleted []string
}

// Empty reports whether the fetch changed no refs.
func (f FetchResult) Empty() bool {
	return len(f.Updated) == 0 && len(f.Tags) == 0 && len(f.Deleted) == 0
}

type StashEntry struct {
	Hash    string
	Message string
}

type ResetMode string

const (
	ResetSoft  ResetMode = "soft"
	ResetMixed ResetMode = "mixed"
)

// DiffOptions selects what get_diff compares. With Ref empty the working
// tree is compared against the index.
type DiffOptions struct {
	Ref  string
	Path string
}
