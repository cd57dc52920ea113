package vcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// GitOpener opens repositories backed by the git CLI and go-git.
type GitOpener struct {
	Binary         string
	Timeout        time.Duration
	NetworkTimeout time.Duration
	// DefaultPath is used when Open receives an empty path. When it is also
	// empty the process working directory is used.
	DefaultPath string
}

// Open resolves path and confirms it is inside a git working tree.
func (o *GitOpener) Open(_ context.Context, path string) (Repository, error) {
	resolved, err := o.resolve(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(resolved)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotRepository, resolved)
	}

	repo, err := gogit.PlainOpenWithOptions(resolved, &gogit.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
	if err != nil {
		if errors.Is(err, gogit.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%w: %s", ErrNotRepository, resolved)
		}
		return nil, fmt.Errorf("open repository %s: %w", resolved, err)
	}

	root := resolved
	if wt, err := repo.Worktree(); err == nil {
		root = wt.Filesystem.Root()
	} else if errors.Is(err, gogit.ErrIsBareRepository) {
		return nil, fmt.Errorf("%w: %s is a bare repository", ErrNotRepository, resolved)
	}

	return &Git{
		root: root,
		repo: repo,
		runner: &Runner{
			Binary:         o.Binary,
			Dir:            root,
			Timeout:        o.Timeout,
			NetworkTimeout: o.NetworkTimeout,
		},
	}, nil
}

func (o *GitOpener) resolve(path string) (string, error) {
	if path == "" {
		path = o.DefaultPath
	}
	if path == "" {
		return os.Getwd()
	}
	return filepath.Abs(path)
}

// Git is a Repository over one working tree.
type Git struct {
	root   string
	repo   *gogit.Repository
	runner *Runner
}

func (g *Git) Root() string {
	return g.root
}

func (g *Git) CurrentBranch(_ context.Context) (string, error) {
	head, err := g.repo.Reference(plumbing.HEAD, false)
	if err != nil {
		return "", fmt.Errorf("read HEAD: %w", err)
	}
	if head.Type() != plumbing.SymbolicReference {
		return "", nil
	}
	target := head.Target()
	if !target.IsBranch() {
		return "", nil
	}
	return target.Short(), nil
}

func (g *Git) Status(ctx context.Context) (Status, error) {
	out, err := g.runner.Run(ctx, "status", "--porcelain=v1", "-z", "--branch", "--untracked-files=all")
	if err != nil {
		return Status{}, err
	}
	return parseStatus(out), nil
}

// Log returns up to limit commits reachable from HEAD, newest first.
// An unborn branch yields an empty slice.
func (g *Git) Log(_ context.Context, limit int) ([]Commit, error) {
	head, err := g.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("resolve HEAD: %w", err)
	}
	iter, err := g.repo.Log(&gogit.LogOptions{From: head.Hash(), Order: gogit.LogOrderCommitterTime})
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	defer iter.Close()

	var commits []Commit
	for limit <= 0 || len(commits) < limit {
		c, err := iter.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read history: %w", err)
		}
		commits = append(commits, toCommit(c))
	}
	return commits, nil
}

func toCommit(c *object.Commit) Commit {
	subject, _, _ := strings.Cut(strings.TrimSpace(c.Message), "\n")
	return Commit{
		Hash:    c.Hash.String(),
		Author:  c.Author.Name,
		Date:    c.Author.When.Format(time.RFC3339),
		Message: subject,
	}
}

func (g *Git) Diff(ctx context.Context, opts DiffOptions) (string, error) {
	args := []string{"diff"}
	if opts.Ref != "" {
		args = append(args, opts.Ref)
	}
	if opts.Path != "" {
		args = append(args, "--", opts.Path)
	}
	return g.runner.Run(ctx, args...)
}

func (g *Git) StagedStat(ctx context.Context) (string, error) {
	return g.runner.Run(ctx, "diff", "--cached", "--stat")
}

func (g *Git) StagedPatch(ctx context.Context) (string, error) {
	return g.runner.Run(ctx, "diff", "--cached", "--no-color", "--no-ext-diff")
}

func (g *Git) Blame(ctx context.Context, path string) (string, error) {
	return g.runner.Run(ctx, "blame", "-w", "--", path)
}

func (g *Git) Branches(ctx context.Context) ([]Branch, error) {
	out, err := g.runner.Run(ctx, "branch", "-a", "-v", "--no-color")
	if err != nil {
		return nil, err
	}
	return parseBranches(out), nil
}

func (g *Git) Remotes(_ context.Context) ([]Remote, error) {
	remotes, err := g.repo.Remotes()
	if err != nil {
		return nil, fmt.Errorf("list remotes: %w", err)
	}
	out := make([]Remote, 0, len(remotes))
	for _, r := range remotes {
		cfg := r.Config()
		out = append(out, Remote{Name: cfg.Name, URLs: dedupe(cfg.URLs)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (g *Git) Add(ctx context.Context, paths []string) error {
	_, err := g.runner.Run(ctx, append([]string{"add", "--"}, paths...)...)
	return err
}

func (g *Git) Unstage(ctx context.Context, paths []string) error {
	_, err := g.runner.Run(ctx, append([]string{"reset", "HEAD", "--"}, paths...)...)
	return err
}

func (g *Git) Commit(ctx context.Context, message string) (string, error) {
	out, err := g.runner.Run(ctx, "commit", "-m", message)
	if err != nil {
		return "", err
	}
	if hash := parseCommitHash(out); hash != "" {
		return hash, nil
	}
	hash, err := g.runner.Run(ctx, "rev-parse", "--short", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(hash), nil
}

func (g *Git) Push(ctx context.Context, remote, branch string, force bool) error {
	args := []string{"push"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, remote, branch)
	_, err := g.runner.Run(ctx, args...)
	return err
}

func (g *Git) Pull(ctx context.Context, remote, branch string) (ChangeSummary, error) {
	args := []string{"pull", "--no-rebase", "--no-edit", remote}
	if branch != "" {
		args = append(args, branch)
	}
	out, err := g.runner.Run(ctx, args...)
	if err != nil {
		return ChangeSummary{}, err
	}
	return parseChangeSummary(out), nil
}

func (g *Git) Fetch(ctx context.Context, remote string) (FetchResult, error) {
	args := []string{"fetch"}
	if remote != "" {
		args = append(args, remote)
	}
	_, stderr, err := g.runner.RunOutput(ctx, args...)
	if err != nil {
		return FetchResult{}, err
	}
	return parseFetchOutput(stderr), nil
}

func (g *Git) Checkout(ctx context.Context, target string) error {
	_, err := g.runner.Run(ctx, "checkout", target)
	return err
}

func (g *Git) CreateBranch(ctx context.Context, name string, checkout bool) error {
	args := []string{"branch", name}
	if checkout {
		args = []string{"checkout", "-b", name}
	}
	_, err := g.runner.Run(ctx, args...)
	return err
}

func (g *Git) DeleteBranch(ctx context.Context, name string, force bool) error {
	flag := "-d"
	if force {
		flag = "-D"
	}
	_, err := g.runner.Run(ctx, "branch", flag, name)
	return err
}

func (g *Git) Merge(ctx context.Context, branch string) (MergeResult, error) {
	out, err := g.runner.Run(ctx, "merge", "--no-edit", branch)
	res := parseMergeOutput(out)
	if err != nil {
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) && res.Failed {
			return res, nil
		}
		return MergeResult{}, err
	}
	return res, nil
}

func (g *Git) AbortMerge(ctx context.Context) error {
	_, err := g.runner.Run(ctx, "merge", "--abort")
	return err
}

func (g *Git) CherryPick(ctx context.Context, commit string) error {
	_, err := g.runner.Run(ctx, "cherry-pick", commit)
	return err
}

func (g *Git) AbortCherryPick(ctx context.Context) error {
	_, err := g.runner.Run(ctx, "cherry-pick", "--abort")
	return err
}

func (g *Git) Revert(ctx context.Context, commit string) error {
	_, err := g.runner.Run(ctx, "revert", "--no-edit", commit)
	return err
}

func (g *Git) StashPush(ctx context.Context, message string) (bool, error) {
	args := []string{"stash", "push"}
	if message != "" {
		args = append(args, "-m", message)
	}
	stdout, stderr, err := g.runner.RunOutput(ctx, args...)
	if err != nil {
		return false, err
	}
	return !strings.Contains(stdout+stderr, "No local changes to save"), nil
}

func (g *Git) StashPop(ctx context.Context, ref string) error {
	_, err := g.runner.Run(ctx, "stash", "pop", ref)
	return err
}

func (g *Git) StashList(ctx context.Context) ([]StashEntry, error) {
	out, err := g.runner.Run(ctx, "stash", "list", "--format=%H%x1f%s")
	if err != nil {
		return nil, err
	}
	return parseStashList(out), nil
}

func (g *Git) Tags(_ context.Context) ([]string, error) {
	iter, err := g.repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	var tags []string
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		tags = append(tags, ref.Name().Short())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	sort.Strings(tags)
	return tags, nil
}

func (g *Git) CreateTag(ctx context.Context, name, message string) error {
	args := []string{"tag", name}
	if message != "" {
		args = []string{"tag", "-a", name, "-m", message}
	}
	_, err := g.runner.Run(ctx, args...)
	return err
}

func (g *Git) Reset(ctx context.Context, mode ResetMode, ref string) error {
	_, err := g.runner.Run(ctx, "reset", "--"+string(mode), ref, "--")
	return err
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// ShortHash truncates a full hash for display.
func ShortHash(hash string) string {
	if len(hash) > 7 {
		return hash[:7]
	}
	return hash
}
