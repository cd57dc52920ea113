package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/components/tool/utils"

	"github.com/MEKXH/gitmind/internal/policy"
	"github.com/MEKXH/gitmind/internal/vcs"
)

type CheckoutInput struct {
	RepoPath string `json:"repoPath,omitempty" jsonschema:"description=Path to the git repository"`
	Target   string `json:"target" jsonschema:"required,description=Branch name or tag or file path to checkout"`
}

type CreateBranchInput struct {
	RepoPath string `json:"repoPath,omitempty" jsonschema:"description=Path to the git repository"`
	Name     string `json:"name" jsonschema:"required,description=Name of the new branch"`
	Checkout *bool  `json:"checkout,omitempty" jsonschema:"description=Checkout the new branch after creating (default: true)"`
}

type DeleteBranchInput struct {
	RepoPath string `json:"repoPath,omitempty" jsonschema:"description=Path to the git repository"`
	Branch   string `json:"branch" jsonschema:"required,description=Branch name to delete"`
	Force    bool   `json:"force,omitempty" jsonschema:"description=Force delete even if not merged"`
}

type MergeInput struct {
	RepoPath string `json:"repoPath,omitempty" jsonschema:"description=Path to the git repository"`
	Branch   string `json:"branch" jsonschema:"required,description=Branch or ref to merge into the current branch"`
}

type CommitRefInput struct {
	RepoPath string `json:"repoPath,omitempty" jsonschema:"description=Path to the git repository"`
	Commit   string `json:"commit" jsonschema:"required,description=Commit hash or HEAD~n or ref"`
}

func newCheckoutTool(s *Service) (Tool, error) {
	return utils.InferTool("checkout",
		"Checkout a branch, tag, or restore a file. Use branch name to switch branches. "+
			"Use file path to restore a file from index.",
		s.checkout)
}

func (s *Service) checkout(ctx context.Context, input *CheckoutInput) (string, error) {
	if err := requireRef("target", input.Target); err != nil {
		return "", err
	}
	if msg, ok := s.authorize(ctx, policy.OpCheckout); !ok {
		return msg, nil
	}
	repo, msg, ok := s.open(ctx, input.RepoPath)
	if !ok {
		return msg, nil
	}
	if err := repo.Checkout(ctx, input.Target); err != nil {
		return fail(ctx, err), nil
	}
	return succeed(ctx, "Checked out: "+input.Target), nil
}

func newCreateBranchTool(s *Service) (Tool, error) {
	return utils.InferTool("create_branch",
		"Create a new branch. Optionally checkout the branch after creating. "+
			"Branch is created from current HEAD.",
		s.createBranch)
}

func (s *Service) createBranch(ctx context.Context, input *CreateBranchInput) (string, error) {
	if err := requireRef("name", strings.TrimSpace(input.Name)); err != nil {
		return "", err
	}
	checkout := input.Checkout == nil || *input.Checkout

	if msg, ok := s.authorize(ctx, policy.OpCreateBranch); !ok {
		return msg, nil
	}
	repo, msg, ok := s.open(ctx, input.RepoPath)
	if !ok {
		return msg, nil
	}
	noteBranch(ctx, input.Name)
	if err := repo.CreateBranch(ctx, input.Name, checkout); err != nil {
		return fail(ctx, err), nil
	}
	if checkout {
		return succeed(ctx, "Created and checked out branch: "+input.Name), nil
	}
	return succeed(ctx, "Created branch: "+input.Name), nil
}

func newDeleteBranchTool(s *Service) (Tool, error) {
	return utils.InferTool("delete_branch",
		"Delete a local branch. Cannot delete protected branches (main, master). "+
			"Use force to delete unmerged branches.",
		s.deleteBranch)
}

func (s *Service) deleteBranch(ctx context.Context, input *DeleteBranchInput) (string, error) {
	name := strings.TrimSpace(input.Branch)
	if err := requireRef("branch", name); err != nil {
		return "", err
	}
	if msg, ok := s.authorize(ctx, policy.OpDeleteBranch); !ok {
		return msg, nil
	}
	repo, msg, ok := s.open(ctx, input.RepoPath)
	if !ok {
		return msg, nil
	}
	if msg, ok := s.checkBranch(ctx, policy.OpDeleteBranch, name, input.Force); !ok {
		return msg, nil
	}

	current, err := repo.CurrentBranch(ctx)
	if err != nil {
		return fail(ctx, err), nil
	}
	current = policy.ToLocal(strings.TrimSpace(current))
	if current != "" && current == policy.ToLocal(name) {
		return deny(ctx, CategoryState,
			fmt.Sprintf("Cannot delete current branch '%s'. Checkout another branch first.", current)), nil
	}
	if msg, ok := s.checkForce(ctx, input.Force); !ok {
		return msg, nil
	}

	if err := repo.DeleteBranch(ctx, name, input.Force); err != nil {
		return fail(ctx, err), nil
	}
	return succeed(ctx, "Deleted branch: "+name), nil
}

func newMergeTool(s *Service) (Tool, error) {
	return utils.InferTool("merge",
		"Merge a branch into the current branch. Cannot merge into protected branches (main, master). "+
			"Equivalent to git merge <branch>.",
		s.merge)
}

func (s *Service) merge(ctx context.Context, input *MergeInput) (string, error) {
	if err := requireRef("branch", input.Branch); err != nil {
		return "", err
	}
	if msg, ok := s.authorize(ctx, policy.OpMerge); !ok {
		return msg, nil
	}
	repo, msg, ok := s.open(ctx, input.RepoPath)
	if !ok {
		return msg, nil
	}
	current, msg, ok := s.currentBranch(ctx, repo, policy.OpMerge)
	if !ok {
		return msg, nil
	}
	if msg, ok := s.checkBranch(ctx, policy.OpMerge, current, false); !ok {
		return msg, nil
	}

	res, err := repo.Merge(ctx, input.Branch)
	if err != nil {
		abort(ctx, "merge", repo.AbortMerge)
		return fail(ctx, err), nil
	}
	if res.Failed {
		return failText(ctx, CategoryBackend, renderMergeConflicts(res.Conflicts)), nil
	}

	lines := []string{fmt.Sprintf("Merged %s into %s.", input.Branch, policy.ToLocal(current))}
	if n := len(res.Merged); n > 0 {
		lines = append(lines, fmt.Sprintf("  Files merged: %d", n))
	}
	lines = append(lines, renderChangeSummary(res.Summary)...)
	return succeed(ctx, strings.Join(lines, "\n")), nil
}

func renderMergeConflicts(conflicts []vcs.Conflict) string {
	if len(conflicts) == 0 {
		return "Merge failed (conflicts). Conflicting files: unknown"
	}
	parts := make([]string, 0, len(conflicts))
	for _, c := range conflicts {
		if c.Reason == "" {
			parts = append(parts, c.File)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s (%s)", c.File, c.Reason))
	}
	return "Merge failed (conflicts). Conflicting files: " + strings.Join(parts, ", ")
}

func renderChangeSummary(sum vcs.ChangeSummary) []string {
	var lines []string
	if sum.Changes > 0 {
		lines = append(lines, fmt.Sprintf("  Files changed: %d", sum.Changes))
	}
	if sum.Insertions > 0 {
		lines = append(lines, fmt.Sprintf("  Insertions: %d", sum.Insertions))
	}
	if sum.Deletions > 0 {
		lines = append(lines, fmt.Sprintf("  Deletions: %d", sum.Deletions))
	}
	return lines
}

// abort runs a compensating cleanup after a failed backend call. Its own
// error is logged and discarded so the original failure is what surfaces.
func abort(ctx context.Context, operation string, cleanup func(context.Context) error) {
	if err := cleanup(ctx); err != nil {
		slog.Debug("cleanup after failed operation did not succeed",
			"request_id", RequestIDFromContext(ctx),
			"operation", operation,
			"error", err,
		)
	}
}

func newCherryPickTool(s *Service) (Tool, error) {
	return utils.InferTool("cherry_pick",
		"Apply a commit onto the current branch. Cannot cherry-pick into protected branches (main, master). "+
			"Equivalent to git cherry-pick <commit>.",
		s.cherryPick)
}

func (s *Service) cherryPick(ctx context.Context, input *CommitRefInput) (string, error) {
	if err := requireRef("commit", input.Commit); err != nil {
		return "", err
	}
	if msg, ok := s.authorize(ctx, policy.OpCherryPick); !ok {
		return msg, nil
	}
	repo, msg, ok := s.open(ctx, input.RepoPath)
	if !ok {
		return msg, nil
	}
	current, msg, ok := s.currentBranch(ctx, repo, policy.OpCherryPick)
	if !ok {
		return msg, nil
	}
	if msg, ok := s.checkBranch(ctx, policy.OpCherryPick, current, false); !ok {
		return msg, nil
	}

	if err := repo.CherryPick(ctx, input.Commit); err != nil {
		abort(ctx, "cherry-pick", repo.AbortCherryPick)
		return fail(ctx, err), nil
	}
	return succeed(ctx, fmt.Sprintf("Cherry-picked %s onto %s.", input.Commit, current)), nil
}

func newRevertTool(s *Service) (Tool, error) {
	return utils.InferTool("revert",
		"Create a new commit that undoes a previous commit. Cannot revert on protected branches (main, master). "+
			"Equivalent to git revert <commit>.",
		s.revert)
}

func (s *Service) revert(ctx context.Context, input *CommitRefInput) (string, error) {
	if err := requireRef("commit", input.Commit); err != nil {
		return "", err
	}
	if msg, ok := s.authorize(ctx, policy.OpRevert); !ok {
		return msg, nil
	}
	repo, msg, ok := s.open(ctx, input.RepoPath)
	if !ok {
		return msg, nil
	}
	current, msg, ok := s.currentBranch(ctx, repo, policy.OpRevert)
	if !ok {
		return msg, nil
	}
	if msg, ok := s.checkBranch(ctx, policy.OpRevert, current, false); !ok {
		return msg, nil
	}

	if err := repo.Revert(ctx, input.Commit); err != nil {
		return fail(ctx, err), nil
	}
	return succeed(ctx, fmt.Sprintf("Reverted %s on %s.", input.Commit, current)), nil
}
