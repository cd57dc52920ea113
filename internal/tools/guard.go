package tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MEKXH/gitmind/internal/policy"
	"github.com/MEKXH/gitmind/internal/vcs"
)

// detachedReasons is the StateError text per operation needing a branch.
var detachedReasons = map[string]string{
	policy.OpCommit:     "Cannot commit in detached HEAD state.",
	policy.OpCherryPick: "Cannot cherry-pick in detached HEAD state.",
	policy.OpMerge:      "Cannot merge in detached HEAD state.",
	policy.OpRevert:     "Cannot revert in detached HEAD state.",
	policy.OpPush:       "No branch to push (detached HEAD state).",
}

// authorize runs the allow-list check for a mutating operation.
func (s *Service) authorize(ctx context.Context, operation string) (string, bool) {
	noteOperation(ctx, operation)
	res := s.policy.OperationAllowed(operation)
	if !res.Allowed {
		return deny(ctx, CategoryPolicy, res.Reason), false
	}
	return "", true
}

// open resolves and validates the repository for a call.
func (s *Service) open(ctx context.Context, repoPath string) (vcs.Repository, string, bool) {
	repo, err := s.opener.Open(ctx, repoPath)
	if err != nil {
		return nil, fail(ctx, err), false
	}
	noteRepo(ctx, repo.Root())
	slog.Debug("tool repository resolved",
		"request_id", RequestIDFromContext(ctx),
		"repo", repo.Root(),
	)
	return repo, "", true
}

// currentBranch returns the checked-out branch in local form, refusing
// detached HEAD for operation.
func (s *Service) currentBranch(ctx context.Context, repo vcs.Repository, operation string) (string, string, bool) {
	branch, err := repo.CurrentBranch(ctx)
	if err != nil {
		return "", fail(ctx, err), false
	}
	if branch == "" {
		reason, ok := detachedReasons[operation]
		if !ok {
			reason = fmt.Sprintf("Cannot %s in detached HEAD state.", operation)
		}
		return "", deny(ctx, CategoryState, reason), false
	}
	noteBranch(ctx, branch)
	return branch, "", true
}

// checkBranch applies the protected-branch rule for operation.
func (s *Service) checkBranch(ctx context.Context, operation, branch string, force bool) (string, bool) {
	local := policy.ToLocal(branch)
	noteBranch(ctx, local)
	res := s.policy.CheckBranch(operation, local, force)
	if !res.Allowed {
		return deny(ctx, CategoryPolicy, res.Reason), false
	}
	return "", true
}

// checkForce requires strict mode to be off for a force variant.
func (s *Service) checkForce(ctx context.Context, force bool) (string, bool) {
	if !force {
		return "", true
	}
	res := s.policy.ForceAllowed()
	if !res.Allowed {
		return deny(ctx, CategoryPolicy, res.Reason), false
	}
	return "", true
}
