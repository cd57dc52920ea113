package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool/utils"

	"github.com/MEKXH/gitmind/internal/policy"
)

const defaultRemote = "origin"

type PushInput struct {
	RepoPath string `json:"repoPath,omitempty" jsonschema:"description=Path to the git repository"`
	Remote   string `json:"remote,omitempty" jsonschema:"description=Remote name (default: origin)"`
	Branch   string `json:"branch,omitempty" jsonschema:"description=Branch or refspec src:dst to push (default: current branch)"`
	Force    bool   `json:"force,omitempty" jsonschema:"description=Force push (overwrites remote history)"`
}

type PullInput struct {
	RepoPath string `json:"repoPath,omitempty" jsonschema:"description=Path to the git repository"`
	Remote   string `json:"remote,omitempty" jsonschema:"description=Remote name (default: origin)"`
	Branch   string `json:"branch,omitempty" jsonschema:"description=Branch to pull (default: current branch)"`
}

type FetchInput struct {
	RepoPath string `json:"repoPath,omitempty" jsonschema:"description=Path to the git repository"`
	Remote   string `json:"remote,omitempty" jsonschema:"description=Remote name to fetch from (default: the configured upstream)"`
}

func remoteOrDefault(remote string) string {
	if remote == "" {
		return defaultRemote
	}
	return remote
}

func newPushTool(s *Service) (Tool, error) {
	return utils.InferTool("push",
		"Push commits to a remote. Uses current branch if branch not specified. "+
			"Protected branches (main, master) can be pushed normally; force push is blocked.",
		s.push)
}

func (s *Service) push(ctx context.Context, input *PushInput) (string, error) {
	if err := validateRef("remote", input.Remote); err != nil {
		return "", err
	}
	spec, err := parsePushSpec("branch", input.Branch)
	if err != nil {
		return "", err
	}
	remote := remoteOrDefault(input.Remote)
	force := input.Force || spec.Force

	if msg, ok := s.authorize(ctx, policy.OpPush); !ok {
		return msg, nil
	}
	repo, msg, ok := s.open(ctx, input.RepoPath)
	if !ok {
		return msg, nil
	}

	branch := spec.Target()
	if branch == "" {
		branch, msg, ok = s.currentBranch(ctx, repo, policy.OpPush)
		if !ok {
			return msg, nil
		}
	}
	// A plain push to a protected branch passes; only force is refused.
	if msg, ok := s.checkBranch(ctx, policy.OpPush, branch, force); !ok {
		return msg, nil
	}
	if msg, ok := s.checkForce(ctx, force); !ok {
		return msg, nil
	}

	local := policy.ToLocal(strings.TrimSpace(branch))
	if err := repo.Push(ctx, remote, spec.Arg(local), force); err != nil {
		return fail(ctx, err), nil
	}
	return succeed(ctx, fmt.Sprintf("Pushed %s to %s.", local, remote)), nil
}

func newPullTool(s *Service) (Tool, error) {
	return utils.InferTool("pull",
		"Pull changes from a remote. Uses current branch if branch not specified. "+
			"Equivalent to git pull.",
		s.pull)
}

func (s *Service) pull(ctx context.Context, input *PullInput) (string, error) {
	if err := validateRef("remote", input.Remote); err != nil {
		return "", err
	}
	if err := validateRef("branch", input.Branch); err != nil {
		return "", err
	}
	remote := remoteOrDefault(input.Remote)

	if msg, ok := s.authorize(ctx, policy.OpPull); !ok {
		return msg, nil
	}
	repo, msg, ok := s.open(ctx, input.RepoPath)
	if !ok {
		return msg, nil
	}

	branch := input.Branch
	if branch == "" {
		current, err := repo.CurrentBranch(ctx)
		if err != nil {
			return fail(ctx, err), nil
		}
		branch = current
	}
	noteBranch(ctx, branch)

	sum, err := repo.Pull(ctx, remote, branch)
	if err != nil {
		return fail(ctx, err), nil
	}
	if sum.Empty() {
		return succeed(ctx, "Already up to date."), nil
	}
	lines := append([]string{"Pull complete."}, renderChangeSummary(sum)...)
	return succeed(ctx, strings.Join(lines, "\n")), nil
}

func newFetchTool(s *Service) (Tool, error) {
	return utils.InferTool("fetch",
		"Fetch objects and refs from a remote. Updates local refs without merging. "+
			"Equivalent to git fetch.",
		s.fetch)
}

func (s *Service) fetch(ctx context.Context, input *FetchInput) (string, error) {
	if err := validateRef("remote", input.Remote); err != nil {
		return "", err
	}
	if msg, ok := s.authorize(ctx, policy.OpFetch); !ok {
		return msg, nil
	}
	repo, msg, ok := s.open(ctx, input.RepoPath)
	if !ok {
		return msg, nil
	}

	res, err := repo.Fetch(ctx, input.Remote)
	if err != nil {
		return fail(ctx, err), nil
	}
	if res.Empty() {
		return succeed(ctx, "Already up to date."), nil
	}
	lines := []string{"Fetch complete."}
	if len(res.Updated) > 0 {
		lines = append(lines, "  Updated: "+strings.Join(res.Updated, ", "))
	}
	if len(res.Tags) > 0 {
		lines = append(lines, "  Tags: "+strings.Join(res.Tags, ", "))
	}
	if len(res.Deleted) > 0 {
		lines = append(lines, fmt.Sprintf("  Deleted: %d ref(s)", len(res.Deleted)))
	}
	return succeed(ctx, strings.Join(lines, "\n")), nil
}
