package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool/utils"

	"github.com/MEKXH/gitmind/internal/policy"
	"github.com/MEKXH/gitmind/internal/vcs"
)

type StageInput struct {
	RepoPath string   `json:"repoPath,omitempty" jsonschema:"description=Path to the git repository (defaults to the server repository)"`
	Files    PathList `json:"files" jsonschema:"required,description=File path or list of paths to stage. Use '.' or '*' to stage all changes."`
}

type UnstageInput struct {
	RepoPath string   `json:"repoPath,omitempty" jsonschema:"description=Path to the git repository (defaults to the server repository)"`
	Files    PathList `json:"files" jsonschema:"required,description=File path or list of paths to unstage. Use '.' to unstage all."`
}

type CommitInput struct {
	RepoPath string `json:"repoPath,omitempty" jsonschema:"description=Path to the git repository (defaults to the server repository)"`
	Message  string `json:"message" jsonschema:"required,description=Commit message"`
}

type ResetInput struct {
	RepoPath string `json:"repoPath,omitempty" jsonschema:"description=Path to the git repository"`
	Mode     string `json:"mode,omitempty" jsonschema:"description=soft keeps changes staged; mixed unstages but keeps the working tree (default),enum=soft,enum=mixed"`
	Ref      string `json:"ref" jsonschema:"required,description=Commit to reset to (e.g. HEAD~1 or abc1234 or branch-name)"`
}

func newStageTool(s *Service) (Tool, error) {
	return utils.InferTool("stage",
		"Stage (add) files to the index for the next commit. "+
			"Pass a single path, array of paths, '.' or '*' to stage all changes.",
		s.stage)
}

func (s *Service) stage(ctx context.Context, input *StageInput) (string, error) {
	if err := validatePaths("files", input.Files); err != nil {
		return "", err
	}
	if msg, ok := s.authorize(ctx, policy.OpStage); !ok {
		return msg, nil
	}
	repo, msg, ok := s.open(ctx, input.RepoPath)
	if !ok {
		return msg, nil
	}
	if err := repo.Add(ctx, input.Files); err != nil {
		return fail(ctx, err), nil
	}
	return succeed(ctx, fmt.Sprintf("Staged %s.", input.Files.Display())), nil
}

func newUnstageTool(s *Service) (Tool, error) {
	return utils.InferTool("unstage",
		"Unstage (reset) files from the index. Removes them from the staging area but keeps changes in the working tree. "+
			"Pass a single path, array of paths, or '.' to unstage all.",
		s.unstage)
}

func (s *Service) unstage(ctx context.Context, input *UnstageInput) (string, error) {
	if err := validatePaths("files", input.Files); err != nil {
		return "", err
	}
	if msg, ok := s.authorize(ctx, policy.OpUnstage); !ok {
		return msg, nil
	}
	repo, msg, ok := s.open(ctx, input.RepoPath)
	if !ok {
		return msg, nil
	}
	if err := repo.Unstage(ctx, input.Files); err != nil {
		return fail(ctx, err), nil
	}
	return succeed(ctx, fmt.Sprintf("Unstaged %s.", input.Files.Display())), nil
}

func newCommitTool(s *Service) (Tool, error) {
	return utils.InferTool("commit",
		"Create a commit with the staged changes. Stage files first with the stage tool. "+
			"Use a clear, descriptive commit message (conventional commits style recommended). "+
			"Cannot commit directly to protected branches.",
		s.commit)
}

func (s *Service) commit(ctx context.Context, input *CommitInput) (string, error) {
	if err := requireText("message", input.Message); err != nil {
		return "", err
	}
	if msg, ok := s.authorize(ctx, policy.OpCommit); !ok {
		return msg, nil
	}
	repo, msg, ok := s.open(ctx, input.RepoPath)
	if !ok {
		return msg, nil
	}
	branch, msg, ok := s.currentBranch(ctx, repo, policy.OpCommit)
	if !ok {
		return msg, nil
	}
	if msg, ok := s.checkBranch(ctx, policy.OpCommit, branch, false); !ok {
		return msg, nil
	}

	hash, err := repo.Commit(ctx, input.Message)
	if err != nil {
		return fail(ctx, err), nil
	}
	return succeed(ctx, fmt.Sprintf("Committed: %s\n%s", hash, input.Message)), nil
}

func newResetTool(s *Service) (Tool, error) {
	return utils.InferTool("reset",
		"Reset HEAD to a commit. Only soft and mixed modes allowed (--hard is blocked). "+
			"soft: move HEAD, keep index; mixed: move HEAD, unstage, keep working tree. "+
			"Equivalent to git reset --soft/--mixed <ref>.",
		s.reset)
}

func (s *Service) reset(ctx context.Context, input *ResetInput) (string, error) {
	mode := vcs.ResetMixed
	switch strings.ToLower(strings.TrimSpace(input.Mode)) {
	case "", "mixed":
	case "soft":
		mode = vcs.ResetSoft
	default:
		return "", invalid("mode", "must be one of soft or mixed")
	}
	if err := validateResetRef(input.Ref); err != nil {
		return "", err
	}

	if msg, ok := s.authorize(ctx, policy.OpReset); !ok {
		return msg, nil
	}
	repo, msg, ok := s.open(ctx, input.RepoPath)
	if !ok {
		return msg, nil
	}
	if err := repo.Reset(ctx, mode, input.Ref); err != nil {
		return fail(ctx, err), nil
	}
	return succeed(ctx, fmt.Sprintf("Reset (%s) to %s.", mode, input.Ref)), nil
}
