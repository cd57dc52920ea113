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

const defaultHistoryLimit = 10

type RepoInput struct {
	RepoPath string `json:"repoPath,omitempty" jsonschema:"description=Path to the git repository (defaults to the server repository)"`
}

type CommitHistoryInput struct {
	RepoPath string `json:"repoPath,omitempty" jsonschema:"description=Path to the git repository"`
	Limit    *int   `json:"limit,omitempty" jsonschema:"description=Number of commits to return (default: 10)"`
}

type DiffInput struct {
	RepoPath string `json:"repoPath,omitempty" jsonschema:"description=Path to the git repository"`
	Ref      string `json:"ref,omitempty" jsonschema:"description=Commit or branch to diff against (e.g. main or HEAD~1)"`
	FilePath string `json:"filePath,omitempty" jsonschema:"description=Specific file to diff"`
}

type BlameInput struct {
	RepoPath string `json:"repoPath,omitempty" jsonschema:"description=Path to the git repository"`
	FilePath string `json:"filePath" jsonschema:"required,description=Path to the file (relative to repo root)"`
}

func newGetStatusTool(s *Service) (Tool, error) {
	return utils.InferTool("get_status",
		"Get the working tree status including staged and unstaged changes. "+
			"Returns a summary of modified, added, deleted, and untracked files.",
		s.getStatus)
}

func (s *Service) getStatus(ctx context.Context, input *RepoInput) (string, error) {
	noteOperation(ctx, policy.OpStatus)
	repo, msg, ok := s.open(ctx, input.RepoPath)
	if !ok {
		return msg, nil
	}
	st, err := repo.Status(ctx)
	if err != nil {
		return fail(ctx, err), nil
	}
	noteBranch(ctx, st.Branch)
	return succeed(ctx, renderStatus(st)), nil
}

func renderStatus(st vcs.Status) string {
	var lines []string
	if st.Branch != "" {
		lines = append(lines, "Current branch: "+st.Branch)
	}
	section := func(title, marker string, paths []string) {
		if len(paths) == 0 {
			return
		}
		lines = append(lines, "\n"+title)
		for _, p := range paths {
			lines = append(lines, fmt.Sprintf("  %s %s", marker, p))
		}
	}
	section("Staged changes:", "+", st.Staged)
	section("Modified (not staged):", "M", st.Modified)
	section("Untracked:", "?", st.Untracked)
	section("Deleted:", "-", st.Deleted)
	section("Conflicted:", "!", st.Conflicted)

	if st.Clean() {
		if len(lines) == 0 {
			return "Working tree clean. No changes."
		}
		lines = append(lines, "Working tree clean. No changes.")
	}
	return strings.Join(lines, "\n")
}

func newGetCommitHistoryTool(s *Service) (Tool, error) {
	return utils.InferTool("get_commit_history",
		"Get recent commit history with hash, author, date, and message. "+
			"Useful for understanding what changed recently or summarizing project history.",
		s.getCommitHistory)
}

func (s *Service) getCommitHistory(ctx context.Context, input *CommitHistoryInput) (string, error) {
	limit := defaultHistoryLimit
	if input.Limit != nil {
		if *input.Limit < 1 {
			return "", invalid("limit", "must be at least 1")
		}
		limit = *input.Limit
	}

	noteOperation(ctx, policy.OpLog)
	repo, msg, ok := s.open(ctx, input.RepoPath)
	if !ok {
		return msg, nil
	}
	commits, err := repo.Log(ctx, limit)
	if err != nil {
		return fail(ctx, err), nil
	}
	if len(commits) == 0 {
		return succeed(ctx, "No commits found."), nil
	}
	lines := make([]string, 0, len(commits))
	for _, c := range commits {
		lines = append(lines, fmt.Sprintf("%s | %s | %s | %s", vcs.ShortHash(c.Hash), c.Author, c.Date, c.Message))
	}
	return succeed(ctx, strings.Join(lines, "\n")), nil
}

func newGetDiffTool(s *Service) (Tool, error) {
	return utils.InferTool("get_diff",
		"Get the diff (changes) for the working tree, staged files, or between commits. "+
			"Use ref to compare against a branch or commit. Use filePath to limit to one file.",
		s.getDiff)
}

func (s *Service) getDiff(ctx context.Context, input *DiffInput) (string, error) {
	if err := validateRef("ref", input.Ref); err != nil {
		return "", err
	}

	noteOperation(ctx, policy.OpDiff)
	repo, msg, ok := s.open(ctx, input.RepoPath)
	if !ok {
		return msg, nil
	}
	diff, err := repo.Diff(ctx, vcs.DiffOptions{Ref: input.Ref, Path: input.FilePath})
	if err != nil {
		return fail(ctx, err), nil
	}
	if diff == "" {
		return succeed(ctx, "No diff (working tree matches HEAD)."), nil
	}
	return succeed(ctx, diff), nil
}

func newGetBlameTool(s *Service) (Tool, error) {
	return utils.InferTool("get_blame",
		"Get git blame for a file - shows who last modified each line and when. "+
			"Useful for finding who wrote or changed specific code.",
		s.getBlame)
}

func (s *Service) getBlame(ctx context.Context, input *BlameInput) (string, error) {
	if err := requireText("filePath", input.FilePath); err != nil {
		return "", err
	}

	noteOperation(ctx, policy.OpBlame)
	repo, msg, ok := s.open(ctx, input.RepoPath)
	if !ok {
		return msg, nil
	}
	blame, err := repo.Blame(ctx, input.FilePath)
	if err != nil {
		return fail(ctx, err), nil
	}
	if blame == "" {
		return succeed(ctx, "No blame output (file may be empty or binary)."), nil
	}
	return succeed(ctx, blame), nil
}

func newGetBranchesTool(s *Service) (Tool, error) {
	return utils.InferTool("get_branches",
		"List all local and remote branches. Shows current branch with an asterisk. "+
			"Useful for understanding branch structure before merging or switching.",
		s.getBranches)
}

func (s *Service) getBranches(ctx context.Context, input *RepoInput) (string, error) {
	noteOperation(ctx, policy.OpBranches)
	repo, msg, ok := s.open(ctx, input.RepoPath)
	if !ok {
		return msg, nil
	}
	branches, err := repo.Branches(ctx)
	if err != nil {
		return fail(ctx, err), nil
	}
	return succeed(ctx, renderBranches(branches)), nil
}

func renderBranches(branches []vcs.Branch) string {
	var local, remote []string
	for _, b := range branches {
		marker := "   "
		if b.Current {
			marker = " * "
		}
		if b.Remote {
			remote = append(remote, marker+b.Name)
		} else {
			local = append(local, marker+b.Name)
		}
	}
	lines := append([]string{"Local branches:"}, local...)
	if len(local) == 0 {
		lines = append(lines, "   (none)")
	}
	if len(remote) > 0 {
		lines = append(lines, "", "Remote branches:")
		lines = append(lines, remote...)
	}
	return strings.Join(lines, "\n")
}

func newGetRemotesTool(s *Service) (Tool, error) {
	return utils.InferTool("get_remotes",
		"List all remotes with their URLs. Useful for checking push/pull targets "+
			"and verifying private server configuration (SSH/HTTPS).",
		s.getRemotes)
}

func (s *Service) getRemotes(ctx context.Context, input *RepoInput) (string, error) {
	noteOperation(ctx, policy.OpRemotes)
	repo, msg, ok := s.open(ctx, input.RepoPath)
	if !ok {
		return msg, nil
	}
	remotes, err := repo.Remotes(ctx)
	if err != nil {
		return fail(ctx, err), nil
	}
	if len(remotes) == 0 {
		return succeed(ctx, "No remotes configured."), nil
	}
	lines := []string{"Remotes:"}
	for _, r := range remotes {
		if len(r.URLs) == 0 {
			lines = append(lines, fmt.Sprintf("  %s\t(no URLs)", r.Name))
			continue
		}
		for _, u := range r.URLs {
			lines = append(lines, fmt.Sprintf("  %s\t%s", r.Name, u))
		}
	}
	return succeed(ctx, strings.Join(lines, "\n")), nil
}

func newSuggestCommitMessageTool(s *Service) (Tool, error) {
	return utils.InferTool("suggest_commit_message",
		"Get the staged diff to help suggest a commit message. Returns the diff of staged changes "+
			"so the AI can propose a conventional commit message based on the changes.",
		s.suggestCommitMessage)
}

func (s *Service) suggestCommitMessage(ctx context.Context, input *RepoInput) (string, error) {
	noteOperation(ctx, policy.OpSuggestCommit)
	repo, msg, ok := s.open(ctx, input.RepoPath)
	if !ok {
		return msg, nil
	}
	stat, err := repo.StagedStat(ctx)
	if err != nil {
		return fail(ctx, err), nil
	}
	if strings.TrimSpace(stat) == "" {
		return succeed(ctx, "No staged changes. Use 'git add' to stage files first."), nil
	}
	if s.drafter == nil {
		return succeed(ctx, stat), nil
	}

	draft, err := s.draft(ctx, repo, stat)
	if err != nil {
		slog.Warn("commit message draft failed",
			"request_id", RequestIDFromContext(ctx),
			"error", err,
		)
		return succeed(ctx, stat), nil
	}
	return succeed(ctx, strings.TrimRight(stat, "\n")+"\n\nSuggested commit message:\n"+draft), nil
}

func (s *Service) draft(ctx context.Context, repo vcs.Repository, stat string) (string, error) {
	patch, err := repo.StagedPatch(ctx)
	if err != nil {
		return "", err
	}
	files, err := vcs.SummarizePatch(patch)
	if err != nil {
		return "", err
	}
	draft, err := s.drafter.DraftCommitMessage(ctx, stat, files, patch)
	if err != nil {
		return "", err
	}
	draft = strings.TrimSpace(draft)
	if draft == "" {
		return "", fmt.Errorf("drafter returned an empty message")
	}
	return draft, nil
}
