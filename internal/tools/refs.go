package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool/utils"

	"github.com/MEKXH/gitmind/internal/policy"
	"github.com/MEKXH/gitmind/internal/vcs"
)

const defaultStashRef = "stash@{0}"

type StashInput struct {
	RepoPath string `json:"repoPath,omitempty" jsonschema:"description=Path to the git repository"`
	Action   string `json:"action" jsonschema:"required,description=push stashes the working tree; pop applies and removes a stash; list shows stashes,enum=push,enum=pop,enum=list"`
	Message  string `json:"message,omitempty" jsonschema:"description=Optional message for stash push (e.g. 'WIP: feature work')"`
	Ref      string `json:"ref,omitempty" jsonschema:"description=Stash ref for pop (e.g. stash@{1}); defaults to stash@{0}"`
}

type TagInput struct {
	RepoPath string `json:"repoPath,omitempty" jsonschema:"description=Path to the git repository"`
	Action   string `json:"action" jsonschema:"required,description=list shows all tags; create adds a tag at current HEAD,enum=list,enum=create"`
	Name     string `json:"name,omitempty" jsonschema:"description=Tag name for create (e.g. v1.0.0)"`
	Message  string `json:"message,omitempty" jsonschema:"description=Message for annotated tag (omit for lightweight tag)"`
}

func newStashTool(s *Service) (Tool, error) {
	return utils.InferTool("stash",
		"Stash working changes (push), apply and remove a stash (pop), or list stashes. "+
			"Equivalent to git stash push/pop/list.",
		s.stash)
}

func (s *Service) stash(ctx context.Context, input *StashInput) (string, error) {
	action := strings.ToLower(strings.TrimSpace(input.Action))
	switch action {
	case "push", "list":
	case "pop":
		if err := validateRef("ref", input.Ref); err != nil {
			return "", err
		}
	default:
		return "", invalid("action", "must be one of push, pop or list")
	}

	if msg, ok := s.authorize(ctx, policy.OpStash); !ok {
		return msg, nil
	}
	repo, msg, ok := s.open(ctx, input.RepoPath)
	if !ok {
		return msg, nil
	}

	switch action {
	case "list":
		entries, err := repo.StashList(ctx)
		if err != nil {
			return fail(ctx, err), nil
		}
		return succeed(ctx, renderStashList(entries)), nil
	case "push":
		saved, err := repo.StashPush(ctx, input.Message)
		if err != nil {
			return fail(ctx, err), nil
		}
		if !saved {
			return succeed(ctx, "No local changes to save."), nil
		}
		if input.Message != "" {
			return succeed(ctx, fmt.Sprintf("Stashed working changes with message %q.", input.Message)), nil
		}
		return succeed(ctx, "Stashed working changes."), nil
	default:
		ref := input.Ref
		if ref == "" {
			ref = defaultStashRef
		}
		if err := repo.StashPop(ctx, ref); err != nil {
			return fail(ctx, err), nil
		}
		return succeed(ctx, fmt.Sprintf("Applied and removed %s.", ref)), nil
	}
}

func renderStashList(entries []vcs.StashEntry) string {
	if len(entries) == 0 {
		return "No stashes."
	}
	lines := make([]string, 0, len(entries)+1)
	lines = append(lines, fmt.Sprintf("Stashes (%d):", len(entries)))
	for i, e := range entries {
		hash := vcs.ShortHash(e.Hash)
		if hash == "" {
			hash = "?"
		}
		msg := e.Message
		if msg == "" {
			msg = "(no message)"
		}
		lines = append(lines, fmt.Sprintf("  stash@{%d}: %s %s", i, hash, msg))
	}
	return strings.Join(lines, "\n")
}

func newTagTool(s *Service) (Tool, error) {
	return utils.InferTool("tag",
		"List tags or create a tag at current HEAD. "+
			"Equivalent to git tag -l and git tag <name> or git tag -a <name> -m <message>.",
		s.tag)
}

func (s *Service) tag(ctx context.Context, input *TagInput) (string, error) {
	action := strings.ToLower(strings.TrimSpace(input.Action))
	switch action {
	case "list":
	case "create":
		if input.Name == "" {
			return "", invalid("name", "tag name required for create")
		}
		if err := validateRef("name", input.Name); err != nil {
			return "", err
		}
	default:
		return "", invalid("action", "must be one of list or create")
	}

	if msg, ok := s.authorize(ctx, policy.OpTag); !ok {
		return msg, nil
	}
	repo, msg, ok := s.open(ctx, input.RepoPath)
	if !ok {
		return msg, nil
	}

	if action == "list" {
		tags, err := repo.Tags(ctx)
		if err != nil {
			return fail(ctx, err), nil
		}
		if len(tags) == 0 {
			return succeed(ctx, "No tags."), nil
		}
		lines := []string{fmt.Sprintf("Tags (%d):", len(tags))}
		for _, t := range tags {
			lines = append(lines, "  "+t)
		}
		return succeed(ctx, strings.Join(lines, "\n")), nil
	}

	if err := repo.CreateTag(ctx, input.Name, input.Message); err != nil {
		return fail(ctx, err), nil
	}
	if input.Message != "" {
		return succeed(ctx, fmt.Sprintf("Created annotated tag '%s' with message.", input.Name)), nil
	}
	return succeed(ctx, fmt.Sprintf("Created lightweight tag '%s'.", input.Name)), nil
}
