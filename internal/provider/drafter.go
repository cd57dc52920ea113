package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/MEKXH/gitmind/internal/config"
	"github.com/MEKXH/gitmind/internal/vcs"
)

// maxPatchBytes bounds the patch sent to the model.
const maxPatchBytes = 12000

const systemPrompt = `You write git commit messages.
Reply with the commit message only: a summary line of at most 72 characters in the imperative mood,
optionally followed by a blank line and a short body. Do not wrap the reply in quotes or code fences.`

// Drafter asks a chat model for a commit message describing staged changes.
type Drafter struct {
	model model.BaseChatModel
}

// NewDrafter wraps m.
func NewDrafter(m model.BaseChatModel) *Drafter {
	return &Drafter{model: m}
}

// NewDrafterFromConfig builds a Drafter for cfg. It returns nil and no
// error when no provider is configured.
func NewDrafterFromConfig(ctx context.Context, cfg config.SuggestConfig) (*Drafter, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	m, err := NewChatModel(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewDrafter(m), nil
}

// DraftCommitMessage proposes a commit message for the staged changes.
func (d *Drafter) DraftCommitMessage(ctx context.Context, stat string, files []vcs.FileStat, patch string) (string, error) {
	resp, err := d.model.Generate(ctx, []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(buildPrompt(stat, files, patch)),
	})
	if err != nil {
		return "", fmt.Errorf("generate commit message: %w", err)
	}
	if resp == nil {
		return "", fmt.Errorf("generate commit message: empty response")
	}
	return cleanMessage(resp.Content), nil
}

func buildPrompt(stat string, files []vcs.FileStat, patch string) string {
	var sb strings.Builder
	sb.WriteString("Staged changes:\n")
	sb.WriteString(strings.TrimRight(stat, "\n"))
	sb.WriteString("\n")

	if len(files) > 0 {
		sb.WriteString("\nFiles:\n")
		for _, f := range files {
			fmt.Fprintf(&sb, "- %s (+%d -%d)\n", f.Path, f.Insertions, f.Deletions)
		}
	}

	if patch != "" {
		truncated := false
		if len(patch) > maxPatchBytes {
			patch = patch[:maxPatchBytes]
			truncated = true
		}
		sb.WriteString("\nPatch:\n")
		sb.WriteString(patch)
		if !strings.HasSuffix(patch, "\n") {
			sb.WriteString("\n")
		}
		if truncated {
			sb.WriteString("[patch truncated]\n")
		}
	}
	return sb.String()
}

// cleanMessage strips code fences and surrounding whitespace.
func cleanMessage(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
		if idx := strings.Index(content, "\n"); idx >= 0 {
			content = content[idx+1:]
		} else {
			content = ""
		}
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	}
	return strings.TrimSpace(content)
}
