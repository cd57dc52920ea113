package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/MEKXH/gitmind/internal/policy"
	"github.com/MEKXH/gitmind/internal/tools"
	"github.com/MEKXH/gitmind/internal/vcs"
	"github.com/charmbracelet/glamour"
	"github.com/cloudwego/eino/schema"
	"github.com/spf13/cobra"
)

func NewToolsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the git tools served over MCP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			raw, _ := cmd.Flags().GetBool("raw")

			svc, err := tools.NewService(tools.Options{
				Opener: &vcs.GitOpener{Binary: cfg.Git.Binary},
				Policy: policy.NewEvaluator(cfg.PolicyConfig()),
			})
			if err != nil {
				return err
			}
			reg := tools.NewRegistry()
			if err := svc.RegisterAll(reg); err != nil {
				return err
			}
			doc, err := toolsMarkdown(cmd.Context(), reg, svc.Policy())
			if err != nil {
				return err
			}
			return writeMarkdown(cmd.OutOrStdout(), doc, raw)
		},
	}
	cmd.Flags().Bool("raw", false, "Print markdown without terminal rendering")
	return cmd
}

type paramSchema struct {
	Properties map[string]struct {
		Type        string `json:"type"`
		Description string `json:"description"`
		Enum        []any  `json:"enum"`
	} `json:"properties"`
	Required []string `json:"required"`
}

func toolsMarkdown(ctx context.Context, reg *tools.Registry, ev *policy.Evaluator) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	infos, err := reg.Infos(ctx)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Git tools (%d)\n\n", len(infos))
	for _, info := range infos {
		fmt.Fprintf(&sb, "## %s\n\n", info.Name)
		// Mutating tools share their name with the operation they are
		// authorized as.
		if isMutating(info.Name) {
			state := "denied by allow-list"
			if ev.OperationAllowed(info.Name).Allowed {
				state = "allowed"
			}
			fmt.Fprintf(&sb, "*%s*\n\n", state)
		}
		sb.WriteString(info.Desc)
		sb.WriteString("\n\n")

		params, err := paramsOf(info)
		if err != nil {
			return "", fmt.Errorf("%s: %w", info.Name, err)
		}
		if len(params.Properties) == 0 {
			continue
		}
		required := make(map[string]bool, len(params.Required))
		for _, name := range params.Required {
			required[name] = true
		}
		names := make([]string, 0, len(params.Properties))
		for name := range params.Properties {
			names = append(names, name)
		}
		sort.Strings(names)

		sb.WriteString("| Parameter | Type | Required | Description |\n|---|---|---|---|\n")
		for _, name := range names {
			p := params.Properties[name]
			desc := p.Description
			if len(p.Enum) > 0 {
				values := make([]string, 0, len(p.Enum))
				for _, v := range p.Enum {
					values = append(values, fmt.Sprint(v))
				}
				desc = strings.TrimSpace(desc + " (one of " + strings.Join(values, "/") + ")")
			}
			req := ""
			if required[name] {
				req = "yes"
			}
			fmt.Fprintf(&sb, "| `%s` | %s | %s | %s |\n", name, p.Type, req, desc)
		}
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func paramsOf(info *schema.ToolInfo) (paramSchema, error) {
	var out paramSchema
	if info.ParamsOneOf == nil {
		return out, nil
	}
	js, err := info.ParamsOneOf.ToJSONSchema()
	if err != nil || js == nil {
		return out, err
	}
	raw, err := json.Marshal(js)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(raw, &out)
	return out, err
}

func isMutating(op string) bool {
	for _, m := range policy.MutatingOperations() {
		if m == op {
			return true
		}
	}
	return false
}

func writeMarkdown(w io.Writer, doc string, raw bool) error {
	if raw {
		_, err := io.WriteString(w, doc)
		return err
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return fmt.Errorf("create markdown renderer: %w", err)
	}
	out, err := renderer.Render(doc)
	if err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}
