package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/MEKXH/gitmind/internal/policy"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func NewPolicyCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Inspect the effective git policy",
	}
	cmd.AddCommand(newPolicyShowCmd(opts))
	return cmd
}

func newPolicyShowCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show allowed actions, protected branches and strict mode",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			format, _ := cmd.Flags().GetString("output")
			return writePolicyReport(cmd.OutOrStdout(), newPolicyReport(cfg.PolicyConfig()), format)
		},
	}
	cmd.Flags().StringP("output", "o", "text", "Output format (text|json|yaml)")
	return cmd
}

type policyReport struct {
	AllowedActions    []string          `json:"allowed_actions" yaml:"allowed_actions"`
	ProtectedBranches []string          `json:"protected_branches" yaml:"protected_branches"`
	StrictMode        bool              `json:"strict_mode" yaml:"strict_mode"`
	Operations        []operationReport `json:"operations" yaml:"operations"`
}

type operationReport struct {
	Name    string `json:"name" yaml:"name"`
	Allowed bool   `json:"allowed" yaml:"allowed"`
	// Protection is "always", "force" or empty.
	Protection string `json:"protection,omitempty" yaml:"protection,omitempty"`
}

func newPolicyReport(cfg policy.Config) policyReport {
	ev := policy.NewEvaluator(cfg)
	report := policyReport{
		AllowedActions:    cfg.AllowedActions,
		ProtectedBranches: cfg.ProtectedBranches,
		StrictMode:        cfg.StrictMode,
	}
	for _, op := range policy.MutatingOperations() {
		entry := operationReport{Name: op, Allowed: ev.OperationAllowed(op).Allowed}
		switch policy.RuleFor(op).Protection {
		case policy.ProtectAlways:
			entry.Protection = "always"
		case policy.ProtectForceOnly:
			entry.Protection = "force"
		}
		report.Operations = append(report.Operations, entry)
	}
	return report
}

func writePolicyReport(w io.Writer, report policyReport, format string) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return err
		}
		return enc.Close()
	case "", "text":
		return renderPolicyText(w, report)
	default:
		return fmt.Errorf("unknown output format %q (want text, json or yaml)", format)
	}
}

func renderPolicyText(w io.Writer, report policyReport) error {
	var (
		headerStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#FAFAFA")).
				Background(lipgloss.Color("#8E4EC6")).
				Padding(0, 1).
				MarginBottom(1)
		labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8E4EC6")).Bold(true).Width(20)
		nameStyle    = lipgloss.NewStyle().Width(16).MarginRight(1)
		allowedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#2E8B57")).Width(9)
		deniedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Width(9)
		noteStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	)

	var sb strings.Builder
	sb.WriteString(headerStyle.Render("Git Policy"))
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "%s%s\n", labelStyle.Render("allowed actions"), strings.Join(report.AllowedActions, ", "))
	fmt.Fprintf(&sb, "%s%s\n", labelStyle.Render("protected branches"), strings.Join(report.ProtectedBranches, ", "))
	fmt.Fprintf(&sb, "%s%t\n\n", labelStyle.Render("strict mode"), report.StrictMode)

	for _, op := range report.Operations {
		status := deniedStyle.Render("denied")
		if op.Allowed {
			status = allowedStyle.Render("allowed")
		}
		note := ""
		switch op.Protection {
		case "always":
			note = noteStyle.Render("refused on protected branches")
		case "force":
			note = noteStyle.Render("force refused on protected branches")
		}
		line := lipgloss.JoinHorizontal(lipgloss.Top, nameStyle.Render(op.Name), status, note)
		fmt.Fprintf(&sb, "  %s\n", strings.TrimRight(line, " "))
	}

	_, err := io.WriteString(w, sb.String())
	return err
}
