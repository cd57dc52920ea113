package commands

import (
	"fmt"

	"github.com/MEKXH/gitmind/internal/config"
	"github.com/spf13/cobra"
)

// rootOptions carries the persistent flags and the configuration loaded
// once before any command runs.
type rootOptions struct {
	configPath       string
	logLevelOverride string
	cfg              *config.Config
}

func (o *rootOptions) config() (*config.Config, error) {
	if o.cfg != nil {
		return o.cfg, nil
	}
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	o.cfg = cfg
	return cfg, nil
}

// NewRootCmd creates the root command. Without a subcommand it serves the
// MCP protocol over stdio.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "gitmind [repo]",
		Short: "git-mind-mcp - policy guarded git tools over MCP",
		Long: `gitmind exposes git operations to MCP clients over stdio.
Every mutating tool passes an allow-list and protected branch guard first.`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			return configureLogger(cfg, opts.logLevelOverride)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts, args)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (default ~/.gitmind/config.json)")
	cmd.PersistentFlags().StringVar(&opts.logLevelOverride, "log-level", "", "Override log level (debug|info|warn|error)")

	cmd.AddCommand(
		NewServeCmd(opts),
		NewPolicyCmd(opts),
		NewToolsCmd(opts),
		NewVersionCmd(),
	)

	return cmd
}
