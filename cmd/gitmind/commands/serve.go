package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MEKXH/gitmind/internal/audit"
	"github.com/MEKXH/gitmind/internal/config"
	"github.com/MEKXH/gitmind/internal/mcp"
	"github.com/MEKXH/gitmind/internal/metrics"
	"github.com/MEKXH/gitmind/internal/policy"
	"github.com/MEKXH/gitmind/internal/provider"
	"github.com/MEKXH/gitmind/internal/tools"
	"github.com/MEKXH/gitmind/internal/vcs"
	"github.com/spf13/cobra"
)

const metricsShutdownTimeout = 5 * time.Second

func NewServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve [repo]",
		Short: "Serve git tools over MCP stdio",
		Long: `Serve git tools over MCP stdio.
The optional repo argument sets the repository used when a call omits repo_path.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts, args)
		},
	}
}

func runServe(cmd *cobra.Command, opts *rootOptions, args []string) error {
	cfg, err := opts.config()
	if err != nil {
		return err
	}
	if len(args) == 1 {
		cfg.RepoPath = args[0]
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = serve(ctx, cfg, cmd.InOrStdin(), cmd.OutOrStdout())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// serve runs the MCP server until in reaches EOF or ctx is done.
func serve(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer) error {
	reg, cleanup, err := buildRegistry(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	logPolicyStartup(cfg.PolicyConfig())
	slog.Info("mcp server starting",
		"name", mcp.ServerName,
		"repo", cfg.RepoPath,
		"tools", len(reg.List()),
	)

	server := mcp.NewServer(reg, mcp.Options{})
	return server.Serve(ctx, in, out)
}

// buildRegistry wires the git tools and the call observers selected by cfg.
// The returned cleanup stops anything started here.
func buildRegistry(ctx context.Context, cfg *config.Config) (*tools.Registry, func(), error) {
	opts := tools.Options{
		Opener: &vcs.GitOpener{
			Binary:         cfg.Git.Binary,
			Timeout:        cfg.Git.Timeout,
			NetworkTimeout: cfg.Git.NetworkTimeout,
			DefaultPath:    cfg.RepoPath,
		},
		Policy: policy.NewEvaluator(cfg.PolicyConfig()),
	}

	drafter, err := provider.NewDrafterFromConfig(ctx, cfg.Suggest)
	if err != nil {
		slog.Warn("commit message drafting disabled", "provider", cfg.Suggest.Provider, "error", err)
	} else if drafter != nil {
		opts.Drafter = drafter
	}

	svc, err := tools.NewService(opts)
	if err != nil {
		return nil, nil, err
	}
	reg := tools.NewRegistry()
	if err := svc.RegisterAll(reg); err != nil {
		return nil, nil, fmt.Errorf("failed to register tools: %w", err)
	}

	cleanup := func() {}

	if cfg.Audit.Enabled {
		reg.Observe(audit.NewWriter(cfg.Audit.Path))
		slog.Info("audit log enabled", "path", cfg.Audit.Path)
	}
	if cfg.Metrics.StateDir != "" {
		reg.Observe(metrics.NewRuntimeMetrics(cfg.Metrics.StateDir))
	}
	if cfg.Metrics.Listen != "" {
		collector := metrics.NewCollector(nil)
		reg.Observe(collector)
		shutdown, err := startMetricsServer(cfg.Metrics.Listen, collector)
		if err != nil {
			return nil, nil, err
		}
		cleanup = shutdown
	}

	return reg, cleanup, nil
}

func startMetricsServer(addr string, collector *metrics.Collector) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen metrics %s: %w", addr, err)
	}
	srv := &http.Server{
		Handler:           collector.NewServeMux(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server stopped", "error", err)
		}
	}()
	slog.Info("metrics endpoint listening", "addr", ln.Addr().String())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			slog.Warn("metrics server shutdown failed", "error", err)
		}
	}, nil
}

func logPolicyStartup(p policy.Config) {
	slog.Info("git policy configured",
		"allowed_actions", p.AllowedActions,
		"protected_branches", p.ProtectedBranches,
		"strict_mode", p.StrictMode,
	)
	if p.StrictMode {
		slog.Info("strict mode enabled: force operations are refused")
	}
}
