package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/MEKXH/gitmind/internal/config"
	"github.com/MEKXH/gitmind/internal/mcp"
)

var (
	loggerMu      sync.Mutex
	activeLogFile *os.File
)

// configureLogger installs the default slog logger. stdout carries the
// protocol, so logs go to log.file or stderr.
func configureLogger(cfg *config.Config, overrideLevel string) error {
	level, err := parseLogLevel(cfg.Log.Level, overrideLevel)
	if err != nil {
		return err
	}

	loggerMu.Lock()
	defer loggerMu.Unlock()

	writer, err := logOutput(strings.TrimSpace(cfg.Log.File))
	if err != nil {
		return err
	}

	handler := slog.NewTextHandler(writer, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler).With("service", mcp.ServerName))
	return nil
}

// logOutput opens path for appending, reusing the file already open for
// the same path. Callers hold loggerMu.
func logOutput(path string) (io.Writer, error) {
	if activeLogFile != nil && activeLogFile.Name() != path {
		_ = activeLogFile.Close()
		activeLogFile = nil
	}
	if path == "" {
		return os.Stderr, nil
	}
	if activeLogFile != nil {
		return activeLogFile, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	activeLogFile = f
	return f, nil
}

func parseLogLevel(configLevel, override string) (slog.Level, error) {
	raw := strings.TrimSpace(override)
	if raw == "" {
		raw = strings.TrimSpace(configLevel)
	}
	if raw == "" {
		return slog.LevelInfo, nil
	}
	if strings.EqualFold(raw, "warning") {
		raw = "warn"
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return 0, fmt.Errorf("invalid log level: %s", raw)
	}
	return level, nil
}
