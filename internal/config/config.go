package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/MEKXH/gitmind/internal/policy"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "GIT_MIND"

// Config represents the gitmind process configuration.
type Config struct {
	Policy   PolicyConfig  `json:"policy" mapstructure:"policy"`
	RepoPath string        `json:"repo_path" mapstructure:"repo_path"`
	Git      GitConfig     `json:"git" mapstructure:"git"`
	Log      LogConfig     `json:"log" mapstructure:"log"`
	Audit    AuditConfig   `json:"audit" mapstructure:"audit"`
	Metrics  MetricsConfig `json:"metrics" mapstructure:"metrics"`
	Suggest  SuggestConfig `json:"suggest" mapstructure:"suggest"`
}

// PolicyConfig holds the raw policy inputs. They are parsed by
// policy.FromRaw so that file and environment values share one grammar.
type PolicyConfig struct {
	AllowedActions    string `json:"allowed_actions" mapstructure:"allowed_actions"`
	ProtectedBranches string `json:"protected_branches" mapstructure:"protected_branches"`
	StrictMode        string `json:"strict_mode" mapstructure:"strict_mode"`
}

// GitConfig controls how the git binary is run.
type GitConfig struct {
	Binary         string        `json:"binary" mapstructure:"binary"`
	Timeout        time.Duration `json:"timeout" mapstructure:"timeout"`
	NetworkTimeout time.Duration `json:"network_timeout" mapstructure:"network_timeout"`
}

// LogConfig for logging settings
type LogConfig struct {
	Level string `json:"level" mapstructure:"level"`
	File  string `json:"file" mapstructure:"file"`
}

// AuditConfig for the call audit log
type AuditConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Path    string `json:"path" mapstructure:"path"`
}

// MetricsConfig for runtime metrics and the Prometheus endpoint.
// Both are disabled when empty.
type MetricsConfig struct {
	StateDir string `json:"state_dir" mapstructure:"state_dir"`
	Listen   string `json:"listen" mapstructure:"listen"`
}

// SuggestConfig selects the chat model used to draft commit messages.
type SuggestConfig struct {
	Provider  string `json:"provider" mapstructure:"provider"`
	Model     string `json:"model" mapstructure:"model"`
	APIKey    string `json:"api_key" mapstructure:"api_key"`
	BaseURL   string `json:"base_url" mapstructure:"base_url"`
	MaxTokens int    `json:"max_tokens" mapstructure:"max_tokens"`
}

// Enabled reports whether a provider is configured.
func (s SuggestConfig) Enabled() bool {
	return strings.TrimSpace(s.Provider) != ""
}

var validProviders = map[string]bool{
	"openai": true,
	"claude": true,
	"ollama": true,
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Policy: PolicyConfig{
			AllowedActions:    "stage,unstage,commit",
			ProtectedBranches: "main,master",
		},
		Git: GitConfig{
			Binary:         "git",
			Timeout:        60 * time.Second,
			NetworkTimeout: 5 * time.Minute,
		},
		Log: LogConfig{
			Level: "info",
		},
		Audit: AuditConfig{
			Path: filepath.Join(ConfigDir(), "state", "audit.jsonl"),
		},
		Suggest: SuggestConfig{
			MaxTokens: 256,
		},
	}
}

// ConfigDir returns the gitmind config directory
func ConfigDir() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".gitmind")
}

// ConfigPath returns the default config file path
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

// Load reads configuration from defaults, an optional JSON file and the
// environment, in increasing precedence. An empty path means the default
// config file, which may be absent. A path given explicitly must exist.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	setDefaults(v, cfg)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Policy keys keep their historical names without the section.
	_ = v.BindEnv("policy.allowed_actions", policy.EnvAllowedActions)
	_ = v.BindEnv("policy.protected_branches", policy.EnvProtectedBranches)
	_ = v.BindEnv("policy.strict_mode", policy.EnvStrictMode)

	configPath := path
	if configPath == "" {
		configPath = ConfigPath()
		if _, err := os.Stat(configPath); err != nil {
			configPath = ""
		}
	}
	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return cfg, fmt.Errorf("read config %s: %w", configPath, err)
		}
	}

	if err := v.Unmarshal(cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.MatchName = func(mapKey, fieldName string) bool {
			return normalizeKey(mapKey) == normalizeKey(fieldName)
		}
	}); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("policy.allowed_actions", cfg.Policy.AllowedActions)
	v.SetDefault("policy.protected_branches", cfg.Policy.ProtectedBranches)
	v.SetDefault("policy.strict_mode", cfg.Policy.StrictMode)
	v.SetDefault("repo_path", cfg.RepoPath)
	v.SetDefault("git.binary", cfg.Git.Binary)
	v.SetDefault("git.timeout", cfg.Git.Timeout)
	v.SetDefault("git.network_timeout", cfg.Git.NetworkTimeout)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.file", cfg.Log.File)
	v.SetDefault("audit.enabled", cfg.Audit.Enabled)
	v.SetDefault("audit.path", cfg.Audit.Path)
	v.SetDefault("metrics.state_dir", cfg.Metrics.StateDir)
	v.SetDefault("metrics.listen", cfg.Metrics.Listen)
	v.SetDefault("suggest.provider", cfg.Suggest.Provider)
	v.SetDefault("suggest.model", cfg.Suggest.Model)
	v.SetDefault("suggest.api_key", cfg.Suggest.APIKey)
	v.SetDefault("suggest.base_url", cfg.Suggest.BaseURL)
	v.SetDefault("suggest.max_tokens", cfg.Suggest.MaxTokens)
}

func normalizeKey(input string) string {
	input = strings.ReplaceAll(input, "_", "")
	input = strings.ReplaceAll(input, "-", "")
	return strings.ToLower(input)
}

// Validate checks that the configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	level := strings.ToLower(strings.TrimSpace(c.Log.Level))
	if level == "" {
		c.Log.Level = "info"
	} else {
		validLevels := map[string]bool{
			"debug": true,
			"info":  true,
			"warn":  true,
			"error": true,
		}
		if !validLevels[level] {
			return fmt.Errorf("log.level must be one of debug, info, warn, error; got %q", c.Log.Level)
		}
		c.Log.Level = level
	}

	if strings.TrimSpace(c.Git.Binary) == "" {
		c.Git.Binary = "git"
	}
	if c.Git.Timeout <= 0 {
		return fmt.Errorf("git.timeout must be > 0, got %s", c.Git.Timeout)
	}
	if c.Git.NetworkTimeout <= 0 {
		return fmt.Errorf("git.network_timeout must be > 0, got %s", c.Git.NetworkTimeout)
	}

	if c.Audit.Enabled && strings.TrimSpace(c.Audit.Path) == "" {
		return fmt.Errorf("audit.path must be non-empty when audit is enabled")
	}

	if listen := strings.TrimSpace(c.Metrics.Listen); listen != "" {
		if _, _, err := net.SplitHostPort(listen); err != nil {
			return fmt.Errorf("metrics.listen must be host:port, got %q", c.Metrics.Listen)
		}
	}

	provider := strings.ToLower(strings.TrimSpace(c.Suggest.Provider))
	if provider != "" && !validProviders[provider] {
		return fmt.Errorf("suggest.provider must be one of openai, claude, ollama; got %q", c.Suggest.Provider)
	}
	c.Suggest.Provider = provider
	if c.Suggest.MaxTokens < 0 {
		return fmt.Errorf("suggest.max_tokens must not be negative, got %d", c.Suggest.MaxTokens)
	}

	return nil
}

// PolicyConfig parses the raw policy inputs.
func (c *Config) PolicyConfig() policy.Config {
	return policy.FromRaw(c.Policy.AllowedActions, c.Policy.ProtectedBranches, c.Policy.StrictMode)
}
