package policy

import (
	"os"
	"strings"
	"sync"
)

// Lookup returns the raw value of a configuration key.
type Lookup func(key string) (string, bool)

// Load builds a Config from the three raw policy inputs. It never fails:
// absent or empty inputs degrade to defaults.
func Load(lookup Lookup) Config {
	if lookup == nil {
		lookup = func(string) (string, bool) { return "", false }
	}
	allowedRaw, _ := lookup(EnvAllowedActions)
	protectedRaw, _ := lookup(EnvProtectedBranches)
	strictRaw, _ := lookup(EnvStrictMode)
	return FromRaw(allowedRaw, protectedRaw, strictRaw)
}

// FromRaw builds a Config from raw strings.
func FromRaw(allowedActions, protectedBranches, strictMode string) Config {
	cfg := Config{
		AllowedActions:    ParseList(allowedActions),
		ProtectedBranches: ParseList(protectedBranches),
		StrictMode:        ParseStrict(strictMode),
	}
	// An input made only of separators counts as set but yields nothing;
	// keep the documented defaults in that case too.
	if len(cfg.AllowedActions) == 0 {
		cfg.AllowedActions = append([]string(nil), defaultAllowedActions...)
	}
	if len(cfg.ProtectedBranches) == 0 {
		cfg.ProtectedBranches = append([]string(nil), defaultProtectedBranches...)
	}
	return cfg
}

// ParseList splits a comma separated list, trimming elements and dropping
// empty ones. Order and duplicates are preserved.
func ParseList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

// ParseStrict reports whether raw enables strict mode.
func ParseStrict(raw string) bool {
	return raw == "1" || strings.EqualFold(raw, "true")
}

// Default returns the policy used when nothing is configured.
func Default() Config {
	return FromRaw("", "", "")
}

var (
	processMu     sync.Mutex
	processConfig *Config
)

// Process returns the policy sampled from the process environment on first
// use. Later environment changes are not observed.
func Process() Config {
	processMu.Lock()
	defer processMu.Unlock()
	if processConfig == nil {
		cfg := Load(os.LookupEnv)
		processConfig = &cfg
	}
	return *processConfig
}

// resetProcess drops the cached process policy. Tests only.
func resetProcess() {
	processMu.Lock()
	processConfig = nil
	processMu.Unlock()
}
