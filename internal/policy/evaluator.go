package policy

import (
	"fmt"
	"strings"
)

// Evaluator performs pure policy decisions against one Config.
type Evaluator struct {
	cfg       Config
	allowed   map[string]struct{}
	protected map[string]struct{}
}

// NewEvaluator builds a deterministic, side-effect free evaluator.
func NewEvaluator(cfg Config) *Evaluator {
	allowed := make(map[string]struct{}, len(cfg.AllowedActions))
	for _, name := range cfg.AllowedActions {
		if n := normalizeName(name); n != "" {
			allowed[n] = struct{}{}
		}
	}
	protected := make(map[string]struct{}, len(cfg.ProtectedBranches))
	for _, name := range cfg.ProtectedBranches {
		if n := normalizeName(name); n != "" {
			protected[n] = struct{}{}
		}
	}
	return &Evaluator{cfg: cfg, allowed: allowed, protected: protected}
}

// Config returns the policy the evaluator was built from.
func (e *Evaluator) Config() Config {
	return e.cfg
}

// OperationAllowed reports whether operation is on the allow-list.
func (e *Evaluator) OperationAllowed(operation string) GuardResult {
	if _, ok := e.allowed[strings.ToLower(operation)]; ok {
		return GuardResult{Allowed: true}
	}
	return GuardResult{
		Allowed: false,
		Reason: fmt.Sprintf("Operation '%s' is not in allowed actions. Set %s to enable it (current: %s).",
			operation, EnvAllowedActions, strings.Join(e.cfg.AllowedActions, ", ")),
	}
}

// BranchProtected reports whether branch exactly matches a protected name,
// ignoring case and surrounding whitespace.
func (e *Evaluator) BranchProtected(branch string) bool {
	_, ok := e.protected[normalizeName(branch)]
	return ok
}

// ForceAllowed reports whether force variants may run.
func (e *Evaluator) ForceAllowed() GuardResult {
	if e.cfg.StrictMode {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("Force operations are disabled (%s=1).", EnvStrictMode),
		}
	}
	return GuardResult{Allowed: true}
}

// CheckBranch applies the protected-branch rule for operation to branch.
// branch must already be in local form.
func (e *Evaluator) CheckBranch(operation, branch string, force bool) GuardResult {
	rule := RuleFor(operation)
	if rule.Protection == ProtectNone || !e.BranchProtected(branch) {
		return GuardResult{Allowed: true}
	}
	if rule.Protection == ProtectForceOnly && !force {
		return GuardResult{Allowed: true}
	}
	return GuardResult{Allowed: false, Reason: protectedReason(rule, branch)}
}

func protectedReason(rule Rule, branch string) string {
	if rule.Target == TargetNamed {
		return fmt.Sprintf("Cannot %s protected branch '%s'. Protected branches are configured in %s.",
			rule.Verb, branch, EnvProtectedBranches)
	}
	return fmt.Sprintf("Cannot %s protected branch '%s'. Checkout a different branch first, or adjust %s.",
		rule.Verb, branch, EnvProtectedBranches)
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
