package policy

// Environment keys sampled by Load.
const (
	EnvAllowedActions    = "GIT_MIND_ALLOWED_ACTIONS"
	EnvProtectedBranches = "GIT_MIND_PROTECTED_BRANCHES"
	EnvStrictMode        = "GIT_MIND_STRICT_MODE"
)

// Operation names checked against the allow-list.
const (
	OpStatus        = "status"
	OpLog           = "log"
	OpDiff          = "diff"
	OpBlame         = "blame"
	OpBranches      = "branches"
	OpRemotes       = "remotes"
	OpSuggestCommit = "suggest_commit_message"
	OpStage         = "stage"
	OpUnstage       = "unstage"
	OpCommit        = "commit"
	OpPush          = "push"
	OpPull          = "pull"
	OpCheckout      = "checkout"
	OpCreateBranch  = "create_branch"
	OpDeleteBranch  = "delete_branch"
	OpMerge         = "merge"
	OpStash         = "stash"
	OpFetch         = "fetch"
	OpReset         = "reset"
	OpCherryPick    = "cherry_pick"
	OpRevert        = "revert"
	OpTag           = "tag"
)

// mutatingOperations are gated by the allow-list, listed in tool order.
var mutatingOperations = []string{
	OpStage, OpUnstage, OpCommit, OpPush, OpPull, OpCheckout, OpCreateBranch,
	OpDeleteBranch, OpMerge, OpStash, OpFetch, OpReset, OpCherryPick, OpRevert, OpTag,
}

// MutatingOperations returns the operations the allow-list applies to.
func MutatingOperations() []string {
	return append([]string(nil), mutatingOperations...)
}

var (
	defaultAllowedActions    = []string{OpStage, OpUnstage, OpCommit}
	defaultProtectedBranches = []string{"main", "master"}
)

// Config is the immutable policy derived once per process.
type Config struct {
	AllowedActions    []string `json:"allowed_actions" yaml:"allowed_actions"`
	ProtectedBranches []string `json:"protected_branches" yaml:"protected_branches"`
	StrictMode        bool     `json:"strict_mode" yaml:"strict_mode"`
}

// GuardResult is the outcome of a single guard check.
// Reason is set only when Allowed is false.
type GuardResult struct {
	Allowed bool
	Reason  string
}

// Protection classifies what a protected branch blocks for an operation.
type Protection int

const (
	// ProtectNone means the operation never consults the protected set.
	ProtectNone Protection = iota
	// ProtectAlways denies the operation whenever its target branch is protected.
	ProtectAlways
	// ProtectForceOnly denies only the force variant on a protected branch.
	ProtectForceOnly
)

// BranchTarget says which branch an operation acts on.
type BranchTarget int

const (
	TargetNone BranchTarget = iota
	// TargetCurrent operations rewrite or extend the checked-out branch.
	TargetCurrent
	// TargetNamed operations act on a branch named in the arguments.
	TargetNamed
)

// Rule is one row of the protected-branch rule table.
type Rule struct {
	Target     BranchTarget
	Protection Protection
	// Verb is used in denial messages, e.g. "merge into".
	Verb string
}
