package policy

import "strings"

// protectionRules lists every operation that consults the protected set.
//
// A plain push to a protected branch is allowed: protection blocks history
// rewriting and destructive operations, not ordinary forward pushes.
var protectionRules = map[string]Rule{
	OpCommit:       {Target: TargetCurrent, Protection: ProtectAlways, Verb: "commit directly to"},
	OpCherryPick:   {Target: TargetCurrent, Protection: ProtectAlways, Verb: "cherry-pick into"},
	OpMerge:        {Target: TargetCurrent, Protection: ProtectAlways, Verb: "merge into"},
	OpRevert:       {Target: TargetCurrent, Protection: ProtectAlways, Verb: "revert on"},
	OpDeleteBranch: {Target: TargetNamed, Protection: ProtectAlways, Verb: "delete"},
	OpPush:         {Target: TargetNamed, Protection: ProtectForceOnly, Verb: "force push to"},
}

// RuleFor returns the protected-branch rule for operation.
func RuleFor(operation string) Rule {
	if rule, ok := protectionRules[strings.ToLower(operation)]; ok {
		return rule
	}
	return Rule{Target: TargetNone, Protection: ProtectNone}
}

// RequiresCurrentBranch reports whether operation cannot run in detached state.
func RequiresCurrentBranch(operation string) bool {
	return RuleFor(operation).Target == TargetCurrent
}
