package tools

import (
	"cmp"
	"encoding/json"
	"errors"
	"strings"

	"github.com/MEKXH/gitmind/internal/policy"
)

// PathList accepts either a single path string or an array of paths.
type PathList []string

func (p *PathList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*p = PathList{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return errors.New("files must be a string or an array of strings")
	}
	*p = many
	return nil
}

// Display joins paths the way responses print them.
func (p PathList) Display() string {
	return strings.Join(p, ", ")
}

func validatePaths(field string, paths PathList) error {
	if len(paths) == 0 {
		return invalid(field, "at least one path is required")
	}
	for _, path := range paths {
		if strings.TrimSpace(path) == "" {
			return invalid(field, "paths must not be empty")
		}
		if strings.ContainsAny(path, "\x00\n") {
			return invalid(field, "paths must not contain null or newline")
		}
	}
	return nil
}

func requireText(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return invalid(field, "is required")
	}
	return nil
}

// validateRef rejects values git would read as an option or that cannot
// name a ref. Empty values pass; use requireRef for mandatory refs.
func validateRef(field, value string) error {
	if strings.HasPrefix(value, "-") {
		return invalid(field, "must not start with '-'")
	}
	if strings.ContainsAny(value, "\x00\n") {
		return invalid(field, "must not contain null or newline")
	}
	return nil
}

func requireRef(field, value string) error {
	if value == "" {
		return invalid(field, "is required")
	}
	return validateRef(field, value)
}

// validateResetRef applies the stricter rules for reset targets.
func validateResetRef(value string) error {
	if err := requireRef("ref", value); err != nil {
		return err
	}
	if value != strings.TrimLeft(value, " \t\r\v\f") {
		return invalid("ref", "must not have leading whitespace")
	}
	if strings.Contains(value, "--") {
		return invalid("ref", "must not contain '--'")
	}
	return nil
}

const headsPrefix = "refs/heads/"

// pushSpec is a parsed push refspec of the form [+]<src>[:<dst>].
type pushSpec struct {
	Src   string
	Dst   string
	Force bool
}

// Target returns the remote branch the push updates. An empty result
// means the current branch.
func (p pushSpec) Target() string {
	dst := p.Dst
	if dst == "" {
		dst = p.Src
	}
	if dst == "HEAD" || dst == "@" {
		return ""
	}
	return strings.TrimPrefix(dst, headsPrefix)
}

// Arg renders the refspec for git without the force marker. The
// destination is always written as refs/heads/<branch>, so git updates
// exactly the branch the guards checked instead of expanding a short name
// against the remote's refs. An empty source pushes HEAD.
func (p pushSpec) Arg(branch string) string {
	src := p.Src
	if src == "" {
		src = "HEAD"
	}
	return src + ":" + headsPrefix + branch
}

// ambiguousDestinations are prefixes git would expand to a ref other than
// the branch of the same name.
var ambiguousDestinations = []string{"refs/", "heads/", "tags/"}

// parsePushSpec splits value into source and destination. A leading
// '+' requests a forced update. Deleting refs and wildcards are refused.
func parsePushSpec(field, value string) (pushSpec, error) {
	value = strings.TrimSpace(value)
	if err := validateRef(field, value); err != nil {
		return pushSpec{}, err
	}
	var spec pushSpec
	if strings.HasPrefix(value, "+") {
		spec.Force = true
		value = strings.TrimSpace(value[1:])
		if value == "" {
			return pushSpec{}, invalid(field, "must name a ref after '+'")
		}
		if err := validateRef(field, value); err != nil {
			return pushSpec{}, err
		}
	}
	if strings.Contains(value, "*") {
		return pushSpec{}, invalid(field, "must not contain wildcards")
	}
	src, dst, hasColon := strings.Cut(value, ":")
	src, dst = strings.TrimSpace(src), strings.TrimSpace(dst)
	if hasColon {
		switch {
		case src == "":
			return pushSpec{}, invalid(field, "deleting remote branches is not supported")
		case dst == "":
			return pushSpec{}, invalid(field, "must name a destination after ':'")
		case strings.Contains(dst, ":"):
			return pushSpec{}, invalid(field, "must contain at most one ':'")
		}
	}
	spec.Src = src
	spec.Dst = dst
	target := policy.ToLocal(spec.Target())
	if target == "" && strings.HasPrefix(cmp.Or(dst, src), headsPrefix) {
		return pushSpec{}, invalid(field, "must name a branch after refs/heads/")
	}
	for _, prefix := range ambiguousDestinations {
		if strings.HasPrefix(target, prefix) {
			return pushSpec{}, invalid(field, "destination must be a branch name or refs/heads/<name>")
		}
	}
	return spec, nil
}
