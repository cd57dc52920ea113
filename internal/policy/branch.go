package policy

import "strings"

const remotesPrefix = "remotes/"

// ToLocal strips every leading "remotes/<remote>/" prefix from ref, so
// ToLocal(ToLocal(ref)) == ToLocal(ref). Refs without the prefix are
// returned unchanged.
func ToLocal(ref string) string {
	for {
		local, ok := stripRemote(ref)
		if !ok {
			return ref
		}
		ref = local
	}
}

func stripRemote(ref string) (string, bool) {
	if !strings.HasPrefix(ref, remotesPrefix) {
		return ref, false
	}
	rest := ref[len(remotesPrefix):]
	slash := strings.IndexByte(rest, '/')
	if slash <= 0 || slash == len(rest)-1 {
		return ref, false
	}
	return rest[slash+1:], true
}
