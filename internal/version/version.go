// Package version reports the gitmind build version.
package version

import "runtime/debug"

// Version is set with -ldflags "-X github.com/MEKXH/gitmind/internal/version.Version=...".
// Binaries built by go install report their module version instead of "dev".
var Version = "dev"

func init() {
	if Version != "dev" {
		return
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	if v := info.Main.Version; v != "" && v != "(devel)" {
		Version = v
	}
}
