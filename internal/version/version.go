// Package version reports the build version of the notesort binaries.
package version

import "runtime/debug"

// Version is overridden at link time with -ldflags "-X notesort/internal/version.Version=...".
var Version = "dev"

// String returns the link-time version, falling back to the module version
// recorded in the build info.
func String() string {
	if Version != "" && Version != "dev" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev"
}
