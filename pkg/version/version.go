// Package version carries the check-keystone build metadata.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	// Version of the plugin, printed by --version
	Version = "0.1.0"

	// GitCommit may be set with -ldflags "-X .../pkg/version.GitCommit=<sha>"
	GitCommit = ""

	GoVersion = runtime.Version()
	Platform  = runtime.GOOS + "/" + runtime.GOARCH
)

// GetVersion returns the plugin version
func GetVersion() string {
	return Version
}

// GetCommitHash returns GitCommit, or the VCS revision stamped by the Go
// toolchain with a "-dirty" suffix for modified trees, or "unknown".
func GetCommitHash() string {
	if GitCommit != "" {
		return GitCommit
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	return revisionFromSettings(bi.Settings)
}

func revisionFromSettings(settings []debug.BuildSetting) string {
	var revision string
	var dirty bool
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}

	switch {
	case revision == "":
		return "unknown"
	case dirty:
		return revision + "-dirty"
	default:
		return revision
	}
}

// String returns the --version line
func String() string {
	return fmt.Sprintf("check-keystone v%s", Version)
}
