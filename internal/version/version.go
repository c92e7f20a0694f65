package version

import (
	"fmt"
	"runtime"
)

// Set with -ldflags "-X github.com/oshokin/fanctl/internal/version.Version=...".
var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)

// Short returns the semantic version.
func Short() string {
	return Version
}

// Full is what `fanctl version` prints.
func Full() string {
	return fmt.Sprintf("fanctl %s (commit %s, built %s, %s %s/%s)",
		Version, Commit, BuildTime, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
