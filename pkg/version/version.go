// Package version provides build and version information for ragdocs.
//
// Version, Commit, and Date are set at build time via ldflags:
//
//	go build -ldflags "\
//	  -X github.com/ragdocs/ragdocs/pkg/version.Version=v1.0.0 \
//	  -X github.com/ragdocs/ragdocs/pkg/version.Commit=$(git rev-parse --short HEAD) \
//	  -X github.com/ragdocs/ragdocs/pkg/version.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the semantic version of the build.
	Version = "dev"

	// Commit is the git commit hash the binary was built from.
	Commit = "unknown"

	// Date is the UTC timestamp of the build.
	Date = "unknown"
)

// BuildInfo bundles the build-time metadata for machine-readable output.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Get returns the build information for the running binary.
func Get() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// String renders the build information as a single human-readable line.
func (b BuildInfo) String() string {
	return fmt.Sprintf("ragdocs %s (commit %s, built %s, %s, %s)",
		b.Version, b.Commit, b.Date, b.GoVersion, b.Platform)
}
