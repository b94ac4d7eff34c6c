// Package version holds build metadata injected through -ldflags.
package version

import "fmt"

// Build-time variables set by ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info returns version information
func Info() (string, string, string) {
	return Version, GitCommit, BuildDate
}

// String formats the build metadata as a single line.
func String() string {
	return fmt.Sprintf("notecrop %s (commit %s, built %s)", Version, GitCommit, BuildDate)
}
