// Package version carries build metadata injected via ldflags.
package version

var (
	// Version is the current application version.
	Version = "v0.1.0-dev"

	// Commit is the git short hash of the build.
	Commit = "unknown"

	// Date is the build timestamp.
	Date = "unknown"
)
