// Package version carries build metadata stamped in via -ldflags.
package version

var (
	// Version is the release tag.
	Version = "0.1.0"

	// GitCommit is the short commit hash of the build.
	GitCommit = "unknown"

	// BuildTime is the UTC build timestamp.
	BuildTime = "unknown"
)
