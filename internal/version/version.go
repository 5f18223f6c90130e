// Package version carries the build identity stamped into the capture
// binaries with -ldflags. A session created without an explicit
// app-version flag records these values.
package version

var (
	// Version is the release tag, "dev" for local builds.
	Version = "dev"
	// GitSHA is the commit the binary was built from.
	GitSHA = "unknown"
	// BuildTime is the build timestamp.
	BuildTime = "unknown"
)
