// ABOUTME: Version constants for the rstream binaries
// ABOUTME: Overridden at build time via -ldflags
package version

// Set with -ldflags "-X .../internal/version.Version=..." on release
// builds.
var (
	Version = "0.1.0"
	Product = "rstream"
)
