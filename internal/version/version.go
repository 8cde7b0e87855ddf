// Package version holds the strata version string.
package version

// Version is the current strata version. Overridden at build time via
// -ldflags "-X strata/internal/version.Version=...".
var Version = "0.1.0"
