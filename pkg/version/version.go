// Package version provides build version information for DocSearch.
package version

// Version is the current DocSearch version.
// Overridden at build time via -ldflags "-X .../pkg/version.Version=v1.2.3".
var Version = "0.2.0-dev"
