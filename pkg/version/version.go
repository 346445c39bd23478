// Package version provides the sourcemelt tool version.
package version

// Version is the sourcemelt tool version.
// Can be overridden at build time with:
//   go build -ldflags "-X github.com/sourcemelt/sourcemelt/pkg/version.Version=1.2.0"
var Version = "dev"
