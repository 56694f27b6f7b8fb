// Package version reports the csplab release and build stamp.
package version

import (
	"fmt"
	"runtime"
)

// Version is the csplab release
const Version = "0.1.0"

// Stamped with -ldflags "-X github.com/csplab/linkage/internal/version.GitCommit=..."
var (
	GitCommit = "unknown"
	BuildDate = "development"
)

// Info returns the bare release number
func Info() string {
	return Version
}

// FullInfo returns the release with its build stamp and Go runtime
func FullInfo() string {
	return fmt.Sprintf("csplab %s (commit: %s, built: %s, %s)", Version, GitCommit, BuildDate, runtime.Version())
}
