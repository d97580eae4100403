// Package version holds build identity, set with -ldflags at link time.
package version

import "fmt"

var (
	// Version is the agent release.
	Version = "dev"
	// GitSHA is the commit the binary was built from.
	GitSHA = "unknown"
	// BuildTime is the build timestamp.
	BuildTime = "unknown"
)

// String formats the build identity for startup logs.
func String() string {
	return fmt.Sprintf("rcss.agent %s (%s, built %s)", Version, GitSHA, BuildTime)
}
