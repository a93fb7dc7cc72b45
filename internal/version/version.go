// Package version exposes build metadata injected at link time:
//
//	go build -ldflags "-X zarachat/internal/version.Version=v1.2.0 -X zarachat/internal/version.Commit=$(git rev-parse --short HEAD)"
package version

import "fmt"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Info returns a one-line human readable build description.
func Info() string {
	return fmt.Sprintf("zarachat %s (commit %s, built %s)", Version, Commit, Date)
}
