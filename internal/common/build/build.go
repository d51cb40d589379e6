// Package build holds version information injected at link time, e.g.
//
//	go build -ldflags "-X github.com/armadaproject/pubload/internal/common/build.ReleaseVersion=v0.3.0"
package build

import "runtime"

var (
	ReleaseVersion = "development"
	GitCommit      = "unknown"
	BuildTime      = "unknown"
	GoVersion      = runtime.Version()
)

// UserAgent is sent with every outbound publish request.
func UserAgent() string {
	return "pubload/" + ReleaseVersion
}
