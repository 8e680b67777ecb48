// Package buildinfo carries build provenance into run records.
//
// Version, GitCommit and ConfigTime are meant to be injected at build time:
//
//	go build -ldflags "-X github.com/accelbench/accelbench/internal/buildinfo.Version=1.4 \
//	  -X 'github.com/accelbench/accelbench/internal/buildinfo.ConfigTime=Mon Aug 24 10:05:00 UTC 2026' \
//	  -X github.com/accelbench/accelbench/internal/buildinfo.GitCommit=$(git rev-parse HEAD)"
package buildinfo

import "runtime/debug"

var (
	// Version is the release version of the benchmark suite.
	Version = "0.0.0-dev"
	// GitCommit is the commit hash the binary was built from.
	GitCommit = "unknown"
	// ConfigTime is the time the build was configured.
	ConfigTime = "unknown"
)

func init() {
	if GitCommit != "unknown" {
		return
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			GitCommit = s.Value
			return
		}
	}
}
