package version

import (
	"fmt"
	"runtime"
)

const Name = "Fee Risk Engine"

// Build information. Populated at build-time via ldflags:
//
//	-X frizo/fee_risk_engine/internal/version.Version=v1.2.0
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
	GoVersion = runtime.Version()
)

type BuildInfo struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
	GoVersion string `json:"go_version"`
}

func Get() BuildInfo {
	return BuildInfo{
		Name:      Name,
		Version:   Version,
		BuildTime: BuildTime,
		GitCommit: GitCommit,
		GoVersion: GoVersion,
	}
}

// String multi-line build report for -version.
func (b BuildInfo) String() string {
	return fmt.Sprintf("%s\nVersion: %s\nBuild Time: %s\nGit Commit: %s\nGo Version: %s",
		b.Name, b.Version, b.BuildTime, b.GitCommit, b.GoVersion)
}

// Short returns "<version>" or "<version> (<commit7>)".
func Short() string {
	if GitCommit != "unknown" && len(GitCommit) > 7 {
		return fmt.Sprintf("%s (%s)", Version, GitCommit[:7])
	}
	return Version
}
