package netfetch

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
)

// Build metadata. Commit and BuildDate may be set with -ldflags; when left
// empty they come from the VCS stamp the Go toolchain embeds in binaries.
var (
	Version   = "v0.3.0"
	Commit    = ""
	BuildDate = ""
)

const shortCommitLen = 12

// BuildInfo describes the running build of the library.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildDate string
	GoVersion string
	Modified  bool
}

var (
	buildInfoOnce sync.Once
	buildInfo     BuildInfo
)

// ReadBuildInfo returns the build metadata, resolved once per process.
func ReadBuildInfo() BuildInfo {
	buildInfoOnce.Do(func() {
		buildInfo = resolveBuildInfo(debug.ReadBuildInfo)
	})
	return buildInfo
}

func resolveBuildInfo(read func() (*debug.BuildInfo, bool)) BuildInfo {
	info := BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
	}

	if bi, ok := read(); ok && bi != nil {
		for _, setting := range bi.Settings {
			switch setting.Key {
			case "vcs.revision":
				if info.Commit == "" {
					info.Commit = setting.Value
				}
			case "vcs.time":
				if info.BuildDate == "" {
					info.BuildDate = setting.Value
				}
			case "vcs.modified":
				info.Modified = setting.Value == "true"
			}
		}
	}

	if len(info.Commit) > shortCommitLen {
		info.Commit = info.Commit[:shortCommitLen]
	}
	if info.Commit == "" {
		info.Commit = "unknown"
	}
	if info.BuildDate == "" {
		info.BuildDate = "unknown"
	}
	return info
}

// String renders a one-line banner, e.g.
// "netfetch v0.3.0 (commit: 1a2b3c4d5e6f, built: 2024-05-01T12:00:00Z, go: go1.22.0)".
func (b BuildInfo) String() string {
	commit := b.Commit
	if b.Modified {
		commit += "+dirty"
	}
	return fmt.Sprintf("netfetch %s (commit: %s, built: %s, go: %s)", b.Version, commit, b.BuildDate, b.GoVersion)
}

// GetVersion returns the build banner.
func GetVersion() string {
	return ReadBuildInfo().String()
}
