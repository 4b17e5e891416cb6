// Package version reports the build of the eoax binaries. The variables are
// set with -ldflags; a plain go build falls back to the VCS stamp.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/veesix-networks/eoax/pkg/ax25"
)

var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

func init() {
	if Commit != "unknown" {
		return
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	Commit, Date = fromBuildInfo(info, Commit, Date)
}

func fromBuildInfo(info *debug.BuildInfo, commit, date string) (string, string) {
	dirty := false
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			commit = s.Value
			if len(commit) > 12 {
				commit = commit[:12]
			}
		case "vcs.time":
			date = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if dirty && commit != "unknown" {
		commit += "-dirty"
	}
	return commit, date
}

// Full returns the version line printed by -version, including the
// encapsulation protocol id the build speaks.
func Full() string {
	return fmt.Sprintf("%s (%s) built on %s, %s %s/%s, pid 0x%02x",
		Version, Commit, Date, runtime.Version(), runtime.GOOS, runtime.GOARCH, ax25.PIDEoAX)
}
