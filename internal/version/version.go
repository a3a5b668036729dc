// Package version provides build version information.
package version

import (
	"fmt"
	"runtime"
)

// Build information. Populated at build time via ldflags:
//
//	go build -ldflags "-X github.com/jmylchreest/harvest-api/internal/version.Version=1.0.0 \
//	  -X github.com/jmylchreest/harvest-api/internal/version.Commit=abc123 \
//	  -X github.com/jmylchreest/harvest-api/internal/version.Date=2025-06-01T00:00:00Z"
var (
	// Version is the semantic version of the build.
	Version = "0.0.0-dev"

	// Commit is the git commit hash of the build.
	Commit = "unknown"

	// Date is the build timestamp.
	Date = "unknown"

	// Dirty indicates if the build had uncommitted changes.
	Dirty = "false"
)

// Info holds version information.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	Dirty     bool   `json:"dirty"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Get returns the current version info.
func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		Dirty:     Dirty == "true",
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// String returns a human-readable version string.
func (i Info) String() string {
	dirty := ""
	if i.Dirty {
		dirty = " (dirty)"
	}
	return fmt.Sprintf("%s (commit %s, built %s)%s", i.Version, i.Commit, i.Date, dirty)
}

// Short returns just the version number, with a dirty marker if applicable.
func (i Info) Short() string {
	if i.Dirty {
		return i.Version + "-dirty"
	}
	return i.Version
}
