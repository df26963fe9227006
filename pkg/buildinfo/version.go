// Package buildinfo reports which flatmap build produced a map.
//
// Release builds stamp the variables with ldflags:
//
//	go build -ldflags "-X github.com/matzehuels/flatmap/pkg/buildinfo.Version=v0.3.0 \
//	    -X github.com/matzehuels/flatmap/pkg/buildinfo.Commit=$(git rev-parse HEAD)" ./cmd/flatmap
//
// Binaries built with go install carry module and VCS information instead,
// which fills in whatever ldflags left unset.
package buildinfo

import (
	"fmt"
	"runtime/debug"
	"sync"
)

// Stamped by ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var fillOnce sync.Once

// fill copies module and VCS settings from the embedded build info into the
// variables still at their defaults.
func fill() {
	fillOnce.Do(func() {
		bi, ok := debug.ReadBuildInfo()
		if !ok {
			return
		}
		if Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			Version = bi.Main.Version
		}
		for _, s := range bi.Settings {
			switch {
			case s.Key == "vcs.revision" && Commit == "none":
				Commit = s.Value
			case s.Key == "vcs.time" && Date == "unknown":
				Date = s.Value
			}
		}
	})
}

// Current returns the version string recorded in build metadata.
func Current() string {
	fill()
	return Version
}

// String returns version, commit and build date on separate lines.
func String() string {
	fill()
	return fmt.Sprintf("version: %s\ncommit: %s\nbuilt: %s", Version, Commit, Date)
}

// Template returns a cobra version template.
func Template() string {
	return "{{.Name}} " + String() + "\n"
}
