package version

import (
	"fmt"
	"runtime"
)

var (
	Version   = "0.1.0-dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
	GoVersion = runtime.Version()
)

func SetInfo(v, bt, gc, gv string) {
	if v != "" {
		Version = v
	}
	if bt != "" {
		BuildTime = bt
	}
	if gc != "" {
		GitCommit = gc
	}
	if gv != "" {
		GoVersion = gv
	}
}

// UserAgent returns the product token used in outgoing requests and archive manifests.
func UserAgent() string {
	return "ghbackup/" + Version
}

func FormatStartupMessage() string {
	return fmt.Sprintf("ghbackup started\nVersion: %s\nBuild: %s", Version, BuildTime)
}

// String returns a multi-line description for the version command.
func String() string {
	return fmt.Sprintf("ghbackup %s\ncommit: %s\nbuilt: %s\ngo: %s", Version, GitCommit, BuildTime, GoVersion)
}
