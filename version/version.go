// Package version reports the version of the phonoloop binaries.
package version

import "runtime/debug"

// Set the release version at build time with:
// go build -ldflags "-X github.com/vsariola/phonoloop/version.Version=$(git describe --dirty)" ./cmd/phonoloop

var Version string

// Hash is the short vcs revision stamped by the go tool, suffixed with
// -dirty for modified trees; empty outside a checkout.
var Hash = func() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	return revision(info.Settings)
}()

func revision(settings []debug.BuildSetting) string {
	var rev string
	var modified bool
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			modified = s.Value == "true"
		}
	}
	if len(rev) > 7 {
		rev = rev[:7]
	}
	if rev != "" && modified {
		rev += "-dirty"
	}
	return rev
}

// String is Version, or Hash when no version was set, or "devel".
func String() string {
	switch {
	case Version != "":
		return Version
	case Hash != "":
		return Hash
	}
	return "devel"
}
