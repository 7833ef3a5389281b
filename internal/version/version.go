// Package version holds the build version and commit of the funcware host.
//
//	go build -ldflags "-X github.com/menezmethod/funcware/internal/version.Version=1.2.0 \
//	  -X github.com/menezmethod/funcware/internal/version.Commit=$(git rev-parse --short HEAD)"
package version

// Version is the semantic version.
var Version = "dev"

// Commit is the git commit hash, empty for local builds.
var Commit = ""

// String returns Version, followed by the commit when one was set.
func String() string {
	if Commit == "" {
		return Version
	}
	return Version + "+" + Commit
}
