// Package version carries the server version and build metadata.
//
// CommitHash should be stamped at build time:
//
//	go build -ldflags "-X github.com/sabbir421/whatsapp-message-server/internal/version.CommitHash=$(git rev-parse --short HEAD)"
package version

import (
	"fmt"
	"strings"
)

// CommitHash is the git commit of this build, set via -ldflags.
var CommitHash string

const (
	major = 1
	minor = 0
	patch = 0
)

// Version returns the semantic version of the server.
func Version() string {
	return fmt.Sprintf("%d.%d.%d", major, minor, patch)
}

// Full returns the version plus commit metadata when present.
func Full() string {
	if hash := strings.TrimSpace(CommitHash); hash != "" {
		return fmt.Sprintf("%s (%s)", Version(), hash)
	}
	return Version()
}
