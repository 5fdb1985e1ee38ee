// Package version holds build metadata. Version and Commit are set with
// -ldflags "-X tod-bot/internal/version.Version=...".
package version

const AppName = "Truth or Dare"

var (
	Version = "dev"
	Commit  = "none"
)
