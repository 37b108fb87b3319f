package version

// These variables are set at build time using ldflags.
// Example: go build -ldflags "-X github.com/abdullathedruid/ime-tool/internal/version.GitSHA=$(git rev-parse --short HEAD)"
var (
	// Version is the release tag, empty for local builds.
	Version = ""

	// GitSHA is the git commit SHA (short form) at build time.
	GitSHA = "dev"
)

// Short returns a short version string suitable for display.
func Short() string {
	if Version != "" {
		return Version
	}
	return GitSHA
}

// Full returns the release tag together with the commit.
func Full() string {
	if Version == "" {
		return GitSHA
	}
	return Version + " (" + GitSHA + ")"
}
