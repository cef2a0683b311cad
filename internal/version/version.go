package version

// Version is the ddd release, set at build time:
// go build -ldflags "-X git.home.luguber.info/inful/ddd/internal/version.Version=v0.3.0" ./cmd/ddd.
var Version = "unknown"

// BuildInfo contains additional build metadata.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)
