package version

// Build metadata, overridden at build time via -ldflags.
var (
	Version   = "0.2.0"
	GitCommit = "unknown"
	BuildTime = "unknown"
)
