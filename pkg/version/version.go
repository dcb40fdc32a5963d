package version

// Version is the application version. Overridden at build time via
// -ldflags "-X tripkit/pkg/version.Version=...".
var Version = "dev"
