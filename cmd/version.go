package cmd

// Version is the application version, set at build time via
// -ldflags "-X github.com/kestrel-run/pilot/cmd.Version=...".
var Version = "0.1.0"
