package cmd

// Version is the application version. Overridden at build time via
// -ldflags "-X github.com/obsidiansec/bountyhound/cmd.Version=...".
var Version = "dev"
