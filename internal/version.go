// Package internal provides build metadata shared across commands.
package internal

// Version is the build version, overridden at build time with
// -ldflags "-X github.com/mystikonetwork/relayer/internal.Version=...".
var Version = "0.3.0"
