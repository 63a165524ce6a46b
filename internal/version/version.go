// Package version holds the build-time version variables for the guardrails
// binary. The zero values ("dev", "none", "unknown") are used for local
// builds; release builds inject the real values via -ldflags.
package version

import "fmt"

// These variables are overridden with -ldflags "-X ..." at release time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Info returns the formatted version string printed by guardrails version.
func Info() string {
	return fmt.Sprintf(
		"guardrails version %s\ncommit: %s\nbuilt: %s\n",
		Version,
		Commit,
		Date,
	)
}
