package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
	// BuildDate is injected during build
	BuildDate = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "stubd",
	Short: "stubd serves stubbed HTTP responses from a YAML configuration",
	Long: `stubd matches incoming HTTP requests against stubs declared in a YAML
file and answers with the stubbed responses, sequences, redirects, recorded
or proxied replies.

Stubs can be inspected and changed at runtime through the admin API.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	os.Exit(Main())
}

// Main runs the root command with os.Args and returns the process exit code.
func Main() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}
