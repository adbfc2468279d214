package commands

import (
	"github.com/spf13/cobra"
)

var (
	// serverURL is the base URL of the midnightd web API.
	serverURL string

	// direct skips the daemon and opens the configured store in process.
	direct bool

	// verbose prints connection notes to stderr.
	verbose bool

	// outputFormat controls output format (text, json).
	outputFormat string
)

// rootCmd is the base command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "midnight",
	Short: "Interview suspects and rank them by guilt",
	Long: `midnight drives the interview backend from the terminal.

Commands talk to a running midnightd over HTTP. When the daemon is not
reachable, or --direct is given, the CLI opens the configured store itself
using the same environment variables as the daemon.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&serverURL, "server", "",
		"midnightd base URL (default: $MIDNIGHT_SERVER or "+
			"http://localhost:8000)",
	)
	rootCmd.PersistentFlags().BoolVar(
		&direct, "direct", false,
		"Open the local store instead of calling the daemon",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&verbose, "verbose", "v", false,
		"Print connection details",
	)
	rootCmd.PersistentFlags().StringVar(
		&outputFormat, "format", "text",
		"Output format: text, json",
	)

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(sayCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(summaryCmd)
}
