// Package cli implements the intelpipe-admin command line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// serverAddr is the base URL of the intelpipe operator API.
var serverAddr string

// rootCmd represents the base command when the `intelpipe-admin` binary is
// called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "intelpipe-admin",
	Short: "A CLI tool for administering the intelpipe ingestion service.",
	Long: `intelpipe-admin is a command-line interface for operating the intelpipe
threat-intelligence pipeline: forcing stage runs and inspecting run summaries.`,
}

// Execute is the main entry point for the CLI application.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverAddr, "server", "http://localhost:8080", "base URL of the intelpipe operator API")
}
