// Command ofuqctl runs maintenance tasks against an Ofuq deployment.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "ofuqctl",
	Short:        "Ofuq backend maintenance tool",
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(importLectureCmd)
	rootCmd.AddCommand(generateInsightsCmd)
	rootCmd.AddCommand(tokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
