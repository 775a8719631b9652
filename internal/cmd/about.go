package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Build information (set via ldflags during build)
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var aboutCmd = &cobra.Command{
	Use:     "about",
	Short:   "Print build information",
	GroupID: groupProject,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if jsonOutput {
			return writeJSON(map[string]string{
				"version":    Version,
				"commit":     GitCommit,
				"build_date": BuildDate,
			})
		}
		fmt.Printf("nebula %s\n", Version)
		fmt.Printf("  commit: %s\n", GitCommit)
		fmt.Printf("  built:  %s\n", BuildDate)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(aboutCmd)
}
