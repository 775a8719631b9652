package cmd

import (
	"github.com/spf13/cobra"
)

// Command groups shown in help output.
const (
	groupMemory  = "memory"
	groupLedger  = "ledger"
	groupProject = "project"
)

var (
	jsonOutput  bool
	projectDir  string
	debugOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "nebula",
	Short: "per-project memory for errors, fixes and milestones",
	Long: `nebula - per-project development memory
  - log errors once, recognise them every time after
  - remember which fixes worked and how well
  - track decisions, checkpoints and the four-part project version`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		applyColorMode()
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: groupMemory, Title: "Error memory:"},
		&cobra.Group{ID: groupLedger, Title: "Ledgers:"},
		&cobra.Group{ID: groupProject, Title: "Project:"},
	)

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().StringVar(&colorMode, "color", "auto", "color output: auto, always, or never")
	rootCmd.PersistentFlags().BoolVar(&debugOutput, "debug", false, "log debug output to stderr (same as log.level=debug)")
	rootCmd.PersistentFlags().StringVarP(&projectDir, "project", "C", "", "project root (default: discovered from the working directory)")
}
