package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/runger/nebula/internal/memory"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Show project memory status",
	GroupID: groupProject,
	Long: `Show the current status of the project memory, including:
- Project name, framework, version and phase
- Configuration and database locations
- Search backend (FTS5 or substring)
- Open error count

Examples:
  nebula status
  nebula status --json`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

type statusOutput struct {
	Project       *memory.ProjectInfo `json:"project"`
	Root          string              `json:"root"`
	ConfigFile    string              `json:"config_file"`
	Database      string              `json:"database"`
	DatabaseBytes int64               `json:"database_bytes"`
	SchemaVersion int                 `json:"schema_version"`
	FTS5          bool                `json:"fts5"`
	Unresolved    int                 `json:"unresolved_errors"`
	TotalErrors   int                 `json:"total_errors"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	return withStore(ctx, func(e *env, s *memory.Store) error {
		info, err := s.Project(ctx)
		if err != nil {
			return err
		}
		stats, err := s.Statistics(ctx)
		if err != nil {
			return err
		}
		schema, err := s.SchemaVersion(ctx)
		if err != nil {
			return err
		}

		out := statusOutput{
			Project:       info,
			Root:          e.paths.Root,
			ConfigFile:    e.paths.ConfigFile(),
			Database:      s.Path(),
			SchemaVersion: schema,
			FTS5:          s.FTSAvailable(),
			Unresolved:    stats.UnresolvedErrors,
			TotalErrors:   stats.TotalErrors,
		}
		if fi, err := os.Stat(s.Path()); err == nil {
			out.DatabaseBytes = fi.Size()
		}

		if jsonOutput {
			return writeJSON(out)
		}
		printStatus(&out)
		return nil
	})
}

func printStatus(out *statusOutput) {
	p := out.Project
	printHeader("nebula Status")

	fmt.Printf("\n%sProject:%s\n", colorBold, colorReset)
	fmt.Printf("  Name:          %s\n", p.Name)
	fmt.Printf("  Framework:     %s\n", p.Framework)
	fmt.Printf("  Version:       %s%s%s\n", colorCyan, p.CurrentVersion, colorReset)
	fmt.Printf("  Phase:         %s\n", p.Phase)
	fmt.Printf("  Constellation: %s\n", p.Constellation)
	if p.SubPhase != "" {
		fmt.Printf("  Sub-phase:     %s\n", p.SubPhase)
	}

	fmt.Printf("\n%sStorage:%s\n", colorBold, colorReset)
	fmt.Printf("  Root:     %s\n", out.Root)
	if _, err := os.Stat(out.ConfigFile); err == nil {
		fmt.Printf("  Config:   %s\n", out.ConfigFile)
	} else {
		fmt.Printf("  Config:   %s (not found, using defaults)\n", out.ConfigFile)
	}
	fmt.Printf("  Database: %s (%s, schema v%d)\n", out.Database, formatSize(out.DatabaseBytes), out.SchemaVersion)
	if out.FTS5 {
		fmt.Printf("  Search:   %sFTS5%s\n", colorGreen, colorReset)
	} else {
		fmt.Printf("  Search:   %ssubstring fallback%s\n", colorYellow, colorReset)
	}

	fmt.Printf("\n%sErrors:%s\n", colorBold, colorReset)
	color := colorGreen
	if out.Unresolved > 0 {
		color = colorYellow
	}
	fmt.Printf("  Unresolved: %s%d%s of %d\n", color, out.Unresolved, colorReset, out.TotalErrors)
	if p.ContextSummary != "" {
		fmt.Printf("\n%s%s%s\n", colorDim, p.ContextSummary, colorReset)
	}
}
