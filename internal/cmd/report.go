package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/runger/nebula/internal/memory"
)

var statsCmd = &cobra.Command{
	Use:     "stats",
	Short:   "Show counts and derived metrics",
	GroupID: groupProject,
	Long: `Show store-wide counts plus three derived metrics:
  quality ratio    errors per recorded version
  AI effectiveness mean rating of rated AI solutions
  daily velocity   errors, solutions, decisions and checkpoints in the last 24h`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

var exportCmd = &cobra.Command{
	Use:     "export [path]",
	Short:   "Write the whole memory to a JSON file",
	GroupID: groupProject,
	Long: `Write every table to one JSON document. Without a path the file goes to
.nebula/exports/memory-<timestamp>.json. Only the most recent
export.snapshot_limit context snapshots are included.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExport,
}

var summaryCmd = &cobra.Command{
	Use:     "summary",
	Short:   "Refresh and print the one-line project summary",
	GroupID: groupProject,
	Args:    cobra.NoArgs,
	RunE:    runSummary,
}

func init() {
	rootCmd.AddCommand(statsCmd, exportCmd, summaryCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	return withStore(ctx, func(e *env, s *memory.Store) error {
		stats, err := s.Statistics(ctx)
		if err != nil {
			return err
		}
		metrics, err := s.Metrics(ctx)
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(struct {
				*memory.Statistics
				Metrics *memory.Metrics `json:"metrics"`
			}{stats, metrics})
		}

		printHeader("Project Memory")
		fmt.Printf("  Version:     %s%s%s (%s)\n", colorCyan, stats.CurrentVersion, colorReset, stats.CurrentPhase)
		fmt.Printf("  Errors:      %d (%d unresolved)\n", stats.TotalErrors, stats.UnresolvedErrors)
		fmt.Printf("  Patterns:    %d\n", stats.ErrorPatterns)
		fmt.Printf("  Decisions:   %d\n", stats.Decisions)
		fmt.Printf("  Gates:       %d/%d passed\n", stats.QualityGatesPassed, stats.QualityGatesTotal)
		fmt.Printf("  Checkpoints: %d/%d passed, %d failed, %d skipped\n",
			stats.CheckpointsPassed, stats.CheckpointsTotal, stats.CheckpointsFailed, stats.CheckpointsSkipped)
		if stats.TestsSkipped > 0 {
			fmt.Printf("  %sTests skipped: %d%s\n", colorYellow, stats.TestsSkipped, colorReset)
		}

		fmt.Printf("\n%sMetrics:%s\n", colorBold, colorReset)
		fmt.Printf("  Quality ratio:    %.2f errors/version\n", metrics.QualityRatio)
		if metrics.AIEffectiveness > 0 {
			fmt.Printf("  AI effectiveness: %.2f/5\n", metrics.AIEffectiveness)
		} else {
			fmt.Printf("  AI effectiveness: %s\n", orDash(""))
		}
		fmt.Printf("  Daily velocity:   %d\n", metrics.DailyVelocity)
		return nil
	})
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	return withStore(ctx, func(e *env, s *memory.Store) error {
		path := defaultExportPath(e, time.Now())
		if len(args) > 0 {
			path = args[0]
		}
		written, err := s.ExportJSONWithLimit(ctx, path, e.cfg.Export.SnapshotLimit)
		if err != nil {
			return err
		}
		e.logger.Info("memory exported", "path", written)
		if jsonOutput {
			return writeJSON(map[string]string{"path": written})
		}
		fmt.Printf("Exported to %s\n", written)
		return nil
	})
}

func defaultExportPath(e *env, now time.Time) string {
	return filepath.Join(e.paths.ExportDir(), "memory-"+now.Format("20060102-150405")+".json")
}

func runSummary(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	return withStore(ctx, func(e *env, s *memory.Store) error {
		summary, err := s.RefreshContextSummary(ctx)
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(map[string]string{"context_summary": summary})
		}
		fmt.Println(summary)
		return nil
	})
}
