package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/runger/nebula/internal/memory"
)

var (
	cpConstellation string
	cpIndex         int
	cpStatus        string
	cpAutoTotal     int
	cpAutoPassed    int
	cpManualTotal   int
	cpManualPassed  int
	cpSkipped       int
	cpSkipReasons   string
	cpDuration      int
	cpPerfOK        bool
	cpDocsUpdated   bool
	cpBreaking      bool
	cpBreakingNotes string
	cpNotes         string
	cpReviewer      string
	cpReviewerType  string

	cpListIndex int

	gatePhase         string
	gateConstellation string
	gateFailed        bool
	gateDetails       string
	gateLimit         int
)

var checkpointCmd = &cobra.Command{
	Use:     "checkpoint",
	Short:   "Record and review quality checkpoints",
	GroupID: groupLedger,
}

var checkpointRecordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record one checkpoint attempt",
	Long: `Record a checkpoint attempt for a constellation. Attempts are immutable;
record a new one after fixing failures. Skipped tests are reported but do
not block the record.

Examples:
  nebula checkpoint record --index 1 --status passed --auto-total 48 --auto-passed 48
  nebula checkpoint record --index 2 --status failed --skipped 3 \
    --skip-reasons "flaky e2e,'needs staging db'" --notes "auth regressions"`,
	Args: cobra.NoArgs,
	RunE: runCheckpointRecord,
}

var checkpointSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show checkpoint totals by status",
	Args:  cobra.NoArgs,
	RunE:  runCheckpointSummary,
}

var checkpointListCmd = &cobra.Command{
	Use:   "list",
	Short: "List checkpoint attempts, newest first",
	Args:  cobra.NoArgs,
	RunE:  runCheckpointList,
}

var gateCmd = &cobra.Command{
	Use:     "gate",
	Short:   "Record pass/fail quality gates",
	GroupID: groupLedger,
}

var gateRecordCmd = &cobra.Command{
	Use:   "record <name>",
	Short: "Record a quality gate outcome",
	Long: `Record a named pass/fail quality gate. Gates pass unless --failed is given.

Examples:
  nebula gate record lint
  nebula gate record typecheck --failed --details "12 errors in src/api"`,
	Args: cobra.ExactArgs(1),
	RunE: runGateRecord,
}

var gateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List quality gate outcomes, newest first",
	Args:  cobra.NoArgs,
	RunE:  runGateList,
}

func init() {
	f := checkpointRecordCmd.Flags()
	f.StringVar(&cpConstellation, "constellation", "", "constellation (default: current constellation)")
	f.IntVar(&cpIndex, "index", 0, "constellation index")
	f.StringVar(&cpStatus, "status", string(memory.CheckpointPending), "passed, failed, pending or skipped")
	f.IntVar(&cpAutoTotal, "auto-total", 0, "automated tests run")
	f.IntVar(&cpAutoPassed, "auto-passed", 0, "automated tests passed")
	f.IntVar(&cpManualTotal, "manual-total", 0, "manual checks run")
	f.IntVar(&cpManualPassed, "manual-passed", 0, "manual checks passed")
	f.IntVar(&cpSkipped, "skipped", 0, "tests skipped")
	f.StringVar(&cpSkipReasons, "skip-reasons", "", "why tests were skipped, comma or shell-quoted list")
	f.IntVar(&cpDuration, "duration", 0, "duration in seconds")
	f.BoolVar(&cpPerfOK, "perf-ok", false, "performance is acceptable")
	f.BoolVar(&cpDocsUpdated, "docs-updated", false, "documentation was updated")
	f.BoolVar(&cpBreaking, "breaking", false, "the constellation has breaking changes")
	f.StringVar(&cpBreakingNotes, "breaking-notes", "", "description of breaking changes")
	f.StringVar(&cpNotes, "notes", "", "free-form notes")
	f.StringVar(&cpReviewer, "reviewer", "", "reviewer name")
	f.StringVar(&cpReviewerType, "reviewer-type", string(memory.ActorHuman), "reviewer kind: ai or human")

	checkpointListCmd.Flags().IntVar(&cpListIndex, "index", -1, "only this constellation index (default: all)")

	gateRecordCmd.Flags().StringVar(&gatePhase, "phase", "", "phase (default: current phase)")
	gateRecordCmd.Flags().StringVar(&gateConstellation, "constellation", "", "constellation (default: current constellation)")
	gateRecordCmd.Flags().BoolVar(&gateFailed, "failed", false, "the gate failed")
	gateRecordCmd.Flags().StringVar(&gateDetails, "details", "", "free-form details")

	checkpointCmd.AddCommand(checkpointRecordCmd, checkpointSummaryCmd, checkpointListCmd)
	gateListCmd.Flags().IntVarP(&gateLimit, "limit", "n", 20, "maximum gates to show (-1 for all)")

	gateCmd.AddCommand(gateRecordCmd, gateListCmd)
	rootCmd.AddCommand(checkpointCmd, gateCmd)
}

func runCheckpointRecord(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	status, err := memory.ParseCheckpointStatus(cpStatus)
	if err != nil {
		return err
	}
	reviewerType, err := memory.ParseActor(cpReviewerType)
	if err != nil {
		return err
	}
	reasons, err := splitList(cpSkipReasons)
	if err != nil {
		return err
	}

	return withStore(ctx, func(e *env, s *memory.Store) error {
		constellation := cpConstellation
		if constellation == "" {
			info, err := s.Project(ctx)
			if err != nil {
				return err
			}
			constellation = info.Constellation
		}
		id, err := s.RecordCheckpoint(ctx, memory.CheckpointInput{
			Constellation:         constellation,
			ConstellationIndex:    cpIndex,
			Status:                status,
			AutomatedTotal:        cpAutoTotal,
			AutomatedPassed:       cpAutoPassed,
			ManualTotal:           cpManualTotal,
			ManualPassed:          cpManualPassed,
			TestsSkipped:          cpSkipped,
			SkipReasons:           reasons,
			DurationSeconds:       cpDuration,
			PerformanceAcceptable: cpPerfOK,
			DocsUpdated:           cpDocsUpdated,
			BreakingChanges:       cpBreaking,
			BreakingChangeNotes:   cpBreakingNotes,
			Notes:                 cpNotes,
			Reviewer:              cpReviewer,
			ReviewerType:          reviewerType,
		})
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(map[string]int64{"checkpoint_id": id})
		}
		fmt.Printf("Recorded checkpoint %s#%d%s for %s: %s\n", colorBold, id, colorReset, constellation, statusColor(status))
		if cpSkipped > 0 {
			fmt.Printf("  %sWarning:%s %d tests skipped\n", colorYellow, colorReset, cpSkipped)
		}
		return nil
	})
}

func runCheckpointSummary(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	return withStore(ctx, func(e *env, s *memory.Store) error {
		sum, err := s.CheckpointSummary(ctx)
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(sum)
		}
		printHeader("Checkpoints")
		fmt.Printf("  Total:         %d\n", sum.Total)
		fmt.Printf("  Passed:        %s%d%s\n", colorGreen, sum.Passed, colorReset)
		fmt.Printf("  Failed:        %s%d%s\n", colorRed, sum.Failed, colorReset)
		fmt.Printf("  Pending:       %d\n", sum.Pending)
		fmt.Printf("  Skipped:       %d\n", sum.Skipped)
		fmt.Printf("  Tests skipped: %d\n", sum.TestsSkipped)
		return nil
	})
}

func runCheckpointList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	return withStore(ctx, func(e *env, s *memory.Store) error {
		cps, err := s.ListCheckpoints(ctx, cpListIndex)
		if err != nil {
			return err
		}
		if jsonOutput {
			if cps == nil {
				cps = []memory.Checkpoint{}
			}
			return writeJSON(cps)
		}
		if len(cps) == 0 {
			fmt.Println("No checkpoints recorded.")
			return nil
		}
		for _, c := range cps {
			fmt.Printf("%s#%d%s %s [%d] %s  auto %d/%d  manual %d/%d  skipped %d  %s%s%s\n",
				colorBold, c.ID, colorReset, c.Constellation, c.ConstellationIndex, statusColor(c.Status),
				c.AutomatedPassed, c.AutomatedTotal, c.ManualPassed, c.ManualTotal, c.TestsSkipped,
				colorDim, formatTime(c.CreatedAt), colorReset)
			if c.Notes != "" {
				fmt.Printf("  %s\n", c.Notes)
			}
		}
		return nil
	})
}

func statusColor(st memory.CheckpointStatus) string {
	switch st {
	case memory.CheckpointPassed:
		return colorGreen + string(st) + colorReset
	case memory.CheckpointFailed:
		return colorRed + string(st) + colorReset
	default:
		return colorYellow + string(st) + colorReset
	}
}

func runGateRecord(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	return withStore(ctx, func(e *env, s *memory.Store) error {
		phase, constellation, err := pointers(ctx, s, gatePhase, gateConstellation)
		if err != nil {
			return err
		}
		id, err := s.RecordQualityGate(ctx, memory.QualityGateInput{
			Phase:         phase,
			Constellation: constellation,
			GateName:      args[0],
			Passed:        !gateFailed,
			Details:       gateDetails,
		})
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(map[string]any{"gate_id": id, "passed": !gateFailed})
		}
		result := colorGreen + "passed" + colorReset
		if gateFailed {
			result = colorRed + "failed" + colorReset
		}
		fmt.Printf("Recorded gate %s#%d%s %s: %s\n", colorBold, id, colorReset, args[0], result)
		return nil
	})
}

func runGateList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	return withStore(ctx, func(e *env, s *memory.Store) error {
		gates, err := s.ListQualityGates(ctx, gateLimit)
		if err != nil {
			return err
		}
		if jsonOutput {
			if gates == nil {
				gates = []memory.QualityGate{}
			}
			return writeJSON(gates)
		}
		if len(gates) == 0 {
			fmt.Println("No quality gates recorded.")
			return nil
		}
		for _, g := range gates {
			result := colorGreen + "passed" + colorReset
			if !g.Passed {
				result = colorRed + "failed" + colorReset
			}
			fmt.Printf("%s#%d%s %s %s  %s/%s  %s%s%s\n",
				colorBold, g.ID, colorReset, g.GateName, result,
				g.Phase, g.Constellation, colorDim, formatTime(g.CheckedAt), colorReset)
			if g.Details != "" {
				fmt.Printf("  %s\n", g.Details)
			}
		}
		return nil
	})
}
