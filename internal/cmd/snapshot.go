package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/runger/nebula/internal/memory"
)

var (
	snapPhase         string
	snapConstellation string
	snapFiles         string
	snapDecisions     string
	snapIssues        string
	snapNext          string
	snapMinutes       int

	snapLatestPhase string
)

var snapshotCmd = &cobra.Command{
	Use:     "snapshot",
	Short:   "Save and restore working context",
	GroupID: groupLedger,
}

var snapshotSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save the current working context",
	Long: `Save what is in flight so the next session can pick it up. List flags
take comma-separated values, or shell-quoted words when items contain spaces.

Examples:
  nebula snapshot save --files "src/auth.ts,src/login.tsx" --next "wire refresh tokens"
  nebula snapshot save --issues "'flaky login test' 'slow CI'" --minutes 90`,
	Args: cobra.NoArgs,
	RunE: runSnapshotSave,
}

var snapshotLatestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Show the most recent snapshot",
	Args:  cobra.NoArgs,
	RunE:  runSnapshotLatest,
}

func init() {
	f := snapshotSaveCmd.Flags()
	f.StringVar(&snapPhase, "phase", "", "phase (default: current phase)")
	f.StringVar(&snapConstellation, "constellation", "", "constellation (default: current constellation)")
	f.StringVar(&snapFiles, "files", "", "files being worked on")
	f.StringVar(&snapDecisions, "decisions", "", "decisions made this session")
	f.StringVar(&snapIssues, "issues", "", "open issues")
	f.StringVar(&snapNext, "next", "", "next steps")
	f.IntVar(&snapMinutes, "minutes", 0, "session length in minutes")

	snapshotLatestCmd.Flags().StringVar(&snapLatestPhase, "phase", "", "latest snapshot of this phase")

	snapshotCmd.AddCommand(snapshotSaveCmd, snapshotLatestCmd)
	rootCmd.AddCommand(snapshotCmd)
}

func runSnapshotSave(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	in := memory.SnapshotInput{NextSteps: snapNext, SessionMinutes: snapMinutes}
	var err error
	if in.ActiveFiles, err = splitList(snapFiles); err != nil {
		return err
	}
	if in.KeyDecisions, err = splitList(snapDecisions); err != nil {
		return err
	}
	if in.OpenIssues, err = splitList(snapIssues); err != nil {
		return err
	}

	return withStore(ctx, func(e *env, s *memory.Store) error {
		var err error
		if in.Phase, in.Constellation, err = pointers(ctx, s, snapPhase, snapConstellation); err != nil {
			return err
		}
		id, err := s.SaveContextSnapshot(ctx, in)
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(map[string]int64{"snapshot_id": id})
		}
		fmt.Printf("Saved snapshot %s#%d%s for %s\n", colorBold, id, colorReset, in.Phase)
		return nil
	})
}

func runSnapshotLatest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	return withStore(ctx, func(e *env, s *memory.Store) error {
		snap, err := s.LatestContextSnapshot(ctx, snapLatestPhase)
		if errors.Is(err, memory.ErrNoSnapshot) {
			if jsonOutput {
				return writeJSON(nil)
			}
			fmt.Println("No snapshot saved.")
			return nil
		}
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(snap)
		}

		printHeader(fmt.Sprintf("Snapshot #%d", snap.ID))
		fmt.Printf("  Phase:   %s / %s\n", orDash(snap.Phase), orDash(snap.Constellation))
		fmt.Printf("  Saved:   %s", formatTime(snap.CreatedAt))
		if snap.SessionMinutes > 0 {
			fmt.Printf(" after %d min", snap.SessionMinutes)
		}
		fmt.Println()
		printList("Files", snap.ActiveFiles)
		printList("Decisions", snap.KeyDecisions)
		printList("Open issues", snap.OpenIssues)
		if snap.NextSteps != "" {
			fmt.Printf("\n%sNext:%s %s\n", colorBold, colorReset, snap.NextSteps)
		}
		return nil
	})
}

func printList(title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Printf("\n%s%s:%s\n", colorBold, title, colorReset)
	fmt.Printf("  - %s\n", strings.Join(items, "\n  - "))
}
