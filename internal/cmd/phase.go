package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/runger/nebula/internal/memory"
)

var (
	phaseConstellation string
	phaseSubPhase      string
)

var phaseCmd = &cobra.Command{
	Use:     "phase",
	Short:   "Move the current phase pointers",
	GroupID: groupProject,
}

var phaseSetCmd = &cobra.Command{
	Use:   "set [phase]",
	Short: "Set the current phase, constellation or sub-phase",
	Long: `Set the project's current phase pointers. Values left out are kept.
New errors, decisions and gates default to these pointers.

Examples:
  nebula phase set C3 --constellation "Constellation 3"
  nebula phase set --sub-phase testing`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPhaseSet,
}

func init() {
	phaseSetCmd.Flags().StringVar(&phaseConstellation, "constellation", "", "current constellation")
	phaseSetCmd.Flags().StringVar(&phaseSubPhase, "sub-phase", "", "current sub-phase")

	phaseCmd.AddCommand(phaseSetCmd)
	rootCmd.AddCommand(phaseCmd)
}

func runPhaseSet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	ptr := memory.PhasePointer{Constellation: phaseConstellation, SubPhase: phaseSubPhase}
	if len(args) > 0 {
		ptr.Phase = args[0]
	}

	return withStore(ctx, func(e *env, s *memory.Store) error {
		if err := s.SetPhase(ctx, ptr); err != nil {
			return err
		}
		info, err := s.Project(ctx)
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(info)
		}
		fmt.Printf("Phase: %s%s%s  Constellation: %s", colorBold, info.Phase, colorReset, info.Constellation)
		if info.SubPhase != "" {
			fmt.Printf("  Sub-phase: %s", info.SubPhase)
		}
		fmt.Println()
		return nil
	})
}
