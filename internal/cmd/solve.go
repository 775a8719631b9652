package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/runger/nebula/internal/memory"
)

var (
	solveDescription string
	solveCodeChanges string
	solveBy          string
	solveRating      int
	solveNotes       string
)

var solveCmd = &cobra.Command{
	Use:     "solve <error-id>",
	Short:   "Record the fix for an error",
	GroupID: groupMemory,
	Long: `Record how an error was fixed and mark it resolved. An error can be
solved once. A rating of 4 or 5 makes the description the recommended fix
for every future error with the same signature.

Examples:
  nebula solve 42 -d "npm install react" --rating 5
  nebula solve 42 -d "Added missing import" --by human --code-changes "$(git diff)"`,
	Args: cobra.ExactArgs(1),
	RunE: runSolve,
}

func init() {
	solveCmd.Flags().StringVarP(&solveDescription, "description", "d", "", "what fixed the error (required)")
	solveCmd.Flags().StringVar(&solveCodeChanges, "code-changes", "", "diff or code applied")
	solveCmd.Flags().StringVar(&solveBy, "by", string(memory.ActorAI), "who applied the fix: ai or human")
	solveCmd.Flags().IntVar(&solveRating, "rating", 0, "effectiveness 1-5 (0 = unrated)")
	solveCmd.Flags().StringVar(&solveNotes, "notes", "", "free-form notes")
	_ = solveCmd.MarkFlagRequired("description")

	rootCmd.AddCommand(solveCmd)
}

func runSolve(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id, err := parseID(args[0], "error")
	if err != nil {
		return err
	}
	by, err := memory.ParseActor(solveBy)
	if err != nil {
		return err
	}

	return withStore(ctx, func(e *env, s *memory.Store) error {
		solutionID, err := s.RecordSolution(ctx, memory.SolutionInput{
			ErrorID:       id,
			Description:   solveDescription,
			CodeChanges:   solveCodeChanges,
			AppliedBy:     by,
			Effectiveness: solveRating,
			Notes:         solveNotes,
		})
		if err != nil {
			return err
		}
		e.logger.Debug("solution recorded", "error_id", id, "solution_id", solutionID)

		if jsonOutput {
			return writeJSON(map[string]int64{"error_id": id, "solution_id": solutionID})
		}
		fmt.Printf("%sResolved%s error #%d with solution #%d\n", colorGreen, colorReset, id, solutionID)
		if solveRating >= 4 {
			fmt.Println("  Recommended for future errors with the same signature")
		}
		return nil
	})
}
