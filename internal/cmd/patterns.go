package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/runger/nebula/internal/memory"
)

var (
	patternsType  string
	patternsMin   int
	patternsLimit int
)

var patternsCmd = &cobra.Command{
	Use:     "patterns",
	Short:   "List recurring error patterns, most frequent first",
	GroupID: groupMemory,
	Long: `List error patterns. A pattern groups every error whose message
normalizes to the same signature.

Examples:
  nebula patterns --min 3
  nebula patterns --type TS2304 --json`,
	Args: cobra.NoArgs,
	RunE: runPatterns,
}

func init() {
	patternsCmd.Flags().StringVar(&patternsType, "type", "", "only patterns with this error type")
	patternsCmd.Flags().IntVar(&patternsMin, "min", 0, "minimum occurrences")
	patternsCmd.Flags().IntVarP(&patternsLimit, "limit", "n", memory.DefaultListLimit, "maximum number of patterns")

	rootCmd.AddCommand(patternsCmd)
}

func runPatterns(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	return withStore(ctx, func(e *env, s *memory.Store) error {
		patterns, err := s.GetPatterns(ctx, memory.PatternQuery{
			ErrorType:      patternsType,
			MinOccurrences: patternsMin,
			Limit:          patternsLimit,
		})
		if err != nil {
			return err
		}
		if jsonOutput {
			if patterns == nil {
				patterns = []memory.ErrorPattern{}
			}
			return writeJSON(patterns)
		}
		if len(patterns) == 0 {
			fmt.Println("No patterns recorded.")
			return nil
		}

		width := terminalWidth() - 8
		for _, p := range patterns {
			fmt.Printf("%s%4dx%s %s%s%s  %s\n", colorBold, p.Occurrences, colorReset,
				colorCyan, p.ErrorType, colorReset, truncate(p.CommonCause, width-len(p.ErrorType)-8))
			if p.RecommendedSolution != nil {
				fmt.Printf("       %sfix (%.0f%%):%s %s\n", colorGreen, p.SuccessRate*100, colorReset,
					truncate(*p.RecommendedSolution, width-12))
			}
		}
		return nil
	})
}
