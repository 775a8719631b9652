package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/runger/nebula/internal/memory"
)

var (
	similarPhase string
	similarLimit int
)

var similarCmd = &cobra.Command{
	Use:     "similar <text>",
	Short:   "Find past errors matching text and how they were fixed",
	GroupID: groupMemory,
	Long: `Search past errors by message and stack trace. Uses SQLite FTS5 when
available and a case-sensitive substring match otherwise.

Examples:
  nebula similar "Cannot find module"
  nebula similar hydration --phase C2 --limit 5`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSimilar,
}

func init() {
	similarCmd.Flags().StringVar(&similarPhase, "phase", "", "only errors from this phase")
	similarCmd.Flags().IntVarP(&similarLimit, "limit", "n", 0, "maximum results (default: search.default_limit)")

	rootCmd.AddCommand(similarCmd)
}

func runSimilar(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	return withStore(ctx, func(e *env, s *memory.Store) error {
		limit := similarLimit
		if limit <= 0 {
			limit = e.cfg.Search.DefaultLimit
		}
		limit = min(limit, e.cfg.Search.MaxLimit)

		hits, err := s.FindSimilarErrors(ctx, memory.SimilarQuery{
			Text:  strings.Join(args, " "),
			Phase: similarPhase,
			Limit: limit,
		})
		if err != nil {
			return err
		}
		if jsonOutput {
			if hits == nil {
				hits = []memory.SimilarError{}
			}
			return writeJSON(hits)
		}
		if len(hits) == 0 {
			fmt.Println("No similar errors found.")
			return nil
		}

		width := terminalWidth() - 10
		for _, h := range hits {
			fmt.Printf("%s#%d%s %s %s\n", colorBold, h.ID, colorReset, colorDim+formatTime(h.CreatedAt)+colorReset, truncate(h.Message, width))
			if h.Solution != nil {
				fmt.Printf("  %sfix:%s %s\n", colorGreen, colorReset, truncate(h.Solution.Description, width))
			} else {
				fmt.Printf("  %sunresolved%s\n", colorYellow, colorReset)
			}
		}
		return nil
	})
}
