package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/runger/nebula/internal/memory"
)

var (
	decPhase         string
	decConstellation string
	decCategory      string
	decChosen        string
	decAlternatives  string
	decRationale     string
	decBy            string

	decListPhase    string
	decListCategory string
	decListLimit    int
)

var decisionCmd = &cobra.Command{
	Use:     "decision",
	Short:   "Record and list architectural decisions",
	GroupID: groupLedger,
}

var decisionRecordCmd = &cobra.Command{
	Use:   "record <question>",
	Short: "Append a decision to the log",
	Long: `Append a decision. The log is append-only; record a new decision to
revise an old one.

Examples:
  nebula decision record "Which state library?" --category architecture \
    --chosen zustand --alternatives "redux,jotai" --rationale "smallest API"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDecisionRecord,
}

var decisionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List decisions, newest first",
	Args:  cobra.NoArgs,
	RunE:  runDecisionList,
}

func init() {
	f := decisionRecordCmd.Flags()
	f.StringVar(&decPhase, "phase", "", "phase (default: current phase)")
	f.StringVar(&decConstellation, "constellation", "", "constellation (default: current constellation)")
	f.StringVar(&decCategory, "category", "", "category, e.g. architecture or tooling (required)")
	f.StringVar(&decChosen, "chosen", "", "the option taken (required)")
	f.StringVar(&decAlternatives, "alternatives", "", "options considered, comma or shell-quoted list")
	f.StringVar(&decRationale, "rationale", "", "why the option was chosen")
	f.StringVar(&decBy, "by", string(memory.ActorAI), "who decided: ai or human")
	_ = decisionRecordCmd.MarkFlagRequired("category")
	_ = decisionRecordCmd.MarkFlagRequired("chosen")

	decisionListCmd.Flags().StringVar(&decListPhase, "phase", "", "only decisions from this phase")
	decisionListCmd.Flags().StringVar(&decListCategory, "category", "", "only decisions in this category")
	decisionListCmd.Flags().IntVarP(&decListLimit, "limit", "n", memory.DefaultListLimit, "maximum number of decisions")

	decisionCmd.AddCommand(decisionRecordCmd, decisionListCmd)
	rootCmd.AddCommand(decisionCmd)
}

func runDecisionRecord(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	by, err := memory.ParseActor(decBy)
	if err != nil {
		return err
	}
	alternatives, err := splitList(decAlternatives)
	if err != nil {
		return err
	}

	return withStore(ctx, func(e *env, s *memory.Store) error {
		phase, constellation, err := pointers(ctx, s, decPhase, decConstellation)
		if err != nil {
			return err
		}
		id, err := s.RecordDecision(ctx, memory.DecisionInput{
			Phase:         phase,
			Constellation: constellation,
			Category:      decCategory,
			Question:      strings.Join(args, " "),
			Chosen:        decChosen,
			Alternatives:  alternatives,
			Rationale:     decRationale,
			DecidedBy:     by,
		})
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(map[string]int64{"decision_id": id})
		}
		fmt.Printf("Recorded decision %s#%d%s: %s\n", colorBold, id, colorReset, decChosen)
		return nil
	})
}

func runDecisionList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	return withStore(ctx, func(e *env, s *memory.Store) error {
		decisions, err := s.ListDecisions(ctx, memory.DecisionQuery{
			Phase:    decListPhase,
			Category: decListCategory,
			Limit:    decListLimit,
		})
		if err != nil {
			return err
		}
		if jsonOutput {
			if decisions == nil {
				decisions = []memory.Decision{}
			}
			return writeJSON(decisions)
		}
		if len(decisions) == 0 {
			fmt.Println("No decisions recorded.")
			return nil
		}
		for _, d := range decisions {
			fmt.Printf("%s#%d%s %s[%s]%s %s %s%s%s\n", colorBold, d.ID, colorReset,
				colorCyan, d.Category, colorReset, d.Question, colorDim, formatTime(d.CreatedAt), colorReset)
			fmt.Printf("  chose %s%s%s", colorGreen, d.Chosen, colorReset)
			if len(d.Alternatives) > 0 {
				fmt.Printf(" over %s", strings.Join(d.Alternatives, ", "))
			}
			fmt.Printf(" (%s)\n", d.DecidedBy)
			if d.Rationale != "" {
				fmt.Printf("  %s\n", d.Rationale)
			}
		}
		return nil
	})
}
