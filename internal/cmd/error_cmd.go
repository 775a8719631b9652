package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/runger/nebula/internal/memory"
)

var (
	errLevel         string
	errPhase         string
	errConstellation string
	errFile          string
	errLine          int
	errCode          string
	errStack         string
	errAttrs         map[string]string

	errListPhase      string
	errListUnresolved bool
	errListLimit      int
)

var errorCmd = &cobra.Command{
	Use:     "error",
	Short:   "Log and inspect development errors",
	GroupID: groupMemory,
}

var errorLogCmd = &cobra.Command{
	Use:   "log <message>",
	Short: "Record an error and match it against known patterns",
	Long: `Record an error. Messages that differ only in numbers, quotes or
whitespace share a signature and count towards the same pattern; when the
pattern already has a recommended solution it is printed.

Phase and constellation default to the project's current pointers.
--stack reads the stack trace from a file, or from stdin with "-".

Examples:
  nebula error log "Cannot find module 'react'" --code MODULE_NOT_FOUND
  nebula error log "Hydration failed" --file app/page.tsx --line 12 --attr route=/
  npm test 2>&1 | nebula error log "jest failed" --stack -`,
	Args: cobra.MinimumNArgs(1),
	RunE: runErrorLog,
}

var errorShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one error with its pattern and solution",
	Args:  cobra.ExactArgs(1),
	RunE:  runErrorShow,
}

var errorListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent errors, newest first",
	Args:  cobra.NoArgs,
	RunE:  runErrorList,
}

func init() {
	f := errorLogCmd.Flags()
	f.StringVar(&errLevel, "level", string(memory.LevelError), "ERROR or CRITICAL")
	f.StringVar(&errPhase, "phase", "", "phase (default: current phase)")
	f.StringVar(&errConstellation, "constellation", "", "constellation (default: current constellation)")
	f.StringVar(&errFile, "file", "", "source file")
	f.IntVar(&errLine, "line", 0, "line number")
	f.StringVar(&errCode, "code", "", "error code, e.g. TS2304 or MODULE_NOT_FOUND")
	f.StringVar(&errStack, "stack", "", `file holding the stack trace ("-" for stdin)`)
	f.StringToStringVar(&errAttrs, "attr", nil, "extra context as key=value (repeatable)")

	errorListCmd.Flags().StringVar(&errListPhase, "phase", "", "only errors from this phase")
	errorListCmd.Flags().BoolVar(&errListUnresolved, "unresolved", false, "only errors without a solution")
	errorListCmd.Flags().IntVarP(&errListLimit, "limit", "n", memory.DefaultListLimit, "maximum number of errors")

	errorCmd.AddCommand(errorLogCmd, errorShowCmd, errorListCmd)
	rootCmd.AddCommand(errorCmd)
}

func runErrorLog(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	level, err := memory.ParseLevel(errLevel)
	if err != nil {
		return err
	}
	stack, err := readStack(cmd.InOrStdin(), errStack)
	if err != nil {
		return err
	}

	return withStore(ctx, func(e *env, s *memory.Store) error {
		in := memory.ErrorInput{
			Level:      level,
			File:       errFile,
			Line:       errLine,
			Code:       errCode,
			Message:    strings.Join(args, " "),
			StackTrace: stack,
			Attributes: errAttrs,
		}
		var err error
		if in.Phase, in.Constellation, err = pointers(ctx, s, errPhase, errConstellation); err != nil {
			return err
		}

		res, err := s.LogError(ctx, in)
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(res)
		}

		fmt.Printf("Logged error %s#%d%s (signature %s)\n", colorBold, res.ErrorID, colorReset, res.Signature[:12])
		if !res.PatternFound {
			fmt.Printf("  %sNew pattern%s\n", colorCyan, colorReset)
			return nil
		}
		fmt.Printf("  %sKnown pattern%s, seen %d times\n", colorYellow, colorReset, res.Occurrences)
		if res.RecommendedSolution != "" {
			fmt.Printf("  %sRecommended:%s %s\n", colorGreen, colorReset, res.RecommendedSolution)
		}
		return nil
	})
}

func readStack(stdin io.Reader, src string) (string, error) {
	switch src {
	case "":
		return "", nil
	case "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stack trace from stdin: %w", err)
		}
		return strings.TrimRight(string(data), "\n"), nil
	default:
		data, err := os.ReadFile(src)
		if err != nil {
			return "", fmt.Errorf("failed to read stack trace: %w", err)
		}
		return strings.TrimRight(string(data), "\n"), nil
	}
}

func parseID(arg, what string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(arg, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id: %q", what, arg)
	}
	return id, nil
}

type errorDetail struct {
	*memory.ErrorRecord
	Pattern  *memory.ErrorPattern `json:"pattern,omitempty"`
	Solution *memory.Solution     `json:"solution,omitempty"`
}

func runErrorShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id, err := parseID(args[0], "error")
	if err != nil {
		return err
	}

	return withStore(ctx, func(e *env, s *memory.Store) error {
		d, err := loadErrorDetail(ctx, s, id)
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(d)
		}
		printErrorDetail(d)
		return nil
	})
}

func loadErrorDetail(ctx context.Context, s *memory.Store, id int64) (*errorDetail, error) {
	rec, err := s.GetError(ctx, id)
	if err != nil {
		return nil, err
	}
	d := &errorDetail{ErrorRecord: rec}
	if d.Pattern, err = s.GetPattern(ctx, rec.Signature); err != nil && !errors.Is(err, memory.ErrPatternNotFound) {
		return nil, err
	}
	if rec.SolutionID != nil {
		if d.Solution, err = s.GetSolution(ctx, *rec.SolutionID); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func printErrorDetail(d *errorDetail) {
	printHeader(fmt.Sprintf("Error #%d", d.ID))
	fmt.Printf("  Level:     %s\n", levelColor(d.Level))
	fmt.Printf("  Message:   %s\n", d.Message)
	if d.Code != "" {
		fmt.Printf("  Code:      %s\n", d.Code)
	}
	if d.File != "" {
		loc := d.File
		if d.Line > 0 {
			loc += ":" + strconv.Itoa(d.Line)
		}
		fmt.Printf("  Location:  %s\n", loc)
	}
	fmt.Printf("  Phase:     %s / %s\n", orDash(d.Phase), orDash(d.Constellation))
	fmt.Printf("  Logged:    %s\n", formatTime(d.CreatedAt))
	fmt.Printf("  Resolved:  %s\n", formatBool(d.Resolved))
	for _, k := range slices.Sorted(maps.Keys(d.Attributes)) {
		fmt.Printf("  %s%s%s = %s\n", colorCyan, k, colorReset, d.Attributes[k])
	}
	if d.StackTrace != "" {
		fmt.Printf("\n%s%s%s\n", colorDim, d.StackTrace, colorReset)
	}
	if p := d.Pattern; p != nil {
		fmt.Printf("\n%sPattern:%s %s, %d occurrences, success rate %.0f%%\n",
			colorBold, colorReset, p.ErrorType, p.Occurrences, p.SuccessRate*100)
		if p.RecommendedSolution != nil {
			fmt.Printf("  Recommended: %s\n", *p.RecommendedSolution)
		}
	}
	if sol := d.Solution; sol != nil {
		fmt.Printf("\n%sSolution #%d%s by %s: %s\n", colorBold, sol.ID, colorReset, sol.AppliedBy, sol.Description)
		if sol.Effectiveness > 0 {
			fmt.Printf("  Effectiveness: %d/5\n", sol.Effectiveness)
		}
	}
}

func runErrorList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	return withStore(ctx, func(e *env, s *memory.Store) error {
		recs, err := s.ListErrors(ctx, memory.ErrorQuery{
			Phase:      errListPhase,
			Unresolved: errListUnresolved,
			Limit:      errListLimit,
		})
		if err != nil {
			return err
		}
		if jsonOutput {
			if recs == nil {
				recs = []memory.ErrorRecord{}
			}
			return writeJSON(recs)
		}
		if len(recs) == 0 {
			fmt.Println("No errors recorded.")
			return nil
		}
		width := terminalWidth() - 30
		for _, r := range recs {
			mark := colorYellow + "open" + colorReset
			if r.Resolved {
				mark = colorGreen + "done" + colorReset
			}
			fmt.Printf("%s#%-5d%s %s %-8s %s\n", colorBold, r.ID, colorReset, mark, levelColor(r.Level), truncate(r.Message, width))
		}
		return nil
	})
}

func levelColor(l memory.Level) string {
	if l == memory.LevelCritical {
		return colorRed + string(l) + colorReset
	}
	return colorYellow + string(l) + colorReset
}
