package cmd

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/runger/nebula/internal/extract"
	"github.com/runger/nebula/internal/memory"
)

var (
	ingestLevel         string
	ingestPhase         string
	ingestConstellation string
	ingestFormat        string
	ingestDryRun        bool
)

var errorIngestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Extract errors from build, test or runtime output and log them",
	Long: `Scan captured output for error reports and log each one as if it had
been passed to 'nebula error log'. Reads stdin when no file (or "-") is given.

Recognized text formats: tsc, rustc, Go compiler, Python tracebacks and
Node.js errors with stack frames. --format jsonl reads an error log with one
JSON object per line (type, message, context, traceback); auto picks jsonl
when the input starts with "{".

Examples:
  npx tsc --noEmit 2>&1 | nebula error ingest
  nebula error ingest .nebula/logs/errors.jsonl
  pytest 2>&1 | nebula error ingest --dry-run`,
	Args: cobra.MaximumNArgs(1),
	RunE: runErrorIngest,
}

func init() {
	f := errorIngestCmd.Flags()
	f.StringVar(&ingestLevel, "level", string(memory.LevelError), "ERROR or CRITICAL for every extracted error")
	f.StringVar(&ingestPhase, "phase", "", "phase (default: current phase)")
	f.StringVar(&ingestConstellation, "constellation", "", "constellation (default: current constellation)")
	f.StringVar(&ingestFormat, "format", "auto", "input format: auto, text or jsonl")
	f.BoolVar(&ingestDryRun, "dry-run", false, "print what would be logged without storing it")

	errorCmd.AddCommand(errorIngestCmd)
}

type ingestEntry struct {
	Finding extract.Finding   `json:"finding"`
	Result  *memory.LogResult `json:"result,omitempty"`
}

func runErrorIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	level, err := memory.ParseLevel(ingestLevel)
	if err != nil {
		return err
	}
	src := "-"
	if len(args) == 1 {
		src = args[0]
	}
	data, err := readInput(cmd.InOrStdin(), src)
	if err != nil {
		return err
	}
	findings, err := parseFindings(data, ingestFormat)
	if err != nil {
		return err
	}

	if ingestDryRun {
		entries := make([]ingestEntry, len(findings))
		for i, f := range findings {
			entries[i].Finding = f
		}
		return printIngest(entries)
	}

	return withStore(ctx, func(e *env, s *memory.Store) error {
		phase, constellation, err := pointers(ctx, s, ingestPhase, ingestConstellation)
		if err != nil {
			return err
		}

		entries := make([]ingestEntry, 0, len(findings))
		for _, f := range findings {
			attrs := memory.Attributes{"extractor": f.Pattern}
			for k, v := range f.Attrs {
				attrs[k] = v
			}
			res, err := s.LogError(ctx, memory.ErrorInput{
				Level:         level,
				Phase:         phase,
				Constellation: constellation,
				File:          f.File,
				Line:          f.Line,
				Code:          f.Code,
				Message:       f.Message,
				StackTrace:    f.Stack,
				Attributes:    attrs,
			})
			if err != nil {
				return fmt.Errorf("failed to log %q: %w", truncate(f.Message, 60), err)
			}
			entries = append(entries, ingestEntry{Finding: f, Result: res})
		}
		e.logger.Debug("output ingested", "findings", len(findings), "format", ingestFormat)
		return printIngest(entries)
	})
}

func readInput(stdin io.Reader, src string) ([]byte, error) {
	if src == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return data, nil
}

func parseFindings(data []byte, format string) ([]extract.Finding, error) {
	switch strings.ToLower(format) {
	case "auto":
		if extract.LooksLikeJSONLines(data) {
			return extract.JSONLines(bytes.NewReader(data))
		}
		return extract.Errors(string(data)), nil
	case "text":
		return extract.Errors(string(data)), nil
	case "jsonl":
		return extract.JSONLines(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("%w: format must be auto, text or jsonl (got %q)", memory.ErrInvalidInput, format)
	}
}

func printIngest(entries []ingestEntry) error {
	if jsonOutput {
		if entries == nil {
			entries = []ingestEntry{}
		}
		return writeJSON(entries)
	}
	if len(entries) == 0 {
		fmt.Println("No errors found in input.")
		return nil
	}

	width := terminalWidth() - 32
	newPatterns := 0
	for _, en := range entries {
		f := en.Finding
		loc := orDash(f.File)
		if f.Line > 0 {
			loc = fmt.Sprintf("%s:%d", f.File, f.Line)
		}
		switch r := en.Result; {
		case r == nil:
			fmt.Printf("%s%-10s%s %s\n", colorDim, f.Pattern, colorReset, loc)
		case r.PatternFound:
			fmt.Printf("%s#%-5d%s %sknown x%d%s %s\n", colorBold, r.ErrorID, colorReset, colorYellow, r.Occurrences, colorReset, loc)
		default:
			newPatterns++
			fmt.Printf("%s#%-5d%s %snew%s      %s\n", colorBold, r.ErrorID, colorReset, colorCyan, colorReset, loc)
		}
		fmt.Printf("       %s\n", truncate(f.Message, width))
		if r := en.Result; r != nil && r.RecommendedSolution != "" {
			fmt.Printf("       %sRecommended:%s %s\n", colorGreen, colorReset, r.RecommendedSolution)
		}
	}

	if entries[0].Result == nil {
		fmt.Printf("\n%d errors found (dry run, nothing stored)\n", len(entries))
		return nil
	}
	fmt.Printf("\nLogged %d errors, %d new patterns\n", len(entries), newPatterns)
	return nil
}
