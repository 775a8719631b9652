package cmd

import (
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/runger/nebula/internal/memory"
	"github.com/runger/nebula/internal/picker"
)

var browseQuery string

var browseCmd = &cobra.Command{
	Use:     "browse",
	Short:   "Browse errors and patterns interactively",
	GroupID: groupMemory,
	Long: `Open a full-screen browser over the project memory. Typing searches
errors by message and stack trace; on the Patterns tab it filters by cause
and error type. Enter prints the selected entry in full.

Keys:
  up/down     move
  tab         next tab (Unresolved, All errors, Patterns)
  enter       show the selected entry
  esc, ctrl-c quit`,
	Args: cobra.NoArgs,
	RunE: runBrowse,
}

func init() {
	browseCmd.Flags().StringVarP(&browseQuery, "query", "q", "", "initial search text")
	rootCmd.AddCommand(browseCmd)
}

func runBrowse(cmd *cobra.Command, args []string) error {
	if jsonOutput {
		return errors.New("browse is interactive; use 'error list' or 'patterns' with --json")
	}
	ctx := cmd.Context()
	return withStore(ctx, func(e *env, s *memory.Store) error {
		model := picker.NewModel(picker.DefaultTabs(), picker.NewStoreProvider(s)).
			WithPageSize(e.cfg.Browse.PageSize)
		if browseQuery != "" {
			model = model.WithQuery(browseQuery)
		}

		opts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}
		// Prefer /dev/tty so the browser works when stdout is piped.
		if tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0); err == nil {
			defer tty.Close()
			lipgloss.SetColorProfile(termenv.NewOutput(tty).ColorProfile())
			opts = append(opts, tea.WithInput(tty), tea.WithOutput(tty))
		} else {
			e.logger.Debug("no controlling tty, using stdio", "error", err)
			lipgloss.SetColorProfile(termenv.NewOutput(os.Stdout).ColorProfile())
		}

		final, err := tea.NewProgram(model, opts...).Run()
		if err != nil {
			return fmt.Errorf("browser failed: %w", err)
		}
		m, ok := final.(picker.Model)
		if !ok || m.IsCancelled() {
			return nil
		}
		item := m.Result()
		if item == nil {
			return nil
		}
		return showItem(cmd, s, item)
	})
}

func showItem(cmd *cobra.Command, s *memory.Store, item *picker.Item) error {
	ctx := cmd.Context()
	switch item.Kind {
	case picker.KindPattern:
		p, err := s.GetPattern(ctx, item.Key)
		if err != nil {
			return err
		}
		printHeader("Pattern " + p.ErrorType)
		fmt.Printf("  Cause:       %s\n", p.CommonCause)
		fmt.Printf("  Occurrences: %d\n", p.Occurrences)
		fmt.Printf("  First seen:  %s\n", formatTime(p.FirstSeen))
		fmt.Printf("  Last seen:   %s\n", formatTime(p.LastSeen))
		fmt.Printf("  Signature:   %s%s%s\n", colorDim, p.Signature, colorReset)
		if p.RecommendedSolution != nil {
			fmt.Printf("  %sRecommended:%s %s (success rate %.0f%%)\n",
				colorGreen, colorReset, *p.RecommendedSolution, p.SuccessRate*100)
		}
		return nil
	default:
		d, err := loadErrorDetail(ctx, s, item.ID)
		if err != nil {
			return err
		}
		printErrorDetail(d)
		return nil
	}
}
