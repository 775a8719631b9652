package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/runger/nebula/internal/memory"
	"github.com/runger/nebula/internal/version"
)

var (
	bumpChangelog string
	bumpTag       string
	bumpBy        string
	bumpKeepLower bool

	historyLimit int
)

var versionCmd = &cobra.Command{
	Use:     "version",
	Short:   "Show and advance the project version",
	GroupID: groupProject,
	Long: `The project version has four components, most significant first:

  constellation.star_system.quality_gate.patch

Bumping a component zeroes the ones after it unless --keep-lower is given.
Every bump is logged as a decision and appended to the version history.
Use 'nebula about' for the build version of this binary.`,
	Args: cobra.NoArgs,
	RunE: runVersionShow,
}

var versionShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current project version",
	Args:  cobra.NoArgs,
	RunE:  runVersionShow,
}

var versionBumpCmd = &cobra.Command{
	Use:       "bump <component>",
	Short:     "Increment one version component",
	Args:      cobra.ExactArgs(1),
	ValidArgs: componentNames(),
	Example: `  nebula version bump patch
  nebula version bump constellation --changelog "Auth complete" --tag v2.0`,
	RunE: runVersionBump,
}

var versionSetCmd = &cobra.Command{
	Use:   "set <C.S.Q.P>",
	Short: "Overwrite the project version",
	Long: `Overwrite the project version. The new value is not checked against the
current one, so this can move the version backwards.`,
	Args: cobra.ExactArgs(1),
	RunE: runVersionSet,
}

var versionHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded versions, newest first",
	Args:  cobra.NoArgs,
	RunE:  runVersionHistory,
}

func init() {
	versionBumpCmd.Flags().StringVar(&bumpChangelog, "changelog", "", "what changed")
	versionBumpCmd.Flags().StringVar(&bumpTag, "tag", "", "release tag")
	versionBumpCmd.Flags().StringVar(&bumpBy, "by", string(memory.ActorAI), "who decided the bump: ai or human")
	versionBumpCmd.Flags().BoolVar(&bumpKeepLower, "keep-lower", false, "do not reset less significant components")

	versionHistoryCmd.Flags().IntVarP(&historyLimit, "limit", "n", memory.DefaultListLimit, "maximum number of entries")

	versionCmd.AddCommand(versionShowCmd, versionBumpCmd, versionSetCmd, versionHistoryCmd)
	rootCmd.AddCommand(versionCmd)
}

func componentNames() []string {
	var names []string
	for _, c := range version.Components() {
		names = append(names, string(c))
	}
	return names
}

func runVersionShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	return withStore(ctx, func(e *env, s *memory.Store) error {
		v, err := s.CurrentVersion(ctx)
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(struct {
				Version    string          `json:"version"`
				Components version.Version `json:"components"`
			}{v.String(), v})
		}
		fmt.Println(v)
		return nil
	})
}

func runVersionBump(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	c, err := version.ParseComponent(args[0])
	if err != nil {
		return fmt.Errorf("%w (want one of: %s)", err, strings.Join(componentNames(), ", "))
	}
	by, err := memory.ParseActor(bumpBy)
	if err != nil {
		return err
	}

	return withStore(ctx, func(e *env, s *memory.Store) error {
		from, err := s.CurrentVersion(ctx)
		if err != nil {
			return err
		}
		to, err := s.BumpVersion(ctx, c, memory.BumpOptions{
			Changelog: bumpChangelog,
			Tag:       bumpTag,
			DecidedBy: by,
			KeepLower: bumpKeepLower,
		})
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(map[string]string{"from": from.String(), "to": to.String(), "component": string(c)})
		}
		fmt.Printf("%s -> %s%s%s\n", from, colorGreen, to, colorReset)
		return nil
	})
}

func runVersionSet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	v, err := version.Parse(args[0])
	if err != nil {
		return err
	}
	return withStore(ctx, func(e *env, s *memory.Store) error {
		if err := s.SetVersion(ctx, v); err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(map[string]string{"version": v.String()})
		}
		fmt.Printf("Version set to %s%s%s\n", colorGreen, v, colorReset)
		return nil
	})
}

func runVersionHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	return withStore(ctx, func(e *env, s *memory.Store) error {
		entries, err := s.VersionHistory(ctx, historyLimit)
		if err != nil {
			return err
		}
		if jsonOutput {
			if entries == nil {
				entries = []memory.VersionHistoryEntry{}
			}
			return writeJSON(entries)
		}
		if len(entries) == 0 {
			fmt.Println("No versions recorded.")
			return nil
		}
		for _, h := range entries {
			fmt.Printf("%s%-12s%s %s %s/%s", colorBold, h.Version, colorReset,
				formatTime(h.CreatedAt), orDash(h.Phase), orDash(h.Constellation))
			if h.Tag != "" {
				fmt.Printf(" %s[%s]%s", colorCyan, h.Tag, colorReset)
			}
			if h.Changelog != "" {
				fmt.Printf("  %s", h.Changelog)
			}
			fmt.Println()
		}
		return nil
	})
}
