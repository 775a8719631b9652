package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/runger/nebula/internal/memory"
)

var seedCmd = &cobra.Command{
	Use:     "seed [framework]",
	Short:   "Load known error patterns for a framework",
	GroupID: groupMemory,
	Long: `Load known error patterns from <seed dir>/<framework>.yaml. Patterns
already in the store are left alone, so seeding twice adds nothing.

The framework defaults to the project's framework. The seed directory is
seed.dir, or .nebula/seeds when unset.

Seed file layout:
  framework: nextjs
  patterns:
    - error_code: MODULE_NOT_FOUND
      message: "Cannot find module 'react'"
      common_cause: Dependency not installed
      recommended_solution: npm install`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	return withStore(ctx, func(e *env, s *memory.Store) error {
		framework := ""
		if len(args) > 0 {
			framework = args[0]
		} else {
			info, err := s.Project(ctx)
			if err != nil {
				return err
			}
			framework = info.Framework
		}

		dir := e.paths.ResolveSeedsDir(e.cfg)
		patterns, err := memory.LoadSeedFile(dir, framework)
		if err != nil {
			return err
		}
		added, err := s.SeedPatterns(ctx, patterns)
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(map[string]any{
				"file":    memory.SeedPath(dir, framework),
				"offered": len(patterns),
				"added":   added,
			})
		}
		fmt.Printf("Seeded %s%d%s of %d patterns from %s\n", colorGreen, added, colorReset,
			len(patterns), memory.SeedPath(dir, framework))
		return nil
	})
}
