package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/runger/nebula/internal/memory"
)

var (
	initName      string
	initFramework string
	initSeed      bool
)

var initCmd = &cobra.Command{
	Use:     "init",
	Short:   "Create the project memory",
	GroupID: groupProject,
	Long: `Create .nebula/ in the project root with an empty memory database and a
default config.yaml. Running init again is safe: the existing project row,
version and history are kept.

The framework selects the seed file (.nebula/seeds/<framework>.yaml) used by
--seed and 'nebula seed'.

Examples:
  nebula init --framework nextjs
  nebula init --name storefront --framework django --seed`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVar(&initName, "name", "", "project name (default: config project.name or directory name)")
	initCmd.Flags().StringVar(&initFramework, "framework", "", "framework, e.g. nextjs, django, rails (default: config project.framework)")
	initCmd.Flags().BoolVar(&initSeed, "seed", false, "load known error patterns for the framework")

	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.close()

	name := strings.TrimSpace(initName)
	if name == "" {
		name = e.projectName()
	}
	framework := strings.TrimSpace(initFramework)
	if framework == "" {
		framework = e.cfg.Project.Framework
	}
	if framework == "" {
		return errors.New("framework is required: pass --framework or set project.framework")
	}

	if err := e.paths.EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}
	configFile := e.paths.ConfigFile()
	if _, err := os.Stat(configFile); errors.Is(err, os.ErrNotExist) {
		e.cfg.Project.Name = name
		e.cfg.Project.Framework = framework
		if err := e.cfg.SaveToFile(configFile); err != nil {
			return err
		}
	}

	s, err := memory.Open(ctx, e.storeOptions())
	if err != nil {
		return err
	}
	defer s.Close()

	info, err := s.Init(ctx, name, framework)
	if err != nil {
		return err
	}

	seeded := 0
	if initSeed {
		patterns, err := memory.LoadSeedFile(e.paths.ResolveSeedsDir(e.cfg), info.Framework)
		if err != nil {
			return err
		}
		if seeded, err = s.SeedPatterns(ctx, patterns); err != nil {
			return err
		}
	}

	if jsonOutput {
		return writeJSON(struct {
			*memory.ProjectInfo
			Database string `json:"database"`
			Seeded   int    `json:"seeded"`
		}{info, s.Path(), seeded})
	}

	fmt.Printf("%sInitialized%s %s (%s) at version %s\n", colorGreen, colorReset, info.Name, info.Framework, info.CurrentVersion)
	fmt.Printf("  Database: %s\n", s.Path())
	fmt.Printf("  Config:   %s\n", configFile)
	if initSeed {
		fmt.Printf("  Seeded:   %d patterns\n", seeded)
	}
	return nil
}
