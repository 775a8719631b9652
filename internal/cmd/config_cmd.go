package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/runger/nebula/internal/config"
)

var configCmd = &cobra.Command{
	Use:     "config [key] [value]",
	Short:   "Get or set configuration values",
	GroupID: groupProject,
	Long: `Get or set nebula configuration values.

Without arguments, lists all configuration keys.
With one argument, shows the value of that key.
With two arguments, sets the key to the value.

Configuration is stored in <project>/.nebula/config.yaml. NEBULA_* environment
variables override the file (NEBULA_LOG_LEVEL, NEBULA_DEBUG, NEBULA_DB_PATH,
NEBULA_FTS_ENABLED, NEBULA_PROJECT_NAME, NEBULA_FRAMEWORK).

Keys are in the format: section.key
Sections: project, storage, log, search, export, seed, browse, privacy

Examples:
  nebula config                         # List all keys
  nebula config storage.fts_enabled     # Get a value
  nebula config log.level debug         # Set a value
  nebula config search.default_limit 20`,
	Args: cobra.MaximumNArgs(2),
	RunE: runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.close()

	switch len(args) {
	case 0:
		return listConfig(e)
	case 1:
		return getConfig(e.cfg, args[0])
	default:
		return setConfig(e.paths, args[0], args[1])
	}
}

// listConfig prints every key with its effective value. Keys whose value
// comes from a NEBULA_* variable rather than the file are marked.
func listConfig(e *env) error {
	fileCfg, err := config.ReadFile(e.paths.ConfigFile())
	if err != nil {
		return err
	}

	keys := config.ListKeys()
	if jsonOutput {
		values := make(map[string]string, len(keys))
		for _, key := range keys {
			if v, err := e.cfg.Get(key); err == nil {
				values[key] = v
			}
		}
		return writeJSON(values)
	}

	printHeader("Configuration")
	fmt.Println()

	var failedKeys []string
	for _, key := range keys {
		value, err := e.cfg.Get(key)
		if err != nil {
			failedKeys = append(failedKeys, key)
			continue
		}

		display := value
		if display == "" {
			display = colorDim + "(not set)" + colorReset
		}
		if fileValue, _ := fileCfg.Get(key); fileValue != value {
			display += colorYellow + " (env)" + colorReset
		}
		fmt.Printf("  %s%s%s = %s\n", colorCyan, key, colorReset, display)
	}

	if len(failedKeys) > 0 {
		fmt.Printf("\n%sWarning:%s Failed to retrieve keys: %s\n", colorYellow, colorReset, strings.Join(failedKeys, ", "))
	}

	fmt.Printf("\nConfig file: %s\n", e.paths.ConfigFile())
	return nil
}

func getConfig(cfg *config.Config, key string) error {
	value, err := cfg.Get(key)
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(map[string]string{"key": key, "value": value})
	}

	if value == "" {
		fmt.Printf("%s(not set)%s\n", colorDim, colorReset)
	} else {
		fmt.Println(value)
	}
	return nil
}

// setConfig edits the file values only, so environment overrides active in
// this shell are not written back.
func setConfig(paths *config.Paths, key, value string) error {
	cfg, err := config.ReadFile(paths.ConfigFile())
	if err != nil {
		return err
	}
	if err := cfg.Set(key, value); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := paths.EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}
	if err := cfg.SaveToFile(paths.ConfigFile()); err != nil {
		return err
	}

	if jsonOutput {
		return writeJSON(map[string]string{"key": key, "value": value, "file": paths.ConfigFile()})
	}
	fmt.Printf("%s%s%s = %s\n", colorCyan, key, colorReset, value)
	fmt.Printf("Saved to: %s\n", paths.ConfigFile())
	return nil
}
