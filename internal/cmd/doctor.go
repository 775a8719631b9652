package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/runger/nebula/internal/memory"
)

var doctorCmd = &cobra.Command{
	Use:     "doctor",
	Short:   "Check the project memory for problems",
	GroupID: groupProject,
	Long: `Run diagnostic checks on the project memory.

This command checks:
- Configuration validity
- Database presence and lock state
- Schema version, tables and indexes
- SQLite integrity (quick_check)
- Full-text search availability
- Seed file for the project's framework

Exits non-zero when any check fails.`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

type checkStatus string

const (
	checkOK    checkStatus = "ok"
	checkWarn  checkStatus = "warn"
	checkError checkStatus = "error"
)

type checkResult struct {
	Name    string      `json:"name"`
	Status  checkStatus `json:"status"`
	Message string      `json:"message,omitempty"`
}

var errDoctorFailed = errors.New("doctor found errors")

func runDoctor(cmd *cobra.Command, args []string) error {
	results := diagnose(cmd.Context())

	if jsonOutput {
		if err := writeJSON(results); err != nil {
			return err
		}
		if hasStatus(results, checkError) {
			return errDoctorFailed
		}
		return nil
	}

	fmt.Printf("%snebula doctor%s\n", colorBold, colorReset)
	fmt.Println(strings.Repeat("-", 40))
	for _, r := range results {
		var icon string
		switch r.Status {
		case checkOK:
			icon = colorGreen + "[OK]" + colorReset
		case checkWarn:
			icon = colorYellow + "[WARN]" + colorReset
		default:
			icon = colorRed + "[ERROR]" + colorReset
		}
		fmt.Printf("  %s %s\n", icon, r.Name)
		if r.Message != "" {
			fmt.Printf("       %s%s%s\n", colorDim, r.Message, colorReset)
		}
	}
	fmt.Println()

	switch {
	case hasStatus(results, checkError):
		fmt.Printf("%sSome checks failed.%s\n", colorRed, colorReset)
		return errDoctorFailed
	case hasStatus(results, checkWarn):
		fmt.Printf("%sNo errors, but there are warnings.%s\n", colorYellow, colorReset)
	default:
		fmt.Printf("%sAll checks passed.%s\n", colorGreen, colorReset)
	}
	return nil
}

func hasStatus(results []checkResult, status checkStatus) bool {
	for _, r := range results {
		if r.Status == status {
			return true
		}
	}
	return false
}

// diagnose runs the checks in order. Later checks are skipped when an
// earlier one leaves nothing to inspect.
func diagnose(ctx context.Context) []checkResult {
	e, err := loadEnv()
	if err != nil {
		return []checkResult{{Name: "Configuration", Status: checkError, Message: err.Error()}}
	}
	defer e.close()

	results := []checkResult{{Name: "Configuration", Status: checkOK, Message: e.paths.ConfigFile()}}

	dbPath := e.paths.ResolveDatabase(e.cfg)
	info, err := os.Stat(dbPath)
	if err != nil {
		msg := err.Error()
		if errors.Is(err, os.ErrNotExist) {
			msg = "missing " + dbPath + "; run 'nebula init'"
		}
		return append(results, checkResult{Name: "Database", Status: checkError, Message: msg})
	}
	results = append(results, checkResult{
		Name:    "Database",
		Status:  checkOK,
		Message: fmt.Sprintf("%s (%s)", dbPath, formatSize(info.Size())),
	})

	if memory.IsLocked(filepath.Dir(dbPath)) {
		msg := "held by another process"
		if pid := memory.GetLockHolderPID(filepath.Dir(dbPath)); pid > 0 {
			msg = fmt.Sprintf("held by pid %d", pid)
		}
		return append(results, checkResult{Name: "Lock", Status: checkWarn, Message: msg + "; remaining checks skipped"})
	}

	s, err := e.openStore(ctx)
	if err != nil {
		return append(results, checkResult{Name: "Open", Status: checkError, Message: err.Error()})
	}
	defer s.Close()

	results = append(results, checkSchema(ctx, s))
	results = append(results, checkIntegrity(ctx, s))
	results = append(results, checkSearch(s, e.cfg.Storage.FTSEnabled))

	project, err := s.Project(ctx)
	if err != nil {
		return append(results, checkResult{Name: "Project", Status: checkError, Message: err.Error()})
	}
	results = append(results, checkResult{
		Name:    "Project",
		Status:  checkOK,
		Message: fmt.Sprintf("%s (%s) v%s, %s", project.Name, project.Framework, project.CurrentVersion, project.Phase),
	})

	seedFile := memory.SeedPath(e.paths.ResolveSeedsDir(e.cfg), project.Framework)
	if _, err := os.Stat(seedFile); err != nil {
		results = append(results, checkResult{Name: "Seed file", Status: checkWarn, Message: "none at " + seedFile})
	} else {
		results = append(results, checkResult{Name: "Seed file", Status: checkOK, Message: seedFile})
	}
	return results
}

func checkSchema(ctx context.Context, s *memory.Store) checkResult {
	v, err := s.SchemaVersion(ctx)
	if err != nil {
		return checkResult{Name: "Schema", Status: checkError, Message: err.Error()}
	}
	if err := s.Validate(ctx); err != nil {
		return checkResult{Name: "Schema", Status: checkError, Message: err.Error()}
	}
	return checkResult{Name: "Schema", Status: checkOK, Message: fmt.Sprintf("version %d", v)}
}

func checkIntegrity(ctx context.Context, s *memory.Store) checkResult {
	if err := s.IntegrityCheck(ctx); err != nil {
		return checkResult{Name: "Integrity", Status: checkError, Message: err.Error()}
	}
	return checkResult{Name: "Integrity", Status: checkOK}
}

func checkSearch(s *memory.Store, enabled bool) checkResult {
	switch {
	case s.FTSAvailable():
		return checkResult{Name: "Search", Status: checkOK, Message: "FTS5"}
	case enabled:
		return checkResult{Name: "Search", Status: checkWarn, Message: "FTS5 unavailable; using substring matching"}
	default:
		return checkResult{Name: "Search", Status: checkOK, Message: "substring matching (storage.fts_enabled=false)"}
	}
}
