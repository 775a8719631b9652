// Package config provides configuration management for nebula.
package config

import (
	"os"
	"path/filepath"
)

// DirName is the per-project directory holding the memory database,
// configuration, seeds and exports.
const DirName = ".nebula"

// Paths holds all the path configurations for one project.
type Paths struct {
	// Root is the project root (the directory containing .nebula/)
	Root string

	// DataDir is <Root>/.nebula
	DataDir string
}

// DefaultPaths discovers the project root from the working directory.
// NEBULA_PROJECT_DIR takes precedence over discovery.
func DefaultPaths() *Paths {
	if dir := os.Getenv("NEBULA_PROJECT_DIR"); dir != "" {
		return NewPaths(absOrSelf(dir))
	}
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	return NewPaths(FindRoot(cwd))
}

// NewPaths returns the paths for an explicit project root.
func NewPaths(root string) *Paths {
	return &Paths{
		Root:    root,
		DataDir: filepath.Join(root, DirName),
	}
}

// FindRoot walks up from start to the first directory holding a .nebula
// directory. If none is found, start itself is the root.
func FindRoot(start string) string {
	start = absOrSelf(start)
	dir := start
	for {
		if info, err := os.Stat(filepath.Join(dir, DirName)); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return start
		}
		dir = parent
	}
}

// ConfigFile returns the path to the project configuration file.
func (p *Paths) ConfigFile() string {
	return filepath.Join(p.DataDir, "config.yaml")
}

// DatabaseFile returns the path to the SQLite memory database.
func (p *Paths) DatabaseFile() string {
	return filepath.Join(p.DataDir, "memory.db")
}

// SeedsDir returns the directory of per-framework seed files.
func (p *Paths) SeedsDir() string {
	return filepath.Join(p.DataDir, "seeds")
}

// ExportDir returns the default directory for JSON exports.
func (p *Paths) ExportDir() string {
	return filepath.Join(p.DataDir, "exports")
}

// LogDir returns the path to the log directory.
func (p *Paths) LogDir() string {
	return filepath.Join(p.DataDir, "logs")
}

// LogFile returns the default log file path.
func (p *Paths) LogFile() string {
	return filepath.Join(p.LogDir(), "nebula.log")
}

// EnsureDirectories creates all necessary directories.
func (p *Paths) EnsureDirectories() error {
	dirs := []string{
		p.DataDir,
		p.SeedsDir(),
		p.ExportDir(),
		p.LogDir(),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	return nil
}

// ResolveDatabase returns the configured database path, falling back to the
// project default. Relative overrides are taken relative to the root.
func (p *Paths) ResolveDatabase(cfg *Config) string {
	return p.resolve(cfg.Storage.DBPath, p.DatabaseFile())
}

// ResolveSeedsDir returns the configured seed directory or the default.
func (p *Paths) ResolveSeedsDir(cfg *Config) string {
	return p.resolve(cfg.Seed.Dir, p.SeedsDir())
}

func (p *Paths) resolve(override, fallback string) string {
	if override == "" {
		return fallback
	}
	if filepath.IsAbs(override) {
		return override
	}
	return filepath.Join(p.Root, override)
}

func absOrSelf(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}
