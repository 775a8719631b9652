package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewPaths(t *testing.T) {
	root := t.TempDir()
	paths := NewPaths(root)

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"DataDir", paths.DataDir, filepath.Join(root, ".nebula")},
		{"ConfigFile", paths.ConfigFile(), filepath.Join(root, ".nebula", "config.yaml")},
		{"DatabaseFile", paths.DatabaseFile(), filepath.Join(root, ".nebula", "memory.db")},
		{"SeedsDir", paths.SeedsDir(), filepath.Join(root, ".nebula", "seeds")},
		{"ExportDir", paths.ExportDir(), filepath.Join(root, ".nebula", "exports")},
		{"LogFile", paths.LogFile(), filepath.Join(root, ".nebula", "logs", "nebula.log")},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %s, want %s", tt.name, tt.got, tt.want)
		}
	}
}

func TestFindRoot(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".nebula"), 0755); err != nil {
		t.Fatal(err)
	}
	deep := filepath.Join(root, "src", "app", "components")
	if err := os.MkdirAll(deep, 0755); err != nil {
		t.Fatal(err)
	}

	if got := FindRoot(deep); got != root {
		t.Errorf("FindRoot(%s) = %s, want %s", deep, got, root)
	}
	if got := FindRoot(root); got != root {
		t.Errorf("FindRoot(root) = %s, want %s", got, root)
	}
}

func TestFindRoot_NoMarker(t *testing.T) {
	start := filepath.Join(t.TempDir(), "plain")
	if err := os.MkdirAll(start, 0755); err != nil {
		t.Fatal(err)
	}

	// A .nebula directory above the temp dir would be found first; only
	// assert when the walk falls through to the start directory.
	got := FindRoot(start)
	if got != start && !strings.HasPrefix(start, got) {
		t.Errorf("FindRoot(%s) = %s", start, got)
	}
}

func TestFindRoot_IgnoresMarkerFile(t *testing.T) {
	root := t.TempDir()
	child := filepath.Join(root, "child")
	if err := os.MkdirAll(child, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(child, ".nebula"), []byte("not a dir"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(root, ".nebula"), 0755); err != nil {
		t.Fatal(err)
	}

	if got := FindRoot(child); got != root {
		t.Errorf("FindRoot(%s) = %s, want %s", child, got, root)
	}
}

func TestDefaultPaths_ProjectDirEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("NEBULA_PROJECT_DIR", dir)

	paths := DefaultPaths()
	if paths.Root != dir {
		t.Errorf("Root = %s, want %s", paths.Root, dir)
	}
	if !filepath.IsAbs(paths.DataDir) {
		t.Errorf("DataDir should be absolute: %s", paths.DataDir)
	}
}

func TestEnsureDirectories(t *testing.T) {
	paths := NewPaths(t.TempDir())

	if err := paths.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories() error: %v", err)
	}

	for _, dir := range []string{paths.DataDir, paths.SeedsDir(), paths.ExportDir(), paths.LogDir()} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Errorf("Directory %s was not created: %v", dir, err)
			continue
		}
		if !info.IsDir() {
			t.Errorf("%s is not a directory", dir)
		}
	}

	if err := paths.EnsureDirectories(); err != nil {
		t.Errorf("EnsureDirectories() should be idempotent: %v", err)
	}
}

func TestResolveDatabase(t *testing.T) {
	root := t.TempDir()
	paths := NewPaths(root)
	cfg := DefaultConfig()

	if got := paths.ResolveDatabase(cfg); got != paths.DatabaseFile() {
		t.Errorf("default = %s, want %s", got, paths.DatabaseFile())
	}

	cfg.Storage.DBPath = "var/mem.db"
	if got, want := paths.ResolveDatabase(cfg), filepath.Join(root, "var", "mem.db"); got != want {
		t.Errorf("relative = %s, want %s", got, want)
	}

	abs := filepath.Join(t.TempDir(), "abs.db")
	cfg.Storage.DBPath = abs
	if got := paths.ResolveDatabase(cfg); got != abs {
		t.Errorf("absolute = %s, want %s", got, abs)
	}

	cfg.Seed.Dir = "knowledge"
	if got, want := paths.ResolveSeedsDir(cfg), filepath.Join(root, "knowledge"); got != want {
		t.Errorf("seeds = %s, want %s", got, want)
	}
}
