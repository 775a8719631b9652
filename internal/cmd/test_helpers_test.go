package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe() failed: %v", err)
	}
	os.Stdout = w

	outC := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		outC <- buf.String()
	}()

	fn()
	_ = w.Close()
	os.Stdout = old
	out := <-outC
	_ = r.Close()
	return out
}

// resetFlags puts every flag of cmd and its children back to its default.
// Map flags merge on repeated Set and are cleared by runCLI instead.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if f.Value.Type() == "stringToString" {
			return
		}
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

// runCLI executes nebula with args against the project in dir and returns
// what it printed to stdout.
func runCLI(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("NO_COLOR", "1")
	resetFlags(rootCmd)
	clear(errAttrs)
	rootCmd.SetArgs(append([]string{"-C", dir}, args...))
	rootCmd.SetErr(io.Discard)

	var err error
	out := captureStdout(t, func() {
		err = rootCmd.Execute()
	})
	return out, err
}

// runJSON runs a command with --json and decodes its output into v.
func runJSON(t *testing.T, dir string, v any, args ...string) {
	t.Helper()
	out, err := runCLI(t, dir, append(args, "--json")...)
	require.NoError(t, err, "nebula %v", args)
	require.NoError(t, json.Unmarshal([]byte(out), v), "output: %s", out)
}

// newProject initializes a project memory in a fresh directory.
func newProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	_, err := runCLI(t, dir, "init", "--name", "storefront", "--framework", "nextjs")
	require.NoError(t, err)
	return dir
}
