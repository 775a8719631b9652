//go:build !windows

package cmd

import (
	"os"

	"golang.org/x/sys/unix"
)

// consoleWidth asks the tty behind f for its column count; 0 when f is not
// a terminal.
func consoleWidth(f *os.File) int {
	ws, err := unix.IoctlGetWinsize(int(f.Fd()), unix.TIOCGWINSZ)
	if err != nil {
		return 0
	}
	return int(ws.Col)
}
