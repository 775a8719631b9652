// Package main is the entry point for the nebula CLI.
package main

import (
	"os"

	"github.com/runger/nebula/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
