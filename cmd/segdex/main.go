// Package main provides the entry point for the segdex CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/segdex/cmd/segdex/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
