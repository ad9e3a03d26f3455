// Package main is the entry point for the domnode CLI.
package main

import (
	"os"

	"github.com/jmylchreest/domnode/cmd/domnode/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
