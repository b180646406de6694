package main

import (
	"os"

	"losertrack/cmd/losertrack/commands"
)

// main is the entry point for the losertrack CLI
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
