package main

import (
	"os"

	"github.com/choreo-dev/mediate/internal/cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
