package main

import (
	"os"

	"task-platform/backend/internal/commands"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	commands.SetVersion(version, commit)
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
