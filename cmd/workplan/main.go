package main

import (
	"os"

	"github.com/Iron-Ham/workplan/internal/cmd"
)

func main() {
	os.Exit(cmd.ExitCode(cmd.Execute()))
}
