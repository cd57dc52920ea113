package main

import (
	"os"

	"github.com/MEKXH/gitmind/cmd/gitmind/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
