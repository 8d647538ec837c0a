// Package main is the entry point for the modloader binary.
package main

import (
	"os"

	"github.com/kyriji/modloader/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
