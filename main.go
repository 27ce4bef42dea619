// vcore16 is the command-line interface to the vcore16 virtual machine: a
// paged-memory, MMIO-bussed, interrupt-driven 16-bit execution core.
package main

import (
	"context"
	"os"

	"github.com/vcore16/vcore16/internal/cli"
	"github.com/vcore16/vcore16/internal/cli/cmd"
)

var (
	commands = []cli.Command{
		cmd.Run(),
	}
)

// Entry point.
func main() {
	result :=
		cli.New(context.Background()).
			WithLogger(os.Stderr).
			WithCommands(commands).
			WithHelp(cmd.Help(commands)).
			Execute(os.Args[1:])

	os.Exit(result)
}
