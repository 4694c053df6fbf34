// Command cog is the debugger client: a thin cobra CLI that dials
// cog-debugd's rendezvous socket for every operation.
package main

import (
	"fmt"
	"os"

	"github.com/cogdebug/cog-debug/internal/command"
)

var version = "dev"

func main() {
	command.Version = version
	if err := command.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
