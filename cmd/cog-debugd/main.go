// Command cog-debugd is the daemon process: one per user, reachable over a
// unix rendezvous socket, owning the set of live debug sessions.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-hclog"

	"github.com/cogdebug/cog-debug/internal/daemon"
)

func main() {
	debug := false
	for _, a := range os.Args[1:] {
		if a == "--debug" {
			debug = true
		}
	}
	level := hclog.Info
	if debug {
		level = hclog.Debug
	}
	log := hclog.New(&hclog.LoggerOptions{Name: "cog-debugd", Level: level})

	d := daemon.New(os.Getuid(), daemon.MockDriverFactory, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := d.Run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "cog-debugd:", err)
		os.Exit(1)
	}
}
