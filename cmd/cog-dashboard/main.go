// Command cog-dashboard is the separate terminal-UI process: it binds its
// own rendezvous socket, accepts event streams from one or more cog-debugd
// instances, and renders a live in-place view of every session.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-hclog"

	"github.com/cogdebug/cog-debug/internal/daemon"
	"github.com/cogdebug/cog-debug/internal/dashboard"
)

func main() {
	log := hclog.New(&hclog.LoggerOptions{Name: "cog-dashboard", Level: hclog.Info})
	d := dashboard.New(daemon.DashboardSocketPath(os.Getuid()), log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := d.Run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "cog-dashboard:", err)
		os.Exit(1)
	}
}
