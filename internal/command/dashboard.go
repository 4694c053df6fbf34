package command

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/cogdebug/cog-debug/internal/daemon"
	"github.com/cogdebug/cog-debug/internal/dashboard"
)

// NewDashboardCmd runs the terminal dashboard in this process, grounded on
// the teacher's internal/command/dashboard.go naming but driving
// internal/dashboard's event-consuming render loop instead of a summary
// printout.
func NewDashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Run the live terminal dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
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

			return d.Run(ctx)
		},
	}
}
