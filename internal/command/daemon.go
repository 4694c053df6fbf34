package command

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/cogdebug/cog-debug/internal/daemon"
)

// NewDaemonCmd mirrors the teacher's "fray daemon" shape (start in the
// foreground, report status, Ctrl-C to stop) but drives cog-debugd's
// session-accepting socket instead of a mention-polling loop.
func NewDaemonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run cog-debugd in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
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

			fmt.Fprintln(cmd.OutOrStdout(), "cog-debugd listening, press Ctrl+C to stop")
			return d.Run(ctx)
		},
	}
	cmd.Flags().Bool("debug", false, "enable debug logging")
	cmd.AddCommand(newDaemonStatusCmd())
	return cmd
}

func newDaemonStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check whether cog-debugd is running",
		RunE: func(cmd *cobra.Command, args []string) error {
			running := daemon.IsRunning(os.Getuid())
			jsonMode, _ := cmd.Flags().GetBool("json")
			if jsonMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{"running": running})
			}
			if running {
				fmt.Fprintln(cmd.OutOrStdout(), "cog-debugd is running")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "cog-debugd is not running")
			}
			return nil
		},
	}
}
