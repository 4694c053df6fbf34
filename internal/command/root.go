// Package command builds the cog CLI: a thin cobra client that dials the
// daemon's rendezvous socket, sends one {tool, args} request, and prints the
// response. Grounded on the teacher's internal/command/root.go (persistent
// flags, SilenceUsage/Errors, subcommand registration) and
// internal/command/context.go (shared per-command context object).
package command

import (
	"os"

	"github.com/spf13/cobra"
)

const AppName = "cog"

// Version is overwritten at build time using -ldflags.
var Version = "dev"

func NewRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           AppName,
		Short:         "cog - multi-session debugger client",
		Long:          "cog drives the cog-debugd daemon: launch or attach to debug sessions, set breakpoints, step, and inspect state over a small set of tool calls.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.Version = version
	cmd.SetVersionTemplate(AppName + " version {{.Version}}\n")
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.PersistentFlags().Bool("json", false, "output in JSON format")

	cmd.AddCommand(
		NewLaunchCmd(),
		NewAttachCmd(),
		NewBreakpointCmd(),
		NewRunCmd(),
		NewStopCmd(),
		NewInspectCmd(),
		NewSessionsCmd(),
		NewCapabilitiesCmd(),
		NewDaemonCmd(),
		NewDashboardCmd(),
	)

	return cmd
}

func Execute() error {
	return NewRootCmd(Version).Execute()
}
