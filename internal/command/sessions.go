package command

import (
	"github.com/spf13/cobra"
)

func NewSessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List live debug sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := call("debug_sessions", map[string]any{})
			if err != nil {
				return writeCommandError(cmd, err)
			}
			return printResult(cmd, result)
		},
	}
}

func NewCapabilitiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "capabilities <session>",
		Short: "Show which optional operations a session's driver supports",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := call("debug_capabilities", map[string]any{"session_id": args[0]})
			if err != nil {
				return writeCommandError(cmd, err)
			}
			return printResult(cmd, result)
		},
	}
}
