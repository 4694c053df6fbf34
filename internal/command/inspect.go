package command

import (
	"github.com/spf13/cobra"
)

func NewInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <session> <expression>",
		Short: "Evaluate an expression in a stopped session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			frameID, _ := cmd.Flags().GetInt("frame")
			scope, _ := cmd.Flags().GetString("scope")
			result, err := call("debug_inspect", map[string]any{
				"session_id": args[0],
				"expression": args[1],
				"frame_id":   frameID,
				"scope":      scope,
			})
			if err != nil {
				return writeCommandError(cmd, err)
			}
			return printResult(cmd, result)
		},
	}
	cmd.Flags().Int("frame", 0, "stack frame to evaluate in")
	cmd.Flags().String("scope", "", "optional scope hint")
	return cmd
}
