package command

import (
	"github.com/spf13/cobra"
)

func NewBreakpointCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "breakpoint",
		Aliases: []string{"bp"},
		Short:   "Manage breakpoints on a session",
	}
	cmd.AddCommand(newBreakpointSetCmd(), newBreakpointRemoveCmd(), newBreakpointListCmd())
	return cmd
}

func newBreakpointSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <session> <file> <line>",
		Short: "Set a breakpoint",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			condition, _ := cmd.Flags().GetString("condition")
			hitCondition, _ := cmd.Flags().GetString("hit-condition")
			logMessage, _ := cmd.Flags().GetString("log-message")
			result, err := call("debug_breakpoint", map[string]any{
				"session_id":    args[0],
				"action":        "set",
				"file":          args[1],
				"line":          atoiOrZero(args[2]),
				"condition":     condition,
				"hit_condition": hitCondition,
				"log_message":   logMessage,
			})
			if err != nil {
				return writeCommandError(cmd, err)
			}
			return printResult(cmd, result)
		},
	}
	cmd.Flags().String("condition", "", "conditional expression")
	cmd.Flags().String("hit-condition", "", "hit-count condition")
	cmd.Flags().String("log-message", "", "log point message instead of stopping")
	return cmd
}

func newBreakpointRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <session> <id>",
		Short: "Remove a breakpoint (idempotent)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := call("debug_breakpoint", map[string]any{
				"session_id": args[0],
				"action":     "remove",
				"id":         atoiOrZero(args[1]),
			})
			if err != nil {
				return writeCommandError(cmd, err)
			}
			return printResult(cmd, result)
		},
	}
}

func newBreakpointListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <session>",
		Short: "List breakpoints",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := call("debug_breakpoint", map[string]any{
				"session_id": args[0],
				"action":     "list",
			})
			if err != nil {
				return writeCommandError(cmd, err)
			}
			return printResult(cmd, result)
		},
	}
}

func atoiOrZero(s string) int {
	n := 0
	neg := false
	for i, c := range s {
		if i == 0 && c == '-' {
			neg = true
			continue
		}
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
	}
	if neg {
		n = -n
	}
	return n
}
