package command

import (
	"github.com/spf13/cobra"
)

func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <session> <action>",
		Short: "Resume, step, or pause a session",
		Long:  "action is one of: continue, step_over, step_in, step_out, reverse_continue, reverse_step, pause, goto",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			threadID, _ := cmd.Flags().GetInt("thread")
			singleThread, _ := cmd.Flags().GetBool("single-thread")
			timeoutMs, _ := cmd.Flags().GetInt("timeout-ms")
			file, _ := cmd.Flags().GetString("file")
			line, _ := cmd.Flags().GetInt("line")

			result, err := call("debug_run", map[string]any{
				"session_id":    args[0],
				"action":        args[1],
				"thread_id":     threadID,
				"single_thread": singleThread,
				"timeout_ms":    timeoutMs,
				"file":          file,
				"line":          line,
			})
			if err != nil {
				return writeCommandError(cmd, err)
			}
			return printResult(cmd, result)
		},
	}

	cmd.Flags().Int("thread", 0, "thread to act on")
	cmd.Flags().Bool("single-thread", false, "restrict the action to --thread")
	cmd.Flags().Int("timeout-ms", 0, "optional timeout in milliseconds")
	cmd.Flags().String("file", "", "target file, required for goto")
	cmd.Flags().Int("line", 0, "target line, required for goto")

	return cmd
}

func NewStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop <session>",
		Short: "Terminate a session and release its resources",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := call("debug_stop", map[string]any{"session_id": args[0]})
			if err != nil {
				return writeCommandError(cmd, err)
			}
			return printResult(cmd, result)
		},
	}
}
