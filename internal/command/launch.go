package command

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func NewLaunchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "launch <program> [args...]",
		Short: "Launch a new debug session",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			driver, _ := cmd.Flags().GetString("driver")
			cwd, _ := cmd.Flags().GetString("cwd")
			envList, _ := cmd.Flags().GetStringArray("env")
			// debug_launch takes env as an object of name -> value.
			env := make(map[string]string, len(envList))
			for _, kv := range envList {
				name, value, _ := strings.Cut(kv, "=")
				env[name] = value
			}

			result, err := call("debug_launch", map[string]any{
				"program": args[0],
				"args":    args[1:],
				"cwd":     cwd,
				"env":     env,
				"driver":  driver,
			})
			if err != nil {
				return writeCommandError(cmd, err)
			}
			return printResult(cmd, result)
		},
	}

	cmd.Flags().String("driver", "native", "driver kind: native or dap")
	cmd.Flags().String("cwd", "", "working directory for the launched program")
	cmd.Flags().StringArray("env", nil, "extra environment variables as KEY=VALUE")

	return cmd
}

func NewAttachCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attach <pid>",
		Short: "Attach to a running process",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			driver, _ := cmd.Flags().GetString("driver")
			pid, err := strconv.Atoi(args[0])
			if err != nil {
				return writeCommandError(cmd, err)
			}
			result, err := call("debug_attach", map[string]any{
				"pid":    pid,
				"driver": driver,
			})
			if err != nil {
				return writeCommandError(cmd, err)
			}
			return printResult(cmd, result)
		},
	}

	cmd.Flags().String("driver", "native", "driver kind: native or dap")
	return cmd
}
