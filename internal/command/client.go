package command

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cogdebug/cog-debug/internal/daemon"
	"github.com/cogdebug/cog-debug/internal/wire"
)

// call dials the current user's daemon socket, writes one {tool, args}
// request line, reads one response line, and returns its decoded result.
// Grounded on the teacher's dial-once, write-one-line, read-one-line client
// pattern (internal/command/context.go's GetContext / daemon.go's status
// probe), adapted from a shared DB handle to a shared socket round trip.
func call(tool string, args any) (json.RawMessage, error) {
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("marshal args: %w", err)
	}

	conn, err := net.DialTimeout("unix", daemon.SocketPath(os.Getuid()), 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("cog-debugd is not running (dial failed: %w)", err)
	}
	defer conn.Close()

	req := wire.Request{Tool: tool, Args: argsJSON}
	reqJSON, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	reqJSON = append(reqJSON, '\n')
	if _, err := conn.Write(reqJSON); err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}

	reader := bufio.NewReader(conn)
	line, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var resp wire.Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if !resp.OK {
		return nil, fmt.Errorf("%s (code %d)", resp.Error.Message, resp.Error.Code)
	}
	return resp.Result, nil
}

// printResult renders a tool's JSON result either as raw JSON (--json) or,
// for a JSON object, as indented JSON for human reading; a result that is not
// an object (such as the list returned by debug_sessions) is printed raw in
// both modes. There is no bespoke text renderer per command.
func printResult(cmd *cobra.Command, result json.RawMessage) error {
	jsonMode, _ := cmd.Flags().GetBool("json")
	out := cmd.OutOrStdout()
	if jsonMode {
		_, err := fmt.Fprintln(out, string(result))
		return err
	}
	var pretty map[string]any
	if err := json.Unmarshal(result, &pretty); err != nil {
		_, err := fmt.Fprintln(out, string(result))
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(pretty)
}

func writeCommandError(cmd *cobra.Command, err error) error {
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err.Error())
	return err
}
