package dispatch

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"syscall"

	"github.com/cogdebug/cog-debug/internal/driver"
	"github.com/cogdebug/cog-debug/internal/session"
	"github.com/cogdebug/cog-debug/internal/wire"
)

type handlerFunc func(ctx context.Context, d *Dispatcher, args json.RawMessage) (json.RawMessage, string, error)

var handlers = map[string]handlerFunc{
	"debug_launch":                 handleLaunch,
	"debug_attach":                 handleAttach,
	"debug_breakpoint":             handleBreakpoint,
	"debug_function_breakpoint":    handleFunctionBreakpoint,
	"debug_run":                    handleRun,
	"debug_stop":                   handleStop,
	"debug_inspect":                handleInspect,
	"debug_stack_trace":            handleStackTrace,
	"debug_threads":                handleThreads,
	"debug_scopes":                 handleScopes,
	"debug_disassemble":            handleDisassemble,
	"debug_memory_read":            handleMemoryRead,
	"debug_memory_write":           handleMemoryWrite,
	"debug_set_variable":           handleSetVariable,
	"debug_goto":                   handleGoto,
	"debug_exception_breakpoints":  handleExceptionBreakpoints,
	"debug_sessions":               handleSessions,
	"debug_capabilities":           handleCapabilities,
}

// --- debug_launch -----------------------------------------------------

type launchArgs struct {
	Program string            `json:"program" jsonschema:"Path to the program to debug"`
	Args    []string          `json:"args,omitempty" jsonschema:"Arguments passed to the debuggee"`
	Cwd     string            `json:"cwd,omitempty" jsonschema:"Working directory for the debuggee"`
	Env     map[string]string `json:"env,omitempty" jsonschema:"Extra environment variables"`
	Driver  string            `json:"driver" jsonschema:"Backend kind: native or dap"`
}

func handleLaunch(ctx context.Context, d *Dispatcher, raw json.RawMessage) (json.RawMessage, string, error) {
	var args launchArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, "", newError(wire.CodeInvalidParams, "%s", err.Error())
	}
	if args.Program == "" {
		return nil, "", newError(wire.CodeInvalidParams, "missing program")
	}

	kind := driver.Kind(args.Driver)
	if kind != driver.KindNative && kind != driver.KindDAP {
		return nil, "", newError(wire.CodeInvalidParams, "driver must be %q or %q", driver.KindNative, driver.KindDAP)
	}

	drv, err := d.newDriver(kind)
	if err != nil {
		return nil, "", err
	}

	s := d.sessions.Create(drv)
	cfg := driver.Config{Program: args.Program, Args: args.Args, Cwd: args.Cwd, Env: args.Env}
	if err := drv.Launch(ctx, cfg); err != nil {
		d.sessions.Destroy(s.ID())
		return nil, "", err
	}
	s.SetStatus(session.StatusRunning)

	if d.events != nil {
		d.events.Emit(wire.Event{Type: wire.EventLaunch, SessionID: s.ID(), Program: args.Program, Driver: string(kind)})
	}

	result, err := marshal(map[string]any{"session_id": s.ID(), "driver": string(kind)})
	return result, s.ID(), err
}

// --- debug_attach -------------------------------------------------------

type attachArgs struct {
	PID    int    `json:"pid" jsonschema:"OS process id to attach to"`
	Driver string `json:"driver" jsonschema:"Backend kind: native or dap"`
}

func handleAttach(ctx context.Context, d *Dispatcher, raw json.RawMessage) (json.RawMessage, string, error) {
	var args attachArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, "", newError(wire.CodeInvalidParams, "%s", err.Error())
	}
	if args.PID <= 0 {
		return nil, "", newError(wire.CodeInvalidParams, "missing or invalid pid")
	}

	kind := driver.Kind(args.Driver)
	if kind != driver.KindNative && kind != driver.KindDAP {
		return nil, "", newError(wire.CodeInvalidParams, "driver must be %q or %q", driver.KindNative, driver.KindDAP)
	}

	drv, err := d.newDriver(kind)
	if err != nil {
		return nil, "", err
	}
	attacher, ok := drv.(driver.Attacher)
	if !ok {
		return nil, "", driver.NotSupported("attach")
	}

	s := d.sessions.Create(drv)
	if err := attacher.Attach(ctx, args.PID); err != nil {
		d.sessions.Destroy(s.ID())
		return nil, "", err
	}
	s.SetStatus(session.StatusRunning)

	if d.events != nil {
		d.events.Emit(wire.Event{Type: wire.EventLaunch, SessionID: s.ID(), Driver: string(kind)})
	}

	result, err := marshal(map[string]any{"session_id": s.ID(), "driver": string(kind)})
	return result, s.ID(), err
}

// --- debug_breakpoint ---------------------------------------------------

type breakpointArgs struct {
	SessionID    string `json:"session_id" jsonschema:"Target session id"`
	Action       string `json:"action" jsonschema:"One of set, remove, list"`
	ID           int    `json:"id,omitempty" jsonschema:"Breakpoint id, required for remove"`
	File         string `json:"file,omitempty" jsonschema:"Source file, required for set"`
	Line         int    `json:"line,omitempty" jsonschema:"Source line, required for set"`
	Condition    string `json:"condition,omitempty" jsonschema:"Conditional expression"`
	HitCondition string `json:"hit_condition,omitempty" jsonschema:"Hit-count condition"`
	LogMessage   string `json:"log_message,omitempty" jsonschema:"Log point message instead of stopping"`
}

func handleBreakpoint(ctx context.Context, d *Dispatcher, raw json.RawMessage) (json.RawMessage, string, error) {
	var args breakpointArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, "", newError(wire.CodeInvalidParams, "%s", err.Error())
	}
	s, err := d.lookupSession(args.SessionID)
	if err != nil {
		return nil, args.SessionID, err
	}
	drv := s.Driver()

	switch args.Action {
	case "set":
		if args.File == "" || args.Line == 0 {
			return nil, args.SessionID, newError(wire.CodeInvalidParams, "set requires file and line")
		}
		info, err := drv.SetBreakpoint(ctx, driver.Breakpoint{
			File: args.File, Line: args.Line, Condition: args.Condition,
			HitCondition: args.HitCondition, LogMessage: args.LogMessage,
		})
		if err != nil {
			return nil, args.SessionID, err
		}
		if d.events != nil {
			d.events.Emit(wire.Event{
				Type: wire.EventBreakpoint, SessionID: args.SessionID, Action: "set",
				BP: &wire.BreakpointEvent{ID: info.ID, File: info.File, Line: info.Line, Verified: info.Verified, Condition: info.Condition},
			})
		}
		result, err := marshal(breakpointInfoJSON(info))
		return result, args.SessionID, err

	case "remove":
		// Idempotent per spec.md: removing an unknown id is a no-op, not an
		// error, so the driver's return value is never surfaced as failure.
		_ = drv.RemoveBreakpoint(ctx, args.ID)
		if d.events != nil {
			d.events.Emit(wire.Event{Type: wire.EventBreakpoint, SessionID: args.SessionID, Action: "remove", BP: &wire.BreakpointEvent{ID: args.ID}})
		}
		result, err := marshal(map[string]any{"removed": args.ID})
		return result, args.SessionID, err

	case "list":
		list, err := drv.ListBreakpoints(ctx)
		if err != nil {
			return nil, args.SessionID, err
		}
		out := make([]map[string]any, 0, len(list))
		for _, info := range list {
			out = append(out, breakpointInfoJSON(info))
		}
		if d.events != nil {
			d.events.Emit(wire.Event{Type: wire.EventBreakpoint, SessionID: args.SessionID, Action: "list"})
		}
		result, err := marshal(out)
		return result, args.SessionID, err

	default:
		return nil, args.SessionID, newError(wire.CodeInvalidParams, "action must be set, remove, or list")
	}
}

func breakpointInfoJSON(info driver.BreakpointInfo) map[string]any {
	return map[string]any{
		"id": info.ID, "file": info.File, "line": info.Line,
		"verified": info.Verified, "condition": info.Condition,
	}
}

// --- debug_function_breakpoint ------------------------------------------

type functionBreakpointArgs struct {
	SessionID string `json:"session_id" jsonschema:"Target session id"`
	Function  string `json:"function" jsonschema:"Function name to break on"`
	Condition string `json:"condition,omitempty" jsonschema:"Conditional expression"`
}

func handleFunctionBreakpoint(ctx context.Context, d *Dispatcher, raw json.RawMessage) (json.RawMessage, string, error) {
	var args functionBreakpointArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, "", newError(wire.CodeInvalidParams, "%s", err.Error())
	}
	s, err := d.lookupSession(args.SessionID)
	if err != nil {
		return nil, args.SessionID, err
	}
	setter, ok := s.Driver().(driver.FunctionBreakpointSetter)
	if !ok {
		return nil, args.SessionID, driver.NotSupported("set_function_breakpoint")
	}
	if args.Function == "" {
		return nil, args.SessionID, newError(wire.CodeInvalidParams, "missing function")
	}
	info, err := setter.SetFunctionBreakpoint(ctx, args.Function, args.Condition)
	if err != nil {
		return nil, args.SessionID, err
	}
	result, err := marshal(breakpointInfoJSON(info))
	return result, args.SessionID, err
}

// --- debug_run ------------------------------------------------------------

type runArgs struct {
	SessionID    string `json:"session_id" jsonschema:"Target session id"`
	Action       string `json:"action" jsonschema:"continue, step_over, step_in, step_out, reverse_continue, reverse_step, pause, or goto"`
	ThreadID     int    `json:"thread_id,omitempty" jsonschema:"Thread to act on"`
	SingleThread bool   `json:"single_thread,omitempty" jsonschema:"Restrict the action to ThreadID"`
	TimeoutMs    int    `json:"timeout_ms,omitempty" jsonschema:"Optional timeout in milliseconds"`
	File         string `json:"file,omitempty" jsonschema:"Target file, required for goto"`
	Line         int    `json:"line,omitempty" jsonschema:"Target line, required for goto"`
}

func handleRun(ctx context.Context, d *Dispatcher, raw json.RawMessage) (json.RawMessage, string, error) {
	var args runArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, "", newError(wire.CodeInvalidParams, "%s", err.Error())
	}
	s, err := d.lookupSession(args.SessionID)
	if err != nil {
		return nil, args.SessionID, err
	}

	action := driver.RunAction(args.Action)
	opts := driver.RunOptions{
		ThreadID: args.ThreadID, SingleThread: args.SingleThread,
		Timeout: args.TimeoutMs, File: args.File, Line: args.Line,
	}

	if d.events != nil {
		d.events.Emit(wire.Event{Type: wire.EventRun, SessionID: args.SessionID, Action: args.Action})
	}

	stop, err := s.Driver().Run(ctx, action, opts)
	if err != nil {
		return nil, args.SessionID, err
	}

	switch stop.Reason {
	case driver.StopExit:
		s.SetStatus(session.StatusTerminated)
	default:
		s.SetStatus(session.StatusStopped)
	}

	if d.events != nil {
		d.events.Emit(stopEventFor(args.SessionID, stop))
	}

	result, err := marshal(stopStateJSON(stop))
	return result, args.SessionID, err
}

func stopEventFor(sessionID string, stop driver.StopState) wire.Event {
	ev := wire.Event{Type: wire.EventStop, SessionID: sessionID, Reason: string(stop.Reason)}
	if stop.Location != nil {
		ev.Location = &wire.Location{File: stop.Location.File, Line: stop.Location.Line, Function: stop.Location.Function}
	}
	for _, v := range stop.Locals {
		ev.Locals = append(ev.Locals, wire.Variable{Name: v.Name, Value: v.Value, Type: v.Type})
	}
	return ev
}

func stopStateJSON(stop driver.StopState) map[string]any {
	out := map[string]any{"reason": string(stop.Reason)}
	if stop.Location != nil {
		out["location"] = map[string]any{"file": stop.Location.File, "line": stop.Location.Line, "function": stop.Location.Function}
	}
	if stop.ExitCode != nil {
		out["exit_code"] = *stop.ExitCode
	}
	if len(stop.Locals) > 0 {
		locals := make([]map[string]any, 0, len(stop.Locals))
		for _, v := range stop.Locals {
			locals = append(locals, map[string]any{"name": v.Name, "value": v.Value, "type": v.Type})
		}
		out["locals"] = locals
	}
	if len(stop.LogMessages) > 0 {
		out["log_messages"] = stop.LogMessages
	}
	return out
}

// --- debug_stop -----------------------------------------------------------

type stopArgs struct {
	SessionID string `json:"session_id" jsonschema:"Session to terminate"`
}

func handleStop(ctx context.Context, d *Dispatcher, raw json.RawMessage) (json.RawMessage, string, error) {
	var args stopArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, "", newError(wire.CodeInvalidParams, "%s", err.Error())
	}
	s, err := d.lookupSession(args.SessionID)
	if err != nil {
		return nil, args.SessionID, err
	}

	// A concurrent debug_run's goroutine may be blocked inside the driver
	// waiting on the debuggee. Status stays "running" for exactly that
	// window (handleRun only flips it to stopped/terminated once Run
	// returns), so that's the signal this handler's own goroutine uses to
	// decide whether to force-unblock it via get_pid + a signal to the pid,
	// per spec.md §5's cancellation design, before calling Stop.
	if s.Status() == session.StatusRunning {
		if pidGetter, ok := s.Driver().(driver.GetPID); ok {
			if pid, pidErr := pidGetter.GetPID(ctx); pidErr == nil {
				syscall.Kill(pid, syscall.SIGINT)
			}
		}
	}

	stopErr := s.Driver().Stop(ctx)
	d.sessions.Destroy(args.SessionID)

	if d.events != nil {
		d.events.Emit(wire.Event{Type: wire.EventSessionEnd, SessionID: args.SessionID})
	}

	if stopErr != nil {
		return nil, args.SessionID, stopErr
	}
	result, err := marshal(map[string]any{"stopped": args.SessionID})
	return result, args.SessionID, err
}

// --- debug_inspect ----------------------------------------------------------

type inspectArgs struct {
	SessionID  string `json:"session_id" jsonschema:"Target session id"`
	Expression string `json:"expression" jsonschema:"Expression to evaluate"`
	FrameID    int    `json:"frame_id,omitempty" jsonschema:"Stack frame to evaluate in"`
	Scope      string `json:"scope,omitempty" jsonschema:"Optional scope hint"`
}

func handleInspect(ctx context.Context, d *Dispatcher, raw json.RawMessage) (json.RawMessage, string, error) {
	var args inspectArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, "", newError(wire.CodeInvalidParams, "%s", err.Error())
	}
	s, err := d.lookupSession(args.SessionID)
	if err != nil {
		return nil, args.SessionID, err
	}
	if args.Expression == "" {
		return nil, args.SessionID, newError(wire.CodeInvalidParams, "missing expression")
	}
	res, err := s.Driver().Inspect(ctx, driver.InspectRequest{Expression: args.Expression, FrameID: args.FrameID, Scope: args.Scope})
	if err != nil {
		return nil, args.SessionID, err
	}
	if d.events != nil {
		d.events.Emit(wire.Event{Type: wire.EventInspect, SessionID: args.SessionID, Message: args.Expression})
	}
	result, err := marshal(map[string]any{"value": res.Value, "type": res.Type})
	return result, args.SessionID, err
}

// --- session-id-only tools -------------------------------------------------

type sessionOnlyArgs struct {
	SessionID string `json:"session_id" jsonschema:"Target session id"`
}

type stackTraceArgs struct {
	sessionOnlyArgs
	ThreadID int `json:"thread_id,omitempty" jsonschema:"Thread to trace"`
}

func handleStackTrace(ctx context.Context, d *Dispatcher, raw json.RawMessage) (json.RawMessage, string, error) {
	var args stackTraceArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, "", newError(wire.CodeInvalidParams, "%s", err.Error())
	}
	s, err := d.lookupSession(args.SessionID)
	if err != nil {
		return nil, args.SessionID, err
	}
	tracer, ok := s.Driver().(driver.StackTracer)
	if !ok {
		return nil, args.SessionID, driver.NotSupported("stack_trace")
	}
	frames, err := tracer.StackTrace(ctx, args.ThreadID)
	if err != nil {
		return nil, args.SessionID, err
	}
	out := make([]map[string]any, 0, len(frames))
	for _, f := range frames {
		out = append(out, map[string]any{"index": f.Index, "function": f.Function, "file": f.File, "line": f.Line})
	}
	result, err := marshal(out)
	return result, args.SessionID, err
}

func handleThreads(ctx context.Context, d *Dispatcher, raw json.RawMessage) (json.RawMessage, string, error) {
	var args sessionOnlyArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, "", newError(wire.CodeInvalidParams, "%s", err.Error())
	}
	s, err := d.lookupSession(args.SessionID)
	if err != nil {
		return nil, args.SessionID, err
	}
	lister, ok := s.Driver().(driver.ThreadLister)
	if !ok {
		return nil, args.SessionID, driver.NotSupported("threads")
	}
	threads, err := lister.Threads(ctx)
	if err != nil {
		return nil, args.SessionID, err
	}
	out := make([]map[string]any, 0, len(threads))
	for _, th := range threads {
		out = append(out, map[string]any{"id": th.ID, "name": th.Name})
	}
	result, err := marshal(out)
	return result, args.SessionID, err
}

type scopesArgs struct {
	sessionOnlyArgs
	FrameID int `json:"frame_id" jsonschema:"Stack frame id"`
}

func handleScopes(ctx context.Context, d *Dispatcher, raw json.RawMessage) (json.RawMessage, string, error) {
	var args scopesArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, "", newError(wire.CodeInvalidParams, "%s", err.Error())
	}
	s, err := d.lookupSession(args.SessionID)
	if err != nil {
		return nil, args.SessionID, err
	}
	scoper, ok := s.Driver().(driver.Scoper)
	if !ok {
		return nil, args.SessionID, driver.NotSupported("scopes")
	}
	scopes, err := scoper.Scopes(ctx, args.FrameID)
	if err != nil {
		return nil, args.SessionID, err
	}
	out := make([]map[string]any, 0, len(scopes))
	for _, sc := range scopes {
		out = append(out, map[string]any{"name": sc.Name, "variables_ref": sc.VariablesRef})
	}
	result, err := marshal(out)
	return result, args.SessionID, err
}

type disassembleArgs struct {
	sessionOnlyArgs
	Addr   uint64 `json:"addr" jsonschema:"Start address"`
	Length int    `json:"length" jsonschema:"Number of bytes to disassemble"`
}

func handleDisassemble(ctx context.Context, d *Dispatcher, raw json.RawMessage) (json.RawMessage, string, error) {
	var args disassembleArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, "", newError(wire.CodeInvalidParams, "%s", err.Error())
	}
	s, err := d.lookupSession(args.SessionID)
	if err != nil {
		return nil, args.SessionID, err
	}
	dis, ok := s.Driver().(driver.Disassembler)
	if !ok {
		return nil, args.SessionID, driver.NotSupported("disassemble")
	}
	instrs, err := dis.Disassemble(ctx, args.Addr, args.Length)
	if err != nil {
		return nil, args.SessionID, err
	}
	out := make([]map[string]any, 0, len(instrs))
	for _, in := range instrs {
		out = append(out, map[string]any{"addr": in.Addr, "text": in.Text})
	}
	result, err := marshal(out)
	return result, args.SessionID, err
}

type memoryReadArgs struct {
	sessionOnlyArgs
	Addr   uint64 `json:"addr" jsonschema:"Start address"`
	Length int    `json:"length" jsonschema:"Number of bytes to read"`
}

func handleMemoryRead(ctx context.Context, d *Dispatcher, raw json.RawMessage) (json.RawMessage, string, error) {
	var args memoryReadArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, "", newError(wire.CodeInvalidParams, "%s", err.Error())
	}
	s, err := d.lookupSession(args.SessionID)
	if err != nil {
		return nil, args.SessionID, err
	}
	reader, ok := s.Driver().(driver.MemoryReader)
	if !ok {
		return nil, args.SessionID, driver.NotSupported("read_memory")
	}
	data, err := reader.ReadMemory(ctx, args.Addr, args.Length)
	if err != nil {
		return nil, args.SessionID, err
	}
	result, err := marshal(map[string]any{"data": base64.StdEncoding.EncodeToString(data)})
	return result, args.SessionID, err
}

type memoryWriteArgs struct {
	sessionOnlyArgs
	Addr uint64 `json:"addr" jsonschema:"Start address"`
	Data string `json:"data" jsonschema:"Base64-encoded bytes to write"`
}

func handleMemoryWrite(ctx context.Context, d *Dispatcher, raw json.RawMessage) (json.RawMessage, string, error) {
	var args memoryWriteArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, "", newError(wire.CodeInvalidParams, "%s", err.Error())
	}
	s, err := d.lookupSession(args.SessionID)
	if err != nil {
		return nil, args.SessionID, err
	}
	writer, ok := s.Driver().(driver.MemoryWriter)
	if !ok {
		return nil, args.SessionID, driver.NotSupported("write_memory")
	}
	data, err := base64.StdEncoding.DecodeString(args.Data)
	if err != nil {
		return nil, args.SessionID, newError(wire.CodeInvalidParams, "data must be base64: %s", err.Error())
	}
	n, err := writer.WriteMemory(ctx, args.Addr, data)
	if err != nil {
		return nil, args.SessionID, err
	}
	result, err := marshal(map[string]any{"written": n})
	return result, args.SessionID, err
}

type setVariableArgs struct {
	sessionOnlyArgs
	VariablesRef int    `json:"variables_ref" jsonschema:"Parent variables reference"`
	Name         string `json:"name" jsonschema:"Variable name"`
	Value        string `json:"value" jsonschema:"New value"`
}

func handleSetVariable(ctx context.Context, d *Dispatcher, raw json.RawMessage) (json.RawMessage, string, error) {
	var args setVariableArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, "", newError(wire.CodeInvalidParams, "%s", err.Error())
	}
	s, err := d.lookupSession(args.SessionID)
	if err != nil {
		return nil, args.SessionID, err
	}
	setter, ok := s.Driver().(driver.VariableSetter)
	if !ok {
		return nil, args.SessionID, driver.NotSupported("set_variable")
	}
	v, err := setter.SetVariable(ctx, args.VariablesRef, args.Name, args.Value)
	if err != nil {
		return nil, args.SessionID, err
	}
	result, err := marshal(map[string]any{"name": v.Name, "value": v.Value, "type": v.Type})
	return result, args.SessionID, err
}

type gotoArgs struct {
	sessionOnlyArgs
	File string `json:"file" jsonschema:"Target file"`
	Line int    `json:"line" jsonschema:"Target line"`
}

func handleGoto(ctx context.Context, d *Dispatcher, raw json.RawMessage) (json.RawMessage, string, error) {
	var args gotoArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, "", newError(wire.CodeInvalidParams, "%s", err.Error())
	}
	s, err := d.lookupSession(args.SessionID)
	if err != nil {
		return nil, args.SessionID, err
	}
	gotoer, ok := s.Driver().(driver.Gotoer)
	if !ok {
		return nil, args.SessionID, driver.NotSupported("goto")
	}
	if err := gotoer.Goto(ctx, args.File, args.Line); err != nil {
		return nil, args.SessionID, err
	}
	result, err := marshal(map[string]any{"ok": true})
	return result, args.SessionID, err
}

type exceptionBreakpointsArgs struct {
	sessionOnlyArgs
	Filters []string `json:"filters" jsonschema:"Exception filter ids to enable"`
}

func handleExceptionBreakpoints(ctx context.Context, d *Dispatcher, raw json.RawMessage) (json.RawMessage, string, error) {
	var args exceptionBreakpointsArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, "", newError(wire.CodeInvalidParams, "%s", err.Error())
	}
	s, err := d.lookupSession(args.SessionID)
	if err != nil {
		return nil, args.SessionID, err
	}
	setter, ok := s.Driver().(driver.ExceptionBreakpointSetter)
	if !ok {
		return nil, args.SessionID, driver.NotSupported("set_exception_breakpoints")
	}
	if err := setter.SetExceptionBreakpoints(ctx, args.Filters); err != nil {
		return nil, args.SessionID, err
	}
	result, err := marshal(map[string]any{"filters": args.Filters})
	return result, args.SessionID, err
}

func handleCapabilities(ctx context.Context, d *Dispatcher, raw json.RawMessage) (json.RawMessage, string, error) {
	var args sessionOnlyArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, "", newError(wire.CodeInvalidParams, "%s", err.Error())
	}
	s, err := d.lookupSession(args.SessionID)
	if err != nil {
		return nil, args.SessionID, err
	}
	caps, ok := s.Driver().(driver.Capabilities)
	if !ok {
		// Capability introspection itself is optional; fall back to the
		// static table below rather than reporting not-supported for the
		// whole tool.
		result, err := marshal(staticCapabilityTable(s.Driver()))
		return result, args.SessionID, err
	}
	table, err := caps.Capabilities(ctx)
	if err != nil {
		return nil, args.SessionID, err
	}
	result, err := marshal(table)
	return result, args.SessionID, err
}

// staticCapabilityTable reports which optional interfaces a driver
// implements, via type assertion, when the driver does not itself expose a
// dynamic Capabilities() method.
func staticCapabilityTable(drv driver.Driver) map[string]bool {
	table := map[string]bool{}
	_, table["threads"] = drv.(driver.ThreadLister)
	_, table["stack_trace"] = drv.(driver.StackTracer)
	_, table["read_memory"] = drv.(driver.MemoryReader)
	_, table["write_memory"] = drv.(driver.MemoryWriter)
	_, table["disassemble"] = drv.(driver.Disassembler)
	_, table["attach"] = drv.(driver.Attacher)
	_, table["set_function_breakpoint"] = drv.(driver.FunctionBreakpointSetter)
	_, table["set_exception_breakpoints"] = drv.(driver.ExceptionBreakpointSetter)
	_, table["scopes"] = drv.(driver.Scoper)
	_, table["data_breakpoint_info"] = drv.(driver.DataBreakpointInfoer)
	_, table["set_data_breakpoint"] = drv.(driver.DataBreakpointSetter)
	_, table["set_variable"] = drv.(driver.VariableSetter)
	_, table["goto"] = drv.(driver.Gotoer)
	_, table["completions"] = drv.(driver.Completer)
	_, table["modules"] = drv.(driver.ModuleLister)
	_, table["loaded_sources"] = drv.(driver.LoadedSourceLister)
	_, table["source"] = drv.(driver.SourceReader)
	_, table["set_expression"] = drv.(driver.ExpressionSetter)
	_, table["terminate"] = drv.(driver.Terminator)
	_, table["restart_frame"] = drv.(driver.RestartFramer)
	_, table["exception_info"] = drv.(driver.ExceptionInfoer)
	_, table["read_registers"] = drv.(driver.RegisterReader)
	_, table["write_registers"] = drv.(driver.RegisterWriter)
	_, table["set_instruction_breakpoints"] = drv.(driver.InstructionBreakpointSetter)
	_, table["step_in_targets"] = drv.(driver.StepInTargeter)
	_, table["breakpoint_locations"] = drv.(driver.BreakpointLocationLister)
	_, table["cancel"] = drv.(driver.Canceler)
	_, table["terminate_threads"] = drv.(driver.ThreadTerminator)
	_, table["restart"] = drv.(driver.Restarter)
	_, table["detach"] = drv.(driver.Detacher)
	_, table["goto_targets"] = drv.(driver.GotoTargeter)
	_, table["find_symbol"] = drv.(driver.SymbolFinder)
	_, table["drain_notifications"] = drv.(driver.NotificationDrainer)
	_, table["variable_location"] = drv.(driver.VariableLocationer)
	_, table["load_core"] = drv.(driver.CoreLoader)
	_, table["raw_request"] = drv.(driver.RawRequester)
	_, table["get_pid"] = drv.(driver.GetPID)
	return table
}

// --- debug_sessions ---------------------------------------------------------

func handleSessions(ctx context.Context, d *Dispatcher, raw json.RawMessage) (json.RawMessage, string, error) {
	list := d.sessions.List()
	out := make([]map[string]any, 0, len(list))
	for _, info := range list {
		out = append(out, map[string]any{"id": info.ID, "status": string(info.Status), "driver": string(info.Kind)})
	}
	result, err := marshal(out)
	return result, "", err
}
