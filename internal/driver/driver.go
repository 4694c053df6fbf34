// Package driver defines the debug backend capability contract. A driver is
// either a native DWARF engine or a proxy to an external Debug Adapter
// Protocol process; this package never implements either — it defines the
// surface both must satisfy and the rules for reporting an operation as
// unsupported. Modeled on the teacher's GetDriver(name) Driver registry in
// internal/daemon/driver.go, generalized from "which CLI to spawn" to "which
// debug backend speaks for this session".
package driver

import (
	"context"
	"errors"
	"fmt"
)

// Kind identifies which family of backend a driver belongs to.
type Kind string

const (
	KindNative Kind = "native"
	KindDAP    Kind = "dap"
)

// ErrNotSupported is returned (wrapped with the operation name via
// NotSupported) when a driver does not implement an optional capability.
// The dispatcher must recognize it distinctly from any other driver error.
var ErrNotSupported = errors.New("not supported")

// NotSupported wraps ErrNotSupported with the name of the missing operation.
func NotSupported(op string) error {
	return fmt.Errorf("%s: %w", op, ErrNotSupported)
}

// IsNotSupported reports whether err represents a missing optional
// capability rather than an operation failure.
func IsNotSupported(err error) bool {
	return errors.Is(err, ErrNotSupported)
}

// RunAction enumerates the actions accepted by Core.Run.
type RunAction string

const (
	ActionContinue     RunAction = "continue"
	ActionStepOver     RunAction = "step_over"
	ActionStepIn       RunAction = "step_in"
	ActionStepOut      RunAction = "step_out"
	ActionReverseCont  RunAction = "reverse_continue"
	ActionReverseStep  RunAction = "reverse_step"
	ActionPause        RunAction = "pause"
	ActionGoto         RunAction = "goto"
)

// RunOptions carries the optional modifiers spec.md §4.1 allows on a run
// action.
type RunOptions struct {
	ThreadID     int
	SingleThread bool
	Timeout      int // milliseconds; 0 means no timeout
	File         string
	Line         int
}

// Breakpoint is the driver-facing request to set one breakpoint.
type Breakpoint struct {
	File          string
	Line          int
	Condition     string
	HitCondition  string
	LogMessage    string
}

// BreakpointInfo is what a driver reports back after set_breakpoint, and
// what list_breakpoints enumerates.
type BreakpointInfo struct {
	ID        int
	File      string
	Line      int
	Verified  bool
	Condition string
}

// StopReason enumerates why a Run call returned.
type StopReason string

const (
	StopBreakpoint StopReason = "breakpoint"
	StopStep       StopReason = "step"
	StopException  StopReason = "exception"
	StopPause      StopReason = "pause"
	StopExit       StopReason = "exit"
	StopEntry      StopReason = "entry"
)

// Location identifies a stop point in source.
type Location struct {
	File     string
	Line     int
	Function string
}

// Variable is one local variable.
type Variable struct {
	Name  string
	Value string
	Type  string
}

// StopState is the result of a Run call.
type StopState struct {
	Reason      StopReason
	Location    *Location
	ExitCode    *int
	Locals      []Variable
	LogMessages []string
}

// InspectRequest asks the driver to evaluate an expression, optionally in a
// given stack frame and with a scope hint whose meaning is driver specific.
type InspectRequest struct {
	Expression string
	FrameID    int
	Scope      string
}

// InspectResult is the evaluated value.
type InspectResult struct {
	Value string
	Type  string
}

// Config is the launch configuration passed to Core.Launch. Settings beyond
// Program/Args/Cwd/Env are driver-specific and carried as raw Options.
type Config struct {
	Program string
	Args    []string
	Cwd     string
	Env     map[string]string
	Options map[string]any
}

// Core is the set of mandatory operations every driver, regardless of kind,
// must implement.
type Core interface {
	Launch(ctx context.Context, cfg Config) error
	Run(ctx context.Context, action RunAction, opts RunOptions) (StopState, error)
	SetBreakpoint(ctx context.Context, bp Breakpoint) (BreakpointInfo, error)
	RemoveBreakpoint(ctx context.Context, id int) error
	ListBreakpoints(ctx context.Context) ([]BreakpointInfo, error)
	Inspect(ctx context.Context, req InspectRequest) (InspectResult, error)
	Stop(ctx context.Context) error
	Deinit() error
}

// Driver is the full handle the session manager stores: Core plus identity.
// Optional operations are discovered by type-asserting a Driver value
// against the interfaces below, never by a capability bitmask — the
// compiler enforces that an implemented optional interface actually has the
// right method set, and a missing one is simply absent from the type switch.
type Driver interface {
	Core
	Kind() Kind
}

// GetPID is deliberately its own interface (see spec.md §4.1): it must be
// safely callable from a goroutine other than the one blocked inside Run,
// so the daemon can force-unblock a stuck Run by signalling this pid.
type GetPID interface {
	GetPID(ctx context.Context) (int, error)
}

// The remaining optional capabilities, one interface per operation, named
// to match spec.md §4.1's capability list. A driver implements whichever
// subset its backend actually supports.
type (
	ThreadInfo struct {
		ID   int
		Name string
	}

	ThreadLister interface {
		Threads(ctx context.Context) ([]ThreadInfo, error)
	}

	StackTracer interface {
		StackTrace(ctx context.Context, threadID int) ([]StackFrameInfo, error)
	}

	StackFrameInfo struct {
		Index    int
		Function string
		File     string
		Line     int
	}

	MemoryReader interface {
		ReadMemory(ctx context.Context, addr uint64, length int) ([]byte, error)
	}

	MemoryWriter interface {
		WriteMemory(ctx context.Context, addr uint64, data []byte) (int, error)
	}

	Disassembler interface {
		Disassemble(ctx context.Context, addr uint64, length int) ([]Instruction, error)
	}

	Instruction struct {
		Addr uint64
		Text string
	}

	Attacher interface {
		Attach(ctx context.Context, pid int) error
	}

	FunctionBreakpointSetter interface {
		SetFunctionBreakpoint(ctx context.Context, function string, condition string) (BreakpointInfo, error)
	}

	ExceptionBreakpointSetter interface {
		SetExceptionBreakpoints(ctx context.Context, filters []string) error
	}

	ScopeInfo struct {
		Name      string
		VariablesRef int
	}

	Scoper interface {
		Scopes(ctx context.Context, frameID int) ([]ScopeInfo, error)
	}

	DataBreakpointInfo struct {
		DataID      string
		Description string
	}

	DataBreakpointInfoer interface {
		DataBreakpointInfo(ctx context.Context, variablesRef int, name string) (DataBreakpointInfo, error)
	}

	DataBreakpointSetter interface {
		SetDataBreakpoint(ctx context.Context, dataID string, condition string) (BreakpointInfo, error)
	}

	Capabilities interface {
		Capabilities(ctx context.Context) (map[string]bool, error)
	}

	VariableSetter interface {
		SetVariable(ctx context.Context, variablesRef int, name string, value string) (Variable, error)
	}

	Gotoer interface {
		Goto(ctx context.Context, file string, line int) error
	}

	CompletionItem struct {
		Label string
		Text  string
	}

	Completer interface {
		Completions(ctx context.Context, text string, column int) ([]CompletionItem, error)
	}

	ModuleInfo struct {
		ID   string
		Name string
		Path string
	}

	ModuleLister interface {
		Modules(ctx context.Context) ([]ModuleInfo, error)
	}

	SourceInfo struct {
		Name string
		Path string
	}

	LoadedSourceLister interface {
		LoadedSources(ctx context.Context) ([]SourceInfo, error)
	}

	SourceReader interface {
		Source(ctx context.Context, ref int) (string, error)
	}

	ExpressionSetter interface {
		SetExpression(ctx context.Context, expr string, value string, frameID int) (Variable, error)
	}

	Terminator interface {
		Terminate(ctx context.Context) error
	}

	RestartFramer interface {
		RestartFrame(ctx context.Context, frameID int) error
	}

	ExceptionInfo struct {
		ExceptionID string
		Description string
	}

	ExceptionInfoer interface {
		ExceptionInfo(ctx context.Context, threadID int) (ExceptionInfo, error)
	}

	RegisterReader interface {
		ReadRegisters(ctx context.Context, threadID int) (map[string]uint64, error)
	}

	RegisterWriter interface {
		WriteRegisters(ctx context.Context, threadID int, regs map[string]uint64) error
	}

	InstructionBreakpointSetter interface {
		SetInstructionBreakpoints(ctx context.Context, addrs []uint64) ([]BreakpointInfo, error)
	}

	StepInTarget struct {
		ID    int
		Label string
	}

	StepInTargeter interface {
		StepInTargets(ctx context.Context, frameID int) ([]StepInTarget, error)
	}

	BreakpointLocation struct {
		Line int
	}

	BreakpointLocationLister interface {
		BreakpointLocations(ctx context.Context, file string, startLine int, endLine int) ([]BreakpointLocation, error)
	}

	Canceler interface {
		Cancel(ctx context.Context, requestID string) error
	}

	ThreadTerminator interface {
		TerminateThreads(ctx context.Context, threadIDs []int) error
	}

	Restarter interface {
		Restart(ctx context.Context) error
	}

	Detacher interface {
		Detach(ctx context.Context) error
	}

	GotoTarget struct {
		ID   int
		Line int
	}

	GotoTargeter interface {
		GotoTargets(ctx context.Context, file string, line int) ([]GotoTarget, error)
	}

	SymbolFinder interface {
		FindSymbol(ctx context.Context, name string) ([]Location, error)
	}

	NotificationDrainer interface {
		DrainNotifications(ctx context.Context) ([]string, error)
	}

	VariableLocationer interface {
		VariableLocation(ctx context.Context, variablesRef int, name string) (Location, error)
	}

	CoreLoader interface {
		LoadCore(ctx context.Context, corePath string) error
	}

	RawRequester interface {
		RawRequest(ctx context.Context, method string, payload []byte) ([]byte, error)
	}
)
