package driver

import (
	"context"
	"sync"
)

// Mock is an in-memory Driver used by dispatcher and session manager tests.
// It stands in for the real DWARF/DAP backends, which spec.md keeps out of
// scope: this package only needs *something* implementing Core (plus a
// fixed set of optional interfaces) to exercise the dispatch and
// capability-projection paths end to end.
type Mock struct {
	mu sync.Mutex

	kind Kind

	launched bool
	stopped  bool
	deinited bool

	breakpoints map[int]BreakpointInfo
	nextBPID    int

	runFunc func(action RunAction, opts RunOptions) (StopState, error)

	// pid is the value GetPID reports. The optional capabilities a Mock
	// offers are fixed by its method set; use MinimalMock for a driver
	// without any of them.
	pid int
}

// NewMock creates a driver implementing Core plus the GetPID, ThreadLister
// and StackTracer optional interfaces; no other optional interface is
// implemented.
func NewMock(kind Kind) *Mock {
	return &Mock{
		kind:        kind,
		breakpoints: make(map[int]BreakpointInfo),
		nextBPID:    1,
		pid:         4242,
	}
}

func (m *Mock) Kind() Kind { return m.kind }

func (m *Mock) Launch(ctx context.Context, cfg Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.launched = true
	return nil
}

// SetRunFunc overrides the behavior of Run for tests that need a specific
// StopState or error sequence.
func (m *Mock) SetRunFunc(f func(action RunAction, opts RunOptions) (StopState, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runFunc = f
}

func (m *Mock) Run(ctx context.Context, action RunAction, opts RunOptions) (StopState, error) {
	m.mu.Lock()
	f := m.runFunc
	m.mu.Unlock()
	if f != nil {
		return f(action, opts)
	}
	return StopState{Reason: StopStep}, nil
}

func (m *Mock) SetBreakpoint(ctx context.Context, bp Breakpoint) (BreakpointInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	info := BreakpointInfo{
		ID:        m.nextBPID,
		File:      bp.File,
		Line:      bp.Line,
		Verified:  true,
		Condition: bp.Condition,
	}
	m.breakpoints[info.ID] = info
	m.nextBPID++
	return info, nil
}

func (m *Mock) RemoveBreakpoint(ctx context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.breakpoints, id)
	return nil
}

func (m *Mock) ListBreakpoints(ctx context.Context) ([]BreakpointInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]BreakpointInfo, 0, len(m.breakpoints))
	for _, bp := range m.breakpoints {
		out = append(out, bp)
	}
	return out, nil
}

func (m *Mock) Inspect(ctx context.Context, req InspectRequest) (InspectResult, error) {
	return InspectResult{Value: "42", Type: "int"}, nil
}

func (m *Mock) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	return nil
}

func (m *Mock) Deinit() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deinited = true
	return nil
}

func (m *Mock) Deinited() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deinited
}

func (m *Mock) GetPID(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pid, nil
}

func (m *Mock) Threads(ctx context.Context) ([]ThreadInfo, error) {
	return []ThreadInfo{{ID: 1, Name: "main"}}, nil
}

func (m *Mock) StackTrace(ctx context.Context, threadID int) ([]StackFrameInfo, error) {
	return []StackFrameInfo{{Index: 0, Function: "main.main", File: "/tmp/a.c", Line: 4}}, nil
}

// MinimalMock implements only Core, used to exercise the not-supported path
// for every optional capability. It deliberately does NOT embed Mock: Go
// promotes embedded methods, which would silently hand MinimalMock every
// optional interface Mock implements and defeat the point of this type.
type MinimalMock struct {
	mu          sync.Mutex
	kind        Kind
	breakpoints map[int]BreakpointInfo
	nextBPID    int
}

// NewMinimalMock returns a driver that implements no optional interfaces.
// Its static type carries none of the optional method sets, so a type
// assertion against any optional interface fails at the dispatcher.
func NewMinimalMock(kind Kind) *MinimalMock {
	return &MinimalMock{
		kind:        kind,
		breakpoints: make(map[int]BreakpointInfo),
		nextBPID:    1,
	}
}

func (m *MinimalMock) Kind() Kind { return m.kind }

func (m *MinimalMock) Launch(ctx context.Context, cfg Config) error { return nil }

func (m *MinimalMock) Run(ctx context.Context, action RunAction, opts RunOptions) (StopState, error) {
	return StopState{Reason: StopStep}, nil
}

func (m *MinimalMock) SetBreakpoint(ctx context.Context, bp Breakpoint) (BreakpointInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	info := BreakpointInfo{ID: m.nextBPID, File: bp.File, Line: bp.Line, Verified: true}
	m.breakpoints[info.ID] = info
	m.nextBPID++
	return info, nil
}

func (m *MinimalMock) RemoveBreakpoint(ctx context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.breakpoints, id)
	return nil
}

func (m *MinimalMock) ListBreakpoints(ctx context.Context) ([]BreakpointInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]BreakpointInfo, 0, len(m.breakpoints))
	for _, bp := range m.breakpoints {
		out = append(out, bp)
	}
	return out, nil
}

func (m *MinimalMock) Inspect(ctx context.Context, req InspectRequest) (InspectResult, error) {
	return InspectResult{Value: "0"}, nil
}

func (m *MinimalMock) Stop(ctx context.Context) error { return nil }

func (m *MinimalMock) Deinit() error { return nil }
