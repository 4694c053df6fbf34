package dispatch

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/cogdebug/cog-debug/internal/driver"
	"github.com/cogdebug/cog-debug/internal/session"
	"github.com/cogdebug/cog-debug/internal/wire"
)

// recordingSink captures every emitted event for assertions.
type recordingSink struct {
	events []wire.Event
}

func (r *recordingSink) Emit(e wire.Event) { r.events = append(r.events, e) }

func newTestDispatcher(newDriver DriverFactory) (*Dispatcher, *recordingSink) {
	sink := &recordingSink{}
	d := New(session.NewManager(), newDriver, sink, nil)
	return d, sink
}

func mockFactory(kind driver.Kind) (driver.Driver, error) {
	return driver.NewMock(kind), nil
}

func minimalFactory(kind driver.Kind) (driver.Driver, error) {
	return driver.NewMinimalMock(kind), nil
}

func mustMarshal(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

// S1: launch a native session, expect session-1.
func TestDispatchLaunchAssignsFirstSessionID(t *testing.T) {
	d, sink := newTestDispatcher(mockFactory)
	args := mustMarshal(t, map[string]any{"program": "/bin/true", "driver": "native"})

	result, dErr := d.Dispatch(context.Background(), "debug_launch", args)
	if dErr != nil {
		t.Fatalf("unexpected error: %+v", dErr)
	}

	var out struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(result, &out); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if out.SessionID != "session-1" {
		t.Fatalf("session_id = %q, want session-1", out.SessionID)
	}

	foundLaunch := false
	for _, ev := range sink.events {
		if ev.Type == wire.EventLaunch {
			foundLaunch = true
		}
	}
	if !foundLaunch {
		t.Fatal("expected a launch event to be emitted")
	}
}

func TestDispatchUnknownToolIsInvalidParams(t *testing.T) {
	d, _ := newTestDispatcher(mockFactory)
	_, dErr := d.Dispatch(context.Background(), "debug_frobnicate", json.RawMessage(`{}`))
	if dErr == nil {
		t.Fatal("expected an error for an unknown tool")
	}
	if dErr.Code != wire.CodeInvalidParams {
		t.Fatalf("code = %d, want %d", dErr.Code, wire.CodeInvalidParams)
	}
}

func TestDispatchMissingRequiredFieldIsInvalidParams(t *testing.T) {
	d, _ := newTestDispatcher(mockFactory)
	// program is required by launchArgs' schema.
	_, dErr := d.Dispatch(context.Background(), "debug_launch", mustMarshal(t, map[string]any{"driver": "native"}))
	if dErr == nil {
		t.Fatal("expected an error for a missing required field")
	}
	if dErr.Code != wire.CodeInvalidParams {
		t.Fatalf("code = %d, want %d", dErr.Code, wire.CodeInvalidParams)
	}
}

func TestDispatchBreakpointSetThenList(t *testing.T) {
	d, _ := newTestDispatcher(mockFactory)
	launchResult, dErr := d.Dispatch(context.Background(), "debug_launch", mustMarshal(t, map[string]any{"program": "/bin/true", "driver": "native"}))
	if dErr != nil {
		t.Fatalf("launch failed: %+v", dErr)
	}
	var launched struct {
		SessionID string `json:"session_id"`
	}
	_ = json.Unmarshal(launchResult, &launched)

	setResult, dErr := d.Dispatch(context.Background(), "debug_breakpoint", mustMarshal(t, map[string]any{
		"session_id": launched.SessionID, "action": "set", "file": "main.c", "line": 10,
	}))
	if dErr != nil {
		t.Fatalf("set breakpoint failed: %+v", dErr)
	}
	var bp struct {
		ID int `json:"id"`
	}
	if err := json.Unmarshal(setResult, &bp); err != nil {
		t.Fatalf("unmarshal bp: %v", err)
	}
	if bp.ID == 0 {
		t.Fatal("expected a non-zero breakpoint id")
	}

	listResult, dErr := d.Dispatch(context.Background(), "debug_breakpoint", mustMarshal(t, map[string]any{
		"session_id": launched.SessionID, "action": "list",
	}))
	if dErr != nil {
		t.Fatalf("list breakpoints failed: %+v", dErr)
	}
	var list []map[string]any
	if err := json.Unmarshal(listResult, &list); err != nil {
		t.Fatalf("unmarshal list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("len(list) = %d, want 1", len(list))
	}
}

// Removing an unknown breakpoint id must be idempotent, not an error.
func TestDispatchBreakpointRemoveUnknownIsIdempotent(t *testing.T) {
	d, _ := newTestDispatcher(mockFactory)
	launchResult, dErr := d.Dispatch(context.Background(), "debug_launch", mustMarshal(t, map[string]any{"program": "/bin/true", "driver": "native"}))
	if dErr != nil {
		t.Fatalf("launch failed: %+v", dErr)
	}
	var launched struct {
		SessionID string `json:"session_id"`
	}
	_ = json.Unmarshal(launchResult, &launched)

	_, dErr = d.Dispatch(context.Background(), "debug_breakpoint", mustMarshal(t, map[string]any{
		"session_id": launched.SessionID, "action": "remove", "id": 999,
	}))
	if dErr != nil {
		t.Fatalf("removing an unknown breakpoint id should not error, got %+v", dErr)
	}
}

// Capability projection: a minimal driver must report not-supported (surfaced
// as an internal error, never a crash) for an optional capability, here
// debug_threads.
func TestDispatchCapabilityProjectionNotSupported(t *testing.T) {
	d, sink := newTestDispatcher(minimalFactory)
	launchResult, dErr := d.Dispatch(context.Background(), "debug_launch", mustMarshal(t, map[string]any{"program": "/bin/true", "driver": "native"}))
	if dErr != nil {
		t.Fatalf("launch failed: %+v", dErr)
	}
	var launched struct {
		SessionID string `json:"session_id"`
	}
	_ = json.Unmarshal(launchResult, &launched)

	_, dErr = d.Dispatch(context.Background(), "debug_threads", mustMarshal(t, map[string]any{"session_id": launched.SessionID}))
	if dErr == nil {
		t.Fatal("expected debug_threads against a minimal driver to fail")
	}
	if dErr.Code != wire.CodeInternalError {
		t.Fatalf("code = %d, want %d", dErr.Code, wire.CodeInternalError)
	}

	foundErrorEvent := false
	for _, ev := range sink.events {
		if ev.Type == wire.EventError && ev.SessionID == launched.SessionID {
			foundErrorEvent = true
		}
	}
	if !foundErrorEvent {
		t.Fatal("expected an error event for the not-supported call")
	}
}

// pidTrackingDriver wraps a Mock to count GetPID calls, so tests can assert
// debug_stop's unblock-a-blocked-run path. debug_stop still sends SIGINT to
// the pid it reports (99999), not to the test process.
type pidTrackingDriver struct {
	driver.Driver
	calls *int
}

func (p *pidTrackingDriver) GetPID(ctx context.Context) (int, error) {
	*p.calls++
	return 99999, nil
}

// debug_stop must force-unblock a session whose run is presumed still
// in-flight (status "running", set by launch and not yet flipped back by a
// completed debug_run) via get_pid + signal, per spec.md §5.
func TestDispatchStopCallsGetPIDWhileSessionIsRunning(t *testing.T) {
	var calls int
	factory := func(kind driver.Kind) (driver.Driver, error) {
		return &pidTrackingDriver{Driver: driver.NewMock(kind), calls: &calls}, nil
	}
	d, _ := newTestDispatcher(factory)

	launchResult, dErr := d.Dispatch(context.Background(), "debug_launch", mustMarshal(t, map[string]any{"program": "/bin/true", "driver": "native"}))
	if dErr != nil {
		t.Fatalf("launch failed: %+v", dErr)
	}
	var launched struct {
		SessionID string `json:"session_id"`
	}
	_ = json.Unmarshal(launchResult, &launched)

	if _, dErr := d.Dispatch(context.Background(), "debug_stop", mustMarshal(t, map[string]any{"session_id": launched.SessionID})); dErr != nil {
		t.Fatalf("stop failed: %+v", dErr)
	}
	if calls != 1 {
		t.Fatalf("GetPID calls = %d, want 1 (stop must force-unblock a running session)", calls)
	}
}

// A session already stopped (its run already returned) has nothing to
// unblock, so debug_stop must not call get_pid.
func TestDispatchStopSkipsGetPIDWhenSessionAlreadyStopped(t *testing.T) {
	var calls int
	factory := func(kind driver.Kind) (driver.Driver, error) {
		return &pidTrackingDriver{Driver: driver.NewMock(kind), calls: &calls}, nil
	}
	d, _ := newTestDispatcher(factory)

	launchResult, dErr := d.Dispatch(context.Background(), "debug_launch", mustMarshal(t, map[string]any{"program": "/bin/true", "driver": "native"}))
	if dErr != nil {
		t.Fatalf("launch failed: %+v", dErr)
	}
	var launched struct {
		SessionID string `json:"session_id"`
	}
	_ = json.Unmarshal(launchResult, &launched)

	if _, dErr := d.Dispatch(context.Background(), "debug_run", mustMarshal(t, map[string]any{
		"session_id": launched.SessionID, "action": "continue",
	})); dErr != nil {
		t.Fatalf("run failed: %+v", dErr)
	}

	if _, dErr := d.Dispatch(context.Background(), "debug_stop", mustMarshal(t, map[string]any{"session_id": launched.SessionID})); dErr != nil {
		t.Fatalf("stop failed: %+v", dErr)
	}
	if calls != 0 {
		t.Fatalf("GetPID calls = %d, want 0 (run already returned, nothing to unblock)", calls)
	}
}

func TestDispatchUnknownSessionIsInternalError(t *testing.T) {
	d, _ := newTestDispatcher(mockFactory)
	_, dErr := d.Dispatch(context.Background(), "debug_inspect", mustMarshal(t, map[string]any{
		"session_id": "session-404", "expression": "x",
	}))
	if dErr == nil {
		t.Fatal("expected an error for an unknown session")
	}
	if dErr.Code != wire.CodeInternalError {
		t.Fatalf("code = %d, want %d", dErr.Code, wire.CodeInternalError)
	}
}

func TestDispatchSessionsListsLiveSessions(t *testing.T) {
	d, _ := newTestDispatcher(mockFactory)
	for i := 0; i < 3; i++ {
		if _, dErr := d.Dispatch(context.Background(), "debug_launch", mustMarshal(t, map[string]any{"program": "/bin/true", "driver": "native"})); dErr != nil {
			t.Fatalf("launch %d failed: %+v", i, dErr)
		}
	}

	result, dErr := d.Dispatch(context.Background(), "debug_sessions", json.RawMessage(`{}`))
	if dErr != nil {
		t.Fatalf("debug_sessions failed: %+v", dErr)
	}
	var list []map[string]any
	if err := json.Unmarshal(result, &list); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("len(list) = %d, want 3", len(list))
	}
}

func TestDispatchRunReachesStoppedState(t *testing.T) {
	d, sink := newTestDispatcher(mockFactory)
	launchResult, dErr := d.Dispatch(context.Background(), "debug_launch", mustMarshal(t, map[string]any{"program": "/bin/true", "driver": "native"}))
	if dErr != nil {
		t.Fatalf("launch failed: %+v", dErr)
	}
	var launched struct {
		SessionID string `json:"session_id"`
	}
	_ = json.Unmarshal(launchResult, &launched)

	result, dErr := d.Dispatch(context.Background(), "debug_run", mustMarshal(t, map[string]any{
		"session_id": launched.SessionID, "action": "continue",
	}))
	if dErr != nil {
		t.Fatalf("run failed: %+v", dErr)
	}
	var stop struct {
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(result, &stop); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if stop.Reason != "step" {
		t.Fatalf("reason = %q, want step (the mock's default StopState)", stop.Reason)
	}

	foundStop := false
	for _, ev := range sink.events {
		if ev.Type == wire.EventStop {
			foundStop = true
		}
	}
	if !foundStop {
		t.Fatal("expected a stop event to be emitted")
	}
}
