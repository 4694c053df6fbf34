// Package dispatch maps (tool, args) pairs arriving over the daemon socket
// to typed driver calls and renders results as JSON, following the
// teacher's internal/mcp/server.go handleRequest/handleToolCall design:
// a fixed handler table keyed by tool name, JSON-RPC-adjacent error codes, and one
// argument struct with jsonschema tags per tool (internal/mcp/tools.go).
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/cogdebug/cog-debug/internal/driver"
	"github.com/cogdebug/cog-debug/internal/session"
	"github.com/cogdebug/cog-debug/internal/wire"
)

// Error is a dispatcher-level failure carrying a stable JSON-RPC-adjacent
// code (see wire.Code*).
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string { return e.Message }

func newError(code int, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// EventSink receives one event per dispatched tool call, for the dashboard.
// Defined here (rather than depending on package eventbus directly) so the
// dispatcher has no knowledge of how, or whether, events actually reach a
// dashboard process.
type EventSink interface {
	Emit(e wire.Event)
}

// DriverFactory constructs a new driver for a given kind. The dispatcher
// has no notion of how a native or DAP backend is actually instantiated;
// that is supplied by the caller (production wires it to the real
// backends, which are out of scope for this module; tests wire it to
// driver.Mock).
type DriverFactory func(kind driver.Kind) (driver.Driver, error)

// Dispatcher is the tool-call entry point shared by every connection the
// daemon accepts.
type Dispatcher struct {
	sessions *session.Manager
	newDriver DriverFactory
	events    EventSink
	log       hclog.Logger
}

// New creates a Dispatcher. events may be nil, in which case activity and
// error events are silently dropped (matching the "best effort" nature of
// the event bus described in spec.md §4.5).
func New(sessions *session.Manager, newDriver DriverFactory, events EventSink, log hclog.Logger) *Dispatcher {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Dispatcher{sessions: sessions, newDriver: newDriver, events: events, log: log}
}

// Dispatch parses args against the named tool's schema, invokes the typed
// handler, and emits an activity or error event reflecting the outcome.
// Events are emitted after the call returns (policy: emit after result is
// known, per spec.md §4.3), so log ordering matches outcome order rather
// than call order.
func (d *Dispatcher) Dispatch(ctx context.Context, tool string, args json.RawMessage) (json.RawMessage, *Error) {
	handler, ok := handlers[tool]
	if !ok {
		return nil, newError(wire.CodeInvalidParams, "unknown tool %q", tool)
	}

	if err := validateArgs(tool, args); err != nil {
		d.emitError(tool, "", err.Error())
		return nil, newError(wire.CodeInvalidParams, "%s", err.Error())
	}

	result, sessionID, err := handler(ctx, d, args)
	if err != nil {
		var dErr *Error
		if asDispatchError(err, &dErr) {
			d.emitOutcome(tool, sessionID, dErr.Message, true)
			return nil, dErr
		}
		if driver.IsNotSupported(err) {
			msg := "not supported: " + err.Error()
			d.emitOutcome(tool, sessionID, msg, true)
			return nil, newError(wire.CodeInternalError, "%s", msg)
		}
		d.emitOutcome(tool, sessionID, err.Error(), true)
		return nil, newError(wire.CodeInternalError, "%s", err.Error())
	}

	d.emitOutcome(tool, sessionID, summarize(tool), false)
	return result, nil
}

func asDispatchError(err error, out **Error) bool {
	if de, ok := err.(*Error); ok {
		*out = de
		return true
	}
	return false
}

func summarize(tool string) string {
	return tool + " ok"
}

func (d *Dispatcher) emitOutcome(tool, sessionID, message string, isError bool) {
	if d.events == nil {
		return
	}
	if isError {
		d.events.Emit(wire.Event{Type: wire.EventError, SessionID: sessionID, Method: tool, Message: message})
		return
	}
	d.events.Emit(wire.Event{Type: wire.EventActivity, SessionID: sessionID, Tool: tool, Message: message})
}

func (d *Dispatcher) emitError(tool, sessionID, message string) {
	if d.events == nil {
		return
	}
	d.events.Emit(wire.Event{Type: wire.EventError, SessionID: sessionID, Method: tool, Message: message})
}

// lookupSession resolves a session id to a live *session.Session, returning
// a dispatch.Error with the "unknown session" message on failure so callers
// can return it directly.
func (d *Dispatcher) lookupSession(id string) (*session.Session, error) {
	if id == "" {
		return nil, newError(wire.CodeInvalidParams, "missing session_id")
	}
	s := d.sessions.Get(id)
	if s == nil {
		return nil, newError(wire.CodeInternalError, "unknown session %q", id)
	}
	return s, nil
}

func marshal(v any) (json.RawMessage, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(b), nil
}
