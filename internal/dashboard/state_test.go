package dashboard

import (
	"errors"
	"strings"
	"testing"

	"github.com/cogdebug/cog-debug/internal/wire"
)

func TestRingLogEvictsOldestPastCapacity(t *testing.T) {
	var r RingLog
	for i := 0; i < ringLogCapacity+4; i++ {
		r.Push(LogEntry{Message: itoa(i)})
	}
	if r.Count() != ringLogCapacity {
		t.Fatalf("count = %d, want %d", r.Count(), ringLogCapacity)
	}
	entries := r.Entries()
	if entries[0].Message != itoa(4) {
		t.Fatalf("oldest surviving entry = %q, want %q", entries[0].Message, itoa(4))
	}
	if entries[len(entries)-1].Message != itoa(ringLogCapacity+3) {
		t.Fatalf("newest entry = %q, want %q", entries[len(entries)-1].Message, itoa(ringLogCapacity+3))
	}
}

func TestApplyEventLaunchThenStopBuildsSourceWindow(t *testing.T) {
	var loadedPath string
	loader := func(path string) ([]byte, error) {
		loadedPath = path
		var b strings.Builder
		for i := 1; i <= 200; i++ {
			b.WriteString("line ")
			b.WriteString(itoa(i))
			b.WriteByte('\n')
		}
		return []byte(b.String()), nil
	}
	s := NewState(loader)

	s.ApplyEvent(wire.Event{Type: wire.EventLaunch, SessionID: "session-1", Driver: "native"})
	if s.Focused() == nil || s.Focused().ID != "session-1" {
		t.Fatal("expected session-1 to be focused after launch")
	}

	s.ApplyEvent(wire.Event{
		Type:      wire.EventStop,
		SessionID: "session-1",
		Reason:    "breakpoint",
		Location:  &wire.Location{File: "/abs/main.go", Line: 100, Function: "main"},
		StackTrace: []wire.StackFrame{{Index: 0, Function: "main", File: "/abs/main.go", Line: 100}},
		Locals:     []wire.Variable{{Name: "x", Value: "1", Type: "int"}},
	})

	v := s.Focused()
	if v.Status != "stopped" || v.StopReason != "breakpoint" {
		t.Fatalf("status/reason = %q/%q, want stopped/breakpoint", v.Status, v.StopReason)
	}
	if loadedPath != "/abs/main.go" {
		t.Fatalf("loaded path = %q, want /abs/main.go", loadedPath)
	}
	if len(v.Source.Lines) != sourceMaxLines {
		t.Fatalf("source window len = %d, want %d", len(v.Source.Lines), sourceMaxLines)
	}
	if v.Source.CurrentIdx < 0 || !v.Source.Lines[v.Source.CurrentIdx].Current {
		t.Fatal("expected CurrentIdx to mark the stop line")
	}
	if v.Source.Lines[v.Source.CurrentIdx].LineNum != 100 {
		t.Fatalf("current line number = %d, want 100", v.Source.Lines[v.Source.CurrentIdx].LineNum)
	}
}

func TestApplyEventRelativePathSkipsSourceLoad(t *testing.T) {
	called := false
	s := NewState(func(string) ([]byte, error) { called = true; return nil, errors.New("should not be called") })
	s.ApplyEvent(wire.Event{Type: wire.EventLaunch, SessionID: "session-1"})
	s.ApplyEvent(wire.Event{
		Type: wire.EventStop, SessionID: "session-1",
		Location: &wire.Location{File: "main.go", Line: 1},
	})
	if called {
		t.Fatal("expected a relative path not to trigger a source load")
	}
}

func TestApplyEventBreakpointSetThenRemove(t *testing.T) {
	s := NewState(nil)
	s.ApplyEvent(wire.Event{Type: wire.EventLaunch, SessionID: "session-1"})
	s.ApplyEvent(wire.Event{
		Type: wire.EventBreakpoint, SessionID: "session-1", Action: "set",
		BP: &wire.BreakpointEvent{ID: 1, File: "a.go", Line: 5, Verified: true},
	})
	if len(s.Focused().Breakpoints) != 1 {
		t.Fatalf("expected one breakpoint, got %d", len(s.Focused().Breakpoints))
	}
	s.ApplyEvent(wire.Event{
		Type: wire.EventBreakpoint, SessionID: "session-1", Action: "remove",
		BP: &wire.BreakpointEvent{ID: 1},
	})
	if len(s.Focused().Breakpoints) != 0 {
		t.Fatalf("expected breakpoint removed, got %d remaining", len(s.Focused().Breakpoints))
	}
}

func TestApplyEventUnknownTypeIsIgnored(t *testing.T) {
	s := NewState(nil)
	s.ApplyEvent(wire.Event{Type: wire.EventLaunch, SessionID: "session-1"})
	s.ApplyEvent(wire.Event{Type: wire.EventType("future_event"), SessionID: "session-1"})
	if len(s.Sessions()) != 1 {
		t.Fatalf("expected the unknown event to be a no-op, got %d sessions", len(s.Sessions()))
	}
}

func TestApplyEventLineWithMalformedJSONLogsError(t *testing.T) {
	s := NewState(nil)
	s.ApplyEventLine([]byte("not json"))
	entries := s.GlobalLog.Entries()
	if len(entries) != 1 || !entries[0].IsError {
		t.Fatal("expected one error entry in the global log")
	}
}

func TestApplyEventSessionEndRemovesViewAndRefocuses(t *testing.T) {
	s := NewState(nil)
	s.ApplyEvent(wire.Event{Type: wire.EventLaunch, SessionID: "session-1"})
	s.ApplyEvent(wire.Event{Type: wire.EventLaunch, SessionID: "session-2"})
	s.FocusNext() // now focused on session-2

	s.ApplyEvent(wire.Event{Type: wire.EventSessionEnd, SessionID: "session-2"})
	if len(s.Sessions()) != 1 {
		t.Fatalf("expected one session left, got %d", len(s.Sessions()))
	}
	if s.Focused() == nil || s.Focused().ID != "session-1" {
		t.Fatal("expected focus to fall back to the remaining session")
	}
}

func TestClampScrollNeverGoesNegativeOrPastContent(t *testing.T) {
	if got := ClampScroll(-5, 10, 4); got != 0 {
		t.Fatalf("ClampScroll(-5,10,4) = %d, want 0", got)
	}
	if got := ClampScroll(100, 10, 4); got != 6 {
		t.Fatalf("ClampScroll(100,10,4) = %d, want 6", got)
	}
	if got := ClampScroll(2, 3, 10); got != 0 {
		t.Fatalf("ClampScroll(2,3,10) = %d, want 0 (content fits entirely)", got)
	}
}

func TestFocusNextWrapsAndResetsScroll(t *testing.T) {
	s := NewState(nil)
	s.ApplyEvent(wire.Event{Type: wire.EventLaunch, SessionID: "session-1"})
	s.ApplyEvent(wire.Event{Type: wire.EventLaunch, SessionID: "session-2"})
	s.Focused().SidebarScroll = 5

	s.FocusNext()
	if s.Focused().ID != "session-2" {
		t.Fatalf("focused = %s, want session-2", s.Focused().ID)
	}
	s.FocusNext()
	if s.Focused().ID != "session-1" {
		t.Fatalf("focused = %s, want session-1 (wrapped)", s.Focused().ID)
	}
	if s.Focused().SidebarScroll != 0 {
		t.Fatal("expected scroll reset on refocus")
	}
}
