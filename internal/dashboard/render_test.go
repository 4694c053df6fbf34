package dashboard

import (
	"strings"
	"testing"

	"github.com/cogdebug/cog-debug/internal/wire"
)

func TestRenderWithNoSessionsShowsPlaceholder(t *testing.T) {
	s := NewState(nil)
	out := Render(s, PaneSource, 80, 24)
	if !strings.Contains(out, "no sessions") {
		t.Fatalf("expected placeholder text, got: %q", out)
	}
}

func TestRenderWithFocusedSessionIncludesID(t *testing.T) {
	s := NewState(nil)
	s.ApplyEvent(wire.Event{Type: wire.EventLaunch, SessionID: "session-1", Driver: "native"})
	out := Render(s, PaneSource, 80, 24)
	if !strings.Contains(out, "session-1") {
		t.Fatalf("expected session id in frame, got: %q", out)
	}
}
