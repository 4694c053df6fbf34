package eventbus

import (
	"bufio"
	"net"
	"path/filepath"
	"testing"

	"github.com/cogdebug/cog-debug/internal/wire"
)

func TestEmitWritesOneJSONLinePerEvent(t *testing.T) {
	dir := t.TempDir()
	sockPath := filepath.Join(dir, "dashboard.sock")

	l, err := net.Listen("unix", sockPath)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()

	received := make(chan string, 2)
	go func() {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			received <- scanner.Text()
		}
	}()

	e := New(sockPath, nil)
	e.Emit(wire.Event{Type: wire.EventLaunch, SessionID: "session-1"})
	e.Emit(wire.Event{Type: wire.EventStop, SessionID: "session-1", Reason: "breakpoint"})

	line1 := <-received
	line2 := <-received
	if line1 == "" || line2 == "" {
		t.Fatal("expected two non-empty event lines")
	}
}

func TestEmitWithNoListenerDoesNotBlockOrPanic(t *testing.T) {
	dir := t.TempDir()
	e := New(filepath.Join(dir, "nobody-home.sock"), nil)
	e.Emit(wire.Event{Type: wire.EventActivity, Tool: "debug_launch"})
	e.Emit(wire.Event{Type: wire.EventActivity, Tool: "debug_launch"})
}

func TestConnectIsSilentOnFailure(t *testing.T) {
	e := New("/nonexistent/path/should/not/exist.sock", nil)
	e.Connect()
	if e.conn != nil {
		t.Fatal("expected no connection to be established")
	}
}

// TestEmitNeverRedialsOnceDisabled guards spec.md §4.5's "disables further
// emission until the next connect attempt": once a dial fails, Emit must
// not retry the dial itself even after the dashboard socket starts
// accepting connections — only Reconnect may bring emission back.
func TestEmitNeverRedialsOnceDisabled(t *testing.T) {
	dir := t.TempDir()
	sockPath := filepath.Join(dir, "dashboard.sock")

	e := New(sockPath, nil)
	e.Emit(wire.Event{Type: wire.EventActivity, Tool: "debug_launch"})
	if !e.disabled {
		t.Fatal("expected Emit to disable further emission after a failed dial")
	}

	l, err := net.Listen("unix", sockPath)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()

	e.Emit(wire.Event{Type: wire.EventActivity, Tool: "debug_launch"})
	if e.conn != nil {
		t.Fatal("expected Emit to stay disabled without redialing")
	}

	e.Reconnect()
	if e.conn == nil {
		t.Fatal("expected Reconnect to dial now that a listener exists")
	}
}
