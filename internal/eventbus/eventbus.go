// Package eventbus is the daemon-side half of the event stream: a
// unidirectional, best-effort writer to the dashboard's rendezvous socket.
// Grounded on spec.md §4.5 and on the teacher's fire-and-forget sync
// publishing in internal/hostedsync (best-effort network writes that must
// never block the caller on failure).
package eventbus

import (
	"encoding/json"
	"net"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/cogdebug/cog-debug/internal/wire"
)

// Emitter writes wire.Event frames to the dashboard socket, reconnecting
// lazily. It implements dispatch.EventSink.
type Emitter struct {
	mu         sync.Mutex
	socketPath string
	log        hclog.Logger
	conn       net.Conn
	disabled   bool
}

// New creates an Emitter targeting the dashboard socket at socketPath. It
// does not dial until Connect or the first Emit call.
func New(socketPath string, log hclog.Logger) *Emitter {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Emitter{socketPath: socketPath, log: log}
}

// Connect makes a best-effort initial dial. Failure is silent, matching
// spec.md §4.4's "opportunistically connects to the dashboard socket;
// failure is silent".
func (e *Emitter) Connect() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dialLocked()
}

func (e *Emitter) dialLocked() {
	conn, err := net.DialTimeout("unix", e.socketPath, 500*time.Millisecond)
	if err != nil {
		e.log.Debug("dashboard not reachable", "error", err)
		e.disabled = true
		return
	}
	e.conn = conn
	e.disabled = false
}

// Emit writes e as one JSON line. A write or dial failure degrades
// silently: the connection is dropped and emission is disabled until the
// next successful (re)connect. Emit itself never dials once disabled —
// per spec.md §4.5, a missing or crashed dashboard must never cost the
// dispatcher dial latency on every tool call; only Connect and Reconnect
// redial.
func (e *Emitter) Emit(ev wire.Event) {
	b, err := json.Marshal(ev)
	if err != nil {
		return
	}
	b = append(b, '\n')

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.disabled {
		return
	}
	if e.conn == nil {
		e.dialLocked()
		if e.conn == nil {
			return
		}
	}

	if _, err := e.conn.Write(b); err != nil {
		e.log.Debug("dashboard write failed, disabling until reconnect", "error", err)
		e.conn.Close()
		e.conn = nil
		e.disabled = true
	}
}

// Reconnect retries the dashboard dial if emission is currently disabled.
// Called periodically from the daemon's poll loop, never from Emit, so a
// dead dashboard costs one dial attempt per poll tick rather than one per
// tool call.
func (e *Emitter) Reconnect() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.conn != nil {
		return
	}
	e.dialLocked()
}

// Close releases the underlying connection, if any.
func (e *Emitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.conn != nil {
		e.conn.Close()
		e.conn = nil
	}
}
