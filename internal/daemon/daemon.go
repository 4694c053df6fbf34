// Package daemon owns the per-user rendezvous socket, the single-threaded
// accept loop, and signal-safe teardown. Grounded on the teacher's
// internal/daemon/daemon.go (PID-file lock acquired with
// syscall.Kill(pid, 0) as the liveness probe) and on
// other_examples/f5d7a361_davebream-mcpl__internal-daemon-daemon.go.go
// (stale-socket removal only after a failed dial probe, chmod of the socket
// after listen, one goroutine per accepted connection).
package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/cogdebug/cog-debug/internal/dispatch"
	"github.com/cogdebug/cog-debug/internal/driver"
	"github.com/cogdebug/cog-debug/internal/eventbus"
	"github.com/cogdebug/cog-debug/internal/session"
	"github.com/cogdebug/cog-debug/internal/wire"
)

const (
	maxRequestBytes = 64 * 1024
	pollTimeout     = 5 * time.Second
	idleTimeout     = 5 * time.Minute
)

// SocketPath returns the daemon's per-user rendezvous socket path.
func SocketPath(uid int) string {
	return fmt.Sprintf("/tmp/cog-debug-%d.sock", uid)
}

// DashboardSocketPath returns the dashboard's per-user rendezvous socket path.
func DashboardSocketPath(uid int) string {
	return fmt.Sprintf("/tmp/cog-debug-dashboard-%d.sock", uid)
}

// PIDPath returns the daemon's per-user PID file path.
func PIDPath(uid int) string {
	return fmt.Sprintf("/tmp/cog-debug-%d.pid", uid)
}

// signalState caches the paths the async-signal-safe handler removes. It is
// written exactly once, before the accept loop starts, and never mutated
// again — spec.md §5/§9 requires the signal handler to avoid allocation,
// logging, or locking, so nothing here may change after initSignalState.
var signalState struct {
	socketPath string
	pidPath    string
}

func initSignalState(socketPath, pidPath string) {
	signalState.socketPath = socketPath
	signalState.pidPath = pidPath
}

// Daemon is the process that owns the rendezvous socket and the live set of
// debug sessions reachable through it.
type Daemon struct {
	log        hclog.Logger
	uid        int
	socketPath string
	pidPath    string

	listener net.Listener
	sessions *session.Manager
	dispatch *dispatch.Dispatcher
	events   *eventbus.Emitter

	mu           sync.Mutex
	lastActivity time.Time
}

// New builds a Daemon bound to the given uid's socket paths. newDriver
// constructs a backend for a (kind) pair; production wires the real
// native/DAP backends (out of scope for this module), callers that only
// need the protocol surface can wire driver.Mock.
func New(uid int, newDriver dispatch.DriverFactory, log hclog.Logger) *Daemon {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	log = log.Named("daemon")

	events := eventbus.New(DashboardSocketPath(uid), log.Named("eventbus"))
	sessions := session.NewManager()
	return &Daemon{
		log:        log,
		uid:        uid,
		socketPath: SocketPath(uid),
		pidPath:    PIDPath(uid),
		sessions:   sessions,
		dispatch:   dispatch.New(sessions, newDriver, events, log.Named("dispatch")),
		events:     events,
	}
}

// Run binds the socket, writes the PID file, installs signal handlers, and
// serves connections until ctx is cancelled or the daemon decides to exit
// on its own (idle timeout with no live sessions).
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.bind(); err != nil {
		return err
	}
	defer d.teardown()

	if err := d.writePIDFile(); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	initSignalState(d.socketPath, d.pidPath)

	sigCh := make(chan os.Signal, 1)
	signal.Ignore(syscall.SIGPIPE)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-sigCh
		removeSignalState()
		os.Exit(0)
	}()

	// Opportunistic dashboard connect; a failed dial is silent per
	// spec.md §4.4.
	d.events.Connect()

	d.mu.Lock()
	d.lastActivity = time.Now()
	d.mu.Unlock()

	d.log.Info("listening", "socket", d.socketPath)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if tl, ok := d.listener.(*net.UnixListener); ok {
			tl.SetDeadline(time.Now().Add(pollTimeout))
		}

		conn, err := d.listener.Accept()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				// The 5s poll tick is also the only place a dropped dashboard
				// connection gets retried; Emit itself never redials.
				d.events.Reconnect()
				if d.shouldExitIdle() {
					d.log.Info("idle timeout, exiting")
					return nil
				}
				continue
			}
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			d.log.Error("accept", "error", err)
			continue
		}

		d.mu.Lock()
		d.lastActivity = time.Now()
		d.mu.Unlock()

		go d.handleConnection(conn)
	}
}

func (d *Daemon) shouldExitIdle() bool {
	d.mu.Lock()
	idleFor := time.Since(d.lastActivity)
	d.mu.Unlock()
	return idleFor >= idleTimeout && d.sessions.Count() == 0
}

// bind removes a stale socket file (only after confirming nothing answers a
// dial on it), listens, and chmods the socket to 0600.
func (d *Daemon) bind() error {
	if conn, err := net.DialTimeout("unix", d.socketPath, 200*time.Millisecond); err == nil {
		conn.Close()
		return fmt.Errorf("daemon already listening on %s", d.socketPath)
	}
	os.Remove(d.socketPath)

	l, err := net.Listen("unix", d.socketPath)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	if err := os.Chmod(d.socketPath, 0600); err != nil {
		l.Close()
		return fmt.Errorf("chmod socket: %w", err)
	}
	d.listener = l
	return nil
}

func (d *Daemon) writePIDFile() error {
	return os.WriteFile(d.pidPath, []byte(fmt.Sprintf("%d", os.Getpid())), 0600)
}

// teardown removes the socket and PID files and tears down every live
// session; deinit must not fail, per spec.md §4.2.
func (d *Daemon) teardown() {
	if d.listener != nil {
		d.listener.Close()
	}
	d.sessions.TeardownAll()
	os.Remove(d.socketPath)
	os.Remove(d.pidPath)
}

// handleConnection implements the single-request-per-connection design:
// read up to maxRequestBytes until newline or EOF, parse one {tool, args}
// object, dispatch, write exactly one response line. Run in its own
// goroutine per accepted connection so a debug_run blocked inside a driver
// never stalls Accept() or a concurrent debug_stop on another session.
func (d *Daemon) handleConnection(conn net.Conn) {
	defer conn.Close()

	// One byte past the limit is enough to tell an oversized request apart.
	reader := bufio.NewReaderSize(io.LimitReader(conn, maxRequestBytes+1), 4096)
	line, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		d.writeResponse(conn, wire.ErrResponse(wire.CodeParseError, "read error: "+err.Error()))
		return
	}
	if len(line) == 0 {
		return
	}
	if len(line) > maxRequestBytes {
		d.writeResponse(conn, wire.ErrResponse(wire.CodeInvalidRequest, "request too large"))
		return
	}

	var req wire.Request
	if err := json.Unmarshal(line, &req); err != nil {
		d.writeResponse(conn, wire.ErrResponse(wire.CodeParseError, "invalid JSON: "+err.Error()))
		return
	}
	if req.Tool == "" {
		d.writeResponse(conn, wire.ErrResponse(wire.CodeInvalidParams, "missing tool"))
		return
	}

	result, dErr := d.dispatch.Dispatch(context.Background(), req.Tool, req.Args)
	if dErr != nil {
		d.writeResponse(conn, wire.ErrResponse(dErr.Code, dErr.Message))
		return
	}
	d.writeResponse(conn, wire.OKResponse(result))
}

func (d *Daemon) writeResponse(conn net.Conn, resp wire.Response) {
	b, err := json.Marshal(resp)
	if err != nil {
		return
	}
	b = append(b, '\n')
	// A write failure here means the client already went away; dropped
	// per spec.md §7, there is no one left to report it to.
	_, _ = conn.Write(b)
}

// removeSignalState performs the async-signal-safe teardown: unlink the two
// paths cached once at startup. No allocation, logging, or locking.
func removeSignalState() {
	if signalState.socketPath != "" {
		syscall.Unlink(signalState.socketPath)
	}
	if signalState.pidPath != "" {
		syscall.Unlink(signalState.pidPath)
	}
}

// IsRunning reports whether a daemon appears to be alive for uid, using the
// PID-file + signal-0 liveness probe grounded on the teacher's
// internal/daemon/daemon.go IsLocked.
func IsRunning(uid int) bool {
	data, err := os.ReadFile(PIDPath(uid))
	if err != nil {
		return false
	}
	var pid int
	if _, err := fmt.Sscanf(string(data), "%d", &pid); err != nil {
		return false
	}
	return syscall.Kill(pid, 0) == nil
}

// MockDriverFactory is a DriverFactory that always returns an in-memory
// driver.Mock (Core plus GetPID, threads and stack trace). Exported for cmd/cog-debugd callers that want to run the
// protocol surface without a real native/DAP backend wired in.
func MockDriverFactory(kind driver.Kind) (driver.Driver, error) {
	return driver.NewMock(kind), nil
}
