package dashboard

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gen2brain/beeep"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/term"
)

const repaintInterval = 100 * time.Millisecond

// message is the single union type fed into Dashboard's select loop. Exactly
// one goroutine source produces each variant; the loop itself is the only
// place that ever touches State, per spec.md §4.6's ownership rule.
type message struct {
	eventLine []byte
	key       byte
	resize    bool
	tick      bool
}

// Dashboard owns the rendezvous socket, the terminal, and the State that
// every connected daemon's events and every keypress ultimately mutate.
type Dashboard struct {
	log        hclog.Logger
	socketPath string

	state *State
	focus Pane
}

// New builds a Dashboard listening on socketPath once Run is called.
func New(socketPath string, log hclog.Logger) *Dashboard {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Dashboard{
		log:        log.Named("dashboard"),
		socketPath: socketPath,
		state:      NewState(nil),
	}
}

// Run binds the dashboard socket, puts the controlling terminal into raw
// mode, and drives the render loop until ctx is cancelled or the user quits.
// Bind failure reports plainly; spec.md §9 leaves "is another dashboard
// already running" as an open question the daemon doesn't probe for, so no
// liveness check precedes the bind attempt here either.
func (d *Dashboard) Run(ctx context.Context) error {
	l, err := net.Listen("unix", d.socketPath)
	if err != nil {
		return fmt.Errorf("another dashboard is already running: %w", err)
	}
	defer l.Close()
	defer os.Remove(d.socketPath)

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		d.log.Warn("could not enter raw mode, input handling degraded", "error", err)
	} else {
		defer term.Restore(fd, oldState)
	}

	const hideCursor, showCursor = "\x1B[?25l", "\x1B[?25h"
	os.Stdout.WriteString(hideCursor)
	defer os.Stdout.WriteString(showCursor)

	msgs := make(chan message, 64)

	go d.acceptLoop(ctx, l, msgs)
	go d.stdinLoop(ctx, msgs)
	go d.tickLoop(ctx, msgs)
	go d.resizeLoop(ctx, msgs)

	return d.eventLoop(ctx, msgs)
}

func (d *Dashboard) acceptLoop(ctx context.Context, l net.Listener, msgs chan<- message) {
	for {
		conn, err := l.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				d.log.Error("accept", "error", err)
				return
			}
		}
		go d.clientLoop(ctx, conn, msgs)
	}
}

// clientLoop reads newline-delimited event frames from one connected daemon
// through its own clientBufferSize reader, so a partial line from one client
// never mixes with another's, and forwards each raw line for the event loop
// to decode. A line longer than the buffer is still delivered whole, and a
// malformed line is forwarded like any other (the event loop logs it); only
// a read error or EOF ends the connection.
func (d *Dashboard) clientLoop(ctx context.Context, conn net.Conn, msgs chan<- message) {
	defer conn.Close()
	reader := bufio.NewReaderSize(conn, clientBufferSize)
	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			cp := make([]byte, len(line))
			copy(cp, line)
			select {
			case msgs <- message{eventLine: cp}:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			if err != io.EOF {
				d.log.Debug("client read error", "error", err)
			}
			return
		}
	}
}

// escapeTimeout bounds how long stdinLoop waits for the rest of an escape
// sequence after seeing a lone ESC byte, so a bare Escape keypress (which
// never sends a follow-up byte) doesn't wedge raw stdin reading.
const escapeTimeout = 50 * time.Millisecond

// stdinLoop reads raw bytes off a helper goroutine and assembles arrow-key
// escape sequences (\x1b[A, \x1b[B) before a byte ever reaches handleKey —
// otherwise each half-decoded byte of an arrow key would be misread as a
// plain keystroke (the '[' of \x1b[A collides with the session-switch
// binding).
func (d *Dashboard) stdinLoop(ctx context.Context, msgs chan<- message) {
	raw := make(chan byte)
	go func() {
		buf := make([]byte, 1)
		for {
			n, err := os.Stdin.Read(buf)
			if err != nil {
				close(raw)
				return
			}
			if n == 0 {
				continue
			}
			select {
			case raw <- buf[0]:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case b, ok := <-raw:
			if !ok {
				return
			}
			if b == 0x1b {
				d.readEscapeKey(ctx, raw, msgs)
				continue
			}
			select {
			case msgs <- message{key: b}:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// readEscapeKey consumes the bytes following an ESC, within escapeTimeout,
// and forwards the scroll keystroke equivalent to a recognized arrow-key
// sequence (up -> 'k', down -> 'j'). A bare ESC or any other sequence is
// swallowed here rather than falling through to a literal key binding.
func (d *Dashboard) readEscapeKey(ctx context.Context, raw <-chan byte, msgs chan<- message) {
	select {
	case v, ok := <-raw:
		if !ok || v != '[' {
			return
		}
	case <-time.After(escapeTimeout):
		return
	case <-ctx.Done():
		return
	}

	select {
	case v, ok := <-raw:
		if !ok {
			return
		}
		var key byte
		switch v {
		case 'A':
			key = 'k'
		case 'B':
			key = 'j'
		default:
			return
		}
		select {
		case msgs <- message{key: key}:
		case <-ctx.Done():
		}
	case <-time.After(escapeTimeout):
	case <-ctx.Done():
	}
}

func (d *Dashboard) tickLoop(ctx context.Context, msgs chan<- message) {
	t := time.NewTicker(repaintInterval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			select {
			case msgs <- message{tick: true}:
			default:
				// Drop a repaint if the loop is busy; the next tick catches up.
			}
		case <-ctx.Done():
			return
		}
	}
}

func (d *Dashboard) resizeLoop(ctx context.Context, msgs chan<- message) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGWINCH)
	defer signal.Stop(sigCh)
	for {
		select {
		case <-sigCh:
			select {
			case msgs <- message{resize: true}:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// eventLoop is the sole consumer of msgs and therefore the sole mutator of
// d.state; every other goroutine here only ever produces.
func (d *Dashboard) eventLoop(ctx context.Context, msgs <-chan message) error {
	d.repaint()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m := <-msgs:
			switch {
			case m.eventLine != nil:
				d.handleEventLine(m.eventLine)
			case m.key != 0:
				if quit := d.handleKey(m.key); quit {
					return nil
				}
			case m.resize, m.tick:
				// Both just trigger a repaint at current dimensions.
			}
			d.repaint()
		}
	}
}

func (d *Dashboard) handleEventLine(line []byte) {
	before := d.state.Focused()
	var beforeReason string
	if before != nil {
		beforeReason = before.StopReason
	}

	d.state.ApplyEventLine(line)

	after := d.state.Focused()
	if after != nil && after.Status == "stopped" && after.StopReason != beforeReason {
		if after.StopReason == "breakpoint" || after.StopReason == "exception" {
			notifyStop(after)
		}
	}
}

func notifyStop(v *SessionView) {
	title := fmt.Sprintf("%s stopped", v.ID)
	body := v.StopReason
	if v.Location != nil {
		body = fmt.Sprintf("%s at %s:%d", v.StopReason, v.Location.File, v.Location.Line)
	}
	_ = beeep.Notify(title, body, "")
}

// handleKey implements spec.md §4.6's keyboard contract and reports whether
// the dashboard should quit.
func (d *Dashboard) handleKey(k byte) bool {
	switch k {
	case 'q', 0x03: // Ctrl-C
		return true
	case '\t':
		d.focus = d.focus.next()
	case '[':
		d.state.FocusPrev()
	case ']':
		d.state.FocusNext()
	case 'j':
		d.scroll(1)
	case 'k':
		d.scroll(-1)
	}
	return false
}

func (d *Dashboard) scroll(delta int) {
	v := d.state.Focused()
	if v == nil {
		return
	}
	switch d.focus {
	case PaneSource:
		v.Source.Scroll = clampAdd(v.Source.Scroll, delta, len(v.Source.Lines), 20)
	case PaneSidebar:
		v.SidebarScroll = clampAdd(v.SidebarScroll, delta, SidebarItemCount(v), 20)
	case PaneLog:
		// The log pane always shows its full (≤16-entry) contents; nothing to scroll.
	}
}

func clampAdd(offset, delta, content, visible int) int {
	return ClampScroll(offset+delta, content, visible)
}

func (d *Dashboard) repaint() {
	width, height, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		width, height = 80, 24
	}
	frame := Render(d.state, d.focus, width, height)

	var out []byte
	out = append(out, "\x1B[H"...)
	out = append(out, strings.ReplaceAll(frame, "\n", "\x1B[K\n")...)
	out = append(out, "\x1B[K\x1B[J"...)
	os.Stdout.Write(out)
}
