package dashboard

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"

	"github.com/cogdebug/cog-debug/internal/wire"
)

// SourceLoader reads the full contents of a source file. The concrete
// reader is an external collaborator per spec.md §1 ("the concrete
// source-file reader used by the dashboard... only the loading contract
// matters"); State's default is a plain os.ReadFile wrapper.
type SourceLoader func(path string) ([]byte, error)

// State is the dashboard's entire mutable model. Per spec.md §3's
// ownership rule, nothing outside the event loop that owns a State may
// mutate it: every exported method here is called only from that loop.
type State struct {
	order   []string // session ids, in creation/event order
	views   map[string]*SessionView
	focused string

	GlobalLog RingLog

	loadSource SourceLoader
}

// NewState creates an empty dashboard model.
func NewState(loadSource SourceLoader) *State {
	if loadSource == nil {
		loadSource = os.ReadFile
	}
	return &State{
		views:      make(map[string]*SessionView),
		loadSource: loadSource,
	}
}

// Sessions returns the live views in arrival order.
func (s *State) Sessions() []*SessionView {
	out := make([]*SessionView, 0, len(s.order))
	for _, id := range s.order {
		if v, ok := s.views[id]; ok {
			out = append(out, v)
		}
	}
	return out
}

// Focused returns the currently focused view, or nil if there are none.
func (s *State) Focused() *SessionView {
	if s.focused == "" {
		return nil
	}
	return s.views[s.focused]
}

// FocusNext / FocusPrev cycle focus among live sessions in arrival order,
// wrapping around; scroll state of the newly-focused view is reset per
// spec.md §4.6's `[`/`]` behavior.
func (s *State) FocusNext() { s.shiftFocus(1) }
func (s *State) FocusPrev() { s.shiftFocus(-1) }

func (s *State) shiftFocus(delta int) {
	ids := s.order
	if len(ids) == 0 {
		s.focused = ""
		return
	}
	idx := 0
	for i, id := range ids {
		if id == s.focused {
			idx = i
			break
		}
	}
	idx = (idx + delta + len(ids)) % len(ids)
	s.focused = ids[idx]
	if v := s.views[s.focused]; v != nil {
		v.Source.Scroll = 0
		v.SidebarScroll = 0
		recenterSource(&v.Source)
	}
}

// ApplyEventLine decodes one line from a client's socket, extracting the
// `type` field with gjson before a typed unmarshal so an unknown type is
// ignored without a two-pass decode (spec.md §4.6). Malformed JSON is
// recorded as a single global log entry rather than surfaced as an error
// to the caller — the dashboard's event stream has no one to answer back.
func (s *State) ApplyEventLine(line []byte) {
	if !gjson.ValidBytes(line) {
		s.GlobalLog.Push(LogEntry{Message: "invalid JSON from server", IsError: true})
		return
	}
	typ := gjson.GetBytes(line, "type").String()

	var ev wire.Event
	if err := json.Unmarshal(line, &ev); err != nil {
		s.GlobalLog.Push(LogEntry{Message: "invalid JSON from server", IsError: true})
		return
	}
	ev.Type = wire.EventType(typ)
	s.ApplyEvent(ev)
}

// ApplyEvent is the single mutator of dashboard state, implementing the
// transitions of spec.md §4.6. It is total: any wire.Event value, including
// one with an unrecognized Type, is handled without panicking.
func (s *State) ApplyEvent(ev wire.Event) {
	switch ev.Type {
	case wire.EventLaunch:
		s.applyLaunch(ev)
	case wire.EventBreakpoint:
		s.applyBreakpoint(ev)
	case wire.EventStop:
		s.applyStop(ev)
	case wire.EventRun:
		s.applyRun(ev)
	case wire.EventInspect:
		s.appendLog(ev.SessionID, LogEntry{Tool: "inspect", Message: ev.Message})
	case wire.EventActivity:
		s.appendLog(ev.SessionID, LogEntry{Tool: ev.Tool, Message: ev.Message})
	case wire.EventSessionEnd:
		s.applySessionEnd(ev)
	case wire.EventError:
		s.appendLog(ev.SessionID, LogEntry{Tool: ev.Method, Message: ev.Message, IsError: true})
	default:
		// Unknown type values are ignored per spec.md §4.6.
	}
}

func (s *State) applyLaunch(ev wire.Event) {
	if ev.SessionID == "" {
		return
	}
	if _, exists := s.views[ev.SessionID]; exists {
		return
	}
	if len(s.order) >= maxSessions {
		// Bounded storage; overflow is silent truncation per spec.md §9.
		return
	}
	v := &SessionView{ID: ev.SessionID, Driver: ev.Driver, Status: "launching"}
	s.views[ev.SessionID] = v
	s.order = append(s.order, ev.SessionID)
	if s.focused == "" {
		s.focused = ev.SessionID
	}
}

func (s *State) applyBreakpoint(ev wire.Event) {
	v := s.views[ev.SessionID]
	if v == nil || ev.BP == nil {
		return
	}
	switch ev.Action {
	case "set":
		v.Breakpoints = append(v.Breakpoints, Breakpoint{
			ID: ev.BP.ID, File: ev.BP.File, Line: ev.BP.Line,
			Verified: ev.BP.Verified, Condition: ev.BP.Condition,
		})
	case "remove":
		out := v.Breakpoints[:0]
		for _, bp := range v.Breakpoints {
			if bp.ID != ev.BP.ID {
				out = append(out, bp)
			}
		}
		v.Breakpoints = out
	}
}

func (s *State) applyStop(ev wire.Event) {
	v := s.views[ev.SessionID]
	if v == nil {
		return
	}
	v.Status = "stopped"
	v.StopReason = ev.Reason

	v.Stack = v.Stack[:0]
	for _, f := range ev.StackTrace {
		v.Stack = append(v.Stack, Frame{Index: f.Index, Function: f.Function, File: f.File, Line: f.Line})
	}
	v.Locals = v.Locals[:0]
	for _, l := range ev.Locals {
		v.Locals = append(v.Locals, Variable{Name: l.Name, Value: l.Value, Type: l.Type})
	}

	if ev.Location != nil {
		v.Location = &Frame{File: ev.Location.File, Line: ev.Location.Line, Function: ev.Location.Function}
		if filepath.IsAbs(ev.Location.File) {
			s.loadSourceWindow(v, ev.Location.File, ev.Location.Line)
		}
	}
}

func (s *State) applyRun(ev wire.Event) {
	v := s.views[ev.SessionID]
	if v == nil {
		return
	}
	v.Status = "running"
}

func (s *State) applySessionEnd(ev wire.Event) {
	delete(s.views, ev.SessionID)
	for i, id := range s.order {
		if id == ev.SessionID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	if s.focused == ev.SessionID {
		s.focused = ""
		if len(s.order) > 0 {
			s.focused = s.order[0]
		}
	}
}

func (s *State) appendLog(sessionID string, e LogEntry) {
	s.GlobalLog.Push(e)
	if v := s.views[sessionID]; v != nil {
		v.Log.Push(e)
	}
}

// loadSourceWindow reads path, builds a ±sourceRadius window around line,
// and centers the scroll so the current line sits near the vertical
// midpoint. Binary safety is not required; overlong lines are truncated to
// maxLineBytes (spec.md §4.6).
func (s *State) loadSourceWindow(v *SessionView, path string, line int) {
	data, err := s.loadSource(path)
	if err != nil {
		return
	}

	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		text := scanner.Text()
		if len(text) > maxLineBytes {
			text = text[:maxLineBytes]
		}
		lines = append(lines, text)
	}

	lo := line - sourceRadius
	if lo < 1 {
		lo = 1
	}
	hi := lo + sourceMaxLines - 1
	if hi > len(lines) {
		hi = len(lines)
	}

	window := make([]SourceLine, 0, hi-lo+1)
	currentIdx := -1
	for n := lo; n <= hi; n++ {
		if n-1 < 0 || n-1 >= len(lines) {
			continue
		}
		sl := SourceLine{LineNum: n, Text: lines[n-1], Current: n == line}
		if sl.Current {
			currentIdx = len(window)
		}
		window = append(window, sl)
	}

	v.Source = SourceWindow{Path: path, Lines: window, CurrentIdx: currentIdx}
	recenterSource(&v.Source)
}

// recenterSource scrolls so CurrentIdx sits near the vertical midpoint of a
// visibleRows-tall viewport. visibleRows is resolved at render time, so
// this computes a default assuming a 20-row viewport; render clamps the
// final value against the real viewport height.
func recenterSource(win *SourceWindow) {
	if win.CurrentIdx < 0 {
		win.Scroll = 0
		return
	}
	const assumedVisible = 20
	half := assumedVisible / 2
	scroll := win.CurrentIdx - half
	if scroll < 0 {
		scroll = 0
	}
	maxScroll := len(win.Lines) - assumedVisible
	if maxScroll < 0 {
		maxScroll = 0
	}
	if scroll > maxScroll {
		scroll = maxScroll
	}
	win.Scroll = scroll
}

// ClampScroll enforces spec.md §4.6's `max = max(0, content - visible)`.
func ClampScroll(offset, content, visible int) int {
	max := content - visible
	if max < 0 {
		max = 0
	}
	if offset > max {
		offset = max
	}
	if offset < 0 {
		offset = 0
	}
	return offset
}

// SidebarItemCount returns the number of virtual items in the sidebar for
// v: frames, then (if present) a "Locals" header + variables, then (if
// present) a "Breakpoints" header + breakpoints.
func SidebarItemCount(v *SessionView) int {
	n := len(v.Stack)
	if len(v.Locals) > 0 {
		n += 1 + len(v.Locals)
	}
	if len(v.Breakpoints) > 0 {
		n += 1 + len(v.Breakpoints)
	}
	return n
}
