// Package session holds the live set of debug sessions. It is the single
// owner of session ids and driver handles, grounded on the teacher's
// map-of-processes pattern in internal/daemon/daemon.go but reshaped around
// a monotonic counter (spec.md's "ids are never reused") instead of a
// timestamp-derived id.
package session

import (
	"fmt"
	"sync"

	"github.com/cogdebug/cog-debug/internal/driver"
)

// Status is a session's lifecycle state.
type Status string

const (
	StatusLaunching  Status = "launching"
	StatusRunning    Status = "running"
	StatusStopped    Status = "stopped"
	StatusTerminated Status = "terminated"
)

// Session is the id, status, and driver handle bound for one debuggee.
type Session struct {
	mu      sync.RWMutex
	id      string
	status  Status
	drv     driver.Driver
	created int
}

// ID returns the session's stable identifier.
func (s *Session) ID() string { return s.id }

// Driver returns the bound driver handle.
func (s *Session) Driver() driver.Driver { return s.drv }

// Status returns the current lifecycle status.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// SetStatus updates the lifecycle status.
func (s *Session) SetStatus(status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

// Info is an immutable snapshot of a session, returned by Manager.List.
type Info struct {
	ID     string
	Status Status
	Kind   driver.Kind
}

// Manager is the exclusive owner of the session id space and of every
// driver handle bound to a session. Operations are safe for concurrent use:
// the daemon handles each accepted connection in its own goroutine, so
// requests on different connections (a blocked debug_run and a debug_stop,
// for example) reach the manager at the same time.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	nextID   int
}

// NewManager creates an empty session manager. Ids are allocated starting
// at 1 and are never reused for the lifetime of the Manager (i.e. for the
// lifetime of one daemon process).
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		nextID:   1,
	}
}

// Create allocates the next session id, binds drv to it, and returns the
// new session in the "launching" status. The id is allocated unconditionally
// from the monotonic counter, so two sessions never collide and a destroyed
// session's number is never handed out again.
func (m *Manager) Create(drv driver.Driver) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := fmt.Sprintf("session-%d", m.nextID)
	m.nextID++

	s := &Session{
		id:      id,
		status:  StatusLaunching,
		drv:     drv,
		created: m.nextID - 1,
	}
	m.sessions[id] = s
	return s
}

// Get returns the session for id, or nil if unknown.
func (m *Manager) Get(id string) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[id]
}

// Destroy removes the session, deinitializes its driver, and reports
// whether the id existed. Deinit is invoked without holding the manager's
// lock so a slow or misbehaving driver cannot stall unrelated lookups.
func (m *Manager) Destroy(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return false
	}
	// deinit must not fail per spec; errors are swallowed by design, there
	// is no caller left to report them to once the session is gone.
	_ = s.drv.Deinit()
	return true
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// List returns a snapshot of every live session, ordered by creation order.
func (m *Manager) List() []Info {
	m.mu.RLock()
	defer m.mu.RUnlock()

	type entry struct {
		Info
		created int
	}
	entries := make([]entry, 0, len(m.sessions))
	for _, s := range m.sessions {
		entries = append(entries, entry{
			Info:    Info{ID: s.id, Status: s.Status(), Kind: s.drv.Kind()},
			created: s.created,
		})
	}
	// Numeric creation order, not lexical id order ("session-10" < "session-9"
	// as strings but must sort after it); a handful of live sessions makes
	// insertion sort plenty fast.
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entries[j].created < entries[j-1].created; j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}
	out := make([]Info, len(entries))
	for i, e := range entries {
		out[i] = e.Info
	}
	return out
}

// TeardownAll destroys every session, in arbitrary order, swallowing deinit
// errors per spec ("deinit must not fail"). Used on daemon shutdown.
func (m *Manager) TeardownAll() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		m.Destroy(id)
	}
}
