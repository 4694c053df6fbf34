package session

import (
	"testing"

	"github.com/cogdebug/cog-debug/internal/driver"
)

func TestCreateIDsAreMonotoneAndUnique(t *testing.T) {
	m := NewManager()
	const n = 5
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		s := m.Create(driver.NewMock(driver.KindNative))
		ids = append(ids, s.ID())
	}

	want := []string{"session-1", "session-2", "session-3", "session-4", "session-5"}
	for i, id := range ids {
		if id != want[i] {
			t.Fatalf("id %d = %q, want %q", i, id, want[i])
		}
	}
}

func TestDestroyUnknownIsFalse(t *testing.T) {
	m := NewManager()
	if m.Destroy("session-999") {
		t.Fatal("destroying an unknown id should report false")
	}
}

func TestDestroyCallsDeinitAndRemovesEntry(t *testing.T) {
	m := NewManager()
	mock := driver.NewMock(driver.KindNative)
	s := m.Create(mock)

	if !m.Destroy(s.ID()) {
		t.Fatal("destroy of a live session should report true")
	}
	if m.Get(s.ID()) != nil {
		t.Fatal("destroyed session should no longer be gettable")
	}
	if !mock.Deinited() {
		t.Fatal("destroy should have called driver.Deinit")
	}
}

func TestIDsNeverReused(t *testing.T) {
	m := NewManager()
	s1 := m.Create(driver.NewMock(driver.KindNative))
	m.Destroy(s1.ID())
	s2 := m.Create(driver.NewMock(driver.KindNative))

	if s1.ID() == s2.ID() {
		t.Fatalf("ids were reused: %q", s1.ID())
	}
	if s2.ID() != "session-2" {
		t.Fatalf("next id after destroying session-1 = %q, want session-2", s2.ID())
	}
}

func TestListOrderedByCreation(t *testing.T) {
	m := NewManager()
	for i := 0; i < 12; i++ {
		m.Create(driver.NewMock(driver.KindNative))
	}

	list := m.List()
	if len(list) != 12 {
		t.Fatalf("count = %d, want 12", len(list))
	}
	for i, info := range list {
		want := "session-" + itoa(i+1)
		if info.ID != want {
			t.Fatalf("list[%d].ID = %q, want %q (numeric order, not lexical)", i, info.ID, want)
		}
	}
}

func TestCountAndGet(t *testing.T) {
	m := NewManager()
	if m.Count() != 0 {
		t.Fatalf("initial count = %d, want 0", m.Count())
	}
	s := m.Create(driver.NewMock(driver.KindDAP))
	if m.Count() != 1 {
		t.Fatalf("count after create = %d, want 1", m.Count())
	}
	if got := m.Get(s.ID()); got != s {
		t.Fatal("Get should return the same session created")
	}
	if m.Get("session-unknown") != nil {
		t.Fatal("Get of unknown id should return nil")
	}
}

func TestTeardownAllDestroysEverySession(t *testing.T) {
	m := NewManager()
	mocks := make([]*driver.Mock, 0, 3)
	for i := 0; i < 3; i++ {
		mock := driver.NewMock(driver.KindNative)
		mocks = append(mocks, mock)
		m.Create(mock)
	}

	m.TeardownAll()

	if m.Count() != 0 {
		t.Fatalf("count after teardown = %d, want 0", m.Count())
	}
	for i, mock := range mocks {
		if !mock.Deinited() {
			t.Fatalf("mock %d was not deinited on teardown", i)
		}
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
