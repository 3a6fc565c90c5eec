package app

import (
	"sync"
	"testing"

	"github.com/nirapulse/relay/internal/core"
	"github.com/nirapulse/relay/internal/domain"
)

type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
	closed bool
}

func (f *fakeConn) TrySend(fr core.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, fr)
	return nil
}

func (f *fakeConn) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

func (f *fakeConn) received() []core.Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]core.Frame, len(f.frames))
	copy(out, f.frames)
	return out
}

func snapshotSet(r *Registry) map[domain.UserID]bool {
	set := make(map[domain.UserID]bool)
	for _, id := range r.Snapshot() {
		set[id] = true
	}
	return set
}

func TestSnapshotTracksLatestOperation(t *testing.T) {
	r := NewRegistry()
	a, b := &fakeConn{}, &fakeConn{}

	r.Register("alice", a)
	r.Register("bob", b)
	r.Unregister("alice", a)
	r.Register("alice", a)
	r.Unregister("bob", b)

	set := snapshotSet(r)
	if len(set) != 1 || !set["alice"] {
		t.Fatalf("snapshot = %v, want exactly {alice}", set)
	}
}

func TestLastConnectWins(t *testing.T) {
	r := NewRegistry()
	first, second := &fakeConn{}, &fakeConn{}

	r.Register("alice", first)
	r.Register("alice", second)

	conn, ok := r.Lookup("alice")
	if !ok {
		t.Fatal("alice should be registered")
	}
	if conn != core.SignalConnection(second) {
		t.Fatal("lookup returned the replaced handle")
	}
	if len(r.Snapshot()) != 1 {
		t.Fatalf("snapshot has %d entries, want 1", len(r.Snapshot()))
	}
}

func TestStaleUnregisterDoesNotEvictSuccessor(t *testing.T) {
	r := NewRegistry()
	first, second := &fakeConn{}, &fakeConn{}

	r.Register("alice", first)
	r.Register("alice", second)
	// The replaced session's disconnect arrives late.
	r.Unregister("alice", first)

	if _, ok := r.Lookup("alice"); !ok {
		t.Fatal("late disconnect from the old session evicted the new one")
	}
	r.Unregister("alice", second)
	if _, ok := r.Lookup("alice"); ok {
		t.Fatal("alice should be gone after her own session unregistered")
	}
}

func TestUnregisterAbsentIsNoop(t *testing.T) {
	r := NewRegistry()
	r.Unregister("ghost", nil)
	r.Unregister("ghost", &fakeConn{})
	if len(r.Snapshot()) != 0 {
		t.Fatal("registry should still be empty")
	}
}

func TestUnresolvableIdentityNeverRegistered(t *testing.T) {
	r := NewRegistry()
	r.Register("", &fakeConn{})
	r.Register("undefined", &fakeConn{})

	if len(r.Snapshot()) != 0 {
		t.Fatalf("snapshot = %v, want empty", r.Snapshot())
	}
	if _, ok := r.Lookup("undefined"); ok {
		t.Fatal("undefined must not be a directed-event target")
	}
}

func TestAnonymousConnectionStillCounted(t *testing.T) {
	r := NewRegistry()
	anon := &fakeConn{}
	r.Attach("sid-1", anon)

	if len(r.Connections()) != 1 {
		t.Fatal("transport connection should be tracked")
	}
	if len(r.Snapshot()) != 0 {
		t.Fatal("anonymous connection must not appear in presence")
	}
	r.Detach("sid-1")
	if len(r.Connections()) != 0 {
		t.Fatal("detach should drop the connection")
	}
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	ids := []domain.UserID{"a", "b", "c", "d"}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				id := ids[(n+j)%len(ids)]
				c := &fakeConn{}
				r.Register(id, c)
				r.Lookup(id)
				r.Snapshot()
				r.Unregister(id, c)
			}
		}(i)
	}
	wg.Wait()
}
