package app

import (
	"encoding/json"
	"testing"

	"github.com/nirapulse/relay/internal/core"
)

func TestForwardToUnregisteredIsSilent(t *testing.T) {
	d := NewDispatcher(NewRegistry())

	done := make(chan bool, 1)
	go func() {
		done <- d.Forward("carol", core.Frame(`{"type":"call:initiate","to":"carol"}`))
	}()
	if delivered := <-done; delivered {
		t.Fatal("forward to an unregistered identity reported delivery")
	}
}

func TestForwardDeliversOnlyToTarget(t *testing.T) {
	reg := NewRegistry()
	d := NewDispatcher(reg)
	alice, bob, carol := &fakeConn{}, &fakeConn{}, &fakeConn{}

	reg.Register("alice", alice)
	reg.Register("bob", bob)
	// carol never registers; her connection must see nothing.

	frame := core.Frame(`{"type":"call:initiate","to":"bob","from":"alice","callType":"video"}`)
	if !d.Forward("bob", frame) {
		t.Fatal("bob is online, forward should find him")
	}

	if got := bob.received(); len(got) != 1 || string(got[0]) != string(frame) {
		t.Fatalf("bob received %q, want the frame verbatim", got)
	}
	if len(alice.received()) != 0 {
		t.Fatal("directed event leaked to the sender")
	}
	if len(carol.received()) != 0 {
		t.Fatal("directed event leaked to an unregistered connection")
	}
}

func TestForwardPreservesSenderOrder(t *testing.T) {
	reg := NewRegistry()
	d := NewDispatcher(reg)
	bob := &fakeConn{}
	reg.Register("bob", bob)

	first := core.Frame(`{"type":"call:ice-candidate","to":"bob","candidate":{"candidate":"one"}}`)
	second := core.Frame(`{"type":"call:ice-candidate","to":"bob","candidate":{"candidate":"two"}}`)
	d.Forward("bob", first)
	d.Forward("bob", second)

	got := bob.received()
	if len(got) != 2 {
		t.Fatalf("bob received %d frames, want 2", len(got))
	}
	if string(got[0]) != string(first) || string(got[1]) != string(second) {
		t.Fatal("frames arrived out of order")
	}
}

func TestBroadcastPresenceReachesEveryConnection(t *testing.T) {
	reg := NewRegistry()
	d := NewDispatcher(reg)

	alice, anon := &fakeConn{}, &fakeConn{}
	reg.Attach("sid-a", alice)
	reg.Register("alice", alice)
	reg.Attach("sid-x", anon)

	d.BroadcastPresence()

	for name, c := range map[string]*fakeConn{"alice": alice, "anon": anon} {
		frames := c.received()
		if len(frames) != 1 {
			t.Fatalf("%s received %d frames, want 1", name, len(frames))
		}
		var ev core.OnlineUsers
		if err := json.Unmarshal(frames[0], &ev); err != nil {
			t.Fatalf("%s got a bad frame: %v", name, err)
		}
		if ev.Type != core.EventOnlineUsers {
			t.Fatalf("type = %q", ev.Type)
		}
		if len(ev.Users) != 1 || ev.Users[0] != "alice" {
			t.Fatalf("users = %v, want [alice] only", ev.Users)
		}
	}
}

func TestNotifierReportsReachability(t *testing.T) {
	reg := NewRegistry()
	n := NewNotifier(NewDispatcher(reg))
	bob := &fakeConn{}
	reg.Register("bob", bob)

	record := json.RawMessage(`{"text":"hi"}`)
	if !n.NewMessage("bob", record) {
		t.Fatal("bob is online, message should be handed off")
	}
	if n.NewMessage("offline-guy", record) {
		t.Fatal("offline target must be reported undelivered")
	}

	frames := bob.received()
	if len(frames) != 1 {
		t.Fatalf("bob received %d frames, want 1", len(frames))
	}
	var ev core.MessageEvent
	if err := json.Unmarshal(frames[0], &ev); err != nil {
		t.Fatal(err)
	}
	if ev.Type != core.EventNewMessage || string(ev.Message) != `{"text":"hi"}` {
		t.Fatalf("unexpected notification: %+v", ev)
	}
}

func TestNotifierFieldNamesPerEvent(t *testing.T) {
	reg := NewRegistry()
	n := NewNotifier(NewDispatcher(reg))
	bob := &fakeConn{}
	reg.Register("bob", bob)

	n.NewMessage("bob", json.RawMessage(`{"text":"hi"}`))
	n.FriendRequestReceived("bob", json.RawMessage(`{"from":"alice"}`))
	n.FriendRequestAccepted("bob", json.RawMessage(`{"_id":"alice"}`))

	frames := bob.received()
	if len(frames) != 3 {
		t.Fatalf("bob received %d frames, want 3", len(frames))
	}
	wantKeys := []string{"message", "request", "acceptor"}
	for i, frame := range frames {
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(frame, &raw); err != nil {
			t.Fatal(err)
		}
		if _, ok := raw[wantKeys[i]]; !ok {
			t.Fatalf("frame %d = %s, want %q field", i, frame, wantKeys[i])
		}
	}
}
