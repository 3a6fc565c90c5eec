package signal

import (
	"testing"
	"time"
)

func TestCallRateLimiter(t *testing.T) {
	rl := NewCallRateLimiter(2, 50*time.Millisecond)

	if !rl.Allow("alice") || !rl.Allow("alice") {
		t.Fatal("first two attempts should pass")
	}
	if rl.Allow("alice") {
		t.Fatal("third attempt inside the window should be blocked")
	}
	if !rl.Allow("bob") {
		t.Fatal("limits are per identity")
	}

	time.Sleep(60 * time.Millisecond)
	if !rl.Allow("alice") {
		t.Fatal("window expired, attempt should pass again")
	}
}
