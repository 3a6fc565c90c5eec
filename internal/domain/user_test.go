package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestParseUserID(t *testing.T) {
	if _, err := ParseUserID("alice"); err != nil {
		t.Fatal(err)
	}
	if _, err := ParseUserID(""); !errors.Is(err, ErrUserIDEmpty) {
		t.Fatalf("err = %v, want ErrUserIDEmpty", err)
	}
	// The browser client sends the literal string "undefined" when no
	// user is logged in yet.
	if _, err := ParseUserID("undefined"); !errors.Is(err, ErrUserIDEmpty) {
		t.Fatalf("err = %v, want ErrUserIDEmpty", err)
	}
	if _, err := ParseUserID(strings.Repeat("x", MaxUserIDLen+1)); !errors.Is(err, ErrUserIDTooLong) {
		t.Fatalf("err = %v, want ErrUserIDTooLong", err)
	}
}

func TestResolvable(t *testing.T) {
	if !UserID("alice").Resolvable() {
		t.Fatal("alice should be resolvable")
	}
	for _, id := range []UserID{"", "undefined"} {
		if id.Resolvable() {
			t.Fatalf("%q must not be resolvable", id)
		}
	}
}

func TestParseCallType(t *testing.T) {
	for _, raw := range []string{"audio", "video"} {
		if _, err := ParseCallType(raw); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := ParseCallType("hologram"); !errors.Is(err, ErrUnknownCallType) {
		t.Fatalf("err = %v, want ErrUnknownCallType", err)
	}
}
