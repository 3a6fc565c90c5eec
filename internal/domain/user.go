// Package domain contains entity without logic, just meta-data
package domain

import "errors"

const MaxUserIDLen = 36

var (
	ErrUserIDEmpty   = errors.New("user id empty")
	ErrUserIDTooLong = errors.New("user id too long")
)

// UserID is the stable per-login identity used for presence and routing.
type UserID string

// undefinedID is what the browser client puts in the query string when the
// auth context has no user yet. It must never become a presence entry.
const undefinedID = "undefined"

// ParseUserID validates the identity received on connect.
func ParseUserID(raw string) (UserID, error) {
	if raw == "" || raw == undefinedID {
		return "", ErrUserIDEmpty
	}
	if len(raw) > MaxUserIDLen {
		return "", ErrUserIDTooLong
	}
	return UserID(raw), nil
}

// Resolvable reports whether the identity may appear in presence broadcasts
// and be a directed-event target.
func (id UserID) Resolvable() bool {
	return id != "" && id != undefinedID && len(id) <= MaxUserIDLen
}

type User struct {
	ID       UserID `json:"id"`
	Username string `json:"username"`
}
