package core

// Frame is one encoded wire message.
type Frame []byte

// SessionID identifies one transport-level connection, independent of the
// user identity it may or may not resolve to.
type SessionID string

// SignalConnection abstracts a client's messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	// TrySend queues a frame without blocking. A full buffer or a closed
	// connection drops the frame; delivery is best-effort.
	TrySend(Frame) error
	Close()
}
