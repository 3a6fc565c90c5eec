package call

import "github.com/nirapulse/relay/internal/core"

// Media abstracts local media acquisition and the negotiation object, so
// the session state machine is testable with no devices and no network.
// The pion-backed implementation lives in internal/adapters/rtc.
type Media interface {
	// CreateOffer produces the local session description for an outbound
	// call. Failure here is fatal to the attempt.
	CreateOffer() (core.SDP, error)

	// Answer applies the caller's offer and produces the answer.
	Answer(offer core.SDP) (core.SDP, error)

	// ApplyAnswer applies the callee's answer on the caller side.
	ApplyAnswer(answer core.SDP) error

	// Finalized reports whether local negotiation already completed, so a
	// duplicate answer must not be applied again.
	Finalized() bool

	// AddCandidate feeds one remote ICE candidate to the transport.
	AddCandidate(core.Candidate) error

	// OnCandidate registers the callback for locally gathered candidates.
	OnCandidate(func(core.Candidate))

	// OnConnected fires when the transport-level handshake succeeds.
	OnConnected(func())

	// OnFailed fires when connectivity is lost or negotiation fails.
	OnFailed(func())

	// Close releases the negotiation object and any local media.
	// Must be safe to call more than once.
	Close()
}

// MediaFactory builds the Media for one call attempt.
type MediaFactory func(video bool) (Media, error)

// Sender emits events toward the relay.
type Sender interface {
	Send(v any) error
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(v any) error

func (f SenderFunc) Send(v any) error { return f(v) }
