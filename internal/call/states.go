package call

// State is the local view of one call endpoint. The two endpoints advance
// independently; nothing synchronizes their views beyond the events they
// exchange and the transport handshake itself.
type State int

const (
	StateIdle State = iota
	StateCalling
	StateRinging
	StateNegotiating
	StateConnected
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCalling:
		return "calling"
	case StateRinging:
		return "ringing"
	case StateNegotiating:
		return "negotiating"
	case StateConnected:
		return "connected"
	case StateEnded:
		return "ended"
	}
	return "unknown"
}

// EndReason records why a session reached StateEnded.
type EndReason int

const (
	EndHangup EndReason = iota
	EndRejected
	EndPeerEnded
	EndSetupFailed
	EndConnectivityLost
	EndRingTimeout
)

func (r EndReason) String() string {
	switch r {
	case EndHangup:
		return "hangup"
	case EndRejected:
		return "rejected"
	case EndPeerEnded:
		return "peer ended"
	case EndSetupFailed:
		return "setup failed"
	case EndConnectivityLost:
		return "connectivity lost"
	case EndRingTimeout:
		return "ring timeout"
	}
	return "unknown"
}
