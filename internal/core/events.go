package core

import (
	"encoding/json"

	"github.com/nirapulse/relay/internal/domain"
)

// Event type discriminators carried in the "type" field of every frame.
const (
	EventOnlineUsers           = "getOnlineUsers"
	EventNewMessage            = "newMessage"
	EventFriendRequestReceived = "friendRequestReceived"
	EventFriendRequestAccepted = "friendRequestAccepted"

	EventCallInitiate  = "call:initiate"
	EventCallAccept    = "call:accept"
	EventCallReject    = "call:reject"
	EventCallCandidate = "call:ice-candidate"
	EventCallEnd       = "call:end"

	EventPing = "ping"
	EventPong = "pong"
)

// Envelope is the minimal view the relay decodes from an inbound frame:
// the discriminator plus the routing target. Everything else in a call
// event is opaque and forwarded verbatim.
type Envelope struct {
	Type string        `json:"type"`
	To   domain.UserID `json:"to,omitempty"`
}

// OnlineUsers is the full presence snapshot, broadcast on every
// connect and disconnect.
type OnlineUsers struct {
	Type  string          `json:"type"`
	Users []domain.UserID `json:"users"`
}

func NewOnlineUsers(users []domain.UserID) OnlineUsers {
	return OnlineUsers{Type: EventOnlineUsers, Users: users}
}

// The notification events wrap records persisted by the CRUD collaborator
// for directed delivery to an online user. The record stays opaque to the
// relay; only the field name differs per event.

// MessageEvent delivers a persisted chat message.
type MessageEvent struct {
	Type    string          `json:"type"`
	Message json.RawMessage `json:"message"`
}

// FriendRequestEvent delivers a newly created friend request.
type FriendRequestEvent struct {
	Type    string          `json:"type"`
	Request json.RawMessage `json:"request"`
}

// FriendAcceptEvent tells the original requester who accepted.
type FriendAcceptEvent struct {
	Type     string          `json:"type"`
	Acceptor json.RawMessage `json:"acceptor"`
}

// SDP is a session-description payload (offer or answer). The relay never
// reads it; the call coordinator and the rtc adapter do.
type SDP struct {
	Kind string `json:"type"`
	Body string `json:"sdp"`
}

// Candidate is one ICE candidate descriptor.
type Candidate struct {
	Candidate     string `json:"candidate"`
	SDPMid        string `json:"sdpMid,omitempty"`
	SDPMLineIndex uint16 `json:"sdpMLineIndex,omitempty"`
}

// CallInitiate starts a call: carries the offer to the callee.
type CallInitiate struct {
	Type       string          `json:"type"`
	To         domain.UserID   `json:"to"`
	From       domain.UserID   `json:"from"`
	CallerName string          `json:"callerName"`
	SignalData SDP             `json:"signalData"`
	CallType   domain.CallType `json:"callType"`
}

// CallAccept carries the answer back to the caller.
type CallAccept struct {
	Type       string        `json:"type"`
	To         domain.UserID `json:"to"`
	From       domain.UserID `json:"from"`
	SignalData SDP           `json:"signalData"`
}

// CallSignal is the payload shape shared by reject and end.
type CallSignal struct {
	Type string        `json:"type"`
	To   domain.UserID `json:"to"`
	From domain.UserID `json:"from"`
}

// CallCandidate carries one ICE candidate between the peers.
type CallCandidate struct {
	Type      string        `json:"type"`
	To        domain.UserID `json:"to"`
	From      domain.UserID `json:"from"`
	Candidate Candidate     `json:"candidate"`
}
