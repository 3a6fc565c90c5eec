package app

import (
	"encoding/json"

	"github.com/nirapulse/relay/internal/core"
	"github.com/nirapulse/relay/internal/domain"
)

// Notifier is the surface the CRUD collaborator calls after persisting a
// chat message or a friend-request change. Each call resolves
// reachability through the registry and returns whether the event was
// handed to an online recipient; offline targets are silently skipped.
type Notifier struct {
	Dispatch *Dispatcher
}

func NewNotifier(d *Dispatcher) *Notifier {
	return &Notifier{Dispatch: d}
}

func (n *Notifier) NewMessage(to domain.UserID, record json.RawMessage) bool {
	return n.Dispatch.ToUser(to, core.MessageEvent{Type: core.EventNewMessage, Message: record})
}

func (n *Notifier) FriendRequestReceived(to domain.UserID, request json.RawMessage) bool {
	return n.Dispatch.ToUser(to, core.FriendRequestEvent{Type: core.EventFriendRequestReceived, Request: request})
}

func (n *Notifier) FriendRequestAccepted(to domain.UserID, acceptor json.RawMessage) bool {
	return n.Dispatch.ToUser(to, core.FriendAcceptEvent{Type: core.EventFriendRequestAccepted, Acceptor: acceptor})
}
