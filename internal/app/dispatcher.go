package app

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/nirapulse/relay/internal/core"
	"github.com/nirapulse/relay/internal/domain"
)

// Dispatcher routes events between sessions and the registry. It keeps no
// state of its own: directed events resolve through a registry lookup, a
// miss drops the event with nothing surfaced to the sender. Per-sender
// ordering is inherited from the single send queue per connection; the
// dispatcher never reorders.
type Dispatcher struct {
	Registry *Registry
}

func NewDispatcher(reg *Registry) *Dispatcher {
	return &Dispatcher{Registry: reg}
}

// Forward delivers an already-encoded frame to id verbatim. Reports
// whether a connection was found; a dropped frame on a full buffer still
// counts as delivered (best-effort, at-most-once).
func (d *Dispatcher) Forward(id domain.UserID, f core.Frame) bool {
	conn, ok := d.Registry.Lookup(id)
	if !ok {
		log.Debug().Str("module", "app.dispatch").Str("user", string(id)).Msg("target not reachable, dropped")
		return false
	}
	if err := conn.TrySend(f); err != nil {
		log.Warn().Err(err).Str("module", "app.dispatch").Str("user", string(id)).Msg("send failed")
	}
	return true
}

// ToUser encodes v and delivers it to id.
func (d *Dispatcher) ToUser(id domain.UserID, v any) bool {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.dispatch").Msg("marshal")
		return false
	}
	return d.Forward(id, b)
}

// Broadcast encodes v and delivers it to every open connection.
func (d *Dispatcher) Broadcast(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.dispatch").Msg("marshal")
		return
	}
	for _, conn := range d.Registry.Connections() {
		_ = conn.TrySend(b)
	}
}

// BroadcastPresence pushes the current snapshot to everyone. Called on
// every connect and disconnect.
func (d *Dispatcher) BroadcastPresence() {
	users := d.Registry.Snapshot()
	d.Broadcast(core.NewOnlineUsers(users))
	log.Debug().Str("module", "app.dispatch").Int("online", len(users)).Msg("presence broadcast")
}
