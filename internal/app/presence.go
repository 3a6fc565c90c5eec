package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/nirapulse/relay/internal/core"
	"github.com/nirapulse/relay/internal/domain"
)

// Registry is the process-wide presence state: which identities are
// reachable and over which connection. It also tracks every open transport
// connection, resolvable identity or not, so presence broadcasts can reach
// all of them. Empty at startup, rebuilt from scratch on every restart.
type Registry struct {
	mu    sync.RWMutex
	conns map[core.SessionID]core.SignalConnection
	users map[domain.UserID]core.SignalConnection
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[core.SessionID]core.SignalConnection),
		users: make(map[domain.UserID]core.SignalConnection),
	}
}

// Attach records an open transport connection. Called on every upgrade,
// before the identity is resolved.
func (r *Registry) Attach(sid core.SessionID, conn core.SignalConnection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[sid] = conn
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("connection attached")
}

// Detach forgets a transport connection. No-op for unknown sids.
func (r *Registry) Detach(sid core.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, sid)
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("connection detached")
}

// Register inserts or overwrites the presence entry for id. A later
// connection from the same identity silently replaces the earlier one
// (last-connect-wins); the previous handle is not retained. Identities
// that are not resolvable are never registered.
func (r *Registry) Register(id domain.UserID, conn core.SignalConnection) {
	if !id.Resolvable() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[id] = conn
	log.Info().Str("module", "app.registry").Str("user", string(id)).Msg("user registered")
}

// Unregister removes the presence entry for id, but only if it still
// points at conn: a replaced session's late disconnect must not evict its
// successor. A nil conn removes unconditionally. Absent id is a no-op.
func (r *Registry) Unregister(id domain.UserID, conn core.SignalConnection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.users[id]
	if !ok {
		return
	}
	if conn != nil && cur != conn {
		log.Debug().Str("module", "app.registry").Str("user", string(id)).Msg("stale unregister ignored")
		return
	}
	delete(r.users, id)
	log.Info().Str("module", "app.registry").Str("user", string(id)).Msg("user unregistered")
}

// Lookup resolves a directed-event target. A miss means the user is not
// currently reachable, which is a normal outcome, not an error.
func (r *Registry) Lookup(id domain.UserID) (core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.users[id]
	return conn, ok
}

// Snapshot lists the currently registered identities.
func (r *Registry) Snapshot() []domain.UserID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.UserID, 0, len(r.users))
	for id := range r.users {
		out = append(out, id)
	}
	return out
}

// Connections lists every open transport connection, anonymous included.
func (r *Registry) Connections() []core.SignalConnection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.SignalConnection, 0, len(r.conns))
	for _, c := range r.conns {
		out = append(out, c)
	}
	return out
}
