package signal

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/nirapulse/relay/internal/app"
	"github.com/nirapulse/relay/internal/config"
	"github.com/nirapulse/relay/internal/core"
	"github.com/nirapulse/relay/internal/domain"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Controller owns the WebSocket endpoint: one session per upgraded
// connection, registry bookkeeping on connect/disconnect, and the event
// switch in between.
type Controller struct {
	cfg      *config.Config
	reg      *app.Registry
	dispatch *app.Dispatcher
	calls    *CallRateLimiter
}

func NewController(cfg *config.Config, reg *app.Registry, dispatch *app.Dispatcher) *Controller {
	return &Controller{
		cfg:      cfg,
		reg:      reg,
		dispatch: dispatch,
		calls:    NewCallRateLimiter(callInitiateLimit, callInitiateWindow),
	}
}

// wsConn wraps one gorilla connection behind a buffered send queue so a
// slow consumer never stalls delivery to other sessions.
type wsConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *wsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

// session is the server-side half of one client's channel. Lifecycle is
// Connecting (upgrade in flight), Open (pumps running), Closed (terminal);
// a reconnecting client gets a brand-new session.
type session struct {
	sid  core.SessionID
	id   domain.UserID // empty for anonymous connections
	conn *wsConn

	mu       sync.Mutex
	callPeer domain.UserID
}

// setCallPeer remembers who this session is mid-call with, so a disconnect
// can notify the far side.
func (s *session) setCallPeer(peer domain.UserID) {
	s.mu.Lock()
	s.callPeer = peer
	s.mu.Unlock()
}

func (s *session) takeCallPeer() domain.UserID {
	s.mu.Lock()
	defer s.mu.Unlock()
	peer := s.callPeer
	s.callPeer = ""
	return peer
}

// HandleSocket upgrades GET /api/ws?userId=<id>. A missing or unresolvable
// identity still gets a connection (it receives broadcasts) but never
// appears in presence or becomes a directed-event target.
func (ctl *Controller) HandleSocket(c *gin.Context) {
	// The client token identifies a browser, not a connection; two tabs
	// share it. Each upgrade gets its own session id so one tab's
	// teardown never detaches another.
	sid := core.SessionID(uuid.NewString())

	id, err := domain.ParseUserID(c.Query("userId"))
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("anonymous connection")
		id = ""
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	if ctl.cfg.ReadLimit > 0 {
		ws.SetReadLimit(ctl.cfg.ReadLimit)
	}

	conn := &wsConn{
		conn: ws,
		send: make(chan core.Frame, ctl.cfg.SendBuffer),
	}
	sess := &session{sid: sid, id: id, conn: conn}

	ctl.reg.Attach(sid, conn)
	if id != "" {
		ctl.reg.Register(id, conn)
		log.Info().Str("module", "signal").Str("sid", string(sid)).Str("ct", c.GetString("client_token")).Str("user", string(id)).Msg("user connected")
	}
	ctl.dispatch.BroadcastPresence()

	go ctl.writePump(conn)
	go ctl.readPump(sess)
}

// teardown runs once, when the read pump exits for any reason.
func (ctl *Controller) teardown(s *session) {
	s.conn.Close()
	ctl.reg.Detach(s.sid)
	if s.id != "" {
		ctl.reg.Unregister(s.id, s.conn)
		log.Info().Str("module", "signal").Str("user", string(s.id)).Msg("user disconnected")
	}
	if peer := s.takeCallPeer(); peer != "" {
		ctl.dispatch.ToUser(peer, core.CallSignal{
			Type: core.EventCallEnd,
			To:   peer,
			From: s.id,
		})
	}
	ctl.dispatch.BroadcastPresence()
}
