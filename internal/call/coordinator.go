package call

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nirapulse/relay/internal/core"
	"github.com/nirapulse/relay/internal/domain"
)

var ErrBusy = errors.New("another call is active")

// Hooks let the embedder (UI, headless client) observe the call without
// the coordinator knowing anything about presentation.
type Hooks struct {
	// OnIncoming fires when a call:initiate lands while idle. The embedder
	// decides: Accept or Reject on the session.
	OnIncoming func(*Session)
	// OnState fires on every transition of the active session.
	OnState func(*Session, State)
	// OnEnded fires once per session, on any exit path.
	OnEnded func(*Session, EndReason)
}

// Coordinator runs this endpoint's side of the call protocol. It owns at
// most one active session at a time; a second inbound invite while busy is
// declined with call:reject. Incoming frames are fed through HandleFrame,
// outbound events go through the injected Sender, so the whole protocol is
// testable with no transport.
type Coordinator struct {
	Self        domain.UserID
	SelfName    string
	Send        Sender
	NewMedia    MediaFactory
	RingTimeout time.Duration
	Hooks       Hooks

	mu     sync.Mutex
	active *Session
}

// Active returns the current session, nil when idle.
func (c *Coordinator) Active() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

func (c *Coordinator) newSession(peer domain.UserID, peerName string, kind domain.CallType, caller bool) *Session {
	s := &Session{
		self:     c.Self,
		selfName: c.SelfName,
		peer:     peer,
		peerName: peerName,
		callType: kind,
		caller:   caller,
		send:     c.Send,
		state:    StateIdle,
	}
	s.onState = func(st State) {
		if c.Hooks.OnState != nil {
			c.Hooks.OnState(s, st)
		}
	}
	s.onEnded = func(r EndReason) {
		c.release(s)
		if c.Hooks.OnEnded != nil {
			c.Hooks.OnEnded(s, r)
		}
	}
	return s
}

func (c *Coordinator) release(s *Session) {
	c.mu.Lock()
	if c.active == s {
		c.active = nil
	}
	c.mu.Unlock()
}

// Dial places an outbound call. Media acquisition or offer creation
// failing kills the attempt; the caller gets the error and nothing is
// retried.
func (c *Coordinator) Dial(peer domain.UserID, kind domain.CallType) (*Session, error) {
	if !peer.Resolvable() {
		return nil, domain.ErrUserIDEmpty
	}
	s := c.newSession(peer, "", kind, true)

	c.mu.Lock()
	if c.active != nil {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	c.active = s
	c.mu.Unlock()

	m, err := c.NewMedia(kind.Video())
	if err != nil {
		s.end(EndSetupFailed, false)
		return nil, fmt.Errorf("acquire media: %w", err)
	}
	s.bindMedia(m)
	if err := s.dial(c.RingTimeout); err != nil {
		return nil, err
	}
	return s, nil
}

// HandleFrame feeds one decoded-from-the-wire event into the protocol.
// Events that do not fit the current state are ignored, never fatal: a
// stray accept or candidate while idle simply drops.
func (c *Coordinator) HandleFrame(data []byte) {
	var env core.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "call").Msg("bad frame")
		return
	}

	switch env.Type {
	case core.EventCallInitiate:
		c.handleInitiate(data)
	case core.EventCallAccept:
		c.handleAccept(data)
	case core.EventCallCandidate:
		c.handleCandidate(data)
	case core.EventCallReject:
		c.handleTerminate(data, EndRejected)
	case core.EventCallEnd:
		c.handleTerminate(data, EndPeerEnded)
	}
}

func (c *Coordinator) handleInitiate(data []byte) {
	var ev core.CallInitiate
	if err := json.Unmarshal(data, &ev); err != nil {
		log.Error().Err(err).Str("module", "call").Msg("bad initiate payload")
		return
	}
	kind, err := domain.ParseCallType(string(ev.CallType))
	if err != nil {
		log.Warn().Str("module", "call").Str("callType", string(ev.CallType)).Msg("bad call type")
		return
	}

	s := c.newSession(ev.From, ev.CallerName, kind, false)
	s.offer = ev.SignalData

	c.mu.Lock()
	if c.active != nil {
		c.mu.Unlock()
		log.Info().Str("module", "call").Str("from", string(ev.From)).Msg("busy, rejecting invite")
		_ = c.Send.Send(core.CallSignal{Type: core.EventCallReject, To: ev.From, From: c.Self})
		return
	}
	c.active = s
	c.mu.Unlock()

	s.state = StateRinging
	s.armRingTimer(c.RingTimeout)
	log.Info().Str("module", "call").Str("from", string(ev.From)).Str("kind", string(kind)).Msg("incoming call")
	if c.Hooks.OnIncoming != nil {
		c.Hooks.OnIncoming(s)
	}
}

func (c *Coordinator) handleAccept(data []byte) {
	s := c.Active()
	if s == nil {
		log.Debug().Str("module", "call").Msg("accept while idle, ignored")
		return
	}
	var ev core.CallAccept
	if err := json.Unmarshal(data, &ev); err != nil {
		log.Error().Err(err).Str("module", "call").Msg("bad accept payload")
		return
	}
	s.handleAccept(ev.SignalData)
}

func (c *Coordinator) handleCandidate(data []byte) {
	s := c.Active()
	if s == nil {
		log.Debug().Str("module", "call").Msg("candidate while idle, ignored")
		return
	}
	var ev core.CallCandidate
	if err := json.Unmarshal(data, &ev); err != nil {
		log.Error().Err(err).Str("module", "call").Msg("bad candidate payload")
		return
	}
	s.handleCandidate(ev.Candidate)
}

func (c *Coordinator) handleTerminate(data []byte, reason EndReason) {
	s := c.Active()
	if s == nil {
		return
	}
	var ev core.CallSignal
	if err := json.Unmarshal(data, &ev); err != nil {
		log.Error().Err(err).Str("module", "call").Msg("bad terminate payload")
		return
	}
	if ev.From != "" && ev.From != s.peer {
		log.Debug().Str("module", "call").Str("from", string(ev.From)).Msg("terminate from non-peer, ignored")
		return
	}
	s.handleRemoteEnd(reason)
}
