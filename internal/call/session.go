package call

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nirapulse/relay/internal/core"
	"github.com/nirapulse/relay/internal/domain"
)

var (
	ErrNotRinging = errors.New("call is not ringing")
	ErrEnded      = errors.New("call already ended")
)

// Session is one endpoint's half of a call. It owns the local state
// machine, the media handle, and the buffer for candidates that arrive
// before the remote description. All exit paths funnel through end(), so
// media release happens exactly once no matter how the call dies.
type Session struct {
	self     domain.UserID
	selfName string
	peer     domain.UserID
	peerName string
	callType domain.CallType
	caller   bool

	send  Sender
	media Media

	mu        sync.Mutex
	state     State
	offer     core.SDP // inbound only: held until Accept
	remoteSet bool
	pending   []core.Candidate
	ringTimer *time.Timer

	onState func(State)
	onEnded func(EndReason)
}

func (s *Session) Peer() domain.UserID   { return s.peer }
func (s *Session) PeerName() string      { return s.peerName }
func (s *Session) Kind() domain.CallType { return s.callType }
func (s *Session) Initiator() bool       { return s.caller }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// bindMedia wires transport callbacks into the state machine. Candidates
// gathered locally go straight to the peer; the connectivity signal drives
// Negotiating → Connected; a transport failure is treated as a hang-up.
func (s *Session) bindMedia(m Media) {
	s.media = m
	m.OnCandidate(func(c core.Candidate) {
		s.mu.Lock()
		ended := s.state == StateEnded
		s.mu.Unlock()
		if ended {
			return
		}
		_ = s.send.Send(core.CallCandidate{
			Type:      core.EventCallCandidate,
			To:        s.peer,
			From:      s.self,
			Candidate: c,
		})
	})
	m.OnConnected(func() {
		s.transition(StateNegotiating, StateConnected)
	})
	m.OnFailed(func() {
		s.end(EndConnectivityLost, true)
	})
}

// transition moves from → to if the session is currently in from.
func (s *Session) transition(from, to State) bool {
	s.mu.Lock()
	if s.state != from {
		s.mu.Unlock()
		return false
	}
	s.state = to
	cb := s.onState
	s.mu.Unlock()
	log.Debug().Str("module", "call").Str("peer", string(s.peer)).Str("state", to.String()).Msg("transition")
	if cb != nil {
		cb(to)
	}
	return true
}

// dial runs the outbound leg: create the offer and send call:initiate.
// Any setup failure is fatal to the attempt: partial resources are
// released and the session ends without retrying.
func (s *Session) dial(ringTimeout time.Duration) error {
	offer, err := s.media.CreateOffer()
	if err != nil {
		s.end(EndSetupFailed, false)
		return fmt.Errorf("create offer: %w", err)
	}
	if err := s.send.Send(core.CallInitiate{
		Type:       core.EventCallInitiate,
		To:         s.peer,
		From:       s.self,
		CallerName: s.selfName,
		SignalData: offer,
		CallType:   s.callType,
	}); err != nil {
		s.end(EndSetupFailed, false)
		return fmt.Errorf("send initiate: %w", err)
	}
	s.transition(StateIdle, StateCalling)
	s.armRingTimer(ringTimeout)
	log.Info().Str("module", "call").Str("to", string(s.peer)).Str("kind", string(s.callType)).Msg("dialing")
	return nil
}

// armRingTimer bounds how long the session may stay in Calling/Ringing.
// Zero disables the timer (the embedding UI enforces its own policy then).
func (s *Session) armRingTimer(d time.Duration) {
	if d <= 0 {
		return
	}
	s.mu.Lock()
	s.ringTimer = time.AfterFunc(d, s.ringExpired)
	s.mu.Unlock()
}

func (s *Session) ringExpired() {
	s.mu.Lock()
	expired := s.state == StateCalling || s.state == StateRinging
	s.mu.Unlock()
	if expired {
		log.Info().Str("module", "call").Str("peer", string(s.peer)).Msg("ring timeout")
		s.end(EndRingTimeout, true)
	}
}

func (s *Session) stopRingTimer() {
	if s.ringTimer != nil {
		s.ringTimer.Stop()
		s.ringTimer = nil
	}
}

// Accept answers an inbound call: apply the held offer, produce the
// answer, flush buffered candidates, send call:accept. Moves Ringing →
// Negotiating. The factory runs outside Ringing state only by mistake,
// so anything else is ErrNotRinging.
func (s *Session) Accept(factory MediaFactory) error {
	s.mu.Lock()
	if s.state != StateRinging {
		st := s.state
		s.mu.Unlock()
		if st == StateEnded {
			return ErrEnded
		}
		return ErrNotRinging
	}
	offer := s.offer
	s.mu.Unlock()

	m, err := factory(s.callType.Video())
	if err != nil {
		s.end(EndSetupFailed, true)
		return fmt.Errorf("acquire media: %w", err)
	}
	s.bindMedia(m)

	answer, err := m.Answer(offer)
	if err != nil {
		s.end(EndSetupFailed, true)
		return fmt.Errorf("apply offer: %w", err)
	}

	s.mu.Lock()
	s.remoteSet = true
	s.stopRingTimer()
	queued := s.pending
	s.pending = nil
	s.mu.Unlock()
	s.flushCandidates(queued)

	if err := s.send.Send(core.CallAccept{
		Type:       core.EventCallAccept,
		To:         s.peer,
		From:       s.self,
		SignalData: answer,
	}); err != nil {
		s.end(EndSetupFailed, true)
		return fmt.Errorf("send accept: %w", err)
	}
	s.transition(StateRinging, StateNegotiating)
	log.Info().Str("module", "call").Str("peer", string(s.peer)).Msg("call accepted")
	return nil
}

// Reject declines an inbound call and ends the session.
func (s *Session) Reject() error {
	s.mu.Lock()
	ringing := s.state == StateRinging
	s.mu.Unlock()
	if !ringing {
		return ErrNotRinging
	}
	_ = s.send.Send(core.CallSignal{Type: core.EventCallReject, To: s.peer, From: s.self})
	s.end(EndRejected, false)
	return nil
}

// End hangs up from any state without waiting for the other side.
func (s *Session) End() {
	s.end(EndHangup, true)
}

// handleAccept applies the callee's answer on the caller side. The answer
// is applied only while still Calling and only if local negotiation is not
// already finalized, so a duplicated accept event is a no-op.
func (s *Session) handleAccept(answer core.SDP) {
	s.mu.Lock()
	if s.state != StateCalling {
		s.mu.Unlock()
		log.Debug().Str("module", "call").Str("state", s.state.String()).Msg("accept ignored")
		return
	}
	s.stopRingTimer()
	s.mu.Unlock()

	if !s.media.Finalized() {
		if err := s.media.ApplyAnswer(answer); err != nil {
			log.Error().Err(err).Str("module", "call").Msg("apply answer")
			s.end(EndSetupFailed, true)
			return
		}
	} else {
		// Finalized means the remote description is already in place, so
		// the duplicate answer is skipped but buffered candidates still
		// have somewhere to go.
		log.Debug().Str("module", "call").Msg("negotiation already finalized, answer skipped")
	}

	s.mu.Lock()
	s.remoteSet = true
	queued := s.pending
	s.pending = nil
	s.mu.Unlock()
	s.flushCandidates(queued)

	s.transition(StateCalling, StateNegotiating)
}

// handleCandidate feeds one remote candidate to the transport. Candidates
// arriving before the remote description is set are buffered in arrival
// order and applied exactly once when it lands.
func (s *Session) handleCandidate(c core.Candidate) {
	s.mu.Lock()
	switch {
	case s.state == StateEnded:
		s.mu.Unlock()
		return
	case !s.remoteSet:
		s.pending = append(s.pending, c)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	if err := s.media.AddCandidate(c); err != nil {
		log.Warn().Err(err).Str("module", "call").Msg("add candidate")
	}
}

func (s *Session) flushCandidates(queued []core.Candidate) {
	for _, c := range queued {
		if err := s.media.AddCandidate(c); err != nil {
			log.Warn().Err(err).Str("module", "call").Msg("add buffered candidate")
		}
	}
}

// handleRemoteEnd reacts to call:end or call:reject from the peer.
func (s *Session) handleRemoteEnd(reason EndReason) {
	s.end(reason, false)
}

// end is the single teardown path. Idempotent: the first caller wins, any
// later one returns immediately. notify sends call:end to the peer; the
// remote-initiated paths pass false.
func (s *Session) end(reason EndReason, notify bool) {
	s.mu.Lock()
	if s.state == StateEnded {
		s.mu.Unlock()
		return
	}
	s.state = StateEnded
	s.stopRingTimer()
	s.pending = nil
	m := s.media
	stateCb := s.onState
	endCb := s.onEnded
	s.mu.Unlock()

	if notify && s.peer != "" {
		_ = s.send.Send(core.CallSignal{Type: core.EventCallEnd, To: s.peer, From: s.self})
	}
	if m != nil {
		m.Close()
	}
	log.Info().Str("module", "call").Str("peer", string(s.peer)).Str("reason", reason.String()).Msg("call ended")
	if stateCb != nil {
		stateCb(StateEnded)
	}
	if endCb != nil {
		endCb(reason)
	}
}
