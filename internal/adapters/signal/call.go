package signal

import (
	"github.com/rs/zerolog/log"

	"github.com/nirapulse/relay/internal/core"
)

// Call events pass through untouched: the relay reads only "type" and "to",
// looks the target up in the registry, and forwards the raw frame. A miss
// drops the event with nothing surfaced to the sender.

func (ctl *Controller) forward(s *session, env core.Envelope, data []byte) bool {
	if s.id == "" {
		log.Warn().Str("module", "signal").Str("sid", string(s.sid)).Msg("call event from anonymous connection")
		return false
	}
	if !env.To.Resolvable() {
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("call event without target")
		return false
	}
	return ctl.dispatch.Forward(env.To, data)
}

func (ctl *Controller) handleCallInitiate(s *session, env core.Envelope, data []byte) {
	if s.id != "" && !ctl.calls.Allow(s.id) {
		log.Warn().Str("module", "signal").Str("user", string(s.id)).Msg("call initiate rate limited")
		return
	}
	if ctl.forward(s, env, data) {
		s.setCallPeer(env.To)
		log.Info().Str("module", "signal").Str("from", string(s.id)).Str("to", string(env.To)).Msg("call initiated")
	}
}

func (ctl *Controller) handleCallAccept(s *session, env core.Envelope, data []byte) {
	if ctl.forward(s, env, data) {
		s.setCallPeer(env.To)
		log.Info().Str("module", "signal").Str("from", string(s.id)).Str("to", string(env.To)).Msg("call accepted")
	}
}

func (ctl *Controller) handleCallForward(s *session, env core.Envelope, data []byte) {
	ctl.forward(s, env, data)
}

func (ctl *Controller) handleCallTerminate(s *session, env core.Envelope, data []byte) {
	ctl.forward(s, env, data)
	s.takeCallPeer()
	log.Info().Str("module", "signal").Str("from", string(s.id)).Str("to", string(env.To)).Str("type", env.Type).Msg("call terminated")
}
