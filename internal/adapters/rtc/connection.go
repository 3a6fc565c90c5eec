// Package rtc adapts a pion PeerConnection to the call.Media contract.
// It handles negotiation only; capturing devices and rendering tracks stay
// with the embedder.
package rtc

import (
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/nirapulse/relay/internal/call"
	"github.com/nirapulse/relay/internal/core"
)

type Connection struct {
	pc *webrtc.PeerConnection

	mu          sync.Mutex
	closed      bool
	onCandidate func(core.Candidate)
	onConnected func()
	onFailed    func()
}

func Config(stunServers []string) webrtc.Configuration {
	if len(stunServers) == 0 {
		stunServers = []string{"stun:stun.l.google.com:19302"}
	}
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{{URLs: stunServers}},
	}
}

// NewConnection builds one negotiation object for a call attempt.
// Receive-only transceivers declare the media sections; whether a video
// section exists follows the call kind.
func NewConnection(cfg webrtc.Configuration, video bool) (*Connection, error) {
	pc, err := webrtc.NewPeerConnection(cfg)
	if err != nil {
		return nil, err
	}
	c := &Connection{pc: pc}

	if _, err := pc.AddTransceiverFromKind(webrtc.RTPCodecTypeAudio,
		webrtc.RTPTransceiverInit{Direction: webrtc.RTPTransceiverDirectionRecvonly}); err != nil {
		_ = pc.Close()
		return nil, err
	}
	if video {
		if _, err := pc.AddTransceiverFromKind(webrtc.RTPCodecTypeVideo,
			webrtc.RTPTransceiverInit{Direction: webrtc.RTPTransceiverDirectionRecvonly}); err != nil {
			_ = pc.Close()
			return nil, err
		}
	}

	pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand == nil {
			return
		}
		ci := cand.ToJSON()
		out := core.Candidate{Candidate: ci.Candidate}
		if ci.SDPMid != nil {
			out.SDPMid = *ci.SDPMid
		}
		if ci.SDPMLineIndex != nil {
			out.SDPMLineIndex = *ci.SDPMLineIndex
		}
		c.mu.Lock()
		fn := c.onCandidate
		c.mu.Unlock()
		if fn != nil {
			fn(out)
		}
	})

	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		log.Info().Str("module", "rtc").Str("peer_connection_state", s.String()).Msg("peer state")
		c.mu.Lock()
		connected := c.onConnected
		failed := c.onFailed
		c.mu.Unlock()
		switch s {
		case webrtc.PeerConnectionStateConnected:
			if connected != nil {
				connected()
			}
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateDisconnected:
			if failed != nil {
				failed()
			}
		}
	})

	return c, nil
}

// NewMediaFactory returns the call.MediaFactory the coordinator plugs in.
func NewMediaFactory(stunServers []string) call.MediaFactory {
	cfg := Config(stunServers)
	return func(video bool) (call.Media, error) {
		return NewConnection(cfg, video)
	}
}

func (c *Connection) CreateOffer() (core.SDP, error) {
	offer, err := c.pc.CreateOffer(nil)
	if err != nil {
		return core.SDP{}, err
	}
	if err := c.pc.SetLocalDescription(offer); err != nil {
		return core.SDP{}, err
	}
	return core.SDP{Kind: offer.Type.String(), Body: offer.SDP}, nil
}

func (c *Connection) Answer(offer core.SDP) (core.SDP, error) {
	if err := c.pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeOffer,
		SDP:  offer.Body,
	}); err != nil {
		return core.SDP{}, err
	}
	answer, err := c.pc.CreateAnswer(nil)
	if err != nil {
		return core.SDP{}, err
	}
	if err := c.pc.SetLocalDescription(answer); err != nil {
		return core.SDP{}, err
	}
	return core.SDP{Kind: answer.Type.String(), Body: answer.SDP}, nil
}

func (c *Connection) ApplyAnswer(answer core.SDP) error {
	return c.pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  answer.Body,
	})
}

// Finalized reports whether the offer/answer exchange already completed
// locally, so a duplicated answer must not be applied again.
func (c *Connection) Finalized() bool {
	st := c.pc.SignalingState()
	return st == webrtc.SignalingStateStable && c.pc.RemoteDescription() != nil ||
		st == webrtc.SignalingStateClosed
}

func (c *Connection) AddCandidate(cand core.Candidate) error {
	ci := webrtc.ICECandidateInit{Candidate: cand.Candidate}
	if cand.SDPMid != "" {
		mid := cand.SDPMid
		ci.SDPMid = &mid
	}
	idx := cand.SDPMLineIndex
	ci.SDPMLineIndex = &idx
	return c.pc.AddICECandidate(ci)
}

func (c *Connection) OnCandidate(fn func(core.Candidate)) {
	c.mu.Lock()
	c.onCandidate = fn
	c.mu.Unlock()
}

func (c *Connection) OnConnected(fn func()) {
	c.mu.Lock()
	c.onConnected = fn
	c.mu.Unlock()
}

func (c *Connection) OnFailed(fn func()) {
	c.mu.Lock()
	c.onFailed = fn
	c.mu.Unlock()
}

func (c *Connection) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()
	if err := c.pc.Close(); err != nil {
		log.Error().Err(err).Str("module", "rtc").Msg("close error")
	}
}

// OnTrack exposes remote tracks to the embedder (the headless client logs
// them, a real client would render).
func (c *Connection) OnTrack(fn func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver)) {
	c.pc.OnTrack(fn)
}
