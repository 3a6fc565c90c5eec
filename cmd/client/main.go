// Headless relay client: registers presence, prints events, and can place
// or answer calls. Useful for poking a running relay without a browser.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/nirapulse/relay/internal/adapters/rtc"
	"github.com/nirapulse/relay/internal/call"
	"github.com/nirapulse/relay/internal/core"
	"github.com/nirapulse/relay/internal/domain"
)

type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) Send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	var (
		server string
		userID string
		name   string
		callTo string
		video  bool
		stun   []string
	)

	root := &cobra.Command{
		Use:   "client",
		Short: "NiraPulse relay headless client",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return run(ctx, server, userID, name, callTo, video, stun)
		},
	}
	root.Flags().StringVar(&server, "server", "localhost:5000", "relay host:port")
	root.Flags().StringVar(&userID, "user", "", "user identity to register")
	root.Flags().StringVar(&name, "name", "", "display name sent with call invites")
	root.Flags().StringVar(&callTo, "call", "", "peer identity to call once connected")
	root.Flags().BoolVar(&video, "video", false, "negotiate a video section as well")
	root.Flags().StringSliceVar(&stun, "stun", nil, "STUN server urls")
	_ = root.MarkFlagRequired("user")

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("client failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, server, userID, name, callTo string, video bool, stun []string) error {
	self, err := domain.ParseUserID(userID)
	if err != nil {
		return fmt.Errorf("bad user id: %w", err)
	}
	if name == "" {
		name = userID
	}

	u := url.URL{Scheme: "ws", Host: server, Path: "/api/ws", RawQuery: "userId=" + url.QueryEscape(userID)}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial relay: %w", err)
	}
	defer conn.Close()
	ws := &wsClient{conn: conn}

	coord := &call.Coordinator{
		Self:        self,
		SelfName:    name,
		Send:        ws,
		NewMedia:    rtc.NewMediaFactory(stun),
		RingTimeout: 30 * time.Second,
		Hooks: call.Hooks{
			OnIncoming: func(s *call.Session) {
				log.Info().Str("from", string(s.Peer())).Str("caller", s.PeerName()).Str("kind", string(s.Kind())).Msg("incoming call, accepting")
				if err := s.Accept(rtc.NewMediaFactory(stun)); err != nil {
					log.Error().Err(err).Msg("accept failed")
				}
			},
			OnState: func(s *call.Session, st call.State) {
				log.Info().Str("peer", string(s.Peer())).Str("state", st.String()).Msg("call state")
			},
			OnEnded: func(s *call.Session, r call.EndReason) {
				log.Info().Str("peer", string(s.Peer())).Str("reason", r.String()).Msg("call over")
			},
		},
	}

	go func() {
		<-ctx.Done()
		if s := coord.Active(); s != nil {
			s.End()
		}
		_ = conn.Close()
	}()

	if callTo != "" {
		peer, err := domain.ParseUserID(callTo)
		if err != nil {
			return fmt.Errorf("bad call target: %w", err)
		}
		kind := domain.CallAudio
		if video {
			kind = domain.CallVideo
		}
		if _, err := coord.Dial(peer, kind); err != nil {
			return fmt.Errorf("dial %s: %w", callTo, err)
		}
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		dispatch(coord, data)
	}
}

func dispatch(coord *call.Coordinator, data []byte) {
	var env core.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Msg("bad frame from relay")
		return
	}
	switch env.Type {
	case core.EventOnlineUsers:
		var ev core.OnlineUsers
		if err := json.Unmarshal(data, &ev); err == nil {
			log.Info().Int("online", len(ev.Users)).Interface("users", ev.Users).Msg("presence")
		}
	case core.EventNewMessage, core.EventFriendRequestReceived, core.EventFriendRequestAccepted:
		log.Info().Str("type", env.Type).RawJSON("payload", data).Msg("notification")
	case core.EventCallInitiate, core.EventCallAccept, core.EventCallCandidate,
		core.EventCallReject, core.EventCallEnd:
		coord.HandleFrame(data)
	case core.EventPong:
	default:
		log.Warn().Str("type", env.Type).Msg("unknown event")
	}
}
