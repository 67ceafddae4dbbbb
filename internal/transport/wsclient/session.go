package wsclient

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sharetube/watchparty/internal/peer"
	"github.com/sharetube/watchparty/internal/playback"
	"github.com/sharetube/watchparty/internal/protocol"
	"golang.org/x/sync/errgroup"
)

type session struct {
	conn      *websocket.Conn
	events    peer.NetworkEvents
	keepalive time.Duration
	logger    *slog.Logger

	writeMu sync.Mutex
	closing atomic.Bool
	cancel  context.CancelFunc
}

func newSession(conn *websocket.Conn, events peer.NetworkEvents, keepalive time.Duration, logger *slog.Logger) *session {
	return &session{
		conn:      conn,
		events:    events,
		keepalive: keepalive,
		logger:    logger,
	}
}

// start runs the read pump and keepalive writer. When either stops the
// connection is closed and OnDisconnected is reported once.
func (s *session) start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	g, ctx := errgroup.WithContext(ctx)
	g.Go(s.readPump)
	g.Go(func() error { return s.keepaliveLoop(ctx) })
	g.Go(func() error {
		<-ctx.Done()
		s.conn.Close()
		return nil
	})

	go func() {
		err := g.Wait()
		cancel()
		s.events.OnDisconnected(err)
	}()
}

func (s *session) readPump() error {
	defer s.cancel()

	for {
		var msg protocol.Input
		if err := s.conn.ReadJSON(&msg); err != nil {
			if s.closing.Load() {
				return nil
			}
			return fmt.Errorf("failed to read message: %w", err)
		}

		s.dispatch(msg)
	}
}

func (s *session) keepaliveLoop(ctx context.Context) error {
	if s.keepalive <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(s.keepalive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.write(ctx, protocol.TypeAlive, nil); err != nil {
				if s.closing.Load() {
					return nil
				}
				return fmt.Errorf("failed to send keepalive: %w", err)
			}
		}
	}
}

func (s *session) dispatch(msg protocol.Input) {
	var err error
	switch msg.Type {
	case protocol.TypePeerJoined:
		var p protocol.Peer
		if err = json.Unmarshal(msg.Payload, &p); err == nil {
			s.events.OnPeerJoined(p)
		}
	case protocol.TypePeerUpdated:
		var p protocol.Peer
		if err = json.Unmarshal(msg.Payload, &p); err == nil {
			s.events.OnPeerUpdated(p)
		}
	case protocol.TypePeerLeft:
		var p protocol.PeerLeft
		if err = json.Unmarshal(msg.Payload, &p); err == nil {
			s.events.OnPeerLeft(p.PeerId)
		}
	case protocol.TypeStateChanged:
		var pb protocol.Playback
		if err = json.Unmarshal(msg.Payload, &pb); err == nil {
			s.events.OnStateChanged(pb)
		}
	case protocol.TypeToggleRequested:
		var req protocol.ToggleRequested
		if err = json.Unmarshal(msg.Payload, &req); err == nil {
			s.events.OnToggleRequested(req)
		}
	case protocol.TypeError:
		var e protocol.Error
		if err = json.Unmarshal(msg.Payload, &e); err == nil {
			s.logger.Warn("server reported error", "message", e.Message)
		}
	default:
		s.logger.Debug("unknown message type", "type", msg.Type)
	}

	if err != nil {
		s.logger.Warn("failed to decode message", "type", msg.Type, "error", err)
	}
}

func (s *session) write(ctx context.Context, messageType string, payload any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(writeTimeout)
	}
	if err := s.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}

	return s.conn.WriteJSON(&protocol.Output{Type: messageType, Payload: payload})
}

func (s *session) UpdateProfile(ctx context.Context, name string) error {
	return s.write(ctx, protocol.TypeUpdateProfile, protocol.UpdateProfile{Name: name})
}

func (s *session) UpdateMic(ctx context.Context, enabled bool) error {
	return s.write(ctx, protocol.TypeUpdateMic, protocol.UpdateMic{MicEnabled: enabled})
}

func (s *session) UpdateSpeaking(ctx context.Context, speaking bool) error {
	return s.write(ctx, protocol.TypeUpdateSpeaking, protocol.UpdateSpeaking{IsSpeaking: speaking})
}

func (s *session) RequestToggle(ctx context.Context, position float64) error {
	return s.write(ctx, protocol.TypeRequestToggle, protocol.RequestToggle{Position: position})
}

func (s *session) PublishState(ctx context.Context, state playback.State) error {
	return s.write(ctx, protocol.TypePublishState, protocol.PublishState{
		IsPlaying: state.IsPlaying,
		Position:  state.Position,
		Revision:  state.Revision,
	})
}

// Close sends a close frame and stops the pumps.
func (s *session) Close() error {
	if !s.closing.CompareAndSwap(false, true) {
		return nil
	}

	s.writeMu.Lock()
	err := s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeTimeout),
	)
	s.writeMu.Unlock()

	s.cancel()

	return err
}
