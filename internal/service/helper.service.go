package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/samber/lo"
	"github.com/sharetube/watchparty/internal/repository/connection"
	"github.com/sharetube/watchparty/internal/repository/session"
	"github.com/sharetube/watchparty/internal/roster"
)

func normalizeName(name string) string {
	return roster.TruncateName(strings.TrimSpace(name))
}

func (s *service) getPeer(ctx context.Context, sessionName string, peerId int) (Peer, error) {
	peer, err := s.sessionRepo.GetPeer(ctx, sessionName, peerId)
	if err != nil {
		if errors.Is(err, session.ErrPeerNotFound) {
			return Peer{}, ErrPeerNotFound
		}

		return Peer{}, fmt.Errorf("failed to get peer: %w", err)
	}

	return Peer{
		Id:         peerId,
		Name:       peer.Name,
		MicEnabled: peer.MicEnabled,
		IsSpeaking: peer.IsSpeaking,
	}, nil
}

func (s *service) getPeers(ctx context.Context, sessionName string, peerIds []int) ([]Peer, error) {
	peers := make([]Peer, 0, len(peerIds))
	for _, peerId := range peerIds {
		peer, err := s.getPeer(ctx, sessionName, peerId)
		if err != nil {
			return nil, err
		}

		peers = append(peers, peer)
	}

	return peers, nil
}

func (s *service) getPlayback(ctx context.Context, sessionName string) (Playback, error) {
	playback, err := s.sessionRepo.GetPlayback(ctx, sessionName)
	if err != nil {
		return Playback{}, fmt.Errorf("failed to get playback: %w", err)
	}

	return Playback{
		IsPlaying:   playback.IsPlaying,
		Position:    playback.Position,
		Revision:    playback.Revision,
		AuthorityId: playback.AuthorityId,
	}, nil
}

// getConns returns the connections of the listed peers except excluded ones.
// Peers without a live connection are skipped.
func (s *service) getConns(ctx context.Context, sessionName string, peerIds []int, exclude ...int) Recipients {
	conns := make(Recipients, 0, len(peerIds))
	for _, peerId := range peerIds {
		if lo.Contains(exclude, peerId) {
			continue
		}

		conn, err := s.connRepo.GetConn(connection.Member{Session: sessionName, PeerId: peerId})
		if err != nil {
			s.logger.DebugContext(ctx, "peer has no connection", "session", sessionName, "peer_id", peerId, "error", err)
			continue
		}

		conns = append(conns, conn)
	}

	return conns
}

func (s *service) getSessionConns(ctx context.Context, sessionName string, exclude ...int) (Recipients, error) {
	peerIds, err := s.sessionRepo.GetPeerIds(ctx, sessionName)
	if err != nil {
		return nil, fmt.Errorf("failed to get peer ids: %w", err)
	}

	return s.getConns(ctx, sessionName, peerIds, exclude...), nil
}

// designateAuthority makes the lowest connected id the state authority unless
// the current authority is still connected. It reports whether it changed.
func (s *service) designateAuthority(ctx context.Context, sessionName string, peerIds []int, current int) (int, bool, error) {
	if current != 0 && lo.Contains(peerIds, current) {
		return current, false, nil
	}

	next := 0
	if len(peerIds) > 0 {
		next = lo.Min(peerIds)
	}

	if next == current {
		return current, false, nil
	}

	if err := s.sessionRepo.SetAuthority(ctx, &session.SetAuthorityParams{
		Session:     sessionName,
		AuthorityId: next,
	}); err != nil {
		return current, false, fmt.Errorf("failed to set authority: %w", err)
	}

	s.logger.InfoContext(ctx, "state authority designated", "session", sessionName, "authority_id", next, "previous_authority_id", current)

	return next, true, nil
}

func (s *service) rollbackConn(conn *websocket.Conn) {
	if _, err := s.connRepo.RemoveByConn(conn); err != nil {
		s.logger.Debug("failed to roll back connection", "error", err)
	}
}
