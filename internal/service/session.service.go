package service

import (
	"context"
	"errors"
	"fmt"
	"slices"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gorilla/websocket"
	"github.com/sharetube/watchparty/internal/repository/connection"
	"github.com/sharetube/watchparty/internal/repository/session"
)

type JoinSessionParams struct {
	Conn      *websocket.Conn
	Session   string
	Name      string
	AuthToken string
}

type JoinSessionResponse struct {
	AuthToken string
	Session   string
	PeerId    int
	Peer      Peer
	Peers     []Peer
	Playback  Playback
	// Conns are the other peers of the session.
	Conns            Recipients
	AuthorityChanged bool
}

// JoinSession adds a peer to the session, creating the session if it does
// not exist yet. A valid auth token lets the peer reclaim its previous id
// when that id is not connected.
func (s *service) JoinSession(ctx context.Context, params *JoinSessionParams) (JoinSessionResponse, error) {
	params.Name = normalizeName(params.Name)
	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.Session, SessionRule...),
		validation.Field(&params.Name, NameRule...),
	); err != nil {
		return JoinSessionResponse{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	peerIds, err := s.sessionRepo.GetPeerIds(ctx, params.Session)
	if err != nil {
		return JoinSessionResponse{}, fmt.Errorf("failed to get peer ids: %w", err)
	}

	if len(peerIds) >= s.membersLimit {
		return JoinSessionResponse{}, ErrSessionFull
	}

	peerId, reclaimed := s.reclaimPeerId(ctx, params.Session, params.AuthToken)
	if !reclaimed {
		peerId, err = s.sessionRepo.NextPeerId(ctx, params.Session)
		if err != nil {
			return JoinSessionResponse{}, fmt.Errorf("failed to get next peer id: %w", err)
		}
	}

	member := connection.Member{Session: params.Session, PeerId: peerId}
	if err := s.connRepo.Add(params.Conn, member); err != nil {
		return JoinSessionResponse{}, fmt.Errorf("failed to add conn: %w", err)
	}

	if !slices.Contains(peerIds, peerId) {
		peerIds = append(peerIds, peerId)
		slices.Sort(peerIds)
	}

	res, err := s.joinSession(ctx, params, peerId, peerIds)
	if err != nil {
		s.rollbackConn(params.Conn)
		return JoinSessionResponse{}, err
	}

	return res, nil
}

func (s *service) joinSession(ctx context.Context, params *JoinSessionParams, peerId int, peerIds []int) (JoinSessionResponse, error) {
	if err := s.sessionRepo.SetPeer(ctx, &session.SetPeerParams{
		Session:    params.Session,
		PeerId:     peerId,
		Name:       params.Name,
		MicEnabled: true,
	}); err != nil {
		return JoinSessionResponse{}, fmt.Errorf("failed to set peer: %w", err)
	}

	if err := s.sessionRepo.EnsurePlayback(ctx, params.Session); err != nil {
		return JoinSessionResponse{}, fmt.Errorf("failed to ensure playback: %w", err)
	}

	playback, err := s.getPlayback(ctx, params.Session)
	if err != nil {
		return JoinSessionResponse{}, err
	}

	authorityId, changed, err := s.designateAuthority(ctx, params.Session, peerIds, playback.AuthorityId)
	if err != nil {
		return JoinSessionResponse{}, err
	}
	playback.AuthorityId = authorityId

	peers, err := s.getPeers(ctx, params.Session, peerIds)
	if err != nil {
		return JoinSessionResponse{}, fmt.Errorf("failed to get peers: %w", err)
	}

	authToken, err := s.generateJWT(params.Session, peerId)
	if err != nil {
		return JoinSessionResponse{}, fmt.Errorf("failed to generate jwt: %w", err)
	}

	var self Peer
	for _, p := range peers {
		if p.Id == peerId {
			self = p
		}
	}

	return JoinSessionResponse{
		AuthToken:        authToken,
		Session:          params.Session,
		PeerId:           peerId,
		Peer:             self,
		Peers:            peers,
		Playback:         playback,
		Conns:            s.getConns(ctx, params.Session, peerIds, peerId),
		AuthorityChanged: changed,
	}, nil
}

func (s *service) reclaimPeerId(ctx context.Context, sessionName, authToken string) (int, bool) {
	if authToken == "" {
		return 0, false
	}

	claims, err := s.parseJWT(authToken)
	if err != nil {
		s.logger.InfoContext(ctx, "auth token ignored", "error", err)
		return 0, false
	}

	if claims.Session != sessionName {
		return 0, false
	}

	if s.connRepo.IsConnected(connection.Member{Session: sessionName, PeerId: claims.PeerId}) {
		s.logger.InfoContext(ctx, "peer id is still connected", "peer_id", claims.PeerId)
		return 0, false
	}

	if _, err := s.sessionRepo.GetPeer(ctx, sessionName, claims.PeerId); err != nil {
		if !errors.Is(err, session.ErrPeerNotFound) {
			s.logger.WarnContext(ctx, "failed to get reclaimed peer", "error", err)
		}
		return 0, false
	}

	return claims.PeerId, true
}

type LeaveSessionResponse struct {
	Session string
	PeerId  int
	// Conns are the peers still in the session.
	Conns            Recipients
	Playback         Playback
	AuthorityChanged bool
}

// LeaveSession removes the peer bound to conn. When it was the state
// authority the next lowest id takes over. An empty session is left to expire.
func (s *service) LeaveSession(ctx context.Context, conn *websocket.Conn) (LeaveSessionResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	member, err := s.connRepo.RemoveByConn(conn)
	if err != nil {
		return LeaveSessionResponse{}, fmt.Errorf("failed to remove conn: %w", err)
	}

	if err := s.sessionRepo.RemovePeer(ctx, &session.RemovePeerParams{
		Session: member.Session,
		PeerId:  member.PeerId,
	}); err != nil && !errors.Is(err, session.ErrPeerNotFound) {
		return LeaveSessionResponse{}, fmt.Errorf("failed to remove peer: %w", err)
	}

	peerIds, err := s.sessionRepo.GetPeerIds(ctx, member.Session)
	if err != nil {
		return LeaveSessionResponse{}, fmt.Errorf("failed to get peer ids: %w", err)
	}

	playback, err := s.getPlayback(ctx, member.Session)
	if err != nil {
		return LeaveSessionResponse{}, err
	}

	authorityId, changed, err := s.designateAuthority(ctx, member.Session, peerIds, playback.AuthorityId)
	if err != nil {
		return LeaveSessionResponse{}, err
	}
	playback.AuthorityId = authorityId

	if len(peerIds) == 0 {
		s.logger.InfoContext(ctx, "session is empty", "session", member.Session)
	}

	return LeaveSessionResponse{
		Session:          member.Session,
		PeerId:           member.PeerId,
		Conns:            s.getConns(ctx, member.Session, peerIds),
		Playback:         playback,
		AuthorityChanged: changed,
	}, nil
}

type KeepAliveParams struct {
	Session string
	PeerId  int
}

// KeepAlive refreshes the expiry of the session and of the calling peer, so a
// session without joins or publishes is kept while its peers are connected.
func (s *service) KeepAlive(ctx context.Context, params *KeepAliveParams) error {
	if err := s.sessionRepo.Touch(ctx, &session.TouchParams{
		Session: params.Session,
		PeerId:  params.PeerId,
	}); err != nil {
		return fmt.Errorf("failed to keep session alive: %w", err)
	}

	return nil
}
