package service

import (
	"context"
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gorilla/websocket"
	"github.com/sharetube/watchparty/internal/repository/connection"
	"github.com/sharetube/watchparty/internal/repository/session"
)

type RequestToggleParams struct {
	Session  string
	PeerId   int
	Position float64
}

type RequestToggleResponse struct {
	AuthorityConn *websocket.Conn
	AuthorityId   int
	RequesterId   int
	Position      float64
}

// RequestToggle routes a toggle request to the session's state authority.
func (s *service) RequestToggle(ctx context.Context, params *RequestToggleParams) (RequestToggleResponse, error) {
	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.Position, PositionRule...),
	); err != nil {
		return RequestToggleResponse{}, err
	}

	playback, err := s.getPlayback(ctx, params.Session)
	if err != nil {
		return RequestToggleResponse{}, err
	}

	if playback.AuthorityId == 0 {
		return RequestToggleResponse{}, ErrNoAuthority
	}

	conn, err := s.connRepo.GetConn(connection.Member{Session: params.Session, PeerId: playback.AuthorityId})
	if err != nil {
		if errors.Is(err, connection.ErrNotFound) {
			return RequestToggleResponse{}, ErrNoAuthority
		}

		return RequestToggleResponse{}, fmt.Errorf("failed to get authority conn: %w", err)
	}

	return RequestToggleResponse{
		AuthorityConn: conn,
		AuthorityId:   playback.AuthorityId,
		RequesterId:   params.PeerId,
		Position:      params.Position,
	}, nil
}

type PublishStateParams struct {
	Session   string
	PeerId    int
	IsPlaying bool
	Position  float64
	Revision  uint64
}

type PublishStateResponse struct {
	Playback Playback
	// Conns are the followers of the session.
	Conns Recipients
}

// PublishState stores the authority's playback state. Only the state
// authority may publish, and revisions never move backwards.
func (s *service) PublishState(ctx context.Context, params *PublishStateParams) (PublishStateResponse, error) {
	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.Position, PositionRule...),
	); err != nil {
		return PublishStateResponse{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.getPlayback(ctx, params.Session)
	if err != nil {
		return PublishStateResponse{}, err
	}

	if current.AuthorityId != params.PeerId {
		return PublishStateResponse{}, ErrPermissionDenied
	}

	if params.Revision < current.Revision {
		return PublishStateResponse{}, ErrStaleRevision
	}

	if err := s.sessionRepo.SetPlayback(ctx, &session.SetPlaybackParams{
		Session:   params.Session,
		IsPlaying: params.IsPlaying,
		Position:  params.Position,
		Revision:  params.Revision,
		UpdatedAt: s.now().Unix(),
	}); err != nil {
		return PublishStateResponse{}, fmt.Errorf("failed to set playback: %w", err)
	}

	conns, err := s.getSessionConns(ctx, params.Session, params.PeerId)
	if err != nil {
		return PublishStateResponse{}, err
	}

	return PublishStateResponse{
		Playback: Playback{
			IsPlaying:   params.IsPlaying,
			Position:    params.Position,
			Revision:    params.Revision,
			AuthorityId: current.AuthorityId,
		},
		Conns: conns,
	}, nil
}
