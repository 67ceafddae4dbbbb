package service

import (
	"context"
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/sharetube/watchparty/internal/repository/session"
)

type UpdatePeerResponse struct {
	Peer Peer
	// Conns are the other peers of the session.
	Conns Recipients
}

func (s *service) updatePeer(ctx context.Context, params *session.UpdatePeerParams) (UpdatePeerResponse, error) {
	if err := s.sessionRepo.UpdatePeer(ctx, params); err != nil {
		if errors.Is(err, session.ErrPeerNotFound) {
			return UpdatePeerResponse{}, ErrPeerNotFound
		}

		return UpdatePeerResponse{}, fmt.Errorf("failed to update peer: %w", err)
	}

	peer, err := s.getPeer(ctx, params.Session, params.PeerId)
	if err != nil {
		return UpdatePeerResponse{}, err
	}

	conns, err := s.getSessionConns(ctx, params.Session, params.PeerId)
	if err != nil {
		return UpdatePeerResponse{}, err
	}

	return UpdatePeerResponse{
		Peer:  peer,
		Conns: conns,
	}, nil
}

type UpdateProfileParams struct {
	Session string
	PeerId  int
	Name    string
}

func (s *service) UpdateProfile(ctx context.Context, params *UpdateProfileParams) (UpdatePeerResponse, error) {
	params.Name = normalizeName(params.Name)
	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.Name, NameRule...),
	); err != nil {
		return UpdatePeerResponse{}, err
	}

	return s.updatePeer(ctx, &session.UpdatePeerParams{
		Session: params.Session,
		PeerId:  params.PeerId,
		Name:    &params.Name,
	})
}

type UpdateMicParams struct {
	Session    string
	PeerId     int
	MicEnabled bool
}

// UpdateMic also clears the speaking flag when the mic is turned off.
func (s *service) UpdateMic(ctx context.Context, params *UpdateMicParams) (UpdatePeerResponse, error) {
	update := &session.UpdatePeerParams{
		Session:    params.Session,
		PeerId:     params.PeerId,
		MicEnabled: &params.MicEnabled,
	}
	if !params.MicEnabled {
		isSpeaking := false
		update.IsSpeaking = &isSpeaking
	}

	return s.updatePeer(ctx, update)
}

type UpdateSpeakingParams struct {
	Session    string
	PeerId     int
	IsSpeaking bool
}

func (s *service) UpdateSpeaking(ctx context.Context, params *UpdateSpeakingParams) (UpdatePeerResponse, error) {
	return s.updatePeer(ctx, &session.UpdatePeerParams{
		Session:    params.Session,
		PeerId:     params.PeerId,
		IsSpeaking: &params.IsSpeaking,
	})
}
