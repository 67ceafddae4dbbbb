package controller

import (
	"context"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/sharetube/watchparty/internal/protocol"
	"github.com/sharetube/watchparty/internal/service"
	"github.com/sharetube/watchparty/pkg/wsrouter"
)

type EmptyInput struct{}

func (c controller) handleAlive(ctx context.Context, _ *websocket.Conn, _ EmptyInput) error {
	if err := c.sessionService.KeepAlive(ctx, &service.KeepAliveParams{
		Session: c.getSessionFromCtx(ctx),
		PeerId:  c.getPeerIdFromCtx(ctx),
	}); err != nil {
		return fmt.Errorf("failed to keep alive: %w", err)
	}

	return nil
}

type UpdateProfileInput struct {
	Name string `json:"name" validate:"required"`
}

func (c controller) handleUpdateProfile(ctx context.Context, _ *websocket.Conn, input UpdateProfileInput) error {
	updateResp, err := c.sessionService.UpdateProfile(ctx, &service.UpdateProfileParams{
		Session: c.getSessionFromCtx(ctx),
		PeerId:  c.getPeerIdFromCtx(ctx),
		Name:    input.Name,
	})
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}

	c.broadcastPeerUpdated(ctx, updateResp)

	return nil
}

type UpdateMicInput struct {
	MicEnabled bool `json:"mic_enabled"`
}

func (c controller) handleUpdateMic(ctx context.Context, _ *websocket.Conn, input UpdateMicInput) error {
	updateResp, err := c.sessionService.UpdateMic(ctx, &service.UpdateMicParams{
		Session:    c.getSessionFromCtx(ctx),
		PeerId:     c.getPeerIdFromCtx(ctx),
		MicEnabled: input.MicEnabled,
	})
	if err != nil {
		return fmt.Errorf("failed to update mic: %w", err)
	}

	c.broadcastPeerUpdated(ctx, updateResp)

	return nil
}

type UpdateSpeakingInput struct {
	IsSpeaking bool `json:"is_speaking"`
}

func (c controller) handleUpdateSpeaking(ctx context.Context, _ *websocket.Conn, input UpdateSpeakingInput) error {
	updateResp, err := c.sessionService.UpdateSpeaking(ctx, &service.UpdateSpeakingParams{
		Session:    c.getSessionFromCtx(ctx),
		PeerId:     c.getPeerIdFromCtx(ctx),
		IsSpeaking: input.IsSpeaking,
	})
	if err != nil {
		return fmt.Errorf("failed to update speaking: %w", err)
	}

	c.broadcastPeerUpdated(ctx, updateResp)

	return nil
}

func (c controller) broadcastPeerUpdated(ctx context.Context, updateResp service.UpdatePeerResponse) {
	c.broadcast(ctx, updateResp.Conns, &protocol.Output{
		Type:    protocol.TypePeerUpdated,
		Payload: toProtocolPeer(updateResp.Peer),
	})
}

type RequestToggleInput struct {
	Position float64 `json:"position" validate:"gte=0"`
}

func (c controller) handleRequestToggle(ctx context.Context, _ *websocket.Conn, input RequestToggleInput) error {
	toggleResp, err := c.sessionService.RequestToggle(ctx, &service.RequestToggleParams{
		Session:  c.getSessionFromCtx(ctx),
		PeerId:   c.getPeerIdFromCtx(ctx),
		Position: input.Position,
	})
	if err != nil {
		return fmt.Errorf("failed to request toggle: %w", err)
	}

	if err := c.writeToConn(ctx, toggleResp.AuthorityConn, &protocol.Output{
		Type: protocol.TypeToggleRequested,
		Payload: protocol.ToggleRequested{
			RequesterId: toggleResp.RequesterId,
			Position:    toggleResp.Position,
		},
	}); err != nil {
		return fmt.Errorf("failed to deliver toggle request: %w", service.ErrNoAuthority)
	}

	return nil
}

type PublishStateInput struct {
	IsPlaying bool    `json:"is_playing"`
	Position  float64 `json:"position" validate:"gte=0"`
	Revision  uint64  `json:"revision"`
}

func (c controller) handlePublishState(ctx context.Context, _ *websocket.Conn, input PublishStateInput) error {
	publishResp, err := c.sessionService.PublishState(ctx, &service.PublishStateParams{
		Session:   c.getSessionFromCtx(ctx),
		PeerId:    c.getPeerIdFromCtx(ctx),
		IsPlaying: input.IsPlaying,
		Position:  input.Position,
		Revision:  input.Revision,
	})
	if err != nil {
		return fmt.Errorf("failed to publish state: %w", err)
	}

	c.broadcast(ctx, publishResp.Conns, &protocol.Output{
		Type:    protocol.TypeStateChanged,
		Payload: toProtocolPlayback(publishResp.Playback),
	})

	return nil
}

// handleWSError reports a failed message to its sender and keeps the
// connection open.
func (c controller) handleWSError(ctx context.Context, conn *websocket.Conn, err error) {
	c.metrics.HandlerErrors.WithLabelValues(wsrouter.GetMessageTypeFromCtx(ctx)).Inc()
	c.logger.InfoContext(ctx, "failed to handle message", "error", err)

	c.writeToConn(ctx, conn, errorOutput(err))
}
