package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"
	"github.com/sharetube/watchparty/internal/protocol"
	"github.com/sharetube/watchparty/internal/service"
	"github.com/sharetube/watchparty/pkg/validator"
	"github.com/sharetube/watchparty/pkg/wsrouter"
)

const closeTimeout = time.Second

type envelope map[string]any

// generateTimeBasedId returns a uuid v7, so ids sort by creation time.
func (c controller) generateTimeBasedId() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return id.String()
}

func (c controller) writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		c.logger.WarnContext(ctx, "failed to write response", "error", err)
	}
}

var publicErrors = []error{
	service.ErrPermissionDenied,
	service.ErrPeerNotFound,
	service.ErrSessionFull,
	service.ErrNoAuthority,
	service.ErrStaleRevision,
	wsrouter.ErrUnknownMessageType,
	wsrouter.ErrInvalidPayload,
}

// publicMessage hides internal failures from peers.
func publicMessage(err error) string {
	if _, ok := lo.Find(publicErrors, func(target error) bool { return errors.Is(err, target) }); ok {
		return err.Error()
	}

	var validationErrs validation.Errors
	if errors.As(err, &validationErrs) {
		return err.Error()
	}

	var inputErrs validator.Errors
	if errors.As(err, &inputErrs) {
		return err.Error()
	}

	return "internal server error"
}

func errorOutput(err error) *protocol.Output {
	return &protocol.Output{
		Type:    protocol.TypeError,
		Payload: protocol.Error{Message: publicMessage(err)},
	}
}

// reject answers a connection that never joined and closes it.
func (c controller) reject(ctx context.Context, conn *websocket.Conn, err error) {
	conn.SetWriteDeadline(time.Now().Add(closeTimeout))
	if err := conn.WriteJSON(errorOutput(err)); err != nil {
		c.logger.DebugContext(ctx, "failed to write error", "error", err)
	}

	reason := publicMessage(err)
	if len(reason) > 120 {
		reason = reason[:120]
	}
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason),
		time.Now().Add(closeTimeout),
	)
}

func (c controller) writeToConn(ctx context.Context, conn *websocket.Conn, output *protocol.Output) error {
	if err := c.connWriter.Write(conn, output); err != nil {
		c.logger.InfoContext(ctx, "failed to write message", "type", output.Type, "error", err)
		return err
	}

	return nil
}

// broadcast delivers output to every conn. A failing recipient does not
// affect the others.
func (c controller) broadcast(ctx context.Context, conns service.Recipients, output *protocol.Output) {
	for _, conn := range conns {
		c.writeToConn(ctx, conn, output)
	}
}

func toProtocolPeer(p service.Peer) protocol.Peer {
	return protocol.Peer{
		Id:         p.Id,
		Name:       p.Name,
		MicEnabled: p.MicEnabled,
		IsSpeaking: p.IsSpeaking,
	}
}

func toProtocolPeers(peers []service.Peer) []protocol.Peer {
	return lo.Map(peers, func(p service.Peer, _ int) protocol.Peer {
		return toProtocolPeer(p)
	})
}

func toProtocolPlayback(p service.Playback) protocol.Playback {
	return protocol.Playback{
		IsPlaying:   p.IsPlaying,
		Position:    p.Position,
		Revision:    p.Revision,
		AuthorityId: p.AuthorityId,
	}
}
