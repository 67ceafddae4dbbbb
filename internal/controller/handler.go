package controller

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/sharetube/watchparty/internal/lifecycle"
	"github.com/sharetube/watchparty/internal/protocol"
	"github.com/sharetube/watchparty/internal/service"
	"github.com/sharetube/watchparty/pkg/ctxlogger"
	"github.com/sharetube/watchparty/pkg/validator"
)

type sessionQuery struct {
	Session   string `json:"session-name" validate:"required,max=64"`
	Name      string `json:"name" validate:"required"`
	AuthToken string `json:"auth-token"`
}

// sessionHandler upgrades the request and serves the peer until it
// disconnects. Create and join only differ in the reported intent.
func (c controller) sessionHandler(intent lifecycle.Intent) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		query := sessionQuery{
			Session:   chi.URLParam(r, "session-name"),
			Name:      r.URL.Query().Get("name"),
			AuthToken: r.URL.Query().Get("auth-token"),
		}

		if errs, ok := c.validate.Validate(query); !ok {
			c.logger.DebugContext(ctx, "invalid session query", "errors", errs)
			c.metrics.Joins.WithLabelValues(intent.String(), "invalid").Inc()
			c.writeJSON(ctx, w, http.StatusBadRequest, envelope{
				"error":  validator.Errors(errs).Error(),
				"errors": errs,
			})
			return
		}

		conn, err := c.upgrader.Upgrade(w, r, nil)
		if err != nil {
			c.logger.WarnContext(ctx, "failed to upgrade to websocket", "error", err)
			return
		}
		defer conn.Close()

		joinResp, err := c.sessionService.JoinSession(ctx, &service.JoinSessionParams{
			Conn:      conn,
			Session:   query.Session,
			Name:      query.Name,
			AuthToken: query.AuthToken,
		})
		if err != nil {
			c.logger.InfoContext(ctx, "failed to join session", "session", query.Session, "error", err)
			c.metrics.Joins.WithLabelValues(intent.String(), "rejected").Inc()
			c.reject(ctx, conn, err)
			return
		}
		c.metrics.Joins.WithLabelValues(intent.String(), "ok").Inc()
		c.metrics.ConnectedPeers.Inc()
		defer c.metrics.ConnectedPeers.Dec()

		ctx = context.WithValue(ctx, sessionCtxKey, joinResp.Session)
		ctx = context.WithValue(ctx, peerIdCtxKey, joinResp.PeerId)
		ctx = ctxlogger.AppendCtx(ctx, slog.String("session", joinResp.Session))
		ctx = ctxlogger.AppendCtx(ctx, slog.Int("peer_id", joinResp.PeerId))
		defer c.disconnect(context.WithoutCancel(ctx), conn)

		if err := c.connWriter.Ready(conn, &protocol.Output{
			Type: protocol.TypeSessionJoined,
			Payload: protocol.SessionJoined{
				AuthToken: joinResp.AuthToken,
				Session:   joinResp.Session,
				PeerId:    joinResp.PeerId,
				Peers:     toProtocolPeers(joinResp.Peers),
				Playback:  toProtocolPlayback(joinResp.Playback),
			},
		}); err != nil {
			c.logger.WarnContext(ctx, "failed to write session snapshot", "error", err)
			return
		}
		c.logger.InfoContext(ctx, "peer joined", "intent", intent.String(), "peers", len(joinResp.Peers))

		c.broadcast(ctx, joinResp.Conns, &protocol.Output{
			Type:    protocol.TypePeerJoined,
			Payload: toProtocolPeer(joinResp.Peer),
		})
		if joinResp.AuthorityChanged {
			c.metrics.AuthorityMoves.Inc()
			c.broadcast(ctx, joinResp.Conns, &protocol.Output{
				Type:    protocol.TypeStateChanged,
				Payload: toProtocolPlayback(joinResp.Playback),
			})
		}

		if err := c.wsmux.ServeConn(ctx, conn); err != nil {
			c.logger.InfoContext(ctx, "connection closed", "error", err)
		}
	}
}

func (c controller) disconnect(ctx context.Context, conn *websocket.Conn) {
	leaveResp, err := c.sessionService.LeaveSession(ctx, conn)
	if err != nil {
		c.logger.WarnContext(ctx, "failed to leave session", "error", err)
		return
	}

	c.broadcast(ctx, leaveResp.Conns, &protocol.Output{
		Type:    protocol.TypePeerLeft,
		Payload: protocol.PeerLeft{PeerId: leaveResp.PeerId},
	})

	if leaveResp.AuthorityChanged {
		c.metrics.AuthorityMoves.Inc()
		c.broadcast(ctx, leaveResp.Conns, &protocol.Output{
			Type:    protocol.TypeStateChanged,
			Payload: toProtocolPlayback(leaveResp.Playback),
		})
	}
}
