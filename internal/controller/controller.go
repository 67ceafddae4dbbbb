package controller

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/sharetube/watchparty/internal/metrics"
	"github.com/sharetube/watchparty/internal/service"
	"github.com/sharetube/watchparty/pkg/validator"
	"github.com/sharetube/watchparty/pkg/wsrouter"
)

type iSessionService interface {
	JoinSession(context.Context, *service.JoinSessionParams) (service.JoinSessionResponse, error)
	LeaveSession(context.Context, *websocket.Conn) (service.LeaveSessionResponse, error)
	KeepAlive(context.Context, *service.KeepAliveParams) error
	UpdateProfile(context.Context, *service.UpdateProfileParams) (service.UpdatePeerResponse, error)
	UpdateMic(context.Context, *service.UpdateMicParams) (service.UpdatePeerResponse, error)
	UpdateSpeaking(context.Context, *service.UpdateSpeakingParams) (service.UpdatePeerResponse, error)
	RequestToggle(context.Context, *service.RequestToggleParams) (service.RequestToggleResponse, error)
	PublishState(context.Context, *service.PublishStateParams) (service.PublishStateResponse, error)
}

type iConnWriter interface {
	Ready(*websocket.Conn, any) error
	Write(*websocket.Conn, any) error
}

type controller struct {
	sessionService iSessionService
	connWriter     iConnWriter
	upgrader       websocket.Upgrader
	validate       *validator.Validator
	metrics        *metrics.Metrics
	logger         *slog.Logger
	wsmux          *wsrouter.WSRouter
}

func NewController(sessionService iSessionService, connWriter iConnWriter, m *metrics.Metrics, logger *slog.Logger) *controller {
	c := &controller{
		sessionService: sessionService,
		connWriter:     connWriter,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		validate: validator.NewValidator(),
		metrics:  m,
		logger:   logger,
	}
	c.wsmux = c.getWSRouter()

	return c
}
