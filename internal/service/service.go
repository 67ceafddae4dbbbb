package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sharetube/watchparty/internal/repository/connection"
	"github.com/sharetube/watchparty/internal/repository/session"
)

var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrPeerNotFound     = errors.New("peer not found")
	ErrSessionFull      = errors.New("session is full")
	ErrNoAuthority      = errors.New("session has no state authority")
	ErrStaleRevision    = errors.New("stale playback revision")
)

type iSessionRepo interface {
	// peer
	NextPeerId(context.Context, string) (int, error)
	SetPeer(context.Context, *session.SetPeerParams) error
	GetPeer(ctx context.Context, sessionName string, peerId int) (session.Peer, error)
	GetPeerIds(context.Context, string) ([]int, error)
	UpdatePeer(context.Context, *session.UpdatePeerParams) error
	RemovePeer(context.Context, *session.RemovePeerParams) error
	// playback
	EnsurePlayback(context.Context, string) error
	GetPlayback(context.Context, string) (session.Playback, error)
	SetPlayback(context.Context, *session.SetPlaybackParams) error
	SetAuthority(context.Context, *session.SetAuthorityParams) error
	// expiry
	Touch(context.Context, *session.TouchParams) error
}

type iConnRepo interface {
	Add(*websocket.Conn, connection.Member) error
	RemoveByConn(*websocket.Conn) (connection.Member, error)
	GetConn(connection.Member) (*websocket.Conn, error)
	IsConnected(connection.Member) bool
}

type service struct {
	sessionRepo  iSessionRepo
	connRepo     iConnRepo
	logger       *slog.Logger
	membersLimit int
	secret       []byte
	now          func() time.Time

	// mu serializes membership changes and authority designation.
	mu sync.Mutex
}

type Config struct {
	MembersLimit int
	Secret       string
}

func New(sessionRepo iSessionRepo, connRepo iConnRepo, logger *slog.Logger, cfg *Config) *service {
	return &service{
		sessionRepo:  sessionRepo,
		connRepo:     connRepo,
		logger:       logger,
		membersLimit: cfg.MembersLimit,
		secret:       []byte(cfg.Secret),
		now:          time.Now,
	}
}
