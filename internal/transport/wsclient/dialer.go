// Package wsclient connects a peer to the session server over websocket.
package wsclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sharetube/watchparty/internal/lifecycle"
	"github.com/sharetube/watchparty/internal/peer"
	"github.com/sharetube/watchparty/internal/protocol"
)

var (
	ErrRejected          = errors.New("session server rejected the connection")
	ErrUnexpectedMessage = errors.New("unexpected message")
)

const (
	handshakeTimeout = 10 * time.Second
	writeTimeout     = 5 * time.Second
)

type Dialer struct {
	baseURL   *url.URL
	dialer    *websocket.Dialer
	keepalive time.Duration
	logger    *slog.Logger

	mu     sync.Mutex
	tokens map[string]string
}

// NewDialer accepts http(s) or ws(s) server urls.
func NewDialer(serverURL string, keepalive time.Duration, logger *slog.Logger) (*Dialer, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse server url: %w", err)
	}

	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return nil, fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}

	return &Dialer{
		baseURL:   u,
		dialer:    &websocket.Dialer{HandshakeTimeout: handshakeTimeout},
		keepalive: keepalive,
		logger:    logger,
		tokens:    make(map[string]string),
	}, nil
}

func (d *Dialer) sessionURL(req lifecycle.Request) string {
	u := *d.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/api/v1/ws/session/" + url.PathEscape(req.Room) + "/" + req.Intent.String()

	q := url.Values{}
	q.Set("name", req.Name)
	if token := d.authToken(req.Room); token != "" {
		q.Set("auth-token", token)
	}
	u.RawQuery = q.Encode()

	return u.String()
}

func (d *Dialer) authToken(room string) string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.tokens[room]
}

func (d *Dialer) setAuthToken(room, token string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.tokens[room] = token
}

// Dial connects, waits for the session snapshot and starts pumping events.
func (d *Dialer) Dial(ctx context.Context, req lifecycle.Request, events peer.NetworkEvents) (peer.Session, error) {
	conn, resp, err := d.dialer.DialContext(ctx, d.sessionURL(req), nil)
	if err != nil {
		if errors.Is(err, websocket.ErrBadHandshake) && resp != nil {
			return nil, fmt.Errorf("%w: %s", ErrRejected, readRejection(resp))
		}

		return nil, fmt.Errorf("failed to dial session server: %w", err)
	}

	joined, err := handshake(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	d.setAuthToken(req.Room, joined.AuthToken)
	d.logger.InfoContext(ctx, "session joined", "session", joined.Session, "peer_id", joined.PeerId)

	events.OnSessionJoined(joined)

	s := newSession(conn, events, d.keepalive, d.logger.With("session", joined.Session))
	s.start()

	return s, nil
}

func handshake(conn *websocket.Conn) (protocol.SessionJoined, error) {
	if err := conn.SetReadDeadline(time.Now().Add(handshakeTimeout)); err != nil {
		return protocol.SessionJoined{}, err
	}
	defer conn.SetReadDeadline(time.Time{})

	var msg protocol.Input
	if err := conn.ReadJSON(&msg); err != nil {
		return protocol.SessionJoined{}, fmt.Errorf("failed to read session snapshot: %w", err)
	}

	switch msg.Type {
	case protocol.TypeSessionJoined:
		var joined protocol.SessionJoined
		if err := json.Unmarshal(msg.Payload, &joined); err != nil {
			return protocol.SessionJoined{}, fmt.Errorf("failed to decode session snapshot: %w", err)
		}
		return joined, nil
	case protocol.TypeError:
		var e protocol.Error
		_ = json.Unmarshal(msg.Payload, &e)
		return protocol.SessionJoined{}, fmt.Errorf("%w: %s", ErrRejected, e.Message)
	default:
		return protocol.SessionJoined{}, fmt.Errorf("%w: %s", ErrUnexpectedMessage, msg.Type)
	}
}

func readRejection(resp *http.Response) string {
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil || len(body) == 0 {
		return resp.Status
	}

	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != "" {
		return envelope.Error
	}

	return strings.TrimSpace(string(body))
}
