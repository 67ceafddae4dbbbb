package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/samber/lo"
	"github.com/sharetube/watchparty/internal/observe"
)

var ErrInvalidTransition = errors.New("invalid connection state transition")

// Connector performs the connect-then-synchronize sequence. It returns once
// the initial session snapshot has been applied.
type Connector interface {
	Connect(ctx context.Context, req Request) error
}

// Lifecycle is the connection state machine. Status subscribers are called
// while the transition lock is held and must not call back into Lifecycle.
type Lifecycle struct {
	mu     sync.Mutex
	state  State
	feed   *observe.Feed[Status]
	logger *slog.Logger
}

func New(logger *slog.Logger) *Lifecycle {
	return &Lifecycle{
		state:  Idle,
		feed:   observe.NewFeed[Status](),
		logger: logger,
	}
}

func (l *Lifecycle) Subscribe(fn func(Status)) func() {
	return l.feed.Subscribe(fn)
}

func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.state
}

func (l *Lifecycle) Status() Status {
	return StatusFor(l.State())
}

// Start runs a create or join attempt. A failed attempt lands in Disconnected
// and may be retried by calling Start again.
func (l *Lifecycle) Start(ctx context.Context, connector Connector, req Request) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("failed to validate connect request: %w", err)
	}
	req = req.Normalized()

	if err := l.transition(Connecting, Idle, Disconnected); err != nil {
		return err
	}
	l.logger.InfoContext(ctx, "connecting", "intent", req.Intent.String(), "room", req.Room)

	if err := connector.Connect(ctx, req); err != nil {
		l.Drop(err)
		return fmt.Errorf("failed to %s session: %w", req.Intent, err)
	}

	if err := l.transition(Connected, Connecting); err != nil {
		return fmt.Errorf("session dropped while synchronizing: %w", err)
	}
	l.logger.InfoContext(ctx, "connected", "room", req.Room)

	return nil
}

// Drop moves a connecting or connected peer to Disconnected.
func (l *Lifecycle) Drop(cause error) {
	if err := l.transition(Disconnected, Connecting, Connected); err != nil {
		l.logger.Debug("drop ignored", "state", l.State().String())
		return
	}

	if cause != nil {
		l.logger.Warn("disconnected", "error", cause)
	} else {
		l.logger.Info("disconnected")
	}
}

func (l *Lifecycle) transition(to State, from ...State) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !lo.Contains(from, l.state) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, l.state, to)
	}

	l.state = to
	l.feed.Publish(StatusFor(to))

	return nil
}
