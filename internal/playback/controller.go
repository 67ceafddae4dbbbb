//go:generate go run go.uber.org/mock/mockgen -source=controller.go -destination=mocks/mock_controller.go -package=mocks
package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sharetube/watchparty/internal/observe"
)

var (
	ErrNotAuthority = errors.New("peer is not the state authority")
	ErrNoPublisher  = errors.New("playback publisher is not bound")
)

// Surface is the local video player.
type Surface interface {
	Play()
	Pause()
	IsPlaying() bool
	Time() float64
	Seek(position float64)
}

// Publisher carries toggle requests to the authority and authoritative state to followers.
type Publisher interface {
	RequestToggle(ctx context.Context, position float64) error
	PublishState(ctx context.Context, state State) error
}

// Controller drives the local surface toward the shared state and, on the
// state authority, owns that state.
type Controller struct {
	surface   Surface
	publisher Publisher
	tolerance float64
	authority bool
	state     State
	feed      *observe.Feed[View]
	logger    *slog.Logger
}

func NewController(surface Surface, publisher Publisher, tolerance float64, logger *slog.Logger) *Controller {
	if tolerance <= 0 {
		tolerance = DefaultDriftTolerance
	}

	return &Controller{
		surface:   surface,
		publisher: publisher,
		tolerance: tolerance,
		feed:      observe.NewFeed[View](),
		logger:    logger,
	}
}

func (c *Controller) Subscribe(fn func(View)) func() {
	return c.feed.Subscribe(fn)
}

func (c *Controller) SetAuthority(isAuthority bool) {
	if c.authority == isAuthority {
		return
	}

	c.authority = isAuthority
	c.logger.Info("playback authority changed", "is_authority", isAuthority)
	c.feed.Publish(c.View())
}

// Reset forgets the shared state and authority, as when the session ends.
func (c *Controller) Reset() {
	c.state = State{}
	c.authority = false
	c.feed.Publish(c.View())
}

func (c *Controller) IsAuthority() bool {
	return c.authority
}

func (c *Controller) State() State {
	return c.state
}

func (c *Controller) View() View {
	return View{
		IsPlaying:    c.state.IsPlaying,
		ShowPlayIcon: !c.state.IsPlaying,
		Position:     c.state.Position,
		IsAuthority:  c.authority,
	}
}

// Toggle is the local play/pause intent. The authority handles it directly;
// everyone else forwards it with the locally observed position.
func (c *Controller) Toggle(ctx context.Context) error {
	if c.surface == nil {
		c.logger.Warn("toggle ignored, video surface is not bound")
		return nil
	}

	position := c.surface.Time()
	if c.authority {
		return c.HandleToggleRequest(ctx, position)
	}

	if c.publisher == nil {
		return ErrNoPublisher
	}

	if err := c.publisher.RequestToggle(ctx, position); err != nil {
		return fmt.Errorf("failed to request toggle: %w", err)
	}

	return nil
}

// HandleToggleRequest flips the shared state and stamps the requester's position.
func (c *Controller) HandleToggleRequest(ctx context.Context, requestPosition float64) error {
	if !c.authority {
		return ErrNotAuthority
	}

	c.state = State{
		IsPlaying: !c.state.IsPlaying,
		Position:  requestPosition,
		Revision:  c.state.Revision + 1,
	}
	c.logger.Debug("playback toggled", "is_playing", c.state.IsPlaying, "position", c.state.Position)
	c.drive(c.state)

	return c.publish(ctx)
}

// Apply takes a replicated state from the authority. States older than the
// last applied revision are dropped. It reports whether the surface seeked.
func (c *Controller) Apply(s State) bool {
	if s.Revision < c.state.Revision {
		c.logger.Debug("stale playback state dropped", "revision", s.Revision, "current_revision", c.state.Revision)
		return false
	}

	c.state = s
	return c.drive(s)
}

// Tick republishes the authority's true position while playing.
func (c *Controller) Tick(ctx context.Context) error {
	if !c.authority || !c.state.IsPlaying || c.surface == nil || !c.surface.IsPlaying() {
		return nil
	}

	c.state.Position = c.surface.Time()
	c.state.Revision++

	return c.publish(ctx)
}

func (c *Controller) publish(ctx context.Context) error {
	if c.publisher == nil {
		return ErrNoPublisher
	}

	if err := c.publisher.PublishState(ctx, c.state); err != nil {
		return fmt.Errorf("failed to publish playback state: %w", err)
	}

	return nil
}

func (c *Controller) drive(s State) bool {
	defer c.feed.Publish(c.View())

	if c.surface == nil {
		c.logger.Warn("playback state not applied, video surface is not bound")
		return false
	}

	if s.IsPlaying && !c.surface.IsPlaying() {
		c.surface.Play()
	} else if !s.IsPlaying && c.surface.IsPlaying() {
		c.surface.Pause()
	}

	target, seek := Reconcile(s.Position, c.surface.Time(), c.tolerance)
	if seek {
		c.logger.Debug("resyncing video", "position", target)
		c.surface.Seek(target)
	}

	return seek
}
