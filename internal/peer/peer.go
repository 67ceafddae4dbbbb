// Package peer is the composition root of one watch-party participant. It
// owns the roster, notifier, playback controller, mic and connection
// lifecycle, and feeds them network events one at a time through an executor.
package peer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/sharetube/watchparty/internal/eventloop"
	"github.com/sharetube/watchparty/internal/lifecycle"
	"github.com/sharetube/watchparty/internal/playback"
	"github.com/sharetube/watchparty/internal/presence"
	"github.com/sharetube/watchparty/internal/protocol"
	"github.com/sharetube/watchparty/internal/roster"
	"github.com/sharetube/watchparty/internal/voice"
)

var ErrNotConnected = errors.New("peer is not connected")

// NetworkEvents receives what the session substrate reports. Implementations
// may be called from any goroutine.
type NetworkEvents interface {
	OnSessionJoined(protocol.SessionJoined)
	OnPeerJoined(protocol.Peer)
	OnPeerUpdated(protocol.Peer)
	OnPeerLeft(peerId int)
	OnStateChanged(protocol.Playback)
	OnToggleRequested(protocol.ToggleRequested)
	OnDisconnected(error)
}

// Session is an established connection to a watch-party session.
type Session interface {
	UpdateProfile(ctx context.Context, name string) error
	UpdateMic(ctx context.Context, enabled bool) error
	UpdateSpeaking(ctx context.Context, speaking bool) error
	RequestToggle(ctx context.Context, position float64) error
	PublishState(ctx context.Context, state playback.State) error
	Close() error
}

// Dialer opens a session. It reports OnSessionJoined before returning and
// every later event through events.
type Dialer interface {
	Dial(ctx context.Context, req lifecycle.Request, events NetworkEvents) (Session, error)
}

// Projection is the UI the peer pushes display descriptions to.
type Projection interface {
	RenderStatus(lifecycle.Status)
	RenderRoster(roster.View)
	RenderNotification(presence.Notification, presence.Phase)
	RenderPlayback(playback.View)
	RenderMic(voice.MicView)
}

type Config struct {
	SecondarySlots int
	DriftTolerance float64
	TickInterval   time.Duration
	Timings        presence.Timings
}

type Params struct {
	Config     Config
	Dialer     Dialer
	Surface    playback.Surface
	Recorder   voice.Recorder
	Projection Projection
	Executor   eventloop.Executor
	Scheduler  eventloop.Scheduler
	Logger     *slog.Logger
}

type Peer struct {
	cfg        Config
	dialer     Dialer
	executor   eventloop.Executor
	projection Projection
	logger     *slog.Logger

	lifecycle *lifecycle.Lifecycle
	roster    *roster.Store
	notifier  *presence.Notifier
	playback  *playback.Controller
	mic       *voice.Mic

	mu      sync.Mutex
	session Session
	name    string
	localId roster.ParticipantID
	// joined is closed once the pending session snapshot has been applied.
	joined chan struct{}
}

func New(params Params) *Peer {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p := &Peer{
		cfg:        params.Config,
		dialer:     params.Dialer,
		executor:   params.Executor,
		projection: params.Projection,
		logger:     logger,
	}

	if p.cfg.Timings == (presence.Timings{}) {
		p.cfg.Timings = presence.DefaultTimings()
	}

	var renderer presence.Renderer
	if params.Projection != nil {
		renderer = params.Projection
	} else {
		logger.Warn("projection is not bound, nothing will be displayed")
	}

	p.lifecycle = lifecycle.New(logger.With("component", "lifecycle"))
	p.notifier = presence.NewNotifier(params.Scheduler, renderer, p.cfg.Timings, logger.With("component", "presence"))
	p.roster = roster.NewStore(p.notifier, logger.With("component", "roster"), params.Config.SecondarySlots)
	p.playback = playback.NewController(params.Surface, publisher{p}, params.Config.DriftTolerance, logger.With("component", "playback"))
	p.mic = voice.NewMic(params.Recorder, logger.With("component", "voice"))

	if params.Projection != nil {
		p.lifecycle.Subscribe(params.Projection.RenderStatus)
		p.roster.Subscribe(func(c roster.Change) { params.Projection.RenderRoster(c.View) })
		p.playback.Subscribe(params.Projection.RenderPlayback)
	}

	return p
}

func (p *Peer) Lifecycle() *lifecycle.Lifecycle { return p.lifecycle }

func (p *Peer) Roster() *roster.Store { return p.roster }

func (p *Peer) Playback() *playback.Controller { return p.playback }

func (p *Peer) Mic() *voice.Mic { return p.mic }

// Render pushes the current state of every component to the projection.
func (p *Peer) Render() {
	if p.projection == nil {
		return
	}

	p.post(func() {
		p.projection.RenderStatus(p.lifecycle.Status())
		p.projection.RenderRoster(p.roster.View())
		p.projection.RenderPlayback(p.playback.View())
		p.projection.RenderMic(p.mic.View())
	})
}

// Connect creates or joins a session. Both intents take the same path. Once a
// name has been used or chosen with Rename it replaces req.Name.
func (p *Peer) Connect(ctx context.Context, req lifecycle.Request) error {
	if name := p.Name(); name != "" {
		req.Name = name
	}

	return p.lifecycle.Start(ctx, connector{p}, req)
}

// Name is the name the peer last connected with or chose with Rename.
func (p *Peer) Name() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.name
}

// Leave closes the current session.
func (p *Peer) Leave() error {
	session := p.currentSession()
	if session == nil {
		return ErrNotConnected
	}

	return session.Close()
}

func (p *Peer) TogglePlayback(ctx context.Context) {
	p.post(func() {
		if err := p.playback.Toggle(ctx); err != nil {
			p.logger.WarnContext(ctx, "failed to toggle playback", "error", err)
		}
	})
}

func (p *Peer) ToggleMic(ctx context.Context) {
	p.post(func() {
		view := p.mic.Toggle()
		if p.projection != nil {
			p.projection.RenderMic(view)
		}
		p.refreshLocal(func(md *roster.Metadata) { md.MicEnabled = view.Enabled })

		if session := p.currentSession(); session != nil {
			if err := session.UpdateMic(ctx, view.Enabled); err != nil {
				p.logger.WarnContext(ctx, "failed to update mic", "error", err)
			}
		}
	})
}

// Rename changes the local name. Names are trimmed and truncated the way the
// session server stores them, and a blank name is rejected.
func (p *Peer) Rename(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if err := validation.Validate(name, lifecycle.NameRule...); err != nil {
		return fmt.Errorf("invalid name: %w", err)
	}
	name = roster.TruncateName(name)

	p.mu.Lock()
	p.name = name
	p.mu.Unlock()

	p.post(func() {
		p.refreshLocal(func(md *roster.Metadata) { md.Name = name })

		if session := p.currentSession(); session != nil {
			if err := session.UpdateProfile(ctx, name); err != nil {
				p.logger.WarnContext(ctx, "failed to update profile", "error", err)
			}
		}
	})

	return nil
}

// Tick republishes the playback position on the authority and samples the
// speaking indicator.
func (p *Peer) Tick(ctx context.Context) {
	p.post(func() {
		if err := p.playback.Tick(ctx); err != nil && !errors.Is(err, ErrNotConnected) {
			p.logger.WarnContext(ctx, "failed to republish playback state", "error", err)
		}

		speaking, changed := p.mic.Sample()
		if !changed {
			return
		}
		p.refreshLocal(func(md *roster.Metadata) { md.IsSpeaking = speaking })

		if session := p.currentSession(); session != nil {
			if err := session.UpdateSpeaking(ctx, speaking); err != nil {
				p.logger.WarnContext(ctx, "failed to update speaking", "error", err)
			}
		}
	})
}

// Run ticks until ctx is done.
func (p *Peer) Run(ctx context.Context) error {
	interval := p.cfg.TickInterval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.notifier.Stop()
			return ctx.Err()
		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}

func (p *Peer) post(task func()) {
	if p.executor == nil {
		task()
		return
	}

	if err := p.executor.Post(task); err != nil {
		p.logger.Debug("task dropped", "error", err)
	}
}

func (p *Peer) currentSession() Session {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.session
}

func (p *Peer) setSession(s Session) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.session = s
}

// refreshLocal updates the local participant's metadata. Runs on the executor.
func (p *Peer) refreshLocal(update func(*roster.Metadata)) {
	local, ok := p.roster.Get(p.roster.LocalId())
	if !ok {
		return
	}

	md := local.Metadata
	update(&md)
	if _, err := p.roster.Upsert(local.ID, md); err != nil {
		p.logger.Warn("failed to refresh local participant", "error", err)
	}
}

type connector struct{ p *Peer }

// Connect returns once the session snapshot has been applied on the
// executor, so Connected is never shown ahead of the roster.
func (c connector) Connect(ctx context.Context, req lifecycle.Request) error {
	joined := make(chan struct{})
	c.p.mu.Lock()
	c.p.name = req.Name
	c.p.joined = joined
	c.p.mu.Unlock()

	session, err := c.p.dialer.Dial(ctx, req, events{c.p})
	if err != nil {
		return err
	}
	c.p.setSession(session)

	select {
	case <-joined:
	case <-ctx.Done():
		session.Close()
		return fmt.Errorf("failed to apply session snapshot: %w", ctx.Err())
	}

	if !c.p.mic.Enabled() {
		if err := session.UpdateMic(ctx, false); err != nil {
			c.p.logger.WarnContext(ctx, "failed to sync mic state", "error", err)
		}
	}

	return nil
}

type publisher struct{ p *Peer }

func (pub publisher) RequestToggle(ctx context.Context, position float64) error {
	session := pub.p.currentSession()
	if session == nil {
		return ErrNotConnected
	}

	return session.RequestToggle(ctx, position)
}

func (pub publisher) PublishState(ctx context.Context, state playback.State) error {
	session := pub.p.currentSession()
	if session == nil {
		return ErrNotConnected
	}

	return session.PublishState(ctx, state)
}
