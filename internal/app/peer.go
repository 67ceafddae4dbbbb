package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/sharetube/watchparty/internal/eventloop"
	"github.com/sharetube/watchparty/internal/lifecycle"
	"github.com/sharetube/watchparty/internal/peer"
	"github.com/sharetube/watchparty/internal/playback"
	"github.com/sharetube/watchparty/internal/projection/terminal"
	"github.com/sharetube/watchparty/internal/transport/wsclient"
	"github.com/sharetube/watchparty/internal/voice"
	"golang.org/x/sync/errgroup"
)

var errQuit = errors.New("quit")

type PeerConfig struct {
	ServerURL      string        `json:"server_url"`
	Name           string        `json:"name"`
	Room           string        `json:"room"`
	Intent         string        `json:"intent"`
	LogLevel       string        `json:"log_level"`
	TickInterval   time.Duration `json:"tick_interval"`
	Keepalive      time.Duration `json:"keepalive"`
	DriftTolerance float64       `json:"drift_tolerance"`
	SecondarySlots int           `json:"secondary_slots"`
	VideoDuration  float64       `json:"video_duration"`
	Colors         bool          `json:"colors"`
}

func (cfg *PeerConfig) Validate() error {
	return validation.ValidateStruct(cfg,
		validation.Field(&cfg.ServerURL, validation.Required),
		validation.Field(&cfg.Name, lifecycle.NameRule...),
		validation.Field(&cfg.Room, lifecycle.RoomRule...),
		validation.Field(&cfg.Intent, validation.Required, validation.In("create", "join")),
		validation.Field(&cfg.TickInterval, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&cfg.DriftTolerance, validation.Min(0.0)),
		validation.Field(&cfg.SecondarySlots, validation.Min(1)),
		validation.Field(&cfg.VideoDuration, validation.Required, validation.Min(1.0)),
	)
}

// RunPeer connects a headless peer and renders it to out. Commands are read
// line by line from in until "quit" or ctx is done.
func RunPeer(ctx context.Context, cfg *PeerConfig, in io.Reader, out io.Writer) error {
	logger, err := newLogger(cfg.LogLevel, os.Stderr)
	if err != nil {
		return err
	}

	intent, err := lifecycle.ParseIntent(cfg.Intent)
	if err != nil {
		return err
	}

	dialer, err := wsclient.NewDialer(cfg.ServerURL, cfg.Keepalive, logger.With("component", "wsclient"))
	if err != nil {
		return err
	}

	loop := eventloop.New(256)
	p := peer.New(peer.Params{
		Config: peer.Config{
			SecondarySlots: cfg.SecondarySlots,
			DriftTolerance: cfg.DriftTolerance,
			TickInterval:   cfg.TickInterval,
		},
		Dialer:     dialer,
		Surface:    playback.NewVirtualSurface(cfg.VideoDuration, time.Now),
		Recorder:   &voice.NullRecorder{},
		Projection: terminal.New(out, cfg.Colors),
		Executor:   loop,
		Scheduler:  loop,
		Logger:     logger,
	})
	req := lifecycle.Request{Name: cfg.Name, Room: cfg.Room, Intent: intent}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return loop.Run(ctx) })
	g.Go(func() error { return p.Run(ctx) })
	g.Go(func() error {
		p.Render()
		connect(ctx, p, req)
		return runCommands(ctx, p, req, in)
	})

	err = g.Wait()
	if leaveErr := p.Leave(); leaveErr != nil && !errors.Is(leaveErr, peer.ErrNotConnected) {
		logger.Warn("failed to leave session", "error", leaveErr)
	}

	if errors.Is(err, errQuit) || errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}

func connect(ctx context.Context, p *peer.Peer, req lifecycle.Request) {
	if err := p.Connect(ctx, req); err != nil {
		fmt.Fprintf(os.Stderr, "connect failed: %v\n", err)
	}
}

func readLines(in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	return lines
}

func runCommands(ctx context.Context, p *peer.Peer, req lifecycle.Request, in io.Reader) error {
	if in == nil {
		<-ctx.Done()
		return ctx.Err()
	}

	lines := readLines(in)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}

			if err := runCommand(ctx, p, req, line); err != nil {
				return err
			}
		}
	}
}

func runCommand(ctx context.Context, p *peer.Peer, req lifecycle.Request, line string) error {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	switch strings.ToLower(cmd) {
	case "":
	case "t", "toggle":
		p.TogglePlayback(ctx)
	case "m", "mic":
		p.ToggleMic(ctx)
	case "n", "name":
		if err := p.Rename(ctx, arg); err != nil {
			fmt.Fprintf(os.Stderr, "rename failed: %v\n", err)
		}
	case "s", "status":
		p.Render()
	case "l", "leave":
		if err := p.Leave(); err != nil {
			fmt.Fprintf(os.Stderr, "leave failed: %v\n", err)
		}
	case "c", "connect":
		connect(ctx, p, req)
	case "q", "quit":
		return errQuit
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q (toggle, mic, name <name>, status, leave, connect, quit)\n", cmd)
	}

	return nil
}
