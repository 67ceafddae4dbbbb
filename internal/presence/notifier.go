package presence

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sharetube/watchparty/internal/eventloop"
)

var ErrRendererNotBound = errors.New("notification renderer is not bound")

// Renderer displays a notification in the given phase.
type Renderer interface {
	RenderNotification(Notification, Phase)
}

type step struct {
	after time.Duration
	phase Phase
}

type timeline struct {
	stop    func() bool
	stopped bool
}

// Notifier turns roster joins and leaves into timed notifications. Every
// notification owns its own timeline; announcing never waits on it.
type Notifier struct {
	scheduler eventloop.Scheduler
	renderer  Renderer
	timings   Timings
	now       func() time.Time
	logger    *slog.Logger

	mu       sync.Mutex
	inFlight map[string]*timeline
}

func NewNotifier(scheduler eventloop.Scheduler, renderer Renderer, timings Timings, logger *slog.Logger) *Notifier {
	return &Notifier{
		scheduler: scheduler,
		renderer:  renderer,
		timings:   timings,
		now:       time.Now,
		logger:    logger,
		inFlight:  make(map[string]*timeline),
	}
}

// Announce satisfies roster.Announcer.
func (n *Notifier) Announce(name string, joined bool) {
	direction := Left
	if joined {
		direction = Joined
	}

	if _, err := n.Notify(name, direction); err != nil {
		n.logger.Warn("notification skipped", "name", name, "direction", direction, "error", err)
	}
}

// Notify shows a notification and schedules the rest of its timeline.
func (n *Notifier) Notify(name string, direction Direction) (Notification, error) {
	if n.renderer == nil || n.scheduler == nil {
		return Notification{}, ErrRendererNotBound
	}

	notification := Notification{
		Id:        uuid.NewString(),
		Name:      name,
		Direction: direction,
		CreatedAt: n.now(),
	}

	tl := &timeline{}
	n.mu.Lock()
	n.inFlight[notification.Id] = tl
	n.mu.Unlock()

	n.renderer.RenderNotification(notification, Entering)
	n.run(notification, tl, []step{
		{after: n.timings.Enter, phase: Visible},
		{after: n.timings.Hold(direction), phase: Leaving},
		{after: n.timings.Fade, phase: Removed},
	})

	return notification, nil
}

// run schedules the first step. A step whose timer already fired when the
// timeline was stopped still runs, so it checks the stopped flag itself.
func (n *Notifier) run(notification Notification, tl *timeline, steps []step) {
	if len(steps) == 0 {
		return
	}

	current := steps[0]
	stop := n.scheduler.AfterFunc(current.after, func() {
		n.mu.Lock()
		stopped := tl.stopped
		n.mu.Unlock()
		if stopped {
			return
		}

		n.renderer.RenderNotification(notification, current.phase)
		if current.phase == Removed {
			n.mu.Lock()
			delete(n.inFlight, notification.Id)
			n.mu.Unlock()
			return
		}
		n.run(notification, tl, steps[1:])
	})

	n.mu.Lock()
	tl.stop = stop
	n.mu.Unlock()
}

// InFlight returns the number of notifications that have not been removed yet.
func (n *Notifier) InFlight() int {
	n.mu.Lock()
	defer n.mu.Unlock()

	return len(n.inFlight)
}

// Stop cancels every pending timeline.
func (n *Notifier) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()

	for id, tl := range n.inFlight {
		tl.stopped = true
		if tl.stop != nil {
			tl.stop()
		}
		delete(n.inFlight, id)
	}
}
