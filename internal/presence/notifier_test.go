package presence

import (
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharetube/watchparty/internal/eventloop/eventlooptest"
)

type rendered struct {
	id    string
	msg   string
	phase Phase
	at    time.Duration
}

type recordingRenderer struct {
	mu        sync.Mutex
	scheduler *eventlooptest.ManualScheduler
	got       []rendered
}

func (r *recordingRenderer) RenderNotification(n Notification, p Phase) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, rendered{id: n.Id, msg: n.Message(), phase: p, at: r.scheduler.Now()})
}

func (r *recordingRenderer) phasesOf(id string) []Phase {
	r.mu.Lock()
	defer r.mu.Unlock()

	var phases []Phase
	for _, g := range r.got {
		if g.id == id {
			phases = append(phases, g.phase)
		}
	}
	return phases
}

func newTestNotifier() (*Notifier, *recordingRenderer, *eventlooptest.ManualScheduler) {
	s := eventlooptest.NewManualScheduler()
	r := &recordingRenderer{scheduler: s}
	return NewNotifier(s, r, DefaultTimings(), slog.Default()), r, s
}

func TestNotifyRunsFullTimelineOnce(t *testing.T) {
	n, r, s := newTestNotifier()

	joined, err := n.Notify("ann", Joined)
	require.NoError(t, err)
	assert.Equal(t, "ann joined", joined.Message())
	assert.Equal(t, []Phase{Entering}, r.phasesOf(joined.Id))
	assert.Equal(t, 1, n.InFlight())

	s.Advance(399 * time.Millisecond)
	assert.Equal(t, []Phase{Entering}, r.phasesOf(joined.Id))

	s.Advance(time.Millisecond)
	assert.Equal(t, []Phase{Entering, Visible}, r.phasesOf(joined.Id))

	s.Advance(3 * time.Second)
	assert.Equal(t, []Phase{Entering, Visible, Leaving}, r.phasesOf(joined.Id))

	s.Advance(300 * time.Millisecond)
	assert.Equal(t, []Phase{Entering, Visible, Leaving, Removed}, r.phasesOf(joined.Id))
	assert.Equal(t, 0, n.InFlight())

	s.Advance(time.Minute)
	assert.Len(t, r.phasesOf(joined.Id), 4)
	assert.Equal(t, 0, s.Pending())
}

func TestJoinHeldLongerThanLeave(t *testing.T) {
	n, r, s := newTestNotifier()

	joined, err := n.Notify("ann", Joined)
	require.NoError(t, err)
	left, err := n.Notify("bob", Left)
	require.NoError(t, err)

	s.Advance(DefaultTimings().Total(Left))
	assert.Equal(t, []Phase{Entering, Visible, Leaving, Removed}, r.phasesOf(left.Id))
	assert.Equal(t, []Phase{Entering, Visible}, r.phasesOf(joined.Id))
	assert.Equal(t, 1, n.InFlight())

	s.Advance(DefaultTimings().Total(Joined) - DefaultTimings().Total(Left))
	assert.Equal(t, []Phase{Entering, Visible, Leaving, Removed}, r.phasesOf(joined.Id))
	assert.Equal(t, 0, n.InFlight())
}

func TestConcurrentNotificationsAreIndependent(t *testing.T) {
	n, r, s := newTestNotifier()

	first, _ := n.Notify("a", Joined)
	s.Advance(time.Second)
	second, _ := n.Notify("b", Joined)

	s.Advance(DefaultTimings().Total(Joined) - time.Second)
	assert.Equal(t, Removed, r.phasesOf(first.Id)[3])
	assert.Len(t, r.phasesOf(second.Id), 2)

	s.Advance(time.Second)
	assert.Len(t, r.phasesOf(second.Id), 4)

	for _, g := range r.got {
		if g.id == second.Id && g.phase == Removed {
			assert.Equal(t, time.Second+DefaultTimings().Total(Joined), g.at)
		}
	}
}

func TestAnnounceWithoutRendererIsNoop(t *testing.T) {
	n := NewNotifier(eventlooptest.NewManualScheduler(), nil, DefaultTimings(), slog.Default())

	n.Announce("x", true)
	_, err := n.Notify("x", Left)
	assert.ErrorIs(t, err, ErrRendererNotBound)
	assert.Equal(t, 0, n.InFlight())
}

func TestAnnounceMapsDirection(t *testing.T) {
	n, r, _ := newTestNotifier()

	n.Announce("ann", true)
	n.Announce("bob", false)

	require.Len(t, r.got, 2)
	assert.Equal(t, "ann joined", r.got[0].msg)
	assert.Equal(t, "bob left", r.got[1].msg)
}

func TestStopCancelsPendingTimelines(t *testing.T) {
	n, r, s := newTestNotifier()

	note, _ := n.Notify("ann", Joined)
	n.Stop()
	s.Advance(time.Minute)

	assert.Equal(t, []Phase{Entering}, r.phasesOf(note.Id))
	assert.Equal(t, 0, n.InFlight())
}

// firedScheduler models timers that already fired and whose tasks wait in
// the loop queue: stopping them has no effect.
type firedScheduler struct {
	queued []func()
}

func (s *firedScheduler) AfterFunc(_ time.Duration, f func()) func() bool {
	s.queued = append(s.queued, f)
	return func() bool { return false }
}

func TestStopDiscardsAlreadyFiredSteps(t *testing.T) {
	s := &firedScheduler{}
	r := &recordingRenderer{scheduler: eventlooptest.NewManualScheduler()}
	n := NewNotifier(s, r, DefaultTimings(), slog.Default())

	note, err := n.Notify("ann", Joined)
	require.NoError(t, err)
	require.Len(t, s.queued, 1)

	n.Stop()
	s.queued[0]()

	assert.Equal(t, []Phase{Entering}, r.phasesOf(note.Id))
	assert.Len(t, s.queued, 1)
	assert.Zero(t, n.InFlight())
}
