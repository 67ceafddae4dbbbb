package peer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/sharetube/watchparty/internal/eventloop"
	"github.com/sharetube/watchparty/internal/eventloop/eventlooptest"
	"github.com/sharetube/watchparty/internal/lifecycle"
	"github.com/sharetube/watchparty/internal/playback"
	"github.com/sharetube/watchparty/internal/presence"
	"github.com/sharetube/watchparty/internal/protocol"
	"github.com/sharetube/watchparty/internal/roster"
	"github.com/sharetube/watchparty/internal/voice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	mu        sync.Mutex
	toggles   []float64
	published []playback.State
	mic       []bool
	speaking  []bool
	profiles  []string
	closed    bool
}

func (s *fakeSession) UpdateProfile(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles = append(s.profiles, name)
	return nil
}

func (s *fakeSession) UpdateMic(_ context.Context, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mic = append(s.mic, enabled)
	return nil
}

func (s *fakeSession) UpdateSpeaking(_ context.Context, speaking bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.speaking = append(s.speaking, speaking)
	return nil
}

func (s *fakeSession) RequestToggle(_ context.Context, position float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toggles = append(s.toggles, position)
	return nil
}

func (s *fakeSession) PublishState(_ context.Context, state playback.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published = append(s.published, state)
	return nil
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

type fakeDialer struct {
	joined   protocol.SessionJoined
	err      error
	session  *fakeSession
	events   NetworkEvents
	requests []lifecycle.Request
}

func (d *fakeDialer) Dial(_ context.Context, req lifecycle.Request, events NetworkEvents) (Session, error) {
	d.requests = append(d.requests, req)
	if d.err != nil {
		return nil, d.err
	}

	d.events = events
	events.OnSessionJoined(d.joined)
	return d.session, nil
}

type recordingProjection struct {
	statuses      []lifecycle.Status
	rosters       []roster.View
	notifications []string
	playbacks     []playback.View
	mics          []voice.MicView
}

func (r *recordingProjection) RenderStatus(s lifecycle.Status) { r.statuses = append(r.statuses, s) }
func (r *recordingProjection) RenderRoster(v roster.View)      { r.rosters = append(r.rosters, v) }
func (r *recordingProjection) RenderPlayback(v playback.View)  { r.playbacks = append(r.playbacks, v) }
func (r *recordingProjection) RenderMic(v voice.MicView)       { r.mics = append(r.mics, v) }

func (r *recordingProjection) RenderNotification(n presence.Notification, phase presence.Phase) {
	if phase == presence.Entering {
		r.notifications = append(r.notifications, n.Message())
	}
}

func (r *recordingProjection) lastRoster() roster.View {
	return r.rosters[len(r.rosters)-1]
}

type harness struct {
	peer       *Peer
	dialer     *fakeDialer
	session    *fakeSession
	projection *recordingProjection
	surface    *playback.VirtualSurface
	recorder   *voice.NullRecorder
	scheduler  *eventlooptest.ManualScheduler
}

func newHarness(joined protocol.SessionJoined) *harness {
	session := &fakeSession{}
	h := &harness{
		dialer:     &fakeDialer{joined: joined, session: session},
		session:    session,
		projection: &recordingProjection{},
		surface:    playback.NewVirtualSurface(0, func() time.Time { return time.Unix(0, 0) }),
		recorder:   &voice.NullRecorder{},
		scheduler:  eventlooptest.NewManualScheduler(),
	}

	h.peer = New(Params{
		Dialer:     h.dialer,
		Surface:    h.surface,
		Recorder:   h.recorder,
		Projection: h.projection,
		Executor:   eventloop.Inline{},
		Scheduler:  h.scheduler,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	return h
}

func slotIds(v roster.View) []roster.ParticipantID {
	ids := make([]roster.ParticipantID, 0, len(v.Slots))
	for _, c := range v.Slots {
		ids = append(ids, c.ID)
	}
	return ids
}

func snapshot(localId, authorityId int, peers ...protocol.Peer) protocol.SessionJoined {
	return protocol.SessionJoined{
		Session:  "movie-night",
		PeerId:   localId,
		Peers:    peers,
		Playback: protocol.Playback{AuthorityId: authorityId},
	}
}

func TestPeer_ConnectBuildsRosterFromSnapshot(t *testing.T) {
	h := newHarness(snapshot(3, 1,
		protocol.Peer{Id: 7, Name: "carol", MicEnabled: true},
		protocol.Peer{Id: 3, Name: "alice", MicEnabled: true},
		protocol.Peer{Id: 1, Name: "bob", MicEnabled: false},
	))

	err := h.peer.Connect(context.Background(), lifecycle.Request{Name: "alice", Room: "movie-night", Intent: lifecycle.Create})
	require.NoError(t, err)

	require.Len(t, h.projection.statuses, 2)
	assert.Equal(t, "Connecting ...", h.projection.statuses[0].Label)
	assert.Equal(t, "Connected ...", h.projection.statuses[1].Label)

	view := h.projection.lastRoster()
	assert.Equal(t, "alice (You)", view.Local.Label)
	assert.Equal(t, []roster.ParticipantID{1, 7, roster.NoParticipant}, slotIds(view))
	assert.True(t, view.Slots[2].Empty)
	assert.Equal(t, "3 out of 4 users connected", view.UsersCount)
	assert.Equal(t, "Room: #movie-night", view.RoomCode)
	assert.False(t, h.peer.Playback().IsAuthority())
}

func TestPeer_RosterConvergesRegardlessOfEventOrder(t *testing.T) {
	h := newHarness(snapshot(4, 4, protocol.Peer{Id: 4, Name: "me"}))
	require.NoError(t, h.peer.Connect(context.Background(), lifecycle.Request{Name: "me", Room: "r", Intent: lifecycle.Join}))

	ev := h.dialer.events
	ev.OnPeerJoined(protocol.Peer{Id: 9, Name: "C"})
	ev.OnPeerJoined(protocol.Peer{Id: 5, Name: "B"})
	ev.OnPeerJoined(protocol.Peer{Id: 2, Name: "A"})

	assert.Equal(t, []roster.ParticipantID{2, 5, 9}, slotIds(h.projection.lastRoster()))

	ev.OnPeerLeft(2)
	view := h.projection.lastRoster()
	assert.Equal(t, []roster.ParticipantID{5, 9, roster.NoParticipant}, slotIds(view))
	assert.True(t, view.Slots[2].Empty)

	assert.Equal(t, []string{"me joined", "C joined", "B joined", "A joined", "A left"}, h.projection.notifications)

	// unknown leave is ignored
	ev.OnPeerLeft(42)
	assert.Len(t, h.projection.notifications, 5)
}

func TestPeer_LateNameDoesNotAnnounceTwice(t *testing.T) {
	h := newHarness(snapshot(1, 1, protocol.Peer{Id: 1, Name: "me"}))
	require.NoError(t, h.peer.Connect(context.Background(), lifecycle.Request{Name: "me", Room: "r"}))

	h.dialer.events.OnPeerJoined(protocol.Peer{Id: 6})
	assert.Equal(t, "Player 6", h.projection.lastRoster().Slots[0].Label)

	h.dialer.events.OnPeerUpdated(protocol.Peer{Id: 6, Name: "dave"})
	assert.Equal(t, "dave", h.projection.lastRoster().Slots[0].Label)
	assert.Equal(t, []string{"me joined", "Player 6 joined"}, h.projection.notifications)
}

func TestPeer_FollowerForwardsToggle(t *testing.T) {
	h := newHarness(snapshot(2, 1, protocol.Peer{Id: 1, Name: "host"}, protocol.Peer{Id: 2, Name: "me"}))
	require.NoError(t, h.peer.Connect(context.Background(), lifecycle.Request{Name: "me", Room: "r"}))
	h.surface.Seek(12.2)

	h.peer.TogglePlayback(context.Background())

	assert.Equal(t, []float64{12.2}, h.session.toggles)
	assert.Empty(t, h.session.published)
}

func TestPeer_AuthorityHandlesToggleRequests(t *testing.T) {
	h := newHarness(snapshot(1, 1, protocol.Peer{Id: 1, Name: "host"}, protocol.Peer{Id: 2, Name: "guest"}))
	require.NoError(t, h.peer.Connect(context.Background(), lifecycle.Request{Name: "host", Room: "r"}))
	require.True(t, h.peer.Playback().IsAuthority())

	h.dialer.events.OnToggleRequested(protocol.ToggleRequested{RequesterId: 2, Position: 12.3})

	require.Len(t, h.session.published, 1)
	assert.Equal(t, playback.State{IsPlaying: true, Position: 12.3, Revision: 1}, h.session.published[0])
	assert.True(t, h.surface.IsPlaying())
	assert.InDelta(t, 12.3, h.surface.Time(), 1e-9)
}

func TestPeer_FollowerAppliesStateAndAuthorityMoves(t *testing.T) {
	h := newHarness(snapshot(2, 1, protocol.Peer{Id: 1, Name: "host"}, protocol.Peer{Id: 2, Name: "me"}))
	require.NoError(t, h.peer.Connect(context.Background(), lifecycle.Request{Name: "me", Room: "r"}))
	h.surface.Seek(12.9)

	h.dialer.events.OnStateChanged(protocol.Playback{IsPlaying: true, Position: 12.3, Revision: 1, AuthorityId: 1})
	assert.True(t, h.surface.IsPlaying())
	assert.InDelta(t, 12.3, h.surface.Time(), 1e-9)

	h.dialer.events.OnPeerLeft(1)
	h.dialer.events.OnStateChanged(protocol.Playback{IsPlaying: true, Position: 12.3, Revision: 1, AuthorityId: 2})
	assert.True(t, h.peer.Playback().IsAuthority())

	h.peer.Tick(context.Background())
	require.Len(t, h.session.published, 1)
	assert.Equal(t, uint64(2), h.session.published[0].Revision)
}

func TestPeer_DisconnectResetsState(t *testing.T) {
	h := newHarness(snapshot(1, 1, protocol.Peer{Id: 1, Name: "me"}, protocol.Peer{Id: 2, Name: "you"}))
	require.NoError(t, h.peer.Connect(context.Background(), lifecycle.Request{Name: "me", Room: "r"}))

	h.dialer.events.OnDisconnected(errors.New("read: connection reset"))

	assert.Equal(t, lifecycle.Disconnected, h.peer.Lifecycle().State())
	assert.Equal(t, "Ready to connect", h.projection.statuses[len(h.projection.statuses)-1].Label)
	assert.Zero(t, h.peer.Roster().Len())
	assert.False(t, h.peer.Playback().IsAuthority())
	assert.ErrorIs(t, h.peer.Leave(), ErrNotConnected)

	// the user may retry
	require.NoError(t, h.peer.Connect(context.Background(), lifecycle.Request{Name: "me", Room: "r"}))
	assert.Equal(t, lifecycle.Connected, h.peer.Lifecycle().State())
}

func TestPeer_ConnectFailure(t *testing.T) {
	h := newHarness(protocol.SessionJoined{})
	h.dialer.err = errors.New("session is full")

	err := h.peer.Connect(context.Background(), lifecycle.Request{Name: "me", Room: "r"})

	assert.ErrorIs(t, err, h.dialer.err)
	assert.Equal(t, lifecycle.Disconnected, h.peer.Lifecycle().State())
}

func TestPeer_ConnectRejectsBlankForm(t *testing.T) {
	h := newHarness(protocol.SessionJoined{})

	err := h.peer.Connect(context.Background(), lifecycle.Request{Name: " ", Room: "r"})

	assert.Error(t, err)
	assert.Empty(t, h.dialer.requests)
	assert.Equal(t, lifecycle.Idle, h.peer.Lifecycle().State())
}

func TestPeer_ToggleMic(t *testing.T) {
	h := newHarness(snapshot(1, 1, protocol.Peer{Id: 1, Name: "me", MicEnabled: true}))
	require.NoError(t, h.peer.Connect(context.Background(), lifecycle.Request{Name: "me", Room: "r"}))

	h.peer.ToggleMic(context.Background())

	assert.Equal(t, []bool{false}, h.session.mic)
	require.NotEmpty(t, h.projection.mics)
	assert.Equal(t, "Mic Off", h.projection.mics[len(h.projection.mics)-1].Tooltip)
	assert.False(t, h.projection.lastRoster().Local.MicEnabled)
	assert.False(t, h.recorder.IsTransmitting())
}

func TestPeer_TickPublishesSpeakingChanges(t *testing.T) {
	h := newHarness(snapshot(1, 1, protocol.Peer{Id: 1, Name: "me", MicEnabled: true}))
	require.NoError(t, h.peer.Connect(context.Background(), lifecycle.Request{Name: "me", Room: "r"}))

	h.recorder.SetAmplitude(0.4)
	h.peer.Tick(context.Background())
	h.peer.Tick(context.Background())
	h.recorder.SetAmplitude(0)
	h.peer.Tick(context.Background())

	assert.Equal(t, []bool{true, false}, h.session.speaking)
	assert.False(t, h.projection.lastRoster().Local.IsSpeaking)
}

func TestPeer_Rename(t *testing.T) {
	h := newHarness(snapshot(1, 1, protocol.Peer{Id: 1, Name: "me"}))
	require.NoError(t, h.peer.Connect(context.Background(), lifecycle.Request{Name: "me", Room: "r"}))

	require.NoError(t, h.peer.Rename(context.Background(), "  a name that is far too long "))

	assert.Equal(t, []string{"a name that is f"}, h.session.profiles)
	assert.Equal(t, "a name that is f (You)", h.projection.lastRoster().Local.Label)
	assert.Equal(t, "a name that is f", h.peer.Name())
}

func TestPeer_RenameRejectsBlankName(t *testing.T) {
	h := newHarness(snapshot(3, 3, protocol.Peer{Id: 3, Name: "me"}))
	require.NoError(t, h.peer.Connect(context.Background(), lifecycle.Request{Name: "me", Room: "r"}))

	for _, name := range []string{"", "   "} {
		assert.Error(t, h.peer.Rename(context.Background(), name))
	}

	assert.Empty(t, h.session.profiles)
	assert.Equal(t, "me (You)", h.projection.lastRoster().Local.Label)
	assert.Equal(t, "me", h.peer.Name())
}

func TestPeer_ReconnectKeepsChosenName(t *testing.T) {
	h := newHarness(snapshot(1, 1, protocol.Peer{Id: 1, Name: "alice"}))
	req := lifecycle.Request{Name: "alice", Room: "r", Intent: lifecycle.Join}
	require.NoError(t, h.peer.Connect(context.Background(), req))

	require.NoError(t, h.peer.Rename(context.Background(), "bob"))
	h.dialer.events.OnDisconnected(errors.New("read: connection reset"))

	require.NoError(t, h.peer.Connect(context.Background(), req))
	require.Len(t, h.dialer.requests, 2)
	assert.Equal(t, "alice", h.dialer.requests[0].Name)
	assert.Equal(t, "bob", h.dialer.requests[1].Name)
}

type orderedProjection struct {
	recordingProjection

	mu             sync.Mutex
	lastUsersCount string
	connectedWith  string
}

func (o *orderedProjection) RenderStatus(s lifecycle.Status) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if s == lifecycle.StatusFor(lifecycle.Connected) {
		o.connectedWith = o.lastUsersCount
	}
}

func (o *orderedProjection) RenderRoster(v roster.View) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lastUsersCount = v.UsersCount
}

func (o *orderedProjection) RenderNotification(presence.Notification, presence.Phase) {}

func TestPeer_ConnectedIsShownAfterSnapshot(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loop := eventloop.New(16)
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	projection := &orderedProjection{}
	p := New(Params{
		Dialer: &fakeDialer{
			joined:  snapshot(2, 1, protocol.Peer{Id: 1, Name: "host"}, protocol.Peer{Id: 2, Name: "me"}),
			session: &fakeSession{},
		},
		Surface:    playback.NewVirtualSurface(0, time.Now),
		Projection: projection,
		Executor:   loop,
		Scheduler:  loop,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	require.NoError(t, p.Connect(ctx, lifecycle.Request{Name: "me", Room: "r"}))

	projection.mu.Lock()
	assert.Equal(t, "2 out of 4 users connected", projection.connectedWith)
	projection.mu.Unlock()

	cancel()
	<-done
}

func TestPeer_NotificationsExpire(t *testing.T) {
	h := newHarness(snapshot(1, 1, protocol.Peer{Id: 1, Name: "me"}))
	require.NoError(t, h.peer.Connect(context.Background(), lifecycle.Request{Name: "me", Room: "r"}))
	h.dialer.events.OnPeerJoined(protocol.Peer{Id: 2, Name: "you"})

	assert.Equal(t, 2, h.peer.notifier.InFlight())
	h.scheduler.Advance(presence.DefaultTimings().Total(presence.Joined))
	assert.Zero(t, h.peer.notifier.InFlight())
}

func TestPeer_NilProjection(t *testing.T) {
	p := New(Params{
		Dialer:   &fakeDialer{joined: snapshot(1, 1, protocol.Peer{Id: 1, Name: "me"}), session: &fakeSession{}},
		Executor: eventloop.Inline{},
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	require.NoError(t, p.Connect(context.Background(), lifecycle.Request{Name: "me", Room: "r"}))
	p.TogglePlayback(context.Background())
	p.Render()
	assert.Equal(t, 1, p.Roster().Len())
}
