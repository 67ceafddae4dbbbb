package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sharetube/watchparty/internal/eventloop"
	"github.com/sharetube/watchparty/internal/lifecycle"
	"github.com/sharetube/watchparty/internal/peer"
	"github.com/sharetube/watchparty/internal/playback"
	"github.com/sharetube/watchparty/internal/protocol"
	"github.com/sharetube/watchparty/internal/roster"
	"github.com/sharetube/watchparty/internal/transport/wsclient"
	"github.com/sharetube/watchparty/internal/voice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 5 * time.Second
	tick    = 10 * time.Millisecond
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, membersLimit int) *httptest.Server {
	t.Helper()
	srv, _ := newTestServerWithRedis(t, membersLimit)

	return srv
}

func newTestServerWithRedis(t *testing.T, membersLimit int) (*httptest.Server, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { rc.Close() })

	srv := httptest.NewServer(NewHandler(rc, discardLogger(), &AppConfig{
		Secret:       "secret",
		MembersLimit: membersLimit,
		SessionExp:   time.Minute,
	}))
	t.Cleanup(srv.Close)

	return srv, s
}

type testPeer struct {
	*peer.Peer
	loop *eventloop.Loop
}

func newTestPeer(t *testing.T, ctx context.Context, serverURL string) *testPeer {
	t.Helper()
	dialer, err := wsclient.NewDialer(serverURL, time.Second, discardLogger())
	require.NoError(t, err)

	loop := eventloop.New(64)
	p := peer.New(peer.Params{
		Config:    peer.Config{SecondarySlots: 3, DriftTolerance: playback.DefaultDriftTolerance, TickInterval: 20 * time.Millisecond},
		Dialer:    dialer,
		Surface:   playback.NewVirtualSurface(600, time.Now),
		Recorder:  &voice.NullRecorder{},
		Executor:  loop,
		Scheduler: loop,
		Logger:    discardLogger(),
	})

	go loop.Run(ctx)
	go p.Run(ctx)

	return &testPeer{Peer: p, loop: loop}
}

// read runs fn on the peer's event loop and waits for it.
func (p *testPeer) read(t *testing.T, fn func()) {
	t.Helper()
	done := make(chan struct{})
	require.NoError(t, p.loop.Post(func() {
		fn()
		close(done)
	}))

	select {
	case <-done:
	case <-time.After(waitFor):
		t.Fatal("event loop did not run the task")
	}
}

func (p *testPeer) snapshot(t *testing.T) []roster.Participant {
	var participants []roster.Participant
	p.read(t, func() { participants = p.Roster().Snapshot() })
	return participants
}

func (p *testPeer) playbackState(t *testing.T) (playback.State, bool) {
	var (
		state       playback.State
		isAuthority bool
	)
	p.read(t, func() {
		state = p.Playback().State()
		isAuthority = p.Playback().IsAuthority()
	})
	return state, isAuthority
}

func TestWatchParty(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := newTestServer(t, 4)
	alice := newTestPeer(t, ctx, srv.URL)
	bob := newTestPeer(t, ctx, srv.URL)

	require.NoError(t, alice.Connect(ctx, lifecycle.Request{Name: "alice", Room: "movie", Intent: lifecycle.Create}))
	assert.Equal(t, lifecycle.Connected, alice.Lifecycle().State())

	require.NoError(t, bob.Connect(ctx, lifecycle.Request{Name: "bob", Room: "movie", Intent: lifecycle.Join}))
	assert.Equal(t, lifecycle.Connected, bob.Lifecycle().State())

	require.Eventually(t, func() bool {
		participants := alice.snapshot(t)
		return len(participants) == 1 && participants[0].Name == "bob"
	}, waitFor, tick)

	participants := bob.snapshot(t)
	require.Len(t, participants, 1)
	assert.Equal(t, "alice", participants[0].Name)

	_, aliceIsAuthority := alice.playbackState(t)
	_, bobIsAuthority := bob.playbackState(t)
	assert.True(t, aliceIsAuthority)
	assert.False(t, bobIsAuthority)

	// a follower's toggle goes through the authority
	bob.TogglePlayback(ctx)
	require.Eventually(t, func() bool {
		a, _ := alice.playbackState(t)
		b, _ := bob.playbackState(t)
		return a.IsPlaying && b.IsPlaying
	}, waitFor, tick)

	bob.ToggleMic(ctx)
	require.Eventually(t, func() bool {
		participants := alice.snapshot(t)
		return len(participants) == 1 && !participants[0].MicEnabled
	}, waitFor, tick)

	// the authority leaves and the remaining peer takes over
	require.NoError(t, alice.Leave())
	require.Eventually(t, func() bool {
		_, isAuthority := bob.playbackState(t)
		return isAuthority && len(bob.snapshot(t)) == 0
	}, waitFor, tick)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `watchparty_session_joins_total{intent="join",result="ok"} 1`)
	assert.Contains(t, string(body), `watchparty_ws_messages_total{type="REQUEST_TOGGLE"} 1`)
}

func TestSessionFull(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := newTestServer(t, 1)
	alice := newTestPeer(t, ctx, srv.URL)
	require.NoError(t, alice.Connect(ctx, lifecycle.Request{Name: "alice", Room: "movie", Intent: lifecycle.Create}))

	bob := newTestPeer(t, ctx, srv.URL)
	err := bob.Connect(ctx, lifecycle.Request{Name: "bob", Room: "movie", Intent: lifecycle.Join})
	require.ErrorIs(t, err, wsclient.ErrRejected)
	assert.Contains(t, err.Error(), "session is full")
	assert.Equal(t, lifecycle.Disconnected, bob.Lifecycle().State())
}

func TestHTTPRoutes(t *testing.T) {
	srv := newTestServer(t, 4)

	resp, err := http.Get(srv.URL + "/api/v1/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))

	resp, err = http.Get(srv.URL + "/api/v1/ws/session/movie/join")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "name is required", body.Error)
}

func TestPublishStateFromFollowerIsRejected(t *testing.T) {
	srv := newTestServer(t, 4)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws/session/movie/"

	authority := dialRaw(t, wsURL+"create?name=alice")
	defer authority.Close()
	follower := dialRaw(t, wsURL+"join?name=bob")
	defer follower.Close()

	require.NoError(t, follower.WriteJSON(protocol.Output{
		Type:    protocol.TypePublishState,
		Payload: protocol.PublishState{IsPlaying: true, Position: 3, Revision: 1},
	}))

	var msg protocol.Input
	require.NoError(t, follower.ReadJSON(&msg))
	require.Equal(t, protocol.TypeError, msg.Type)

	var e protocol.Error
	require.NoError(t, json.Unmarshal(msg.Payload, &e))
	assert.Contains(t, e.Message, "permission denied")
}

func TestKeepaliveExtendsIdleSession(t *testing.T) {
	srv, mr := newTestServerWithRedis(t, 4)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws/session/movie/"

	alice := dialRaw(t, wsURL+"create?name=alice")
	defer alice.Close()

	mr.FastForward(40 * time.Second)
	require.NoError(t, alice.WriteJSON(protocol.Output{Type: protocol.TypeAlive}))
	require.Eventually(t, func() bool {
		return mr.TTL("session:movie:playback") > 30*time.Second
	}, waitFor, tick)

	// past the expiry counted from the join
	mr.FastForward(40 * time.Second)
	require.NoError(t, alice.WriteJSON(protocol.Output{
		Type:    protocol.TypeRequestToggle,
		Payload: protocol.RequestToggle{Position: 4},
	}))

	var msg protocol.Input
	require.NoError(t, alice.ReadJSON(&msg))
	assert.Equal(t, protocol.TypeToggleRequested, msg.Type)
}
