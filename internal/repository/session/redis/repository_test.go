package redis

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sharetube/watchparty/internal/repository/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) (*repo, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { rc.Close() })

	return NewRepo(rc, slog.New(slog.NewTextHandler(io.Discard, nil)), 10*time.Minute), s
}

func TestRepo_NextPeerIdIsMonotonicPerSession(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()

	a1, err := r.NextPeerId(ctx, "a")
	require.NoError(t, err)
	a2, err := r.NextPeerId(ctx, "a")
	require.NoError(t, err)
	b1, err := r.NextPeerId(ctx, "b")
	require.NoError(t, err)

	assert.Equal(t, 1, a1)
	assert.Equal(t, 2, a2)
	assert.Equal(t, 1, b1)
}

func TestRepo_Peers(t *testing.T) {
	r, s := newTestRepo(t)
	ctx := context.Background()

	for _, id := range []int{5, 2, 9} {
		require.NoError(t, r.SetPeer(ctx, &session.SetPeerParams{Session: "room", PeerId: id, Name: "p", MicEnabled: true}))
	}

	ids, err := r.GetPeerIds(ctx, "room")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 5, 9}, ids)

	peer, err := r.GetPeer(ctx, "room", 5)
	require.NoError(t, err)
	assert.Equal(t, session.Peer{Name: "p", MicEnabled: true}, peer)
	assert.True(t, s.TTL("session:room:peer:5") > 0)

	name := "bob"
	speaking := true
	require.NoError(t, r.UpdatePeer(ctx, &session.UpdatePeerParams{Session: "room", PeerId: 5, Name: &name, IsSpeaking: &speaking}))

	peer, err = r.GetPeer(ctx, "room", 5)
	require.NoError(t, err)
	assert.Equal(t, session.Peer{Name: "bob", MicEnabled: true, IsSpeaking: true}, peer)

	_, err = r.GetPeer(ctx, "room", 77)
	assert.ErrorIs(t, err, session.ErrPeerNotFound)
	assert.ErrorIs(t, r.UpdatePeer(ctx, &session.UpdatePeerParams{Session: "room", PeerId: 77, Name: &name}), session.ErrPeerNotFound)
}

func TestRepo_RemovePeerKeepsRecordForReclaim(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, r.SetPeer(ctx, &session.SetPeerParams{Session: "room", PeerId: 1, Name: "a"}))
	require.NoError(t, r.SetPeer(ctx, &session.SetPeerParams{Session: "room", PeerId: 2, Name: "b"}))

	require.NoError(t, r.RemovePeer(ctx, &session.RemovePeerParams{Session: "room", PeerId: 1}))

	ids, err := r.GetPeerIds(ctx, "room")
	require.NoError(t, err)
	assert.Equal(t, []int{2}, ids)

	peer, err := r.GetPeer(ctx, "room", 1)
	require.NoError(t, err)
	assert.Equal(t, "a", peer.Name)

	assert.ErrorIs(t, r.RemovePeer(ctx, &session.RemovePeerParams{Session: "room", PeerId: 1}), session.ErrPeerNotFound)
}

func TestRepo_Playback(t *testing.T) {
	r, s := newTestRepo(t)
	ctx := context.Background()

	_, err := r.GetPlayback(ctx, "room")
	assert.ErrorIs(t, err, session.ErrPlaybackNotFound)

	require.NoError(t, r.EnsurePlayback(ctx, "room"))
	pb, err := r.GetPlayback(ctx, "room")
	require.NoError(t, err)
	assert.False(t, pb.IsPlaying)
	assert.Zero(t, pb.Revision)
	assert.Zero(t, pb.AuthorityId)

	require.NoError(t, r.SetAuthority(ctx, &session.SetAuthorityParams{Session: "room", AuthorityId: 3}))
	require.NoError(t, r.SetPlayback(ctx, &session.SetPlaybackParams{Session: "room", IsPlaying: true, Position: 12.3, Revision: 4, UpdatedAt: 100}))

	// ensuring again must not reset an existing playback
	require.NoError(t, r.EnsurePlayback(ctx, "room"))

	pb, err = r.GetPlayback(ctx, "room")
	require.NoError(t, err)
	assert.Equal(t, session.Playback{IsPlaying: true, Position: 12.3, Revision: 4, AuthorityId: 3, UpdatedAt: 100}, pb)

	s.FastForward(11 * time.Minute)
	_, err = r.GetPlayback(ctx, "room")
	assert.ErrorIs(t, err, session.ErrPlaybackNotFound)
}

func TestRepo_TouchKeepsSessionAlive(t *testing.T) {
	r, s := newTestRepo(t)
	ctx := context.Background()

	_, err := r.NextPeerId(ctx, "room")
	require.NoError(t, err)
	require.NoError(t, r.SetPeer(ctx, &session.SetPeerParams{Session: "room", PeerId: 1, Name: "a"}))
	require.NoError(t, r.EnsurePlayback(ctx, "room"))

	for i := 0; i < 3; i++ {
		s.FastForward(6 * time.Minute)
		require.NoError(t, r.Touch(ctx, &session.TouchParams{Session: "room", PeerId: 1}))
	}

	ids, err := r.GetPeerIds(ctx, "room")
	require.NoError(t, err)
	assert.Equal(t, []int{1}, ids)

	_, err = r.GetPeer(ctx, "room", 1)
	require.NoError(t, err)
	_, err = r.GetPlayback(ctx, "room")
	require.NoError(t, err)

	next, err := r.NextPeerId(ctx, "room")
	require.NoError(t, err)
	assert.Equal(t, 2, next)
}
