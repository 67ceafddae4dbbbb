package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/sharetube/watchparty/internal/repository/session"
)

// EnsurePlayback creates a paused playback at position 0 unless one exists.
func (r repo) EnsurePlayback(ctx context.Context, sessionName string) error {
	playbackKey := r.getPlaybackKey(sessionName)
	pipe := r.rc.TxPipeline()

	pipe.HSetNX(ctx, playbackKey, "is_playing", false)
	pipe.HSetNX(ctx, playbackKey, "position", 0)
	pipe.HSetNX(ctx, playbackKey, "revision", 0)
	pipe.HSetNX(ctx, playbackKey, "authority_id", 0)
	pipe.HSetNX(ctx, playbackKey, "updated_at", time.Now().Unix())
	r.expireSessionKeys(ctx, pipe, sessionName)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to ensure playback: %w", err)
	}

	return nil
}

func (r repo) GetPlayback(ctx context.Context, sessionName string) (session.Playback, error) {
	res := r.rc.HGetAll(ctx, r.getPlaybackKey(sessionName))
	fields, err := res.Result()
	if err != nil {
		return session.Playback{}, fmt.Errorf("failed to get playback: %w", err)
	}

	if len(fields) == 0 {
		return session.Playback{}, session.ErrPlaybackNotFound
	}

	var playback session.Playback
	if err := res.Scan(&playback); err != nil {
		return session.Playback{}, fmt.Errorf("failed to scan playback: %w", err)
	}

	return playback, nil
}

func (r repo) SetPlayback(ctx context.Context, params *session.SetPlaybackParams) error {
	playbackKey := r.getPlaybackKey(params.Session)
	pipe := r.rc.TxPipeline()

	pipe.HSet(ctx, playbackKey,
		"is_playing", params.IsPlaying,
		"position", params.Position,
		"revision", params.Revision,
		"updated_at", params.UpdatedAt,
	)
	r.expireSessionKeys(ctx, pipe, params.Session)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to set playback: %w", err)
	}

	return nil
}

func (r repo) SetAuthority(ctx context.Context, params *session.SetAuthorityParams) error {
	playbackKey := r.getPlaybackKey(params.Session)
	pipe := r.rc.TxPipeline()

	pipe.HSet(ctx, playbackKey, "authority_id", params.AuthorityId)
	r.expireSessionKeys(ctx, pipe, params.Session)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to set authority: %w", err)
	}

	return nil
}
