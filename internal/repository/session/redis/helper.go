package redis

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
)

func (r repo) getPeerSeqKey(sessionName string) string {
	return "session:" + sessionName + ":peer-seq"
}

func (r repo) getPeerListKey(sessionName string) string {
	return "session:" + sessionName + ":peers"
}

func (r repo) getPeerKey(sessionName string, peerId int) string {
	return "session:" + sessionName + ":peer:" + strconv.Itoa(peerId)
}

func (r repo) getPlaybackKey(sessionName string) string {
	return "session:" + sessionName + ":playback"
}

func (r repo) executePipe(ctx context.Context, pipe redis.Pipeliner) error {
	cmds, err := pipe.Exec(ctx)
	if err != nil {
		for _, cmd := range cmds {
			if err := cmd.Err(); err != nil {
				return err
			}
		}

		return err
	}

	return nil
}

func (r repo) expireSessionKeys(ctx context.Context, pipe redis.Pipeliner, sessionName string) {
	pipe.Expire(ctx, r.getPeerSeqKey(sessionName), r.expireDuration)
	pipe.Expire(ctx, r.getPeerListKey(sessionName), r.expireDuration)
	pipe.Expire(ctx, r.getPlaybackKey(sessionName), r.expireDuration)
}
