package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/sharetube/watchparty/internal/repository/session"
	omitnilpointers "github.com/sharetube/watchparty/pkg/omit-nil-pointers"
)

// NextPeerId returns a fresh id, unique within the session.
func (r repo) NextPeerId(ctx context.Context, sessionName string) (int, error) {
	pipe := r.rc.TxPipeline()
	incr := pipe.Incr(ctx, r.getPeerSeqKey(sessionName))
	r.expireSessionKeys(ctx, pipe, sessionName)

	if err := r.executePipe(ctx, pipe); err != nil {
		return 0, fmt.Errorf("failed to generate peer id: %w", err)
	}

	return int(incr.Val()), nil
}

func (r repo) SetPeer(ctx context.Context, params *session.SetPeerParams) error {
	r.logger.DebugContext(ctx, "set peer", "params", params)
	pipe := r.rc.TxPipeline()

	peerKey := r.getPeerKey(params.Session, params.PeerId)
	pipe.Persist(ctx, peerKey)
	pipe.HSet(ctx, peerKey, session.Peer{
		Name:       params.Name,
		MicEnabled: params.MicEnabled,
		IsSpeaking: false,
	})
	pipe.Expire(ctx, peerKey, r.expireDuration)

	pipe.ZAdd(ctx, r.getPeerListKey(params.Session), redis.Z{
		Score:  float64(params.PeerId),
		Member: params.PeerId,
	})
	r.expireSessionKeys(ctx, pipe, params.Session)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to set peer: %w", err)
	}

	return nil
}

// GetPeer returns a peer record. Records of peers that left stay readable
// until they expire.
func (r repo) GetPeer(ctx context.Context, sessionName string, peerId int) (session.Peer, error) {
	peerKey := r.getPeerKey(sessionName, peerId)
	res := r.rc.HGetAll(ctx, peerKey)
	fields, err := res.Result()
	if err != nil {
		return session.Peer{}, fmt.Errorf("failed to get peer: %w", err)
	}

	if len(fields) == 0 {
		return session.Peer{}, session.ErrPeerNotFound
	}

	var peer session.Peer
	if err := res.Scan(&peer); err != nil {
		return session.Peer{}, fmt.Errorf("failed to scan peer: %w", err)
	}

	return peer, nil
}

// GetPeerIds returns the ids of the peers in the session, lowest first.
func (r repo) GetPeerIds(ctx context.Context, sessionName string) ([]int, error) {
	members, err := r.rc.ZRange(ctx, r.getPeerListKey(sessionName), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get peer ids: %w", err)
	}

	ids := make([]int, 0, len(members))
	for _, m := range members {
		id, err := strconv.Atoi(m)
		if err != nil {
			return nil, fmt.Errorf("failed to parse peer id %q: %w", m, err)
		}
		ids = append(ids, id)
	}

	return ids, nil
}

func (r repo) UpdatePeer(ctx context.Context, params *session.UpdatePeerParams) error {
	r.logger.DebugContext(ctx, "update peer", "params", params)
	peerKey := r.getPeerKey(params.Session, params.PeerId)

	exists, err := r.rc.Exists(ctx, peerKey).Result()
	if err != nil {
		return fmt.Errorf("failed to check if peer exists: %w", err)
	}
	if exists == 0 {
		return session.ErrPeerNotFound
	}

	fields := omitnilpointers.OmitNilPointers(map[string]any{
		"name":        params.Name,
		"mic_enabled": params.MicEnabled,
		"is_speaking": params.IsSpeaking,
	})
	if len(fields) == 0 {
		return nil
	}

	pipe := r.rc.TxPipeline()
	pipe.HSet(ctx, peerKey, fields)
	pipe.Expire(ctx, peerKey, r.expireDuration)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to update peer: %w", err)
	}

	return nil
}

// RemovePeer takes the peer out of the session list. Its record is kept until
// it expires so the peer can reclaim its id.
func (r repo) RemovePeer(ctx context.Context, params *session.RemovePeerParams) error {
	r.logger.DebugContext(ctx, "remove peer", "params", params)
	pipe := r.rc.TxPipeline()

	peerKey := r.getPeerKey(params.Session, params.PeerId)
	removed := pipe.ZRem(ctx, r.getPeerListKey(params.Session), params.PeerId)
	pipe.HSet(ctx, peerKey, "is_speaking", false)
	pipe.Expire(ctx, peerKey, r.expireDuration)
	r.expireSessionKeys(ctx, pipe, params.Session)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to remove peer: %w", err)
	}

	if removed.Val() == 0 {
		return session.ErrPeerNotFound
	}

	return nil
}

// Touch pushes back the expiry of the session keys and of the peer's record.
// Connected peers call it periodically so an idle session outlives the expiry.
func (r repo) Touch(ctx context.Context, params *session.TouchParams) error {
	pipe := r.rc.TxPipeline()
	pipe.Expire(ctx, r.getPeerKey(params.Session, params.PeerId), r.expireDuration)
	r.expireSessionKeys(ctx, pipe, params.Session)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}

	return nil
}
