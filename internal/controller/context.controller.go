package controller

import "context"

type contextKey int

const (
	sessionCtxKey contextKey = iota
	peerIdCtxKey
)

func (c controller) getSessionFromCtx(ctx context.Context) string {
	sessionName, ok := ctx.Value(sessionCtxKey).(string)
	if !ok {
		return ""
	}

	return sessionName
}

func (c controller) getPeerIdFromCtx(ctx context.Context) int {
	peerId, ok := ctx.Value(peerIdCtxKey).(int)
	if !ok {
		return 0
	}

	return peerId
}
