package session

import "errors"

var (
	ErrPeerNotFound     = errors.New("peer not found")
	ErrPlaybackNotFound = errors.New("playback not found")
)
