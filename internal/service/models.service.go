package service

import "github.com/gorilla/websocket"

type Peer struct {
	Id         int    `json:"id"`
	Name       string `json:"name"`
	MicEnabled bool   `json:"mic_enabled"`
	IsSpeaking bool   `json:"is_speaking"`
}

type Playback struct {
	IsPlaying   bool    `json:"is_playing"`
	Position    float64 `json:"position"`
	Revision    uint64  `json:"revision"`
	AuthorityId int     `json:"authority_id"`
}

// Recipients are the connections a result has to be delivered to.
type Recipients []*websocket.Conn
