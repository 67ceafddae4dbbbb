// Package protocol holds the websocket messages exchanged between the session
// server and peers. Every message is a JSON envelope {"type", "payload"}.
package protocol

import "encoding/json"

// Server to peer.
const (
	TypeSessionJoined   = "SESSION_JOINED"
	TypePeerJoined      = "PEER_JOINED"
	TypePeerUpdated     = "PEER_UPDATED"
	TypePeerLeft        = "PEER_LEFT"
	TypeStateChanged    = "STATE_CHANGED"
	TypeToggleRequested = "TOGGLE_REQUESTED"
	TypeError           = "ERROR"
)

// Peer to server.
const (
	TypeAlive          = "ALIVE"
	TypeUpdateProfile  = "UPDATE_PROFILE"
	TypeUpdateMic      = "UPDATE_MIC"
	TypeUpdateSpeaking = "UPDATE_SPEAKING"
	TypeRequestToggle  = "REQUEST_TOGGLE"
	TypePublishState   = "PUBLISH_STATE"
)

type Output struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type Input struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

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

type SessionJoined struct {
	AuthToken string   `json:"auth_token"`
	Session   string   `json:"session"`
	PeerId    int      `json:"peer_id"`
	Peers     []Peer   `json:"peers"`
	Playback  Playback `json:"playback"`
}

type PeerLeft struct {
	PeerId int `json:"peer_id"`
}

type ToggleRequested struct {
	RequesterId int     `json:"requester_id"`
	Position    float64 `json:"position"`
}

type Error struct {
	Message string `json:"message"`
}

type UpdateProfile struct {
	Name string `json:"name"`
}

type UpdateMic struct {
	MicEnabled bool `json:"mic_enabled"`
}

type UpdateSpeaking struct {
	IsSpeaking bool `json:"is_speaking"`
}

type RequestToggle struct {
	Position float64 `json:"position"`
}

type PublishState struct {
	IsPlaying bool    `json:"is_playing"`
	Position  float64 `json:"position"`
	Revision  uint64  `json:"revision"`
}
