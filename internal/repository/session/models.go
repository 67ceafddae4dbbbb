package session

type Peer struct {
	Name       string `redis:"name"`
	MicEnabled bool   `redis:"mic_enabled"`
	IsSpeaking bool   `redis:"is_speaking"`
}

type Playback struct {
	IsPlaying   bool    `redis:"is_playing"`
	Position    float64 `redis:"position"`
	Revision    uint64  `redis:"revision"`
	AuthorityId int     `redis:"authority_id"`
	UpdatedAt   int64   `redis:"updated_at"`
}
