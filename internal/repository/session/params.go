package session

type SetPeerParams struct {
	Session    string
	PeerId     int
	Name       string
	MicEnabled bool
}

// UpdatePeerParams changes only the non-nil fields.
type UpdatePeerParams struct {
	Session    string
	PeerId     int
	Name       *string
	MicEnabled *bool
	IsSpeaking *bool
}

type RemovePeerParams struct {
	Session string
	PeerId  int
}

type SetPlaybackParams struct {
	Session   string
	IsPlaying bool
	Position  float64
	Revision  uint64
	UpdatedAt int64
}

type SetAuthorityParams struct {
	Session     string
	AuthorityId int
}

type TouchParams struct {
	Session string
	PeerId  int
}
