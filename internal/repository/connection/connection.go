package connection

import "errors"

var (
	ErrNotFound      = errors.New("connection not found")
	ErrAlreadyExists = errors.New("connection already exists")
	ErrNotReady      = errors.New("connection is not ready")
)

// Member identifies a connected peer.
type Member struct {
	Session string
	PeerId  int
}
