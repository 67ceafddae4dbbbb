package playback

import "math"

// DefaultDriftTolerance is how far, in seconds, a follower may drift from the
// authoritative position before it seeks.
const DefaultDriftTolerance = 0.1

// driftEpsilon absorbs float rounding so a drift of exactly the tolerance never seeks.
const driftEpsilon = 1e-6

// State is the shared playback state. Only the state authority writes it.
type State struct {
	IsPlaying bool    `json:"is_playing"`
	Position  float64 `json:"position"`
	Revision  uint64  `json:"revision"`
}

// View describes the play button and player state for the UI.
type View struct {
	IsPlaying    bool
	ShowPlayIcon bool
	Position     float64
	IsAuthority  bool
}

// Reconcile returns the position a follower should seek to and whether it
// should seek at all: only when the drift exceeds tolerance.
func Reconcile(authoritative, local, tolerance float64) (float64, bool) {
	if math.Abs(authoritative-local) > tolerance+driftEpsilon {
		return authoritative, true
	}

	return local, false
}
