package playback

import (
	"sync"
	"time"
)

// VirtualSurface is a headless player whose position advances with the wall
// clock while playing.
type VirtualSurface struct {
	mu        sync.Mutex
	now       func() time.Time
	playing   bool
	base      float64
	startedAt time.Time
	duration  float64
}

// NewVirtualSurface returns a paused surface at position 0. A zero duration means unbounded.
func NewVirtualSurface(duration float64, now func() time.Time) *VirtualSurface {
	if now == nil {
		now = time.Now
	}

	return &VirtualSurface{now: now, duration: duration}
}

func (v *VirtualSurface) Play() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.playing {
		return
	}
	v.playing = true
	v.startedAt = v.now()
}

func (v *VirtualSurface) Pause() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.playing {
		return
	}
	v.base = v.position()
	v.playing = false
}

func (v *VirtualSurface) IsPlaying() bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.playing
}

func (v *VirtualSurface) Time() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.position()
}

func (v *VirtualSurface) Seek(position float64) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.base = v.clamp(position)
	v.startedAt = v.now()
}

func (v *VirtualSurface) position() float64 {
	if !v.playing {
		return v.base
	}

	return v.clamp(v.base + v.now().Sub(v.startedAt).Seconds())
}

func (v *VirtualSurface) clamp(p float64) float64 {
	if p < 0 {
		return 0
	}
	if v.duration > 0 && p > v.duration {
		return v.duration
	}

	return p
}
