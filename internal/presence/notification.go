package presence

import (
	"fmt"
	"time"
)

type Direction int

const (
	Joined Direction = iota
	Left
)

func (d Direction) String() string {
	if d == Joined {
		return "joined"
	}

	return "left"
}

// Phase is the visual state of a notification.
type Phase int

const (
	Entering Phase = iota
	Visible
	Leaving
	Removed
)

func (p Phase) String() string {
	switch p {
	case Entering:
		return "entering"
	case Visible:
		return "visible"
	case Leaving:
		return "leaving"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

type Notification struct {
	Id        string
	Name      string
	Direction Direction
	CreatedAt time.Time
}

func (n Notification) Message() string {
	return fmt.Sprintf("%s %s", n.Name, n.Direction)
}

// Timings configures the enter transition, the hold per direction and the fade out.
type Timings struct {
	Enter     time.Duration
	HoldJoin  time.Duration
	HoldLeave time.Duration
	Fade      time.Duration
}

func DefaultTimings() Timings {
	return Timings{
		Enter:     400 * time.Millisecond,
		HoldJoin:  3 * time.Second,
		HoldLeave: 2 * time.Second,
		Fade:      300 * time.Millisecond,
	}
}

func (t Timings) Hold(d Direction) time.Duration {
	if d == Joined {
		return t.HoldJoin
	}

	return t.HoldLeave
}

// Total is the lifetime of a notification from creation to removal.
func (t Timings) Total(d Direction) time.Duration {
	return t.Enter + t.Hold(d) + t.Fade
}
