package roster

import (
	"errors"
	"fmt"
	"slices"
)

const (
	// LocalSlot is reserved for the local participant.
	LocalSlot = 0
	// Unassigned marks a participant that has no slot.
	Unassigned = -1
	// DefaultSecondarySlots is the number of slots available to remote participants.
	DefaultSecondarySlots = 3
)

var ErrSlotCapacity = errors.New("slot capacity exceeded")

// CapacityError lists the participants left without a slot.
type CapacityError struct {
	Capacity int
	Unplaced []ParticipantID
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("%s: %d slots, %d participants unplaced %v", ErrSlotCapacity, e.Capacity, len(e.Unplaced), e.Unplaced)
}

func (e *CapacityError) Unwrap() error {
	return ErrSlotCapacity
}

// Assignment maps remote participants onto secondary slots.
// Slots[i] holds the participant shown in slot i+1, NoParticipant for a cleared slot.
type Assignment struct {
	Slots    []ParticipantID
	Unplaced []ParticipantID
}

// SlotOf returns the slot index of id or Unassigned.
func (a Assignment) SlotOf(id ParticipantID) int {
	for i, slotId := range a.Slots {
		if slotId == id && id != NoParticipant {
			return i + 1
		}
	}

	return Unassigned
}

func (a Assignment) Equal(other Assignment) bool {
	return slices.Equal(a.Slots, other.Slots) && slices.Equal(a.Unplaced, other.Unplaced)
}

// AssignSlots orders remote participants by id and fills slots 1..capacity in
// that order. The result depends only on the set of ids, never on the order
// they were given in. Participants that do not fit are returned in Unplaced
// together with a *CapacityError.
func AssignSlots(remote []ParticipantID, capacity int) (Assignment, error) {
	if capacity < 0 {
		capacity = 0
	}

	ids := slices.Clone(remote)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	a := Assignment{Slots: make([]ParticipantID, capacity)}
	for i, id := range ids {
		if i < capacity {
			a.Slots[i] = id
			continue
		}
		a.Unplaced = append(a.Unplaced, id)
	}

	if len(a.Unplaced) > 0 {
		return a, &CapacityError{Capacity: capacity, Unplaced: slices.Clone(a.Unplaced)}
	}

	return a, nil
}
