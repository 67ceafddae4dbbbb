package roster

import "fmt"

// Card describes what one avatar slot shows.
type Card struct {
	Slot       int
	Empty      bool
	ID         ParticipantID
	Label      string
	Initial    string
	Color      string
	MicEnabled bool
	IsSpeaking bool
	IsLocal    bool
}

type View struct {
	Local Card
	Slots []Card
	// RoomCode is empty while not in a session.
	RoomCode   string
	UsersCount string
	Unplaced   []ParticipantID
}

func newCard(slot int, p Participant) Card {
	return Card{
		Slot:       slot,
		ID:         p.ID,
		Label:      p.Label(),
		Initial:    p.Initial(),
		Color:      AvatarColor(p.ID),
		MicEnabled: p.MicEnabled,
		IsSpeaking: p.IsSpeaking,
		IsLocal:    p.IsLocal,
	}
}

// View builds the display description of the current roster.
func (s *Store) View() View {
	v := View{
		Local:      Card{Slot: LocalSlot, Empty: true},
		Slots:      make([]Card, 0, s.capacity),
		UsersCount: fmt.Sprintf("%d out of %d users connected", len(s.entries), s.capacity+1),
		Unplaced:   append([]ParticipantID(nil), s.assignment.Unplaced...),
	}
	if s.room != "" {
		v.RoomCode = "Room: #" + s.room
	}

	if local, ok := s.entries[s.localId]; ok {
		v.Local = newCard(LocalSlot, *local)
	}

	for i, id := range s.assignment.Slots {
		p, ok := s.entries[id]
		if !ok {
			v.Slots = append(v.Slots, Card{Slot: i + 1, Empty: true})
			continue
		}
		v.Slots = append(v.Slots, newCard(i+1, *p))
	}

	return v
}
