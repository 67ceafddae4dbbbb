package roster

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/samber/lo"
	"golang.org/x/exp/maps"

	"github.com/sharetube/watchparty/internal/observe"
)

var (
	ErrParticipantNotFound  = errors.New("participant not found")
	ErrInvalidParticipantId = errors.New("invalid participant id")
)

// Announcer is told about every join and leave after the slot layout is recomputed.
type Announcer interface {
	Announce(name string, joined bool)
}

type ChangeKind int

const (
	ParticipantJoined ChangeKind = iota
	ParticipantUpdated
	ParticipantLeft
	RosterReset
)

func (k ChangeKind) String() string {
	switch k {
	case ParticipantJoined:
		return "joined"
	case ParticipantUpdated:
		return "updated"
	case ParticipantLeft:
		return "left"
	case RosterReset:
		return "reset"
	default:
		return "unknown"
	}
}

type Change struct {
	Kind        ChangeKind
	Participant Participant
	View        View
}

// Entry is a participant together with its slot.
type Entry struct {
	Participant
	Slot int
}

// Store keeps the roster of one peer. It is owned by the peer event loop and
// is not safe for concurrent use.
type Store struct {
	entries    map[ParticipantID]*Participant
	localId    ParticipantID
	room       string
	capacity   int
	assignment Assignment
	announcer  Announcer
	feed       *observe.Feed[Change]
	logger     *slog.Logger
}

func NewStore(announcer Announcer, logger *slog.Logger, secondarySlots int) *Store {
	if secondarySlots <= 0 {
		secondarySlots = DefaultSecondarySlots
	}

	return &Store{
		entries:    make(map[ParticipantID]*Participant),
		capacity:   secondarySlots,
		assignment: Assignment{Slots: make([]ParticipantID, secondarySlots)},
		announcer:  announcer,
		feed:       observe.NewFeed[Change](),
		logger:     logger,
	}
}

func (s *Store) Subscribe(fn func(Change)) func() {
	return s.feed.Subscribe(fn)
}

// Upsert registers a new participant or refreshes the metadata of a known one.
// It reports whether the participant is new. Only new participants are announced.
func (s *Store) Upsert(id ParticipantID, md Metadata) (bool, error) {
	if id <= NoParticipant {
		return false, fmt.Errorf("%w: %d", ErrInvalidParticipantId, id)
	}

	md.Name = TruncateName(md.Name)

	if p, ok := s.entries[id]; ok {
		if p.Metadata == md {
			return false, nil
		}

		p.Metadata = md
		if md.IsLocal {
			s.localId = id
		}
		s.relayout()
		s.logger.Debug("participant refreshed", "participant_id", id, "name", md.Name)
		s.feed.Publish(Change{Kind: ParticipantUpdated, Participant: *p, View: s.View()})
		return false, nil
	}

	p := &Participant{ID: id, Metadata: md}
	s.entries[id] = p
	if md.IsLocal {
		s.localId = id
	}
	s.relayout()
	s.logger.Debug("participant registered", "participant_id", id, "is_local", md.IsLocal)
	s.announce(p.DisplayName(), true)
	s.feed.Publish(Change{Kind: ParticipantJoined, Participant: *p, View: s.View()})

	return true, nil
}

// Remove deletes a participant and returns its last known record.
func (s *Store) Remove(id ParticipantID) (Participant, error) {
	p, ok := s.entries[id]
	if !ok {
		return Participant{}, ErrParticipantNotFound
	}

	delete(s.entries, id)
	if s.localId == id {
		s.localId = NoParticipant
	}
	s.relayout()
	s.logger.Debug("participant removed", "participant_id", id)
	s.announce(p.DisplayName(), false)
	s.feed.Publish(Change{Kind: ParticipantLeft, Participant: *p, View: s.View()})

	return *p, nil
}

// SetRoom records the session the roster belongs to. It is published with
// the next change.
func (s *Store) SetRoom(room string) {
	s.room = room
}

// Reset drops every participant without announcing them, as on session shutdown.
func (s *Store) Reset() {
	clear(s.entries)
	s.localId = NoParticipant
	s.room = ""
	s.relayout()
	s.feed.Publish(Change{Kind: RosterReset, View: s.View()})
}

func (s *Store) Get(id ParticipantID) (Participant, bool) {
	p, ok := s.entries[id]
	if !ok {
		return Participant{}, false
	}

	return *p, true
}

func (s *Store) LocalId() ParticipantID {
	return s.localId
}

func (s *Store) Len() int {
	return len(s.entries)
}

// Snapshot returns the remote participants ordered by id.
func (s *Store) Snapshot() []Participant {
	ids := s.remoteIds()
	return lo.Map(ids, func(id ParticipantID, _ int) Participant {
		return *s.entries[id]
	})
}

func (s *Store) Assignment() Assignment {
	return Assignment{
		Slots:    slices.Clone(s.assignment.Slots),
		Unplaced: slices.Clone(s.assignment.Unplaced),
	}
}

// Entries lists the local participant first and then the remote ones by id.
func (s *Store) Entries() []Entry {
	entries := make([]Entry, 0, len(s.entries))
	if local, ok := s.entries[s.localId]; ok {
		entries = append(entries, Entry{Participant: *local, Slot: LocalSlot})
	}
	for _, p := range s.Snapshot() {
		entries = append(entries, Entry{Participant: p, Slot: s.assignment.SlotOf(p.ID)})
	}

	return entries
}

func (s *Store) remoteIds() []ParticipantID {
	ids := lo.Filter(maps.Keys(s.entries), func(id ParticipantID, _ int) bool {
		return !s.entries[id].IsLocal
	})
	slices.Sort(ids)

	return ids
}

func (s *Store) relayout() {
	a, err := AssignSlots(s.remoteIds(), s.capacity)
	if err != nil {
		var capErr *CapacityError
		if errors.As(err, &capErr) {
			s.logger.Warn("roster exceeds slot capacity", "capacity", capErr.Capacity, "unplaced", capErr.Unplaced)
		}
	}

	if a.Equal(s.assignment) {
		return
	}

	s.assignment = a
	s.logger.Debug("slot layout changed", "slots", a.Slots)
}

func (s *Store) announce(name string, joined bool) {
	if s.announcer == nil {
		s.logger.Warn("presence announcer is not bound", "name", name, "joined", joined)
		return
	}

	s.announcer.Announce(name, joined)
}
