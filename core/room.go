package core

import (
	"log/slog"
	"slices"
	"sync"
)

// RoomStore holds the client's view of the room catalog and the single
// active room. Catalog, history and member set are server-owned snapshots:
// the store replaces them wholesale and never merges. Joining a new room
// discards the previous room's in-memory history; the server remains the
// source of truth.
type RoomStore struct {
	mu           sync.RWMutex
	catalog      []Room
	active       string
	loading      bool
	history      []Message
	members      []string
	messageCount int
	emit         Emitter
	logger       *slog.Logger
}

func NewRoomStore(emit Emitter, logger *slog.Logger) *RoomStore {
	return &RoomStore{emit: emit, logger: logger}
}

// RefreshCatalog replaces the room catalog with a new snapshot.
func (s *RoomStore) RefreshCatalog(rooms []Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog = slices.Clone(rooms)
}

func (s *RoomStore) Catalog() []Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.catalog)
}

func (s *RoomStore) Active() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// InputEnabled reports whether the message input is usable: it is disabled
// whenever no room is active.
func (s *RoomStore) InputEnabled() bool {
	return s.Active() != ""
}

// Loading reports whether the active room's history is still in flight.
func (s *RoomStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Join makes name the active room. When name is already active it is a
// no-op: no join or history request is issued and the history is untouched.
// Otherwise the previous room's state is dropped, the history enters a
// loading state, and the server is asked for the join and the new room's
// messages. It reports whether the active room actually changed.
func (s *RoomStore) Join(name string) (bool, error) {
	s.mu.Lock()
	if s.active == name {
		s.mu.Unlock()
		return false, nil
	}
	s.active = name
	s.history = nil
	s.members = nil
	s.messageCount = 0
	s.loading = true
	s.mu.Unlock()

	if err := s.emit.Emit(RoomJoinEvent, RoomJoinPayload{Name: name}); err != nil {
		return true, err
	}
	if err := s.emit.Emit(RoomHistoryGetEvent, RoomHistoryGetPayload{Room: name}); err != nil {
		return true, err
	}
	return true, nil
}

// Leave clears the active room and returns the input to a disabled, empty
// state. A fresh catalog is requested so the member counts update promptly.
func (s *RoomStore) Leave() error {
	s.mu.Lock()
	if s.active == "" {
		s.mu.Unlock()
		return nil
	}
	s.active = ""
	s.history = nil
	s.members = nil
	s.messageCount = 0
	s.loading = false
	s.mu.Unlock()

	if err := s.emit.Emit(RoomLeaveEvent, nil); err != nil {
		return err
	}
	return s.emit.Emit(CatalogGetEvent, nil)
}

// ApplyInfo replaces the active room's member set and message count.
// Info for any other room is stale and ignored.
func (s *RoomStore) ApplyInfo(name string, members []string, messageCount int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != name {
		return
	}
	s.members = slices.Clone(members)
	s.messageCount = messageCount
}

// ApplyHistory replaces the history wholesale with the server's bulk load.
// History for a room other than the active one is ignored.
func (s *RoomStore) ApplyHistory(room string, messages []Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != room {
		return
	}
	s.history = slices.Clone(messages)
	s.loading = false
}

// ApplyMessage appends an incoming message to the active room's history.
// It reports whether the message was applied, so the router can clear the
// author from the typing set.
func (s *RoomStore) ApplyMessage(msg Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == "" {
		return false
	}
	s.history = append(s.history, msg)
	return true
}

func (s *RoomStore) History() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.history)
}

func (s *RoomStore) Members() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.members)
}

func (s *RoomStore) MessageCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.messageCount
}
