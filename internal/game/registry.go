// internal/game/registry.go
package game

import (
	"log"
	"sync"
)

// Registry owns the mapping from room id to room. Rooms never share
// mutable state; the registry only enforces id uniqueness and lookup.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*Room
}

// NewRegistry initializes and returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]*Room),
	}
}

// Add inserts a new room, failing with ErrRoomIDTaken if the id is in use.
// The room is wired back to the registry so end-of-game teardown and the
// reveal timer can resolve it by id.
func (s *Registry) Add(room *Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rooms[room.ID]; exists {
		return ErrRoomIDTaken
	}
	room.store = s
	s.rooms[room.ID] = room
	log.Printf("Registry: added room %q.", room.ID)
	return nil
}

// Get retrieves a room by id.
func (s *Registry) Get(id string) (*Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	return r, ok
}

// Remove deletes a room by id. Idempotent; removing an absent room is a no-op.
func (s *Registry) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rooms[id]; exists {
		delete(s.rooms, id)
		log.Printf("Registry: removed room %q.", id)
	}
}

// Len returns the number of active rooms.
func (s *Registry) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}
