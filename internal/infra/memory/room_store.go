package memory

import (
	"sync"

	"quizroom-service/internal/app"
)

// RoomStore is an in-memory implementation of app.RoomRepository.
type RoomStore struct {
	newRoom app.RoomFactory

	mu    sync.RWMutex
	rooms map[string]*app.Room
}

func NewRoomStore(factory app.RoomFactory) *RoomStore {
	return &RoomStore{
		newRoom: factory,
		rooms:   make(map[string]*app.Room),
	}
}

// GetOrCreate returns the open room for code, replacing one that has already closed.
func (s *RoomStore) GetOrCreate(code string) *app.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	if room, ok := s.rooms[code]; ok && !room.Closed() {
		return room
	}
	room := s.newRoom(code)
	s.rooms[code] = room
	return room
}

func (s *RoomStore) Get(code string) (*app.Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[code]
	if !ok || room.Closed() {
		return nil, false
	}
	return room, true
}

// DeleteIfEmpty closes and forgets the room when it has no players. The room is asked
// outside the store lock so a busy room never stalls the registry.
func (s *RoomStore) DeleteIfEmpty(code string) {
	s.mu.RLock()
	room, ok := s.rooms[code]
	s.mu.RUnlock()
	if !ok || !room.CloseIfEmpty() {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rooms[code] == room {
		delete(s.rooms, code)
	}
}

func (s *RoomStore) List() []*app.Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rooms := make([]*app.Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		if !room.Closed() {
			rooms = append(rooms, room)
		}
	}
	return rooms
}

// Close tears down every room and empties the store.
func (s *RoomStore) Close() {
	s.mu.Lock()
	rooms := s.rooms
	s.rooms = make(map[string]*app.Room)
	s.mu.Unlock()

	for _, room := range rooms {
		room.Close()
	}
}
