package chat

import (
	"sync"
	"time"
)

type roomState struct {
	createdAt time.Time
	messages  []Message
}

// RoomStore provides thread-safe storage for rooms and their message history.
// Callers needing append-then-broadcast atomicity serialize through Engine.
type RoomStore struct {
	mu    sync.RWMutex
	rooms map[string]*roomState
	now   func() time.Time
}

// NewRoomStore creates a new room store.
func NewRoomStore() *RoomStore {
	return &RoomStore{
		rooms: make(map[string]*roomState),
		now:   time.Now,
	}
}

// CreateRoom creates roomID, resetting its history if it already exists.
func (s *RoomStore) CreateRoom(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[roomID] = &roomState{createdAt: s.now()}
}

// TryCreateRoom creates roomID only if it does not exist yet.
func (s *RoomStore) TryCreateRoom(roomID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rooms[roomID]; exists {
		return false
	}
	s.rooms[roomID] = &roomState{createdAt: s.now()}
	return true
}

// RoomExists checks if a room exists.
func (s *RoomStore) RoomExists(roomID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.rooms[roomID]
	return exists
}

// RoomCount returns the number of rooms.
func (s *RoomStore) RoomCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

// AppendMessage appends msg to the room history and returns it with its
// position and timestamp filled in.
func (s *RoomStore) AppendMessage(roomID string, msg Message) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, exists := s.rooms[roomID]
	if !exists {
		return Message{}, ErrRoomNotFound
	}

	msg.Seq = len(room.messages) + 1
	if msg.SentAt.IsZero() {
		msg.SentAt = s.now()
	}
	room.messages = append(room.messages, msg)
	return msg, nil
}

// History returns a copy of the room's messages in arrival order.
func (s *RoomStore) History(roomID string) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, exists := s.rooms[roomID]
	if !exists {
		return nil, ErrRoomNotFound
	}

	result := make([]Message, len(room.messages))
	copy(result, room.messages)
	return result, nil
}

// LatestPerSender returns each sender's most recent message, ordered by the
// position at which the sender first appeared.
func (s *RoomStore) LatestPerSender(roomID string) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, exists := s.rooms[roomID]
	if !exists {
		return nil, ErrRoomNotFound
	}

	index := make(map[string]int)
	result := make([]Message, 0)
	for _, msg := range room.messages {
		if i, seen := index[msg.User]; seen {
			result[i] = msg
			continue
		}
		index[msg.User] = len(result)
		result = append(result, msg)
	}
	return result, nil
}
