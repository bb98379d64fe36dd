package chat

import (
	"strings"
	"sync"
	"time"

	"github.com/example/room-relay/events"
)

// SessionState is the protocol state of a push-side connection.
type SessionState int

const (
	StateUnbound SessionState = iota
	StateBound
	StateDisconnected
)

func (s SessionState) String() string {
	switch s {
	case StateUnbound:
		return "unbound"
	case StateBound:
		return "bound"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Session drives one push-side connection through
// Unbound -> Bound(room) -> Disconnected.
// A session belongs to at most one room for its whole life.
type Session struct {
	engine *Engine
	connID string

	mu       sync.Mutex
	state    SessionState
	roomID   string
	username string
}

// ConnID returns the connection id.
func (s *Session) ConnID() string {
	return s.connID
}

// State returns the current state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// RoomID returns the bound room, or "" while unbound.
func (s *Session) RoomID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomID
}

// Username returns the display name set at create or join.
func (s *Session) Username() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.username
}

func (s *Session) checkUnbound() error {
	switch s.state {
	case StateBound:
		return ErrAlreadyBound
	case StateDisconnected:
		return ErrDisconnected
	}
	return nil
}

// Create makes a new room and binds the session to it as name.
func (s *Session) Create(name string) (string, error) {
	name = strings.TrimSpace(name)
	if err := ValidateUsername(name); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkUnbound(); err != nil {
		return "", err
	}

	roomID, err := s.engine.CreateRoom(name)
	if err != nil {
		return "", err
	}
	if err := s.engine.bindCreator(s.connID, name, roomID); err != nil {
		return "", err
	}

	s.state = StateBound
	s.roomID = roomID
	s.username = name
	return roomID, nil
}

// Join binds the session to an existing room as name. On ErrRoomNotFound the
// session stays unbound.
func (s *Session) Join(name, roomID string) (string, error) {
	name = strings.TrimSpace(name)
	if err := ValidateUsername(name); err != nil {
		return "", err
	}
	roomID = NormalizeRoomID(roomID)
	if roomID == "" {
		return "", missingField("room")
	}
	if !IsValidRoomCode(roomID) {
		return "", ErrRoomNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkUnbound(); err != nil {
		return "", err
	}

	joined, err := s.engine.Join(s.connID, name, roomID)
	if err != nil {
		return "", err
	}

	s.state = StateBound
	s.roomID = joined
	s.username = name
	return joined, nil
}

// Send posts text to the bound room.
func (s *Session) Send(text string) (Message, error) {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()

	switch state {
	case StateUnbound:
		return Message{}, ErrNotBound
	case StateDisconnected:
		return Message{}, ErrDisconnected
	}
	return s.engine.PostFrom(s.connID, text)
}

// Reply delivers a direct frame to this connection only.
func (s *Session) Reply(frame any) error {
	return s.engine.Reply(s.connID, frame)
}

// Disconnect leaves the bound room, if any, and detaches the connection.
// It is safe to call more than once.
func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateDisconnected {
		return
	}

	s.engine.fanout.Detach(s.connID)
	if s.state == StateBound {
		s.engine.Leave(s.connID)
	}
	s.state = StateDisconnected
}

// bindCreator binds the creator of a fresh room. No notice is sent since the
// creator is the only member.
func (e *Engine) bindCreator(connID, username, roomID string) error {
	unlock, err := e.lockRoom(roomID)
	if err != nil {
		return err
	}
	e.registry.Bind(connID, username, roomID)
	unlock()

	e.publisher.MemberJoined(events.MemberJoinedEvent{
		RoomID:    roomID,
		ConnID:    connID,
		Username:  username,
		Timestamp: time.Now(),
	})
	return nil
}
