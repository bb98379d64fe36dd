package chat

import (
	"fmt"
	"sync"
	"time"

	"github.com/example/room-relay/events"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/google/uuid"
)

// maxCreateAttempts bounds how often a colliding room code is re-rolled.
const maxCreateAttempts = 32

// Publisher receives committed room changes. It is always called after the
// room lock has been released.
type Publisher interface {
	RoomCreated(events.RoomCreatedEvent)
	MessagePosted(events.MessagePostedEvent)
	MemberJoined(events.MemberJoinedEvent)
	MemberLeft(events.MemberLeftEvent)
}

type nopPublisher struct{}

func (nopPublisher) RoomCreated(events.RoomCreatedEvent)     {}
func (nopPublisher) MessagePosted(events.MessagePostedEvent) {}
func (nopPublisher) MemberJoined(events.MemberJoinedEvent)   {}
func (nopPublisher) MemberLeft(events.MemberLeftEvent)       {}

// Options configures an Engine.
type Options struct {
	// Codes generates room ids. Defaults to random 4-hex-digit codes.
	Codes CodeGenerator
	// Publisher receives room changes. Defaults to a no-op.
	Publisher Publisher
	// MaxMessageLength caps message text in runes. Defaults to MaxMessageLength.
	MaxMessageLength int
}

// Stats is a point-in-time snapshot of engine state.
type Stats struct {
	Rooms       int `json:"rooms"`
	Connections int `json:"connections"`
	Bound       int `json:"bound"`
}

// Engine owns the room store, the connection registry and the fan-out engine,
// and serializes every mutation of a room behind that room's lock.
type Engine struct {
	rooms     *RoomStore
	registry  *ConnectionRegistry
	fanout    *FanOut
	codes     CodeGenerator
	publisher Publisher
	logger    types.Logger
	maxLen    int

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewEngine creates an engine with its own store and registry.
func NewEngine(logger types.Logger, opts Options) (*Engine, error) {
	codes := opts.Codes
	if codes == nil {
		codes = NewRoomCodeGenerator()
	}
	publisher := opts.Publisher
	if publisher == nil {
		publisher = nopPublisher{}
	}
	maxLen := opts.MaxMessageLength
	if maxLen <= 0 {
		maxLen = MaxMessageLength
	}

	registry := NewConnectionRegistry()
	return &Engine{
		rooms:     NewRoomStore(),
		registry:  registry,
		fanout:    NewFanOut(registry, logger),
		codes:     codes,
		publisher: publisher,
		logger:    logger,
		maxLen:    maxLen,
		locks:     make(map[string]*sync.Mutex),
	}, nil
}

// Registry returns the connection registry.
func (e *Engine) Registry() *ConnectionRegistry {
	return e.registry
}

// Rooms returns the room store.
func (e *Engine) Rooms() *RoomStore {
	return e.rooms
}

// SetPublisher replaces the publisher. Call before serving traffic.
func (e *Engine) SetPublisher(p Publisher) {
	if p == nil {
		p = nopPublisher{}
	}
	e.publisher = p
}

// lockRoom locks an existing room. Rooms are never deleted, so a room that
// exists when checked still exists once the lock is held.
func (e *Engine) lockRoom(roomID string) (func(), error) {
	if !e.rooms.RoomExists(roomID) {
		return nil, ErrRoomNotFound
	}

	e.locksMu.Lock()
	mu, ok := e.locks[roomID]
	if !ok {
		mu = &sync.Mutex{}
		e.locks[roomID] = mu
	}
	e.locksMu.Unlock()

	mu.Lock()
	return mu.Unlock, nil
}

// RoomExists reports whether roomID names an existing room.
func (e *Engine) RoomExists(roomID string) bool {
	return e.rooms.RoomExists(NormalizeRoomID(roomID))
}

// MemberCount returns the number of connections bound to roomID.
func (e *Engine) MemberCount(roomID string) int {
	return e.registry.MemberCount(NormalizeRoomID(roomID))
}

// Stats returns counts of rooms and connections.
func (e *Engine) Stats() Stats {
	return Stats{
		Rooms:       e.rooms.RoomCount(),
		Connections: e.fanout.ConnCount(),
		Bound:       e.registry.Len(),
	}
}

// CreateRoom allocates a fresh room code, re-rolling on collision.
func (e *Engine) CreateRoom(createdBy string) (string, error) {
	for range maxCreateAttempts {
		roomID := NormalizeRoomID(e.codes.Generate())
		if !e.rooms.TryCreateRoom(roomID) {
			e.logger.Debug("Room code collision, re-rolling", "roomID", roomID)
			continue
		}

		e.logger.Info("Room created", "roomID", roomID, "createdBy", createdBy)
		e.publisher.RoomCreated(events.RoomCreatedEvent{
			RoomID:    roomID,
			CreatedBy: createdBy,
			Timestamp: time.Now(),
		})
		return roomID, nil
	}
	return "", ErrRoomSpaceExhausted
}

// Join binds connID to an existing room and announces it to every member,
// the joiner included.
func (e *Engine) Join(connID, username, roomID string) (string, error) {
	roomID = NormalizeRoomID(roomID)
	unlock, err := e.lockRoom(roomID)
	if err != nil {
		return "", err
	}

	e.registry.Bind(connID, username, roomID)
	notice := noticeEvent(NoticeJoined, roomID, fmt.Sprintf("%s joined %s", username, roomID))
	if _, err := e.fanout.Broadcast(roomID, notice); err != nil {
		e.logger.Error("Failed to broadcast join notice", "roomID", roomID, "error", err)
	}
	unlock()

	e.logger.Info("User joined room", "connID", connID, "roomID", roomID)
	e.publisher.MemberJoined(events.MemberJoinedEvent{
		RoomID:    roomID,
		ConnID:    connID,
		Username:  username,
		Timestamp: time.Now(),
	})
	return roomID, nil
}

// Leave unbinds connID and announces it to the remaining members.
func (e *Engine) Leave(connID string) (Entry, bool) {
	current, ok := e.registry.Lookup(connID)
	if !ok {
		return Entry{}, false
	}

	unlock, err := e.lockRoom(current.RoomID)
	if err != nil {
		// Bound to a room that does not exist; drop the binding anyway.
		entry, ok := e.registry.Unbind(connID)
		return entry, ok
	}

	entry, ok := e.registry.Unbind(connID)
	if ok {
		notice := noticeEvent(NoticeLeft, entry.RoomID, fmt.Sprintf("%s left", entry.Username))
		if _, err := e.fanout.Broadcast(entry.RoomID, notice); err != nil {
			e.logger.Error("Failed to broadcast leave notice", "roomID", entry.RoomID, "error", err)
		}
	}
	unlock()

	if ok {
		e.logger.Info("User left room", "connID", connID, "roomID", entry.RoomID)
		e.publisher.MemberLeft(events.MemberLeftEvent{
			RoomID:    entry.RoomID,
			ConnID:    connID,
			Username:  entry.Username,
			Timestamp: time.Now(),
		})
	}
	return entry, ok
}

// Post appends a message to roomID and delivers it to every member. The append
// and the delivery happen under the room lock, so every member and every
// history reader observes the same order.
func (e *Engine) Post(roomID, sender, text string) (Message, error) {
	if err := ValidateMessage(text, e.maxLen); err != nil {
		return Message{}, err
	}

	roomID = NormalizeRoomID(roomID)
	unlock, err := e.lockRoom(roomID)
	if err != nil {
		return Message{}, err
	}

	msg, err := e.rooms.AppendMessage(roomID, Message{User: sender, Text: text})
	if err != nil {
		unlock()
		return Message{}, err
	}
	if _, err := e.fanout.Broadcast(roomID, messageEvent(roomID, msg)); err != nil {
		e.logger.Error("Failed to broadcast message", "roomID", roomID, "error", err)
	}
	unlock()

	e.logger.Debug("Message posted", "roomID", roomID, "seq", msg.Seq)
	e.publisher.MessagePosted(events.MessagePostedEvent{
		RoomID:    roomID,
		Seq:       msg.Seq,
		Username:  msg.User,
		Text:      msg.Text,
		Timestamp: msg.SentAt,
	})
	return msg, nil
}

// PostFrom posts text as the connection's display name into its current room.
func (e *Engine) PostFrom(connID, text string) (Message, error) {
	entry, ok := e.registry.Lookup(connID)
	if !ok {
		return Message{}, ErrNotBound
	}
	return e.Post(entry.RoomID, entry.Username, text)
}

// History returns the room's messages in committed order.
func (e *Engine) History(roomID string) ([]Message, error) {
	roomID = NormalizeRoomID(roomID)
	unlock, err := e.lockRoom(roomID)
	if err != nil {
		return nil, err
	}
	defer unlock()
	return e.rooms.History(roomID)
}

// LatestPerSender returns the last message of each sender in roomID.
func (e *Engine) LatestPerSender(roomID string) ([]Message, error) {
	roomID = NormalizeRoomID(roomID)
	unlock, err := e.lockRoom(roomID)
	if err != nil {
		return nil, err
	}
	defer unlock()
	return e.rooms.LatestPerSender(roomID)
}

// Open attaches a new connection endpoint and returns its session.
func (e *Engine) Open(conn Conn) *Session {
	connID := uuid.New().String()
	e.fanout.Attach(connID, conn)
	return &Session{
		engine: e,
		connID: connID,
		state:  StateUnbound,
	}
}

// Reply delivers a direct (non-room) frame to one connection.
func (e *Engine) Reply(connID string, frame any) error {
	return e.fanout.Send(connID, frame)
}
