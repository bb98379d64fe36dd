package chat

import "strings"

// HistoryService is the pull-side entry point. It shares the Engine with the
// push side, so both transports see the same rooms in the same order.
type HistoryService struct {
	engine *Engine
}

// NewHistoryService creates a history service over engine.
func NewHistoryService(engine *Engine) *HistoryService {
	return &HistoryService{engine: engine}
}

// GetHistory returns the room history, or the latest message per sender when
// latestOnly is set.
func (h *HistoryService) GetHistory(roomID string, latestOnly bool) ([]Message, error) {
	if NormalizeRoomID(roomID) == "" {
		return nil, missingField("room")
	}
	if latestOnly {
		return h.engine.LatestPerSender(roomID)
	}
	return h.engine.History(roomID)
}

// PostMessage posts text into roomID as sender, defaulting the sender to the
// API bot name. Live members receive it like any push-side message.
func (h *HistoryService) PostMessage(roomID, sender, text string) (Message, error) {
	if NormalizeRoomID(roomID) == "" {
		return Message{}, missingField("room")
	}
	sender = strings.TrimSpace(sender)
	if sender == "" {
		sender = DefaultAPISender
	}
	return h.engine.Post(roomID, sender, text)
}

// CreateRoom creates a room on behalf of username without binding a connection.
func (h *HistoryService) CreateRoom(username string) (string, error) {
	if err := ValidateUsername(username); err != nil {
		return "", err
	}
	return h.engine.CreateRoom(strings.TrimSpace(username))
}

// JoinRoom checks that roomID exists for username. Without a connection there
// is nothing to bind.
func (h *HistoryService) JoinRoom(username, roomID string) (string, error) {
	if err := ValidateUsername(username); err != nil {
		return "", err
	}
	roomID = NormalizeRoomID(roomID)
	if roomID == "" {
		return "", missingField("room")
	}
	if !IsValidRoomCode(roomID) || !h.engine.RoomExists(roomID) {
		return "", ErrRoomNotFound
	}
	return roomID, nil
}
