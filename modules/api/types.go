package api

import (
	"time"

	"github.com/example/room-relay/modules/chat"
	"github.com/samber/lo"
)

// CreateRoomBody is the body of POST /api/createRoom.
type CreateRoomBody struct {
	Username string `json:"username"`
}

// CreateRoomResponse is the response of POST /api/createRoom.
type CreateRoomResponse struct {
	Room     string `json:"room"`
	Username string `json:"username"`
}

// JoinRoomBody is the body of POST /api/joinRoom.
type JoinRoomBody struct {
	Username string `json:"username"`
	Room     string `json:"room"`
}

// JoinRoomResponse is the response of POST /api/joinRoom.
type JoinRoomResponse struct {
	Success bool   `json:"success"`
	Room    string `json:"room"`
}

// SendBody is the body of POST /api/send.
type SendBody struct {
	Room string `json:"room"`
	User string `json:"user"`
	Text string `json:"text"`
}

// SendResponse is the response of POST /api/send.
type SendResponse struct {
	Success   bool `json:"success"`
	Delivered bool `json:"delivered"`
}

// MessageResponse is a history entry.
type MessageResponse struct {
	User   string    `json:"user"`
	Text   string    `json:"text"`
	Seq    int       `json:"seq"`
	SentAt time.Time `json:"sent_at"`
}

// HistoryResponse is the response of GET /api/rooms/:room.
type HistoryResponse struct {
	Room     string            `json:"room"`
	Messages []MessageResponse `json:"messages"`
}

// ErrorResponse is the API error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HealthResponse is the API health check response.
type HealthResponse struct {
	Status  string         `json:"status"`
	Details map[string]any `json:"details,omitempty"`
}

func toMessageResponses(messages []chat.Message) []MessageResponse {
	return lo.Map(messages, func(msg chat.Message, _ int) MessageResponse {
		return MessageResponse{
			User:   msg.User,
			Text:   msg.Text,
			Seq:    msg.Seq,
			SentAt: msg.SentAt,
		}
	})
}
