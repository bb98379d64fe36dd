package chat

import (
	"errors"
	"reflect"
	"strings"
	"unicode/utf8"

	domain "github.com/example/room-relay/domain/chat"
	"github.com/go-playground/validator/v10"
)

// Validation constants
const (
	MaxUsernameLength = 50
	MaxMessageLength  = 5000
)

// DefaultAPISender is used when a pull-side post carries no sender.
const DefaultAPISender = "API Bot 🤖"

// Validation errors
var (
	ErrUsernameTooLong = errors.New("username exceeds maximum length")
	ErrUsernameInvalid = errors.New("username contains invalid characters")
	ErrMessageTooLong  = errors.New("message exceeds maximum length")
	ErrMessageInvalid  = errors.New("message contains invalid characters")
)

func isValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrUsernameTooLong) ||
		errors.Is(err, ErrUsernameInvalid) ||
		errors.Is(err, ErrMessageTooLong) ||
		errors.Is(err, ErrMessageInvalid)
}

// Message is the room history entry.
type Message = domain.Message

// Event kinds delivered over the push transport.
const (
	EventChatMessage = "chat message"
	EventSystem      = "system"
)

// System notice kinds.
const (
	NoticeJoined = "joined"
	NoticeLeft   = "left"
)

// Event is a room-scoped frame delivered by the fan-out engine.
type Event struct {
	Type string `json:"type"`
	Kind string `json:"kind,omitempty"`
	Room string `json:"room,omitempty"`
	User string `json:"user,omitempty"`
	Text string `json:"text"`
	Seq  int    `json:"seq,omitempty"`
}

func messageEvent(roomID string, msg Message) Event {
	return Event{
		Type: EventChatMessage,
		Room: roomID,
		User: msg.User,
		Text: msg.Text,
		Seq:  msg.Seq,
	}
}

func noticeEvent(kind, roomID, text string) Event {
	return Event{
		Type: EventSystem,
		Kind: kind,
		Room: roomID,
		Text: text,
	}
}

// Request-reply service names.
const (
	ServiceCreateRoom  = "create-room"
	ServiceJoinRoom    = "join-room"
	ServicePostMessage = "post-message"
	ServiceGetHistory  = "get-history"
)

// CreateRoomRequest is the request for creating a room over the pull transport.
type CreateRoomRequest struct {
	Username string `json:"username" validate:"required"`
}

// CreateRoomResponse is the response for creating a room.
type CreateRoomResponse struct {
	Room     string        `json:"room,omitempty"`
	Username string        `json:"username,omitempty"`
	Error    *ServiceError `json:"error,omitempty"`
}

// JoinRoomRequest is the request for joining a room.
type JoinRoomRequest struct {
	Username string `json:"username" validate:"required"`
	Room     string `json:"room" validate:"required"`
}

// JoinRoomResponse is the response for joining a room.
type JoinRoomResponse struct {
	Success bool          `json:"success"`
	Room    string        `json:"room,omitempty"`
	Error   *ServiceError `json:"error,omitempty"`
}

// PostMessageRequest is the request for posting a message without a connection.
type PostMessageRequest struct {
	Room string `json:"room" validate:"required"`
	User string `json:"user"`
	Text string `json:"text" validate:"required"`
}

// PostMessageResponse is the response for posting a message.
type PostMessageResponse struct {
	Success   bool          `json:"success"`
	Delivered bool          `json:"delivered"`
	Message   *Message      `json:"message,omitempty"`
	Error     *ServiceError `json:"error,omitempty"`
}

// GetHistoryRequest is the request for reading a room's history.
type GetHistoryRequest struct {
	Room   string `json:"room" validate:"required"`
	Latest bool   `json:"latest"`
}

// GetHistoryResponse is the response for reading a room's history.
type GetHistoryResponse struct {
	Room     string        `json:"room,omitempty"`
	Messages []Message     `json:"messages"`
	Error    *ServiceError `json:"error,omitempty"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateRequest reports the first missing required field of a request.
func ValidateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		if verrs[0].Tag() == "required" {
			return missingField(verrs[0].Field())
		}
		return errors.Join(ErrInvalidInput, verrs)
	}
	return err
}

// ValidateUsername validates a display name.
func ValidateUsername(username string) error {
	if strings.TrimSpace(username) == "" {
		return missingField("username")
	}
	if utf8.RuneCountInString(username) > MaxUsernameLength {
		return ErrUsernameTooLong
	}
	if !utf8.ValidString(username) {
		return ErrUsernameInvalid
	}
	return nil
}

// ValidateMessage validates message text against maxLen runes.
func ValidateMessage(text string, maxLen int) error {
	if maxLen <= 0 {
		maxLen = MaxMessageLength
	}
	if text == "" {
		return missingField("text")
	}
	if !utf8.ValidString(text) {
		return ErrMessageInvalid
	}
	if utf8.RuneCountInString(text) > maxLen {
		return ErrMessageTooLong
	}
	return nil
}
