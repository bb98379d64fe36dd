package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// RoomCreatedEvent is emitted when a new room is created.
type RoomCreatedEvent struct {
	RoomID    string    `json:"room_id"`
	CreatedBy string    `json:"created_by"`
	Timestamp time.Time `json:"timestamp"`
}

// MessagePostedEvent is emitted after a message is committed to a room's history.
type MessagePostedEvent struct {
	RoomID    string    `json:"room_id"`
	Seq       int       `json:"seq"`
	Username  string    `json:"username"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// MemberJoinedEvent is emitted when a connection joins a room.
type MemberJoinedEvent struct {
	RoomID    string    `json:"room_id"`
	ConnID    string    `json:"conn_id"`
	Username  string    `json:"username"`
	Timestamp time.Time `json:"timestamp"`
}

// MemberLeftEvent is emitted when a bound connection disconnects.
type MemberLeftEvent struct {
	RoomID    string    `json:"room_id"`
	ConnID    string    `json:"conn_id"`
	Username  string    `json:"username"`
	Timestamp time.Time `json:"timestamp"`
}

// Event definitions for the chat domain.
var (
	RoomCreatedV1 = helper.EventDefinition[RoomCreatedEvent](
		"chat",
		"RoomCreated",
		"v1",
	)

	MessagePostedV1 = helper.EventDefinition[MessagePostedEvent](
		"chat",
		"MessagePosted",
		"v1",
	)

	MemberJoinedV1 = helper.EventDefinition[MemberJoinedEvent](
		"chat",
		"MemberJoined",
		"v1",
	)

	MemberLeftV1 = helper.EventDefinition[MemberLeftEvent](
		"chat",
		"MemberLeft",
		"v1",
	)
)
