package chat

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// ChatPort is the pull-side view of the chat module.
type ChatPort interface {
	CreateRoom(ctx context.Context, username string) (room, name string, err error)
	JoinRoom(ctx context.Context, username, roomID string) (string, error)
	PostMessage(ctx context.Context, roomID, user, text string) (Message, error)
	GetHistory(ctx context.Context, roomID string, latestOnly bool) ([]Message, error)
}

// ChatAdapter implements ChatPort using the service container.
type ChatAdapter struct {
	container mono.ServiceContainer
}

// NewChatAdapter creates a new ChatAdapter.
func NewChatAdapter(container mono.ServiceContainer) ChatPort {
	if container == nil {
		panic("chat: ServiceContainer is nil")
	}
	return &ChatAdapter{container: container}
}

func callService[Req, Resp any](ctx context.Context, container mono.ServiceContainer, service string, req Req, resp *Resp) error {
	if err := helper.CallRequestReplyService(
		ctx,
		container,
		service,
		json.Marshal,
		json.Unmarshal,
		req,
		resp,
	); err != nil {
		return fmt.Errorf("failed to call %s: %w", service, err)
	}
	return nil
}

// CreateRoom creates a room for username and returns it with the name the
// room was created under.
func (a *ChatAdapter) CreateRoom(ctx context.Context, username string) (string, string, error) {
	req := CreateRoomRequest{Username: username}
	var resp CreateRoomResponse
	if err := callService(ctx, a.container, ServiceCreateRoom, &req, &resp); err != nil {
		return "", "", err
	}
	if resp.Error != nil {
		return "", "", resp.Error.Err()
	}
	return resp.Room, resp.Username, nil
}

// JoinRoom checks that a room exists.
func (a *ChatAdapter) JoinRoom(ctx context.Context, username, roomID string) (string, error) {
	req := JoinRoomRequest{Username: username, Room: roomID}
	var resp JoinRoomResponse
	if err := callService(ctx, a.container, ServiceJoinRoom, &req, &resp); err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", resp.Error.Err()
	}
	return resp.Room, nil
}

// PostMessage posts a message into a room.
func (a *ChatAdapter) PostMessage(ctx context.Context, roomID, user, text string) (Message, error) {
	req := PostMessageRequest{Room: roomID, User: user, Text: text}
	var resp PostMessageResponse
	if err := callService(ctx, a.container, ServicePostMessage, &req, &resp); err != nil {
		return Message{}, err
	}
	if resp.Error != nil {
		return Message{}, resp.Error.Err()
	}
	if resp.Message == nil {
		return Message{}, nil
	}
	return *resp.Message, nil
}

// GetHistory reads a room's history.
func (a *ChatAdapter) GetHistory(ctx context.Context, roomID string, latestOnly bool) ([]Message, error) {
	req := GetHistoryRequest{Room: roomID, Latest: latestOnly}
	var resp GetHistoryResponse
	if err := callService(ctx, a.container, ServiceGetHistory, &req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error.Err()
	}
	return resp.Messages, nil
}
