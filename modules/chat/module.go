package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/example/room-relay/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
)

// Module owns the room engine and exposes it to the pull transport as
// request-reply services and to other modules as EventBus events.
type Module struct {
	engine   *Engine
	history  *HistoryService
	eventBus mono.EventBus
	logger   types.Logger
}

// Compile-time interface checks
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.ServiceProviderModule = (*Module)(nil)
	_ mono.EventBusAwareModule   = (*Module)(nil)
	_ mono.EventEmitterModule    = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
	_ Publisher                  = (*Module)(nil)
)

// NewModule creates a new chat module.
func NewModule(logger types.Logger, opts Options) (*Module, error) {
	m := &Module{logger: logger}
	if opts.Publisher == nil {
		opts.Publisher = m
	}

	engine, err := NewEngine(logger, opts)
	if err != nil {
		return nil, err
	}
	m.engine = engine
	m.history = NewHistoryService(engine)
	return m, nil
}

// Name returns the module name.
func (m *Module) Name() string {
	return "chat"
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.RoomCreatedV1.ToBase(),
		events.MessagePostedV1.ToBase(),
		events.MemberJoinedV1.ToBase(),
		events.MemberLeftV1.ToBase(),
	}
}

// Engine returns the room engine shared with the push transport.
func (m *Module) Engine() *Engine {
	return m.engine
}

// Start starts the module.
func (m *Module) Start(_ context.Context) error {
	m.logger.Info("Chat module started")
	return nil
}

// Stop stops the module.
func (m *Module) Stop(_ context.Context) error {
	stats := m.engine.Stats()
	m.logger.Info("Chat module stopped", "rooms", stats.Rooms, "connections", stats.Connections)
	return nil
}

// Health reports room and connection counts.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	stats := m.engine.Stats()
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"rooms":       stats.Rooms,
			"connections": stats.Connections,
			"bound":       stats.Bound,
		},
	}
}

// RegisterServices registers request-reply services in the service container.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container,
		ServiceCreateRoom,
		json.Unmarshal,
		json.Marshal,
		m.handleCreateRoom,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceCreateRoom, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container,
		ServiceJoinRoom,
		json.Unmarshal,
		json.Marshal,
		m.handleJoinRoom,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceJoinRoom, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container,
		ServicePostMessage,
		json.Unmarshal,
		json.Marshal,
		m.handlePostMessage,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServicePostMessage, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container,
		ServiceGetHistory,
		json.Unmarshal,
		json.Marshal,
		m.handleGetHistory,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceGetHistory, err)
	}

	m.logger.Info("Registered chat services",
		"services", []string{ServiceCreateRoom, ServiceJoinRoom, ServicePostMessage, ServiceGetHistory})
	return nil
}

// Domain failures are returned inside the response so their kind survives the
// request-reply boundary.

func (m *Module) handleCreateRoom(_ context.Context, req CreateRoomRequest, _ *mono.Msg) (CreateRoomResponse, error) {
	if err := ValidateRequest(req); err != nil {
		return CreateRoomResponse{Error: ToServiceError(err)}, nil
	}
	roomID, err := m.history.CreateRoom(req.Username)
	if err != nil {
		return CreateRoomResponse{Error: ToServiceError(err)}, nil
	}
	return CreateRoomResponse{Room: roomID, Username: strings.TrimSpace(req.Username)}, nil
}

func (m *Module) handleJoinRoom(_ context.Context, req JoinRoomRequest, _ *mono.Msg) (JoinRoomResponse, error) {
	if err := ValidateRequest(req); err != nil {
		return JoinRoomResponse{Error: ToServiceError(err)}, nil
	}
	roomID, err := m.history.JoinRoom(req.Username, req.Room)
	if err != nil {
		return JoinRoomResponse{Error: ToServiceError(err)}, nil
	}
	return JoinRoomResponse{Success: true, Room: roomID}, nil
}

func (m *Module) handlePostMessage(_ context.Context, req PostMessageRequest, _ *mono.Msg) (PostMessageResponse, error) {
	if err := ValidateRequest(req); err != nil {
		return PostMessageResponse{Error: ToServiceError(err)}, nil
	}
	msg, err := m.history.PostMessage(req.Room, req.User, req.Text)
	if err != nil {
		return PostMessageResponse{Error: ToServiceError(err)}, nil
	}
	return PostMessageResponse{Success: true, Delivered: true, Message: &msg}, nil
}

func (m *Module) handleGetHistory(_ context.Context, req GetHistoryRequest, _ *mono.Msg) (GetHistoryResponse, error) {
	if err := ValidateRequest(req); err != nil {
		return GetHistoryResponse{Error: ToServiceError(err)}, nil
	}
	messages, err := m.history.GetHistory(req.Room, req.Latest)
	if err != nil {
		return GetHistoryResponse{Error: ToServiceError(err)}, nil
	}
	return GetHistoryResponse{Room: NormalizeRoomID(req.Room), Messages: messages}, nil
}

// RoomCreated publishes a RoomCreated event.
func (m *Module) RoomCreated(event events.RoomCreatedEvent) {
	if m.eventBus == nil {
		return
	}
	if err := events.RoomCreatedV1.Publish(m.eventBus, event, nil); err != nil {
		m.logger.Warn("Failed to publish RoomCreated event", "roomID", event.RoomID, "error", err)
	}
}

// MessagePosted publishes a MessagePosted event.
func (m *Module) MessagePosted(event events.MessagePostedEvent) {
	if m.eventBus == nil {
		return
	}
	if err := events.MessagePostedV1.Publish(m.eventBus, event, nil); err != nil {
		m.logger.Warn("Failed to publish MessagePosted event", "roomID", event.RoomID, "error", err)
	}
}

// MemberJoined publishes a MemberJoined event.
func (m *Module) MemberJoined(event events.MemberJoinedEvent) {
	if m.eventBus == nil {
		return
	}
	if err := events.MemberJoinedV1.Publish(m.eventBus, event, nil); err != nil {
		m.logger.Warn("Failed to publish MemberJoined event", "roomID", event.RoomID, "error", err)
	}
}

// MemberLeft publishes a MemberLeft event.
func (m *Module) MemberLeft(event events.MemberLeftEvent) {
	if m.eventBus == nil {
		return
	}
	if err := events.MemberLeftV1.Publish(m.eventBus, event, nil); err != nil {
		m.logger.Warn("Failed to publish MemberLeft event", "roomID", event.RoomID, "error", err)
	}
}
