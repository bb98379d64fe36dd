package wsserver

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/example/room-relay/modules/chat"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// Client to server frame types.
const (
	FrameCreateRoom  = "create room"
	FrameJoinRoom    = "join room"
	FrameChatMessage = "chat message"
)

// Server to client frame types besides room events.
const (
	FrameAck   = "ack"
	FrameError = "error"
)

// Frame is a client to server message.
type Frame struct {
	Type     string `json:"type"`
	Ack      string `json:"ack,omitempty"`
	Username string `json:"username,omitempty"`
	Room     string `json:"room,omitempty"`
	Text     string `json:"text,omitempty"`
}

// AckFrame answers create and join frames.
type AckFrame struct {
	Type    string `json:"type"`
	Ack     string `json:"ack,omitempty"`
	Success bool   `json:"success"`
	Room    string `json:"room,omitempty"`
	Message string `json:"message,omitempty"`
}

// ErrorFrame reports a failure that has no ack.
type ErrorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Config tunes the push transport.
type Config struct {
	SendQueueSize      int
	RateLimitBurst     int
	RateLimitPerSecond int
}

// DefaultConfig returns the settings used when none are configured.
func DefaultConfig() Config {
	return Config{
		SendQueueSize:      64,
		RateLimitBurst:     20,
		RateLimitPerSecond: 10,
	}
}

// Handlers serves the push transport over websockets.
type Handlers struct {
	engine *chat.Engine
	logger types.Logger
	cfg    Config

	clients sync.Map // connID -> *Client
}

// NewHandlers creates websocket handlers over engine.
func NewHandlers(engine *chat.Engine, logger types.Logger, cfg Config) *Handlers {
	def := DefaultConfig()
	if cfg.SendQueueSize <= 0 {
		cfg.SendQueueSize = def.SendQueueSize
	}
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = def.RateLimitBurst
	}
	if cfg.RateLimitPerSecond <= 0 {
		cfg.RateLimitPerSecond = def.RateLimitPerSecond
	}
	return &Handlers{
		engine: engine,
		logger: logger,
		cfg:    cfg,
	}
}

// Register mounts the websocket endpoint at path.
func (h *Handlers) Register(router fiber.Router, path string) {
	router.Use(path, h.Upgrade)
	router.Get(path, websocket.New(h.HandleWebSocket))
}

// Upgrade rejects plain HTTP requests to the websocket endpoint.
func (h *Handlers) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// HandleWebSocket runs one connection until it closes.
func (h *Handlers) HandleWebSocket(c *websocket.Conn) {
	client := newClient(c, h.cfg.SendQueueSize)
	session := h.engine.Open(client)
	limiter := newRateLimiter(h.cfg.RateLimitBurst, h.cfg.RateLimitPerSecond)
	connID := session.ConnID()

	h.clients.Store(connID, client)
	go client.writePump(h.logger)

	defer func() {
		session.Disconnect()
		h.clients.Delete(connID)
		client.Close()
		<-client.Done()
	}()

	h.logger.Info("WebSocket connected", "connID", connID)

	for {
		_, raw, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Error("WebSocket error", "connID", connID, "error", err)
			}
			break
		}
		h.dispatch(session, limiter, raw)
	}

	h.logger.Info("WebSocket disconnected", "connID", connID, "roomID", session.RoomID())
}

// ClientCount returns the number of open websocket connections.
func (h *Handlers) ClientCount() int {
	n := 0
	h.clients.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// CloseAll stops every open connection's writer, which closes the socket and
// ends its read loop.
func (h *Handlers) CloseAll() {
	h.clients.Range(func(_, v any) bool {
		v.(*Client).Close()
		return true
	})
}

// dispatch handles one client frame. Failures are reported to the client and
// never close the connection.
func (h *Handlers) dispatch(session *chat.Session, limiter *rateLimiter, raw []byte) {
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		h.sendError(session, "Invalid message format")
		return
	}

	switch frame.Type {
	case FrameCreateRoom:
		roomID, err := session.Create(frame.Username)
		h.sendAck(session, frame.Ack, roomID, err)
	case FrameJoinRoom:
		roomID, err := session.Join(frame.Username, frame.Room)
		h.sendAck(session, frame.Ack, roomID, err)
	case FrameChatMessage:
		h.handleChatMessage(session, limiter, frame.Text)
	default:
		h.sendError(session, "Unknown message type: "+frame.Type)
	}
}

func (h *Handlers) handleChatMessage(session *chat.Session, limiter *rateLimiter, text string) {
	if !limiter.allow() {
		h.sendError(session, "Rate limit exceeded, please slow down")
		return
	}

	if _, err := session.Send(text); err != nil {
		if errors.Is(err, chat.ErrNotBound) {
			h.logger.Warn("Dropped message from connection without a room", "connID", session.ConnID())
			h.sendError(session, "Join a room first")
			return
		}
		h.sendError(session, err.Error())
	}
}

func (h *Handlers) sendAck(session *chat.Session, ack, roomID string, err error) {
	frame := AckFrame{
		Type:    FrameAck,
		Ack:     ack,
		Success: err == nil,
		Room:    roomID,
	}
	if err != nil {
		frame.Message = ackMessage(err)
		h.logger.Debug("Request rejected", "connID", session.ConnID(), "error", err)
	}
	h.reply(session, frame)
}

func ackMessage(err error) string {
	switch {
	case errors.Is(err, chat.ErrRoomNotFound):
		return "Room not found"
	case errors.Is(err, chat.ErrAlreadyBound):
		return "Already in a room"
	default:
		return err.Error()
	}
}

func (h *Handlers) sendError(session *chat.Session, message string) {
	h.reply(session, ErrorFrame{Type: FrameError, Message: message})
}

func (h *Handlers) reply(session *chat.Session, frame any) {
	if err := session.Reply(frame); err != nil {
		h.logger.Debug("Failed to send frame", "connID", session.ConnID(), "error", err)
	}
}
