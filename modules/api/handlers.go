package api

import (
	"errors"

	"github.com/example/room-relay/modules/chat"
	"github.com/gofiber/fiber/v2"
)

// setupRoutes configures all HTTP routes.
func (m *APIModule) setupRoutes(app *fiber.App) {
	app.Get("/health", m.healthHandler)

	if m.push != nil {
		m.push.Register(app, "/ws")
	}

	api := app.Group("/api")
	api.Post("/createRoom", m.createRoom)
	api.Post("/joinRoom", m.joinRoom)
	api.Post("/send", m.sendMessage)
	api.Get("/rooms/:room", m.getHistory)

	if m.cfg.PublicDir != "" {
		app.Static("/", m.cfg.PublicDir)
	}
}

// healthHandler handles GET /health.
func (m *APIModule) healthHandler(c *fiber.Ctx) error {
	details := map[string]any{
		"module": "api",
	}
	if m.push != nil {
		details["connected_clients"] = m.push.ClientCount()
	}
	return c.JSON(HealthResponse{
		Status:  "healthy",
		Details: details,
	})
}

// createRoom handles POST /api/createRoom.
func (m *APIModule) createRoom(c *fiber.Ctx) error {
	var req CreateRoomBody
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	roomID, username, err := m.chatAdapter.CreateRoom(c.UserContext(), req.Username)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(CreateRoomResponse{
		Room:     roomID,
		Username: username,
	})
}

// joinRoom handles POST /api/joinRoom.
func (m *APIModule) joinRoom(c *fiber.Ctx) error {
	var req JoinRoomBody
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	roomID, err := m.chatAdapter.JoinRoom(c.UserContext(), req.Username, req.Room)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(JoinRoomResponse{
		Success: true,
		Room:    roomID,
	})
}

// sendMessage handles POST /api/send.
func (m *APIModule) sendMessage(c *fiber.Ctx) error {
	var req SendBody
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	if _, err := m.chatAdapter.PostMessage(c.UserContext(), req.Room, req.User, req.Text); err != nil {
		return writeError(c, err)
	}

	return c.JSON(SendResponse{
		Success:   true,
		Delivered: true,
	})
}

// getHistory handles GET /api/rooms/:room.
func (m *APIModule) getHistory(c *fiber.Ctx) error {
	roomID := chat.NormalizeRoomID(c.Params("room"))
	latest := c.QueryBool("latest", false)

	messages, err := m.chatAdapter.GetHistory(c.UserContext(), roomID, latest)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(HistoryResponse{
		Room:     roomID,
		Messages: toMessageResponses(messages),
	})
}

func invalidBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error:   chat.CodeInvalid,
		Message: "Invalid request body",
	})
}

// writeError maps a chat error to a status and error body.
func writeError(c *fiber.Ctx, err error) error {
	var mf *chat.MissingFieldError
	switch {
	case errors.As(err, &mf):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   chat.CodeMissingField,
			Message: mf.Field + " is required",
		})
	case errors.Is(err, chat.ErrMissingField):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   chat.CodeMissingField,
			Message: err.Error(),
		})
	case errors.Is(err, chat.ErrRoomNotFound):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error:   chat.CodeRoomNotFound,
			Message: "Room not found",
		})
	case errors.Is(err, chat.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   chat.CodeInvalid,
			Message: err.Error(),
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   chat.CodeInternal,
			Message: "Internal Server Error",
		})
	}
}
