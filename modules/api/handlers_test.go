package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/example/room-relay/modules/chat"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLogger implements types.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(_ string, _ ...any) {}
func (m *mockLogger) Info(_ string, _ ...any)  {}
func (m *mockLogger) Warn(_ string, _ ...any)  {}
func (m *mockLogger) Error(_ string, _ ...any) {}
func (m *mockLogger) With(_ ...any) types.Logger {
	return m
}
func (m *mockLogger) WithModule(_ string) types.Logger {
	return m
}
func (m *mockLogger) WithError(_ error) types.Logger {
	return m
}

// mockChatPort implements chat.ChatPort for testing
type mockChatPort struct {
	createRoomFunc  func(ctx context.Context, username string) (string, string, error)
	joinRoomFunc    func(ctx context.Context, username, roomID string) (string, error)
	postMessageFunc func(ctx context.Context, roomID, user, text string) (chat.Message, error)
	getHistoryFunc  func(ctx context.Context, roomID string, latestOnly bool) ([]chat.Message, error)
}

func (m *mockChatPort) CreateRoom(ctx context.Context, username string) (string, string, error) {
	if m.createRoomFunc != nil {
		return m.createRoomFunc(ctx, username)
	}
	return "", "", errors.New("not implemented")
}

func (m *mockChatPort) JoinRoom(ctx context.Context, username, roomID string) (string, error) {
	if m.joinRoomFunc != nil {
		return m.joinRoomFunc(ctx, username, roomID)
	}
	return "", errors.New("not implemented")
}

func (m *mockChatPort) PostMessage(ctx context.Context, roomID, user, text string) (chat.Message, error) {
	if m.postMessageFunc != nil {
		return m.postMessageFunc(ctx, roomID, user, text)
	}
	return chat.Message{}, errors.New("not implemented")
}

func (m *mockChatPort) GetHistory(ctx context.Context, roomID string, latestOnly bool) ([]chat.Message, error) {
	if m.getHistoryFunc != nil {
		return m.getHistoryFunc(ctx, roomID, latestOnly)
	}
	return nil, errors.New("not implemented")
}

func newTestApp(port chat.ChatPort, cfg Config) *fiber.App {
	m := NewModule(&mockLogger{}, cfg)
	m.chatAdapter = port
	return m.newApp()
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(raw)
}

func TestCreateRoom(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		mock           *mockChatPort
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "created",
			body: `{"username":"Ann"}`,
			mock: &mockChatPort{
				createRoomFunc: func(_ context.Context, username string) (string, string, error) {
					return "A1B2", username, nil
				},
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"room":"A1B2","username":"Ann"}`,
		},
		{
			name: "username echoed as stored",
			body: `{"username":"  Ann  "}`,
			mock: &mockChatPort{
				createRoomFunc: func(_ context.Context, username string) (string, string, error) {
					return "A1B2", strings.TrimSpace(username), nil
				},
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"room":"A1B2","username":"Ann"}`,
		},
		{
			name: "missing username",
			body: `{}`,
			mock: &mockChatPort{
				createRoomFunc: func(_ context.Context, _ string) (string, string, error) {
					return "", "", &chat.MissingFieldError{Field: "username"}
				},
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"missing_field"`,
		},
		{
			name:           "malformed body",
			body:           `{"username":`,
			mock:           &mockChatPort{},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"invalid_request"`,
		},
		{
			name: "internal failure",
			body: `{"username":"Ann"}`,
			mock: &mockChatPort{
				createRoomFunc: func(_ context.Context, _ string) (string, string, error) {
					return "", "", chat.ErrRoomSpaceExhausted
				},
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `"server_error"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(tt.mock, Config{})
			status, body := doJSON(t, app, http.MethodPost, "/api/createRoom", tt.body)

			assert.Equal(t, tt.expectedStatus, status)
			assert.Contains(t, body, tt.expectedBody)
		})
	}
}

func TestJoinRoom(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		joinErr        error
		expectedStatus int
		expectedBody   string
	}{
		{"joined", `{"username":"Bob","room":"a1b2"}`, nil, http.StatusOK, `{"success":true,"room":"A1B2"}`},
		{"missing room", `{"username":"Bob"}`, &chat.MissingFieldError{Field: "room"}, http.StatusBadRequest, `"room is required"`},
		{"unknown room", `{"username":"Bob","room":"FFFF"}`, fmt.Errorf("call failed: %w", chat.ErrRoomNotFound), http.StatusNotFound, `"not_found"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockChatPort{
				joinRoomFunc: func(_ context.Context, _, roomID string) (string, error) {
					if tt.joinErr != nil {
						return "", tt.joinErr
					}
					return chat.NormalizeRoomID(roomID), nil
				},
			}
			app := newTestApp(mock, Config{})
			status, body := doJSON(t, app, http.MethodPost, "/api/joinRoom", tt.body)

			assert.Equal(t, tt.expectedStatus, status)
			assert.Contains(t, body, tt.expectedBody)
		})
	}
}

func TestSendMessage(t *testing.T) {
	var gotRoom, gotUser, gotText string
	mock := &mockChatPort{
		postMessageFunc: func(_ context.Context, roomID, user, text string) (chat.Message, error) {
			gotRoom, gotUser, gotText = roomID, user, text
			switch {
			case roomID == "":
				return chat.Message{}, &chat.MissingFieldError{Field: "room"}
			case text == "":
				return chat.Message{}, &chat.MissingFieldError{Field: "text"}
			case roomID == "FFFF":
				return chat.Message{}, chat.ErrRoomNotFound
			case len(text) > 10:
				return chat.Message{}, fmt.Errorf("%w: too long", chat.ErrInvalidInput)
			}
			return chat.Message{User: user, Text: text, Seq: 1}, nil
		},
	}
	app := newTestApp(mock, Config{})

	status, body := doJSON(t, app, http.MethodPost, "/api/send", `{"room":"A1B2","text":"hi"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"success":true,"delivered":true}`, body)
	assert.Equal(t, "A1B2", gotRoom)
	assert.Equal(t, "", gotUser, "sender defaulting happens in the chat module")
	assert.Equal(t, "hi", gotText)

	tests := []struct {
		name           string
		body           string
		expectedStatus int
		expectedBody   string
	}{
		{"missing room", `{"text":"hi"}`, http.StatusBadRequest, `"room is required"`},
		{"missing text", `{"room":"A1B2"}`, http.StatusBadRequest, `"text is required"`},
		{"unknown room", `{"room":"FFFF","text":"hi"}`, http.StatusNotFound, `"not_found"`},
		{"too long", `{"room":"A1B2","text":"this is far too long"}`, http.StatusBadRequest, `"invalid_request"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := doJSON(t, app, http.MethodPost, "/api/send", tt.body)
			assert.Equal(t, tt.expectedStatus, status)
			assert.Contains(t, body, tt.expectedBody)
		})
	}
}

func TestGetHistory(t *testing.T) {
	sentAt := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	var gotLatest bool
	mock := &mockChatPort{
		getHistoryFunc: func(_ context.Context, roomID string, latestOnly bool) ([]chat.Message, error) {
			gotLatest = latestOnly
			if roomID != "A1B2" {
				return nil, chat.ErrRoomNotFound
			}
			return []chat.Message{{User: "Ann", Text: "hello", Seq: 1, SentAt: sentAt}}, nil
		},
	}
	app := newTestApp(mock, Config{})

	status, body := doJSON(t, app, http.MethodGet, "/api/rooms/a1b2", "")
	require.Equal(t, http.StatusOK, status)
	assert.False(t, gotLatest)

	var resp HistoryResponse
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	assert.Equal(t, "A1B2", resp.Room)
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, "Ann", resp.Messages[0].User)
	assert.Equal(t, "hello", resp.Messages[0].Text)
	assert.True(t, sentAt.Equal(resp.Messages[0].SentAt))

	status, _ = doJSON(t, app, http.MethodGet, "/api/rooms/A1B2?latest=true", "")
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, gotLatest)

	status, body = doJSON(t, app, http.MethodGet, "/api/rooms/FFFF", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, body, `"not_found"`)
}

func TestHealthAndStatic(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>relay</h1>"), 0o600))
	app := newTestApp(&mockChatPort{}, Config{PublicDir: dir})

	status, body := doJSON(t, app, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"status":"healthy"`)

	status, body = doJSON(t, app, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "relay")

	status, _ = doJSON(t, app, http.MethodGet, "/missing.js", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestModule_Lifecycle(t *testing.T) {
	m := NewModule(&mockLogger{}, Config{})
	assert.Equal(t, "api", m.Name())
	assert.Equal(t, []string{"chat"}, m.Dependencies())
	assert.Equal(t, ":3000", m.cfg.Addr)

	err := m.Start(context.Background())
	assert.Error(t, err, "start without chat dependency")

	assert.False(t, m.Health(context.Background()).Healthy)
	assert.NoError(t, m.Stop(context.Background()))
}
