package assist

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/example/room-relay/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
)

const maxDescriptions = 50

// Description is one generated sentence.
type Description struct {
	RoomID    string    `json:"room_id"`
	Seq       int       `json:"seq"`
	Keywords  []string  `json:"keywords"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Config configures the assist module.
type Config struct {
	Triggers []string
	Language string
	Timeout  time.Duration
}

// Module describes trigger messages with a text-generation model. It runs off
// MessagePosted events, so it never blocks a room.
type Module struct {
	describer Describer
	matcher   *Matcher
	cfg       Config
	logger    types.Logger

	wg           sync.WaitGroup
	mu           sync.RWMutex
	descriptions []Description
	failures     int
}

var _ mono.Module = (*Module)(nil)
var _ mono.EventConsumerModule = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates an assist module. Language defaults to English and Timeout
// to 30s.
func NewModule(describer Describer, logger types.Logger, cfg Config) *Module {
	if cfg.Language == "" {
		cfg.Language = "English"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Module{
		describer: describer,
		matcher:   NewMatcher(cfg.Triggers),
		cfg:       cfg,
		logger:    logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "assist"
}

// RegisterEventConsumers subscribes to MessagePosted events.
func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(registry, events.MessagePostedV1, m.handleMessagePosted, m); err != nil {
		return fmt.Errorf("failed to register MessagePosted consumer: %w", err)
	}
	m.logger.Info("Registered event consumers", "events", []string{"MessagePosted"})
	return nil
}

// Start starts the module.
func (m *Module) Start(_ context.Context) error {
	m.logger.Info("Assist module started", "triggers", len(m.matcher.triggers), "language", m.cfg.Language)
	return nil
}

// Stop waits for in-flight descriptions until ctx expires.
func (m *Module) Stop(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("Assist module stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("assist module stop: %w", ctx.Err())
	}
}

// Health reports how many descriptions were generated and how many failed.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"descriptions": len(m.descriptions),
			"failures":     m.failures,
		},
	}
}

func (m *Module) handleMessagePosted(_ context.Context, event events.MessagePostedEvent, _ *mono.Msg) error {
	if !m.matcher.Match(event.Text) {
		return nil
	}

	keywords := Keywords(event.Text)
	m.logger.Info("Describing trigger message", "roomID", event.RoomID, "keywords", keywords)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.describe(event, keywords)
	}()
	return nil
}

func (m *Module) describe(event events.MessagePostedEvent, keywords []string) {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.Timeout)
	defer cancel()

	text, err := m.describer.Describe(ctx, keywords, m.cfg.Language)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.failures++
		m.logger.Warn("Description failed", "roomID", event.RoomID, "seq", event.Seq, "error", err)
		return
	}

	m.logger.Info("Description generated", "roomID", event.RoomID, "seq", event.Seq, "text", text)
	m.descriptions = append(m.descriptions, Description{
		RoomID:    event.RoomID,
		Seq:       event.Seq,
		Keywords:  keywords,
		Text:      text,
		CreatedAt: time.Now(),
	})
	if len(m.descriptions) > maxDescriptions {
		m.descriptions = m.descriptions[len(m.descriptions)-maxDescriptions:]
	}
}

// Descriptions returns the most recent generated sentences, oldest first.
func (m *Module) Descriptions() []Description {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]Description, len(m.descriptions))
	copy(result, m.descriptions)
	return result
}
