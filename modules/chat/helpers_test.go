package chat

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/example/room-relay/events"
	"github.com/go-monolith/mono/pkg/types"
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

func newMockLogger() types.Logger {
	return &mockLogger{}
}

// fakeConn records every frame delivered to it.
type fakeConn struct {
	mu     sync.Mutex
	frames [][]byte
	closed bool
}

func (c *fakeConn) Deliver(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.frames = append(c.frames, frame)
	return true
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeConn) events(t *testing.T) []Event {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()

	result := make([]Event, 0, len(c.frames))
	for _, frame := range c.frames {
		var ev Event
		require.NoError(t, json.Unmarshal(frame, &ev))
		result = append(result, ev)
	}
	return result
}

func (c *fakeConn) eventsOfType(t *testing.T, typ string) []Event {
	t.Helper()
	var result []Event
	for _, ev := range c.events(t) {
		if ev.Type == typ {
			result = append(result, ev)
		}
	}
	return result
}

func (c *fakeConn) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = nil
}

// sequenceCodes returns the given codes in order, then repeats the last one.
func sequenceCodes(codes ...string) CodeGenerator {
	var mu sync.Mutex
	i := 0
	return CodeGeneratorFunc(func() string {
		mu.Lock()
		defer mu.Unlock()
		code := codes[min(i, len(codes)-1)]
		i++
		return code
	})
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu      sync.Mutex
	created []events.RoomCreatedEvent
	posted  []events.MessagePostedEvent
	joined  []events.MemberJoinedEvent
	left    []events.MemberLeftEvent
}

func (p *recordingPublisher) RoomCreated(e events.RoomCreatedEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, e)
}

func (p *recordingPublisher) MessagePosted(e events.MessagePostedEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.posted = append(p.posted, e)
}

func (p *recordingPublisher) MemberJoined(e events.MemberJoinedEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.joined = append(p.joined, e)
}

func (p *recordingPublisher) MemberLeft(e events.MemberLeftEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.left = append(p.left, e)
}

// counterCodes yields 0001, 0002, ... so tests never collide with "FFFF".
func counterCodes() CodeGenerator {
	var mu sync.Mutex
	n := 0
	return CodeGeneratorFunc(func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%04X", n)
	})
}

func newTestEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	if opts.Codes == nil {
		opts.Codes = counterCodes()
	}
	engine, err := NewEngine(newMockLogger(), opts)
	require.NoError(t, err)
	return engine
}
