package chat

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-monolith/mono/pkg/types"
)

// Conn is the delivery endpoint of a live connection.
// Deliver must either queue the whole frame or drop it, and report which.
type Conn interface {
	Deliver(frame []byte) bool
}

// FanOut delivers room events to every connection bound to the room.
type FanOut struct {
	registry *ConnectionRegistry
	logger   types.Logger

	mu    sync.RWMutex
	conns map[string]Conn // connID -> endpoint
}

// NewFanOut creates a fan-out engine reading membership from registry.
func NewFanOut(registry *ConnectionRegistry, logger types.Logger) *FanOut {
	return &FanOut{
		registry: registry,
		logger:   logger,
		conns:    make(map[string]Conn),
	}
}

// Attach registers the endpoint for connID.
func (f *FanOut) Attach(connID string, conn Conn) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.conns[connID] = conn
}

// Detach forgets the endpoint for connID.
func (f *FanOut) Detach(connID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.conns, connID)
}

// ConnCount returns the number of attached endpoints.
func (f *FanOut) ConnCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.conns)
}

// Send delivers event to a single connection.
func (f *FanOut) Send(connID string, event any) error {
	frame, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	f.mu.RLock()
	conn, ok := f.conns[connID]
	f.mu.RUnlock()
	if !ok || !conn.Deliver(frame) {
		return ErrDisconnected
	}
	return nil
}

// Broadcast delivers event to every member of roomID and returns how many
// connections accepted it. Callers hold the room lock.
func (f *FanOut) Broadcast(roomID string, event Event) (int, error) {
	frame, err := json.Marshal(event)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal event: %w", err)
	}

	members := f.registry.Members(roomID)

	f.mu.RLock()
	defer f.mu.RUnlock()

	delivered := 0
	for _, member := range members {
		conn, ok := f.conns[member.ConnID]
		if !ok {
			continue
		}
		if conn.Deliver(frame) {
			delivered++
		} else {
			f.logger.Debug("Dropped event for closed connection",
				"connID", member.ConnID,
				"roomID", roomID)
		}
	}
	return delivered, nil
}
