package chat

import (
	"slices"
	"sync"
)

// Entry is a connection's binding in the registry.
type Entry struct {
	ConnID   string
	Username string
	RoomID   string

	seq uint64
}

// ConnectionRegistry maps live connections to their display name and room.
// It is the single owner of room membership.
type ConnectionRegistry struct {
	mu      sync.RWMutex
	entries map[string]*Entry              // connID -> entry
	byRoom  map[string]map[string]struct{} // roomID -> set of connIDs
	nextSeq uint64
}

// NewConnectionRegistry creates an empty registry.
func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{
		entries: make(map[string]*Entry),
		byRoom:  make(map[string]map[string]struct{}),
	}
}

// Bind records connID as a member of roomID under the given name.
// Binding an already bound connection moves it.
func (r *ConnectionRegistry) Bind(connID, username, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.entries[connID]; ok {
		r.removeFromRoom(old)
	}

	r.nextSeq++
	entry := &Entry{
		ConnID:   connID,
		Username: username,
		RoomID:   roomID,
		seq:      r.nextSeq,
	}
	r.entries[connID] = entry
	if r.byRoom[roomID] == nil {
		r.byRoom[roomID] = make(map[string]struct{})
	}
	r.byRoom[roomID][connID] = struct{}{}
}

// Unbind removes connID and returns the evicted entry.
func (r *ConnectionRegistry) Unbind(connID string) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[connID]
	if !ok {
		return Entry{}, false
	}
	r.removeFromRoom(entry)
	delete(r.entries, connID)
	return *entry, true
}

// Lookup returns the entry for connID.
func (r *ConnectionRegistry) Lookup(connID string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[connID]
	if !ok {
		return Entry{}, false
	}
	return *entry, true
}

// Members returns the entries bound to roomID in bind order.
func (r *ConnectionRegistry) Members(roomID string) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.byRoom[roomID]
	result := make([]Entry, 0, len(ids))
	for id := range ids {
		if entry, ok := r.entries[id]; ok {
			result = append(result, *entry)
		}
	}
	slices.SortFunc(result, func(a, b Entry) int {
		switch {
		case a.seq < b.seq:
			return -1
		case a.seq > b.seq:
			return 1
		}
		return 0
	})
	return result
}

// MemberCount returns the number of connections bound to roomID.
func (r *ConnectionRegistry) MemberCount(roomID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byRoom[roomID])
}

// Len returns the number of bound connections.
func (r *ConnectionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *ConnectionRegistry) removeFromRoom(entry *Entry) {
	members := r.byRoom[entry.RoomID]
	if members == nil {
		return
	}
	delete(members, entry.ConnID)
	if len(members) == 0 {
		delete(r.byRoom, entry.RoomID)
	}
}
