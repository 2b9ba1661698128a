package core

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/cbzstudio/chatroom/internal/domain"
)

// RoomInfo is a read-only view for the REST surface.
type RoomInfo struct {
	Name        domain.RoomName `json:"name"`
	MemberCount int             `json:"member_count"`
}

// Manager is the process-wide room registry. Rooms are created lazily on
// first reference and stay addressable for the process lifetime.
type Manager struct {
	mu    sync.RWMutex
	rooms map[domain.RoomName]*Room
}

func NewManager() *Manager {
	return &Manager{rooms: make(map[domain.RoomName]*Room)}
}

// GetOrCreate returns the room for name, creating it exactly once even under
// concurrent first access.
func (m *Manager) GetOrCreate(name domain.RoomName) *Room {
	m.mu.RLock()
	room, ok := m.rooms[name]
	m.mu.RUnlock()
	if ok {
		return room
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if room, ok = m.rooms[name]; ok {
		return room
	}
	room = NewRoom(name)
	m.rooms[name] = room
	log.Info().Str("module", "core.manager").Str("room", string(name)).Msg("room created")
	return room
}

func (m *Manager) List() []RoomInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]RoomInfo, 0, len(m.rooms))
	for name, r := range m.rooms {
		out = append(out, RoomInfo{Name: name, MemberCount: r.MemberCount()})
	}
	return out
}

// Stop drops a room from the registry. Nothing calls this on emptiness;
// it exists for operational tooling and tests.
func (m *Manager) Stop(name domain.RoomName) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms, name)
}
