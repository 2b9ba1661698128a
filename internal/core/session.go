// Package core owns the room session manager: sessions with an explicit
// lifecycle, rooms that serialize all state changes, and the process-wide
// room registry.
package core

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cbzstudio/chatroom/internal/protocol"
)

//go:generate mockgen -source=session.go -destination=mocks/conn.go -package=mocks

// Conn is the transport endpoint a session writes to.
// Owned by the adapter; Close must be safe to call multiple times.
type Conn interface {
	TrySend([]byte) error
	Close()
}

type SessionID string

type State int

const (
	StateConnecting State = iota
	StateJoined
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateJoined:
		return "joined"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Session is the server-side representative of one connected client within
// one room. All mutation happens under the owning room's lock; nothing else
// may touch it.
type Session struct {
	ID   SessionID
	conn Conn

	state    State
	username string
	joinedAt time.Time
}

func NewSession(conn Conn) *Session {
	return &Session{
		ID:    SessionID(uuid.NewString()),
		conn:  conn,
		state: StateConnecting,
	}
}

func (s *Session) State() State        { return s.state }
func (s *Session) Username() string    { return s.username }
func (s *Session) JoinedAt() time.Time { return s.joinedAt }

// MarkJoined claims a display identity. Only the connecting→joined edge
// exists; a second call is ignored so identity never changes mid-session.
func (s *Session) MarkJoined(username string) {
	if s.state != StateConnecting {
		return
	}
	s.state = StateJoined
	s.username = username
	s.joinedAt = time.Now()
}

// Send serializes ev and hands it to the transport. Sending to a closed
// session is a no-op; a transport failure is returned to the caller, which
// treats it as an implicit close.
func (s *Session) Send(ev protocol.Outbound) error {
	if s.state == StateClosed {
		return nil
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal outbound: %w", err)
	}
	if err := s.conn.TrySend(b); err != nil {
		return fmt.Errorf("deliver to session %s: %w", s.ID, err)
	}
	return nil
}

// Close releases the transport. Idempotent.
func (s *Session) Close() {
	if s.state == StateClosed {
		return
	}
	s.state = StateClosed
	s.conn.Close()
}
