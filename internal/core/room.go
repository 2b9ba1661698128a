package core

import (
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"

	"github.com/cbzstudio/chatroom/internal/domain"
	"github.com/cbzstudio/chatroom/internal/metrics"
	"github.com/cbzstudio/chatroom/internal/protocol"
)

// Room owns the sessions of one named room and is the serialization boundary
// for their state: Admit, HandleEvent and HandleClose all run under one lock.
// Holding it across fan-out is fine because every send is a non-blocking
// enqueue; the per-session write pump does the slow I/O.
type Room struct {
	name domain.RoomName

	mu       sync.Mutex
	sessions map[SessionID]*Session
}

func NewRoom(name domain.RoomName) *Room {
	return &Room{
		name:     name,
		sessions: make(map[SessionID]*Session),
	}
}

func (r *Room) Name() domain.RoomName { return r.name }

func (r *Room) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Admit registers a fresh connecting session and greets it with its own
// client id. Nothing is broadcast yet; the identity is not known until join.
func (r *Room) Admit(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[s.ID] = s
	log.Info().Str("module", "core.room").Str("room", string(r.name)).Str("sid", string(s.ID)).Msg("session admitted")

	if err := s.Send(protocol.NewConnected(string(s.ID), string(r.name), time.Now())); err != nil {
		log.Warn().Err(err).Str("module", "core.room").Str("sid", string(s.ID)).Msg("greeting failed")
		r.reapLocked([]*Session{s})
	}
}

// HandleEvent applies one decoded inbound event from s. Failures never leave
// this room: validation problems answer only the sender, delivery problems
// remove only the failing recipient.
func (r *Room) HandleEvent(s *Session, ev protocol.Inbound) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch e := ev.(type) {
	case protocol.Join:
		metrics.EventsTotal.WithLabelValues("join").Inc()
		r.joinLocked(s, e)
	case protocol.Message:
		metrics.EventsTotal.WithLabelValues("message").Inc()
		r.messageLocked(s, e)
	case protocol.Typing:
		metrics.EventsTotal.WithLabelValues("typing").Inc()
		r.signalLocked(s, protocol.NewTyping(s.Username()))
	case protocol.StopTyping:
		metrics.EventsTotal.WithLabelValues("stopTyping").Inc()
		r.signalLocked(s, protocol.NewStopTyping(s.Username()))
	case protocol.Leave:
		metrics.EventsTotal.WithLabelValues("leave").Inc()
		r.reapLocked([]*Session{s})
	case protocol.Unknown:
		log.Warn().Str("module", "core.room").Str("room", string(r.name)).Str("type", e.Type).Msg("unknown event type")
	default:
		log.Warn().Str("module", "core.room").Str("room", string(r.name)).Msg("unhandled event variant")
	}
}

// HandleClose is the transport-close path. It may race with an explicit
// leave for the same session; whichever runs second finds the session gone
// and does nothing.
func (r *Room) HandleClose(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reapLocked([]*Session{s})
}

// SnapshotUsers returns a point-in-time presence view of joined sessions.
func (r *Room) SnapshotUsers() []domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.usersLocked()
}

func (r *Room) joinLocked(s *Session, e protocol.Join) {
	if s.State() != StateConnecting {
		log.Debug().Str("module", "core.room").Str("sid", string(s.ID)).Str("state", s.State().String()).Msg("join ignored")
		return
	}

	username, err := domain.CleanUsername(e.Username)
	if err != nil {
		if serr := s.Send(protocol.NewError(err.Error())); serr != nil {
			r.reapLocked([]*Session{s})
		}
		return
	}

	s.MarkJoined(username)
	log.Info().Str("module", "core.room").Str("room", string(r.name)).Str("sid", string(s.ID)).Str("username", username).Msg("session joined")

	now := time.Now()
	// Others learn about the arrival before the arrival gets its snapshot,
	// so the snapshot is consistent with what the room already knows.
	failed := r.fanoutLocked(protocol.NewSystem(fmt.Sprintf("%s joined the room", username), now), s.ID)
	failed = append(failed, r.fanoutLocked(protocol.NewUserList(r.usersLocked(), now), s.ID)...)

	if err := s.Send(protocol.NewUserList(r.usersLocked(), now)); err != nil {
		failed = append(failed, s)
	}
	welcome := protocol.NewChatMessage(
		fmt.Sprintf("welcome-%d", now.UnixMilli()),
		domain.SystemUsername,
		fmt.Sprintf("Welcome to %s!", r.name),
		now,
	)
	if err := s.Send(welcome); err != nil {
		failed = append(failed, s)
	}
	r.reapLocked(failed)
}

func (r *Room) messageLocked(s *Session, e protocol.Message) {
	if s.State() != StateJoined {
		// Messages from unidentified sessions are a protocol violation by a
		// stale or misbehaving client; drop without answering.
		log.Debug().Str("module", "core.room").Str("sid", string(s.ID)).Msg("message from non-joined session dropped")
		return
	}

	id := e.ID
	if id == "" {
		id = ulid.Make().String()
	}

	msg := protocol.NewChatMessage(id, s.Username(), e.Text, time.Now())
	failed := r.fanoutLocked(msg, "")
	metrics.MessagesBroadcast.Inc()

	if err := s.Send(protocol.NewAck(id)); err != nil {
		failed = append(failed, s)
	}
	r.reapLocked(failed)
}

// signalLocked broadcasts a stateless typing signal to everyone but the
// sender.
func (r *Room) signalLocked(s *Session, notice protocol.TypingNotice) {
	if s.State() != StateJoined {
		return
	}
	r.reapLocked(r.fanoutLocked(notice, s.ID))
}

// fanoutLocked delivers ev to every joined session except exclude and
// reports the recipients whose transport refused the send. It never mutates
// membership itself; callers pass the result to reapLocked.
func (r *Room) fanoutLocked(ev protocol.Outbound, exclude SessionID) []*Session {
	var failed []*Session
	for id, peer := range r.sessions {
		if id == exclude || peer.State() != StateJoined {
			continue
		}
		if err := peer.Send(ev); err != nil {
			log.Warn().Err(err).Str("module", "core.room").Str("room", string(r.name)).Str("sid", string(id)).Msg("delivery failed, dropping session")
			metrics.DroppedSends.Inc()
			failed = append(failed, peer)
		}
	}
	return failed
}

// reapLocked closes and removes sessions, emitting the presence-leave
// notices for those that had joined. Notices can themselves fail for further
// recipients, so the queue is drained iteratively until membership is stable.
// Already-removed sessions are a no-op, which deduplicates the leave and
// transport-close paths.
func (r *Room) reapLocked(pending []*Session) {
	for len(pending) > 0 {
		s := pending[0]
		pending = pending[1:]

		if _, ok := r.sessions[s.ID]; !ok {
			s.Close()
			continue
		}
		delete(r.sessions, s.ID)
		wasJoined := s.State() == StateJoined
		username := s.Username()
		s.Close()
		log.Info().Str("module", "core.room").Str("room", string(r.name)).Str("sid", string(s.ID)).Msg("session removed")

		if !wasJoined {
			continue
		}
		now := time.Now()
		pending = append(pending, r.fanoutLocked(protocol.NewSystem(fmt.Sprintf("%s left the room", username), now), "")...)
		pending = append(pending, r.fanoutLocked(protocol.NewUserList(r.usersLocked(), now), "")...)
	}
}

func (r *Room) usersLocked() []domain.User {
	users := make([]domain.User, 0, len(r.sessions))
	for id, s := range r.sessions {
		if s.State() != StateJoined {
			continue
		}
		users = append(users, domain.User{ID: string(id), Username: s.Username()})
	}
	return users
}
