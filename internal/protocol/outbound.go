package protocol

import (
	"fmt"
	"time"

	"github.com/cbzstudio/chatroom/internal/domain"
)

// Outbound is one server event ready for serialization.
type Outbound interface{ outbound() }

type Connected struct {
	Type      string    `json:"type"`
	ClientID  string    `json:"clientId"`
	Room      string    `json:"room"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type System struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type UserList struct {
	Type      string        `json:"type"`
	Users     []domain.User `json:"users"`
	Timestamp time.Time     `json:"timestamp"`
}

type ChatMessage struct {
	Type      string    `json:"type"`
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

type Ack struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type TypingNotice struct {
	Type     string `json:"type"`
	Username string `json:"username"`
}

type ErrorNotice struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (Connected) outbound()    {}
func (System) outbound()       {}
func (UserList) outbound()     {}
func (ChatMessage) outbound()  {}
func (Ack) outbound()          {}
func (TypingNotice) outbound() {}
func (ErrorNotice) outbound()  {}

func NewConnected(clientID string, room string, now time.Time) Connected {
	return Connected{
		Type:      "connected",
		ClientID:  clientID,
		Room:      room,
		Message:   fmt.Sprintf("Welcome to %s!", room),
		Timestamp: now,
	}
}

func NewSystem(message string, now time.Time) System {
	return System{Type: "system", Message: message, Timestamp: now}
}

func NewUserList(users []domain.User, now time.Time) UserList {
	return UserList{Type: "userList", Users: users, Timestamp: now}
}

func NewChatMessage(id, username, text string, now time.Time) ChatMessage {
	return ChatMessage{
		Type:      "message",
		ID:        id,
		Username:  username,
		Text:      text,
		Timestamp: now,
	}
}

func NewAck(id string) Ack {
	return Ack{Type: "ack", ID: id}
}

func NewTyping(username string) TypingNotice {
	return TypingNotice{Type: "typing", Username: username}
}

func NewStopTyping(username string) TypingNotice {
	return TypingNotice{Type: "stopTyping", Username: username}
}

func NewError(message string) ErrorNotice {
	return ErrorNotice{Type: "error", Message: message}
}
