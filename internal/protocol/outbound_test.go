package protocol

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/cbzstudio/chatroom/internal/domain"
)

func TestOutboundWireShape(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		ev   Outbound
		typ  string
	}{
		{"connected", NewConnected("c-1", "general", now), "connected"},
		{"system", NewSystem("alice joined the room", now), "system"},
		{"userList", NewUserList([]domain.User{{ID: "c-1", Username: "alice"}}, now), "userList"},
		{"message", NewChatMessage("m-1", "alice", "hi", now), "message"},
		{"ack", NewAck("m-1"), "ack"},
		{"typing", NewTyping("alice"), "typing"},
		{"stopTyping", NewStopTyping("alice"), "stopTyping"},
		{"error", NewError("username empty"), "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.ev)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			var f struct {
				Type string `json:"type"`
			}
			if err := json.Unmarshal(b, &f); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if f.Type != tt.typ {
				t.Errorf("type tag = %q, want %q", f.Type, tt.typ)
			}
		})
	}
}

func TestConnectedGreeting(t *testing.T) {
	ev := NewConnected("c-1", "general", time.Now())
	if ev.Room != "general" || ev.ClientID != "c-1" {
		t.Errorf("connected = %+v", ev)
	}
	if ev.Message != "Welcome to general!" {
		t.Errorf("greeting = %q", ev.Message)
	}
}

func TestTimestampIsRFC3339(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	b, err := json.Marshal(NewSystem("x", now))
	if err != nil {
		t.Fatal(err)
	}
	var f struct {
		Timestamp string `json:"timestamp"`
	}
	if err := json.Unmarshal(b, &f); err != nil {
		t.Fatal(err)
	}
	if f.Timestamp != "2025-06-01T12:00:00Z" {
		t.Errorf("timestamp = %q", f.Timestamp)
	}
}
