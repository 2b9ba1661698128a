package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/cbzstudio/chatroom/internal/config"
	"github.com/cbzstudio/chatroom/internal/core"
)

func testConfig() *config.Config {
	return &config.Config{
		ReadLimit:    32768,
		SendBuffer:   16,
		PingPeriod:   time.Minute,
		WriteTimeout: time.Second,
	}
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	var f map[string]any
	if err := json.Unmarshal(data, &f); err != nil {
		t.Fatalf("frame not JSON: %v", err)
	}
	return f
}

func TestChatHandshake(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rooms := core.NewManager()
	ctl := NewController(rooms, testConfig())

	r := gin.New()
	r.GET("/api/ws/:room", func(c *gin.Context) {
		ctl.HandleChat(context.Background(), c)
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/general"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	connected := readFrame(t, conn)
	if connected["type"] != "connected" || connected["room"] != "general" {
		t.Fatalf("first frame = %v", connected)
	}
	if id, ok := connected["clientId"].(string); !ok || id == "" {
		t.Fatalf("connected frame missing clientId: %v", connected)
	}

	if err := conn.WriteJSON(map[string]string{"type": "join", "username": "alice"}); err != nil {
		t.Fatalf("write join: %v", err)
	}

	list := readFrame(t, conn)
	if list["type"] != "userList" {
		t.Fatalf("after join want userList, got %v", list)
	}
	welcome := readFrame(t, conn)
	if welcome["type"] != "message" || welcome["username"] != "system" {
		t.Fatalf("want system welcome, got %v", welcome)
	}
}

func TestChatBadPayloadAnswered(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rooms := core.NewManager()
	ctl := NewController(rooms, testConfig())

	r := gin.New()
	r.GET("/api/ws/:room", func(c *gin.Context) {
		ctl.HandleChat(context.Background(), c)
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/general"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	_ = readFrame(t, conn) // connected

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	reply := readFrame(t, conn)
	if reply["type"] != "error" {
		t.Fatalf("want error event, got %v", reply)
	}
}

func TestDisconnectRemovesFromPresence(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rooms := core.NewManager()
	ctl := NewController(rooms, testConfig())

	r := gin.New()
	r.GET("/api/ws/:room", func(c *gin.Context) {
		ctl.HandleChat(context.Background(), c)
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/general"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	_ = readFrame(t, conn) // connected
	if err := conn.WriteJSON(map[string]string{"type": "join", "username": "alice"}); err != nil {
		t.Fatalf("write join: %v", err)
	}
	_ = readFrame(t, conn) // userList
	_ = readFrame(t, conn) // welcome

	room := rooms.GetOrCreate("general")
	if got := len(room.SnapshotUsers()); got != 1 {
		t.Fatalf("presence before disconnect = %d, want 1", got)
	}

	_ = conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(room.SnapshotUsers()) == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("session still present after disconnect")
}
