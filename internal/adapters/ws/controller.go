package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/cbzstudio/chatroom/internal/config"
	"github.com/cbzstudio/chatroom/internal/core"
	"github.com/cbzstudio/chatroom/internal/domain"
	"github.com/cbzstudio/chatroom/internal/metrics"
	"github.com/cbzstudio/chatroom/internal/protocol"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Controller accepts websocket connections and turns each into exactly one
// session admitted into exactly one room.
type Controller struct {
	Rooms *core.Manager
	Cfg   *config.Config
}

func NewController(rooms *core.Manager, cfg *config.Config) *Controller {
	return &Controller{Rooms: rooms, Cfg: cfg}
}

// HandleChat upgrades the request and runs the connection's pumps. The room
// name comes from the route; identity arrives later via the join event.
func (ctl *Controller) HandleChat(ctx context.Context, c *gin.Context) {
	roomName := domain.CleanRoomName(c.Param("room"))
	log.Info().Str("module", "adapters.ws").Str("room", string(roomName)).Str("ct", c.GetString("client_token")).Msg("new WS connection")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.ws").Msg("ws upgrade")
		return
	}
	conn.SetReadLimit(ctl.Cfg.ReadLimit)

	wc := newConn(conn, ctl.Cfg.SendBuffer)
	sess := core.NewSession(wc)
	room := ctl.Rooms.GetOrCreate(roomName)
	room.Admit(sess)
	metrics.OpenConnections.Inc()

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, wc)
	go ctl.readPump(ctx, cancel, room, sess, wc)
}

func (ctl *Controller) readPump(ctx context.Context, cancel context.CancelFunc, room *core.Room, sess *core.Session, c *Conn) {
	defer func() {
		log.Info().Str("module", "adapters.ws").Str("sid", string(sess.ID)).Msg("readPump closing")
		cancel()
		c.Close()
		room.HandleClose(sess)
		metrics.OpenConnections.Dec()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Warn().Err(err).Str("module", "adapters.ws").Str("sid", string(sess.ID)).Msg("readPump read error")
				}
				return
			}
			ev, err := protocol.DecodeInbound(data)
			if err != nil {
				log.Warn().Err(err).Str("module", "adapters.ws").Str("sid", string(sess.ID)).Msg("bad inbound payload")
				// Reply on the conn directly; session state belongs to the room.
				if b, merr := json.Marshal(protocol.NewError("bad payload")); merr == nil {
					_ = c.TrySend(b)
				}
				continue
			}
			room.HandleEvent(sess, ev)
		}
	}
}

func (ctl *Controller) writePump(ctx context.Context, c *Conn) {
	ticker := time.NewTicker(ctl.Cfg.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.Cfg.WriteTimeout)); err != nil {
				log.Error().Err(err).Str("module", "adapters.ws").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "adapters.ws").Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.Cfg.WriteTimeout)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
