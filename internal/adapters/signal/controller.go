package signal

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/hytenic/play-server/internal/domain"
	"github.com/hytenic/play-server/internal/relay"
)

// Envelope is the wire frame: an event name plus its raw payload.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Controller upgrades websocket connections and feeds their events to the
// dispatcher.
type Controller struct {
	Hub        *Hub
	Dispatcher *relay.Dispatcher
}

func NewController(hub *Hub, dispatcher *relay.Dispatcher) *Controller {
	return &Controller{Hub: hub, Dispatcher: dispatcher}
}

func (ctl *Controller) HandleSignal(ctx context.Context, c *gin.Context) {
	connID := domain.ConnID(c.GetString("client_token"))
	log.Info().Str("module", "signal").Str("conn", string(connID)).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	conn := newWSConn(ws)
	ctl.Hub.register(connID, conn)
	ctl.Dispatcher.OnConnect(connID)

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, connID, conn)
	go ctl.readPump(ctx, cancel, connID, conn)
}

func (ctl *Controller) writePump(ctx context.Context, connID domain.ConnID, c *wsConn) {
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "signal").Str("conn", string(connID)).Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Str("conn", string(connID)).Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *Controller) readPump(ctx context.Context, cancel context.CancelFunc, connID domain.ConnID, c *wsConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("conn", string(connID)).Msg("readPump closing")
		cancel()
		c.Close()
		ctl.Hub.unregister(connID)
		ctl.Dispatcher.OnDisconnect(connID)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				return
			}
			ctl.handleFrame(ctx, connID, c, data)
		}
	}
}

func (ctl *Controller) handleFrame(ctx context.Context, connID domain.ConnID, c *wsConn, data []byte) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		return
	}

	switch env.Type {
	case "join":
		ctl.Dispatcher.OnJoin(connID, roomIDFromData(env.Data))
	case "leave":
		ctl.Dispatcher.OnLeave(connID, roomIDFromData(env.Data))
	case "ping":
		ctl.handlePing(c)
	case "rtc-message":
		ctl.Dispatcher.OnRTCMessage(connID, env.Data)
	case "rtc-text":
		// Translation can take the full backend timeout; it must never
		// stall this connection's read loop. The agent keeps submissions
		// FIFO regardless.
		go ctl.Dispatcher.OnRTCText(ctx, connID, env.Data)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
	}
}

func (ctl *Controller) handlePing(c *wsConn) {
	resp, _ := json.Marshal(Envelope{Type: "pong"})
	_ = c.TrySend(resp)
}

// roomIDFromData accepts the room id as a bare JSON string or as an object
// carrying a roomId field.
func roomIDFromData(data []byte) domain.RoomID {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return domain.RoomID(s)
	}
	var p struct {
		RoomID string `json:"roomId"`
	}
	if err := json.Unmarshal(data, &p); err == nil {
		return domain.RoomID(p.RoomID)
	}
	return ""
}
