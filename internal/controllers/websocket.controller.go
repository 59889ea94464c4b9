package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"gridwatch/internal/logger"
	"gridwatch/internal/models"
	"gridwatch/internal/simulator"
)

const (
	wsSendBuffer    = 256
	wsWriteDeadline = 10 * time.Second
	wsPingInterval  = 30 * time.Second
)

// StreamMessage is one frame on the live stream. Type is "devices",
// "telemetry" or "alerts"; Data carries the full snapshot for that channel.
type StreamMessage struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// WebSocketController bridges the engine's subscription channels onto
// websocket connections. Each connection holds its own subscriptions; the
// engine starts ticking with the first connection and idles after the last
// one closes.
type WebSocketController struct {
	engine   *simulator.Engine
	upgrader websocket.Upgrader
}

// NewWebSocketController creates the websocket controller
func NewWebSocketController(engine *simulator.Engine) *WebSocketController {
	return &WebSocketController{
		engine: engine,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browser origin enforcement happens in the CORS middleware;
			// the token check already gates this endpoint.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Stream upgrades the connection and relays engine snapshots until the
// client goes away.
func (wc *WebSocketController) Stream(c *gin.Context) {
	conn, err := wc.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn().Err(err).Str("ip", c.ClientIP()).Msg("websocket upgrade failed")
		return
	}

	client := &wsClient{
		conn: conn,
		send: make(chan StreamMessage, wsSendBuffer),
		done: make(chan struct{}),
	}
	logger.Info().Str("ip", c.ClientIP()).Msg("websocket client connected")

	// Listener callbacks run with the engine lock held, so they must only
	// do a non-blocking enqueue. A slow client loses intermediate frames,
	// never the connection.
	unsubDevices := wc.engine.SubscribeDevices(func(devices []models.Device) {
		client.enqueue(StreamMessage{Type: "devices", Timestamp: time.Now(), Data: devices})
	})
	unsubTelemetry := wc.engine.SubscribeTelemetry(func(history simulator.History) {
		client.enqueue(StreamMessage{Type: "telemetry", Timestamp: time.Now(), Data: history})
	})
	unsubAlerts := wc.engine.SubscribeAlerts(func(alerts []models.Alert) {
		client.enqueue(StreamMessage{Type: "alerts", Timestamp: time.Now(), Data: alerts})
	})

	cleanup := func() {
		unsubDevices()
		unsubTelemetry()
		unsubAlerts()
		logger.Info().Str("ip", c.ClientIP()).Msg("websocket client disconnected")
	}

	go client.writePump()
	go func() {
		client.readPump()
		cleanup()
	}()
}

type wsClient struct {
	conn *websocket.Conn
	send chan StreamMessage
	done chan struct{}
}

func (w *wsClient) enqueue(msg StreamMessage) {
	select {
	case w.send <- msg:
	case <-w.done:
	default:
		// Buffer full; the next snapshot supersedes this one anyway.
	}
}

// readPump drains client frames so pings and close frames are processed.
// Clients are not expected to send anything meaningful.
func (w *wsClient) readPump() {
	defer func() {
		close(w.done)
		w.conn.Close()
	}()
	w.conn.SetPongHandler(func(string) error { return nil })
	for {
		if _, _, err := w.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Debug().Err(err).Msg("websocket read error")
			}
			return
		}
	}
}

func (w *wsClient) writePump() {
	ping := time.NewTicker(wsPingInterval)
	defer func() {
		ping.Stop()
		w.conn.Close()
	}()
	for {
		select {
		case msg := <-w.send:
			w.conn.SetWriteDeadline(time.Now().Add(wsWriteDeadline))
			if err := w.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ping.C:
			w.conn.SetWriteDeadline(time.Now().Add(wsWriteDeadline))
			if err := w.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-w.done:
			w.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}
