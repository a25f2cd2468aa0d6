package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/kode4food/caravan/topic"

	"github.com/kode4food/paisley/pkg/api"
	"github.com/kode4food/paisley/pkg/log"
)

// wsClient streams live trace events to one WebSocket connection
type wsClient struct {
	conn      *websocket.Conn
	consumer  topic.Consumer[*api.TraceEvent]
	done      chan struct{}
	closeOnce sync.Once
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	wsBufferSize   = 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  wsBufferSize,
	WriteBufferSize: wsBufferSize,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("WebSocket upgrade failed",
			log.Error(err))
		return
	}

	client := &wsClient{
		conn:     conn,
		consumer: s.feed.Subscribe(),
		done:     make(chan struct{}),
	}
	s.registerWebSocket(client)

	go client.readLoop()
	go func() {
		defer s.unregisterWebSocket(client)
		client.writeLoop()
	}()
}

func (c *wsClient) writeLoop() {
	defer c.close()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return

		case ev, ok := <-c.consumer.Receive():
			if !ok {
				return
			}
			if err := c.writeEvent(ev); err != nil {
				return
			}

		case <-ticker.C:
			deadline := time.Now().Add(writeWait)
			if err := c.conn.WriteControl(
				websocket.PingMessage, nil, deadline,
			); err != nil {
				return
			}
		}
	}
}

// readLoop drains inbound frames so close and pong control messages are
// processed; clients are not expected to send data
func (c *wsClient) readLoop() {
	defer c.close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *wsClient) writeEvent(ev *api.TraceEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsClient) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.consumer.Close()
		_ = c.conn.Close()
	})
}
