package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/kode4food/stepflow/internal/events"
	"github.com/kode4food/stepflow/pkg/api"
	"github.com/kode4food/stepflow/pkg/log"
)

// Client represents a WebSocket client connection for event streaming
type Client struct {
	conn      *websocket.Conn
	sub       *events.Subscription
	filter    events.EventFilter
	done      chan struct{}
	closeOnce sync.Once
}

const (
	writeWait          = 10 * time.Second
	pongWait           = 60 * time.Second
	pingPeriod         = (pongWait * 9) / 10
	maxMessageSize     = 512
	wsBufferSize       = 1024
	incomingBufferSize = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  wsBufferSize,
	WriteBufferSize: wsBufferSize,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HandleWebSocket upgrades an HTTP connection to WebSocket and streams the
// lifecycle events of hub. The run_id query parameter, if present, sets the
// initial subscription
func HandleWebSocket(
	hub *events.Hub, w http.ResponseWriter, r *http.Request,
) *Client {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("WebSocket upgrade failed",
			log.Error(err))
		return nil
	}

	return &Client{
		conn: conn,
		sub:  hub.Subscribe(events.All),
		filter: BuildFilter(&api.ClientSubscription{
			RunID: api.RunID(r.URL.Query().Get("run_id")),
		}),
		done: make(chan struct{}),
	}
}

func (s *Server) handleWebSocket(c *gin.Context) {
	client := HandleWebSocket(s.hub, c.Writer, c.Request)
	if client == nil {
		return
	}
	s.registerWebSocket(client)
	go func() {
		defer s.unregisterWebSocket(client)
		client.run()
	}()
}

// Close ends the client's event stream and its connection
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

func (c *Client) run() {
	defer func() {
		c.Close()
		c.releaseSubscription()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	incoming := make(chan []byte, incomingBufferSize)
	go c.readMessages(incoming)

	for {
		select {
		case <-c.done:
			c.sendClose()
			return

		case message, ok := <-incoming:
			if !ok {
				return
			}
			c.handleSubscribe(message)

		case ev, ok := <-c.sub.Receive():
			if !ok {
				c.sendClose()
				return
			}
			if !c.sendEventIfMatched(ev) {
				return
			}

		case <-ticker.C:
			if !c.sendPing() {
				return
			}
		}
	}
}

// releaseSubscription drains events already delivered to the consumer so a
// pending hub send is not left blocked, then closes it
func (c *Client) releaseSubscription() {
	for {
		select {
		case _, ok := <-c.sub.Receive():
			if !ok {
				c.sub.Close()
				return
			}
		default:
			c.sub.Close()
			return
		}
	}
}

func (c *Client) readMessages(incoming chan []byte) {
	defer close(incoming)
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		select {
		case incoming <- message:
		case <-c.done:
			return
		}
	}
}

func (c *Client) handleSubscribe(message []byte) {
	var sub api.SubscribeRequest
	if err := json.Unmarshal(message, &sub); err != nil {
		slog.Error("Failed to parse WebSocket message",
			log.Error(err))
		return
	}

	if sub.Type != api.MessageSubscribe {
		return
	}

	c.filter = BuildFilter(&sub.Data)

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(api.SubscribedResult{
		Type:  api.MessageSubscribed,
		RunID: sub.Data.RunID,
	}); err != nil {
		slog.Error("WebSocket write failed",
			slog.String("context", "subscribed"),
			log.Error(err))
	}
}

func (c *Client) sendEventIfMatched(ev *api.Event) bool {
	if ev == nil || !c.filter(ev) {
		return true
	}

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(ev); err != nil {
		slog.Error("WebSocket write failed",
			log.Error(err))
		return false
	}
	return true
}

func (c *Client) sendPing() bool {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	err := c.conn.WriteMessage(websocket.PingMessage, nil)
	return err == nil
}

func (c *Client) sendClose() {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// BuildFilter creates an event filter from a client subscription. With
// neither a run nor event types, every event matches
func BuildFilter(sub *api.ClientSubscription) events.EventFilter {
	var filters []events.EventFilter
	if sub.RunID != "" {
		filters = append(filters, events.FilterRun(sub.RunID))
	}
	if len(sub.EventTypes) > 0 {
		filters = append(filters, events.FilterEvents(sub.EventTypes...))
	}

	switch len(filters) {
	case 0:
		return events.All
	case 1:
		return filters[0]
	default:
		return events.AndFilters(filters...)
	}
}
