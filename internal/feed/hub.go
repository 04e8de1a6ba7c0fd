package feed

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// Event is the envelope pushed to websocket subscribers
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub fans ledger events out to the websocket connections of each user
type Hub struct {
	upgrader websocket.Upgrader
	log      *slog.Logger

	mu      sync.RWMutex
	clients map[int]map[*client]struct{}
}

// NewHub creates an empty hub
func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins in development
			},
		},
		log:     log,
		clients: make(map[int]map[*client]struct{}),
	}
}

// ServeWS upgrades the request and subscribes the connection to userID's
// events. initial, if non-nil, is sent as the first event. It blocks until the
// peer disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID int, initial *Event) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "user_id", userID, "error", err)
		return
	}
	c := &client{conn: conn}
	h.add(userID, c)
	defer func() {
		h.remove(userID, c)
		conn.Close()
	}()

	if initial != nil {
		data, err := json.Marshal(initial)
		if err == nil {
			err = c.send(data)
		}
		if err != nil {
			h.log.Warn("failed to send initial event", "user_id", userID, "error", err)
			return
		}
	}

	// Reads only detect disconnection
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Publish sends an event to every connection of userID, dropping
// connections that fail.
func (h *Hub) Publish(userID int, eventType string, v any) {
	data, err := json.Marshal(Event{Type: eventType, Data: v})
	if err != nil {
		h.log.Error("failed to marshal event", "type", eventType, "error", err)
		return
	}

	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients[userID]))
	for c := range h.clients[userID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.send(data); err != nil {
			h.log.Warn("failed to send event", "user_id", userID, "error", err)
			h.remove(userID, c)
			c.conn.Close()
		}
	}
}

// Count reports how many connections userID currently holds
func (h *Hub) Count(userID int) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) add(userID int, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[userID]
	if !ok {
		set = make(map[*client]struct{})
		h.clients[userID] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) remove(userID int, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.clients[userID]
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, userID)
	}
}
