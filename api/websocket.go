package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Event is a message pushed to dashboard clients.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// EventHub fans dashboard events out to connected WebSocket clients.
type EventHub struct {
	mu      sync.RWMutex
	clients map[*wsClient]bool
}

// NewEventHub creates an empty hub.
func NewEventHub() *EventHub {
	return &EventHub{clients: make(map[*wsClient]bool)}
}

// Broadcast sends the event to every connected client. Clients whose send
// buffer is full are dropped.
func (h *EventHub) Broadcast(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.send <- ev:
		default:
			// Slow consumer; disconnect it rather than block the hub.
			go h.unregister(client)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *EventHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// sendTo queues an event for one client. Holding the read lock while
// checking membership excludes unregister, which closes the send channel
// under the write lock, so this never sends on a closed channel.
func (h *EventHub) sendTo(client *wsClient, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.clients[client] {
		return
	}
	select {
	case client.send <- ev:
	default:
	}
}

func (h *EventHub) register(client *wsClient) {
	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()
}

func (h *EventHub) unregister(client *wsClient) {
	h.mu.Lock()
	if h.clients[client] {
		delete(h.clients, client)
		close(client.send)
	}
	h.mu.Unlock()
}

type wsClient struct {
	hub  *EventHub
	send chan Event
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins; restrict in production
	},
}

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

// handleWebSocket upgrades the connection and streams dashboard events
// (analysis completions, refreshes) to the client.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := &wsClient{
		hub:  s.hub,
		send: make(chan Event, 256),
	}

	s.hub.register(client)

	go wsWritePump(conn, client)
	go wsReadPump(conn, client)
}

// wsReadPump consumes client messages. The stream is one-way apart from
// ping handling, so incoming payloads only keep the connection alive.
func wsReadPump(conn *websocket.Conn, client *wsClient) {
	defer func() {
		client.hub.unregister(client)
		conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			break
		}

		var ev Event
		if err := json.Unmarshal(message, &ev); err != nil {
			continue
		}
		if ev.Type == "ping" {
			client.hub.sendTo(client, Event{Type: "pong"})
		}
	}
}

// wsWritePump pumps events from the hub to the WebSocket connection.
func wsWritePump(conn *websocket.Conn, client *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case ev, ok := <-client.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(ev)
			if err != nil {
				log.Printf("WebSocket marshal error: %v", err)
				return
			}

			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
