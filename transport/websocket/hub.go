package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

const sendBufferSize = 32

// client is one live connection. All writes go through the send
// channel so only the write pump ever touches the conn's writer.
type client struct {
	socketID string
	conn     *websocket.Conn
	send     chan []byte
	once     sync.Once
}

func (that *client) close() {
	that.once.Do(func() {
		close(that.send)
	})
}

// Hub tracks live connections by socket id and implements the
// service layer's Notifier. It is constructed before the services so
// they can push events without knowing about HTTP or gorilla.
type Hub struct {
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[string]*client
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:  logger.With("component", "ws-hub"),
		clients: make(map[string]*client),
	}
}

func (that *Hub) register(c *client) {
	that.mu.Lock()
	defer that.mu.Unlock()
	that.clients[c.socketID] = c
}

func (that *Hub) unregister(c *client) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if current, ok := that.clients[c.socketID]; ok && current == c {
		delete(that.clients, c.socketID)
	}

	c.close()
}

// Send - pushes one event to a connection. Best-effort: unknown
// handles and full buffers drop the event rather than block the
// game logic.
func (that *Hub) Send(socketID, action string, payload any) {
	log := that.logger.With("method", "Send")

	body, err := json.Marshal(payload)
	if err != nil {
		log.Error("failed to marshal payload", "action", action, "error", err)
		return
	}

	message, err := json.Marshal(Message{Action: action, Payload: body})
	if err != nil {
		log.Error("failed to marshal message", "action", action, "error", err)
		return
	}

	// the channel close in unregister takes the write lock, so a send
	// under the read lock can never hit a closed channel
	that.mu.RLock()
	defer that.mu.RUnlock()

	c, ok := that.clients[socketID]
	if !ok {
		return
	}

	select {
	case c.send <- message:
	default:
		log.Warn("send buffer full, dropping event", "socketID", socketID, "action", action)
	}
}
