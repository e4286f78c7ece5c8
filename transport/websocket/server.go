package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/its-ashutosh-pathak/supersquare-backend/internal/service"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 90 * time.Second
	pingPeriod = 30 * time.Second

	maxMessageSize = 8 << 10
)

type Server struct {
	logger *slog.Logger
	hub    *Hub

	sessions    service.SessionService
	coordinator service.CoordinatorService
	gameplay    service.GameplayService

	upgrader websocket.Upgrader
	handlers map[string]func(ctx context.Context, socketID string, payload json.RawMessage) error
}

func New(logger *slog.Logger, hub *Hub, sessions service.SessionService, coordinator service.CoordinatorService, gameplay service.GameplayService) *Server {
	server := &Server{
		logger:      logger.With("component", "ws-server"),
		hub:         hub,
		sessions:    sessions,
		coordinator: coordinator,
		gameplay:    gameplay,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		handlers: make(map[string]func(context.Context, string, json.RawMessage) error),
	}

	server.handlers["login"] = server.handleLogin
	server.handlers["match:find"] = server.handleFindMatch
	server.handlers["room:create"] = server.handleCreateRoom
	server.handlers["room:join"] = server.handleJoinRoom
	server.handlers["game:move"] = server.handleMakeMove
	server.handlers["room:message"] = server.handleSendMessage
	server.handlers["invite:send"] = server.handleSendInvite
	server.handlers["invite:respond"] = server.handleRespondInvite

	return server
}

// Start - starts the WebSocket server and blocks until ctx is
// cancelled or the listener fails.
func (that *Server) Start(ctx context.Context, port string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		that.serveConnection(ctx, w, r)
	})

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

func (that *Server) serveConnection(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "serveConnection")

	conn, err := that.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	c := &client{
		socketID: uuid.NewString(),
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
	}
	that.hub.register(c)

	log.Info("connection established", "socketID", c.socketID)

	go that.writePump(c)
	that.readLoop(ctx, c)
}

// readLoop - drains inbound events for one connection and dispatches
// them by action; returns when the connection drops, which triggers
// the disconnect lifecycle (forfeit of an active match included).
func (that *Server) readLoop(ctx context.Context, c *client) {
	log := that.logger.With("method", "readLoop", "socketID", c.socketID)

	defer func() {
		that.hub.unregister(c)
		_ = c.conn.Close()
		that.sessions.Disconnect(ctx, c.socketID)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error("unexpected close", "error", err)
			}
			return
		}

		var message Message
		if err = json.Unmarshal(raw, &message); err != nil {
			log.Error("failed to unmarshal message", "error", err)
			continue
		}

		handler, ok := that.handlers[message.Action]
		if !ok {
			log.Warn("unknown action", "action", message.Action)
			continue
		}

		if err = handler(ctx, c.socketID, message.Payload); err != nil {
			that.reportError(c.socketID, message.Action, err)
		}
	}
}

// writePump - serializes all writes for one connection and keeps it
// alive with periodic pings.
func (that *Server) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
