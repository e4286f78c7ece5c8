package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/its-ashutosh-pathak/supersquare-backend/internal/registry"
)

type Server struct {
	logger   *slog.Logger
	registry *registry.Registry
}

func New(logger *slog.Logger, reg *registry.Registry) *Server {
	return &Server{
		logger:   logger.With("component", "rest-server"),
		registry: reg,
	}
}

// Start - serves the healthcheck endpoints and blocks until ctx is
// cancelled or the listener fails.
func (that *Server) Start(ctx context.Context, port string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ping", that.pingHandler)
	mux.HandleFunc("/stats", that.statsHandler)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
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

func (that *Server) pingHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("pong")); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

type statsResponse struct {
	OnlinePlayers int `json:"onlinePlayers"`
	ActiveRooms   int `json:"activeRooms"`
}

func (that *Server) statsHandler(w http.ResponseWriter, _ *http.Request) {
	online, rooms := that.registry.Counts()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(statsResponse{OnlinePlayers: online, ActiveRooms: rooms}); err != nil {
		that.logger.Error("failed to encode stats", "error", err)
	}
}
