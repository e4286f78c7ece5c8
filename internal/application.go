package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/its-ashutosh-pathak/supersquare-backend/internal/config"
	"github.com/its-ashutosh-pathak/supersquare-backend/internal/registry"
	"github.com/its-ashutosh-pathak/supersquare-backend/internal/repository"
	"github.com/its-ashutosh-pathak/supersquare-backend/internal/repository/storage"
	"github.com/its-ashutosh-pathak/supersquare-backend/internal/service"
	"github.com/its-ashutosh-pathak/supersquare-backend/transport/rest"
	"github.com/its-ashutosh-pathak/supersquare-backend/transport/websocket"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	redisAddrString := conf.Redis.GetRedisAddr()
	if redisAddrString == "" {
		return ErrAddrNotFound
	}

	redisStorage, err := storage.NewRedisStorage(ctx, redisAddrString)
	if err != nil {
		return fmt.Errorf("could not connect to redis storage: %w", err)
	}

	defer func() {
		if err = redisStorage.Close(); err != nil {
			log.Error("could not close redis storage", "error", err)
		}
	}()

	profileRepo := repository.NewProfileRepository(redisStorage.Connection)
	reg := registry.New()
	hub := websocket.NewHub(logger)

	reconciler := service.NewReconciler(logger, reg, profileRepo, hub, conf.Game.MoveTimeout())
	sessions := service.NewSessionService(logger, reg, profileRepo, hub, reconciler)
	coordinator := service.NewCoordinatorService(logger, reg, hub, reconciler)
	gameplay := service.NewGameplayService(logger, reg, hub, reconciler, conf.Game.ChatMessageLimit, conf.Game.ChatCooldown())

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		restServer := rest.New(logger, reg)
		if httpErr := restServer.Start(ctx, conf.HTTPPort); httpErr != nil {
			log.Error("HTTP server error", "error", httpErr)
			httpErrCh <- httpErr
		}
	}()

	// run Websocket server
	wsErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting WebSocket server", "port", conf.SocketPort)
		wsServer := websocket.New(logger, hub, sessions, coordinator, gameplay)
		if wsErr := wsServer.Start(ctx, conf.SocketPort); wsErr != nil {
			log.Error("WebSocket server error", "error", wsErr)
			wsErrCh <- wsErr
		}
	}()

	select {
	case err = <-httpErrCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case err = <-wsErrCh:
		return fmt.Errorf("WebSocket server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return nil
	}
}
