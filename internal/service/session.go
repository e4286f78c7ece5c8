package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/its-ashutosh-pathak/supersquare-backend/internal/entity"
	"github.com/its-ashutosh-pathak/supersquare-backend/internal/pkg"
	"github.com/its-ashutosh-pathak/supersquare-backend/internal/registry"
	"github.com/its-ashutosh-pathak/supersquare-backend/internal/repository"
)

type SessionService interface {
	Login(ctx context.Context, socketID, identity, displayName string) (LoginSuccessPayload, error)
	Disconnect(ctx context.Context, socketID string)
}

type sessionService struct {
	logger *slog.Logger

	registry   *registry.Registry
	profiles   repository.ProfileRepository
	notifier   Notifier
	reconciler Reconciler
}

func NewSessionService(logger *slog.Logger, reg *registry.Registry, profiles repository.ProfileRepository, notifier Notifier, reconciler Reconciler) SessionService {
	return &sessionService{
		logger:     logger.With("component", "session"),
		registry:   reg,
		profiles:   profiles,
		notifier:   notifier,
		reconciler: reconciler,
	}
}

// Login - identifies a live connection. An empty identity gets a
// throwaway guest one. The response carries the session plus the
// durable profile with its derived rank.
func (that *sessionService) Login(ctx context.Context, socketID, identity, displayName string) (LoginSuccessPayload, error) {
	log := that.logger.With("method", "Login")

	if identity == "" {
		identity = "Guest_" + pkg.GenerateGuestSuffix()
	}
	if displayName == "" {
		displayName = identity
	}

	profile, err := that.profiles.Ensure(ctx, identity, displayName)
	if err != nil {
		return LoginSuccessPayload{}, fmt.Errorf("failed to ensure profile: %w", err)
	}

	if profile.DisplayName != "" {
		displayName = profile.DisplayName
	}

	session := that.registry.RegisterSession(identity, displayName, socketID)

	if rank, rankErr := that.profiles.Rank(ctx, identity); rankErr == nil {
		profile.Rank = rank
	} else {
		log.Error("failed to derive rank", "identity", identity, "error", rankErr)
	}

	log.Info("player logged in", "identity", identity, "socketID", socketID)

	return LoginSuccessPayload{Session: session, Profile: profile}, nil
}

// Disconnect - handles a dropped connection. The stale-handle guard
// lives in the registry: if a newer connection already owns the
// identity this is a no-op. An active match is forfeited immediately;
// there is no reconnection grace period.
func (that *sessionService) Disconnect(ctx context.Context, socketID string) {
	log := that.logger.With("method", "Disconnect")

	session, ok := that.registry.EndSession(socketID)
	if !ok {
		return
	}

	log.Info("player disconnected", "identity", session.Identity)

	if err := that.profiles.UpdateLastActive(ctx, session.Identity, time.Now()); err != nil {
		log.Error("failed to persist last active", "identity", session.Identity, "error", err)
	}

	if session.RoomID == "" {
		return
	}

	opponentID := ""
	_ = that.registry.WithRoom(session.RoomID, func(room *entity.Room) error {
		opponentID = room.Opponent(session.Identity)
		return nil
	})

	if opponentID != "" {
		if opponent, found := that.registry.SessionByIdentity(opponentID); found && opponent.IsOnline() {
			that.notifier.Send(opponent.SocketID, EventOpponentDisconnected, nil)
		}
	}

	// opponentID may be empty: Finish then simply discards the room
	that.reconciler.Finish(ctx, session.RoomID, opponentID, false, ReasonDisconnect)
}
