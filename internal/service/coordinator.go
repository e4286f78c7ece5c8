package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/its-ashutosh-pathak/supersquare-backend/internal/apperror"
	"github.com/its-ashutosh-pathak/supersquare-backend/internal/entity"
	"github.com/its-ashutosh-pathak/supersquare-backend/internal/pkg"
	"github.com/its-ashutosh-pathak/supersquare-backend/internal/registry"
)

const maxCodeAttempts = 10

// CoordinatorService pairs players into rooms: random matchmaking,
// private rooms joined by code, and direct game invites.
type CoordinatorService interface {
	FindMatch(ctx context.Context, socketID string) error
	CreateRoom(ctx context.Context, socketID string) (string, error)
	JoinRoomByCode(ctx context.Context, socketID, code string) error
	SendInvite(ctx context.Context, socketID, targetID string) error
	RespondInvite(ctx context.Context, socketID, inviterID string, accept bool) error
}

type coordinatorService struct {
	logger *slog.Logger

	registry   *registry.Registry
	notifier   Notifier
	reconciler Reconciler
}

func NewCoordinatorService(logger *slog.Logger, reg *registry.Registry, notifier Notifier, reconciler Reconciler) CoordinatorService {
	return &coordinatorService{
		logger:     logger.With("component", "coordinator"),
		registry:   reg,
		notifier:   notifier,
		reconciler: reconciler,
	}
}

// FindMatch - pairs the requester with any waiting candidate, or
// enqueues them when nobody suitable is waiting. Marks are assigned
// 50/50 on a pairing.
func (that *coordinatorService) FindMatch(_ context.Context, socketID string) error {
	log := that.logger.With("method", "FindMatch")

	session, ok := that.registry.SessionBySocket(socketID)
	if !ok {
		return apperror.ErrSessionUnknown
	}

	if session.RoomID != "" {
		return apperror.ErrAlreadyInGame
	}

	for {
		opponentID, queued := that.registry.PairOrEnqueue(session.Identity)
		if queued {
			log.Info("player enqueued", "identity", session.Identity)
			that.notifier.Send(socketID, EventQueueJoined, nil)
			return nil
		}

		opponent, found := that.registry.SessionByIdentity(opponentID)
		if !found || !opponent.IsOnline() || opponent.RoomID != "" {
			// stale queue entry, keep looking
			continue
		}

		ownMark, _ := entity.RandomMarks()

		playerX, playerO := session.Identity, opponent.Identity
		if ownMark == entity.PlayerO {
			playerX, playerO = opponent.Identity, session.Identity
		}

		roomID := uuid.NewString()
		room := that.registry.CreateRoom(roomID, playerX, playerO, entity.NewGameState())

		log.Info("match formed", "roomID", roomID, "playerX", playerX, "playerO", playerO)

		that.startMatch(room)
		return nil
	}
}

// CreateRoom - opens a private room with a short shareable code. The
// code is probed against live rooms before use; the space is large
// enough that a handful of attempts always suffices.
func (that *coordinatorService) CreateRoom(_ context.Context, socketID string) (string, error) {
	log := that.logger.With("method", "CreateRoom")

	session, ok := that.registry.SessionBySocket(socketID)
	if !ok {
		return "", apperror.ErrSessionUnknown
	}

	if session.RoomID != "" {
		return "", apperror.ErrAlreadyInGame
	}

	code := ""
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		candidate := pkg.GenerateRoomCode()
		if !that.registry.HasRoom(candidate) {
			code = candidate
			break
		}
	}
	if code == "" {
		return "", fmt.Errorf("exhausted %d room code attempts", maxCodeAttempts)
	}

	that.registry.CreateRoom(code, session.Identity, "", entity.NewGameState())
	that.reconciler.ArmTimer(code)

	log.Info("private room created", "roomID", code, "identity", session.Identity)

	that.notifier.Send(socketID, EventRoomCreated, RoomCreatedPayload{RoomID: code})

	return code, nil
}

// JoinRoomByCode - fills the open slot of a private room. Codes are
// matched case-insensitively with surrounding whitespace ignored.
func (that *coordinatorService) JoinRoomByCode(_ context.Context, socketID, code string) error {
	log := that.logger.With("method", "JoinRoomByCode")

	session, ok := that.registry.SessionBySocket(socketID)
	if !ok {
		return apperror.ErrSessionUnknown
	}

	if session.RoomID != "" {
		return apperror.ErrAlreadyInGame
	}

	roomID := strings.ToUpper(strings.TrimSpace(code))

	room, err := that.registry.JoinRoom(roomID, session.Identity)
	if err != nil {
		return fmt.Errorf("failed to join room %q: %w", roomID, err)
	}

	log.Info("room joined", "roomID", roomID, "identity", session.Identity)

	that.startMatch(room)
	return nil
}

// SendInvite - pushes a game invite to a specific online player.
func (that *coordinatorService) SendInvite(_ context.Context, socketID, targetID string) error {
	session, ok := that.registry.SessionBySocket(socketID)
	if !ok {
		return apperror.ErrSessionUnknown
	}

	if targetID == session.Identity {
		return apperror.ErrSelfPairing
	}

	target, found := that.registry.SessionByIdentity(targetID)
	if !found || !target.IsOnline() {
		return apperror.ErrPlayerOffline
	}

	that.notifier.Send(target.SocketID, EventInviteReceived, InviteReceivedPayload{
		FromID:   session.Identity,
		FromName: session.DisplayName,
	})

	return nil
}

// RespondInvite - resolves an invite. Accepting creates a room with
// deterministic slots: the inviter plays X, the invitee O. Rejecting
// notifies only the original sender.
func (that *coordinatorService) RespondInvite(_ context.Context, socketID, inviterID string, accept bool) error {
	log := that.logger.With("method", "RespondInvite")

	session, ok := that.registry.SessionBySocket(socketID)
	if !ok {
		return apperror.ErrSessionUnknown
	}

	inviter, found := that.registry.SessionByIdentity(inviterID)

	if !accept {
		if found && inviter.IsOnline() {
			that.notifier.Send(inviter.SocketID, EventInviteRejected, InviteRejectedPayload{
				FromID:   session.Identity,
				FromName: session.DisplayName,
			})
		}
		return nil
	}

	if !found || !inviter.IsOnline() {
		return apperror.ErrPlayerOffline
	}

	if session.RoomID != "" || inviter.RoomID != "" {
		return apperror.ErrAlreadyInGame
	}

	roomID := uuid.NewString()
	room := that.registry.CreateRoom(roomID, inviter.Identity, session.Identity, entity.NewGameState())

	log.Info("invite accepted", "roomID", roomID, "inviter", inviter.Identity, "invitee", session.Identity)

	that.startMatch(room)
	return nil
}

// startMatch - arms the move timer and pushes the starting snapshot
// to both slot-holders, each told their own mark and opponent.
func (that *coordinatorService) startMatch(room *entity.Room) {
	roomID := room.ID

	that.reconciler.ArmTimer(roomID)

	var snapshot entity.GameState
	var idX, idO string
	_ = that.registry.WithRoom(roomID, func(current *entity.Room) error {
		snapshot = current.State
		idX, idO = current.PlayerX, current.PlayerO
		return nil
	})

	timeLeft := that.reconciler.RemainingSeconds(roomID)

	playerX, okX := that.registry.SessionByIdentity(idX)
	playerO, okO := that.registry.SessionByIdentity(idO)

	if okX && playerX.IsOnline() {
		that.notifier.Send(playerX.SocketID, EventGameStart, GameStartPayload{
			RoomID:       roomID,
			OpponentID:   idO,
			OpponentName: playerO.DisplayName,
			Mark:         entity.PlayerX,
			State:        snapshot,
			TimeLeft:     timeLeft,
		})
	}

	if okO && playerO.IsOnline() {
		that.notifier.Send(playerO.SocketID, EventGameStart, GameStartPayload{
			RoomID:       roomID,
			OpponentID:   idX,
			OpponentName: playerX.DisplayName,
			Mark:         entity.PlayerO,
			State:        snapshot,
			TimeLeft:     timeLeft,
		})
	}
}
