package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/its-ashutosh-pathak/supersquare-backend/internal/apperror"
	"github.com/its-ashutosh-pathak/supersquare-backend/internal/entity"
	"github.com/its-ashutosh-pathak/supersquare-backend/internal/registry"
	"github.com/its-ashutosh-pathak/supersquare-backend/internal/ultimate"
)

// GameplayService is the move pipeline: it authorizes a move intent
// against the room's slot and turn state, delegates to the rule
// engine and fans the resulting snapshot out to both sides. Chat
// rides on the same room scope as a low-stakes side channel.
type GameplayService interface {
	MakeTurn(ctx context.Context, socketID, roomID string, target entity.Target) error
	SendMessage(ctx context.Context, socketID, roomID, text string) error
}

type gameplayService struct {
	logger *slog.Logger

	registry   *registry.Registry
	notifier   Notifier
	reconciler Reconciler

	chatLimit    int
	chatCooldown time.Duration
}

func NewGameplayService(logger *slog.Logger, reg *registry.Registry, notifier Notifier, reconciler Reconciler, chatLimit int, chatCooldown time.Duration) GameplayService {
	return &gameplayService{
		logger:       logger.With("component", "gameplay"),
		registry:     reg,
		notifier:     notifier,
		reconciler:   reconciler,
		chatLimit:    chatLimit,
		chatCooldown: chatCooldown,
	}
}

// MakeTurn - applies one move. Authorization, validation and the
// state transition all happen under the registry lock, so a pair of
// near-simultaneous moves is serialized: the second either observes
// the first's snapshot or is rejected as out of turn. Rejections
// leave the authoritative state untouched.
func (that *gameplayService) MakeTurn(ctx context.Context, socketID, roomID string, target entity.Target) error {
	session, ok := that.registry.SessionBySocket(socketID)
	if !ok {
		return apperror.ErrSessionUnknown
	}

	if session.RoomID != roomID {
		return apperror.ErrNotInRoom
	}

	var next entity.GameState
	var playerX, playerO string

	err := that.registry.WithRoom(roomID, func(room *entity.Room) error {
		mark, holder := room.MarkOf(session.Identity)
		if !holder {
			return apperror.ErrNotSlotHolder
		}

		if room.State.ActivePlayer != mark {
			return apperror.ErrNotYourTurn
		}

		applied, applyErr := ultimate.Apply(room.State, target)
		if applyErr != nil {
			return applyErr
		}

		room.State = applied
		// the running countdown belongs to the turn just superseded;
		// it must die with the same lock hold that commits the move
		room.StopCountdown()

		next = applied
		playerX, playerO = room.PlayerX, room.PlayerO
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to make turn: %w", err)
	}

	if !next.IsOver() {
		// a fresh countdown before broadcasting its duration
		that.reconciler.ArmTimer(roomID)
	}

	that.broadcastUpdate(roomID, next, playerX, playerO)

	if next.IsOver() {
		if next.IsDraw() {
			that.reconciler.Finish(ctx, roomID, "", true, ReasonDraw)
		} else {
			winnerID := playerX
			if next.Winner == entity.PlayerO {
				winnerID = playerO
			}
			that.reconciler.Finish(ctx, roomID, winnerID, false, ReasonCheckmate)
		}
	}

	return nil
}

func (that *gameplayService) broadcastUpdate(roomID string, state entity.GameState, identities ...string) {
	payload := GameUpdatePayload{
		RoomID:   roomID,
		State:    state,
		TimeLeft: that.reconciler.RemainingSeconds(roomID),
	}

	for _, identity := range identities {
		if identity == "" {
			continue
		}

		session, ok := that.registry.SessionByIdentity(identity)
		if !ok || !session.IsOnline() {
			continue
		}

		that.notifier.Send(session.SocketID, EventGameUpdate, payload)
	}
}

// SendMessage - room-scoped chat. Oversized messages are silently
// dropped; a sender inside the cooldown window gets a rejection
// notice; accepted messages go to every slot-holder including an echo
// to the sender as delivery confirmation.
func (that *gameplayService) SendMessage(_ context.Context, socketID, roomID, text string) error {
	session, ok := that.registry.SessionBySocket(socketID)
	if !ok {
		return apperror.ErrSessionUnknown
	}

	if session.RoomID != roomID {
		return apperror.ErrNotInRoom
	}

	if text == "" || utf8.RuneCountInString(text) > that.chatLimit {
		return nil
	}

	now := time.Now()
	if !that.registry.TouchChat(session.Identity, now, that.chatCooldown) {
		return apperror.ErrMessageCooldown
	}

	var playerX, playerO string
	err := that.registry.WithRoom(roomID, func(room *entity.Room) error {
		playerX, playerO = room.PlayerX, room.PlayerO
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to resolve room: %w", err)
	}

	payload := RoomMessagePayload{
		RoomID:    roomID,
		SenderID:  session.Identity,
		Message:   text,
		Timestamp: now.UnixMilli(),
	}

	for _, identity := range []string{playerX, playerO} {
		if identity == "" {
			continue
		}

		recipient, found := that.registry.SessionByIdentity(identity)
		if !found || !recipient.IsOnline() {
			continue
		}

		that.notifier.Send(recipient.SocketID, EventRoomMessage, payload)
	}

	return nil
}
