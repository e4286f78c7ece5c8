package service

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/its-ashutosh-pathak/supersquare-backend/internal/entity"
	"github.com/its-ashutosh-pathak/supersquare-backend/internal/registry"
	"github.com/its-ashutosh-pathak/supersquare-backend/internal/repository"
)

var errAlreadyReconciled = errors.New("room already reconciled")

// Reconciler owns the per-move timer and the terminal path of every
// room: timeout, disconnect, checkmate and draw all funnel into
// Finish, which applies durable rating updates, notifies both sides
// and tears the room down exactly once.
type Reconciler interface {
	ArmTimer(roomID string)
	RemainingSeconds(roomID string) int
	Finish(ctx context.Context, roomID, winnerID string, draw bool, reason string)
}

type reconciler struct {
	logger *slog.Logger

	registry *registry.Registry
	profiles repository.ProfileRepository
	notifier Notifier

	moveTimeout time.Duration
}

func NewReconciler(logger *slog.Logger, reg *registry.Registry, profiles repository.ProfileRepository, notifier Notifier, moveTimeout time.Duration) Reconciler {
	return &reconciler{
		logger:      logger.With("component", "reconciler"),
		registry:    reg,
		profiles:    profiles,
		notifier:    notifier,
		moveTimeout: moveTimeout,
	}
}

// ArmTimer - cancels any running countdown for the room and starts a
// fresh one. The epoch bump invalidates callbacks of the cancelled
// timer that may already be in flight.
func (that *reconciler) ArmTimer(roomID string) {
	_ = that.registry.WithRoom(roomID, func(room *entity.Room) error {
		room.StopCountdown()
		room.TimerResetAt = time.Now()

		epoch := room.TimerEpoch
		room.Timer = time.AfterFunc(that.moveTimeout, func() {
			that.onTimeout(roomID, epoch)
		})

		return nil
	})
}

// RemainingSeconds - seconds left on the room's countdown, rounded
// up, for display alongside state snapshots.
func (that *reconciler) RemainingSeconds(roomID string) int {
	remaining := int(that.moveTimeout / time.Second)

	_ = that.registry.WithRoom(roomID, func(room *entity.Room) error {
		if room.TimerResetAt.IsZero() {
			return nil
		}

		left := that.moveTimeout - time.Since(room.TimerResetAt)
		remaining = int(math.Ceil(left.Seconds()))
		if remaining < 0 {
			remaining = 0
		}

		return nil
	})

	return remaining
}

// onTimeout - fires when a countdown elapses unchallenged: the player
// whose turn it was loses and the opponent wins. A stale fire (the
// room moved on, finished or disappeared) is a no-op.
func (that *reconciler) onTimeout(roomID string, epoch uint64) {
	var winnerID string
	fire := false

	err := that.registry.WithRoom(roomID, func(room *entity.Room) error {
		if room.Terminal || room.TimerEpoch != epoch {
			return nil
		}

		fire = true

		active := room.State.ActivePlayer
		if active == entity.EmptyCell || !room.IsFull() {
			// nobody to award the win to; the room is just discarded
			return nil
		}

		winnerID = room.IdentityOf(entity.OppositeMark(active))
		return nil
	})
	if err != nil || !fire {
		return
	}

	that.logger.Info("move timer elapsed", "roomID", roomID, "winner", winnerID)

	that.Finish(context.Background(), roomID, winnerID, false, ReasonTimeout)
}

// Finish - resolves the room's outcome. The terminal claim happens
// under the registry lock, so of several concurrent triggers
// (checkmate, timeout, disconnect) exactly one proceeds. Durable
// writes follow outside the lock; their failure is logged and never
// blocks notification or cleanup. The room is deleted last,
// unconditionally.
func (that *reconciler) Finish(ctx context.Context, roomID, winnerID string, draw bool, reason string) {
	log := that.logger.With("method", "Finish", "roomID", roomID)

	var playerX, playerO string

	err := that.registry.WithRoom(roomID, func(room *entity.Room) error {
		if room.Terminal {
			return errAlreadyReconciled
		}
		room.Terminal = true
		room.StopCountdown()

		playerX, playerO = room.PlayerX, room.PlayerO
		return nil
	})
	if err != nil {
		return
	}

	log.Info("game over", "winner", winnerID, "draw", draw, "reason", reason)

	if playerO != "" {
		that.applyOutcome(ctx, playerX, playerO, winnerID, draw)
		that.notifyGameOver(playerX, playerO, winnerID, draw, reason)
	} else {
		// a room that never got an opponent; tell the creator the
		// shareable code is dead before the room disappears
		that.notifyRoomExpired(playerX, roomID)
	}

	that.registry.DeleteRoom(roomID)
}

func (that *reconciler) applyOutcome(ctx context.Context, playerX, playerO, winnerID string, draw bool) {
	log := that.logger.With("method", "applyOutcome")

	deltas := make(map[string]entity.StatsDelta, 2)
	if draw {
		deltas[playerX] = entity.DrawDelta
		deltas[playerO] = entity.DrawDelta
	} else {
		loserID := playerX
		if winnerID == playerX {
			loserID = playerO
		}
		deltas[winnerID] = entity.WinnerDelta
		deltas[loserID] = entity.LoserDelta
	}

	for identity, delta := range deltas {
		if err := that.profiles.ApplyStatsDelta(ctx, identity, delta); err != nil {
			log.Error("failed to apply stats delta", "identity", identity, "error", err)
			continue
		}

		that.pushProfile(ctx, identity)
	}
}

// pushProfile - reads the freshly updated durable record and pushes
// it to the player's live connection, if still connected.
func (that *reconciler) pushProfile(ctx context.Context, identity string) {
	log := that.logger.With("method", "pushProfile")

	session, ok := that.registry.SessionByIdentity(identity)
	if !ok || !session.IsOnline() {
		return
	}

	profile, err := that.profiles.GetByIdentity(ctx, identity)
	if err != nil {
		log.Error("failed to read updated profile", "identity", identity, "error", err)
		return
	}

	if rank, err := that.profiles.Rank(ctx, identity); err == nil {
		profile.Rank = rank
	} else {
		log.Error("failed to derive rank", "identity", identity, "error", err)
	}

	that.notifier.Send(session.SocketID, EventProfileUpdated, profile)
}

func (that *reconciler) notifyRoomExpired(identity, roomID string) {
	session, ok := that.registry.SessionByIdentity(identity)
	if !ok || !session.IsOnline() {
		return
	}

	that.notifier.Send(session.SocketID, EventRoomExpired, RoomExpiredPayload{RoomID: roomID})
}

func (that *reconciler) notifyGameOver(playerX, playerO, winnerID string, draw bool, reason string) {
	payload := GameOverPayload{
		WinnerID: winnerID,
		Draw:     draw,
		Reason:   reason,
	}

	for _, identity := range []string{playerX, playerO} {
		session, ok := that.registry.SessionByIdentity(identity)
		if !ok || !session.IsOnline() {
			continue
		}

		that.notifier.Send(session.SocketID, EventGameOver, payload)
	}
}
