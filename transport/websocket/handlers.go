package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/its-ashutosh-pathak/supersquare-backend/internal/apperror"
	"github.com/its-ashutosh-pathak/supersquare-backend/internal/service"
)

func (that *Server) handleLogin(ctx context.Context, socketID string, raw json.RawMessage) error {
	var payload loginPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal login payload: %w", err)
	}

	result, err := that.sessions.Login(ctx, socketID, payload.Identity, payload.DisplayName)
	if err != nil {
		return fmt.Errorf("failed to login: %w", err)
	}

	that.hub.Send(socketID, service.EventLoginSuccess, result)

	return nil
}

func (that *Server) handleFindMatch(ctx context.Context, socketID string, _ json.RawMessage) error {
	return that.coordinator.FindMatch(ctx, socketID)
}

func (that *Server) handleCreateRoom(ctx context.Context, socketID string, _ json.RawMessage) error {
	_, err := that.coordinator.CreateRoom(ctx, socketID)
	return err
}

func (that *Server) handleJoinRoom(ctx context.Context, socketID string, raw json.RawMessage) error {
	var payload joinRoomPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal join payload: %w", err)
	}

	return that.coordinator.JoinRoomByCode(ctx, socketID, payload.Code)
}

func (that *Server) handleMakeMove(ctx context.Context, socketID string, raw json.RawMessage) error {
	var payload makeMovePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal move payload: %w", err)
	}

	return that.gameplay.MakeTurn(ctx, socketID, payload.RoomID, payload.Move)
}

func (that *Server) handleSendMessage(ctx context.Context, socketID string, raw json.RawMessage) error {
	var payload sendMessagePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal chat payload: %w", err)
	}

	return that.gameplay.SendMessage(ctx, socketID, payload.RoomID, payload.Message)
}

func (that *Server) handleSendInvite(ctx context.Context, socketID string, raw json.RawMessage) error {
	var payload invitePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal invite payload: %w", err)
	}

	return that.coordinator.SendInvite(ctx, socketID, payload.TargetID)
}

func (that *Server) handleRespondInvite(ctx context.Context, socketID string, raw json.RawMessage) error {
	var payload invitePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal invite payload: %w", err)
	}

	return that.coordinator.RespondInvite(ctx, socketID, payload.TargetID, payload.Accept)
}

// userFacing maps domain errors onto the messages a client is allowed
// to see. Anything outside the list stays server-side.
var userFacing = map[error]string{
	apperror.ErrGameFinished:     "game is already finished",
	apperror.ErrNotYourTurn:      "it is not your turn",
	apperror.ErrCellOccupied:     "cell is already occupied",
	apperror.ErrInvalidCell:      "cell is out of range",
	apperror.ErrBoardNotPlayable: "that board is already settled",
	apperror.ErrWrongTarget:      "you must play on the active board",
	apperror.ErrRoomNotFound:     "room not found",
	apperror.ErrRoomFull:         "room is already full",
	apperror.ErrNotInRoom:        "you are not in this room",
	apperror.ErrSessionUnknown:   "login first",
	apperror.ErrSelfPairing:      "you cannot play against yourself",
	apperror.ErrPlayerOffline:    "that player is offline",
	apperror.ErrAlreadyInGame:    "you are already in a game",
	apperror.ErrMessageCooldown:  "you are sending messages too quickly",
}

func (that *Server) reportError(socketID, action string, err error) {
	log := that.logger.With("method", "reportError", "action", action, "socketID", socketID)

	// moves from a non-participant are dropped without a reply
	if errors.Is(err, apperror.ErrNotSlotHolder) {
		log.Warn("rejected action from non-participant")
		return
	}

	for sentinel, message := range userFacing {
		if errors.Is(err, sentinel) {
			that.hub.Send(socketID, "error", errorPayload{Message: message})
			return
		}
	}

	log.Error("failed to handle action", "error", err)
	that.hub.Send(socketID, "error", errorPayload{Message: "internal error"})
}
