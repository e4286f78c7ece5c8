package apperror

import "errors"

var (
	ErrGameFinished     = errors.New("game is already finished")
	ErrNotYourTurn      = errors.New("it's not your turn")
	ErrCellOccupied     = errors.New("cell is already occupied")
	ErrInvalidCell      = errors.New("invalid cell coordinates")
	ErrBoardNotPlayable = errors.New("sub-board is already settled")
	ErrWrongTarget      = errors.New("move must be played in the required sub-board")

	ErrRoomNotFound   = errors.New("room not found")
	ErrRoomFull       = errors.New("room is already full")
	ErrNotInRoom      = errors.New("player is not in this room")
	ErrNotSlotHolder  = errors.New("player holds no slot in this room")
	ErrSessionUnknown = errors.New("no session for this connection")

	ErrSelfPairing   = errors.New("cannot be matched against yourself")
	ErrPlayerOffline = errors.New("player is offline")
	ErrAlreadyInGame = errors.New("already in a game")

	ErrMessageCooldown = errors.New("message cooldown active")

	ErrProfileNotFound = errors.New("profile not found")
)
