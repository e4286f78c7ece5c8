package service

import (
	"github.com/its-ashutosh-pathak/supersquare-backend/internal/entity"
)

// Outbound event actions pushed over the live connection.
const (
	EventLoginSuccess         = "login:success"
	EventQueueJoined          = "queue:joined"
	EventRoomCreated          = "room:created"
	EventGameStart            = "game:start"
	EventGameUpdate           = "game:update"
	EventGameOver             = "game:over"
	EventRoomExpired          = "room:expired"
	EventOpponentDisconnected = "opponent:disconnected"
	EventProfileUpdated       = "profile:updated"
	EventInviteReceived       = "invite:received"
	EventInviteRejected       = "invite:rejected"
	EventRoomMessage          = "room:message"
)

// Reason codes carried by the terminal game:over notification.
const (
	ReasonCheckmate  = "CHECKMATE"
	ReasonTimeout    = "TIMEOUT"
	ReasonDisconnect = "DISCONNECT"
	ReasonDraw       = "DRAW"
)

// Notifier pushes an event to one live connection. Sends are
// best-effort: a closed or missing handle is not an error the game
// logic can act on.
type Notifier interface {
	Send(socketID, action string, payload any)
}

type LoginSuccessPayload struct {
	Session entity.Session  `json:"session"`
	Profile *entity.Profile `json:"profile,omitempty"`
}

type RoomCreatedPayload struct {
	RoomID string `json:"roomId"`
}

type RoomExpiredPayload struct {
	RoomID string `json:"roomId"`
}

type GameStartPayload struct {
	RoomID       string           `json:"roomId"`
	OpponentID   string           `json:"opponentId"`
	OpponentName string           `json:"opponentName"`
	Mark         string           `json:"mark"`
	State        entity.GameState `json:"state"`
	TimeLeft     int              `json:"timeLeft"`
}

type GameUpdatePayload struct {
	RoomID   string           `json:"roomId"`
	State    entity.GameState `json:"state"`
	TimeLeft int              `json:"timeLeft"`
}

type GameOverPayload struct {
	WinnerID string `json:"winnerId,omitempty"`
	Draw     bool   `json:"draw"`
	Reason   string `json:"reason"`
}

type InviteReceivedPayload struct {
	FromID   string `json:"fromId"`
	FromName string `json:"fromName"`
}

type InviteRejectedPayload struct {
	FromID   string `json:"fromId"`
	FromName string `json:"fromName"`
}

type RoomMessagePayload struct {
	RoomID    string `json:"roomId"`
	SenderID  string `json:"senderId"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}
