package websocket

import (
	"encoding/json"

	"github.com/its-ashutosh-pathak/supersquare-backend/internal/entity"
)

// Message is the wire envelope in both directions.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type loginPayload struct {
	Identity    string `json:"identity"`
	DisplayName string `json:"displayName"`
}

type joinRoomPayload struct {
	Code string `json:"code"`
}

type makeMovePayload struct {
	RoomID string        `json:"roomId"`
	Move   entity.Target `json:"move"`
}

type sendMessagePayload struct {
	RoomID  string `json:"roomId"`
	Message string `json:"message"`
}

type invitePayload struct {
	TargetID string `json:"targetId"`
	Accept   bool   `json:"accept,omitempty"`
}

type errorPayload struct {
	Message string `json:"message"`
}
