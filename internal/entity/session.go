package entity

import "time"

const (
	StatusOnline  = "online"
	StatusInGame  = "in_game"
	StatusOffline = "offline"
)

// Session is the ephemeral per-connection record of one player. The
// record is keyed by identity and survives disconnects (marked
// offline) so that a reconnect can reclaim it.
type Session struct {
	Identity    string `json:"identity"`
	DisplayName string `json:"displayName"`
	Status      string `json:"status"`
	RoomID      string `json:"roomId,omitempty"`

	// SocketID is the live-connection handle, empty while offline.
	SocketID string `json:"-"`
	// LastMessageAt tracks the chat cooldown window.
	LastMessageAt time.Time `json:"-"`
}

func (that *Session) IsOnline() bool {
	return that.Status != StatusOffline
}
