package entity

import (
	"math/rand"
	"time"
)

// Room owns the authoritative state of one match plus its two player
// slots. PlayerX is always filled at creation; PlayerO stays empty
// until someone joins.
type Room struct {
	ID      string    `json:"id"`
	PlayerX string    `json:"playerX"`
	PlayerO string    `json:"playerO,omitempty"`
	State   GameState `json:"state"`

	// Timer bookkeeping for the per-move countdown. TimerEpoch grows
	// monotonically on every reset so a stale fired timer can
	// recognize it has been superseded.
	Timer        *time.Timer `json:"-"`
	TimerEpoch   uint64      `json:"-"`
	TimerResetAt time.Time   `json:"-"`

	// Terminal is set once the outcome has been claimed, so timeout,
	// disconnect and checkmate can never reconcile the same room twice.
	Terminal bool `json:"-"`
}

func (that *Room) IsFull() bool {
	return that.PlayerO != ""
}

// StopCountdown - cancels any pending countdown and advances the
// epoch so an in-flight fire recognizes it has been superseded. Must
// run in the same critical section as the mutation that invalidates
// the countdown.
func (that *Room) StopCountdown() {
	if that.Timer != nil {
		that.Timer.Stop()
	}
	that.TimerEpoch++
}

// MarkOf - resolves which mark the given identity plays, if any.
func (that *Room) MarkOf(identity string) (string, bool) {
	switch identity {
	case that.PlayerX:
		return PlayerX, true
	case that.PlayerO:
		if that.PlayerO == "" {
			return "", false
		}
		return PlayerO, true
	default:
		return "", false
	}
}

// IdentityOf - resolves which identity plays the given mark.
func (that *Room) IdentityOf(mark string) string {
	if mark == PlayerX {
		return that.PlayerX
	}
	return that.PlayerO
}

// Opponent - the other slot-holder, empty if the second slot is open.
func (that *Room) Opponent(identity string) string {
	if identity == that.PlayerX {
		return that.PlayerO
	}
	return that.PlayerX
}

// RandomMarks - 50/50 mark assignment for matched pairs.
func RandomMarks() (string, string) {
	if rand.Intn(2) == 0 { //nolint:gosec // mark assignment needs no crypto
		return PlayerX, PlayerO
	}
	return PlayerO, PlayerX
}
