package entity

import "time"

const DefaultRating = 100

// Profile is the durable per-identity record owned by the external
// store; the live core only reads and writes it by identity and never
// caches it beyond a single request.
type Profile struct {
	Identity     string    `json:"identity"`
	DisplayName  string    `json:"displayName"`
	Rating       int       `json:"rating"`
	Wins         int       `json:"wins"`
	Losses       int       `json:"losses"`
	GamesPlayed  int       `json:"gamesPlayed"`
	Rank         int       `json:"rank,omitempty"`
	LastActiveAt time.Time `json:"lastActiveAt,omitempty"`
}

// StatsDelta is one reconciliation's worth of durable adjustments.
type StatsDelta struct {
	Rating int
	Wins   int
	Losses int
	Games  int
}

// Rating adjustments applied by the game-over reconciler.
var (
	WinnerDelta = StatsDelta{Rating: 10, Wins: 1, Games: 1}
	LoserDelta  = StatsDelta{Rating: -10, Losses: 1, Games: 1}
	DrawDelta   = StatsDelta{Rating: 5, Games: 1}
)
