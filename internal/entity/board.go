package entity

const (
	PlayerX   = "X"
	PlayerO   = "O"
	PlayerTie = "-"

	EmptyCell = ""
)

const (
	BoardActive = "active"
	BoardWonX   = "won_x"
	BoardWonO   = "won_o"
	BoardDraw   = "draw"
)

// SubBoard is one 3x3 cell grid within the main grid. Cells hold
// PlayerX, PlayerO or EmptyCell and are immutable once set.
type SubBoard struct {
	Cells  [3][3]string `json:"cells"`
	Status string       `json:"status"`
}

// BoardRef addresses one sub-board on the main grid.
type BoardRef struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Target addresses one cell: the sub-board at (Row, Col) on the main
// grid and the cell at (SubRow, SubCol) within it.
type Target struct {
	Row    int `json:"row"`
	Col    int `json:"col"`
	SubRow int `json:"subRow"`
	SubCol int `json:"subCol"`
}

// GameState is the authoritative, serializable snapshot of one match.
// It is held and passed by value: arrays copy deeply, so handing a
// GameState to the rule engine can never alias the room's copy.
type GameState struct {
	Boards       [3][3]SubBoard `json:"boards"`
	ActivePlayer string         `json:"activePlayer"`
	// ActiveBoard is the sub-board the next move is constrained to;
	// nil means a free move.
	ActiveBoard *BoardRef `json:"activeBoard"`
	// Winner is PlayerX, PlayerO or PlayerTie once the game has
	// concluded, EmptyCell while it is running.
	Winner string `json:"winner"`
}

func NewGameState() GameState {
	state := GameState{
		ActivePlayer: PlayerX,
	}

	for row := range state.Boards {
		for col := range state.Boards[row] {
			state.Boards[row][col].Status = BoardActive
		}
	}

	return state
}

func (that *GameState) IsOver() bool {
	return that.Winner != EmptyCell
}

func (that *GameState) IsDraw() bool {
	return that.Winner == PlayerTie
}

// OppositeMark - returns the mark of the other player.
func OppositeMark(mark string) string {
	if mark == PlayerX {
		return PlayerO
	}
	return PlayerX
}
