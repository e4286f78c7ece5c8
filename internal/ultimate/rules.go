// Package ultimate implements the rules of the nested 3x3-of-3x3
// board game. It is pure: nothing here performs I/O or mutates its
// inputs, so the service layer can treat Apply as a state-transition
// function from one immutable snapshot to the next.
package ultimate

import (
	"github.com/its-ashutosh-pathak/supersquare-backend/internal/apperror"
	"github.com/its-ashutosh-pathak/supersquare-backend/internal/entity"
)

// Validate reports whether target is a legal move in state.
func Validate(state entity.GameState, target entity.Target) bool {
	return check(state, target) == nil
}

// Apply plays target for the active player and returns the next
// snapshot. On any rejection the input state is returned unchanged
// alongside the error. Sub-board and global outcomes are re-derived
// from the full grid on every call rather than tracked incrementally.
func Apply(state entity.GameState, target entity.Target) (entity.GameState, error) {
	if err := check(state, target); err != nil {
		return state, err
	}

	next := state
	mark := state.ActivePlayer

	next.Boards[target.Row][target.Col].Cells[target.SubRow][target.SubCol] = mark

	for row := range next.Boards {
		for col := range next.Boards[row] {
			next.Boards[row][col].Status = deriveBoardStatus(next.Boards[row][col].Cells)
		}
	}

	next.Winner = deriveWinner(next.Boards)

	next.ActiveBoard = nextActiveBoard(&next, target)

	if next.IsOver() {
		next.ActivePlayer = entity.EmptyCell
	} else {
		next.ActivePlayer = entity.OppositeMark(mark)
	}

	return next, nil
}

func check(state entity.GameState, target entity.Target) error {
	if state.IsOver() {
		return apperror.ErrGameFinished
	}

	if !inRange(target.Row, target.Col) || !inRange(target.SubRow, target.SubCol) {
		return apperror.ErrInvalidCell
	}

	board := state.Boards[target.Row][target.Col]
	if board.Status != entity.BoardActive {
		return apperror.ErrBoardNotPlayable
	}

	if board.Cells[target.SubRow][target.SubCol] != entity.EmptyCell {
		return apperror.ErrCellOccupied
	}

	if state.ActiveBoard != nil {
		if state.ActiveBoard.Row != target.Row || state.ActiveBoard.Col != target.Col {
			return apperror.ErrWrongTarget
		}
	}

	return nil
}

func inRange(row, col int) bool {
	return row >= 0 && row <= 2 && col >= 0 && col <= 2
}

// deriveBoardStatus - classifies a sub-board purely from its cells.
func deriveBoardStatus(cells [3][3]string) string {
	switch winner := checkGrid(cells); winner {
	case entity.PlayerX:
		return entity.BoardWonX
	case entity.PlayerO:
		return entity.BoardWonO
	}

	if isGridFull(cells) {
		return entity.BoardDraw
	}

	return entity.BoardActive
}

// deriveWinner - computes the global outcome from the grid of
// sub-board statuses, abstracting won boards to their winner's mark.
func deriveWinner(boards [3][3]entity.SubBoard) string {
	var grid [3][3]string
	settled := true

	for row := range boards {
		for col := range boards[row] {
			switch boards[row][col].Status {
			case entity.BoardWonX:
				grid[row][col] = entity.PlayerX
			case entity.BoardWonO:
				grid[row][col] = entity.PlayerO
			case entity.BoardActive:
				settled = false
			}
		}
	}

	if winner := checkGrid(grid); winner != entity.EmptyCell {
		return winner
	}

	if settled {
		return entity.PlayerTie
	}

	return entity.EmptyCell
}

// nextActiveBoard - the next mover is sent to the sub-board matching
// the cell just played; a settled destination or a concluded game
// frees the move instead.
func nextActiveBoard(next *entity.GameState, target entity.Target) *entity.BoardRef {
	if next.IsOver() {
		return nil
	}

	if next.Boards[target.SubRow][target.SubCol].Status != entity.BoardActive {
		return nil
	}

	return &entity.BoardRef{Row: target.SubRow, Col: target.SubCol}
}

func checkLine(a, b, c string) string {
	if a != entity.EmptyCell && a == b && b == c {
		return a
	}
	return entity.EmptyCell
}

func checkGrid(cells [3][3]string) string {
	for i := 0; i < 3; i++ {
		if winner := checkLine(cells[i][0], cells[i][1], cells[i][2]); winner != entity.EmptyCell {
			return winner
		}
		if winner := checkLine(cells[0][i], cells[1][i], cells[2][i]); winner != entity.EmptyCell {
			return winner
		}
	}

	if winner := checkLine(cells[0][0], cells[1][1], cells[2][2]); winner != entity.EmptyCell {
		return winner
	}

	return checkLine(cells[0][2], cells[1][1], cells[2][0])
}

func isGridFull(cells [3][3]string) bool {
	for row := range cells {
		for col := range cells[row] {
			if cells[row][col] == entity.EmptyCell {
				return false
			}
		}
	}
	return true
}
