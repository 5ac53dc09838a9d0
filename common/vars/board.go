package vars

import (
	"sync/atomic"
	"ticketer/model"
)

// boardPtr holds the latest public board, swapped whole on every change so
// readers never lock.
var boardPtr atomic.Pointer[model.Board]

// GetBoard returns the latest board, or an empty one before the first update.
func GetBoard() model.Board {
	board := boardPtr.Load()
	if board == nil {
		return model.Board{Upcoming: []string{}}
	}

	return *board
}

// SetBoard stores a copy of board.
func SetBoard(board model.Board) {
	upcoming := make([]string, len(board.Upcoming))
	copy(upcoming, board.Upcoming)
	board.Upcoming = upcoming

	boardPtr.Store(&board)
}
