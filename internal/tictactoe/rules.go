// Package tictactoe holds the pure game rules: move legality and terminal
// state detection over a board snapshot. Nothing here touches shared state,
// so every function is callable without holding any session lock.
package tictactoe

import "github.com/rocketscienceinc/tictactoe-arena/internal/entity"

// winLines enumerates the 8 winning lines as [row, col] coordinate triples:
// 3 rows, 3 columns, 2 diagonals.
var winLines = [8][3][2]int{
	{{0, 0}, {0, 1}, {0, 2}},
	{{1, 0}, {1, 1}, {1, 2}},
	{{2, 0}, {2, 1}, {2, 2}},
	{{0, 0}, {1, 0}, {2, 0}},
	{{0, 1}, {1, 1}, {2, 1}},
	{{0, 2}, {1, 2}, {2, 2}},
	{{0, 0}, {1, 1}, {2, 2}},
	{{0, 2}, {1, 1}, {2, 0}},
}

// ValidPosition reports whether row and col address a cell of the 3x3 board.
func ValidPosition(row, col int) bool {
	return row >= 0 && row <= 2 && col >= 0 && col <= 2
}

// Evaluate inspects a board snapshot and returns the winning mark if some
// line is entirely one mark, or draw=true if the board is full without a
// winner. Both zero values mean the game is still ongoing. After a valid
// move sequence at most one line can be complete, so enumeration order
// does not matter.
func Evaluate(board entity.Board) (winner string, draw bool) {
	for _, line := range winLines {
		a := board[line[0][0]][line[0][1]]
		b := board[line[1][0]][line[1][1]]
		c := board[line[2][0]][line[2][1]]

		if a != entity.EmptyCell && a == b && b == c {
			return a, false
		}
	}

	return entity.EmptyCell, board.IsFull()
}
