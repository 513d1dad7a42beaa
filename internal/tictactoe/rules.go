// Package tictactoe holds the rules of the N x N game as the game server applies them.
package tictactoe

import (
	"fmt"

	"github.com/rocketscienceinc/tictactoe-client/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
)

// WinLines returns every row, column and both diagonals of a size x size board.
func WinLines(size int) [][]int {
	lines := make([][]int, 0, 2*size+2)

	for i := 0; i < size; i++ {
		row := make([]int, size)
		col := make([]int, size)
		for j := 0; j < size; j++ {
			row[j] = i*size + j
			col[j] = j*size + i
		}
		lines = append(lines, row, col)
	}

	diag := make([]int, size)
	anti := make([]int, size)
	for i := 0; i < size; i++ {
		diag[i] = i*size + i
		anti[i] = i*size + size - 1 - i
	}

	return append(lines, diag, anti)
}

// CheckWinner returns WinnerNone while the game can go on.
func CheckWinner(board entity.Board, size int) entity.Winner {
	for _, line := range WinLines(size) {
		if won := lineOwner(board, line); won != entity.Empty {
			return entity.Winner(won)
		}
	}

	for _, cell := range board {
		if cell == entity.Empty {
			return entity.WinnerNone
		}
	}

	return entity.WinnerTie
}

// MakeTurn places mark at cell in place and reports the outcome.
func MakeTurn(board entity.Board, size int, mark entity.Mark, cell int) (entity.Winner, error) {
	if !board.Fits(size) {
		return entity.WinnerNone, fmt.Errorf("%w: %d cells for size %d", apperror.ErrInvalidSize, len(board), size)
	}

	if CheckWinner(board, size) != entity.WinnerNone {
		return entity.WinnerNone, apperror.ErrGameFinished
	}

	if err := validateMove(board, cell); err != nil {
		return entity.WinnerNone, fmt.Errorf("invalid turn: %w", err)
	}

	board[cell] = mark.Cell()

	return CheckWinner(board, size), nil
}

// FirstEmpty returns -1 on a full board.
func FirstEmpty(board entity.Board) int {
	for position, cell := range board {
		if cell == entity.Empty {
			return position
		}
	}

	return -1
}

func validateMove(board entity.Board, cell int) error {
	if !board.InRange(cell) {
		return apperror.ErrInvalidCell
	}

	if board[cell] != entity.Empty {
		return apperror.ErrCellOccupied
	}

	return nil
}

func lineOwner(board entity.Board, line []int) entity.Cell {
	first := board[line[0]]
	if first == entity.Empty {
		return entity.Empty
	}

	for _, position := range line[1:] {
		if board[position] != first {
			return entity.Empty
		}
	}

	return first
}
