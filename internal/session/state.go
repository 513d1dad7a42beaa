// Package session keeps the local mirror of a game in sync with the server.
package session

import (
	"fmt"

	"github.com/rocketscienceinc/tictactoe-client/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
)

// State is the local mirror of one game. Only the Controller mutates it.
type State struct {
	session entity.Session
}

func NewState(size int) *State {
	return &State{session: entity.NewSession(size, 0)}
}

// Snapshot returns a copy that observers may keep.
func (that *State) Snapshot() entity.Session {
	return that.session.Clone()
}

func (that *State) Size() int {
	return that.session.Size
}

// Reset replaces the session with an empty one. Any pending move is dropped.
func (that *State) Reset(size int, epoch uint64) {
	that.session = entity.NewSession(size, epoch)
}

// Validate checks whether local may play position now.
func (that *State) Validate(position int, local entity.Mark) error {
	switch {
	case that.session.GameOver:
		return apperror.ErrGameFinished
	case that.session.PendingMove:
		return apperror.ErrMovePending
	case !that.session.Board.InRange(position):
		return fmt.Errorf("%w: %d", apperror.ErrInvalidCell, position)
	case that.session.Board[position] != entity.Empty:
		return fmt.Errorf("%w: %d", apperror.ErrCellOccupied, position)
	case that.session.CurrentPlayer != local:
		return apperror.ErrNotYourTurn
	}

	return nil
}

// PlaceOptimistic marks position for the current player and flags the move as pending.
func (that *State) PlaceOptimistic(position int) {
	that.session.Board[position] = that.session.CurrentPlayer.Cell()
	that.session.PendingMove = true
}

// Reconcile replaces board, turn and size with the server's version. An empty board starts a new game.
func (that *State) Reconcile(board entity.Board, current entity.Mark, size int, aiUsed *bool) {
	that.session.Board = board.Clone()
	that.session.CurrentPlayer = current
	that.session.Size = size
	that.session.PendingMove = false

	if aiUsed != nil {
		that.session.AIUsed = aiUsed
	}

	if board.IsEmpty() {
		that.session.GameOver = false
		that.session.Winner = entity.WinnerNone
	}
}

// Finish ends the game. board replaces the local one when the server sent the final position.
func (that *State) Finish(winner entity.Winner, board entity.Board, size int, aiUsed *bool) {
	that.session.GameOver = true
	that.session.Winner = winner
	that.session.PendingMove = false

	if board != nil {
		that.session.Board = board.Clone()
		that.session.Size = size
	}

	if aiUsed != nil {
		that.session.AIUsed = aiUsed
	}
}

// ClearPending reports whether a move was pending.
func (that *State) ClearPending() bool {
	pending := that.session.PendingMove
	that.session.PendingMove = false

	return pending
}
