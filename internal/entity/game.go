package entity

import (
	"encoding/json"
	"errors"
	"fmt"
)

const MinBoardSize = 3

var (
	ErrUnknownCell   = errors.New("unknown cell value")
	ErrUnknownMark   = errors.New("unknown player mark")
	ErrUnknownWinner = errors.New("unknown winner value")
)

// Cell is one square of the board. The zero value is an empty square.
type Cell string

const (
	Empty   Cell = ""
	PlayerX Cell = "X"
	PlayerO Cell = "O"
)

// MarshalJSON encodes an empty square as null, the way the game server expects it.
func (that Cell) MarshalJSON() ([]byte, error) {
	if that == Empty {
		return []byte("null"), nil
	}

	return json.Marshal(string(that))
}

func (that *Cell) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*that = Empty
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to unmarshal cell: %w", err)
	}

	switch raw {
	case "", " ":
		*that = Empty
	case string(PlayerX), string(PlayerO):
		*that = Cell(raw)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCell, raw)
	}

	return nil
}

// Mark identifies a player.
type Mark string

const (
	MarkX Mark = "X"
	MarkO Mark = "O"
)

func ParseMark(raw string) (Mark, error) {
	switch Mark(raw) {
	case MarkX, MarkO:
		return Mark(raw), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMark, raw)
	}
}

func (that Mark) Opponent() Mark {
	if that == MarkX {
		return MarkO
	}
	return MarkX
}

func (that Mark) Cell() Cell {
	return Cell(that)
}

// Winner is the outcome of a finished game. WinnerNone means the game is still running.
type Winner string

const (
	WinnerNone Winner = ""
	WinnerX    Winner = "X"
	WinnerO    Winner = "O"
	WinnerTie  Winner = "Tie"
)

func ParseWinner(raw string) (Winner, error) {
	switch Winner(raw) {
	case WinnerX, WinnerO, WinnerTie:
		return Winner(raw), nil
	default:
		return WinnerNone, fmt.Errorf("%w: %q", ErrUnknownWinner, raw)
	}
}

type Board []Cell

func NewBoard(size int) Board {
	return make(Board, size*size)
}

func (that Board) IsEmpty() bool {
	for _, cell := range that {
		if cell != Empty {
			return false
		}
	}

	return true
}

func (that Board) Clone() Board {
	if that == nil {
		return nil
	}

	out := make(Board, len(that))
	copy(out, that)

	return out
}

func (that Board) InRange(position int) bool {
	return position >= 0 && position < len(that)
}

// Fits reports whether the board has exactly size*size cells.
func (that Board) Fits(size int) bool {
	return size >= MinBoardSize && len(that) == size*size
}

// Session is the client-side mirror of one game.
type Session struct {
	Board         Board  `json:"board"`
	Size          int    `json:"size"`
	CurrentPlayer Mark   `json:"current_player"`
	GameOver      bool   `json:"game_over"`
	PendingMove   bool   `json:"pending_move"`
	Winner        Winner `json:"winner,omitempty"`
	Epoch         uint64 `json:"epoch"`
	AIUsed        *bool  `json:"ai_used,omitempty"`
}

func NewSession(size int, epoch uint64) Session {
	return Session{
		Board:         NewBoard(size),
		Size:          size,
		CurrentPlayer: MarkX,
		Epoch:         epoch,
	}
}

// Clone returns a deep copy safe to hand to observers.
func (that Session) Clone() Session {
	out := that
	out.Board = that.Board.Clone()

	if that.AIUsed != nil {
		used := *that.AIUsed
		out.AIUsed = &used
	}

	return out
}
