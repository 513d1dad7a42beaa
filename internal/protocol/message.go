package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
)

// frame types.
const (
	TypePlayerMove = "player_move"
	TypeResetGame  = "reset_game"
	TypeGameState  = "game_state"
	TypeGameOver   = "game_over"
	TypeGameReset  = "game_reset"
	TypeError      = "error"
)

// PlayerMove is sent for every accepted local move. Board, CurrentPlayer and Size are only set by the
// stateless flavour of the protocol.
type PlayerMove struct {
	Type          string       `json:"type"`
	Position      int          `json:"position"`
	Board         entity.Board `json:"board,omitempty"`
	CurrentPlayer entity.Mark  `json:"current_player,omitempty"`
	Size          int          `json:"size,omitempty"`
}

type ResetGame struct {
	Type string `json:"type"`
	Size int    `json:"size"`
}

// Event is one decoded server frame: GameState, GameOver or Error. A game_reset frame decodes to a
// GameState.
type Event interface {
	event()
}

type GameState struct {
	Board         entity.Board
	CurrentPlayer entity.Mark
	Size          int
	AIUsed        *bool
}

type GameOver struct {
	Winner entity.Winner
	AIUsed *bool

	// Board is nil unless the server attached the final position.
	Board entity.Board
	Size  int
}

type Error struct {
	Message string
}

func (GameState) event() {}
func (GameOver) event()  {}
func (Error) event()     {}

// envelope is the wire shape shared by all server frames.
type envelope struct {
	Type string `json:"type"`
}

type gameStatePayload struct {
	Board         entity.Board `json:"board"`
	CurrentPlayer *string      `json:"current_player"`
	Size          int          `json:"size"`
	AIUsed        *bool        `json:"ai_used,omitempty"`
}

type gameOverPayload struct {
	Winner string       `json:"winner"`
	AIUsed *bool        `json:"ai_used,omitempty"`
	Board  entity.Board `json:"board,omitempty"`
	Size   int          `json:"size,omitempty"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func EncodePlayerMove(move PlayerMove) ([]byte, error) {
	move.Type = TypePlayerMove

	data, err := json.Marshal(move)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal player move: %w", err)
	}

	return data, nil
}

func EncodeResetGame(size int) ([]byte, error) {
	data, err := json.Marshal(ResetGame{Type: TypeResetGame, Size: size})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal reset game: %w", err)
	}

	return data, nil
}
