package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
)

var (
	ErrUnknownFrame   = errors.New("unknown frame type")
	ErrMalformedFrame = errors.New("malformed frame")
)

// Handler receives decoded server events.
type Handler interface {
	OnGameState(event GameState)
	OnGameOver(event GameOver)
	OnError(event Error)
}

type Router struct {
	logger   *slog.Logger
	decoders map[string]func(data []byte) (Event, error)
}

func NewRouter(logger *slog.Logger) *Router {
	router := &Router{
		logger:   logger.With("component", "router"),
		decoders: make(map[string]func([]byte) (Event, error)),
	}

	router.decoders[TypeGameState] = decodeGameState
	router.decoders[TypeGameOver] = decodeGameOver
	router.decoders[TypeGameReset] = decodeGameReset
	router.decoders[TypeError] = decodeError

	return router
}

// Decode turns one inbound frame into an Event.
func (that *Router) Decode(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedFrame, err)
	}

	decode, ok := that.decoders[env.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFrame, env.Type)
	}

	return decode(data)
}

// Dispatch decodes data and hands the event to handler. Unknown and malformed frames are dropped.
func (that *Router) Dispatch(data []byte, handler Handler) bool {
	log := that.logger.With("method", "Dispatch")

	event, err := that.Decode(data)
	if err != nil {
		if errors.Is(err, ErrUnknownFrame) {
			log.Debug("ignoring frame", "error", err)
		} else {
			log.Warn("dropping frame", "error", err)
		}
		return false
	}

	Deliver(event, handler)

	return true
}

// Deliver routes an already decoded event, e.g. one produced by the HTTP fallback.
func Deliver(event Event, handler Handler) {
	switch ev := event.(type) {
	case GameState:
		handler.OnGameState(ev)
	case GameOver:
		handler.OnGameOver(ev)
	case Error:
		handler.OnError(ev)
	}
}

func decodeGameState(data []byte) (Event, error) {
	var payload gameStatePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: game_state: %w", ErrMalformedFrame, err)
	}

	if !payload.Board.Fits(payload.Size) {
		return nil, fmt.Errorf("%w: game_state: %d cells for size %d", ErrMalformedFrame, len(payload.Board), payload.Size)
	}

	// the original client treats a missing turn as X
	current := entity.MarkX
	if payload.CurrentPlayer != nil && *payload.CurrentPlayer != "" {
		mark, err := entity.ParseMark(*payload.CurrentPlayer)
		if err != nil {
			return nil, fmt.Errorf("%w: game_state: %w", ErrMalformedFrame, err)
		}
		current = mark
	}

	return GameState{
		Board:         payload.Board,
		CurrentPlayer: current,
		Size:          payload.Size,
		AIUsed:        payload.AIUsed,
	}, nil
}

// decodeGameReset reads the reset confirmation of servers that answer reset_game with game_reset.
// The size may be left out, the board is square.
func decodeGameReset(data []byte) (Event, error) {
	var payload gameStatePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: game_reset: %w", ErrMalformedFrame, err)
	}

	size := payload.Size
	if size == 0 {
		for size*size < len(payload.Board) {
			size++
		}
	}

	if !payload.Board.Fits(size) {
		return nil, fmt.Errorf("%w: game_reset: %d cells for size %d", ErrMalformedFrame, len(payload.Board), size)
	}

	return GameState{Board: payload.Board, CurrentPlayer: entity.MarkX, Size: size, AIUsed: payload.AIUsed}, nil
}

func decodeGameOver(data []byte) (Event, error) {
	var payload gameOverPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: game_over: %w", ErrMalformedFrame, err)
	}

	winner, err := entity.ParseWinner(payload.Winner)
	if err != nil {
		return nil, fmt.Errorf("%w: game_over: %w", ErrMalformedFrame, err)
	}

	event := GameOver{Winner: winner, AIUsed: payload.AIUsed}

	if payload.Board != nil {
		// size may be omitted, the controller then checks the board against its own size
		if payload.Size != 0 && !payload.Board.Fits(payload.Size) {
			return nil, fmt.Errorf("%w: game_over: %d cells for size %d", ErrMalformedFrame, len(payload.Board), payload.Size)
		}
		event.Board = payload.Board
		event.Size = payload.Size
	}

	return event, nil
}

func decodeError(data []byte) (Event, error) {
	var payload errorPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: error: %w", ErrMalformedFrame, err)
	}

	return Error{Message: payload.Message}, nil
}
