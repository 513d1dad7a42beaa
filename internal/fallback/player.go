package fallback

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
	"github.com/rocketscienceinc/tictactoe-client/internal/protocol"
)

type moveClient interface {
	MakeMove(ctx context.Context, board entity.Board, current entity.Mark) (*MoveResult, error)
	CheckWinner(ctx context.Context, board entity.Board) (entity.Winner, error)
}

// Player runs the stateless move exchange off the loop and posts the outcome back to it.
type Player struct {
	logger  *slog.Logger
	client  moveClient
	post    func(func())
	timeout time.Duration
}

func NewPlayer(logger *slog.Logger, client moveClient, post func(func()), timeout time.Duration) *Player {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	return &Player{
		logger:  logger.With("component", "fallback-player"),
		client:  client,
		post:    post,
		timeout: timeout,
	}
}

// Play checks board for a winner, lets the server answer for next and checks again. The outcome is
// delivered to done through post.
func (that *Player) Play(board entity.Board, size int, next entity.Mark, done func(protocol.Event, error)) {
	board = board.Clone()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), that.timeout)
		defer cancel()

		event, err := that.Exchange(ctx, board, size, next)
		that.post(func() { done(event, err) })
	}()
}

// Exchange is the synchronous form of Play.
func (that *Player) Exchange(ctx context.Context, board entity.Board, size int, next entity.Mark) (protocol.Event, error) {
	log := that.logger.With("method", "Exchange")

	winner, err := that.client.CheckWinner(ctx, board)
	if err != nil {
		return nil, err
	}
	if winner != entity.WinnerNone {
		log.Debug("local move ended the game", "winner", string(winner))
		return protocol.GameOver{Winner: winner, Board: board, Size: size}, nil
	}

	result, err := that.client.MakeMove(ctx, board, next)
	if err != nil {
		return nil, err
	}
	if result.Error != "" {
		return protocol.Error{Message: result.Error}, nil
	}
	if !result.Board.Fits(size) {
		return nil, fmt.Errorf("make move: %d cells for size %d", len(result.Board), size)
	}

	winner, err = that.client.CheckWinner(ctx, result.Board)
	if err != nil {
		return nil, err
	}
	if winner != entity.WinnerNone {
		return protocol.GameOver{Winner: winner, Board: result.Board, Size: size}, nil
	}

	return protocol.GameState{Board: result.Board, CurrentPlayer: next.Opponent(), Size: size}, nil
}
