package console

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rocketscienceinc/tictactoe-client/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-client/internal/connection"
	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
)

// Renderer prints session events as text. It holds no game state of its own.
type Renderer struct {
	mu  sync.Mutex
	out io.Writer
	// local is the mark of the human at this terminal.
	local entity.Mark
}

func NewRenderer(out io.Writer, local entity.Mark) *Renderer {
	return &Renderer{out: out, local: local}
}

func (that *Renderer) SessionChanged(session entity.Session) {
	that.mu.Lock()
	defer that.mu.Unlock()

	fmt.Fprint(that.out, FormatBoard(session.Board, session.Size))
	fmt.Fprintln(that.out, that.status(session))
}

func (that *Renderer) MoveRejected(position int, err error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	switch {
	case apperror.IsValidation(err):
		fmt.Fprintf(that.out, "move %d not allowed: %v\n", position, err)
	case apperror.IsConnection(err):
		fmt.Fprintf(that.out, "move %d not sent, no connection: %v\n", position, err)
	default:
		fmt.Fprintf(that.out, "move %d failed: %v\n", position, err)
	}
}

func (that *Renderer) ServerError(err error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	var protoErr *apperror.ProtocolError
	if errors.As(err, &protoErr) {
		fmt.Fprintf(that.out, "server: %s\n", protoErr.Message)
		return
	}

	fmt.Fprintf(that.out, "server: %v\n", err)
}

func (that *Renderer) ConnectionChanged(state connection.State, err error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	switch state {
	case connection.StateFailed:
		fmt.Fprintf(that.out, "connection lost for good: %v\ntype 'new' to try again\n", err)
	case connection.StateReconnecting:
		fmt.Fprintln(that.out, "connection lost, reconnecting...")
	default:
		fmt.Fprintf(that.out, "connection %s\n", state.String())
	}
}

func (that *Renderer) Println(args ...any) {
	that.mu.Lock()
	defer that.mu.Unlock()

	fmt.Fprintln(that.out, args...)
}

func (that *Renderer) status(session entity.Session) string {
	switch {
	case session.GameOver && session.Winner == entity.WinnerTie:
		return "game over: tie"
	case session.GameOver && session.Winner == entity.Winner(that.local):
		return "game over: you win"
	case session.GameOver:
		return fmt.Sprintf("game over: %s wins", session.Winner)
	case session.PendingMove:
		return "waiting for the server..."
	case session.CurrentPlayer == that.local:
		return fmt.Sprintf("your turn (%s)", that.local)
	default:
		return fmt.Sprintf("%s to play", session.CurrentPlayer)
	}
}

// FormatBoard draws the grid with '.' for empty cells.
func FormatBoard(board entity.Board, size int) string {
	var sb strings.Builder

	for row := 0; row < size; row++ {
		cells := make([]string, size)
		for col := 0; col < size; col++ {
			cells[col] = "."
			if position := row*size + col; position < len(board) && board[position] != entity.Empty {
				cells[col] = string(board[position])
			}
		}
		sb.WriteString(strings.Join(cells, " "))
		sb.WriteByte('\n')
	}

	return sb.String()
}
