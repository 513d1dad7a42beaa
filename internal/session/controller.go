package session

import (
	"fmt"
	"log/slog"

	"github.com/rocketscienceinc/tictactoe-client/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-client/internal/connection"
	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
	"github.com/rocketscienceinc/tictactoe-client/internal/protocol"
)

// Mode selects how moves reach the server.
type Mode string

const (
	// ModeSocket sends only the position over the socket.
	ModeSocket Mode = "socket"
	// ModeStateless sends the position with the whole board and the next player over the socket.
	ModeStateless Mode = "stateless"
	// ModeHTTP plays every move through the stateless HTTP endpoints and never opens a socket.
	ModeHTTP Mode = "http"
)

func ParseMode(raw string) (Mode, error) {
	switch Mode(raw) {
	case ModeSocket, ModeStateless, ModeHTTP:
		return Mode(raw), nil
	default:
		return "", fmt.Errorf("unknown mode %q", raw)
	}
}

type connector interface {
	State() connection.State
	Send(data []byte) error
	Open(size int)
	SetSize(size int)
}

// fallback plays one move over HTTP. done must be invoked on the loop goroutine.
type fallback interface {
	Play(board entity.Board, size int, next entity.Mark, done func(protocol.Event, error))
}

// Observer is notified on the loop goroutine after every change.
type Observer interface {
	SessionChanged(session entity.Session)
	MoveRejected(position int, err error)
	// ServerError receives an *apperror.ProtocolError for every error frame.
	ServerError(err error)
	ConnectionChanged(state connection.State, err error)
}

type Options struct {
	Mode        Mode
	LocalPlayer entity.Mark
	// Fallback lets socket modes play over HTTP once the connection has failed.
	Fallback bool
}

type Controller struct {
	logger    *slog.Logger
	conn      connector
	router    *protocol.Router
	fallback  fallback
	opts      Options
	observers []Observer

	state *State
	epoch uint64
	// resyncing is set from reset_game until a frame for the new board is accepted.
	resyncing bool
	// movedSinceReset is set once a move on the new board went out during a resync.
	movedSinceReset bool
}

// NewController builds a controller for a board of the given size. fb may be nil when no HTTP
// endpoint is configured.
func NewController(logger *slog.Logger, conn connector, router *protocol.Router, fb fallback, size int, opts Options) *Controller {
	if opts.Mode == "" {
		opts.Mode = ModeSocket
	}
	if opts.LocalPlayer == "" {
		opts.LocalPlayer = entity.MarkX
	}

	return &Controller{
		logger:   logger.With("component", "session"),
		conn:     conn,
		router:   router,
		fallback: fb,
		opts:     opts,
		state:    NewState(size),
	}
}

func (that *Controller) AddObserver(observer Observer) {
	that.observers = append(that.observers, observer)
}

func (that *Controller) Snapshot() entity.Session {
	return that.state.Snapshot()
}

func (that *Controller) Mode() Mode {
	return that.opts.Mode
}

// Start opens the connection for the current board. It does nothing in HTTP mode.
func (that *Controller) Start() {
	that.notifySession()

	if that.opts.Mode == ModeHTTP {
		return
	}

	that.conn.Open(that.state.Size())
}

// SubmitMove validates a local move, applies it optimistically and sends it.
func (that *Controller) SubmitMove(position int) error {
	log := that.logger.With("method", "SubmitMove", "position", position)

	if err := that.state.Validate(position, that.opts.LocalPlayer); err != nil {
		log.Debug("move rejected", "error", err)
		return that.reject(position, err)
	}

	viaHTTP, err := that.route()
	if err != nil {
		log.Debug("move rejected", "error", err)
		return that.reject(position, err)
	}

	that.state.PlaceOptimistic(position)
	that.notifySession()

	if viaHTTP {
		that.playOverHTTP(position)
		return nil
	}

	if err := that.sendMove(position); err != nil {
		log.Warn("failed to send move", "error", err)
		that.state.ClearPending()
		that.notifySession()
		return that.reject(position, err)
	}

	if that.resyncing {
		that.movedSinceReset = true
	}

	log.Debug("move sent")

	return nil
}

// Resize starts a new game of the given size, discarding any pending move.
func (that *Controller) Resize(size int) error {
	log := that.logger.With("method", "Resize", "size", size)

	if size < entity.MinBoardSize {
		return fmt.Errorf("%w: %d", apperror.ErrInvalidSize, size)
	}

	that.epoch++
	that.state.Reset(size, that.epoch)
	that.endResync()
	that.notifySession()

	if that.opts.Mode == ModeHTTP {
		log.Info("board reset locally")
		return nil
	}

	if that.conn.State() == connection.StateConnected {
		err := that.sendReset(size)
		if err == nil {
			that.conn.SetSize(size)
			that.resyncing = true
			log.Info("reset sent, waiting for the server board")
			return nil
		}
		log.Warn("failed to send reset, reopening", "error", err)
	}

	that.conn.Open(size)

	return nil
}

// NewGame restarts at the current size.
func (that *Controller) NewGame() error {
	return that.Resize(that.state.Size())
}

// OnFrame receives raw server frames from the connection manager.
func (that *Controller) OnFrame(data []byte) {
	if !that.resyncing {
		that.router.Dispatch(data, that)
		return
	}

	log := that.logger.With("method", "OnFrame")

	event, err := that.router.Decode(data)
	if err != nil {
		log.Debug("dropping frame while resyncing", "error", err)
		return
	}

	if that.fromPreviousBoard(event) {
		log.Debug("dropping frame of the previous board", "epoch", that.epoch)
		return
	}

	if _, ok := event.(protocol.Error); !ok {
		that.endResync()
	}

	protocol.Deliver(event, that)
}

// fromPreviousBoard reports whether a board event cannot belong to the board set up by the last reset:
// it has another size, or it shows marks before any move was made on the new board.
func (that *Controller) fromPreviousBoard(event protocol.Event) bool {
	size := that.state.Size()

	switch ev := event.(type) {
	case protocol.GameState:
		if ev.Size != size {
			return true
		}
		return !that.movedSinceReset && !ev.Board.IsEmpty()
	case protocol.GameOver:
		if ev.Size != 0 && ev.Size != size {
			return true
		}
		if ev.Board != nil && !ev.Board.Fits(size) {
			return true
		}
		return !that.movedSinceReset
	default:
		return false
	}
}

func (that *Controller) endResync() {
	that.resyncing = false
	that.movedSinceReset = false
}

// OnStateChange receives connection lifecycle changes from the connection manager.
func (that *Controller) OnStateChange(from, to connection.State, err error) {
	log := that.logger.With("method", "OnStateChange")
	log.Info("connection state changed", "from", from.String(), "to", to.String())

	if from == connection.StateConnected || to == connection.StateFailed {
		// a reply lost with the transport will never arrive
		if that.state.ClearPending() {
			log.Warn("pending move dropped with the connection")
			that.notifySession()
		}
		that.endResync()
	}

	if from == connection.StateReconnecting && to == connection.StateConnected {
		// the server starts every connection on an empty board
		that.epoch++
		that.state.Reset(that.state.Size(), that.epoch)
		log.Info("reconnected, board reset", "epoch", that.epoch)
		that.notifySession()
	}

	for _, observer := range that.observers {
		observer.ConnectionChanged(to, err)
	}
}

func (that *Controller) OnGameState(event protocol.GameState) {
	that.state.Reconcile(event.Board, event.CurrentPlayer, event.Size, event.AIUsed)
	that.notifySession()
}

func (that *Controller) OnGameOver(event protocol.GameOver) {
	board, size := event.Board, event.Size
	if size == 0 {
		size = that.state.Size()
	}
	if board != nil && !board.Fits(size) {
		that.logger.Warn("ignoring final board of the wrong size", "cells", len(board), "size", size)
		board = nil
	}

	that.state.Finish(event.Winner, board, size, event.AIUsed)
	that.notifySession()
}

func (that *Controller) OnError(event protocol.Error) {
	that.logger.Warn("server reported an error", "message", event.Message)

	that.state.ClearPending()
	that.notifySession()

	err := &apperror.ProtocolError{Message: event.Message}
	for _, observer := range that.observers {
		observer.ServerError(err)
	}
}

// route reports whether the move goes over HTTP, or why it cannot be sent at all.
func (that *Controller) route() (bool, error) {
	if that.opts.Mode == ModeHTTP {
		if that.fallback == nil {
			return false, fmt.Errorf("%w: no http endpoint", apperror.ErrNotConnected)
		}
		return true, nil
	}

	state := that.conn.State()
	if state == connection.StateConnected {
		return false, nil
	}

	if state == connection.StateFailed && that.opts.Fallback && that.fallback != nil {
		return true, nil
	}

	return false, fmt.Errorf("%w: connection is %s", apperror.ErrNotConnected, state.String())
}

func (that *Controller) sendMove(position int) error {
	move := protocol.PlayerMove{Position: position}

	if that.opts.Mode == ModeStateless {
		session := that.state.Snapshot()
		move.Board = session.Board
		move.CurrentPlayer = session.CurrentPlayer.Opponent()
		move.Size = session.Size
	}

	data, err := protocol.EncodePlayerMove(move)
	if err != nil {
		return err
	}

	return that.conn.Send(data)
}

func (that *Controller) sendReset(size int) error {
	data, err := protocol.EncodeResetGame(size)
	if err != nil {
		return err
	}

	return that.conn.Send(data)
}

func (that *Controller) playOverHTTP(position int) {
	log := that.logger.With("method", "playOverHTTP")

	session := that.state.Snapshot()
	epoch := that.epoch

	that.fallback.Play(session.Board, session.Size, session.CurrentPlayer.Opponent(), func(event protocol.Event, err error) {
		if epoch != that.epoch {
			log.Debug("dropping reply for a previous board", "epoch", epoch)
			return
		}

		if err != nil {
			log.Warn("http move failed", "error", err)
			that.state.ClearPending()
			that.notifySession()
			for _, observer := range that.observers {
				observer.MoveRejected(position, err)
			}
			return
		}

		protocol.Deliver(event, that)
	})
}

func (that *Controller) reject(position int, err error) error {
	for _, observer := range that.observers {
		observer.MoveRejected(position, err)
	}

	return fmt.Errorf("move %d rejected: %w", position, err)
}

func (that *Controller) notifySession() {
	if len(that.observers) == 0 {
		return
	}

	snapshot := that.state.Snapshot()
	for _, observer := range that.observers {
		observer.SessionChanged(snapshot)
	}
}
