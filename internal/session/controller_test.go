package session

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-client/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-client/internal/connection"
	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
	"github.com/rocketscienceinc/tictactoe-client/internal/protocol"
	mockedSession "github.com/rocketscienceinc/tictactoe-client/mocks/session"
)

var errBrokenPipe = errors.New("broken pipe")

type rejection struct {
	position int
	err      error
}

type recordingObserver struct {
	t           *testing.T
	sessions    []entity.Session
	rejections  []rejection
	errors      []string
	connections []connection.State
}

func (that *recordingObserver) SessionChanged(session entity.Session) {
	// every observable state keeps the board square
	assert.Len(that.t, session.Board, session.Size*session.Size)
	that.sessions = append(that.sessions, session)
}

func (that *recordingObserver) MoveRejected(position int, err error) {
	that.rejections = append(that.rejections, rejection{position: position, err: err})
}

func (that *recordingObserver) ServerError(err error) {
	var protoErr *apperror.ProtocolError
	require.ErrorAs(that.t, err, &protoErr)
	that.errors = append(that.errors, protoErr.Message)
}

func (that *recordingObserver) ConnectionChanged(state connection.State, _ error) {
	that.connections = append(that.connections, state)
}

type fakePlay struct {
	board entity.Board
	size  int
	next  entity.Mark
	done  func(protocol.Event, error)
}

type fakeFallback struct {
	plays []*fakePlay
}

func (that *fakeFallback) Play(board entity.Board, size int, next entity.Mark, done func(protocol.Event, error)) {
	that.plays = append(that.plays, &fakePlay{board: board.Clone(), size: size, next: next, done: done})
}

type harness struct {
	controller *Controller
	conn       *mockedSession.Mockconnector
	observer   *recordingObserver
	fallback   *fakeFallback
	state      connection.State
	sent       [][]byte
}

func newHarness(t *testing.T, size int, opts Options) *harness {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := &harness{
		conn:     mockedSession.NewMockconnector(t),
		observer: &recordingObserver{t: t},
		fallback: &fakeFallback{},
		state:    connection.StateConnected,
	}

	h.conn.EXPECT().State().RunAndReturn(func() connection.State { return h.state }).Maybe()

	h.controller = NewController(logger, h.conn, protocol.NewRouter(logger), h.fallback, size, opts)
	h.controller.AddObserver(h.observer)

	return h
}

// expectSends records every frame written to the connection.
func (that *harness) expectSends() {
	that.conn.EXPECT().Send(mock.Anything).RunAndReturn(func(data []byte) error {
		that.sent = append(that.sent, data)
		return nil
	})
}

func board(size int, marks map[int]entity.Cell) entity.Board {
	out := entity.NewBoard(size)
	for position, cell := range marks {
		out[position] = cell
	}
	return out
}

func TestController_SubmitMove(t *testing.T) {
	t.Run("Optimistic move is replaced by the server board", func(t *testing.T) {
		// Given: a connected 3x3 session with X to play
		h := newHarness(t, 3, Options{})
		h.expectSends()

		// When: X plays the centre
		err := h.controller.SubmitMove(4)

		// Then: the cell is set locally and the move is pending
		require.NoError(t, err)
		snapshot := h.controller.Snapshot()
		assert.Equal(t, board(3, map[int]entity.Cell{4: entity.PlayerX}), snapshot.Board)
		assert.True(t, snapshot.PendingMove)
		require.Len(t, h.sent, 1)
		assert.JSONEq(t, `{"type":"player_move","position":4}`, string(h.sent[0]))

		// When: the server answers with O already played at 0
		h.controller.OnFrame([]byte(`{"type":"game_state","board":["O",null,null,null,"X",null,null,null,null],"current_player":"X","size":3,"ai_used":true}`))

		// Then: the server's board wins and it is X's turn again
		snapshot = h.controller.Snapshot()
		assert.Equal(t, board(3, map[int]entity.Cell{0: entity.PlayerO, 4: entity.PlayerX}), snapshot.Board)
		assert.Equal(t, entity.MarkX, snapshot.CurrentPlayer)
		assert.False(t, snapshot.PendingMove)
		require.NotNil(t, snapshot.AIUsed)
		assert.True(t, *snapshot.AIUsed)
	})

	t.Run("A second move while one is pending is rejected locally", func(t *testing.T) {
		// Given: a move awaiting the server
		h := newHarness(t, 3, Options{})
		h.expectSends()
		require.NoError(t, h.controller.SubmitMove(0))

		// When: another move is submitted
		err := h.controller.SubmitMove(1)

		// Then: it never reaches the network
		require.ErrorIs(t, err, apperror.ErrMovePending)
		assert.Len(t, h.sent, 1)
		assert.Equal(t, entity.Empty, h.controller.Snapshot().Board[1])
		require.Len(t, h.observer.rejections, 1)
		assert.Equal(t, 1, h.observer.rejections[0].position)
	})

	t.Run("Occupied cell and wrong turn are rejected", func(t *testing.T) {
		h := newHarness(t, 3, Options{})
		h.controller.OnFrame([]byte(`{"type":"game_state","board":["X","O",null,null,null,null,null,null,null],"current_player":"O","size":3}`))

		require.ErrorIs(t, h.controller.SubmitMove(1), apperror.ErrCellOccupied)
		require.ErrorIs(t, h.controller.SubmitMove(2), apperror.ErrNotYourTurn)
		assert.Len(t, h.observer.rejections, 2)
	})

	t.Run("No route to the server rejects before any change", func(t *testing.T) {
		// Given: a connection that is still connecting
		h := newHarness(t, 3, Options{})
		h.state = connection.StateConnecting

		// When: a move is submitted
		err := h.controller.SubmitMove(4)

		// Then: nothing was applied
		require.ErrorIs(t, err, apperror.ErrNotConnected)
		assert.True(t, apperror.IsConnection(err))
		assert.Equal(t, entity.NewBoard(3), h.controller.Snapshot().Board)
		assert.False(t, h.controller.Snapshot().PendingMove)
	})

	t.Run("Send failure clears the pending move and keeps the cell", func(t *testing.T) {
		h := newHarness(t, 3, Options{})
		h.conn.EXPECT().Send(mock.Anything).Return(errBrokenPipe).Once()

		err := h.controller.SubmitMove(4)

		require.ErrorIs(t, err, errBrokenPipe)
		snapshot := h.controller.Snapshot()
		assert.False(t, snapshot.PendingMove)
		assert.Equal(t, entity.PlayerX, snapshot.Board[4])
	})

	t.Run("Stateless mode sends the board and the next player", func(t *testing.T) {
		// Given: a stateless session where X already holds 0 and O holds 8
		h := newHarness(t, 3, Options{Mode: ModeStateless})
		h.expectSends()
		h.controller.OnFrame([]byte(`{"type":"game_state","board":["X",null,null,null,null,null,null,null,"O"],"current_player":"X","size":3}`))

		// When: X plays 4
		require.NoError(t, h.controller.SubmitMove(4))

		// Then: the frame carries the optimistic board and O as next player
		require.Len(t, h.sent, 1)
		assert.JSONEq(t,
			`{"type":"player_move","position":4,"board":["X",null,null,null,"X",null,null,null,"O"],"current_player":"O","size":3}`,
			string(h.sent[0]))
	})
}

func TestController_ServerFrames(t *testing.T) {
	t.Run("Tie ends the game and further moves are no-ops", func(t *testing.T) {
		// Given: a pending move
		h := newHarness(t, 3, Options{})
		h.expectSends()
		require.NoError(t, h.controller.SubmitMove(4))

		// When: the server declares a tie
		h.controller.OnFrame([]byte(`{"type":"game_over","winner":"Tie"}`))

		// Then: the game is over with the board kept for display
		snapshot := h.controller.Snapshot()
		assert.True(t, snapshot.GameOver)
		assert.Equal(t, entity.WinnerTie, snapshot.Winner)
		assert.False(t, snapshot.PendingMove)
		assert.Equal(t, entity.PlayerX, snapshot.Board[4])

		// Then: submissions are rejected and nothing is sent
		require.ErrorIs(t, h.controller.SubmitMove(0), apperror.ErrGameFinished)
		require.ErrorIs(t, h.controller.SubmitMove(1), apperror.ErrGameFinished)
		assert.Len(t, h.sent, 1)
		assert.Equal(t, snapshot, h.controller.Snapshot())
	})

	t.Run("Game over carrying a final board replaces it", func(t *testing.T) {
		h := newHarness(t, 3, Options{})

		h.controller.OnFrame([]byte(`{"type":"game_over","winner":"O","board":["O","O","O","X","X",null,null,null,null]}`))

		snapshot := h.controller.Snapshot()
		assert.Equal(t, entity.WinnerO, snapshot.Winner)
		assert.Equal(t, entity.PlayerO, snapshot.Board[2])
	})

	t.Run("Game over with a board of the wrong size keeps the local board", func(t *testing.T) {
		h := newHarness(t, 3, Options{})

		h.controller.OnFrame([]byte(`{"type":"game_over","winner":"X","board":["X","X"]}`))

		snapshot := h.controller.Snapshot()
		assert.True(t, snapshot.GameOver)
		assert.Equal(t, entity.NewBoard(3), snapshot.Board)
	})

	t.Run("Error frame clears the pending move and keeps the optimistic cell", func(t *testing.T) {
		// Given: a pending move at 4
		h := newHarness(t, 3, Options{})
		h.expectSends()
		require.NoError(t, h.controller.SubmitMove(4))

		// When: the server rejects it
		h.controller.OnFrame([]byte(`{"type":"error","message":"invalid move"}`))

		// Then: the error is surfaced and the board is untouched
		snapshot := h.controller.Snapshot()
		assert.False(t, snapshot.PendingMove)
		assert.Equal(t, entity.PlayerX, snapshot.Board[4])
		assert.Equal(t, []string{"invalid move"}, h.observer.errors)
	})

	t.Run("An empty board restarts a finished game", func(t *testing.T) {
		h := newHarness(t, 3, Options{})
		h.controller.OnFrame([]byte(`{"type":"game_over","winner":"X"}`))

		h.controller.OnFrame([]byte(`{"type":"game_state","board":[null,null,null,null,null,null,null,null,null],"current_player":"X","size":3}`))

		snapshot := h.controller.Snapshot()
		assert.False(t, snapshot.GameOver)
		assert.Equal(t, entity.WinnerNone, snapshot.Winner)
	})

	t.Run("Unknown and malformed frames change nothing", func(t *testing.T) {
		h := newHarness(t, 3, Options{})
		before := h.controller.Snapshot()

		h.controller.OnFrame([]byte(`{"type":"chat","text":"hi"}`))
		h.controller.OnFrame([]byte(`{"type":"game_state","board":["X"],"current_player":"O","size":3}`))
		h.controller.OnFrame([]byte(`not json`))

		assert.Equal(t, before, h.controller.Snapshot())
		assert.Empty(t, h.observer.sessions)
	})

	t.Run("Turn alternates across confirmed moves", func(t *testing.T) {
		h := newHarness(t, 3, Options{LocalPlayer: entity.MarkO})

		h.controller.OnFrame([]byte(`{"type":"game_state","board":["X",null,null,null,null,null,null,null,null],"current_player":"O","size":3}`))
		first := h.controller.Snapshot().CurrentPlayer
		h.controller.OnFrame([]byte(`{"type":"game_state","board":["X","O",null,null,null,null,null,null,null],"current_player":"X","size":3}`))
		second := h.controller.Snapshot().CurrentPlayer

		assert.Equal(t, first.Opponent(), second)
	})
}

func TestController_Resize(t *testing.T) {
	t.Run("Resize while a move is pending starts an empty 4x4 board", func(t *testing.T) {
		// Given: a pending move on a connected 3x3 board
		h := newHarness(t, 3, Options{})
		h.expectSends()
		h.conn.EXPECT().SetSize(4).Once()
		require.NoError(t, h.controller.SubmitMove(4))

		// When: the board is resized to 4x4
		err := h.controller.Resize(4)

		// Then: the pending move is discarded and a reset is sent
		require.NoError(t, err)
		snapshot := h.controller.Snapshot()
		assert.False(t, snapshot.PendingMove)
		assert.Equal(t, entity.NewBoard(4), snapshot.Board)
		assert.Len(t, snapshot.Board, 16)
		assert.Equal(t, 4, snapshot.Size)
		assert.Equal(t, entity.MarkX, snapshot.CurrentPlayer)
		assert.Equal(t, uint64(1), snapshot.Epoch)
		require.Len(t, h.sent, 2)
		assert.JSONEq(t, `{"type":"reset_game","size":4}`, string(h.sent[1]))
	})

	t.Run("Frames of the previous board are discarded after a reset", func(t *testing.T) {
		// Given: a reset to 4x4 with the reply to the 3x3 move still in flight
		h := newHarness(t, 3, Options{})
		h.expectSends()
		h.conn.EXPECT().SetSize(4).Once()
		require.NoError(t, h.controller.SubmitMove(4))
		require.NoError(t, h.controller.Resize(4))

		// When: the late 3x3 reply arrives
		h.controller.OnFrame([]byte(`{"type":"game_state","board":["O",null,null,null,"X",null,null,null,null],"current_player":"X","size":3}`))
		h.controller.OnFrame([]byte(`{"type":"game_over","winner":"X"}`))

		// Then: it does not corrupt the new board
		assert.Equal(t, entity.NewBoard(4), h.controller.Snapshot().Board)
		assert.False(t, h.controller.Snapshot().GameOver)

		// When: the server confirms the new board
		h.controller.OnFrame([]byte(`{"type":"game_state","board":[null,null,null,null,null,null,null,null,null,null,null,null,null,null,null,null],"current_player":"X","size":4}`))

		// Then: later frames are applied as usual
		h.controller.OnFrame([]byte(`{"type":"game_over","winner":"Tie"}`))
		assert.Equal(t, entity.WinnerTie, h.controller.Snapshot().Winner)
	})

	t.Run("Moves and server errors go through before the server confirms a reset", func(t *testing.T) {
		// Given: a reset the server never confirms
		h := newHarness(t, 3, Options{})
		h.expectSends()
		h.conn.EXPECT().SetSize(4).Once()
		require.NoError(t, h.controller.Resize(4))

		// When: the user plays right away
		err := h.controller.SubmitMove(0)

		// Then: the move is placed and sent
		require.NoError(t, err)
		assert.Equal(t, entity.PlayerX, h.controller.Snapshot().Board[0])
		require.Len(t, h.sent, 2)
		assert.JSONEq(t, `{"type":"player_move","position":0}`, string(h.sent[1]))

		// When: the server reports an error
		h.controller.OnFrame([]byte(`{"type":"error","message":"reset refused"}`))

		// Then: it is surfaced and the optimistic cell stays
		assert.Equal(t, []string{"reset refused"}, h.observer.errors)
		assert.False(t, h.controller.Snapshot().PendingMove)
		assert.Equal(t, entity.PlayerX, h.controller.Snapshot().Board[0])
	})

	t.Run("The reply to a move on the new board ends the resync", func(t *testing.T) {
		// Given: a reset the server never confirms and a move on the new board
		h := newHarness(t, 3, Options{})
		h.expectSends()
		h.conn.EXPECT().SetSize(4).Once()
		require.NoError(t, h.controller.Resize(4))
		require.NoError(t, h.controller.SubmitMove(0))

		// When: the server answers the move on a 4x4 board
		h.controller.OnFrame([]byte(`{"type":"game_state","board":["X","O",null,null,null,null,null,null,null,null,null,null,null,null,null,null],"current_player":"X","size":4}`))

		// Then: the reply is reconciled
		snapshot := h.controller.Snapshot()
		assert.Equal(t, board(4, map[int]entity.Cell{0: entity.PlayerX, 1: entity.PlayerO}), snapshot.Board)
		assert.False(t, snapshot.PendingMove)
	})

	t.Run("A game_reset confirmation ends the resync", func(t *testing.T) {
		// Given: a new game on a connected 3x3 board with an old reply in flight
		h := newHarness(t, 3, Options{})
		h.expectSends()
		h.conn.EXPECT().SetSize(3).Once()
		require.NoError(t, h.controller.SubmitMove(4))
		require.NoError(t, h.controller.NewGame())

		// When: the old reply and then the server's game_reset arrive
		h.controller.OnFrame([]byte(`{"type":"game_state","board":["O",null,null,null,"X",null,null,null,null],"current_player":"X","size":3}`))
		h.controller.OnFrame([]byte(`{"type":"game_reset","board":[null,null,null,null,null,null,null,null,null]}`))

		// Then: the board stays empty and the next server board is applied
		assert.Equal(t, entity.NewBoard(3), h.controller.Snapshot().Board)
		h.controller.OnFrame([]byte(`{"type":"game_state","board":[null,"O",null,null,null,null,null,null,null],"current_player":"X","size":3}`))
		assert.Equal(t, entity.PlayerO, h.controller.Snapshot().Board[1])
	})

	t.Run("Resize without a connection reopens at the new size", func(t *testing.T) {
		// Given: a failed connection
		h := newHarness(t, 3, Options{})
		h.state = connection.StateFailed
		h.conn.EXPECT().Open(5).Once()

		// When: resizing
		require.NoError(t, h.controller.Resize(5))

		// Then: a fresh 5x5 board is waiting for the new connection
		assert.Len(t, h.controller.Snapshot().Board, 25)
	})

	t.Run("Failed reset falls back to reopening", func(t *testing.T) {
		h := newHarness(t, 3, Options{})
		h.conn.EXPECT().Send(mock.Anything).Return(errBrokenPipe).Once()
		h.conn.EXPECT().Open(4).Once()

		require.NoError(t, h.controller.Resize(4))
	})

	t.Run("Same size then a new size always yields an empty board of the new size", func(t *testing.T) {
		h := newHarness(t, 3, Options{})
		h.expectSends()
		h.conn.EXPECT().SetSize(mock.Anything)

		h.controller.OnFrame([]byte(`{"type":"game_state","board":["X","O",null,null,null,null,null,null,null],"current_player":"X","size":3}`))
		require.NoError(t, h.controller.Resize(3))
		require.NoError(t, h.controller.Resize(6))

		assert.Equal(t, entity.NewBoard(6), h.controller.Snapshot().Board)
		assert.Equal(t, uint64(2), h.controller.Snapshot().Epoch)
	})

	t.Run("Sizes below 3 are rejected", func(t *testing.T) {
		h := newHarness(t, 3, Options{})

		err := h.controller.Resize(2)

		require.ErrorIs(t, err, apperror.ErrInvalidSize)
		assert.Equal(t, 3, h.controller.Snapshot().Size)
	})

	t.Run("New game keeps the size", func(t *testing.T) {
		h := newHarness(t, 4, Options{})
		h.expectSends()
		h.conn.EXPECT().SetSize(4).Once()
		h.controller.OnFrame([]byte(`{"type":"game_over","winner":"O"}`))

		require.NoError(t, h.controller.NewGame())

		snapshot := h.controller.Snapshot()
		assert.False(t, snapshot.GameOver)
		assert.Equal(t, 4, snapshot.Size)
	})
}

func TestController_Connection(t *testing.T) {
	t.Run("Start opens the connection for the board size", func(t *testing.T) {
		h := newHarness(t, 4, Options{})
		h.conn.EXPECT().Open(4).Once()

		h.controller.Start()

		require.Len(t, h.observer.sessions, 1)
	})

	t.Run("A dropped connection clears the pending move", func(t *testing.T) {
		// Given: a pending move
		h := newHarness(t, 3, Options{})
		h.expectSends()
		require.NoError(t, h.controller.SubmitMove(4))

		// When: the transport drops
		h.state = connection.StateReconnecting
		h.controller.OnStateChange(connection.StateConnected, connection.StateReconnecting, io.EOF)

		// Then: the move is no longer pending and observers saw the change
		assert.False(t, h.controller.Snapshot().PendingMove)
		assert.Equal(t, []connection.State{connection.StateReconnecting}, h.observer.connections)
	})

	t.Run("Reconnecting starts from an empty board", func(t *testing.T) {
		h := newHarness(t, 3, Options{})
		h.controller.OnFrame([]byte(`{"type":"game_state","board":["X","O",null,null,null,null,null,null,null],"current_player":"X","size":3}`))

		h.controller.OnStateChange(connection.StateReconnecting, connection.StateConnected, nil)

		assert.Equal(t, entity.NewBoard(3), h.controller.Snapshot().Board)
		assert.Equal(t, uint64(1), h.controller.Snapshot().Epoch)
	})
}

func TestController_HTTP(t *testing.T) {
	t.Run("HTTP mode plays through the fallback", func(t *testing.T) {
		// Given: an HTTP session
		h := newHarness(t, 3, Options{Mode: ModeHTTP})

		// When: X plays 4
		require.NoError(t, h.controller.SubmitMove(4))

		// Then: the fallback gets the optimistic board and O as next player
		require.Len(t, h.fallback.plays, 1)
		play := h.fallback.plays[0]
		assert.Equal(t, board(3, map[int]entity.Cell{4: entity.PlayerX}), play.board)
		assert.Equal(t, entity.MarkO, play.next)
		assert.Equal(t, 3, play.size)

		// When: the fallback answers
		play.done(protocol.GameState{
			Board:         board(3, map[int]entity.Cell{0: entity.PlayerO, 4: entity.PlayerX}),
			CurrentPlayer: entity.MarkX,
			Size:          3,
		}, nil)

		// Then: the answer is reconciled like a socket frame
		snapshot := h.controller.Snapshot()
		assert.Equal(t, entity.PlayerO, snapshot.Board[0])
		assert.False(t, snapshot.PendingMove)
	})

	t.Run("HTTP replies for a previous board are dropped", func(t *testing.T) {
		h := newHarness(t, 3, Options{Mode: ModeHTTP})
		require.NoError(t, h.controller.SubmitMove(4))
		require.NoError(t, h.controller.Resize(4))

		h.fallback.plays[0].done(protocol.GameOver{Winner: entity.WinnerX}, nil)

		snapshot := h.controller.Snapshot()
		assert.False(t, snapshot.GameOver)
		assert.Equal(t, entity.NewBoard(4), snapshot.Board)
	})

	t.Run("HTTP failure clears the pending move", func(t *testing.T) {
		h := newHarness(t, 3, Options{Mode: ModeHTTP})
		require.NoError(t, h.controller.SubmitMove(4))

		h.fallback.plays[0].done(nil, errBrokenPipe)

		assert.False(t, h.controller.Snapshot().PendingMove)
		require.Len(t, h.observer.rejections, 1)
		assert.Equal(t, 4, h.observer.rejections[0].position)
		require.ErrorIs(t, h.observer.rejections[0].err, errBrokenPipe)
	})

	t.Run("Socket mode falls back to HTTP once the connection failed", func(t *testing.T) {
		h := newHarness(t, 3, Options{Fallback: true})
		h.state = connection.StateFailed

		require.NoError(t, h.controller.SubmitMove(4))

		assert.Len(t, h.fallback.plays, 1)
	})

	t.Run("Without fallback a failed connection rejects the move", func(t *testing.T) {
		h := newHarness(t, 3, Options{})
		h.state = connection.StateFailed

		require.ErrorIs(t, h.controller.SubmitMove(4), apperror.ErrNotConnected)
		assert.Empty(t, h.fallback.plays)
	})
}
