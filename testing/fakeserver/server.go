// Package fakeserver is a scripted game server for transport and end-to-end tests.
package fakeserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
	"github.com/rocketscienceinc/tictactoe-client/internal/tictactoe"
)

type inbound struct {
	Type          string       `json:"type"`
	Position      int          `json:"position"`
	Board         entity.Board `json:"board"`
	CurrentPlayer string       `json:"current_player"`
	Size          int          `json:"size"`
}

type gameState struct {
	Type          string       `json:"type"`
	Board         entity.Board `json:"board"`
	CurrentPlayer entity.Mark  `json:"current_player"`
	Size          int          `json:"size"`
	AIUsed        bool         `json:"ai_used"`
}

type gameOver struct {
	Type   string        `json:"type"`
	Winner entity.Winner `json:"winner"`
	Board  entity.Board  `json:"board"`
	AIUsed bool          `json:"ai_used"`
}

type errorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type Server struct {
	*httptest.Server

	upgrader websocket.Upgrader

	mu       sync.Mutex
	conns    map[*websocket.Conn]struct{}
	reject   bool
	connects []int
	received []inbound
	clients  []string
	ai       AIStatus
}

type AIStatus struct {
	Available bool   `json:"ollama_available"`
	Model     string `json:"model,omitempty"`
}

// New starts a server that is closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()

	server := &Server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		conns: make(map[*websocket.Conn]struct{}),
	}

	router := mux.NewRouter()
	router.HandleFunc("/game", server.handleGame).Methods(http.MethodGet)
	router.HandleFunc("/make_move", server.handleMakeMove).Methods(http.MethodPost)
	router.HandleFunc("/check_winner", server.handleCheckWinner).Methods(http.MethodPost)
	router.HandleFunc("/ollama-status", server.handleStatus).Methods(http.MethodGet)

	server.Server = httptest.NewServer(router)
	t.Cleanup(func() {
		server.DropConnections()
		server.Close()
	})

	return server
}

// SocketURL is the websocket endpoint without the size query.
func (that *Server) SocketURL() string {
	return "ws" + strings.TrimPrefix(that.URL, "http") + "/game"
}

// Reject makes every new websocket handshake fail with 503.
func (that *Server) Reject(reject bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.reject = reject
}

func (that *Server) SetAIStatus(status AIStatus) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.ai = status
}

// DropConnections closes every open websocket from the server side.
func (that *Server) DropConnections() {
	that.mu.Lock()
	defer that.mu.Unlock()

	for conn := range that.conns {
		_ = conn.Close()
		delete(that.conns, conn)
	}
}

// Connects lists the board size of every accepted websocket, in order.
func (that *Server) Connects() []int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return append([]int(nil), that.connects...)
}

// ClientIDs lists the client_id query of every accepted websocket.
func (that *Server) ClientIDs() []string {
	that.mu.Lock()
	defer that.mu.Unlock()

	return append([]string(nil), that.clients...)
}

// Received lists the type of every frame read from clients.
func (that *Server) Received() []string {
	that.mu.Lock()
	defer that.mu.Unlock()

	types := make([]string, 0, len(that.received))
	for _, frame := range that.received {
		types = append(types, frame.Type)
	}

	return types
}

func (that *Server) handleGame(w http.ResponseWriter, r *http.Request) {
	size := entity.MinBoardSize
	if raw := r.URL.Query().Get("size"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < entity.MinBoardSize {
			http.Error(w, "invalid size", http.StatusBadRequest)
			return
		}
		size = parsed
	}

	that.mu.Lock()
	reject := that.reject
	that.mu.Unlock()
	if reject {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := that.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	that.mu.Lock()
	that.conns[conn] = struct{}{}
	that.connects = append(that.connects, size)
	that.clients = append(that.clients, r.URL.Query().Get("client_id"))
	that.mu.Unlock()

	board := entity.NewBoard(size)
	if err := conn.WriteJSON(gameState{Type: "game_state", Board: board, CurrentPlayer: entity.MarkX, Size: size}); err != nil {
		return
	}

	for {
		var msg inbound
		if err := conn.ReadJSON(&msg); err != nil {
			that.mu.Lock()
			delete(that.conns, conn)
			that.mu.Unlock()
			return
		}

		that.mu.Lock()
		that.received = append(that.received, msg)
		that.mu.Unlock()

		var reply any
		switch msg.Type {
		case "player_move":
			if msg.Board.Fits(msg.Size) && msg.Board.InRange(msg.Position) {
				board, size = msg.Board.Clone(), msg.Size
				// stateless clients already placed their mark
				board[msg.Position] = entity.Empty
			}
			board, reply = that.play(board, size, msg.Position)
		case "reset_game":
			if msg.Size >= entity.MinBoardSize {
				size = msg.Size
			}
			board = entity.NewBoard(size)
			reply = gameState{Type: "game_state", Board: board, CurrentPlayer: entity.MarkX, Size: size}
		default:
			reply = errorFrame{Type: "error", Message: "unknown message type"}
		}

		if err := conn.WriteJSON(reply); err != nil {
			return
		}
	}
}

// play places X at position, answers with O and reports the outcome.
func (that *Server) play(board entity.Board, size, position int) (entity.Board, any) {
	board = board.Clone()

	result, err := tictactoe.MakeTurn(board, size, entity.MarkX, position)
	if err != nil {
		return board, errorFrame{Type: "error", Message: "invalid move"}
	}
	if result != entity.WinnerNone {
		return board, gameOver{Type: "game_over", Winner: result, Board: board}
	}

	if result, _ = tictactoe.MakeTurn(board, size, entity.MarkO, tictactoe.FirstEmpty(board)); result != entity.WinnerNone {
		return board, gameOver{Type: "game_over", Winner: result, Board: board, AIUsed: true}
	}

	return board, gameState{Type: "game_state", Board: board, CurrentPlayer: entity.MarkX, Size: size, AIUsed: true}
}

func (that *Server) handleMakeMove(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Board         entity.Board `json:"board"`
		CurrentPlayer string       `json:"current_player"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	position := tictactoe.FirstEmpty(req.Board)
	if position < 0 {
		writeJSON(w, map[string]string{"error": "no moves available"})
		return
	}

	player := req.CurrentPlayer
	if player == "" {
		player = string(entity.MarkO)
	}

	board := req.Board.Clone()
	board[position] = entity.Cell(player)

	writeJSON(w, map[string]any{"board": board, "position": position, "player": player})
}

func (that *Server) handleCheckWinner(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Board entity.Board `json:"board"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	size := 0
	for size*size < len(req.Board) {
		size++
	}
	if size*size != len(req.Board) || size < entity.MinBoardSize {
		http.Error(w, "board is not square", http.StatusBadRequest)
		return
	}

	result := tictactoe.CheckWinner(req.Board, size)
	if result == entity.WinnerNone {
		writeJSON(w, nil)
		return
	}

	writeJSON(w, result)
}

func (that *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	that.mu.Lock()
	status := that.ai
	that.mu.Unlock()

	writeJSON(w, status)
}

func writeJSON(w http.ResponseWriter, value any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(value)
}
