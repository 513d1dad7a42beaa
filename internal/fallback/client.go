// Package fallback talks to the stateless HTTP endpoints of the game server.
package fallback

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
)

const defaultRequestTimeout = 10 * time.Second

var ErrUnexpectedStatus = errors.New("unexpected http status")

type AIStatus struct {
	Available bool   `json:"ollama_available"`
	Model     string `json:"model,omitempty"`
}

// MoveResult is the server's answer to make_move. Error is set when the server had no move to make.
type MoveResult struct {
	Board    entity.Board `json:"board"`
	Position *int         `json:"position,omitempty"`
	Player   string       `json:"player,omitempty"`
	Error    string       `json:"error,omitempty"`
}

type makeMoveRequest struct {
	Board         entity.Board `json:"board"`
	CurrentPlayer entity.Mark  `json:"current_player"`
}

type checkWinnerRequest struct {
	Board entity.Board `json:"board"`
}

type Client struct {
	logger  *slog.Logger
	baseURL string
	http    *http.Client
}

func NewClient(logger *slog.Logger, baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}

	return &Client{
		logger:  logger.With("component", "fallback"),
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// MakeMove asks the server to play for current on board.
func (that *Client) MakeMove(ctx context.Context, board entity.Board, current entity.Mark) (*MoveResult, error) {
	var result MoveResult
	if err := that.do(ctx, http.MethodPost, "/make_move", makeMoveRequest{Board: board, CurrentPlayer: current}, &result); err != nil {
		return nil, fmt.Errorf("make move: %w", err)
	}

	return &result, nil
}

// CheckWinner returns WinnerNone while the game is still running.
func (that *Client) CheckWinner(ctx context.Context, board entity.Board) (entity.Winner, error) {
	var raw *string
	if err := that.do(ctx, http.MethodPost, "/check_winner", checkWinnerRequest{Board: board}, &raw); err != nil {
		return entity.WinnerNone, fmt.Errorf("check winner: %w", err)
	}

	if raw == nil || *raw == "" {
		return entity.WinnerNone, nil
	}

	winner, err := entity.ParseWinner(*raw)
	if err != nil {
		return entity.WinnerNone, fmt.Errorf("check winner: %w", err)
	}

	return winner, nil
}

func (that *Client) AIStatus(ctx context.Context) (*AIStatus, error) {
	var status AIStatus
	if err := that.do(ctx, http.MethodGet, "/ollama-status", nil, &status); err != nil {
		return nil, fmt.Errorf("ai status: %w", err)
	}

	return &status, nil
}

func (that *Client) do(ctx context.Context, method, path string, body, out any) error {
	log := that.logger.With("method", "do", "path", path)

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, that.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := that.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Warn("request failed", "status", resp.StatusCode)
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	log.Debug("request done")

	return nil
}
