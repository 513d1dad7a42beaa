// Package client wires the synchronization core into one object that is safe to call from any goroutine.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/tictactoe-client/internal/clock"
	"github.com/rocketscienceinc/tictactoe-client/internal/connection"
	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
	"github.com/rocketscienceinc/tictactoe-client/internal/eventloop"
	"github.com/rocketscienceinc/tictactoe-client/internal/fallback"
	"github.com/rocketscienceinc/tictactoe-client/internal/protocol"
	"github.com/rocketscienceinc/tictactoe-client/internal/session"
	"github.com/rocketscienceinc/tictactoe-client/internal/transport/websocket"
)

var ErrNoHTTPEndpoint = errors.New("no http endpoint configured")

type Options struct {
	Size        int
	Mode        session.Mode
	LocalPlayer entity.Mark
	Fallback    bool

	SocketURL string
	// HTTPURL may be empty when neither HTTP mode nor fallback is used.
	HTTPURL string

	ConnectTimeout       time.Duration
	ReconnectDelay       time.Duration
	MaxReconnectAttempts int
	WriteTimeout         time.Duration

	// ClientID is generated when empty.
	ClientID string
}

type Client struct {
	logger     *slog.Logger
	id         string
	loop       *eventloop.Loop
	manager    *connection.Manager
	controller *session.Controller
	http       *fallback.Client
}

func New(logger *slog.Logger, opts Options, observers ...session.Observer) *Client {
	id := opts.ClientID
	if id == "" {
		id = uuid.NewString()
	}
	logger = logger.With("client_id", id)

	loop := eventloop.New()

	dialer := websocket.NewDialer(logger, opts.SocketURL, id, loop.Enqueue, opts.WriteTimeout)
	manager := connection.NewManager(logger, dialer, clock.NewReal(loop.Enqueue), connection.Options{
		ConnectTimeout: opts.ConnectTimeout,
		Policy: connection.RetryPolicy{
			MaxAttempts: opts.MaxReconnectAttempts,
			Delay:       opts.ReconnectDelay,
		},
	})

	router := protocol.NewRouter(logger)
	sessionOpts := session.Options{Mode: opts.Mode, LocalPlayer: opts.LocalPlayer, Fallback: opts.Fallback}

	var (
		httpClient *fallback.Client
		controller *session.Controller
	)
	if opts.HTTPURL != "" {
		httpClient = fallback.NewClient(logger, opts.HTTPURL, nil)
		player := fallback.NewPlayer(logger, httpClient, loop.Enqueue, 0)
		controller = session.NewController(logger, manager, router, player, opts.Size, sessionOpts)
	} else {
		controller = session.NewController(logger, manager, router, nil, opts.Size, sessionOpts)
	}

	manager.SetListener(controller)
	for _, observer := range observers {
		controller.AddObserver(observer)
	}

	return &Client{
		logger:     logger.With("component", "client"),
		id:         id,
		loop:       loop,
		manager:    manager,
		controller: controller,
		http:       httpClient,
	}
}

func (that *Client) ID() string {
	return that.id
}

// Run starts the session and processes events until ctx is cancelled.
func (that *Client) Run(ctx context.Context) error {
	log := that.logger.With("method", "Run")
	log.Info("starting session", "mode", string(that.controller.Mode()))

	that.loop.Post(that.controller.Start)

	if err := that.loop.Run(ctx); err != nil {
		return fmt.Errorf("event loop failed: %w", err)
	}

	// the loop is gone, nothing else touches the manager anymore
	if err := that.manager.Close(); err != nil {
		log.Warn("failed to close connection", "error", err)
	}

	log.Info("session stopped")

	return nil
}

func (that *Client) SubmitMove(ctx context.Context, position int) error {
	return that.loop.Call(ctx, func() error {
		return that.controller.SubmitMove(position)
	})
}

func (that *Client) Resize(ctx context.Context, size int) error {
	return that.loop.Call(ctx, func() error {
		return that.controller.Resize(size)
	})
}

func (that *Client) NewGame(ctx context.Context) error {
	return that.loop.Call(ctx, that.controller.NewGame)
}

func (that *Client) Snapshot(ctx context.Context) (entity.Session, error) {
	var snapshot entity.Session

	err := that.loop.Call(ctx, func() error {
		snapshot = that.controller.Snapshot()
		return nil
	})

	return snapshot, err
}

func (that *Client) ConnectionState(ctx context.Context) (connection.State, error) {
	var state connection.State

	err := that.loop.Call(ctx, func() error {
		state = that.manager.State()
		return nil
	})

	return state, err
}

// AIStatus asks the server whether its model-backed opponent is available. It does not use the loop.
func (that *Client) AIStatus(ctx context.Context) (*fallback.AIStatus, error) {
	if that.http == nil {
		return nil, ErrNoHTTPEndpoint
	}

	return that.http.AIStatus(ctx)
}
