package websocket

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-client/internal/connection"
)

const (
	// Time allowed to write a message to the peer.
	defaultWriteWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum frame size accepted from the server.
	maxMessageSize = 64 * 1024
)

// Dialer opens game sockets at baseURL?size=N. Every callback it produces is handed to post.
type Dialer struct {
	logger    *slog.Logger
	baseURL   string
	clientID  string
	post      func(func())
	writeWait time.Duration
	dialer    *websocket.Dialer
}

func NewDialer(logger *slog.Logger, baseURL, clientID string, post func(func()), writeWait time.Duration) *Dialer {
	if writeWait <= 0 {
		writeWait = defaultWriteWait
	}

	return &Dialer{
		logger:    logger.With("component", "websocket"),
		baseURL:   baseURL,
		clientID:  clientID,
		post:      post,
		writeWait: writeWait,
		dialer: &websocket.Dialer{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Dial returns immediately; the handshake runs on its own goroutine until ctx is done.
func (that *Dialer) Dial(ctx context.Context, size int, handler connection.TransportHandler, done func(connection.Transport, error)) {
	log := that.logger.With("method", "Dial")

	target, err := that.target(size)
	if err != nil {
		// never post from the caller, it is the loop goroutine
		go that.post(func() { done(nil, err) })
		return
	}

	go func() {
		conn, resp, err := that.dialer.DialContext(ctx, target, nil)
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		if err != nil {
			log.Debug("handshake failed", "url", target, "error", err)
			that.post(func() { done(nil, fmt.Errorf("failed to dial %s: %w", target, err)) })
			return
		}

		transport := newTransport(that.logger, conn, that.writeWait)

		// done is queued before the first frame so the manager installs the transport first
		that.post(func() { done(transport, nil) })
		transport.start(handler, that.post)
	}()
}

func (that *Dialer) target(size int) (string, error) {
	parsed, err := url.Parse(that.baseURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse socket url: %w", err)
	}

	query := parsed.Query()
	query.Set("size", strconv.Itoa(size))
	if that.clientID != "" {
		query.Set("client_id", that.clientID)
	}
	parsed.RawQuery = query.Encode()

	return parsed.String(), nil
}
