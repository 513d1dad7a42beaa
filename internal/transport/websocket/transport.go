package websocket

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-client/internal/connection"
)

var ErrClosed = errors.New("transport closed")

// Transport is one live game socket. Send is meant for a single writer, Close may be called from anywhere.
type Transport struct {
	logger    *slog.Logger
	conn      *websocket.Conn
	writeWait time.Duration

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    chan struct{}
}

func newTransport(logger *slog.Logger, conn *websocket.Conn, writeWait time.Duration) *Transport {
	return &Transport{
		logger:    logger,
		conn:      conn,
		writeWait: writeWait,
		closed:    make(chan struct{}),
	}
}

func (that *Transport) Send(data []byte) error {
	select {
	case <-that.closed:
		return ErrClosed
	default:
	}

	that.writeMu.Lock()
	defer that.writeMu.Unlock()

	if err := that.conn.SetWriteDeadline(time.Now().Add(that.writeWait)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}

	if err := that.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}

// Close sends a close frame and releases the socket. Events of a locally closed transport are not reported.
func (that *Transport) Close() error {
	var err error

	that.closeOnce.Do(func() {
		close(that.closed)

		message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = that.conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(that.writeWait))

		err = that.conn.Close()
	})

	return err
}

func (that *Transport) start(handler connection.TransportHandler, post func(func())) {
	go that.pingPump()
	that.readPump(handler, post)
}

func (that *Transport) readPump(handler connection.TransportHandler, post func(func())) {
	log := that.logger.With("method", "readPump")

	that.conn.SetReadLimit(maxMessageSize)
	_ = that.conn.SetReadDeadline(time.Now().Add(pongWait))
	that.conn.SetPongHandler(func(string) error {
		return that.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, data, err := that.conn.ReadMessage()
		if err != nil {
			select {
			case <-that.closed:
				return
			default:
			}

			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("socket closed unexpectedly", "error", err)
			}

			_ = that.Close()
			post(func() { handler.OnClose(err) })

			return
		}

		if messageType != websocket.TextMessage {
			continue
		}

		post(func() { handler.OnMessage(data) })
	}
}

func (that *Transport) pingPump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-that.closed:
			return
		case <-ticker.C:
			if err := that.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(that.writeWait)); err != nil {
				that.logger.Debug("ping failed", "error", err)
				return
			}
		}
	}
}
