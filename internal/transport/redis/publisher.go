// Package redis publishes session events on a Redis channel for out-of-process renderers.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/tictactoe-client/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-client/internal/connection"
	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
)

const (
	DefaultQueueSize = 128
	publishTimeout   = 2 * time.Second
)

// event names carried in Envelope.Event.
const (
	EventSession      = "session"
	EventMoveRejected = "move_rejected"
	EventServerError  = "server_error"
	EventConnection   = "connection"
)

type Envelope struct {
	Event    string          `json:"event"`
	ClientID string          `json:"client_id"`
	At       time.Time       `json:"at"`
	Session  *entity.Session `json:"session,omitempty"`
	Position *int            `json:"position,omitempty"`
	State    string          `json:"state,omitempty"`
	Message  string          `json:"message,omitempty"`
	Error    string          `json:"error,omitempty"`
}

type redisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

type snapshotStore interface {
	Save(ctx context.Context, clientID string, session entity.Session) error
}

// Publisher is a session observer. Callbacks only enqueue and Run does the network work.
// When the queue is full the oldest envelope is dropped.
type Publisher struct {
	logger    *slog.Logger
	client    redisPublisher
	channel   string
	clientID  string
	queue     chan Envelope
	dropped   atomic.Int64
	now       func() time.Time
	snapshots snapshotStore
}

func NewPublisher(logger *slog.Logger, client redisPublisher, channel, clientID string, queueSize int) *Publisher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	return &Publisher{
		logger:   logger.With("component", "publisher"),
		client:   client,
		channel:  channel,
		clientID: clientID,
		queue:    make(chan Envelope, queueSize),
		now:      time.Now,
	}
}

// SetSnapshots keeps the latest session of this client in store, so a renderer that subscribes late
// can start from it. Call before Run.
func (that *Publisher) SetSnapshots(store snapshotStore) {
	that.snapshots = store
}

// Run publishes queued envelopes until ctx is done.
func (that *Publisher) Run(ctx context.Context) error {
	log := that.logger.With("method", "Run")
	log.Info("publishing session events", "channel", that.channel)

	for {
		select {
		case <-ctx.Done():
			return nil
		case envelope := <-that.queue:
			if err := that.saveSnapshot(ctx, envelope); err != nil {
				log.Warn("failed to save snapshot", "error", err)
			}
			if err := that.publish(ctx, envelope); err != nil {
				log.Warn("failed to publish", "event", envelope.Event, "error", err)
			}
		}
	}
}

// Dropped is the number of envelopes discarded because the queue was full.
func (that *Publisher) Dropped() int64 {
	return that.dropped.Load()
}

func (that *Publisher) SessionChanged(session entity.Session) {
	that.enqueue(Envelope{Event: EventSession, Session: &session})
}

func (that *Publisher) MoveRejected(position int, err error) {
	that.enqueue(Envelope{Event: EventMoveRejected, Position: &position, Error: errorString(err)})
}

func (that *Publisher) ServerError(err error) {
	envelope := Envelope{Event: EventServerError, Error: errorString(err)}

	var protoErr *apperror.ProtocolError
	if errors.As(err, &protoErr) {
		envelope.Message = protoErr.Message
	}

	that.enqueue(envelope)
}

func (that *Publisher) ConnectionChanged(state connection.State, err error) {
	that.enqueue(Envelope{Event: EventConnection, State: state.String(), Error: errorString(err)})
}

func (that *Publisher) enqueue(envelope Envelope) {
	envelope.ClientID = that.clientID
	envelope.At = that.now().UTC()

	for {
		select {
		case that.queue <- envelope:
			return
		default:
		}

		select {
		case <-that.queue:
			that.dropped.Add(1)
		default:
		}
	}
}

func (that *Publisher) publish(ctx context.Context, envelope Envelope) error {
	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := that.client.Publish(ctx, that.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", that.channel, err)
	}

	return nil
}

func (that *Publisher) saveSnapshot(ctx context.Context, envelope Envelope) error {
	if that.snapshots == nil || envelope.Session == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return that.snapshots.Save(ctx, envelope.ClientID, *envelope.Session)
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
