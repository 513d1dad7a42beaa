package connection

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rocketscienceinc/tictactoe-client/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-client/internal/clock"
)

type Transport interface {
	Send(data []byte) error
	Close() error
}

// TransportHandler receives the events of one live transport on the loop goroutine.
type TransportHandler interface {
	OnMessage(data []byte)
	OnClose(err error)
}

// Dialer opens transports for a board size. Dial must not block: the outcome is reported through done,
// on the loop goroutine, and later transport events go to handler.
type Dialer interface {
	Dial(ctx context.Context, size int, handler TransportHandler, done func(Transport, error))
}

// Listener is notified on the loop goroutine.
type Listener interface {
	OnStateChange(from, to State, err error)
	OnFrame(data []byte)
}

type Options struct {
	ConnectTimeout time.Duration
	Policy         RetryPolicy
}

func DefaultOptions() Options {
	return Options{ConnectTimeout: DefaultConnectTimeout, Policy: DefaultRetryPolicy()}
}

// Manager owns the transport of a session. It is not safe for concurrent use: every method and every
// callback it hands out must run on the same goroutine.
type Manager struct {
	logger *slog.Logger
	dialer Dialer
	clock  clock.Clock
	opts   Options

	listener Listener
	status   Status
	size     int

	// generation identifies the current attempt; anything tagged with an older one is stale.
	generation uint64
	retryToken uint64

	transport    Transport
	cancelDial   context.CancelFunc
	connectTimer clock.Timer
	retryTimer   clock.Timer
}

func NewManager(logger *slog.Logger, dialer Dialer, clk clock.Clock, opts Options) *Manager {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = DefaultConnectTimeout
	}
	if opts.Policy.Delay <= 0 {
		opts.Policy.Delay = DefaultReconnectDelay
	}

	return &Manager{
		logger:   logger.With("component", "connection"),
		dialer:   dialer,
		clock:    clk,
		opts:     opts,
		listener: nopListener{},
	}
}

func (that *Manager) SetListener(listener Listener) {
	if listener == nil {
		listener = nopListener{}
	}
	that.listener = listener
}

func (that *Manager) State() State {
	return that.status.State
}

func (that *Manager) Status() Status {
	return that.status
}

// Size is the board dimension of the last Open.
func (that *Manager) Size() int {
	return that.size
}

// SetSize changes the board size used by later dials without touching the live transport.
func (that *Manager) SetSize(size int) {
	that.size = size
}

// Open connects for a board of the given size, closing any existing transport first.
func (that *Manager) Open(size int) {
	log := that.logger.With("method", "Open")
	log.Info("opening connection", "size", size, "state", that.status.State.String())

	that.size = size
	if err := that.teardown(); err != nil {
		log.Warn("failed to close previous transport", "error", err)
	}

	that.apply(EventOpen, nil)
}

// Send writes one frame. It fails with apperror.ErrNotConnected unless the state is Connected.
func (that *Manager) Send(data []byte) error {
	if that.status.State != StateConnected || that.transport == nil {
		return apperror.ErrNotConnected
	}

	if err := that.transport.Send(data); err != nil {
		return fmt.Errorf("failed to send frame: %w", err)
	}

	return nil
}

// Close releases the transport and cancels pending attempts and timers.
func (that *Manager) Close() error {
	err := that.teardown()
	that.apply(EventClose, nil)

	if err != nil {
		return fmt.Errorf("failed to close transport: %w", err)
	}

	return nil
}

func (that *Manager) apply(event Event, cause error) {
	from := that.status

	next, command := Transition(that.opts.Policy, that.status, event)
	if command == CommandDiscard {
		return
	}
	that.status = next

	if command == CommandFail {
		if cause == nil {
			cause = apperror.ErrConnectionFailed
		} else {
			cause = fmt.Errorf("%w: %w", apperror.ErrConnectionFailed, cause)
		}
		that.logger.Error("giving up on connection", "attempts", next.Attempts, "error", cause)
	}

	if from.State != next.State {
		that.listener.OnStateChange(from.State, next.State, cause)
	}

	switch command {
	case CommandDial:
		that.dial()
	case CommandScheduleRetry:
		that.scheduleRetry()
	}
}

func (that *Manager) dial() {
	log := that.logger.With("method", "dial")

	that.generation++
	generation := that.generation

	ctx, cancel := context.WithCancel(context.Background())
	that.cancelDial = cancel
	that.connectTimer = that.clock.AfterFunc(that.opts.ConnectTimeout, func() {
		that.onConnectTimeout(generation)
	})

	log.Debug("dialing", "size", that.size, "generation", generation, "attempts", that.status.Attempts)

	handler := &attemptHandler{manager: that, generation: generation}
	that.dialer.Dial(ctx, that.size, handler, func(transport Transport, err error) {
		that.onDialResult(generation, transport, err)
	})
}

func (that *Manager) onDialResult(generation uint64, transport Transport, err error) {
	log := that.logger.With("method", "onDialResult")

	if generation != that.generation || !that.status.Dialing {
		if transport != nil {
			log.Debug("closing transport of an abandoned attempt", "generation", generation)
			_ = transport.Close()
		}
		return
	}

	that.stopConnectAttempt()

	if err != nil {
		log.Warn("connection attempt failed", "error", err, "attempts", that.status.Attempts)
		that.apply(EventDialFailed, err)
		return
	}

	log.Info("connected", "size", that.size)
	that.transport = transport
	that.apply(EventDialSucceeded, nil)
}

func (that *Manager) onConnectTimeout(generation uint64) {
	if generation != that.generation || !that.status.Dialing {
		return
	}

	that.logger.Warn("connection attempt timed out", "timeout", that.opts.ConnectTimeout.String())

	that.stopConnectAttempt()
	// bump the generation so a transport that still completes is closed on arrival
	that.generation++

	that.apply(EventDialFailed, apperror.ErrConnectTimeout)
}

func (that *Manager) onTransportMessage(generation uint64, data []byte) {
	if generation != that.generation || that.transport == nil {
		return
	}

	that.listener.OnFrame(data)
}

func (that *Manager) onTransportClose(generation uint64, err error) {
	if generation != that.generation || that.transport == nil {
		return
	}

	that.logger.Warn("connection closed unexpectedly", "error", err)

	that.transport = nil
	that.apply(EventDropped, err)
}

func (that *Manager) scheduleRetry() {
	that.retryToken++
	token := that.retryToken

	that.logger.Info("scheduling reconnect", "attempt", that.status.Attempts, "delay", that.opts.Policy.Delay.String())

	that.retryTimer = that.clock.AfterFunc(that.opts.Policy.Delay, func() {
		if token != that.retryToken {
			return
		}
		that.retryTimer = nil
		that.apply(EventRetryDue, nil)
	})
}

func (that *Manager) stopConnectAttempt() {
	if that.connectTimer != nil {
		that.connectTimer.Stop()
		that.connectTimer = nil
	}

	if that.cancelDial != nil {
		that.cancelDial()
		that.cancelDial = nil
	}
}

// teardown invalidates the current attempt and releases everything it holds.
func (that *Manager) teardown() error {
	that.stopConnectAttempt()

	if that.retryTimer != nil {
		that.retryTimer.Stop()
		that.retryTimer = nil
	}
	that.retryToken++
	that.generation++

	if that.transport == nil {
		return nil
	}

	transport := that.transport
	that.transport = nil

	return transport.Close()
}

type attemptHandler struct {
	manager    *Manager
	generation uint64
}

func (that *attemptHandler) OnMessage(data []byte) {
	that.manager.onTransportMessage(that.generation, data)
}

func (that *attemptHandler) OnClose(err error) {
	that.manager.onTransportClose(that.generation, err)
}

type nopListener struct{}

func (nopListener) OnStateChange(State, State, error) {}
func (nopListener) OnFrame([]byte)                    {}
