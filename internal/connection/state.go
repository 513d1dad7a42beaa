package connection

import "time"

type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateFailed
)

func (that State) String() string {
	switch that {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

const (
	DefaultConnectTimeout       = 5 * time.Second
	DefaultReconnectDelay       = 2 * time.Second
	DefaultMaxReconnectAttempts = 3
)

// RetryPolicy retries at a fixed interval up to MaxAttempts times.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: DefaultMaxReconnectAttempts, Delay: DefaultReconnectDelay}
}

// Status is the manager's position in the lifecycle. Attempts counts reconnect attempts spent since the
// last successful connect; Dialing is set while a dial is in flight.
type Status struct {
	State    State
	Attempts int
	Dialing  bool
}

type Event int

const (
	EventOpen Event = iota
	EventDialSucceeded
	EventDialFailed
	EventDropped
	EventRetryDue
	EventClose
)

type Command int

const (
	CommandNone Command = iota
	// CommandDial starts a new attempt.
	CommandDial
	// CommandScheduleRetry arms the reconnect timer for policy.Delay.
	CommandScheduleRetry
	// CommandFail reports that the attempts are exhausted.
	CommandFail
	// CommandDiscard means the event does not belong to the current attempt.
	CommandDiscard
)

// Transition is the whole retry policy as a pure function.
func Transition(policy RetryPolicy, status Status, event Event) (Status, Command) {
	switch event {
	case EventOpen:
		return Status{State: StateConnecting, Dialing: true}, CommandDial

	case EventDialSucceeded:
		if !status.Dialing {
			return status, CommandDiscard
		}
		return Status{State: StateConnected}, CommandNone

	case EventDialFailed:
		if !status.Dialing {
			return status, CommandDiscard
		}
		return retryOrFail(policy, status)

	case EventDropped:
		if status.State != StateConnected {
			return status, CommandDiscard
		}
		return retryOrFail(policy, status)

	case EventRetryDue:
		if status.State != StateReconnecting || status.Dialing {
			return status, CommandDiscard
		}
		status.Dialing = true
		return status, CommandDial

	case EventClose:
		return Status{State: StateDisconnected}, CommandNone
	}

	return status, CommandDiscard
}

func retryOrFail(policy RetryPolicy, status Status) (Status, Command) {
	if status.Attempts < policy.MaxAttempts {
		return Status{State: StateReconnecting, Attempts: status.Attempts + 1}, CommandScheduleRetry
	}

	return Status{State: StateFailed, Attempts: status.Attempts}, CommandFail
}
