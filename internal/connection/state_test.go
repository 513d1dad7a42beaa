package connection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTransition(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, Delay: 2 * time.Second}

	tests := []struct {
		name        string
		status      Status
		event       Event
		wantStatus  Status
		wantCommand Command
	}{
		{
			name:        "open from disconnected dials",
			status:      Status{State: StateDisconnected},
			event:       EventOpen,
			wantStatus:  Status{State: StateConnecting, Dialing: true},
			wantCommand: CommandDial,
		},
		{
			name:        "open from failed starts over",
			status:      Status{State: StateFailed, Attempts: 3},
			event:       EventOpen,
			wantStatus:  Status{State: StateConnecting, Dialing: true},
			wantCommand: CommandDial,
		},
		{
			name:        "successful dial connects and resets attempts",
			status:      Status{State: StateReconnecting, Attempts: 2, Dialing: true},
			event:       EventDialSucceeded,
			wantStatus:  Status{State: StateConnected},
			wantCommand: CommandNone,
		},
		{
			name:        "failed first dial schedules a retry",
			status:      Status{State: StateConnecting, Dialing: true},
			event:       EventDialFailed,
			wantStatus:  Status{State: StateReconnecting, Attempts: 1},
			wantCommand: CommandScheduleRetry,
		},
		{
			name:        "drop while connected schedules a retry",
			status:      Status{State: StateConnected},
			event:       EventDropped,
			wantStatus:  Status{State: StateReconnecting, Attempts: 1},
			wantCommand: CommandScheduleRetry,
		},
		{
			name:        "retry timer dials again",
			status:      Status{State: StateReconnecting, Attempts: 1},
			event:       EventRetryDue,
			wantStatus:  Status{State: StateReconnecting, Attempts: 1, Dialing: true},
			wantCommand: CommandDial,
		},
		{
			name:        "failing the last allowed attempt gives up",
			status:      Status{State: StateReconnecting, Attempts: 3, Dialing: true},
			event:       EventDialFailed,
			wantStatus:  Status{State: StateFailed, Attempts: 3},
			wantCommand: CommandFail,
		},
		{
			name:        "failing an attempt below the ceiling retries",
			status:      Status{State: StateReconnecting, Attempts: 2, Dialing: true},
			event:       EventDialFailed,
			wantStatus:  Status{State: StateReconnecting, Attempts: 3},
			wantCommand: CommandScheduleRetry,
		},
		{
			name:        "dial result without a dial in flight is stale",
			status:      Status{State: StateConnected},
			event:       EventDialSucceeded,
			wantStatus:  Status{State: StateConnected},
			wantCommand: CommandDiscard,
		},
		{
			name:        "retry timer after failure is stale",
			status:      Status{State: StateFailed, Attempts: 3},
			event:       EventRetryDue,
			wantStatus:  Status{State: StateFailed, Attempts: 3},
			wantCommand: CommandDiscard,
		},
		{
			name:        "drop while reconnecting is stale",
			status:      Status{State: StateReconnecting, Attempts: 1},
			event:       EventDropped,
			wantStatus:  Status{State: StateReconnecting, Attempts: 1},
			wantCommand: CommandDiscard,
		},
		{
			name:        "close always disconnects",
			status:      Status{State: StateReconnecting, Attempts: 2, Dialing: true},
			event:       EventClose,
			wantStatus:  Status{State: StateDisconnected},
			wantCommand: CommandNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, command := Transition(policy, tt.status, tt.event)

			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCommand, command)
		})
	}
}

func TestTransition_ExhaustsAfterCeiling(t *testing.T) {
	// Given: a connected session and a ceiling of 3
	policy := RetryPolicy{MaxAttempts: 3, Delay: 2 * time.Second}
	status := Status{State: StateConnected}

	// When: the connection drops and every retry fails
	status, _ = Transition(policy, status, EventDropped)
	dials := 0
	for status.State == StateReconnecting {
		var command Command
		status, command = Transition(policy, status, EventRetryDue)
		if command == CommandDial {
			dials++
		}
		status, _ = Transition(policy, status, EventDialFailed)
	}

	// Then: exactly three reconnect dials happened before failing
	assert.Equal(t, 3, dials)
	assert.Equal(t, StateFailed, status.State)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "reconnecting", StateReconnecting.String())
	assert.Equal(t, "unknown", State(42).String())
}
