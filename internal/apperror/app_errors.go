package apperror

import (
	"errors"
	"fmt"
)

// move validation, never sent to the server.
var (
	ErrGameFinished = errors.New("game is already finished")
	ErrMovePending  = errors.New("a move is already awaiting the server")
	ErrNotYourTurn  = errors.New("it's not your turn")
	ErrCellOccupied = errors.New("cell is already occupied")
	ErrInvalidCell  = errors.New("invalid cell index")
	ErrInvalidSize  = errors.New("invalid board size")
)

// connection lifecycle.
var (
	ErrNotConnected     = errors.New("not connected")
	ErrConnectTimeout   = errors.New("connect timeout")
	ErrConnectionFailed = errors.New("connection failed, reconnect attempts exhausted")
)

// ProtocolError is an error delivered by the server in an error frame. Observers receive it through
// ServerError and match it with errors.As.
type ProtocolError struct {
	Message string
}

func (that *ProtocolError) Error() string {
	return fmt.Sprintf("server error: %s", that.Message)
}

// IsValidation reports whether err is a locally rejected move.
func IsValidation(err error) bool {
	for _, target := range []error{ErrGameFinished, ErrMovePending, ErrNotYourTurn, ErrCellOccupied, ErrInvalidCell, ErrInvalidSize} {
		if errors.Is(err, target) {
			return true
		}
	}

	return false
}

// IsConnection reports whether err comes from the transport lifecycle.
func IsConnection(err error) bool {
	return errors.Is(err, ErrNotConnected) || errors.Is(err, ErrConnectTimeout) || errors.Is(err, ErrConnectionFailed)
}
