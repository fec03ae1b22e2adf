package peer

import (
	"errors"
	"fmt"
)

var (
	ErrSignalingClosed   = errors.New("signaling connection closed")
	ErrSignalingError    = errors.New("signaling server error")
	ErrTimeout           = errors.New("timeout")
	ErrRoomUnavailable   = errors.New("room not found or no offer published yet")
	ErrConnectionFailed  = errors.New("peer connection failed")
	ErrUnexpectedMessage = errors.New("unexpected data channel message")
	ErrClientClosed      = errors.New("client closed")
)

// Error records which step of a session failed.
type Error struct {
	Op      string
	Err     error
	Details string
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(op string, err error) *Error {
	return &Error{Op: op, Err: err}
}

func WrapError(op string, err error, details string) *Error {
	return &Error{Op: op, Err: err, Details: details}
}
