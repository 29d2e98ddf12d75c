package protocol

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrTimeout matches every TimeoutError via errors.Is.
	ErrTimeout = errors.New("no usable reply before deadline")
	// ErrNotConnected is returned when a command is issued before the handshake completed.
	ErrNotConnected = errors.New("session not connected")
	// ErrClosed is returned by a session after Close.
	ErrClosed = errors.New("session closed")
)

// TimeoutError reports that no usable reply arrived within the deadline.
type TimeoutError struct {
	Command  string
	Attempts int
	// Partial holds unterminated bytes received before the deadline, if any.
	Partial []byte
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("%s: timeout", e.Command)
	if e.Attempts > 1 {
		msg += " after " + strconv.Itoa(e.Attempts) + " attempts"
	}
	if len(e.Partial) > 0 {
		msg += fmt.Sprintf(" (partial %q)", e.Partial)
	}
	return msg
}

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// UnexpectedError reports a reply that does not carry the expected token.
type UnexpectedError struct {
	Command  string
	Expected string
	Response []byte
}

func (e *UnexpectedError) Error() string {
	if e.Expected == "" {
		return fmt.Sprintf("%s: unexpected reply %q", e.Command, e.Response)
	}
	return fmt.Sprintf("%s: expected %q, got %q", e.Command, e.Expected, e.Response)
}

// ProtocolError reports unrecognized data during the handshake.
type ProtocolError struct {
	Response []byte
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("handshake: unrecognized reply %q", e.Response)
}
