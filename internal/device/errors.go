package device

import (
	"errors"
	"fmt"
)

// ErrNotOpen is returned by operations on a closed device.
var ErrNotOpen = errors.New("serial port not open")

// ConnectionError reports that an endpoint could not be opened.
type ConnectionError struct {
	Endpoint string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("open serial %s failed: %v", e.Endpoint, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// IOError reports a failed read or write on an open channel.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("serial %s failed: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
