// Package device defines the byte-oriented, line-delimited channel that the
// protocol engine talks through, and its go.bug.st/serial implementation.
package device

import "time"

// Device is a line-delimited byte channel to the drone controller adapter.
//
// Write sends raw bytes; it never appends a terminator, framing belongs to the
// caller. ReadLine never reports a timeout as an error: when the deadline
// elapses it returns whatever arrived (possibly nothing, possibly a line
// without its '\n') and a nil error, leaving classification to the caller.
type Device interface {
	// Write writes p as-is.
	Write(p []byte) error

	// ReadLine blocks until '\n' is seen or timeout elapses.
	// A timeout <= 0 returns only what is already buffered.
	ReadLine(timeout time.Duration) ([]byte, error)

	// Flush discards buffered unread input and unsent output.
	Flush() error

	// Close releases the channel. Calling it more than once is a no-op.
	Close() error
}
