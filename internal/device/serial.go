package device

import (
	"bytes"
	"fmt"
	"time"

	serial "go.bug.st/serial"
)

// DefaultBaud is the fixed rate of the Tello Talent serial adapter.
const DefaultBaud = 115200

// Port is the subset of serial.Port used by SerialDevice.
type Port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
	ResetOutputBuffer() error
	Close() error
}

// SerialDevice implements Device using go.bug.st/serial.
type SerialDevice struct {
	port Port
	dev  string
	baud int

	// bytes read past the last returned '\n'
	pending []byte
	chunk   []byte
}

// Open opens dev at baud (DefaultBaud when baud <= 0) and clears any stale
// input and output before returning.
func Open(dev string, baud int) (*SerialDevice, error) {
	if baud <= 0 {
		baud = DefaultBaud
	}
	p, err := serial.Open(dev, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, &ConnectionError{Endpoint: dev, Err: err}
	}
	s := NewSerialDevice(p, dev, baud)
	if err := s.Flush(); err != nil {
		_ = p.Close()
		return nil, &ConnectionError{Endpoint: dev, Err: err}
	}
	return s, nil
}

// NewSerialDevice wraps an already opened port.
func NewSerialDevice(p Port, dev string, baud int) *SerialDevice {
	return &SerialDevice{port: p, dev: dev, baud: baud, chunk: make([]byte, 256)}
}

// Endpoint returns the device path the port was opened on.
func (s *SerialDevice) Endpoint() string { return s.dev }

// Write writes p without appending a terminator.
func (s *SerialDevice) Write(p []byte) error {
	if s.port == nil {
		return ErrNotOpen
	}
	if _, err := s.port.Write(p); err != nil {
		return &IOError{Op: "write", Err: err}
	}
	return nil
}

// ReadLine reads until '\n' or until timeout elapses. On timeout it returns
// the partial bytes received so far with a nil error.
func (s *SerialDevice) ReadLine(timeout time.Duration) ([]byte, error) {
	if s.port == nil {
		return nil, ErrNotOpen
	}
	deadline := time.Now().Add(timeout)
	for {
		if i := bytes.IndexByte(s.pending, '\n'); i >= 0 {
			return s.take(i + 1), nil
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return s.take(len(s.pending)), nil
		}
		if err := s.port.SetReadTimeout(remaining); err != nil {
			return nil, &IOError{Op: "set read timeout", Err: err}
		}
		n, err := s.port.Read(s.chunk)
		if err != nil {
			return s.take(len(s.pending)), &IOError{Op: "read", Err: err}
		}
		if n == 0 {
			// serial.Port reports an elapsed read timeout as (0, nil)
			return s.take(len(s.pending)), nil
		}
		s.pending = append(s.pending, s.chunk[:n]...)
	}
}

func (s *SerialDevice) take(n int) []byte {
	line := make([]byte, n)
	copy(line, s.pending[:n])
	s.pending = s.pending[n:]
	if len(s.pending) == 0 {
		s.pending = nil
	}
	return line
}

// Flush discards everything buffered in both directions.
func (s *SerialDevice) Flush() error {
	if s.port == nil {
		return ErrNotOpen
	}
	s.pending = nil
	if err := s.port.ResetInputBuffer(); err != nil {
		return fmt.Errorf("reset input buffer: %w", err)
	}
	if err := s.port.ResetOutputBuffer(); err != nil {
		return fmt.Errorf("reset output buffer: %w", err)
	}
	return nil
}

// Close closes the underlying serial connection.
func (s *SerialDevice) Close() error {
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	s.pending = nil
	return err
}
