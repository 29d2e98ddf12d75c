package device

import (
	"time"

	serial "go.bug.st/serial"
)

// OpenRaw opens a raw serial.Port with a read timeout, for callers that do
// their own framing (the simulator reads silence-delimited chunks).
func OpenRaw(dev string, baud int, readTimeout time.Duration) (serial.Port, error) {
	if baud <= 0 {
		baud = DefaultBaud
	}
	p, err := serial.Open(dev, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, &ConnectionError{Endpoint: dev, Err: err}
	}
	if err := p.SetReadTimeout(readTimeout); err != nil {
		_ = p.Close()
		return nil, &ConnectionError{Endpoint: dev, Err: err}
	}
	return p, nil
}

// ListPorts returns the serial endpoints present on this machine.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, err
	}
	return ports, nil
}
