package protocol

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"tellolink/internal/device"
)

// State is the lifecycle stage of a Session.
type State int

const (
	Disconnected State = iota
	Handshaking
	Connected
	Closed
)

func (s State) String() string {
	switch s {
	case Handshaking:
		return "handshaking"
	case Connected:
		return "connected"
	case Closed:
		return "closed"
	default:
		return "disconnected"
	}
}

// Options tune a Session. Zero values select the adapter defaults.
type Options struct {
	// Expansion selects connect_2, the Wi-Fi endpoint of a drone fitted
	// with the expansion module.
	Expansion bool
	// Terminator is appended to every framed command.
	Terminator string

	HandshakeTimeout time.Duration
	SettleDelay      time.Duration
	DisplayPause     time.Duration
	// MaxHandshakeAttempts bounds timeout retries; 0 retries forever.
	MaxHandshakeAttempts int

	Logger *zerolog.Logger
	// Sleep replaces time.Sleep for the settle and display pauses.
	Sleep func(time.Duration)
}

const (
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultSettleDelay      = 500 * time.Millisecond
	DefaultDisplayPause     = 1 * time.Second
)

func (o Options) withDefaults() Options {
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if o.SettleDelay <= 0 {
		o.SettleDelay = DefaultSettleDelay
	}
	if o.DisplayPause <= 0 {
		o.DisplayPause = DefaultDisplayPause
	}
	if o.Sleep == nil {
		o.Sleep = time.Sleep
	}
	return o
}

// Session is an established half-duplex link to one drone. It owns its
// device; Close releases it.
type Session struct {
	mu sync.Mutex

	dev       device.Device
	id        string
	endpoint  string
	connectID int
	state     State
	opts      Options
	log       zerolog.Logger
}

// Dial opens endpoint, performs the handshake and returns a ready Session.
// The port is closed again if the handshake fails.
func Dial(ctx context.Context, endpoint string, baud int, opts Options) (*Session, error) {
	dev, err := device.Open(endpoint, baud)
	if err != nil {
		return nil, err
	}
	s, err := Connect(ctx, dev, endpoint, opts)
	if err != nil {
		_ = dev.Close()
		return nil, err
	}
	return s, nil
}

// Connect performs the handshake over an open device. On failure the device
// is left open and remains owned by the caller. ctx is only checked between
// handshake attempts.
func Connect(ctx context.Context, dev device.Device, endpoint string, opts Options) (*Session, error) {
	opts = opts.withDefaults()
	s := &Session{
		dev:       dev,
		id:        uuid.NewString(),
		endpoint:  endpoint,
		connectID: 1,
		opts:      opts,
	}
	if opts.Expansion {
		s.connectID = 2
	}
	base := log.Logger
	if opts.Logger != nil {
		base = *opts.Logger
	}
	s.log = base.With().Str("session", s.id).Str("endpoint", endpoint).Logger()

	if err := s.handshake(ctx); err != nil {
		s.state = Disconnected
		return nil, err
	}
	return s, nil
}

// ID returns the session identifier attached to log lines.
func (s *Session) ID() string { return s.id }

// Endpoint returns the endpoint the session was established on.
func (s *Session) Endpoint() string { return s.endpoint }

// ConnectID returns 1 or 2, the endpoint selected at handshake.
func (s *Session) ConnectID() int { return s.connectID }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SendAndAwait writes cmd and waits up to deadline for a reply containing
// expected. An empty expected accepts any reply without the error marker.
func (s *Session) SendAndAwait(cmd Command, expected string, deadline time.Duration) (Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return Response{}, err
	}
	return s.sendAndAwait(cmd, expected, deadline)
}

// Do runs cmd under policy p: resends on timeout while attempts remain and
// swallows failures for best-effort and discard classes.
func (s *Session) Do(cmd Command, p Policy) (Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return Response{}, err
	}
	if p.Discard {
		return s.discard(cmd, p.Timeout)
	}

	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	for i := 1; ; i++ {
		resp, err := s.sendAndAwait(cmd, p.Expected, p.Timeout)
		if err == nil {
			return resp, nil
		}
		var ioErr *device.IOError
		if errors.As(err, &ioErr) || errors.Is(err, device.ErrNotOpen) {
			return resp, err
		}
		if p.BestEffort {
			s.log.Warn().Str("cmd", cmd.String()).Err(err).Msg("best-effort command not acknowledged, resyncing")
			s.opts.Sleep(s.opts.DisplayPause)
			if ferr := s.dev.Flush(); ferr != nil {
				return resp, ferr
			}
			return resp, nil
		}
		var te *TimeoutError
		if !errors.As(err, &te) {
			return resp, err
		}
		if i >= attempts {
			te.Attempts = attempts
			return resp, te
		}
		s.log.Debug().Str("cmd", cmd.String()).Int("attempt", i).Msg("timeout, resending")
	}
}

// WriteRaw writes line as-is without waiting for a reply.
func (s *Session) WriteRaw(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return err
	}
	s.log.Debug().Str("tx", line).Msg("raw")
	return s.dev.Write([]byte(line))
}

// Flush resynchronizes framing by dropping buffered bytes.
func (s *Session) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return err
	}
	return s.dev.Flush()
}

// Close releases the device. It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Closed {
		return nil
	}
	s.state = Closed
	s.log.Debug().Msg("session closed")
	return s.dev.Close()
}

func (s *Session) ready() error {
	switch s.state {
	case Connected:
		return nil
	case Closed:
		return ErrClosed
	default:
		return ErrNotConnected
	}
}

func (s *Session) sendAndAwait(cmd Command, expected string, deadline time.Duration) (Response, error) {
	line := cmd.String()
	s.log.Debug().Str("tx", line).Dur("deadline", deadline).Msg("send")
	if err := s.dev.Write(cmd.Frame(s.opts.Terminator)); err != nil {
		return Response{}, err
	}
	raw, err := s.readReply(deadline)
	if err != nil {
		return Response{}, err
	}
	// unterminated, or still short after the reread
	if !terminated(raw) || len(raw) < ShortReadLen {
		return Response{Raw: raw, Kind: ShortRead}, &TimeoutError{Command: line, Attempts: 1, Partial: raw}
	}
	resp := Response{Raw: raw, Kind: Classify(raw, expected)}
	switch {
	case expected != "" && resp.Kind == Acknowledged:
		return resp, nil
	case expected == "" && resp.Kind == Data:
		return resp, nil
	default:
		return resp, &UnexpectedError{Command: line, Expected: expected, Response: raw}
	}
}

// readReply reads one line and, when it is shorter than ShortReadLen, one
// more within what is left of deadline; the adapter sometimes splits a
// reply across two reads.
func (s *Session) readReply(deadline time.Duration) ([]byte, error) {
	start := time.Now()
	raw, err := s.dev.ReadLine(deadline)
	if err != nil {
		return raw, err
	}
	s.logRX(raw)
	if len(raw) >= ShortReadLen {
		return raw, nil
	}
	remaining := deadline - time.Since(start)
	if remaining < 0 {
		remaining = 0
	}
	raw, err = s.dev.ReadLine(remaining)
	if err != nil {
		return raw, err
	}
	s.logRX(raw)
	return raw, nil
}

func (s *Session) discard(cmd Command, deadline time.Duration) (Response, error) {
	s.log.Debug().Str("tx", cmd.String()).Msg("send, reply ignored")
	if err := s.dev.Write(cmd.Frame(s.opts.Terminator)); err != nil {
		return Response{}, err
	}
	raw, err := s.readReply(deadline)
	if err != nil {
		return Response{}, err
	}
	return Response{Raw: raw, Kind: Classify(raw, "")}, nil
}

func (s *Session) logRX(raw []byte) {
	if e := s.log.Debug(); e.Enabled() {
		e.Str("rx", strings.TrimRight(string(raw), "\r\n")).Int("len", len(raw)).Msg("recv")
	}
}
