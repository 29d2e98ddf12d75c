// Package core wires configuration, the serial session and the command
// catalog together and manages their lifecycle.
package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"tellolink/internal/model"
	"tellolink/internal/protocol"
	"tellolink/internal/tello"
)

// ErrNotStarted is returned by Drone before Start succeeded.
var ErrNotStarted = errors.New("system not started")

// System owns one drone session built from a Config.
type System struct {
	cfg model.Config

	// dial is replaced in tests.
	dial func(ctx context.Context, endpoint string, baud int, opts protocol.Options) (*protocol.Session, error)

	mu      sync.Mutex
	session *protocol.Session
	drone   *tello.Drone
}

// NewSystem creates a System for cfg; nothing is opened until Start.
func NewSystem(cfg model.Config) *System {
	return &System{cfg: cfg, dial: protocol.Dial}
}

// Config returns the configuration the system was built from.
func (s *System) Config() model.Config { return s.cfg }

// SessionOptions translates the drone section of the config.
func SessionOptions(cfg model.DroneConfig) protocol.Options {
	return protocol.Options{
		Expansion:            cfg.Expansion,
		Terminator:           cfg.Terminator,
		HandshakeTimeout:     time.Duration(cfg.HandshakeTimeoutMs) * time.Millisecond,
		SettleDelay:          time.Duration(cfg.SettleDelayMs) * time.Millisecond,
		DisplayPause:         time.Duration(cfg.DisplayPauseMs) * time.Millisecond,
		MaxHandshakeAttempts: cfg.MaxHandshakeAttempts,
	}
}

// Start opens the serial port and performs the handshake. Calling it again
// on a started system is a no-op.
func (s *System) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil {
		return nil
	}
	d := s.cfg.Drone
	log.Info().Str("port", d.Port).Bool("expansion", d.Expansion).Msg("connecting to drone")
	session, err := s.dial(ctx, d.Port, d.Baud, SessionOptions(d))
	if err != nil {
		return err
	}
	s.session = session
	s.drone = tello.New(session)
	return nil
}

// Drone returns the command catalog of the running session.
func (s *System) Drone() (*tello.Drone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drone == nil {
		return nil, ErrNotStarted
	}
	return s.drone, nil
}

// Session returns the running session, or nil.
func (s *System) Session() *protocol.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// Stop closes the session. It is safe to call on every exit path.
func (s *System) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil
	}
	err := s.session.Close()
	s.session = nil
	s.drone = nil
	if err != nil {
		log.Warn().Err(err).Msg("failed to close drone session")
	}
	return err
}
