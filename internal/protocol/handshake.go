package protocol

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
)

// ConnectedToken is the adapter's reply once it has paired with the drone.
const ConnectedToken = "!connected"

// ConnectToken returns the pairing token for endpoint id 1 or 2.
func ConnectToken(id int) string {
	return "connect_" + strconv.Itoa(id)
}

// handshake sends !connect_<id> until the adapter answers !connected.
// Timeouts and error-marked replies are retried; anything else is fatal.
func (s *Session) handshake(ctx context.Context) error {
	s.state = Handshaking
	cmd := Command{Verb: "!" + ConnectToken(s.connectID)}
	s.log.Info().Int("connect_id", s.connectID).Msg("handshake started")

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("handshake: %w", err)
		}
		if limit := s.opts.MaxHandshakeAttempts; limit > 0 && attempt > limit {
			return &TimeoutError{Command: cmd.String(), Attempts: limit}
		}

		s.log.Debug().Str("tx", cmd.String()).Int("attempt", attempt).Msg("send")
		if err := s.dev.Write(cmd.Frame(s.opts.Terminator)); err != nil {
			return err
		}
		raw, err := s.readReply(s.opts.HandshakeTimeout)
		if err != nil {
			return err
		}

		switch {
		case !terminated(raw) || len(raw) < ShortReadLen:
			s.log.Warn().Int("attempt", attempt).Msg("handshake timeout, resending")
			continue
		case bytes.Contains(raw, []byte(ConnectedToken)):
		case HasErrorMarker(raw):
			s.log.Warn().Str("rx", string(bytes.TrimSpace(raw))).Msg("handshake rejected, flushing input")
			if err := s.dev.Flush(); err != nil {
				return err
			}
			continue
		default:
			return &ProtocolError{Response: raw}
		}

		s.state = Connected
		s.opts.Sleep(s.opts.SettleDelay)
		if err := s.dev.Flush(); err != nil {
			return err
		}
		s.log.Info().Int("attempts", attempt).Msg("connected")
		return nil
	}
}
