package sim

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
)

// Serve answers commands on rw until ctx is done or a read fails.
//
// Commands arrive without a reliable terminator, so a command ends at '\n'
// or at the first read that returns no bytes. rw must return (0, nil) after
// a short period of silence, as a serial.Port with a read timeout does.
func (r *Responder) Serve(ctx context.Context, rw io.ReadWriter) error {
	buf := make([]byte, 256)
	var acc []byte
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		n, err := rw.Read(buf)
		if err != nil {
			return fmt.Errorf("sim read: %w", err)
		}
		acc = append(acc, buf[:n]...)

		for {
			i := bytes.IndexByte(acc, '\n')
			if i < 0 {
				break
			}
			if err := r.answer(rw, string(acc[:i])); err != nil {
				return err
			}
			acc = acc[i+1:]
		}
		if n == 0 && len(acc) > 0 {
			if err := r.answer(rw, string(acc)); err != nil {
				return err
			}
			acc = nil
		}
	}
}

func (r *Responder) answer(w io.Writer, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	reply := r.Reply(line)
	log.Debug().Str("rx", line).Str("tx", reply).Msg("sim")
	if reply == "" {
		return nil
	}
	if _, err := io.WriteString(w, reply+"\r\n"); err != nil {
		return fmt.Errorf("sim write: %w", err)
	}
	return nil
}
