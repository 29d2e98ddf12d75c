// Package sim emulates the Tello Talent serial adapter: it answers command
// lines the way the adapter and drone do, for local testing without hardware.
package sim

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"tellolink/internal/protocol"
)

// Replies used by the adapter.
const (
	ReplyConnected = protocol.ConnectedToken
	ReplyOK        = "ok"
	ReplyError     = "error"
	ReplyLED       = "led ok"
	ReplyMatrix    = "matrix ok"
)

// State is the simulated vehicle state reported by queries.
type State struct {
	Battery  int
	Speed    float64
	Distance int
}

// Responder maps one inbound command to one reply line (without '\n').
// An empty reply means the adapter stays silent.
type Responder struct {
	mu sync.Mutex

	state    State
	paired   bool
	flying   bool
	Expanded bool

	// Silent lists verbs that are swallowed, to exercise caller timeouts.
	Silent map[string]bool
}

// NewResponder returns a responder reporting st.
func NewResponder(st State) *Responder {
	return &Responder{state: st, Expanded: true, Silent: map[string]bool{}}
}

// Reply returns the reply the adapter would send for line.
func (r *Responder) Reply(line string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	cmd := protocol.ParseCommand(line)
	verb := cmd.Verb
	if verb == "" {
		return ""
	}
	if r.Silent[verb] {
		return ""
	}

	if strings.HasPrefix(verb, "!connect_") {
		id, err := strconv.Atoi(strings.TrimPrefix(verb, "!connect_"))
		if err != nil || id < 1 || id > 2 {
			return "Error: unknown endpoint"
		}
		r.paired = true
		return ReplyConnected
	}
	if !r.paired {
		return "Error: not connected"
	}

	switch verb {
	case "takeoff", "throwfly":
		r.flying = true
		return ReplyOK
	case "land":
		r.flying = false
		return ReplyOK
	case "stop":
		return ReplyOK
	case "go", "jump", "cw", "ccw", "flip", "up", "down", "left", "right", "forward", "back":
		if !r.flying {
			return "error Not joystick"
		}
		if verb == "flip" && r.state.Battery < 50 {
			return "error Low battery"
		}
		return ReplyOK
	case "battery?":
		return strconv.Itoa(r.state.Battery)
	case "speed?":
		return strconv.FormatFloat(r.state.Speed, 'f', 1, 64)
	case "EXT":
		return r.ext(cmd.Args)
	}
	return ReplyError
}

func (r *Responder) ext(args []string) string {
	if !r.Expanded || len(args) == 0 {
		return ReplyError
	}
	switch args[0] {
	case "tof?":
		return fmt.Sprintf("tof %d", r.state.Distance)
	case "led":
		return ReplyLED
	case "mled":
		return ReplyMatrix
	}
	return ReplyError
}

// Flying reports whether the simulated drone is airborne.
func (r *Responder) Flying() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flying
}

// SetState replaces the values reported by queries.
func (r *Responder) SetState(st State) {
	r.mu.Lock()
	r.state = st
	r.mu.Unlock()
}
