// Package tello is the command catalog of the Tello Talent: one method per
// vehicle action, each translated into a protocol command and policy.
package tello

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"tellolink/internal/parser"
	"tellolink/internal/protocol"
)

// ErrInvalidArgument wraps every range-check failure.
var ErrInvalidArgument = errors.New("invalid argument")

// Conn is the engine surface the catalog needs; *protocol.Session implements it.
type Conn interface {
	Do(cmd protocol.Command, p protocol.Policy) (protocol.Response, error)
	WriteRaw(line string) error
	Flush() error
}

// Color is an RGB triple, each channel 0..255.
type Color struct {
	R, G, B int
}

// Drone issues catalog commands over a Conn.
type Drone struct {
	conn Conn
}

// New wraps conn.
func New(conn Conn) *Drone {
	return &Drone{conn: conn}
}

// Takeoff lifts off and hovers.
func (d *Drone) Takeoff() error {
	return d.do(protocol.NewCommand("takeoff"), protocol.BasicPolicy())
}

// ThrowFly arms the motors; the drone must be thrown within 5 seconds.
func (d *Drone) ThrowFly() error {
	log.Info().Msg("throw the drone into the air now")
	return d.do(protocol.NewCommand("throwfly"), protocol.BasicPolicy())
}

// Land lands the drone.
func (d *Drone) Land() error {
	return d.do(protocol.NewCommand("land"), protocol.BasicPolicy())
}

// Stop halts the current movement and hovers. The reply is not checked.
func (d *Drone) Stop() error {
	return d.do(protocol.NewCommand("stop"), protocol.StopPolicy())
}

// GoRelative flies to x, y, z (cm, -500..500) relative to the current
// position at speed cm/s (10..100).
func (d *Drone) GoRelative(x, y, z, speed int) error {
	if err := checkMotion(x, y, z, speed); err != nil {
		return err
	}
	return d.do(protocol.NewCommand("go", x, y, z, speed), protocol.MotionPolicy(x, y, z, speed))
}

// GoMissionPad flies to x, y, z in the coordinate frame of mission pad pad.
func (d *Drone) GoMissionPad(x, y, z, speed, pad int) error {
	if err := checkMotion(x, y, z, speed); err != nil {
		return err
	}
	if err := checkPad(pad); err != nil {
		return err
	}
	return d.do(protocol.NewCommand("go", x, y, z, speed, padArg(pad)), protocol.MotionPolicy(x, y, z, speed))
}

// Jump flies to x, y, z relative to pad1, then finds pad2 and hovers above
// it at yaw.
func (d *Drone) Jump(x, y, z, speed, yaw, pad1, pad2 int) error {
	if err := checkMotion(x, y, z, speed); err != nil {
		return err
	}
	if err := checkRange("yaw", yaw, -360, 360); err != nil {
		return err
	}
	if err := checkPad(pad1); err != nil {
		return err
	}
	if err := checkPad(pad2); err != nil {
		return err
	}
	return d.do(protocol.NewCommand("jump", x, y, z, speed, yaw, padArg(pad1), padArg(pad2)),
		protocol.MotionPolicy(x, y, z, speed))
}

// Rotate turns clockwise by angle degrees.
func (d *Drone) Rotate(angle int) error {
	if angle == 0 {
		return fmt.Errorf("%w: angle must not be 0", ErrInvalidArgument)
	}
	if err := checkRange("angle", angle, -3600, 3600); err != nil {
		return err
	}
	return d.do(protocol.NewCommand("cw", angle), protocol.RotationPolicy(angle))
}

// Flip somersaults in direction f, b, l or r. Needs at least 50% battery.
func (d *Drone) Flip(direction string) error {
	if err := checkOneOf("direction", direction, "f", "b", "l", "r"); err != nil {
		return err
	}
	return d.do(protocol.NewCommand("flip", direction), protocol.FlipPolicy())
}

// Battery returns the charge in percent.
func (d *Drone) Battery() (int, error) {
	cmd := protocol.NewCommand("battery?")
	resp, err := d.conn.Do(cmd, protocol.QueryPolicy())
	if err != nil {
		return 0, err
	}
	v, err := parser.ParseInt(resp.Raw)
	if err != nil {
		return 0, unexpected(cmd, resp)
	}
	return v, nil
}

// Speed returns the current speed in cm/s.
func (d *Drone) Speed() (float64, error) {
	cmd := protocol.NewCommand("speed?")
	resp, err := d.conn.Do(cmd, protocol.QueryPolicy())
	if err != nil {
		return 0, err
	}
	v, err := parser.ParseFloat(resp.Raw)
	if err != nil {
		return 0, unexpected(cmd, resp)
	}
	return v, nil
}

// Distance returns the range finder reading in mm. Needs the expansion module.
func (d *Drone) Distance() (int, error) {
	cmd := protocol.NewCommand("EXT", "tof?")
	resp, err := d.conn.Do(cmd, protocol.QueryPolicy())
	if err != nil {
		return 0, err
	}
	v, err := parser.ParseDistance(resp.Raw)
	if err != nil {
		return 0, unexpected(cmd, resp)
	}
	return v, nil
}

// LED sets the top LED to c.
func (d *Drone) LED(c Color) error {
	if err := checkColor(c); err != nil {
		return err
	}
	return d.do(protocol.NewCommand("EXT", "led", c.R, c.G, c.B), protocol.DisplayPolicy("led ok"))
}

// LEDBlink alternates the top LED between c1 and c2 at freq Hz (0.1..10).
func (d *Drone) LEDBlink(c1, c2 Color, freq float64) error {
	if err := checkColor(c1); err != nil {
		return err
	}
	if err := checkColor(c2); err != nil {
		return err
	}
	if freq < 0.1 || freq > 10 {
		return fmt.Errorf("%w: blink frequency %v out of 0.1..10", ErrInvalidArgument, freq)
	}
	return d.do(protocol.NewCommand("EXT", "led", "bl", freq, c1.R, c1.G, c1.B, c2.R, c2.G, c2.B),
		protocol.DisplayPolicy("led ok"))
}

// MatrixClear blanks the LED matrix.
func (d *Drone) MatrixClear() error {
	return d.do(protocol.NewCommand("EXT", "mled", "sc"), protocol.DisplayPolicy("matrix ok"))
}

// MatrixPrint scrolls message across the matrix in color r, b or p at freq
// (0.1..2.5) towards direction l, r, u or d.
func (d *Drone) MatrixPrint(message, color string, freq float64, direction string) error {
	if err := checkOneOf("color", color, "r", "b", "p"); err != nil {
		return err
	}
	if err := checkOneOf("direction", direction, "l", "r", "u", "d"); err != nil {
		return err
	}
	if freq < 0.1 || freq > 2.5 {
		return fmt.Errorf("%w: scroll frequency %v out of 0.1..2.5", ErrInvalidArgument, freq)
	}
	if message == "" {
		return fmt.Errorf("%w: empty message", ErrInvalidArgument)
	}
	return d.do(protocol.NewCommand("EXT", "mled", direction, color, freq, message),
		protocol.DisplayPolicy("matrix ok"))
}

// MatrixChar shows a single static character.
func (d *Drone) MatrixChar(char, color string) error {
	if err := checkOneOf("color", color, "r", "b", "p"); err != nil {
		return err
	}
	if len(char) != 1 {
		return fmt.Errorf("%w: %q is not a single character", ErrInvalidArgument, char)
	}
	return d.do(protocol.NewCommand("EXT", "mled", "s", color, char), protocol.DisplayPolicy("matrix ok"))
}

// Raw writes line to the drone or adapter without waiting for a reply.
func (d *Drone) Raw(line string) error {
	return d.conn.WriteRaw(line)
}

// Flush drops whatever the adapter has buffered, after a Raw write or a
// reply that arrived late.
func (d *Drone) Flush() error {
	return d.conn.Flush()
}

func (d *Drone) do(cmd protocol.Command, p protocol.Policy) error {
	_, err := d.conn.Do(cmd, p)
	return err
}

func unexpected(cmd protocol.Command, resp protocol.Response) error {
	return &protocol.UnexpectedError{Command: cmd.String(), Response: resp.Raw}
}

func padArg(pad int) string {
	return fmt.Sprintf("m%d", pad)
}

func checkMotion(x, y, z, speed int) error {
	for _, c := range []struct {
		name string
		v    int
	}{{"x", x}, {"y", y}, {"z", z}} {
		if err := checkRange(c.name, c.v, -500, 500); err != nil {
			return err
		}
	}
	return checkRange("speed", speed, 10, 100)
}

func checkPad(pad int) error {
	return checkRange("mission pad", pad, 1, 8)
}

func checkColor(c Color) error {
	for _, ch := range []int{c.R, c.G, c.B} {
		if err := checkRange("color channel", ch, 0, 255); err != nil {
			return err
		}
	}
	return nil
}

func checkRange(name string, v, lo, hi int) error {
	if v < lo || v > hi {
		return fmt.Errorf("%w: %s %d out of %d..%d", ErrInvalidArgument, name, v, lo, hi)
	}
	return nil
}

func checkOneOf(name, v string, allowed ...string) error {
	for _, a := range allowed {
		if v == a {
			return nil
		}
	}
	return fmt.Errorf("%w: %s %q not one of %v", ErrInvalidArgument, name, v, allowed)
}
