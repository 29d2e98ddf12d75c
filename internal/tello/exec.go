package tello

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Result is the outcome of one executed script line.
type Result struct {
	Line  string `json:"line"`
	Value any    `json:"value,omitempty"`
}

// Usage lists the script verbs understood by Exec.
var Usage = []string{
	"takeoff | throwfly | land | stop",
	"go <x> <y> <z> <speed> [pad]",
	"jump <x> <y> <z> <speed> <yaw> <pad1> <pad2>",
	"rotate <angle>",
	"flip <f|b|l|r>",
	"battery | speed | distance",
	"led <r> <g> <b>",
	"blink <r1> <g1> <b1> <r2> <g2> <b2> <freq>",
	"mclear | mprint <r|b|p> <freq> <l|r|u|d> <text...> | mchar <r|b|p> <char>",
	"wait <seconds>",
	"raw <line...>",
	"flush",
}

// Exec parses one script line and runs the matching catalog call.
func (d *Drone) Exec(line string) (Result, error) {
	res := Result{Line: strings.TrimSpace(line)}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return res, nil
	}
	verb, args := strings.ToLower(fields[0]), fields[1:]

	var err error
	switch verb {
	case "takeoff":
		err = want(args, 0, d.Takeoff)
	case "throwfly":
		err = want(args, 0, d.ThrowFly)
	case "land":
		err = want(args, 0, d.Land)
	case "stop":
		err = want(args, 0, d.Stop)
	case "go":
		var n []int
		if len(args) == 5 {
			if n, err = ints(trimPads(args)); err == nil {
				err = d.GoMissionPad(n[0], n[1], n[2], n[3], n[4])
			}
			break
		}
		if n, err = intsN(args, 4); err == nil {
			err = d.GoRelative(n[0], n[1], n[2], n[3])
		}
	case "jump":
		var n []int
		if n, err = intsN(trimPads(args), 7); err == nil {
			err = d.Jump(n[0], n[1], n[2], n[3], n[4], n[5], n[6])
		}
	case "rotate", "cw":
		var n []int
		if n, err = intsN(args, 1); err == nil {
			err = d.Rotate(n[0])
		}
	case "flip":
		if err = arity(args, 1); err == nil {
			err = d.Flip(args[0])
		}
	case "battery", "battery?":
		var v int
		if err = arity(args, 0); err == nil {
			v, err = d.Battery()
			res.Value = v
		}
	case "speed", "speed?":
		var v float64
		if err = arity(args, 0); err == nil {
			v, err = d.Speed()
			res.Value = v
		}
	case "distance", "tof", "tof?":
		var v int
		if err = arity(args, 0); err == nil {
			v, err = d.Distance()
			res.Value = v
		}
	case "led":
		var n []int
		if n, err = intsN(args, 3); err == nil {
			err = d.LED(Color{n[0], n[1], n[2]})
		}
	case "blink":
		var n []int
		if err = arity(args, 7); err == nil {
			var freq float64
			if n, err = ints(args[:6]); err == nil {
				if freq, err = float(args[6]); err == nil {
					err = d.LEDBlink(Color{n[0], n[1], n[2]}, Color{n[3], n[4], n[5]}, freq)
				}
			}
		}
	case "mclear":
		err = want(args, 0, d.MatrixClear)
	case "mprint":
		if len(args) < 4 {
			err = fmt.Errorf("%w: mprint needs <color> <freq> <dir> <text>", ErrInvalidArgument)
			break
		}
		var freq float64
		if freq, err = float(args[1]); err == nil {
			err = d.MatrixPrint(strings.Join(args[3:], " "), args[0], freq, args[2])
		}
	case "mchar":
		if err = arity(args, 2); err == nil {
			err = d.MatrixChar(args[1], args[0])
		}
	case "wait", "sleep":
		var secs float64
		if err = arity(args, 1); err == nil {
			if secs, err = float(args[0]); err == nil {
				time.Sleep(time.Duration(secs * float64(time.Second)))
			}
		}
	case "flush":
		err = want(args, 0, d.Flush)
	case "raw":
		if len(args) == 0 {
			err = fmt.Errorf("%w: raw needs a line", ErrInvalidArgument)
			break
		}
		err = d.Raw(strings.Join(args, " "))
	default:
		err = fmt.Errorf("%w: unknown command %q", ErrInvalidArgument, fields[0])
	}
	return res, err
}

// RunScript executes r line by line, skipping blank lines and # comments.
// It stops at the first failing line; ctx is checked between lines.
func (d *Drone) RunScript(ctx context.Context, r io.Reader, report func(Result)) error {
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := d.Exec(line)
		if err != nil {
			return fmt.Errorf("line %d %q: %w", lineNo, line, err)
		}
		if report != nil {
			report(res)
		}
	}
	return sc.Err()
}

func want(args []string, n int, fn func() error) error {
	if err := arity(args, n); err != nil {
		return err
	}
	return fn()
}

func arity(args []string, n int) error {
	if len(args) != n {
		return fmt.Errorf("%w: expected %d arguments, got %d", ErrInvalidArgument, n, len(args))
	}
	return nil
}

func intsN(args []string, n int) ([]int, error) {
	if err := arity(args, n); err != nil {
		return nil, err
	}
	return ints(args)
}

func ints(args []string) ([]int, error) {
	out := make([]int, len(args))
	for i, a := range args {
		v, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an integer", ErrInvalidArgument, a)
		}
		out[i] = v
	}
	return out, nil
}

func float(a string) (float64, error) {
	v, err := strconv.ParseFloat(a, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidArgument, a)
	}
	return v, nil
}

// trimPads accepts mission pad arguments written as m1 or 1.
func trimPads(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = strings.TrimPrefix(a, "m")
	}
	return out
}
