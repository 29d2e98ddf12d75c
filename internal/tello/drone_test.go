package tello

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tellolink/internal/device/devicetest"
	"tellolink/internal/protocol"
	"tellolink/internal/sim"
)

func connect(t *testing.T, f *devicetest.Fake) *Drone {
	t.Helper()
	nop := zerolog.Nop()
	s, err := protocol.Connect(context.Background(), f, "/dev/sim", protocol.Options{
		Logger: &nop,
		Sleep:  func(time.Duration) {},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return New(s)
}

// simDrone wires a Drone to a simulated adapter answering every write.
func simDrone(t *testing.T, st sim.State) (*Drone, *devicetest.Fake, *sim.Responder) {
	t.Helper()
	r := sim.NewResponder(st)
	f := devicetest.New()
	f.OnWrite = func(f *devicetest.Fake, p []byte) {
		if reply := r.Reply(string(p)); reply != "" {
			f.Queue(reply + "\r\n")
		}
	}
	return connect(t, f), f, r
}

func TestFlight(t *testing.T) {
	d, f, r := simDrone(t, sim.State{Battery: 85, Speed: 10, Distance: 1234})

	require.NoError(t, d.Takeoff())
	assert.True(t, r.Flying())
	require.NoError(t, d.GoRelative(100, 0, 0, 100))
	require.NoError(t, d.GoMissionPad(50, 50, 80, 50, 1))
	require.NoError(t, d.Jump(50, 0, 100, 60, 0, 1, 2))
	require.NoError(t, d.Rotate(90))
	require.NoError(t, d.Flip("f"))
	require.NoError(t, d.Stop())

	battery, err := d.Battery()
	require.NoError(t, err)
	assert.Equal(t, 85, battery)

	speed, err := d.Speed()
	require.NoError(t, err)
	assert.InDelta(t, 10.0, speed, 1e-9)

	dist, err := d.Distance()
	require.NoError(t, err)
	assert.Equal(t, 1234, dist)

	require.NoError(t, d.LED(Color{255, 0, 0}))
	require.NoError(t, d.LEDBlink(Color{255, 0, 0}, Color{0, 0, 255}, 2.5))
	require.NoError(t, d.MatrixClear())
	require.NoError(t, d.MatrixPrint("hello", "b", 1.5, "l"))
	require.NoError(t, d.MatrixChar("A", "p"))
	require.NoError(t, d.Land())
	assert.False(t, r.Flying())

	assert.Equal(t, []string{
		"!connect_1",
		"takeoff",
		"go 100 0 0 100",
		"go 50 50 80 50 m1",
		"jump 50 0 100 60 0 m1 m2",
		"cw 90",
		"flip f",
		"stop",
		"battery?",
		"speed?",
		"EXT tof?",
		"EXT led 255 0 0",
		"EXT led bl 2.5 255 0 0 0 0 255",
		"EXT mled sc",
		"EXT mled l b 1.5 hello",
		"EXT mled s p A",
		"land",
	}, f.Writes)
	assert.Zero(t, f.Pending())
}

func TestMotionDeadline(t *testing.T) {
	d, f, _ := simDrone(t, sim.State{})
	require.NoError(t, d.Takeoff())

	require.NoError(t, d.GoRelative(100, 0, 0, 100))
	assert.Equal(t, 6*time.Second, f.Timeouts[len(f.Timeouts)-1])

	require.NoError(t, d.Rotate(-180))
	assert.Equal(t, 15*time.Second, f.Timeouts[len(f.Timeouts)-1])
}

func TestRejectedMotion(t *testing.T) {
	d, _, _ := simDrone(t, sim.State{Battery: 85})

	err := d.GoRelative(100, 0, 0, 100)
	var ue *protocol.UnexpectedError
	require.ErrorAs(t, err, &ue)
	assert.Contains(t, string(ue.Response), "error")
}

func TestValidation(t *testing.T) {
	d, f, _ := simDrone(t, sim.State{})
	writes := len(f.Writes)

	for name, err := range map[string]error{
		"x range":        d.GoRelative(501, 0, 0, 50),
		"speed low":      d.GoRelative(0, 0, 100, 5),
		"pad":            d.GoMissionPad(0, 0, 100, 50, 9),
		"jump yaw":       d.Jump(0, 0, 100, 50, 400, 1, 2),
		"rotate zero":    d.Rotate(0),
		"flip":           d.Flip("x"),
		"led channel":    d.LED(Color{256, 0, 0}),
		"blink freq":     d.LEDBlink(Color{}, Color{}, 11),
		"matrix color":   d.MatrixPrint("hi", "g", 1, "l"),
		"matrix dir":     d.MatrixPrint("hi", "r", 1, "x"),
		"matrix freq":    d.MatrixPrint("hi", "r", 3, "l"),
		"matrix message": d.MatrixPrint("", "r", 1, "l"),
		"matrix char":    d.MatrixChar("AB", "r"),
	} {
		assert.ErrorIs(t, err, ErrInvalidArgument, name)
	}
	assert.Len(t, f.Writes, writes)
}

func TestQueryNonNumericReply(t *testing.T) {
	d := connect(t, devicetest.New("!connected\n", "abc\n", "tof\n"))

	_, err := d.Battery()
	var ue *protocol.UnexpectedError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "abc\n", string(ue.Response))

	_, err = d.Distance()
	require.ErrorAs(t, err, &ue)
}

func TestQueryTimeout(t *testing.T) {
	d, f, r := simDrone(t, sim.State{Battery: 85})
	r.Silent["battery?"] = true

	_, err := d.Battery()
	require.ErrorIs(t, err, protocol.ErrTimeout)
	assert.Equal(t, []string{"!connect_1", "battery?", "battery?", "battery?"}, f.Writes)
}

func TestDisplayBestEffort(t *testing.T) {
	d, _, r := simDrone(t, sim.State{})
	r.Expanded = false

	require.NoError(t, d.LED(Color{0, 255, 0}))
	require.NoError(t, d.MatrixClear())

	r.Silent["EXT"] = true
	require.NoError(t, d.MatrixChar("x", "r"))
}

func TestExec(t *testing.T) {
	d, f, _ := simDrone(t, sim.State{Battery: 85, Distance: 250})

	for _, line := range []string{
		"takeoff",
		"go 50 50 50 50",
		"go 50 50 50 50 m3",
		"jump 50 0 100 60 0 m1 m2",
		"rotate 90",
		"flip l",
		"led 0 0 255",
		"blink 255 0 0 0 255 0 1",
		"mprint r 1 l hello world",
		"mchar b Z",
		"mclear",
		"stop",
		"land",
	} {
		_, err := d.Exec(line)
		require.NoError(t, err, line)
	}
	assert.Equal(t, "EXT mled l r 1 hello world", f.Writes[9])

	res, err := d.Exec("battery")
	require.NoError(t, err)
	assert.Equal(t, 85, res.Value)

	res, err = d.Exec("distance")
	require.NoError(t, err)
	assert.Equal(t, 250, res.Value)

	res, err = d.Exec("   ")
	require.NoError(t, err)
	assert.Empty(t, res.Line)

	for _, bad := range []string{"hover", "go 1 2", "flip", "rotate x", "led 1 2", "raw"} {
		_, err := d.Exec(bad)
		assert.ErrorIs(t, err, ErrInvalidArgument, bad)
	}
}

func TestExecRaw(t *testing.T) {
	d, f, _ := simDrone(t, sim.State{})
	writes := len(f.Writes)

	_, err := d.Exec("raw EXT mled g 0000000000")
	require.NoError(t, err)
	assert.Equal(t, "EXT mled g 0000000000", f.Writes[writes])
}

func TestExecFlush(t *testing.T) {
	d, f, _ := simDrone(t, sim.State{})
	flushes := f.Flushes

	_, err := d.Exec("flush")
	require.NoError(t, err)
	assert.Equal(t, flushes+1, f.Flushes)

	_, err = d.Exec("flush now")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestStateReload(t *testing.T) {
	d, _, r := simDrone(t, sim.State{Battery: 90})

	battery, err := d.Battery()
	require.NoError(t, err)
	assert.Equal(t, 90, battery)

	r.SetState(sim.State{Battery: 15, Distance: 40})
	battery, err = d.Battery()
	require.NoError(t, err)
	assert.Equal(t, 15, battery)

	mm, err := d.Distance()
	require.NoError(t, err)
	assert.Equal(t, 40, mm)
}

func TestRunScript(t *testing.T) {
	d, _, _ := simDrone(t, sim.State{Battery: 60})
	script := strings.NewReader(`
# demo flight
battery
takeoff

go 50 50 50 50
go -50 -50 -50 50
rotate 90
land
`)
	var results []Result
	require.NoError(t, d.RunScript(context.Background(), script, func(r Result) {
		results = append(results, r)
	}))
	require.Len(t, results, 6)
	assert.Equal(t, 60, results[0].Value)
	assert.Equal(t, "land", results[5].Line)
}

func TestRunScriptStopsAtFailure(t *testing.T) {
	d, f, _ := simDrone(t, sim.State{})
	script := strings.NewReader("takeoff\nflip q\nland\n")

	err := d.RunScript(context.Background(), script, nil)
	require.ErrorIs(t, err, ErrInvalidArgument)
	assert.Contains(t, err.Error(), "line 2")
	assert.Equal(t, "takeoff", f.Writes[len(f.Writes)-1])
}

func TestRunScriptCancelled(t *testing.T) {
	d, _, _ := simDrone(t, sim.State{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := d.RunScript(ctx, strings.NewReader("takeoff\n"), nil)
	require.ErrorIs(t, err, context.Canceled)
}
