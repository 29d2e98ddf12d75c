package shell

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tellolink/internal/core"
	"tellolink/internal/device/devicetest"
	"tellolink/internal/model"
	"tellolink/internal/protocol"
	"tellolink/internal/sim"
	"tellolink/internal/tello"
)

func simConsole(t *testing.T) *Console {
	t.Helper()
	con := NewConsole(core.DefaultConfig())
	con.Dial = func(ctx context.Context, cfg model.DroneConfig) (*protocol.Session, error) {
		r := sim.NewResponder(sim.State{Battery: 64, Speed: 10, Distance: 900})
		f := devicetest.New()
		f.OnWrite = func(f *devicetest.Fake, p []byte) {
			if reply := r.Reply(string(p)); reply != "" {
				f.Queue(reply + "\r\n")
			}
		}
		nop := zerolog.Nop()
		opts := core.SessionOptions(cfg)
		opts.Logger = &nop
		opts.Sleep = func(time.Duration) {}
		return protocol.Connect(ctx, f, cfg.Port, opts)
	}
	t.Cleanup(func() { _ = con.Disconnect() })
	return con
}

func TestConsoleNotConnected(t *testing.T) {
	con := simConsole(t)
	_, err := con.Exec("battery")
	assert.EqualError(t, err, "not connected")
	assert.Equal(t, "", con.Endpoint())
	assert.NoError(t, con.Disconnect())
}

func TestConsoleExec(t *testing.T) {
	con := simConsole(t)
	require.NoError(t, con.Connect(context.Background(), "/dev/ttyACM1"))
	assert.Equal(t, "/dev/ttyACM1", con.Endpoint())

	out, err := con.Exec("battery")
	require.NoError(t, err)
	assert.Equal(t, "64", out)

	out, err = con.Exec("takeoff")
	require.NoError(t, err)
	assert.Equal(t, "OK", out)

	con.OutputJSON = true
	out, err = con.Exec("distance")
	require.NoError(t, err)
	assert.JSONEq(t, `{"line":"distance","value":900}`, out)

	_, err = con.Exec("flip x")
	assert.ErrorIs(t, err, tello.ErrInvalidArgument)

	require.NoError(t, con.Disconnect())
	assert.Equal(t, "", con.Endpoint())
}

func TestConsoleConnectDefaultPort(t *testing.T) {
	con := simConsole(t)
	con.Config.Drone.Port = "/dev/ttyUSB7"
	require.NoError(t, con.Connect(context.Background(), ""))
	assert.Equal(t, "/dev/ttyUSB7", con.Endpoint())

	// reconnect replaces the session
	require.NoError(t, con.Connect(context.Background(), "/dev/ttyUSB8"))
	assert.Equal(t, "/dev/ttyUSB8", con.Endpoint())
}

func TestConsoleRunFile(t *testing.T) {
	con := simConsole(t)
	path := filepath.Join(t.TempDir(), "mission.txt")
	require.NoError(t, os.WriteFile(path, []byte("# demo\ntakeoff\nbattery\nland\n"), 0o644))

	assert.EqualError(t, con.RunFile(context.Background(), path, nil), "not connected")

	require.NoError(t, con.Connect(context.Background(), ""))
	var seen []string
	require.NoError(t, con.RunFile(context.Background(), path, func(r tello.Result) {
		seen = append(seen, r.Line)
	}))
	assert.Equal(t, []string{"takeoff", "battery", "land"}, seen)

	assert.Error(t, con.RunFile(context.Background(), filepath.Join(t.TempDir(), "missing"), nil))
}

func TestCatalogCmds(t *testing.T) {
	names := map[string]string{}
	for _, cmd := range catalogCmds() {
		names[cmd.Name] = cmd.Help
	}
	for _, verb := range []string{"takeoff", "throwfly", "land", "stop", "go", "jump", "rotate", "flip",
		"battery", "speed", "distance", "led", "blink", "mclear", "mprint", "mchar", "wait", "raw", "flush"} {
		assert.Contains(t, names, verb)
	}
	assert.Equal(t, "mchar <r|b|p> <char>", names["mchar"])
	assert.Equal(t, "[/dev/ttyUSB0] > ", prompt("/dev/ttyUSB0"))
	assert.Equal(t, unconnectedPrompt, prompt(""))
}
