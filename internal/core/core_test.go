package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tellolink/internal/device/devicetest"
	"tellolink/internal/model"
	"tellolink/internal/protocol"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv(EnvPort, "")
	t.Setenv(EnvLogLevel, "")
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 115200, cfg.Drone.Baud)
	assert.NotEmpty(t, cfg.Drone.Port)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfigYAML(t *testing.T) {
	t.Setenv(EnvPort, "")
	path := writeFile(t, "tello.yml", `
drone:
  port: /dev/ttyACM0
  expansion: true
  handshake_timeout_ms: 3000
log:
  level: debug
sim:
  battery: 40
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyACM0", cfg.Drone.Port)
	assert.True(t, cfg.Drone.Expansion)
	assert.Equal(t, 115200, cfg.Drone.Baud)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 40, cfg.Sim.Battery)
	assert.Equal(t, 1234, cfg.Sim.Distance)

	opts := SessionOptions(cfg.Drone)
	assert.True(t, opts.Expansion)
	assert.Equal(t, 3*time.Second, opts.HandshakeTimeout)
}

func TestLoadConfigTOML(t *testing.T) {
	t.Setenv(EnvPort, "")
	path := writeFile(t, "tello.toml", `
[drone]
port = "COM6"
terminator = "\r\n"

[bridge]
addr = "127.0.0.1:9000"
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "COM6", cfg.Drone.Port)
	assert.Equal(t, "\r\n", cfg.Drone.Terminator)
	assert.Equal(t, "127.0.0.1:9000", cfg.Bridge.Addr)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv(EnvPort, "/dev/ttyS9")
	t.Setenv(EnvLogLevel, "warn")
	path := writeFile(t, "tello.yaml", "drone:\n  port: /dev/ttyUSB1\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyS9", cfg.Drone.Port)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadConfigErrors(t *testing.T) {
	t.Setenv(EnvPort, "")

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = LoadConfig(writeFile(t, "tello.json", "{}"))
	assert.ErrorContains(t, err, "unsupported format")

	_, err = LoadConfig(writeFile(t, "bad.yml", "drone: [1, 2"))
	assert.Error(t, err)

	_, err = LoadConfig(writeFile(t, "neg.yml", "drone:\n  settle_delay_ms: -1\n  terminator: \";\"\n"))
	assert.ErrorContains(t, err, "settle_delay_ms")
	assert.ErrorContains(t, err, "terminator")
}

func testSystem(t *testing.T, cfg model.Config, f *devicetest.Fake) *System {
	t.Helper()
	s := NewSystem(cfg)
	s.dial = func(ctx context.Context, endpoint string, baud int, opts protocol.Options) (*protocol.Session, error) {
		nop := zerolog.Nop()
		opts.Logger = &nop
		opts.Sleep = func(time.Duration) {}
		return protocol.Connect(ctx, f, endpoint, opts)
	}
	return s
}

func TestSystemLifecycle(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Drone.Expansion = true
	f := devicetest.New("!connected\n", "ok\n")
	s := testSystem(t, cfg, f)

	_, err := s.Drone()
	require.ErrorIs(t, err, ErrNotStarted)

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, 2, s.Session().ConnectID())

	d, err := s.Drone()
	require.NoError(t, err)
	require.NoError(t, d.Takeoff())

	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop())
	assert.True(t, f.Closed)
	assert.Nil(t, s.Session())
}

func TestSystemStartFailure(t *testing.T) {
	s := NewSystem(DefaultConfig())
	boom := errors.New("port busy")
	s.dial = func(context.Context, string, int, protocol.Options) (*protocol.Session, error) {
		return nil, boom
	}
	require.ErrorIs(t, s.Start(context.Background()), boom)
	_, err := s.Drone()
	assert.ErrorIs(t, err, ErrNotStarted)
}
