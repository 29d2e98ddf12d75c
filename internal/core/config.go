package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"tellolink/internal/device"
	"tellolink/internal/model"
)

// Environment overrides applied after the config file.
const (
	EnvPort     = "TELLO_PORT"
	EnvLogLevel = "TELLO_LOG_LEVEL"
)

// DefaultConfig returns the settings used when no file is given.
func DefaultConfig() model.Config {
	return model.Config{
		Drone: model.DroneConfig{
			Port: defaultPort(),
			Baud: device.DefaultBaud,
		},
		Log:    model.LogConfig{Level: "info", Console: true},
		Bridge: model.BridgeConfig{Addr: ":8090"},
		Sim: model.SimConfig{
			Battery:  85,
			Speed:    10,
			Distance: 1234,
		},
	}
}

func defaultPort() string {
	if os.PathSeparator == '\\' {
		return "COM3"
	}
	return "/dev/ttyUSB0"
}

// LoadConfig reads path (YAML or TOML, picked by extension) over the
// defaults. An empty path yields the defaults. Environment overrides are
// applied last.
func LoadConfig(path string) (model.Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".toml":
			if err := toml.Unmarshal(b, &cfg); err != nil {
				return cfg, fmt.Errorf("decode %s: %w", path, err)
			}
		case ".yml", ".yaml":
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return cfg, fmt.Errorf("decode %s: %w", path, err)
			}
		default:
			return cfg, fmt.Errorf("config %s: unsupported format (want .yml, .yaml or .toml)", path)
		}
	}
	applyEnv(&cfg)
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *model.Config) {
	if v := strings.TrimSpace(os.Getenv(EnvPort)); v != "" {
		cfg.Drone.Port = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Log.Level = v
	}
}

// Validate rejects settings the adapter cannot work with.
func Validate(cfg model.Config) error {
	var errs []error
	if cfg.Drone.Port == "" {
		errs = append(errs, errors.New("drone.port is required"))
	}
	if cfg.Drone.Baud < 0 {
		errs = append(errs, fmt.Errorf("drone.baud %d is negative", cfg.Drone.Baud))
	}
	switch cfg.Drone.Terminator {
	case "", "\n", "\r\n":
	default:
		errs = append(errs, fmt.Errorf("drone.terminator %q: want empty, \\n or \\r\\n", cfg.Drone.Terminator))
	}
	for name, v := range map[string]int{
		"drone.handshake_timeout_ms":   cfg.Drone.HandshakeTimeoutMs,
		"drone.settle_delay_ms":        cfg.Drone.SettleDelayMs,
		"drone.display_pause_ms":       cfg.Drone.DisplayPauseMs,
		"drone.max_handshake_attempts": cfg.Drone.MaxHandshakeAttempts,
	} {
		if v < 0 {
			errs = append(errs, fmt.Errorf("%s %d is negative", name, v))
		}
	}
	if cfg.Sim.Battery < 0 || cfg.Sim.Battery > 100 {
		errs = append(errs, fmt.Errorf("sim.battery %d out of 0..100", cfg.Sim.Battery))
	}
	return errors.Join(errs...)
}
