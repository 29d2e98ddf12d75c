// Package model defines the configuration structures used to initialize
// tellolink. The same structs decode from YAML or TOML.
package model

// Config represents the root structure loaded from configs/tello.yml.
type Config struct {
	Drone  DroneConfig  `yaml:"drone" toml:"drone"`
	Log    LogConfig    `yaml:"log" toml:"log"`
	Bridge BridgeConfig `yaml:"bridge" toml:"bridge"`
	Sim    SimConfig    `yaml:"sim" toml:"sim"`
}

// DroneConfig defines how the serial session to the adapter is opened.
type DroneConfig struct {
	Port       string `yaml:"port" toml:"port"`           // serial device (e.g. /dev/ttyUSB0, COM3)
	Baud       int    `yaml:"baud" toml:"baud"`           // fixed at 115200 by the adapter
	Expansion  bool   `yaml:"expansion" toml:"expansion"` // expansion module fitted: pair on connect_2
	Terminator string `yaml:"terminator" toml:"terminator"`

	HandshakeTimeoutMs   int `yaml:"handshake_timeout_ms" toml:"handshake_timeout_ms"`
	SettleDelayMs        int `yaml:"settle_delay_ms" toml:"settle_delay_ms"`
	DisplayPauseMs       int `yaml:"display_pause_ms" toml:"display_pause_ms"`
	MaxHandshakeAttempts int `yaml:"max_handshake_attempts" toml:"max_handshake_attempts"` // 0 = retry forever
}

// LogConfig selects the zerolog level and output format.
type LogConfig struct {
	Level   string `yaml:"level" toml:"level"`
	Console bool   `yaml:"console" toml:"console"` // human-readable instead of JSON
}

// BridgeConfig defines the websocket remote-command bridge.
type BridgeConfig struct {
	Addr string `yaml:"addr" toml:"addr"` // listen address (e.g. ":8090")
}

// SimConfig defines the simulated adapter.
type SimConfig struct {
	Port     string  `yaml:"port" toml:"port"` // device the simulator serves on
	Peer     string  `yaml:"peer" toml:"peer"` // when set, a socat pair Port<->Peer is created
	Battery  int     `yaml:"battery" toml:"battery"`
	Speed    float64 `yaml:"speed" toml:"speed"`
	Distance int     `yaml:"distance" toml:"distance"`
}
