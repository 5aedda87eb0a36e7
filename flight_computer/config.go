package main

import (
	"fmt"
	"net"
	"os"

	"gopkg.in/yaml.v3"

	"av-fc-core/flight_computer/executive"
	"av-fc-core/flight_computer/framing"
	"av-fc-core/flight_computer/messages"
	control "av-fc-core/flight_computer/roll_control"
)

type ListenConfig struct {
	Address string `yaml:"address"` // 0.0.0.0:36000
}

type PortsConfig struct {
	ADIS uint16 `yaml:"adis"`
}

type TelemetryConfig struct {
	Address      string `yaml:"address"`       // ground station host:port
	PacketLimit  int    `yaml:"packet_limit"`  // bytes, sequence prefix included
	TOS          int    `yaml:"tos"`           // IPv4 TOS byte, 0 leaves the default
	MulticastTTL int    `yaml:"multicast_ttl"` // only used for multicast destinations
}

type FlightLogConfig struct {
	Dir    string `yaml:"dir"`
	Prefix string `yaml:"prefix"`
}

type BusConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Interface string   `yaml:"interface"` // can0, vcan0
	MapPath   string   `yaml:"map"`
	Frames    []string `yaml:"frames"`
}

// Config is the flight computer's startup configuration. It is read once;
// nothing in it changes during a run.
type Config struct {
	Listen         ListenConfig      `yaml:"listen"`
	Ports          PortsConfig       `yaml:"ports"`
	Telemetry      TelemetryConfig   `yaml:"telemetry"`
	FlightLog      FlightLogConfig   `yaml:"flight_log"`
	LaunchAltitude float64           `yaml:"launch_site_altitude_m"`
	Control        control.PIDConfig `yaml:"control"`
	Bus            BusConfig         `yaml:"bus"`
}

func DefaultConfig() *Config {
	return &Config{
		Listen: ListenConfig{Address: "0.0.0.0:36000"},
		Ports:  PortsConfig{ADIS: executive.DefaultADISPort},
		Telemetry: TelemetryConfig{
			Address:      "127.0.0.1:35001",
			PacketLimit:  framing.DefaultPacketLimit,
			MulticastTTL: 1,
		},
		FlightLog: FlightLogConfig{
			Dir:    ".",
			Prefix: "logfile-",
		},
		LaunchAltitude: messages.LaunchSiteAltitude,
		Control:        control.DefaultPIDConfig(),
		Bus: BusConfig{
			Interface: "vcan0",
			MapPath:   "config/can/state_bus.csv",
			Frames:    []string{"FC_STATE_1", "FC_STATE_2"},
		},
	}
}

// LoadConfig layers the YAML file at path over DefaultConfig. An empty path
// returns the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse yaml %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if _, err := net.ResolveUDPAddr("udp", c.Listen.Address); err != nil {
		return fmt.Errorf("invalid listen.address %q: %w", c.Listen.Address, err)
	}
	if _, err := net.ResolveUDPAddr("udp", c.Telemetry.Address); err != nil {
		return fmt.Errorf("invalid telemetry.address %q: %w", c.Telemetry.Address, err)
	}
	if c.Ports.ADIS == 0 {
		return fmt.Errorf("ports.adis must be set")
	}
	if floor := messages.SequenceSize + messages.HeaderSize; c.Telemetry.PacketLimit < floor {
		return fmt.Errorf("telemetry.packet_limit %d is below %d", c.Telemetry.PacketLimit, floor)
	}
	if c.Telemetry.TOS < 0 || c.Telemetry.TOS > 255 {
		return fmt.Errorf("telemetry.tos %d out of range", c.Telemetry.TOS)
	}
	if c.Control.MinIntegrator > c.Control.MaxIntegrator {
		return fmt.Errorf("control.min_integrator %.1f above max_integrator %.1f",
			c.Control.MinIntegrator, c.Control.MaxIntegrator)
	}
	if c.FlightLog.Prefix == "" {
		return fmt.Errorf("flight_log.prefix must be set")
	}
	if c.Bus.Enabled && (c.Bus.Interface == "" || c.Bus.MapPath == "" || len(c.Bus.Frames) == 0) {
		return fmt.Errorf("bus.enabled requires interface, map and frames")
	}
	return nil
}

// Executive returns the core settings.
func (c *Config) Executive() executive.Config {
	return executive.Config{
		ADISPort:       c.Ports.ADIS,
		LaunchAltitude: c.LaunchAltitude,
		PID:            c.Control,
		PacketLimit:    c.Telemetry.PacketLimit,
	}
}
