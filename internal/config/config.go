// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads the tclstat configuration tree from YAML, the
// environment and defaults.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
	"go.bug.st/serial"
	"gopkg.in/yaml.v3"

	"github.com/Thermoquad/tclstat/pkg/tclac"
)

const (
	// ConfigEnvVar names the config file when --config is not given
	ConfigEnvVar = "TCLSTAT_CONFIG"
	// EnvPrefix prefixes every environment override, e.g. TCLSTAT_SERIAL_PORT
	EnvPrefix = "TCLSTAT"
	// DefaultFile is read from the working directory when present
	DefaultFile = "tclstat.yaml"
)

// SerialConfig describes the UART link to the indoor unit
type SerialConfig struct {
	Port        string        `mapstructure:"port" yaml:"port"`
	Baud        int           `mapstructure:"baud" yaml:"baud"`
	DataBits    int           `mapstructure:"data_bits" yaml:"data_bits"`
	Parity      string        `mapstructure:"parity" yaml:"parity"`
	StopBits    int           `mapstructure:"stop_bits" yaml:"stop_bits"`
	ReadTimeout time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
}

// WebSocketConfig describes a serial-to-websocket bridge
type WebSocketConfig struct {
	URL         string `mapstructure:"url" yaml:"url"`
	Username    string `mapstructure:"username" yaml:"username"`
	NoSSLVerify bool   `mapstructure:"no_ssl_verify" yaml:"no_ssl_verify"`
}

// ProtocolConfig tunes the protocol engine
type ProtocolConfig struct {
	TempResponseCommand int           `mapstructure:"temp_response_command" yaml:"temp_response_command"`
	PollInterval        time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
}

// DeviceConfig holds the installation defaults applied at startup
type DeviceConfig struct {
	Beeper              bool   `mapstructure:"beeper" yaml:"beeper"`
	Display             bool   `mapstructure:"display" yaml:"display"`
	VerticalDirection   string `mapstructure:"vertical_direction" yaml:"vertical_direction"`
	HorizontalDirection string `mapstructure:"horizontal_direction" yaml:"horizontal_direction"`
}

// MQTTConfig configures the Home Assistant bridge
type MQTTConfig struct {
	Enable          bool   `mapstructure:"enable" yaml:"enable"`
	Broker          string `mapstructure:"broker" yaml:"broker"`
	ClientID        string `mapstructure:"client_id" yaml:"client_id"`
	Username        string `mapstructure:"username" yaml:"username"`
	Password        string `mapstructure:"password" yaml:"password"`
	TopicPrefix     string `mapstructure:"topic_prefix" yaml:"topic_prefix"`
	DiscoveryPrefix string `mapstructure:"discovery_prefix" yaml:"discovery_prefix"`
	DeviceName      string `mapstructure:"device_name" yaml:"device_name"`
	SmoothingWindow int    `mapstructure:"smoothing_window" yaml:"smoothing_window"`
}

// HTTPConfig configures the REST and metrics server
type HTTPConfig struct {
	Enable       bool          `mapstructure:"enable" yaml:"enable"`
	Addr         string        `mapstructure:"addr" yaml:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	MetricsPath  string        `mapstructure:"metrics_path" yaml:"metrics_path"`
	ControlRate  float64       `mapstructure:"control_rate" yaml:"control_rate"`
	ControlBurst int           `mapstructure:"control_burst" yaml:"control_burst"`
}

// LumberjackConfig configures log file rotation
type LumberjackConfig struct {
	Filename   string `mapstructure:"filename" yaml:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age" yaml:"max_age"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// LoggingConfig selects level, encoding and optional file output
type LoggingConfig struct {
	Level  string           `mapstructure:"level" yaml:"level"`
	Format string           `mapstructure:"format" yaml:"format"`
	File   LumberjackConfig `mapstructure:"file" yaml:"file"`
}

// CaptureConfig enables recording of the raw byte stream
type CaptureConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// Config is the top-level configuration
type Config struct {
	Serial    SerialConfig    `mapstructure:"serial" yaml:"serial"`
	WebSocket WebSocketConfig `mapstructure:"websocket" yaml:"websocket"`
	Protocol  ProtocolConfig  `mapstructure:"protocol" yaml:"protocol"`
	Device    DeviceConfig    `mapstructure:"device" yaml:"device"`
	MQTT      MQTTConfig      `mapstructure:"mqtt" yaml:"mqtt"`
	HTTP      HTTPConfig      `mapstructure:"http" yaml:"http"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	Capture   CaptureConfig   `mapstructure:"capture" yaml:"capture"`
}

// Load reads configuration from path, the TCLSTAT_* environment and the
// built-in defaults. An empty path falls back to $TCLSTAT_CONFIG and then
// to ./tclstat.yaml; a missing default file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path == "" {
		path = os.Getenv(ConfigEnvVar)
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(strings.TrimSuffix(DefaultFile, ".yaml"))
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration with every default applied
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("config defaults do not decode: %v", err))
	}
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("serial.port", "")
	v.SetDefault("serial.baud", 9600)
	v.SetDefault("serial.data_bits", 8)
	v.SetDefault("serial.parity", "even")
	v.SetDefault("serial.stop_bits", 1)
	v.SetDefault("serial.read_timeout", "100ms")

	v.SetDefault("websocket.url", "")
	v.SetDefault("websocket.username", "admin")
	v.SetDefault("websocket.no_ssl_verify", false)

	v.SetDefault("protocol.temp_response_command", tclac.DefaultTempResponseCommand)
	v.SetDefault("protocol.poll_interval", "5s")

	v.SetDefault("device.beeper", true)
	v.SetDefault("device.display", false)
	v.SetDefault("device.vertical_direction", "max_down")
	v.SetDefault("device.horizontal_direction", "max_right")

	v.SetDefault("mqtt.enable", false)
	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.client_id", "")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.topic_prefix", "tclstat")
	v.SetDefault("mqtt.discovery_prefix", "homeassistant")
	v.SetDefault("mqtt.device_name", "living_room")
	v.SetDefault("mqtt.smoothing_window", 30)

	v.SetDefault("http.enable", false)
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.read_timeout", "5s")
	v.SetDefault("http.write_timeout", "10s")
	v.SetDefault("http.metrics_path", "/metrics")
	v.SetDefault("http.control_rate", 2.0)
	v.SetDefault("http.control_burst", 4)

	v.SetDefault("logging.level", "")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file.filename", "")
	v.SetDefault("logging.file.max_size", 10)
	v.SetDefault("logging.file.max_backups", 3)
	v.SetDefault("logging.file.max_age", 28)
	v.SetDefault("logging.file.compress", true)

	v.SetDefault("capture.path", "")
}

func (c *Config) normalize() {
	c.Serial.Parity = strings.ToLower(strings.TrimSpace(c.Serial.Parity))
	c.Device.VerticalDirection = strings.ToLower(strings.TrimSpace(c.Device.VerticalDirection))
	c.Device.HorizontalDirection = strings.ToLower(strings.TrimSpace(c.Device.HorizontalDirection))
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "tclstat-" + uuid.NewString()
	}
}

// Validate checks the values Load cannot default its way out of
func (c *Config) Validate() error {
	if c.Serial.Baud <= 0 {
		return fmt.Errorf("serial.baud must be positive, got %d", c.Serial.Baud)
	}
	if c.Serial.DataBits < 5 || c.Serial.DataBits > 8 {
		return fmt.Errorf("serial.data_bits must be 5..8, got %d", c.Serial.DataBits)
	}
	if _, err := c.Serial.parity(); err != nil {
		return err
	}
	if _, err := c.Serial.stopBits(); err != nil {
		return err
	}
	if c.Protocol.TempResponseCommand < 0 || c.Protocol.TempResponseCommand > 0xFF {
		return fmt.Errorf("protocol.temp_response_command must fit in a byte, got %d", c.Protocol.TempResponseCommand)
	}
	if c.Protocol.PollInterval < time.Second {
		return fmt.Errorf("protocol.poll_interval must be at least 1s, got %s", c.Protocol.PollInterval)
	}
	if _, err := c.Device.InitialState(); err != nil {
		return err
	}
	if c.MQTT.Enable && c.MQTT.Broker == "" {
		return errors.New("mqtt.broker is required when mqtt.enable is set")
	}
	if c.HTTP.Enable && (c.HTTP.ControlRate <= 0 || c.HTTP.ControlBurst <= 0) {
		return errors.New("http.control_rate and http.control_burst must be positive")
	}
	return nil
}

// Mode returns the go.bug.st/serial port settings
func (s SerialConfig) Mode() (*serial.Mode, error) {
	parity, err := s.parity()
	if err != nil {
		return nil, err
	}
	stop, err := s.stopBits()
	if err != nil {
		return nil, err
	}
	return &serial.Mode{
		BaudRate: s.Baud,
		DataBits: s.DataBits,
		Parity:   parity,
		StopBits: stop,
	}, nil
}

func (s SerialConfig) parity() (serial.Parity, error) {
	switch strings.ToLower(s.Parity) {
	case "none", "n":
		return serial.NoParity, nil
	case "even", "e":
		return serial.EvenParity, nil
	case "odd", "o":
		return serial.OddParity, nil
	case "mark", "m":
		return serial.MarkParity, nil
	case "space", "s":
		return serial.SpaceParity, nil
	}
	return serial.NoParity, fmt.Errorf("serial.parity %q is not one of none, even, odd, mark, space", s.Parity)
}

func (s SerialConfig) stopBits() (serial.StopBits, error) {
	switch s.StopBits {
	case 1:
		return serial.OneStopBit, nil
	case 2:
		return serial.TwoStopBits, nil
	}
	return serial.OneStopBit, fmt.Errorf("serial.stop_bits must be 1 or 2, got %d", s.StopBits)
}

// InitialState seeds a DeviceState with the installation defaults.
// "swing" selects oscillation with the vane position left at Last.
func (d DeviceConfig) InitialState() (tclac.DeviceState, error) {
	s := tclac.DefaultState()
	s.Beeper = d.Beeper
	s.Display = d.Display

	switch d.VerticalDirection {
	case "swing":
		s.VerticalSwing = tclac.VSwingUpDown
		s.VerticalAirflow = tclac.VAirLast
	case "last":
		return s, fmt.Errorf("device.vertical_direction: %w: %q", tclac.ErrInvalidValue, d.VerticalDirection)
	default:
		v, err := tclac.ParseVerticalAirflow(d.VerticalDirection)
		if err != nil {
			return s, fmt.Errorf("device.vertical_direction: %w", err)
		}
		s.VerticalAirflow = v
	}

	switch d.HorizontalDirection {
	case "swing":
		s.HorizontalSwing = tclac.HSwingLeftRight
		s.HorizontalAirflow = tclac.HAirLast
	case "last":
		return s, fmt.Errorf("device.horizontal_direction: %w: %q", tclac.ErrInvalidValue, d.HorizontalDirection)
	default:
		h, err := tclac.ParseHorizontalAirflow(d.HorizontalDirection)
		if err != nil {
			return s, fmt.Errorf("device.horizontal_direction: %w", err)
		}
		s.HorizontalAirflow = h
	}
	return s, nil
}

// FramerOptions returns the framer settings implied by the protocol section
func (p ProtocolConfig) FramerOptions() []tclac.FramerOption {
	return []tclac.FramerOption{tclac.WithTempResponseCommand(uint8(p.TempResponseCommand))}
}

// WriteTemplate writes the default configuration as commented YAML
func WriteTemplate(w io.Writer) error {
	cfg := Default()

	if _, err := fmt.Fprintf(w, "# tclstat configuration\n# Every key may be overridden with %s_<SECTION>_<KEY>.\n", EnvPrefix); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("encode template: %w", err)
	}
	return enc.Close()
}
