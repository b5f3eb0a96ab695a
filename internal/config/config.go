// YAML config loader with CUE validation integration
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// SerialConfig selects the radio modem port.
type SerialConfig struct {
	Port string `yaml:"port"` // device path or "auto"
	Baud int    `yaml:"baud"`
}

// JoystickConfig selects and tunes the operator gamepad.
type JoystickConfig struct {
	Device             string   `yaml:"device"` // event device path or "auto"
	DeadZone           float64  `yaml:"dead_zone"`
	InvertV            bool     `yaml:"invert_v"`
	InvertW            bool     `yaml:"invert_w"`
	TurnAxisCandidates []string `yaml:"turn_axis_candidates"`
}

// TxConfig tunes the outbound command loop.
type TxConfig struct {
	MaxRateHz    float64 `yaml:"max_rate_hz"`
	HBTimeoutSec float64 `yaml:"hb_timeout_sec"`
}

// Period returns the command loop interval.
func (c TxConfig) Period() time.Duration {
	return time.Duration(float64(time.Second) / c.MaxRateHz)
}

// HBTimeout returns the heartbeat staleness gate.
func (c TxConfig) HBTimeout() time.Duration {
	return time.Duration(c.HBTimeoutSec * float64(time.Second))
}

// ProtocolConfig names the tokens recognized on the inbound serial side.
type ProtocolConfig struct {
	HBMsg           string `yaml:"hb_msg"`
	TimeoutMsg      string `yaml:"timeout_msg"`
	TimeoutClearMsg string `yaml:"timeout_clear_msg"`
}

// ModesConfig tunes the hold-to-toggle combos and speed scales.
type ModesConfig struct {
	StartSleep        bool    `yaml:"start_sleep"`
	ComboHoldSec      float64 `yaml:"combo_hold_sec"`
	SpeedDefaultScale float64 `yaml:"speed_default_scale"`
	SpeedPlusScale    float64 `yaml:"speed_plus_scale"`
}

// ComboHold returns the hold duration for mode combos.
func (c ModesConfig) ComboHold() time.Duration {
	return time.Duration(c.ComboHoldSec * float64(time.Second))
}

// CameraConfig points at the external frame encoder. An empty stream URL
// disables the frame route's producer.
type CameraConfig struct {
	StreamURL string  `yaml:"stream_url"`
	TargetFPS float64 `yaml:"target_fps"` // 0 = unthrottled
}

// FramePeriod returns the minimum spacing between frame sends.
func (c CameraConfig) FramePeriod() time.Duration {
	if c.TargetFPS <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / c.TargetFPS)
}

// WSConfig tunes the websocket endpoint.
type WSConfig struct {
	Host      string  `yaml:"host"`
	Port      int     `yaml:"port"`
	PublishHz float64 `yaml:"publish_hz"`
}

// Addr returns the listen address.
func (c WSConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// PublishPeriod returns the telemetry broadcast cadence.
func (c WSConfig) PublishPeriod() time.Duration {
	return time.Duration(float64(time.Second) / c.PublishHz)
}

// Config is the root bridge configuration.
type Config struct {
	Serial   SerialConfig   `yaml:"serial"`
	Joystick JoystickConfig `yaml:"joystick"`
	TX       TxConfig       `yaml:"tx"`
	Protocol ProtocolConfig `yaml:"protocol"`
	Modes    ModesConfig    `yaml:"modes"`
	Camera   CameraConfig   `yaml:"camera"`
	WS       WSConfig       `yaml:"ws"`
}

// Default returns the configuration used when no file is present. The
// values match the bridge's historical defaults.
func Default() Config {
	return Config{
		Serial: SerialConfig{Port: "auto", Baud: 9600},
		Joystick: JoystickConfig{
			Device:             "auto",
			DeadZone:           0.05,
			TurnAxisCandidates: []string{"ABS_RX", "ABS_Z", "ABS_RY"},
		},
		TX: TxConfig{MaxRateHz: 10.0, HBTimeoutSec: 15.0},
		Protocol: ProtocolConfig{
			HBMsg:           "READY",
			TimeoutMsg:      "TIMEOUT",
			TimeoutClearMsg: "TIMEOUT_CLEAR",
		},
		Modes: ModesConfig{
			StartSleep:        true,
			ComboHoldSec:      3.0,
			SpeedDefaultScale: 0.70,
			SpeedPlusScale:    1.00,
		},
		Camera: CameraConfig{TargetFPS: 30},
		WS:     WSConfig{Host: "0.0.0.0", Port: 8765, PublishHz: 2.0},
	}
}

// Load reads the YAML config, validates it against the CUE schema, and
// merges it over the defaults. A missing config file yields the defaults; a
// present but invalid one is an error.
func Load(configPath, cueSchemaPath string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		return &cfg, nil
	}
	if err != nil {
		return nil, err
	}

	if cueSchemaPath != "" {
		if err := ValidateWithCue(configPath, cueSchemaPath); err != nil {
			return nil, err
		}
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.check(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// check catches values the schema cannot express cleanly.
func (c *Config) check() error {
	if c.TX.MaxRateHz <= 0 {
		return fmt.Errorf("config: tx.max_rate_hz must be > 0")
	}
	if c.TX.HBTimeoutSec <= 0 {
		return fmt.Errorf("config: tx.hb_timeout_sec must be > 0")
	}
	if c.WS.PublishHz <= 0 {
		return fmt.Errorf("config: ws.publish_hz must be > 0")
	}
	if c.Protocol.HBMsg == "" {
		return fmt.Errorf("config: protocol.hb_msg must not be empty")
	}
	if len(c.Joystick.TurnAxisCandidates) == 0 {
		return fmt.Errorf("config: joystick.turn_axis_candidates must not be empty")
	}
	return nil
}
