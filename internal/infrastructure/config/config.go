package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Transport kinds.
const (
	TransportMQTT = "mqtt"
	TransportNATS = "nats"
)

// Hardware backends.
const (
	BackendSimulated = "simulated"
	BackendRaspi     = "raspi"
)

// envFileName is the optional secrets file read from the config directory.
const envFileName = ".env"

// Config is the root configuration structure for the device hub.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Transport TransportConfig `yaml:"transport"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	NATS      NATSConfig      `yaml:"nats"`
	Reconnect ReconnectConfig `yaml:"reconnect"`
	Hardware  HardwareConfig  `yaml:"hardware"`
	Monitor   MonitorConfig   `yaml:"monitor"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// TransportConfig selects the pub/sub transport.
type TransportConfig struct {
	Kind string `yaml:"kind"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig `yaml:"broker"`
	Auth      MQTTAuthConfig   `yaml:"auth"`
	QoS       int              `yaml:"qos"`
	Topic     string           `yaml:"topic"`
	KeepAlive int              `yaml:"keep_alive"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// NATSConfig contains NATS connection settings.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Name    string `yaml:"name"`
	Subject string `yaml:"subject"`
	Token   string `yaml:"token"`
}

// ReconnectConfig contains the connection supervisor's retry policy.
type ReconnectConfig struct {
	// Delay is the fixed wait between failed reconnect attempts, in seconds.
	Delay int `yaml:"delay"`
}

// HardwareConfig selects and configures the hardware backend.
type HardwareConfig struct {
	Backend    string       `yaml:"backend"`
	Seed       int64        `yaml:"seed"`
	LCDAddress int          `yaml:"lcd_address"`
	LCDBus     int          `yaml:"lcd_bus"`
	Keypad     KeypadConfig `yaml:"keypad"`
}

// KeypadConfig describes the statically wired matrix keypad (BCM numbering).
type KeypadConfig struct {
	Rows    []int `yaml:"rows"`
	Columns []int `yaml:"columns"`
}

// MonitorConfig contains defaults and fixed timings for sensor monitors.
type MonitorConfig struct {
	DefaultInterval int `yaml:"default_interval"` // seconds
	DefaultDuration int `yaml:"default_duration"` // seconds
	ButtonPollMS    int `yaml:"button_poll_ms"`
	ButtonSettleMS  int `yaml:"button_settle_ms"`
	KeypadPollMS    int `yaml:"keypad_poll_ms"`
	KeypadSettleMS  int `yaml:"keypad_settle_ms"`
	LDRPeriodMS     int `yaml:"ldr_period_ms"`
	ShutdownTimeout int `yaml:"shutdown_timeout"` // seconds
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. .env file next to the config file, if present (never overrides the real environment)
//  4. Environment variables (override file values)
//
// Environment variables follow the pattern: GPIOHUB_SECTION_KEY
// For example: GPIOHUB_MQTT_HOST, GPIOHUB_MQTT_PASSWORD
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := loadDotEnv(filepath.Join(filepath.Dir(path), envFileName)); err != nil {
		return nil, fmt.Errorf("loading env file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// loadDotEnv loads environment variables from path. Missing files are ignored.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Default returns the built-in configuration, used when no file is present.
func Default() *Config {
	return defaultConfig()
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Transport: TransportConfig{Kind: TransportMQTT},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "gpiohub",
			},
			QoS:       1,
			Topic:     "gpiohub/devices",
			KeepAlive: 60,
		},
		NATS: NATSConfig{
			URL:     "nats://localhost:4222",
			Name:    "gpiohub",
			Subject: "gpiohub.devices",
		},
		Reconnect: ReconnectConfig{Delay: 5},
		Hardware: HardwareConfig{
			Backend:    BackendSimulated,
			Seed:       1,
			LCDAddress: 0x27,
			LCDBus:     1,
			Keypad: KeypadConfig{
				Rows:    []int{2, 3, 4, 5},
				Columns: []int{6, 7, 8, 9},
			},
		},
		Monitor: MonitorConfig{
			DefaultInterval: 1,
			DefaultDuration: 10,
			ButtonPollMS:    100,
			ButtonSettleMS:  200,
			KeypadPollMS:    100,
			KeypadSettleMS:  200,
			LDRPeriodMS:     1000,
			ShutdownTimeout: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: GPIOHUB_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GPIOHUB_TRANSPORT"); v != "" {
		cfg.Transport.Kind = v
	}

	// MQTT
	if v := os.Getenv("GPIOHUB_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("GPIOHUB_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
	if v := os.Getenv("GPIOHUB_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("GPIOHUB_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
	if v := os.Getenv("GPIOHUB_MQTT_TOPIC"); v != "" {
		cfg.MQTT.Topic = v
	}

	// NATS
	if v := os.Getenv("GPIOHUB_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("GPIOHUB_NATS_TOKEN"); v != "" {
		cfg.NATS.Token = v
	}

	// Hardware
	if v := os.Getenv("GPIOHUB_HARDWARE_BACKEND"); v != "" {
		cfg.Hardware.Backend = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	switch c.Transport.Kind {
	case TransportMQTT:
		if c.MQTT.Broker.Host == "" {
			errs = append(errs, "mqtt.broker.host is required")
		}
		if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
			errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
		}
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errs = append(errs, "mqtt.qos must be 0, 1, or 2")
		}
		if c.MQTT.Topic == "" {
			errs = append(errs, "mqtt.topic is required")
		}
		if strings.ContainsAny(c.MQTT.Topic, "+#") {
			errs = append(errs, "mqtt.topic must not contain wildcards")
		}
	case TransportNATS:
		if c.NATS.URL == "" {
			errs = append(errs, "nats.url is required")
		}
		if c.NATS.Subject == "" {
			errs = append(errs, "nats.subject is required")
		}
	default:
		errs = append(errs, fmt.Sprintf("transport.kind %q must be %q or %q", c.Transport.Kind, TransportMQTT, TransportNATS))
	}

	if c.Reconnect.Delay < 1 {
		errs = append(errs, "reconnect.delay must be at least 1 second")
	}

	switch c.Hardware.Backend {
	case BackendSimulated, BackendRaspi:
	default:
		errs = append(errs, fmt.Sprintf("hardware.backend %q must be %q or %q", c.Hardware.Backend, BackendSimulated, BackendRaspi))
	}
	if len(c.Hardware.Keypad.Rows) == 0 || len(c.Hardware.Keypad.Columns) == 0 {
		errs = append(errs, "hardware.keypad rows and columns are required")
	}

	if c.Monitor.DefaultInterval < 1 {
		errs = append(errs, "monitor.default_interval must be at least 1 second")
	}
	if c.Monitor.DefaultDuration < 1 {
		errs = append(errs, "monitor.default_duration must be at least 1 second")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// Topic returns the command/event topic for the configured transport.
// The same topic carries inbound commands and outbound events.
func (c *Config) Topic() string {
	if c.Transport.Kind == TransportNATS {
		return c.NATS.Subject
	}
	return c.MQTT.Topic
}

// GetReconnectDelay returns the supervisor retry delay as a Duration.
func (c *Config) GetReconnectDelay() time.Duration {
	return time.Duration(c.Reconnect.Delay) * time.Second
}

// GetShutdownTimeout returns the monitor shutdown budget as a Duration.
func (c *Config) GetShutdownTimeout() time.Duration {
	return time.Duration(c.Monitor.ShutdownTimeout) * time.Second
}
