package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Domus Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Coordinator CoordinatorConfig    `yaml:"coordinator"`
	MQTT        MQTTConfig           `yaml:"mqtt"`
	Broker      EmbeddedBrokerConfig `yaml:"embedded_broker"`
	Fleet       FleetConfig          `yaml:"fleet"`
	InfluxDB    InfluxDBConfig       `yaml:"influxdb"`
	Logging     LoggingConfig        `yaml:"logging"`
}

// CoordinatorConfig contains coordinator identity settings.
type CoordinatorConfig struct {
	Name string `yaml:"name"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker MQTTBrokerConfig `yaml:"broker"`
	Auth   MQTTAuthConfig   `yaml:"auth"`
	QoS    int              `yaml:"qos"`

	// PaceMS is a fixed delay applied after every publish so a burst of
	// simulated devices does not overrun the broker.
	PaceMS int `yaml:"pace_ms"`

	// RegisterTimeout bounds the wait for the coordinator's regSuccess,
	// in seconds.
	RegisterTimeout int `yaml:"register_timeout"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
// The primary address is tried first; the fallback once after that.
type MQTTBrokerConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	FallbackHost string `yaml:"fallback_host"`
	FallbackPort int    `yaml:"fallback_port"`

	// ClientPrefix is prepended to every generated MQTT client id.
	ClientPrefix string `yaml:"client_prefix"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// EmbeddedBrokerConfig controls the in-process MQTT broker used for
// self-contained simulation runs.
type EmbeddedBrokerConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// FleetConfig describes the simulated device fleet.
type FleetConfig struct {
	Devices []FleetDevice `yaml:"devices"`

	// SamplePeriodMS is how often sensor devices take a raw sample.
	SamplePeriodMS int `yaml:"sample_period_ms"`
}

// FleetDevice is a single simulated device declaration.
type FleetDevice struct {
	Type string `yaml:"type"`
	ID   string `yaml:"id"`
	Room string `yaml:"room"`
}

// InfluxDBConfig contains the optional telemetry sink settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
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
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: DOMUS_SECTION_KEY
// For example: DOMUS_MQTT_HOST, DOMUS_INFLUXDB_TOKEN
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
//
// The primary broker address assumes a containerised broker; the fallback
// is a broker on the local host.
func defaultConfig() *Config {
	return &Config{
		Coordinator: CoordinatorConfig{
			Name: "homeCoordinator",
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:         "broker",
				Port:         1883,
				FallbackHost: "localhost",
				FallbackPort: 1883,
				ClientPrefix: "domus",
			},
			QoS:             1,
			PaceMS:          50,
			RegisterTimeout: 10,
		},
		Broker: EmbeddedBrokerConfig{
			Enabled: true,
			Port:    1883,
		},
		Fleet: FleetConfig{
			SamplePeriodMS: 1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: DOMUS_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Coordinator
	if v := os.Getenv("DOMUS_COORDINATOR_NAME"); v != "" {
		cfg.Coordinator.Name = v
	}

	// MQTT
	if v := os.Getenv("DOMUS_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("DOMUS_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
	if v := os.Getenv("DOMUS_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("DOMUS_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("DOMUS_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
	if v := os.Getenv("DOMUS_INFLUXDB_URL"); v != "" {
		cfg.InfluxDB.URL = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Coordinator.Name == "" {
		errs = append(errs, "coordinator.name is required")
	}

	if c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.PaceMS < 0 {
		errs = append(errs, "mqtt.pace_ms must not be negative")
	}
	if c.MQTT.RegisterTimeout < 1 {
		errs = append(errs, "mqtt.register_timeout must be at least 1 second")
	}

	if c.Broker.Enabled && (c.Broker.Port < 1 || c.Broker.Port > 65535) {
		errs = append(errs, "embedded_broker.port must be between 1 and 65535")
	}

	if c.Fleet.SamplePeriodMS < 1 {
		errs = append(errs, "fleet.sample_period_ms must be at least 1")
	}

	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Token == "" {
			errs = append(errs, "influxdb.token is required when influxdb is enabled (set DOMUS_INFLUXDB_TOKEN)")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetPace returns the post-publish pacing delay as a Duration.
func (c *MQTTConfig) GetPace() time.Duration {
	return time.Duration(c.PaceMS) * time.Millisecond
}

// GetRegisterTimeout returns the registration wait bound as a Duration.
func (c *MQTTConfig) GetRegisterTimeout() time.Duration {
	return time.Duration(c.RegisterTimeout) * time.Second
}

// GetSamplePeriod returns the sensor sampling period as a Duration.
func (c *FleetConfig) GetSamplePeriod() time.Duration {
	return time.Duration(c.SamplePeriodMS) * time.Millisecond
}
