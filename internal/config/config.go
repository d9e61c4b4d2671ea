package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration decodes YAML strings like "25m" or "2h" into a time.Duration.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the process configuration, loaded from an optional YAML file
// with environment overrides on top.
type Config struct {
	Addr    string        `yaml:"addr"`
	Session SessionConfig `yaml:"session"`
	Reaper  ReaperConfig  `yaml:"reaper"`
}

// SessionConfig tunes the session layer.
type SessionConfig struct {
	MaxParticipants int      `yaml:"max_participants"`
	DefaultDuration Duration `yaml:"default_duration"`
	GracePeriod     Duration `yaml:"grace_period"`
	TickInterval    Duration `yaml:"tick_interval"`
}

// ReaperConfig tunes the stale-session sweep.
type ReaperConfig struct {
	Interval  Duration `yaml:"interval"`
	Retention Duration `yaml:"retention"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr: ":8080",
		Session: SessionConfig{
			MaxParticipants: 4,
			DefaultDuration: Duration(25 * time.Minute),
			GracePeriod:     Duration(5 * time.Minute),
			TickInterval:    Duration(time.Second),
		},
		Reaper: ReaperConfig{
			Interval:  Duration(30 * time.Minute),
			Retention: Duration(2 * time.Hour),
		},
	}
}

// Load reads the YAML file at path over the defaults, then applies env
// overrides. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.Addr = getEnv("FOCUSD_ADDR", cfg.Addr)
	if port := os.Getenv("PORT"); port != "" {
		cfg.Addr = ":" + port
	}
	cfg.Session.MaxParticipants = getEnvAsInt("FOCUSD_MAX_PARTICIPANTS", cfg.Session.MaxParticipants)

	if cfg.Session.MaxParticipants < 1 {
		return Config{}, fmt.Errorf("max_participants must be at least 1, got %d", cfg.Session.MaxParticipants)
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
