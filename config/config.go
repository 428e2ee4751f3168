package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store modes
const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
	Auth    AuthConfig    `yaml:"auth"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
	Console ConsoleConfig `yaml:"console"`
	Log     LogConfig     `yaml:"log"`

	// Telemetry tunes the offline sweep of devices that stop reporting
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

type StoreConfig struct {
	Mode     string `yaml:"mode"`
	MongoURI string `yaml:"mongo_uri"`
	Database string `yaml:"database"`
}

type AuthConfig struct {
	JWTSecret        string `yaml:"jwt_secret"`
	TokenTTL         string `yaml:"token_ttl"`
	FallbackEmail    string `yaml:"fallback_email"`
	FallbackPassword string `yaml:"fallback_password"`
	DisableFallback  bool   `yaml:"disable_fallback"`
	SetupToken       string `yaml:"setup_token"`
}

type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Enabled  bool   `yaml:"enabled"`
}

type TelemetryConfig struct {
	StaleAfter    string `yaml:"stale_after"`
	SweepInterval string `yaml:"sweep_interval"`
}

type ConsoleConfig struct {
	StoragePath string `yaml:"storage_path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads the YAML file at path, expanding ${VAR} references, then
// applies environment overrides and defaults. A .env file in the working
// directory is loaded first when present. An empty path, or a path that
// does not exist, yields a configuration built from the environment alone.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("reading config file: %w", err)
		default:
			expanded := os.ExpandEnv(string(data))
			if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
				return nil, fmt.Errorf("parsing config: %w", err)
			}
		}
	}

	cfg.applyEnv()
	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("MONGODB_URI"); v != "" {
		c.Store.MongoURI = v
	}
	if v := os.Getenv("MONGODB_DATABASE"); v != "" {
		c.Store.Database = v
	}
	if v := os.Getenv("HOUSEI_STORE"); v != "" {
		c.Store.Mode = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("MQTT_BROKER"); v != "" {
		c.MQTT.Broker = v
		c.MQTT.Enabled = true
	}
}

func (c *Config) setDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Store.Mode == "" {
		c.Store.Mode = StoreMongo
	}
	if c.Store.MongoURI == "" {
		c.Store.MongoURI = "mongodb://localhost:27017"
	}
	if c.Store.Database == "" {
		c.Store.Database = "housei"
	}
	if c.Auth.TokenTTL == "" {
		c.Auth.TokenTTL = "24h"
	}
	if !c.Auth.DisableFallback {
		if c.Auth.FallbackEmail == "" {
			c.Auth.FallbackEmail = "admin@housei.io"
		}
		if c.Auth.FallbackPassword == "" {
			c.Auth.FallbackPassword = "admin123"
		}
	}
	if c.MQTT.Broker == "" {
		c.MQTT.Broker = "tcp://localhost:1883"
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "housei-server"
	}
	if c.Telemetry.StaleAfter == "" {
		c.Telemetry.StaleAfter = "5m"
	}
	if c.Telemetry.SweepInterval == "" {
		c.Telemetry.SweepInterval = "1m"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks values that have no sensible default
func (c *Config) Validate() error {
	if c.Store.Mode != StoreMongo && c.Store.Mode != StoreMemory {
		return fmt.Errorf("unknown store mode %q", c.Store.Mode)
	}
	if _, err := c.TokenTTL(); err != nil {
		return err
	}
	if _, _, err := c.SweepTimings(); err != nil {
		return err
	}
	return nil
}

// TokenTTL parses auth.token_ttl
func (c *Config) TokenTTL() (time.Duration, error) {
	ttl, err := time.ParseDuration(c.Auth.TokenTTL)
	if err != nil {
		return 0, fmt.Errorf("parsing auth.token_ttl: %w", err)
	}
	return ttl, nil
}

// SweepTimings parses telemetry.stale_after and telemetry.sweep_interval
func (c *Config) SweepTimings() (staleAfter, interval time.Duration, err error) {
	staleAfter, err = time.ParseDuration(c.Telemetry.StaleAfter)
	if err != nil {
		return 0, 0, fmt.Errorf("parsing telemetry.stale_after: %w", err)
	}
	interval, err = time.ParseDuration(c.Telemetry.SweepInterval)
	if err != nil {
		return 0, 0, fmt.Errorf("parsing telemetry.sweep_interval: %w", err)
	}
	if interval <= 0 {
		return 0, 0, fmt.Errorf("telemetry.sweep_interval must be positive")
	}
	return staleAfter, interval, nil
}
