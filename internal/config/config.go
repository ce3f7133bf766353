// Package config centralizes environment and YAML configuration loading
// and zerolog setup, grounded on the teacher's internal/config/config.go
// (Load/getEnv/GetPortInt idiom), generalized here with a YAML file layer
// (gopkg.in/yaml.v3) since a multi-component runtime has more surface to
// configure than the teacher's single service ever needed.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Config is the full set of knobs a cmd/server-style host wires into a
// runtime.Runtime.
type Config struct {
	Log        LogConfig        `yaml:"log"`
	Server     ServerConfig     `yaml:"server"`
	Executor   ExecutorConfig   `yaml:"executor"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Storage    StorageConfig    `yaml:"storage"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type ExecutorConfig struct {
	MaxConcurrentNodes int `yaml:"max_concurrent_nodes"`
}

type SchedulerConfig struct {
	TickIntervalSeconds int `yaml:"tick_interval_seconds"`
}

func (s SchedulerConfig) TickInterval() time.Duration {
	return time.Duration(s.TickIntervalSeconds) * time.Second
}

type StorageConfig struct {
	Driver string `yaml:"driver"` // "memory" or "postgres"
	DSN    string `yaml:"dsn"`
}

// Default returns the configuration a bare `go run ./cmd/server` starts
// with, before any file or environment overrides are applied.
func Default() Config {
	return Config{
		Log:       LogConfig{Level: "info"},
		Server:    ServerConfig{Port: 8080},
		Executor:  ExecutorConfig{MaxConcurrentNodes: 10},
		Scheduler: SchedulerConfig{TickIntervalSeconds: 10},
		Storage:   StorageConfig{Driver: "memory"},
	}
}

// Load builds a Config starting from Default, overlaying path (if
// non-empty and present) as YAML, then overlaying environment variables,
// mirroring the teacher's own "env wins" precedence.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("reading config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := getEnv("FLOWCORE_LOG_LEVEL", ""); v != "" {
		cfg.Log.Level = v
	}
	if v := getEnv("FLOWCORE_PORT", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := getEnv("FLOWCORE_MAX_CONCURRENT_NODES", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Executor.MaxConcurrentNodes = n
		}
	}
	if v := getEnv("FLOWCORE_TICK_INTERVAL_SECONDS", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Scheduler.TickIntervalSeconds = n
		}
	}
	if v := getEnv("FLOWCORE_STORAGE_DRIVER", ""); v != "" {
		cfg.Storage.Driver = v
	}
	if v := getEnv("FLOWCORE_STORAGE_DSN", ""); v != "" {
		cfg.Storage.DSN = v
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

// SetupLogging configures the global zerolog logger per cfg.Log.
func SetupLogging(cfg LogConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}
