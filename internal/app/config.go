package app

import (
	"errors"
	"fmt"
	"time"
)

// PortFromFile tells the app to take the module server port from the node
// file's server block.
const PortFromFile = -1

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ConfigPath string // node file or directory of node files

	// Port overrides the node file's server port. PortFromFile keeps it;
	// 0 picks a free port.
	Port int
	// AdminPort serves /health, /modules, /tasks and /metrics. 0 disables it.
	AdminPort int

	LogFormat string
	LogLevel  string

	ConnectTimeout time.Duration
	RequestTimeout time.Duration

	// Trace writes OpenTelemetry spans to the log output.
	Trace bool
}

// NewConfig validates cfg and returns a copy.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ConfigPath == "" {
		return nil, errors.New("ConfigPath is a required configuration field and cannot be empty")
	}
	if cfg.Port < PortFromFile || cfg.Port > 65535 {
		return nil, fmt.Errorf("port %d is out of range", cfg.Port)
	}
	if cfg.AdminPort < 0 || cfg.AdminPort > 65535 {
		return nil, fmt.Errorf("admin port %d is out of range", cfg.AdminPort)
	}
	if cfg.ConnectTimeout <= 0 || cfg.RequestTimeout <= 0 {
		return nil, errors.New("timeouts must be positive")
	}
	return &cfg, nil
}
