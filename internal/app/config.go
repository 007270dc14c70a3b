package app

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vk/armstack/internal/backend"
	"github.com/vk/armstack/internal/executor"
	"github.com/vk/armstack/internal/params"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	Backend backend.Mode
	// StackPath is the HCL stack file; empty means built-in defaults.
	StackPath string

	// Path overrides applied on top of the stack file.
	KinematicPath   string
	SemanticPath    string
	ConfigDir       string
	Overrides       []params.Override
	NoVisualization bool
	Privileged      bool

	LogFormat string
	LogLevel  string
	// LogDir receives per-process logs; empty means <run dir>/log.
	LogDir string
	// RunBase is where run directories are created.
	RunBase         string
	AmentPrefixPath string

	ReadinessTimeout time.Duration
	Hold             bool
	HealthcheckPort  int
}

// NewConfig fills defaults and validates cfg.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.Backend == "" {
		cfg.Backend = backend.Simulated
	}
	if _, err := backend.ParseMode(string(cfg.Backend)); err != nil {
		return nil, err
	}
	if cfg.ReadinessTimeout < 0 {
		return nil, fmt.Errorf("readiness timeout must not be negative, got %s", cfg.ReadinessTimeout)
	}
	if cfg.ReadinessTimeout == 0 {
		cfg.ReadinessTimeout = executor.DefaultReadinessTimeout
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, fmt.Errorf("healthcheck port %d out of range", cfg.HealthcheckPort)
	}
	if cfg.RunBase == "" {
		cfg.RunBase = filepath.Join(os.TempDir(), "armstack")
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	return &cfg, nil
}
