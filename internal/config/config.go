// Package config declares the environment-driven configuration for the
// resource graph, scheduler, and on-disk cache, plus the ambient logging
// and metrics surface every binary in this module wires up.
package config

import (
	"errors"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/veccore/coreq/internal/resource"
)

// Config validation errors.
var (
	ErrInvalidDiskCPUBW   = errors.New("disk_cpu_bandwidth must be positive")
	ErrInvalidCPUGPUBW    = errors.New("cpu_gpu_bandwidth must be positive")
	ErrMmapDirRequired    = errors.New("cache_mmap_dir cannot be empty when cache_enable_mmap is set")
	ErrInvalidLogLevel    = errors.New("log_level must be debug, info, warn, or error")
	ErrInvalidLogFormat   = errors.New("log_format must be \"json\" or \"console\"")
	ErrInvalidMetricsAddr = errors.New("metrics_addr cannot be empty")
)

// Config is the full set of environment-tunable knobs for a coreqd
// process. Fields are processed by envconfig under the COREQ prefix, so
// GPUSearchPool is read from COREQ_GPU_SEARCH_POOL, and so on.
type Config struct {
	GPUSearchPool []int `envconfig:"GPU_SEARCH_POOL"`
	GPUBuildPool  []int `envconfig:"GPU_BUILD_POOL"`

	SchedulerMode    string `envconfig:"SCHEDULER_MODE" default:"simple"`
	DiskCPUBandwidth int    `envconfig:"DISK_CPU_BANDWIDTH" default:"500"`
	CPUGPUBandwidth  int    `envconfig:"CPU_GPU_BANDWIDTH" default:"12000"`

	CacheEnableMmap bool   `envconfig:"CACHE_ENABLE_MMAP" default:"false"`
	CacheMmapDir    string `envconfig:"CACHE_MMAP_DIR" default:""`

	ListenAddr  string `envconfig:"LISTEN_ADDR" default:"0.0.0.0:7070"`
	MetricsAddr string `envconfig:"METRICS_ADDR" default:"0.0.0.0:9090"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads a .env file if present (missing is not an error) and then
// processes the environment into a Config under the COREQ prefix.
func Load() (Config, error) {
	_ = godotenv.Load() // a missing .env file is expected outside local dev

	var cfg Config
	if err := envconfig.Process("COREQ", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Validate checks the parsed Config for internally-consistent values.
// It does not reach into the resource package to validate device ids;
// resource.BuildFromConfig surfaces those as warnings, per the pool-overlap decision
// recorded for resource.BuildFromConfig. scheduler_mode is intentionally
// not validated against a fixed set: "simple" is the only routing mode
// the resource graph implements, but historical deployment configs may
// carry other mode names, and all of them reduce to simple. See
// resource.Config.Mode.
func Validate(cfg *Config) error {
	if cfg.DiskCPUBandwidth <= 0 {
		return ErrInvalidDiskCPUBW
	}
	if cfg.CPUGPUBandwidth <= 0 {
		return ErrInvalidCPUGPUBW
	}
	if cfg.CacheEnableMmap && cfg.CacheMmapDir == "" {
		return ErrMmapDirRequired
	}
	if cfg.MetricsAddr == "" {
		return ErrInvalidMetricsAddr
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return ErrInvalidLogLevel
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "console" {
		return ErrInvalidLogFormat
	}
	return nil
}

// ResourceConfig adapts Config's flat fields into resource.Config, the
// shape BuildFromConfig expects.
func (cfg Config) ResourceConfig() resource.Config {
	return resource.Config{
		Mode:             cfg.SchedulerMode,
		GPUSearchPool:    cfg.GPUSearchPool,
		GPUBuildPool:     cfg.GPUBuildPool,
		DiskCPUBandwidth: cfg.DiskCPUBandwidth,
		CPUGPUBandwidth:  cfg.CPUGPUBandwidth,
	}
}
