package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all engine configuration.
type Config struct {
	Extraction ExtractionConfig
	Batch      BatchConfig
	Log        LogConfig
}

// ExtractionConfig holds per-document extraction settings.
type ExtractionConfig struct {
	MaxFileSizeMB int64   `mapstructure:"max_file_size_mb"`
	LineTolerance float64 `mapstructure:"line_tolerance"`
	MinYear       int     `mapstructure:"min_year"`
}

// MaxFileSizeBytes returns the per-file size limit in bytes.
func (e *ExtractionConfig) MaxFileSizeBytes() int64 {
	return e.MaxFileSizeMB * 1024 * 1024
}

// BatchConfig holds batch coordinator settings.
type BatchConfig struct {
	Workers int           `mapstructure:"workers"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// WorkerCount returns the configured pool size, defaulting to the number of CPUs.
func (b *BatchConfig) WorkerCount() int {
	if b.Workers > 0 {
		return b.Workers
	}
	return runtime.NumCPU()
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Debug reports whether debug logging is enabled.
func (l *LogConfig) Debug() bool {
	return strings.EqualFold(l.Level, "debug")
}

// Default returns the configuration used when no environment overrides are set.
func Default() *Config {
	return &Config{
		Extraction: ExtractionConfig{
			MaxFileSizeMB: 10,
			LineTolerance: 0.5,
			MinYear:       2015,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	if c.Extraction.MaxFileSizeMB <= 0 {
		return fmt.Errorf("extraction.max_file_size_mb must be positive, got %d", c.Extraction.MaxFileSizeMB)
	}
	if c.Extraction.LineTolerance <= 0 {
		return fmt.Errorf("extraction.line_tolerance must be positive, got %v", c.Extraction.LineTolerance)
	}
	if c.Batch.Workers < 0 {
		return fmt.Errorf("batch.workers must not be negative, got %d", c.Batch.Workers)
	}
	if c.Batch.Timeout < 0 {
		return fmt.Errorf("batch.timeout must not be negative, got %s", c.Batch.Timeout)
	}
	return nil
}

// Load reads configuration from environment variables with the DOCEXTRACT_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DOCEXTRACT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := Default()

	// Extraction defaults
	v.SetDefault("extraction.max_file_size_mb", def.Extraction.MaxFileSizeMB)
	v.SetDefault("extraction.line_tolerance", def.Extraction.LineTolerance)
	v.SetDefault("extraction.min_year", def.Extraction.MinYear)

	// Batch defaults (0 workers = one per CPU, 0 timeout = none)
	v.SetDefault("batch.workers", 0)
	v.SetDefault("batch.timeout", "0s")

	// Log defaults
	v.SetDefault("log.level", def.Log.Level)

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"extraction.max_file_size_mb": "DOCEXTRACT_EXTRACTION_MAX_FILE_SIZE_MB",
		"extraction.line_tolerance":   "DOCEXTRACT_EXTRACTION_LINE_TOLERANCE",
		"extraction.min_year":         "DOCEXTRACT_EXTRACTION_MIN_YEAR",
		"batch.workers":               "DOCEXTRACT_BATCH_WORKERS",
		"batch.timeout":               "DOCEXTRACT_BATCH_TIMEOUT",
		"log.level":                   "DOCEXTRACT_LOG_LEVEL",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{
		Extraction: ExtractionConfig{
			MaxFileSizeMB: v.GetInt64("extraction.max_file_size_mb"),
			LineTolerance: v.GetFloat64("extraction.line_tolerance"),
			MinYear:       v.GetInt("extraction.min_year"),
		},
		Batch: BatchConfig{
			Workers: v.GetInt("batch.workers"),
			Timeout: v.GetDuration("batch.timeout"),
		},
		Log: LogConfig{
			Level: v.GetString("log.level"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
