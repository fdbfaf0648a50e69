// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file and environment variables on top of New().
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Snapshot source formats.
const (
	FormatCSV    = "csv"
	FormatSQLite = "sqlite"
)

// Classifier model formats.
const (
	ModelLinear = "linear"
	ModelONNX   = "onnx"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DataPath points at the weekly-activity snapshot (CSV file or SQLite database).
	DataPath string `koanf:"data_path"`

	// DataFormat is csv or sqlite.
	DataFormat string `koanf:"data_format"`

	// SQLiteTable names the table read when DataFormat is sqlite.
	SQLiteTable string `koanf:"sqlite_table"`

	// ModelPath points at the trained classifier artifact.
	ModelPath string `koanf:"model_path"`

	// ModelFormat is linear (YAML coefficients) or onnx.
	ModelFormat string `koanf:"model_format"`

	// ONNXLibraryPath is the onnxruntime shared library; empty uses the platform default.
	ONNXLibraryPath string `koanf:"onnx_library_path"`

	// ONNXVocabPath is the categorical vocabulary sidecar for the ONNX model.
	ONNXVocabPath string `koanf:"onnx_vocab_path"`

	// WorkerCount sets the number of nudge derivation workers.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds the in-memory nudge job queue.
	QueueSize int `koanf:"queue_size"`

	// ConnectionRequiresRisk selects the Connection rule variant:
	// true requires prob_high > 0.30 alongside isolation, false uses isolation alone.
	ConnectionRequiresRisk bool `koanf:"connection_requires_risk"`

	// MaxTableLimit caps GET /records?limit.
	MaxTableLimit int `koanf:"max_table_limit"`

	// MetricsEnabled exposes collectors on /metrics.
	MetricsEnabled bool `koanf:"metrics_enabled"`

	// MetricsPrefix is inserted between the subsystem and each metric name.
	MetricsPrefix string `koanf:"metrics_prefix"`

	// MetricsLabels are constant labels attached to every metric.
	MetricsLabels map[string]string `koanf:"metrics_labels"`

	// MetricsRefreshInterval is how often runtime gauges are sampled.
	MetricsRefreshInterval time.Duration `koanf:"metrics_refresh_interval"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:               "info",
		LogFormat:              "text",
		Addr:                   ":9080",
		DataPath:               "data/weekly_activity.csv",
		DataFormat:             FormatCSV,
		SQLiteTable:            "weekly_activity",
		ModelPath:              "models/burnout_linear.yaml",
		ModelFormat:            ModelLinear,
		WorkerCount:            runtime.NumCPU(),
		QueueSize:              1024,
		ConnectionRequiresRisk: true,
		MaxTableLimit:          1000,
		MetricsEnabled:         true,
		MetricsRefreshInterval: 10 * time.Second,
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.DataPath) == "":
		return fmt.Errorf("%w: data_path must not be empty", ErrInvalidConfig)
	case c.DataFormat != FormatCSV && c.DataFormat != FormatSQLite:
		return fmt.Errorf("%w: data_format %q (want csv or sqlite)", ErrInvalidConfig, c.DataFormat)
	case c.DataFormat == FormatSQLite && strings.TrimSpace(c.SQLiteTable) == "":
		return fmt.Errorf("%w: sqlite_table must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.ModelPath) == "":
		return fmt.Errorf("%w: model_path must not be empty", ErrInvalidConfig)
	case c.ModelFormat != ModelLinear && c.ModelFormat != ModelONNX:
		return fmt.Errorf("%w: model_format %q (want linear or onnx)", ErrInvalidConfig, c.ModelFormat)
	case c.ModelFormat == ModelONNX && strings.TrimSpace(c.ONNXVocabPath) == "":
		return fmt.Errorf("%w: onnx_vocab_path is required for onnx models", ErrInvalidConfig)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: log_format %q (want text or json)", ErrInvalidConfig, c.LogFormat)
	case c.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.MaxTableLimit <= 0:
		return fmt.Errorf("%w: max_table_limit must be positive", ErrInvalidConfig)
	case c.MetricsRefreshInterval <= 0:
		return fmt.Errorf("%w: metrics_refresh_interval must be positive", ErrInvalidConfig)
	}
	return nil
}
