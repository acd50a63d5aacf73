package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/ppe-vision/internal/overlay"
	"github.com/sells-group/ppe-vision/internal/resilience"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
	Alert   AlertConfig   `yaml:"alert" mapstructure:"alert"`
	Overlay overlay.Style `yaml:"overlay" mapstructure:"overlay"`
	Ingest  IngestConfig  `yaml:"ingest" mapstructure:"ingest"`
	Export  ExportConfig  `yaml:"export" mapstructure:"export"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
	Retry   RetryConfig   `yaml:"retry" mapstructure:"retry"`
}

// StoreConfig selects and locates the persistence backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Dir         string `yaml:"dir" mapstructure:"dir"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// AlertConfig configures the notification gate.
type AlertConfig struct {
	WindowSecs int `yaml:"window_secs" mapstructure:"window_secs"`
}

// Window returns the alert display window.
func (c AlertConfig) Window() time.Duration {
	return time.Duration(c.WindowSecs) * time.Second
}

// IngestConfig filters detections before aggregation.
type IngestConfig struct {
	MinConfidence float64  `yaml:"min_confidence" mapstructure:"min_confidence"`
	IgnoreLabels  []string `yaml:"ignore_labels" mapstructure:"ignore_labels"`
}

// ExportConfig configures history exports.
type ExportConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// MetricsConfig configures the metrics textfile dump. Empty disables it.
type MetricsConfig struct {
	Textfile string `yaml:"textfile" mapstructure:"textfile"`
}

// RetryConfig configures storage retries.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// Policy converts the retry settings to a resilience.RetryConfig.
func (c RetryConfig) Policy() resilience.RetryConfig {
	return resilience.FromRetryConfig(c.MaxAttempts, c.InitialBackoffMs, c.MaxBackoffMs)
}

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverFile     = "file"
	DriverMemory   = "memory"
)

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	style := overlay.DefaultStyle()
	v.SetDefault("store.driver", DriverSQLite)
	v.SetDefault("store.database_url", "ppe-vision.db")
	v.SetDefault("store.dir", ".ppe")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("alert.window_secs", 5)
	v.SetDefault("overlay.line_width", style.LineWidth)
	v.SetDefault("overlay.corner_length", style.CornerLength)
	v.SetDefault("overlay.corner_width", style.CornerWidth)
	v.SetDefault("overlay.font_size", style.FontSize)
	v.SetDefault("overlay.chip_height", style.ChipHeight)
	v.SetDefault("overlay.chip_padding", style.ChipPadding)
	v.SetDefault("overlay.violation_color", style.ViolationColor)
	v.SetDefault("overlay.compliant_color", style.CompliantColor)
	v.SetDefault("overlay.text_color", style.TextColor)
	v.SetDefault("ingest.min_confidence", 0.0)
	v.SetDefault("ingest.ignore_labels", []string{})
	v.SetDefault("export.dir", ".")
	v.SetDefault("metrics.textfile", "")
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 50)
	v.SetDefault("retry.max_backoff_ms", 500)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings every command relies on.
func (c *Config) Validate() error {
	var problems []string

	switch c.Store.Driver {
	case DriverSQLite, DriverPostgres:
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required for driver "+c.Store.Driver)
		}
	case DriverFile:
		if c.Store.Dir == "" {
			problems = append(problems, "store.dir is required for driver file")
		}
	case DriverMemory:
	default:
		problems = append(problems, "store.driver must be one of sqlite, postgres, file, memory")
	}

	if c.Alert.WindowSecs <= 0 {
		problems = append(problems, "alert.window_secs must be > 0")
	}
	if c.Ingest.MinConfidence < 0 || c.Ingest.MinConfidence > 1 {
		problems = append(problems, "ingest.min_confidence must be between 0 and 1")
	}
	if c.Retry.MaxAttempts < 0 {
		problems = append(problems, "retry.max_attempts must be >= 0")
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
