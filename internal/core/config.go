// Package core contains the scheduling logic of projectcolab: the task
// hierarchy, row visibility, timeline layout, task management, import
// reconciliation and configuration.
package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/valter-silva-au/projectcolab/pkg/models"
)

// ConfigFileName is the name of the global configuration file, without
// extension, looked up in the base path.
const ConfigFileName = ".colabconfig"

// EnvPrefix prefixes environment overrides, e.g. COLAB_SERVER_ADDR.
const EnvPrefix = "COLAB"

// ConfigurationManager defines the interface for loading and validating
// configuration from the global .colabconfig file.
type ConfigurationManager interface {
	LoadGlobalConfig() (*models.GlobalConfig, error)
	ValidateConfig(config interface{}) error
}

// viperConfigManager implements ConfigurationManager using Viper for
// reading YAML configuration files and environment overrides.
type viperConfigManager struct {
	// basePath is the root directory where .colabconfig resides.
	basePath string
}

// NewConfigurationManager creates a new ConfigurationManager that reads
// configuration files relative to basePath.
func NewConfigurationManager(basePath string) ConfigurationManager {
	return &viperConfigManager{basePath: basePath}
}

// DefaultGlobalConfig returns a GlobalConfig populated with defaults.
func DefaultGlobalConfig() *models.GlobalConfig {
	return &models.GlobalConfig{
		Server: models.ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Storage:  models.StorageConfig{File: "schedule.yaml"},
		Log:      models.LogConfig{Level: "info", Format: "console"},
		Timeline: DefaultTimelineConfig(),
		Presence: models.PresenceConfig{Debounce: 2 * time.Second},
		Realtime: models.RealtimeConfig{
			SendBuffer:           64,
			MaxMessagesPerSecond: 20,
		},
		Alerts: models.AlertsConfig{
			BlockedHours:   24,
			StaleDays:      7,
			MaxUnscheduled: 10,
		},
	}
}

// LoadGlobalConfig reads the .colabconfig file from the base path using
// Viper. Missing keys keep their defaults and COLAB_* environment variables
// override both. If the file does not exist, defaults plus environment are
// returned.
func (cm *viperConfigManager) LoadGlobalConfig() (*models.GlobalConfig, error) {
	def := DefaultGlobalConfig()

	v := viper.New()
	v.SetConfigName(ConfigFileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(cm.basePath)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", def.Server.Addr)
	v.SetDefault("server.shutdown_timeout", def.Server.ShutdownTimeout)
	v.SetDefault("storage.file", def.Storage.File)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.format", def.Log.Format)
	for res, w := range def.Timeline.ColumnWidths {
		v.SetDefault("timeline.column_widths."+string(res), w)
	}
	v.SetDefault("timeline.range_padding_days", def.Timeline.RangePaddingDays)
	v.SetDefault("timeline.default_window_days", def.Timeline.DefaultWindowDays)
	v.SetDefault("timeline.table_width", def.Timeline.TableWidth)
	v.SetDefault("timeline.row_height", def.Timeline.RowHeight)
	v.SetDefault("presence.debounce", def.Presence.Debounce)
	v.SetDefault("realtime.send_buffer", def.Realtime.SendBuffer)
	v.SetDefault("realtime.max_messages_per_second", def.Realtime.MaxMessagesPerSecond)
	v.SetDefault("alerts.blocked_hours", def.Alerts.BlockedHours)
	v.SetDefault("alerts.stale_days", def.Alerts.StaleDays)
	v.SetDefault("alerts.overdue_grace_days", def.Alerts.OverdueGraceDays)
	v.SetDefault("alerts.max_unscheduled", def.Alerts.MaxUnscheduled)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading %s: %w", ConfigFileName, err)
		}
	}

	cfg := &models.GlobalConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", ConfigFileName, err)
	}
	// A partial column_widths section only overrides the keys it names.
	for res, w := range def.Timeline.ColumnWidths {
		if _, ok := cfg.Timeline.ColumnWidths[res]; !ok {
			if cfg.Timeline.ColumnWidths == nil {
				cfg.Timeline.ColumnWidths = make(map[models.Resolution]int)
			}
			cfg.Timeline.ColumnWidths[res] = w
		}
	}
	return cfg, nil
}

// ValidateConfig checks a configuration value and reports every problem at
// once.
func (cm *viperConfigManager) ValidateConfig(config interface{}) error {
	if config == nil {
		return fmt.Errorf("configuration is nil")
	}

	switch cfg := config.(type) {
	case *models.GlobalConfig:
		return validateGlobalConfig(cfg)
	case *models.TimelineConfig:
		return validateTimelineConfig(cfg)
	default:
		return fmt.Errorf("unsupported configuration type: %T", config)
	}
}

var validLogFormats = map[string]bool{"json": true, "console": true}

// validateGlobalConfig checks a GlobalConfig for invalid field values.
func validateGlobalConfig(cfg *models.GlobalConfig) error {
	if cfg == nil {
		return fmt.Errorf("global configuration is nil")
	}

	var errs []string

	if cfg.Server.Addr == "" {
		errs = append(errs, "server.addr must not be empty")
	}
	if cfg.Server.ShutdownTimeout < 0 {
		errs = append(errs, fmt.Sprintf("server.shutdown_timeout must be non-negative, got %s", cfg.Server.ShutdownTimeout))
	}
	if cfg.Storage.File == "" {
		errs = append(errs, "storage.file must not be empty")
	}
	if _, err := zerolog.ParseLevel(cfg.Log.Level); err != nil {
		errs = append(errs, fmt.Sprintf("log.level %q is invalid", cfg.Log.Level))
	}
	if !validLogFormats[cfg.Log.Format] {
		errs = append(errs, fmt.Sprintf("log.format %q is invalid, must be one of: json, console", cfg.Log.Format))
	}
	errs = append(errs, timelineProblems(&cfg.Timeline)...)
	if cfg.Presence.Debounce <= 0 {
		errs = append(errs, fmt.Sprintf("presence.debounce must be positive, got %s", cfg.Presence.Debounce))
	}
	if cfg.Realtime.SendBuffer <= 0 {
		errs = append(errs, fmt.Sprintf("realtime.send_buffer must be positive, got %d", cfg.Realtime.SendBuffer))
	}
	if cfg.Realtime.MaxMessagesPerSecond <= 0 {
		errs = append(errs, fmt.Sprintf("realtime.max_messages_per_second must be positive, got %g", cfg.Realtime.MaxMessagesPerSecond))
	}
	for _, f := range []struct {
		key string
		v   int
	}{
		{"alerts.blocked_hours", cfg.Alerts.BlockedHours},
		{"alerts.stale_days", cfg.Alerts.StaleDays},
		{"alerts.overdue_grace_days", cfg.Alerts.OverdueGraceDays},
		{"alerts.max_unscheduled", cfg.Alerts.MaxUnscheduled},
	} {
		if f.v < 0 {
			errs = append(errs, fmt.Sprintf("%s must be non-negative, got %d", f.key, f.v))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("global config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func validateTimelineConfig(cfg *models.TimelineConfig) error {
	if cfg == nil {
		return fmt.Errorf("timeline configuration is nil")
	}
	if errs := timelineProblems(cfg); len(errs) > 0 {
		return fmt.Errorf("timeline config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func timelineProblems(cfg *models.TimelineConfig) []string {
	var errs []string
	for _, res := range models.Resolutions {
		if cfg.ColumnWidth(res) <= 0 {
			errs = append(errs, fmt.Sprintf("timeline.column_widths.%s must be positive, got %d", res, cfg.ColumnWidth(res)))
		}
	}
	for res := range cfg.ColumnWidths {
		if !res.Valid() {
			errs = append(errs, fmt.Sprintf("timeline.column_widths has unknown resolution %q", res))
		}
	}
	if cfg.RangePaddingDays < 0 {
		errs = append(errs, fmt.Sprintf("timeline.range_padding_days must be non-negative, got %d", cfg.RangePaddingDays))
	}
	if cfg.DefaultWindowDays <= 0 {
		errs = append(errs, fmt.Sprintf("timeline.default_window_days must be positive, got %d", cfg.DefaultWindowDays))
	}
	if cfg.TableWidth < 0 {
		errs = append(errs, fmt.Sprintf("timeline.table_width must be non-negative, got %d", cfg.TableWidth))
	}
	if cfg.RowHeight <= 0 {
		errs = append(errs, fmt.Sprintf("timeline.row_height must be positive, got %d", cfg.RowHeight))
	}
	return errs
}
