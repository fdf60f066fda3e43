package models

import "time"

// ServerConfig controls the HTTP and WebSocket listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr" mapstructure:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// StorageConfig locates the schedule document.
type StorageConfig struct {
	File string `yaml:"file" mapstructure:"file"`
}

// LogConfig selects the logger level and output format (json or console).
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// TimelineConfig holds the layout constants of the timeline view.
type TimelineConfig struct {
	ColumnWidths      map[Resolution]int `yaml:"column_widths" mapstructure:"column_widths"`
	RangePaddingDays  int                `yaml:"range_padding_days" mapstructure:"range_padding_days"`
	DefaultWindowDays int                `yaml:"default_window_days" mapstructure:"default_window_days"`
	TableWidth        int                `yaml:"table_width" mapstructure:"table_width"`
	RowHeight         int                `yaml:"row_height" mapstructure:"row_height"`
}

// ColumnWidth returns the configured pixel width for r.
func (c TimelineConfig) ColumnWidth(r Resolution) int {
	return c.ColumnWidths[r]
}

// PresenceConfig tunes editing presence.
type PresenceConfig struct {
	Debounce time.Duration `yaml:"debounce" mapstructure:"debounce"`
}

// RealtimeConfig tunes per-connection WebSocket behaviour.
type RealtimeConfig struct {
	SendBuffer           int     `yaml:"send_buffer" mapstructure:"send_buffer"`
	MaxMessagesPerSecond float64 `yaml:"max_messages_per_second" mapstructure:"max_messages_per_second"`
}

// AlertsConfig sets when schedule health alerts fire.
type AlertsConfig struct {
	BlockedHours     int `yaml:"blocked_hours" mapstructure:"blocked_hours"`
	StaleDays        int `yaml:"stale_days" mapstructure:"stale_days"`
	OverdueGraceDays int `yaml:"overdue_grace_days" mapstructure:"overdue_grace_days"`
	MaxUnscheduled   int `yaml:"max_unscheduled" mapstructure:"max_unscheduled"`
}

// GlobalConfig holds system-wide settings read from .colabconfig via Viper.
type GlobalConfig struct {
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Storage  StorageConfig  `yaml:"storage" mapstructure:"storage"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
	Timeline TimelineConfig `yaml:"timeline" mapstructure:"timeline"`
	Presence PresenceConfig `yaml:"presence" mapstructure:"presence"`
	Realtime RealtimeConfig `yaml:"realtime" mapstructure:"realtime"`
	Alerts   AlertsConfig   `yaml:"alerts" mapstructure:"alerts"`
}
