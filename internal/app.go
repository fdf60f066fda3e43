// Package internal provides the App struct that wires all components of
// projectcolab together and initializes the CLI layer.
package internal

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/valter-silva-au/projectcolab/internal/cli"
	"github.com/valter-silva-au/projectcolab/internal/core"
	"github.com/valter-silva-au/projectcolab/internal/observability"
	"github.com/valter-silva-au/projectcolab/internal/realtime"
	"github.com/valter-silva-au/projectcolab/internal/storage"
	"github.com/valter-silva-au/projectcolab/pkg/models"
)

// HomeEnv overrides the base path lookup.
const HomeEnv = "COLAB_HOME"

// App holds all service dependencies of projectcolab.
type App struct {
	BasePath string
	Config   *models.GlobalConfig
	Logger   zerolog.Logger

	// Configuration
	ConfigMgr core.ConfigurationManager

	// Storage layer
	Store storage.ScheduleStore

	// Core services
	TaskMgr  core.TaskManager
	Importer *core.ImportReconciler

	// Realtime
	Registry       *prometheus.Registry
	Hub            *realtime.Hub
	Presence       *realtime.PresenceTracker
	RealtimeServer *realtime.Server

	// Observability
	EventLog    observability.EventLog
	AlertEngine observability.AlertEngine
	MetricsCalc observability.MetricsCalculator
}

// NewApp creates and wires all components. basePath is the directory holding
// .colabconfig and the schedule document. Log lines go to logOut.
func NewApp(basePath string, logOut io.Writer) (*App, error) {
	app := &App{BasePath: basePath}

	// --- Configuration ---
	app.ConfigMgr = core.NewConfigurationManager(basePath)
	cfg, err := app.ConfigMgr.LoadGlobalConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := app.ConfigMgr.ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	app.Config = cfg

	app.Logger, err = NewLogger(cfg.Log, logOut)
	if err != nil {
		return nil, err
	}

	// --- Storage ---
	schedulePath := cfg.Storage.File
	if !filepath.IsAbs(schedulePath) {
		schedulePath = filepath.Join(basePath, schedulePath)
	}
	app.Store = storage.NewScheduleStore(schedulePath)
	if err := app.Store.Load(); err != nil {
		return nil, err
	}

	// --- Observability ---
	// The event log is optional; without it metrics and alerts are disabled.
	var events core.EventLogger
	app.EventLog, err = observability.NewJSONLEventLog(filepath.Join(basePath, observability.DefaultEventLogFile))
	if err != nil {
		app.Logger.Warn().Err(err).Msg("event log unavailable, metrics and alerts disabled")
		app.EventLog = nil
	}
	if app.EventLog != nil {
		events = &eventLogAdapter{log: app.EventLog}
		app.AlertEngine = observability.NewAlertEngine(app.EventLog, observability.ThresholdsFromConfig(cfg.Alerts))
		app.MetricsCalc = observability.NewMetricsCalculator(app.EventLog)
	}

	// --- Realtime ---
	app.Registry = prometheus.NewRegistry()
	app.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	rtMetrics := realtime.NewMetrics(app.Registry)
	app.Hub = realtime.NewHub(app.Logger, rtMetrics)
	app.Presence = realtime.NewPresenceTracker(app.Hub, realtime.SystemClock(), cfg.Presence.Debounce, app.Logger, rtMetrics)
	app.RealtimeServer = realtime.NewServer(app.Hub, app.Presence, cfg.Realtime, app.Logger, rtMetrics)

	// --- Core services ---
	app.TaskMgr = core.NewTaskManager(app.Store, app.Hub, events, cfg.Timeline)
	app.Importer = core.NewImportReconciler(app.TaskMgr, app.Logger)

	cli.Config = cfg
	cli.Logger = app.Logger
	cli.TaskMgr = app.TaskMgr
	cli.Importer = app.Importer
	cli.Registry = app.Registry
	cli.Hub = app.Hub
	cli.Presence = app.Presence
	cli.RealtimeServer = app.RealtimeServer
	cli.EventLog = app.EventLog
	cli.AlertEngine = app.AlertEngine
	cli.MetricsCalc = app.MetricsCalc

	app.Logger.Debug().Str("base_path", basePath).Str("schedule", schedulePath).Msg("app initialized")
	return app, nil
}

// Close releases resources held by the app.
func (a *App) Close() error {
	if a.EventLog != nil {
		return a.EventLog.Close()
	}
	return nil
}

// NewLogger builds the process logger from cfg. The console format is meant
// for terminals; json is meant for log shippers.
func NewLogger(cfg models.LogConfig, out io.Writer) (zerolog.Logger, error) {
	if out == nil {
		out = os.Stderr
	}
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("parsing log level %q: %w", cfg.Level, err)
	}
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	w := out
	if cfg.Format != "json" {
		cw := zerolog.NewConsoleWriter()
		cw.TimeFormat = time.DateTime
		cw.Out = out
		w = cw
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}

// ResolveBasePath determines the base directory. COLAB_HOME takes
// precedence; otherwise the nearest ancestor of the working directory holding
// a .colabconfig file is used, falling back to the working directory.
func ResolveBasePath() string {
	if home := os.Getenv(HomeEnv); home != "" {
		return home
	}
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, core.ConfigFileName+".yaml")); err == nil {
			return dir
		}
		if _, err := os.Stat(filepath.Join(dir, core.ConfigFileName)); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	cwd, _ := os.Getwd()
	return cwd
}

// eventLogAdapter adapts observability.EventLog to core.EventLogger.
type eventLogAdapter struct {
	log observability.EventLog
}

func (a *eventLogAdapter) LogEvent(eventType string, data map[string]any) error {
	return a.log.Write(observability.Event{
		Type:    eventType,
		Message: eventType,
		Data:    data,
	})
}
