package cli

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/valter-silva-au/projectcolab/internal/core"
	"github.com/valter-silva-au/projectcolab/internal/observability"
	"github.com/valter-silva-au/projectcolab/internal/realtime"
	"github.com/valter-silva-au/projectcolab/pkg/models"
)

// Service instances, set during app initialization in app.go.
var (
	TaskMgr  core.TaskManager
	Importer *core.ImportReconciler
	Config   *models.GlobalConfig
	Logger   = zerolog.Nop()
)

// Realtime services used by the serve command.
var (
	Hub            *realtime.Hub
	Presence       *realtime.PresenceTracker
	RealtimeServer *realtime.Server
	Registry       *prometheus.Registry
)

// Observability service instances.
var (
	EventLog    observability.EventLog
	AlertEngine observability.AlertEngine
	MetricsCalc observability.MetricsCalculator
)
