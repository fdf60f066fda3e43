// Package api exposes projects, tasks and the timeline over HTTP, and mounts
// the realtime WebSocket endpoint and Prometheus metrics on the same router.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/valter-silva-au/projectcolab/internal/core"
	"github.com/valter-silva-au/projectcolab/internal/observability"
	"github.com/valter-silva-au/projectcolab/internal/realtime"
)

// Deps are the services the router exposes. WS, Presence, Alerts and
// Gatherer are optional.
type Deps struct {
	Tasks    core.TaskManager
	Importer *core.ImportReconciler
	WS       *realtime.Server
	Presence *realtime.PresenceTracker
	Alerts   observability.AlertEngine
	Logger   zerolog.Logger

	// Registerer receives the HTTP collectors; Gatherer serves /metrics.
	// Nil values use the Prometheus defaults.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer

	// Now is the clock used for layout and alerts. Nil means time.Now.
	Now func() time.Time
}

type handler struct {
	tasks    core.TaskManager
	importer *core.ImportReconciler
	presence *realtime.PresenceTracker
	alerts   observability.AlertEngine
	logger   zerolog.Logger
	now      func() time.Time
}

type httpMetrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(d Deps) *gin.Engine {
	reg := d.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := d.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	now := d.Now
	if now == nil {
		now = time.Now
	}

	h := &handler{
		tasks:    d.Tasks,
		importer: d.Importer,
		presence: d.Presence,
		alerts:   d.Alerts,
		logger:   d.Logger.With().Str("component", "api").Logger(),
		now:      now,
	}

	f := promauto.With(reg)
	m := &httpMetrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "projectcolab",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"method", "route", "code"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "projectcolab",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(h.requestLogger(m))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	if d.WS != nil {
		router.GET("/ws", d.WS.Handler())
	}

	v1 := router.Group("/api/v1")

	projects := v1.Group("/projects")
	projects.GET("", h.handleListProjects)
	projects.POST("", h.handleCreateProject)
	projects.GET("/:id", h.handleGetProject)
	projects.PATCH("/:id", h.handleUpdateProject)
	projects.GET("/:id/tasks", h.handleListTasks)
	projects.POST("/:id/tasks", h.handleCreateTask)
	projects.GET("/:id/tree", h.handleTree)
	projects.GET("/:id/timeline", h.handleTimeline)
	projects.GET("/:id/dependencies", h.handleListDependencies)
	projects.GET("/:id/assignments", h.handleListAssignments)
	projects.GET("/:id/presence", h.handlePresence)
	projects.GET("/:id/alerts", h.handleAlerts)
	projects.POST("/:id/import", h.handleImportInto)

	tasks := v1.Group("/tasks")
	tasks.GET("/:id", h.handleGetTask)
	tasks.PATCH("/:id", h.handleUpdateTask)
	tasks.DELETE("/:id", h.handleDeleteTask)
	tasks.POST("/:id/dependencies", h.handleAddDependency)
	tasks.POST("/:id/assignments", h.handleAssign)

	v1.POST("/import", h.handleImportProject)

	return router
}

func (h *handler) requestLogger(m *httpMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(start)
		status := c.Writer.Status()
		m.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		m.latency.WithLabelValues(c.Request.Method, route).Observe(elapsed.Seconds())

		h.logger.Debug().
			Str("method", c.Request.Method).
			Str("route", route).
			Int("status", status).
			Dur("elapsed", elapsed).
			Msg("handled request")
	}
}
