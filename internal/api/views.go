package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/valter-silva-au/projectcolab/internal/core"
	"github.com/valter-silva-au/projectcolab/internal/observability"
	"github.com/valter-silva-au/projectcolab/pkg/models"
)

func (h *handler) handleTree(c *gin.Context) {
	tasks, err := h.tasks.ListTasks(c.Param("id"))
	if err != nil {
		h.fail(c, err, "failed to build task tree")
		return
	}
	forest := core.BuildForest(tasks)
	if forest == nil {
		forest = []*core.Node{}
	}
	c.JSON(http.StatusOK, forest)
}

// handleTimeline lays out a project. Query parameters:
//
//	zoom      resolution name or "auto" (default days)
//	width     container width in pixels, used by auto zoom
//	expanded  comma separated ids of expanded rows; absent means all
//	now       anchor date for projects without any dated task
func (h *handler) handleTimeline(c *gin.Context) {
	opts := core.ScheduleOptions{
		Zoom: c.Query("zoom"),
		Now:  h.now(),
	}
	if w := c.Query("width"); w != "" {
		px, err := strconv.Atoi(w)
		if err != nil || px < 0 {
			abort(c, newBadRequestError("width must be a non-negative integer"))
			return
		}
		opts.ContainerPx = px
	}
	if raw, ok := c.GetQuery("expanded"); ok {
		opts.Expanded = core.NewIDSet()
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				opts.Expanded.Add(id)
			}
		}
	}
	if s := c.Query("now"); s != "" {
		d, err := models.ParseDate(s)
		if err != nil {
			abort(c, newBadRequestError("now must be a date"))
			return
		}
		opts.Now = d
	}

	schedule, err := h.tasks.Schedule(c.Param("id"), opts)
	if err != nil {
		h.fail(c, err, "failed to lay out timeline")
		return
	}
	c.JSON(http.StatusOK, schedule)
}

func (h *handler) handlePresence(c *gin.Context) {
	projectID := c.Param("id")
	if _, err := h.tasks.GetProject(projectID); err != nil {
		h.fail(c, err, "failed to read presence")
		return
	}
	editing := []models.PresencePayload{}
	if h.presence != nil {
		editing = append(editing, h.presence.Editing(projectID)...)
	}
	c.JSON(http.StatusOK, editing)
}

func (h *handler) handleAlerts(c *gin.Context) {
	floor, err := observability.ParseSeverity(c.DefaultQuery("min_severity", "low"))
	if err != nil {
		abort(c, newBadRequestError(err.Error()))
		return
	}
	tasks, err := h.tasks.ListTasks(c.Param("id"))
	if err != nil {
		h.fail(c, err, "failed to evaluate alerts")
		return
	}
	alerts := []observability.Alert{}
	if h.alerts != nil {
		triggered, err := h.alerts.Evaluate(tasks, h.now())
		if err != nil {
			h.fail(c, err, "failed to evaluate alerts")
			return
		}
		alerts = append(alerts, observability.AtLeast(triggered, floor)...)
	}
	c.JSON(http.StatusOK, alerts)
}
