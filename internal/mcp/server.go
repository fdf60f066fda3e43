// Package mcp provides an MCP (Model Context Protocol) server that exposes
// projectcolab schedules as MCP tools for AI assistants.
package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/valter-silva-au/projectcolab/internal/core"
	"github.com/valter-silva-au/projectcolab/internal/observability"
	"github.com/valter-silva-au/projectcolab/pkg/models"
)

// Server wraps projectcolab services and exposes them as MCP tools.
type Server struct {
	server      *gomcp.Server
	taskMgr     core.TaskManager
	metricsCalc observability.MetricsCalculator
	alertEngine observability.AlertEngine
	now         func() time.Time
}

// NewServer creates a new MCP server with the given service dependencies.
// metricsCalc and alertEngine may be nil if observability is disabled.
func NewServer(taskMgr core.TaskManager, metricsCalc observability.MetricsCalculator, alertEngine observability.AlertEngine, version string) *Server {
	if version == "" {
		version = "dev"
	}

	s := &Server{
		taskMgr:     taskMgr,
		metricsCalc: metricsCalc,
		alertEngine: alertEngine,
		now:         time.Now,
	}

	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "projectcolab", Version: version},
		nil,
	)

	s.registerTools()

	return s
}

// Run starts the MCP server on stdio, blocking until the client disconnects
// or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// SetClock replaces the clock used for timeline windows, metrics windows
// and alerts.
func (s *Server) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type listProjectsInput struct{}

type projectOutput struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
}

type listProjectsOutput struct {
	Projects []projectOutput `json:"projects"`
	Count    int             `json:"count"`
}

type projectInput struct {
	ProjectID string `json:"project_id" jsonschema:"required,the project identifier"`
}

type taskOutput struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ParentID  string `json:"parent_id,omitempty"`
	Depth     int    `json:"depth"`
	Status    string `json:"status"`
	Priority  string `json:"priority"`
	Progress  int    `json:"progress"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
	Milestone bool   `json:"milestone"`
}

type taskTreeOutput struct {
	Tasks []taskOutput `json:"tasks"`
	Count int          `json:"count"`
}

type getTimelineInput struct {
	ProjectID string   `json:"project_id" jsonschema:"required,the project identifier"`
	Zoom      string   `json:"zoom,omitempty" jsonschema:"days, weeks, months, quarters, semesters, year or auto. Defaults to days."`
	Width     int      `json:"width,omitempty" jsonschema:"container width in pixels, used by auto zoom"`
	Expanded  []string `json:"expanded,omitempty" jsonschema:"ids of expanded rows; omit to expand every row"`
}

type timelineRowOutput struct {
	Row    int    `json:"row"`
	TaskID string `json:"task_id"`
	Name   string `json:"name"`
	Depth  int    `json:"depth"`
	Kind   string `json:"kind"`
	Column int    `json:"column"`
	Span   int    `json:"span"`
}

type getTimelineOutput struct {
	Resolution string              `json:"resolution"`
	RangeStart string              `json:"range_start"`
	RangeEnd   string              `json:"range_end"`
	Columns    []string            `json:"columns"`
	Rows       []timelineRowOutput `json:"rows"`
}

type updateTaskInput struct {
	TaskID    string  `json:"task_id" jsonschema:"required,the task identifier"`
	Status    *string `json:"status,omitempty" jsonschema:"todo, in_progress, completed or blocked"`
	Progress  *int    `json:"progress,omitempty" jsonschema:"percent complete, 0 to 100"`
	StartDate *string `json:"start_date,omitempty" jsonschema:"YYYY-MM-DD, or empty to clear"`
	EndDate   *string `json:"end_date,omitempty" jsonschema:"YYYY-MM-DD, or empty to clear"`
	ParentID  *string `json:"parent_id,omitempty" jsonschema:"new parent task id, or empty to make it a root"`
}

type updateTaskOutput struct {
	Message string     `json:"message"`
	Task    taskOutput `json:"task"`
}

type getMetricsInput struct {
	Since     string `json:"since,omitempty" jsonschema:"time window for metrics (e.g. 7d, 2w, 24h, or a YYYY-MM-DD date). Defaults to 7d."`
	ProjectID string `json:"project_id,omitempty" jsonschema:"restrict metrics to one project"`
}

type metricsOutput struct {
	ProjectsCreated   int            `json:"projects_created"`
	TasksCreated      int            `json:"tasks_created"`
	TasksUpdated      int            `json:"tasks_updated"`
	TasksDeleted      int            `json:"tasks_deleted"`
	TasksCompleted    int            `json:"tasks_completed"`
	StatusTransitions map[string]int `json:"status_transitions"`
	DependenciesAdded int            `json:"dependencies_added"`
	AssignmentsAdded  int            `json:"assignments_added"`
	ActiveProjects    int            `json:"active_projects"`
	EventCount        int            `json:"event_count"`
	OldestEvent       string         `json:"oldest_event,omitempty"`
	NewestEvent       string         `json:"newest_event,omitempty"`
}

type alertOutput struct {
	ID          string `json:"id"`
	Condition   string `json:"condition"`
	Severity    string `json:"severity"`
	TaskID      string `json:"task_id,omitempty"`
	Message     string `json:"message"`
	TriggeredAt string `json:"triggered_at"`
}

type getAlertsOutput struct {
	Alerts []alertOutput `json:"alerts"`
	Count  int           `json:"count"`
}

// --- Tool registration ---

// ToolInfo names one exposed tool.
type ToolInfo struct {
	Name        string
	Description string
}

var toolCatalog = []ToolInfo{
	{"list_projects", "List every project with its planned date range."},
	{"get_task_tree", "Return a project's tasks in hierarchy order (pre-order, siblings by order) with their depth."},
	{"get_timeline", "Lay out a project's timeline at a zoom level and return the column labels and the bar of every visible row."},
	{"update_task", "Update a task's status, progress, dates or parent. Omitted fields are left unchanged."},
	{"get_metrics", "Get aggregated schedule activity from the event log, optionally for one project."},
	{"get_alerts", "Evaluate schedule health for a project (overdue, blocked too long, stale, unscheduled)."},
}

// Tools lists the tools the server registers, in registration order.
func Tools() []ToolInfo {
	return append([]ToolInfo(nil), toolCatalog...)
}

func tool(name string) *gomcp.Tool {
	for _, t := range toolCatalog {
		if t.Name == name {
			return &gomcp.Tool{Name: t.Name, Description: t.Description}
		}
	}
	panic("mcp: tool " + name + " missing from catalog")
}

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, tool("list_projects"), s.handleListProjects)
	gomcp.AddTool(s.server, tool("get_task_tree"), s.handleGetTaskTree)
	gomcp.AddTool(s.server, tool("get_timeline"), s.handleGetTimeline)
	gomcp.AddTool(s.server, tool("update_task"), s.handleUpdateTask)
	gomcp.AddTool(s.server, tool("get_metrics"), s.handleGetMetrics)
	gomcp.AddTool(s.server, tool("get_alerts"), s.handleGetAlerts)
}

// --- Tool handlers ---

func (s *Server) handleListProjects(_ context.Context, _ *gomcp.CallToolRequest, _ listProjectsInput) (*gomcp.CallToolResult, listProjectsOutput, error) {
	projects, err := s.taskMgr.ListProjects()
	if err != nil {
		return errorResult(fmt.Sprintf("listing projects: %s", err)), listProjectsOutput{}, nil
	}
	out := listProjectsOutput{
		Projects: make([]projectOutput, len(projects)),
		Count:    len(projects),
	}
	for i, p := range projects {
		out.Projects[i] = projectOutput{
			ID:        p.ID,
			Name:      p.Name,
			StartDate: formatDate(p.StartDate),
			EndDate:   formatDate(p.EndDate),
		}
	}
	return nil, out, nil
}

func (s *Server) handleGetTaskTree(_ context.Context, _ *gomcp.CallToolRequest, input projectInput) (*gomcp.CallToolResult, taskTreeOutput, error) {
	if input.ProjectID == "" {
		return errorResult("project_id is required"), taskTreeOutput{}, nil
	}
	tasks, err := s.taskMgr.ListTasks(input.ProjectID)
	if err != nil {
		return errorResult(fmt.Sprintf("listing tasks of %s: %s", input.ProjectID, err)), taskTreeOutput{}, nil
	}

	rows := core.Flatten(core.BuildForest(tasks))
	out := taskTreeOutput{
		Tasks: make([]taskOutput, len(rows)),
		Count: len(rows),
	}
	for i, r := range rows {
		out.Tasks[i] = taskToOutput(r.Task, r.Depth, r.ParentID)
	}
	return nil, out, nil
}

func (s *Server) handleGetTimeline(_ context.Context, _ *gomcp.CallToolRequest, input getTimelineInput) (*gomcp.CallToolResult, getTimelineOutput, error) {
	if input.ProjectID == "" {
		return errorResult("project_id is required"), getTimelineOutput{}, nil
	}
	opts := core.ScheduleOptions{
		Zoom:        input.Zoom,
		ContainerPx: input.Width,
		Now:         s.now(),
	}
	if input.Expanded != nil {
		opts.Expanded = core.NewIDSet(input.Expanded...)
	}

	sched, err := s.taskMgr.Schedule(input.ProjectID, opts)
	if err != nil {
		return errorResult(fmt.Sprintf("laying out %s: %s", input.ProjectID, err)), getTimelineOutput{}, nil
	}

	out := getTimelineOutput{
		Resolution: string(sched.Resolution),
		RangeStart: sched.Range.Start.Format(time.DateOnly),
		RangeEnd:   sched.Range.End.Format(time.DateOnly),
		Columns:    make([]string, len(sched.Columns)),
		Rows:       make([]timelineRowOutput, len(sched.Rows)),
	}
	for i, c := range sched.Columns {
		out.Columns[i] = c.Label
	}
	for i, r := range sched.Rows {
		out.Rows[i] = timelineRowOutput{
			Row:    r.Row,
			TaskID: r.Task.ID,
			Name:   r.Task.Name,
			Depth:  r.Depth,
			Kind:   string(r.Geometry.Kind),
			Column: r.Geometry.Column,
			Span:   r.Geometry.Span,
		}
	}
	return nil, out, nil
}

func (s *Server) handleUpdateTask(_ context.Context, _ *gomcp.CallToolRequest, input updateTaskInput) (*gomcp.CallToolResult, updateTaskOutput, error) {
	if input.TaskID == "" {
		return errorResult("task_id is required"), updateTaskOutput{}, nil
	}

	var patch models.TaskPatch
	if input.Status != nil {
		status := models.TaskStatus(*input.Status)
		if !status.Valid() {
			return errorResult(fmt.Sprintf("invalid status %q: must be one of todo, in_progress, completed, blocked", *input.Status)), updateTaskOutput{}, nil
		}
		patch.Status = &status
	}
	patch.Progress = input.Progress
	if input.StartDate != nil {
		d, err := parseOptionalDate(*input.StartDate)
		if err != nil {
			return errorResult(fmt.Sprintf("start_date: %s", err)), updateTaskOutput{}, nil
		}
		patch.StartDate, patch.ClearStartDate = d, d == nil
	}
	if input.EndDate != nil {
		d, err := parseOptionalDate(*input.EndDate)
		if err != nil {
			return errorResult(fmt.Sprintf("end_date: %s", err)), updateTaskOutput{}, nil
		}
		patch.EndDate, patch.ClearEndDate = d, d == nil
	}
	if input.ParentID != nil {
		if *input.ParentID == "" {
			patch.ClearParent = true
		} else {
			patch.ParentID = input.ParentID
		}
	}

	updated, err := s.taskMgr.UpdateTask(input.TaskID, patch)
	if err != nil {
		return errorResult(fmt.Sprintf("updating task %s: %s", input.TaskID, err)), updateTaskOutput{}, nil
	}

	out := updateTaskOutput{
		Message: fmt.Sprintf("task %s updated", input.TaskID),
		Task:    taskToOutput(*updated, 0, updated.ParentID),
	}
	return nil, out, nil
}

func (s *Server) handleGetMetrics(_ context.Context, _ *gomcp.CallToolRequest, input getMetricsInput) (*gomcp.CallToolResult, metricsOutput, error) {
	if s.metricsCalc == nil {
		return errorResult("metrics calculator not available (observability may be disabled)"), emptyMetricsOutput(), nil
	}

	since, err := observability.ParseWindow(input.Since, s.now())
	if err != nil {
		return errorResult(fmt.Sprintf("parsing since: %s", err)), emptyMetricsOutput(), nil
	}

	metrics, err := s.metricsCalc.Calculate(observability.MetricsQuery{Since: since, ProjectID: input.ProjectID})
	if err != nil {
		return errorResult(fmt.Sprintf("calculating metrics: %s", err)), emptyMetricsOutput(), nil
	}

	out := metricsOutput{
		ProjectsCreated:   metrics.ProjectsCreated,
		TasksCreated:      metrics.TasksCreated,
		TasksUpdated:      metrics.TasksUpdated,
		TasksDeleted:      metrics.TasksDeleted,
		TasksCompleted:    metrics.TasksCompleted,
		StatusTransitions: metrics.StatusTransitions,
		DependenciesAdded: metrics.DependenciesAdded,
		AssignmentsAdded:  metrics.AssignmentsAdded,
		ActiveProjects:    metrics.ActiveProjects,
		EventCount:        metrics.EventCount,
	}
	if out.StatusTransitions == nil {
		out.StatusTransitions = make(map[string]int)
	}
	if metrics.OldestEvent != nil {
		out.OldestEvent = metrics.OldestEvent.Format(time.RFC3339)
	}
	if metrics.NewestEvent != nil {
		out.NewestEvent = metrics.NewestEvent.Format(time.RFC3339)
	}

	return nil, out, nil
}

func (s *Server) handleGetAlerts(_ context.Context, _ *gomcp.CallToolRequest, input projectInput) (*gomcp.CallToolResult, getAlertsOutput, error) {
	if s.alertEngine == nil {
		return errorResult("alert engine not available (observability may be disabled)"), getAlertsOutput{}, nil
	}
	if input.ProjectID == "" {
		return errorResult("project_id is required"), getAlertsOutput{}, nil
	}
	tasks, err := s.taskMgr.ListTasks(input.ProjectID)
	if err != nil {
		return errorResult(fmt.Sprintf("listing tasks of %s: %s", input.ProjectID, err)), getAlertsOutput{}, nil
	}

	alerts, err := s.alertEngine.Evaluate(tasks, s.now())
	if err != nil {
		return errorResult(fmt.Sprintf("evaluating alerts: %s", err)), getAlertsOutput{}, nil
	}

	out := getAlertsOutput{
		Alerts: make([]alertOutput, len(alerts)),
		Count:  len(alerts),
	}
	for i, a := range alerts {
		out.Alerts[i] = alertOutput{
			ID:          a.ID,
			Condition:   a.Condition,
			Severity:    string(a.Severity),
			TaskID:      a.TaskID,
			Message:     a.Message,
			TriggeredAt: a.TriggeredAt.Format(time.RFC3339),
		}
	}

	return nil, out, nil
}

// --- Helpers ---

func taskToOutput(t models.Task, depth int, parentID string) taskOutput {
	return taskOutput{
		ID:        t.ID,
		Name:      t.Name,
		ParentID:  parentID,
		Depth:     depth,
		Status:    string(t.Status),
		Priority:  string(t.Priority),
		Progress:  t.Progress,
		StartDate: formatDate(t.StartDate),
		EndDate:   formatDate(t.EndDate),
		Milestone: t.IsMilestone(),
	}
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.DateOnly)
}

func parseOptionalDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	d, err := models.ParseDate(s)
	if err != nil {
		return nil, fmt.Errorf("%q is not a date", s)
	}
	return &d, nil
}

func emptyMetricsOutput() metricsOutput {
	return metricsOutput{
		StatusTransitions: make(map[string]int),
	}
}

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}

