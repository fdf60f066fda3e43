package observability

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Metrics holds schedule activity derived from the event log.
type Metrics struct {
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
	OldestEvent       *time.Time     `json:"oldest_event,omitempty"`
	NewestEvent       *time.Time     `json:"newest_event,omitempty"`
}

// MetricsQuery scopes a metrics calculation. An empty ProjectID covers every
// project.
type MetricsQuery struct {
	Since     time.Time
	ProjectID string
}

// MetricsCalculator derives metrics from the event log.
type MetricsCalculator interface {
	Calculate(q MetricsQuery) (*Metrics, error)
}

type metricsCalculator struct {
	eventLog EventLog
}

// NewMetricsCalculator returns a MetricsCalculator over eventLog.
func NewMetricsCalculator(eventLog EventLog) MetricsCalculator {
	return &metricsCalculator{eventLog: eventLog}
}

// Calculate folds the events in q's window into counters. A project counts
// as active when any event in the window names it.
func (mc *metricsCalculator) Calculate(q MetricsQuery) (*Metrics, error) {
	m := &Metrics{StatusTransitions: make(map[string]int)}
	projects := make(map[string]bool)

	filter := EventFilter{ProjectID: q.ProjectID}
	if !q.Since.IsZero() {
		filter.Since = &q.Since
	}
	err := mc.eventLog.Scan(filter, func(event Event) bool {
		m.observe(event)
		if pid := event.ProjectID(); pid != "" {
			projects[pid] = true
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("reading events for metrics: %w", err)
	}
	m.ActiveProjects = len(projects)
	return m, nil
}

func (m *Metrics) observe(event Event) {
	m.EventCount++
	t := event.Time
	if m.OldestEvent == nil || t.Before(*m.OldestEvent) {
		m.OldestEvent = &t
	}
	if m.NewestEvent == nil || t.After(*m.NewestEvent) {
		m.NewestEvent = &t
	}

	switch event.Type {
	case "project.created":
		m.ProjectsCreated++
	case "task.created":
		m.TasksCreated++
	case "task.updated":
		m.TasksUpdated++
		from, _ := event.Data["old_status"].(string)
		to, _ := event.Data["new_status"].(string)
		if to == "" {
			return
		}
		m.StatusTransitions[from+"->"+to]++
		if to == "completed" {
			m.TasksCompleted++
		}
	case "task.deleted":
		m.TasksDeleted++
	case "dependency.added":
		m.DependenciesAdded++
	case "task.assigned":
		m.AssignmentsAdded++
	}
}

// ParseWindow turns a look-back window such as "7d", "2w" or "24h", or an
// absolute YYYY-MM-DD date, into the instant the window starts. An empty
// string means seven days.
func ParseWindow(s string, now time.Time) (time.Time, error) {
	now = now.UTC()
	s = strings.TrimSpace(s)
	if s == "" {
		return now.AddDate(0, 0, -7), nil
	}
	if day, err := time.Parse(time.DateOnly, s); err == nil {
		return day, nil
	}
	if len(s) < 2 {
		return time.Time{}, fmt.Errorf("invalid window %q (use e.g. 7d, 2w, 24h or a date)", s)
	}
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n < 0 {
		return time.Time{}, fmt.Errorf("invalid window %q (use e.g. 7d, 2w, 24h or a date)", s)
	}
	switch s[len(s)-1] {
	case 'h':
		return now.Add(-time.Duration(n) * time.Hour), nil
	case 'd':
		return now.AddDate(0, 0, -n), nil
	case 'w':
		return now.AddDate(0, 0, -7*n), nil
	}
	return time.Time{}, fmt.Errorf("unsupported window unit in %q (use h, d or w)", s)
}
