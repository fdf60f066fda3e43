package observability

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/valter-silva-au/projectcolab/pkg/models"
)

// AlertSeverity represents the urgency of an alert.
type AlertSeverity string

const (
	SeverityHigh   AlertSeverity = "high"
	SeverityMedium AlertSeverity = "medium"
	SeverityLow    AlertSeverity = "low"
)

// Rank orders severities from most (0) to least urgent. Unknown values sort
// last.
func (s AlertSeverity) Rank() int {
	switch s {
	case SeverityHigh:
		return 0
	case SeverityMedium:
		return 1
	case SeverityLow:
		return 2
	}
	return 3
}

// ParseSeverity reads a severity name case-insensitively.
func ParseSeverity(s string) (AlertSeverity, error) {
	sev := AlertSeverity(strings.ToLower(strings.TrimSpace(s)))
	if sev.Rank() > 2 {
		return "", fmt.Errorf("unknown severity %q (use high, medium or low)", s)
	}
	return sev, nil
}

// AtLeast keeps the alerts at floor severity or above, preserving order.
func AtLeast(alerts []Alert, floor AlertSeverity) []Alert {
	out := alerts[:0:0]
	for _, a := range alerts {
		if a.Severity.Rank() <= floor.Rank() {
			out = append(out, a)
		}
	}
	return out
}

// Alert represents a triggered schedule health condition.
type Alert struct {
	ID          string        `json:"id"`
	Condition   string        `json:"condition"`
	Severity    AlertSeverity `json:"severity"`
	TaskID      string        `json:"task_id,omitempty"`
	Message     string        `json:"message"`
	TriggeredAt time.Time     `json:"triggered_at"`
}

// AlertThresholds are the limits past which a condition fires. OverdueDays
// is a grace period after a task's end date.
type AlertThresholds struct {
	BlockedHours   int `json:"blocked_hours"`
	StaleDays      int `json:"stale_days"`
	OverdueDays    int `json:"overdue_grace_days"`
	MaxUnscheduled int `json:"max_unscheduled"`
}

// DefaultAlertThresholds returns the thresholds used without configuration.
func DefaultAlertThresholds() AlertThresholds {
	return AlertThresholds{
		BlockedHours:   24,
		StaleDays:      7,
		OverdueDays:    0,
		MaxUnscheduled: 10,
	}
}

// ThresholdsFromConfig maps the alerts section of the global config.
func ThresholdsFromConfig(c models.AlertsConfig) AlertThresholds {
	return AlertThresholds{
		BlockedHours:   c.BlockedHours,
		StaleDays:      c.StaleDays,
		OverdueDays:    c.OverdueGraceDays,
		MaxUnscheduled: c.MaxUnscheduled,
	}
}

// AlertEngine evaluates schedule health for one project snapshot.
type AlertEngine interface {
	Evaluate(tasks []models.Task, now time.Time) ([]Alert, error)
}

// alertEngine implements AlertEngine by combining the task snapshot with the
// event log's status history.
type alertEngine struct {
	eventLog   EventLog
	thresholds AlertThresholds
}

// NewAlertEngine returns an AlertEngine. eventLog may be nil, in which case
// blocked and stale checks fall back to the tasks' own timestamps.
func NewAlertEngine(eventLog EventLog, thresholds AlertThresholds) AlertEngine {
	return &alertEngine{
		eventLog:   eventLog,
		thresholds: thresholds,
	}
}

// Evaluate checks every condition and returns the triggered alerts ordered
// by severity, then ID.
func (ae *alertEngine) Evaluate(tasks []models.Task, now time.Time) ([]Alert, error) {
	now = now.UTC()
	var alerts []Alert

	alerts = append(alerts, ae.checkOverdue(tasks, now)...)

	history, err := ae.statusHistory(tasks)
	if err != nil {
		return nil, fmt.Errorf("reading status history: %w", err)
	}
	alerts = append(alerts, ae.checkBlocked(tasks, history, now)...)
	alerts = append(alerts, ae.checkStale(tasks, history, now)...)
	alerts = append(alerts, ae.checkUnscheduled(tasks, now)...)

	sort.SliceStable(alerts, func(i, j int) bool {
		if ri, rj := alerts[i].Severity.Rank(), alerts[j].Severity.Rank(); ri != rj {
			return ri < rj
		}
		return alerts[i].ID < alerts[j].ID
	})
	return alerts, nil
}

// taskActivity is what the event log says about one task.
type taskActivity struct {
	statusChangedAt time.Time
	lastActivity    time.Time
}

// statusHistory replays the events of the projects the tasks belong to.
func (ae *alertEngine) statusHistory(tasks []models.Task) (map[string]taskActivity, error) {
	out := make(map[string]taskActivity, len(tasks))
	if ae.eventLog == nil {
		return out, nil
	}
	projects := make(map[string]bool)
	for _, t := range tasks {
		projects[t.ProjectID] = true
	}
	for projectID := range projects {
		err := ae.eventLog.Scan(EventFilter{ProjectID: projectID}, func(event Event) bool {
			taskID := event.TaskID()
			if taskID == "" {
				return true
			}
			a := out[taskID]
			if event.Time.After(a.lastActivity) {
				a.lastActivity = event.Time
			}
			switch event.Type {
			case "task.created":
				a.statusChangedAt = event.Time
			case "task.updated":
				if _, ok := event.Data["new_status"].(string); ok {
					a.statusChangedAt = event.Time
				}
			}
			out[taskID] = a
			return true
		})
		if err != nil {
			return nil, fmt.Errorf("replaying events for project %s: %w", projectID, err)
		}
	}
	return out, nil
}

// checkOverdue flags unfinished tasks whose end date has passed.
func (ae *alertEngine) checkOverdue(tasks []models.Task, now time.Time) []Alert {
	today := models.DateOnly(now)
	var alerts []Alert
	for _, t := range tasks {
		if t.Status == models.StatusCompleted || t.EndDate == nil {
			continue
		}
		late := models.DaysBetween(*t.EndDate, today)
		if late <= ae.thresholds.OverdueDays {
			continue
		}
		alerts = append(alerts, Alert{
			ID:          fmt.Sprintf("overdue-%s", t.ID),
			Condition:   "task_overdue",
			Severity:    SeverityHigh,
			TaskID:      t.ID,
			Message:     fmt.Sprintf("task %q ended %d days ago at %d%% progress", t.Name, late, t.Progress),
			TriggeredAt: now,
		})
	}
	return alerts
}

// checkBlocked flags tasks that have stayed blocked longer than the threshold.
func (ae *alertEngine) checkBlocked(tasks []models.Task, history map[string]taskActivity, now time.Time) []Alert {
	threshold := time.Duration(ae.thresholds.BlockedHours) * time.Hour
	var alerts []Alert
	for _, t := range tasks {
		if t.Status != models.StatusBlocked {
			continue
		}
		since := history[t.ID].statusChangedAt
		if since.IsZero() {
			since = t.Updated
		}
		if now.Sub(since) <= threshold {
			continue
		}
		alerts = append(alerts, Alert{
			ID:          fmt.Sprintf("blocked-%s", t.ID),
			Condition:   "task_blocked_too_long",
			Severity:    SeverityHigh,
			TaskID:      t.ID,
			Message:     fmt.Sprintf("task %q has been blocked for more than %d hours", t.Name, ae.thresholds.BlockedHours),
			TriggeredAt: now,
		})
	}
	return alerts
}

// checkStale flags in-progress tasks with no recent activity.
func (ae *alertEngine) checkStale(tasks []models.Task, history map[string]taskActivity, now time.Time) []Alert {
	threshold := time.Duration(ae.thresholds.StaleDays) * 24 * time.Hour
	var alerts []Alert
	for _, t := range tasks {
		if t.Status != models.StatusInProgress {
			continue
		}
		last := history[t.ID].lastActivity
		if t.Updated.After(last) {
			last = t.Updated
		}
		if now.Sub(last) <= threshold {
			continue
		}
		alerts = append(alerts, Alert{
			ID:          fmt.Sprintf("stale-%s", t.ID),
			Condition:   "task_stale",
			Severity:    SeverityMedium,
			TaskID:      t.ID,
			Message:     fmt.Sprintf("task %q has had no activity for more than %d days", t.Name, ae.thresholds.StaleDays),
			TriggeredAt: now,
		})
	}
	return alerts
}

// checkUnscheduled flags a project with too many open tasks lacking dates.
func (ae *alertEngine) checkUnscheduled(tasks []models.Task, now time.Time) []Alert {
	n := 0
	for _, t := range tasks {
		if t.StartDate == nil && t.Status != models.StatusCompleted {
			n++
		}
	}
	if n <= ae.thresholds.MaxUnscheduled {
		return nil
	}
	return []Alert{{
		ID:          "unscheduled",
		Condition:   "too_many_unscheduled",
		Severity:    SeverityLow,
		Message:     fmt.Sprintf("%d open tasks have no start date, exceeding the maximum of %d", n, ae.thresholds.MaxUnscheduled),
		TriggeredAt: now,
	}}
}
