package observability

import (
	"testing"
	"time"

	"github.com/valter-silva-au/projectcolab/pkg/models"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestAlertEngine_Overdue(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	tasks := []models.Task{
		{ID: "late", Name: "Late", Status: models.StatusInProgress, EndDate: date(2025, 3, 5), Updated: now},
		{ID: "done", Name: "Done", Status: models.StatusCompleted, EndDate: date(2025, 3, 1)},
		{ID: "today", Name: "Today", Status: models.StatusTodo, EndDate: date(2025, 3, 10)},
	}
	alerts, err := NewAlertEngine(nil, DefaultAlertThresholds()).Evaluate(tasks, now)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(alerts) != 1 || alerts[0].ID != "overdue-late" || alerts[0].Severity != SeverityHigh {
		t.Fatalf("alerts = %+v", alerts)
	}

	grace := DefaultAlertThresholds()
	grace.OverdueDays = 7
	alerts, _ = NewAlertEngine(nil, grace).Evaluate(tasks, now)
	if len(alerts) != 0 {
		t.Errorf("within grace period: alerts = %+v", alerts)
	}
}

func TestAlertEngine_BlockedUsesStatusHistory(t *testing.T) {
	log, _ := newTestLog(t)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	_ = log.Write(Event{Time: now.Add(-72 * time.Hour), Type: "task.updated", Data: map[string]any{"project_id": "p1", "task_id": "old", "new_status": "blocked"}})
	_ = log.Write(Event{Time: now.Add(-2 * time.Hour), Type: "task.updated", Data: map[string]any{"project_id": "p1", "task_id": "fresh", "new_status": "blocked"}})

	tasks := []models.Task{
		{ID: "old", ProjectID: "p1", Name: "Old", Status: models.StatusBlocked, Updated: now},
		{ID: "fresh", ProjectID: "p1", Name: "Fresh", Status: models.StatusBlocked, Updated: now},
	}
	alerts, err := NewAlertEngine(log, DefaultAlertThresholds()).Evaluate(tasks, now)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(alerts) != 1 || alerts[0].TaskID != "old" || alerts[0].Condition != "task_blocked_too_long" {
		t.Fatalf("alerts = %+v", alerts)
	}
}

func TestAlertEngine_Stale(t *testing.T) {
	log, _ := newTestLog(t)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	_ = log.Write(Event{Time: now.Add(-10 * 24 * time.Hour), Type: "task.updated", Data: map[string]any{"project_id": "p1", "task_id": "quiet"}})
	_ = log.Write(Event{Time: now.Add(-24 * time.Hour), Type: "task.assigned", Data: map[string]any{"project_id": "p1", "task_id": "busy"}})

	tasks := []models.Task{
		{ID: "quiet", ProjectID: "p1", Name: "Quiet", Status: models.StatusInProgress, Updated: now.Add(-10 * 24 * time.Hour)},
		{ID: "busy", ProjectID: "p1", Name: "Busy", Status: models.StatusInProgress, Updated: now.Add(-30 * 24 * time.Hour)},
	}
	alerts, err := NewAlertEngine(log, DefaultAlertThresholds()).Evaluate(tasks, now)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(alerts) != 1 || alerts[0].ID != "stale-quiet" {
		t.Fatalf("alerts = %+v", alerts)
	}
}

func TestAlertEngine_UnscheduledAndOrdering(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	th := DefaultAlertThresholds()
	th.MaxUnscheduled = 1
	tasks := []models.Task{
		{ID: "a", Status: models.StatusTodo},
		{ID: "b", Status: models.StatusTodo},
		{ID: "z", Status: models.StatusTodo, StartDate: date(2025, 1, 1), EndDate: date(2025, 1, 2)},
	}
	alerts, err := NewAlertEngine(nil, th).Evaluate(tasks, now)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(alerts) != 2 {
		t.Fatalf("alerts = %+v", alerts)
	}
	if alerts[0].Severity != SeverityHigh || alerts[1].ID != "unscheduled" {
		t.Errorf("alerts not ordered by severity: %+v", alerts)
	}
}

func TestAlertEngine_IgnoresOtherProjects(t *testing.T) {
	log, _ := newTestLog(t)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	// Same task ID in another project must not count as activity here.
	_ = log.Write(Event{Time: now.Add(-time.Hour), Type: "task.updated", Data: map[string]any{"project_id": "p2", "task_id": "quiet"}})

	tasks := []models.Task{
		{ID: "quiet", ProjectID: "p1", Name: "Quiet", Status: models.StatusInProgress, Updated: now.Add(-10 * 24 * time.Hour)},
	}
	alerts, err := NewAlertEngine(log, DefaultAlertThresholds()).Evaluate(tasks, now)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(alerts) != 1 || alerts[0].ID != "stale-quiet" {
		t.Fatalf("alerts = %+v", alerts)
	}
}

func TestSeverityFiltering(t *testing.T) {
	alerts := []Alert{
		{ID: "a", Severity: SeverityHigh},
		{ID: "b", Severity: SeverityLow},
		{ID: "c", Severity: SeverityMedium},
	}
	floor, err := ParseSeverity(" Medium ")
	if err != nil {
		t.Fatalf("ParseSeverity: %v", err)
	}
	got := AtLeast(alerts, floor)
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "c" {
		t.Errorf("AtLeast(medium) = %+v", got)
	}
	if len(alerts) != 3 || alerts[1].ID != "b" {
		t.Errorf("input modified: %+v", alerts)
	}
	if _, err := ParseSeverity("urgent"); err == nil {
		t.Error("expected unknown severity error")
	}
}

func TestThresholdsFromConfig(t *testing.T) {
	got := ThresholdsFromConfig(models.AlertsConfig{BlockedHours: 48, StaleDays: 3, OverdueGraceDays: 2, MaxUnscheduled: 5})
	want := AlertThresholds{BlockedHours: 48, StaleDays: 3, OverdueDays: 2, MaxUnscheduled: 5}
	if got != want {
		t.Errorf("ThresholdsFromConfig = %+v, want %+v", got, want)
	}
}
