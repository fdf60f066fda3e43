package core

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/valter-silva-au/projectcolab/internal/storage"
	"github.com/valter-silva-au/projectcolab/pkg/models"
)

type publishedEvent struct {
	Channel string
	Event   string
	Payload any
}

// recordingPublisher captures every Publish call.
type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(channel, event string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Channel: channel, Event: event, Payload: payload})
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Event
	}
	return out
}

// recordingEventLogger captures every LogEvent call.
type recordingEventLogger struct {
	types []string
	data  []map[string]any
}

func (l *recordingEventLogger) LogEvent(eventType string, data map[string]any) error {
	l.types = append(l.types, eventType)
	l.data = append(l.data, data)
	return nil
}

func newTestManager(t *testing.T) (TaskManager, *recordingPublisher, *recordingEventLogger) {
	t.Helper()
	store := storage.NewScheduleStore(filepath.Join(t.TempDir(), "schedule.yaml"))
	pub := &recordingPublisher{}
	events := &recordingEventLogger{}
	return NewTaskManager(store, pub, events, DefaultTimelineConfig()), pub, events
}

func mustProject(t *testing.T, tm TaskManager, name string) *models.Project {
	t.Helper()
	p, err := tm.CreateProject(models.Project{Name: name})
	if err != nil {
		t.Fatalf("CreateProject(%q): %v", name, err)
	}
	return p
}

func mustTask(t *testing.T, tm TaskManager, projectID, name, parentID string) *models.Task {
	t.Helper()
	tk, err := tm.CreateTask(projectID, models.TaskDraft{Name: name, ParentID: parentID})
	if err != nil {
		t.Fatalf("CreateTask(%q): %v", name, err)
	}
	return tk
}

func strPtr(s string) *string { return &s }

func TestTaskManager_CreateTask_PublishesAndLogs(t *testing.T) {
	tm, pub, events := newTestManager(t)
	p := mustProject(t, tm, "Launch")

	tk := mustTask(t, tm, p.ID, "  Design  ", "")
	if tk.Name != "Design" {
		t.Errorf("Name = %q, want trimmed %q", tk.Name, "Design")
	}
	if tk.Status != models.StatusTodo || tk.Priority != models.PriorityMedium {
		t.Errorf("defaults = %s/%s, want todo/medium", tk.Status, tk.Priority)
	}

	names := pub.names()
	if len(names) != 2 || names[0] != models.EventProjectUpdated || names[1] != models.EventTaskCreated {
		t.Fatalf("published = %v", names)
	}
	last := pub.events[1]
	if last.Channel != models.ProjectChannel(p.ID) {
		t.Errorf("channel = %q, want %q", last.Channel, models.ProjectChannel(p.ID))
	}
	if got, ok := last.Payload.(*models.Task); !ok || got.ID != tk.ID {
		t.Errorf("payload = %#v, want created task", last.Payload)
	}
	if events.types[len(events.types)-1] != "task.created" {
		t.Errorf("last event = %q, want task.created", events.types[len(events.types)-1])
	}
}

func TestTaskManager_CreateTask_Validation(t *testing.T) {
	tm, pub, _ := newTestManager(t)
	p := mustProject(t, tm, "P")
	before := len(pub.names())

	bad := 150
	tests := []struct {
		name  string
		draft models.TaskDraft
	}{
		{"blank name", models.TaskDraft{Name: "   "}},
		{"bad status", models.TaskDraft{Name: "x", Status: "done"}},
		{"bad priority", models.TaskDraft{Name: "x", Priority: "p0"}},
		{"progress out of range", models.TaskDraft{Name: "x", Progress: &bad}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tm.CreateTask(p.ID, tt.draft)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("err = %v, want ErrInvalidInput", err)
			}
		})
	}
	if len(pub.names()) != before {
		t.Error("rejected creates must not publish")
	}
}

func TestTaskManager_CreateTask_UnknownProject(t *testing.T) {
	tm, _, _ := newTestManager(t)
	if _, err := tm.CreateTask("nope", models.TaskDraft{Name: "x"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestTaskManager_ParentMustShareProject(t *testing.T) {
	tm, _, _ := newTestManager(t)
	a := mustProject(t, tm, "A")
	b := mustProject(t, tm, "B")
	foreign := mustTask(t, tm, b.ID, "foreign", "")
	local := mustTask(t, tm, a.ID, "local", "")

	if _, err := tm.CreateTask(a.ID, models.TaskDraft{Name: "child", ParentID: foreign.ID}); !errors.Is(err, ErrCrossProject) {
		t.Errorf("create err = %v, want ErrCrossProject", err)
	}
	if _, err := tm.UpdateTask(local.ID, models.TaskPatch{ParentID: &foreign.ID}); !errors.Is(err, ErrCrossProject) {
		t.Errorf("update err = %v, want ErrCrossProject", err)
	}
	if _, err := tm.CreateTask(a.ID, models.TaskDraft{Name: "child", ParentID: "missing"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing parent err = %v, want ErrNotFound", err)
	}
}

func TestTaskManager_UpdateTask_RejectsParentLoop(t *testing.T) {
	tm, pub, _ := newTestManager(t)
	p := mustProject(t, tm, "P")
	a := mustTask(t, tm, p.ID, "A", "")
	b := mustTask(t, tm, p.ID, "B", a.ID)
	c := mustTask(t, tm, p.ID, "C", b.ID)
	before := len(pub.names())

	if _, err := tm.UpdateTask(a.ID, models.TaskPatch{ParentID: &c.ID}); !errors.Is(err, ErrParentCycle) {
		t.Fatalf("err = %v, want ErrParentCycle", err)
	}
	if _, err := tm.UpdateTask(a.ID, models.TaskPatch{ParentID: &a.ID}); !errors.Is(err, ErrParentCycle) {
		t.Fatalf("self parent err = %v, want ErrParentCycle", err)
	}
	if len(pub.names()) != before {
		t.Error("rejected updates must not publish")
	}

	got, err := tm.GetTask(a.ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got.ParentID != "" {
		t.Errorf("A.ParentID = %q, want unchanged root", got.ParentID)
	}

	// Moving C under A is fine.
	if _, err := tm.UpdateTask(c.ID, models.TaskPatch{ParentID: &a.ID}); err != nil {
		t.Fatalf("valid reparent: %v", err)
	}
}

func TestTaskManager_UpdateTask_LogsStatusChange(t *testing.T) {
	tm, pub, events := newTestManager(t)
	p := mustProject(t, tm, "P")
	tk := mustTask(t, tm, p.ID, "A", "")

	st := models.StatusInProgress
	updated, err := tm.UpdateTask(tk.ID, models.TaskPatch{Status: &st, Name: strPtr("A2")})
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if updated.Status != st || updated.Name != "A2" {
		t.Errorf("updated = %+v", updated)
	}
	data := events.data[len(events.data)-1]
	if data["old_status"] != "todo" || data["new_status"] != "in_progress" {
		t.Errorf("event data = %v", data)
	}
	names := pub.names()
	if names[len(names)-1] != models.EventTaskUpdated {
		t.Errorf("last published = %q", names[len(names)-1])
	}
}

func TestTaskManager_ConcurrentUpdatesPublishInStoreOrder(t *testing.T) {
	tm, pub, _ := newTestManager(t)
	p := mustProject(t, tm, "P")
	tk := mustTask(t, tm, p.ID, "A", "")

	var wg sync.WaitGroup
	for i := 1; i <= 12; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			if _, err := tm.UpdateTask(tk.ID, models.TaskPatch{Progress: &v}); err != nil {
				t.Errorf("UpdateTask(%d): %v", v, err)
			}
		}(i * 5)
	}
	wg.Wait()

	stored, err := tm.GetTask(tk.ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	pub.mu.Lock()
	defer pub.mu.Unlock()
	var last *models.Task
	updates := 0
	for _, e := range pub.events {
		if e.Event == models.EventTaskUpdated {
			last = e.Payload.(*models.Task)
			updates++
		}
	}
	if updates != 12 {
		t.Fatalf("published %d task updates, want 12", updates)
	}
	if last.Progress != stored.Progress {
		t.Errorf("last published progress = %d, stored = %d", last.Progress, stored.Progress)
	}
}

func TestTaskManager_DeleteTask_PublishesIdentity(t *testing.T) {
	tm, pub, _ := newTestManager(t)
	p := mustProject(t, tm, "P")
	tk := mustTask(t, tm, p.ID, "A", "")

	if err := tm.DeleteTask(tk.ID); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	last := pub.events[len(pub.events)-1]
	if last.Event != models.EventTaskDeleted {
		t.Fatalf("event = %q", last.Event)
	}
	want := models.TaskDeletedPayload{ID: tk.ID, ProjectID: p.ID}
	if last.Payload != want {
		t.Errorf("payload = %#v, want %#v", last.Payload, want)
	}
	if err := tm.DeleteTask(tk.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestTaskManager_Dependencies(t *testing.T) {
	tm, pub, _ := newTestManager(t)
	p := mustProject(t, tm, "P")
	a := mustTask(t, tm, p.ID, "A", "")
	b := mustTask(t, tm, p.ID, "B", "")

	dep, err := tm.AddDependency(b.ID, a.ID, "")
	if err != nil {
		t.Fatalf("AddDependency: %v", err)
	}
	if dep.Type != models.FinishToStart {
		t.Errorf("Type = %q, want finish_to_start", dep.Type)
	}
	// Edges never move dates or reject loops.
	if _, err := tm.AddDependency(a.ID, b.ID, models.StartToStart); err != nil {
		t.Fatalf("reverse edge: %v", err)
	}
	if _, err := tm.AddDependency(a.ID, b.ID, "sideways"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("bad type err = %v, want ErrInvalidInput", err)
	}

	deps, err := tm.ListDependencies(p.ID)
	if err != nil {
		t.Fatalf("ListDependencies: %v", err)
	}
	if len(deps) != 2 {
		t.Errorf("got %d dependencies, want 2", len(deps))
	}
	last := pub.events[len(pub.events)-1]
	if last.Event != models.EventTaskUpdated {
		t.Errorf("dependency publish = %q", last.Event)
	}
}

func TestTaskManager_AssignUser(t *testing.T) {
	tm, _, _ := newTestManager(t)
	p := mustProject(t, tm, "P")
	a := mustTask(t, tm, p.ID, "A", "")

	got, err := tm.AssignUser(a.ID, "u1", "")
	if err != nil {
		t.Fatalf("AssignUser: %v", err)
	}
	if got.Role != models.RoleAssignee {
		t.Errorf("Role = %q, want assignee", got.Role)
	}
	if _, err := tm.AssignUser(a.ID, " ", ""); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("blank user err = %v", err)
	}
	if _, err := tm.AssignUser(a.ID, "u1", "owner"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("bad role err = %v", err)
	}
	list, _ := tm.ListAssignments(p.ID)
	if len(list) != 1 {
		t.Errorf("got %d assignments, want 1", len(list))
	}
}

func TestTaskManager_Schedule(t *testing.T) {
	tm, _, _ := newTestManager(t)
	p := mustProject(t, tm, "P")
	start := day(2024, 1, 1)
	end := day(2025, 2, 4)
	if _, err := tm.CreateTask(p.ID, models.TaskDraft{Name: "long", StartDate: &start, EndDate: &end}); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	now := day(2024, 6, 1)

	s, err := tm.Schedule(p.ID, ScheduleOptions{Zoom: "weeks", Now: now})
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if s.Resolution != models.ResolutionWeeks {
		t.Errorf("Resolution = %q, want weeks", s.Resolution)
	}
	if len(s.Rows) != 1 || s.Rows[0].Geometry.Kind != GeometryBar {
		t.Fatalf("rows = %+v", s.Rows)
	}

	auto, err := tm.Schedule(p.ID, ScheduleOptions{Zoom: models.ZoomAuto, ContainerPx: 1200, Now: now})
	if err != nil {
		t.Fatalf("auto Schedule: %v", err)
	}
	if auto.Resolution == models.ResolutionDays {
		t.Errorf("auto zoom chose days for a %d day range", auto.Range.Days())
	}

	if _, err := tm.Schedule(p.ID, ScheduleOptions{Zoom: "fortnights", Now: now}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("bad zoom err = %v, want ErrInvalidInput", err)
	}
	if _, err := tm.Schedule("missing", ScheduleOptions{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing project err = %v, want ErrNotFound", err)
	}
}

func TestTaskManager_NilCollaborators(t *testing.T) {
	store := storage.NewScheduleStore(filepath.Join(t.TempDir(), "s.yaml"))
	tm := NewTaskManager(store, nil, nil, DefaultTimelineConfig())
	p, err := tm.CreateProject(models.Project{Name: "P"})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	tk, err := tm.CreateTask(p.ID, models.TaskDraft{Name: "A"})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if err := tm.DeleteTask(tk.ID); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	if _, err := tm.CreateProject(models.Project{Name: " "}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("blank project err = %v", err)
	}
}
