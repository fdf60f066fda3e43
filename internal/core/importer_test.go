package core

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/valter-silva-au/projectcolab/pkg/models"
)

func newTestImporter(t *testing.T) (*ImportReconciler, TaskManager, *models.Project) {
	t.Helper()
	tm, _, _ := newTestManager(t)
	p := mustProject(t, tm, "Imported")
	return NewImportReconciler(tm, zerolog.Nop()), tm, p
}

// parentsByName maps each task name in the project to its parent's name.
func parentsByName(t *testing.T, tm TaskManager, projectID string) map[string]string {
	t.Helper()
	tasks, err := tm.ListTasks(projectID)
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	names := make(map[string]string, len(tasks))
	for _, tk := range tasks {
		names[tk.ID] = tk.Name
	}
	out := make(map[string]string, len(tasks))
	for _, tk := range tasks {
		out[tk.Name] = names[tk.ParentID]
	}
	return out
}

func TestReconcile_OutlineLevels(t *testing.T) {
	r, tm, p := newTestImporter(t)
	raw := []models.RawImportRecord{
		{"name": "A", "outlineLevel": 1},
		{"name": "B", "outlineLevel": 2},
		{"name": "C", "outlineLevel": 3},
		{"name": "D", "outlineLevel": 1},
	}

	res, err := r.Reconcile(context.Background(), p.ID, raw)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.Created != 4 || res.Linked != 2 || len(res.Failures) != 0 {
		t.Fatalf("result = %+v", res)
	}

	parents := parentsByName(t, tm, p.ID)
	want := map[string]string{"A": "", "B": "A", "C": "B", "D": ""}
	for name, parent := range want {
		if parents[name] != parent {
			t.Errorf("parent(%s) = %q, want %q", name, parents[name], parent)
		}
	}
}

func TestReconcile_DuplicateNamesResolvedByOrder(t *testing.T) {
	r, tm, p := newTestImporter(t)
	raw := []models.RawImportRecord{
		{"name": "A", "order": 0, "notes": "first"},
		{"name": "A", "order": 5, "notes": "second"},
		{"name": "child", "order": 6, "parentTaskName": "A", "parentOrder": 5},
		{"name": "other", "order": 7, "parentTaskName": "A"},
	}

	res, err := r.Reconcile(context.Background(), p.ID, raw)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.Linked != 2 {
		t.Fatalf("Linked = %d, want 2 (%+v)", res.Linked, res.Failures)
	}

	tasks, _ := tm.ListTasks(p.ID)
	byDesc := map[string]models.Task{}
	byName := map[string]models.Task{}
	for _, tk := range tasks {
		if tk.Name == "A" {
			byDesc[tk.Description] = tk
		} else {
			byName[tk.Name] = tk
		}
	}
	if got := byName["child"].ParentID; got != byDesc["second"].ID {
		t.Errorf("child parent = %q, want the order-5 A %q", got, byDesc["second"].ID)
	}
	// Name-only lookups keep the first record seen with that name.
	if got := byName["other"].ParentID; got != byDesc["first"].ID {
		t.Errorf("other parent = %q, want the first A %q", got, byDesc["first"].ID)
	}
}

func TestReconcile_FailuresDoNotAbort(t *testing.T) {
	r, tm, p := newTestImporter(t)
	raw := []models.RawImportRecord{
		{"name": "root", "outline_level": 1},
		{"name": "   ", "outline_level": 2},
		{"name": "bad-date", "start_date": "yesterday-ish"},
		{"name": "leaf", "outline_level": 3},
		{"name": "bad-status", "status": "archived"},
	}

	res, err := r.Reconcile(context.Background(), p.ID, raw)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.Attempted != 5 || res.Created != 2 {
		t.Fatalf("result = %+v", res)
	}
	if len(res.Failures) != 3 {
		t.Fatalf("failures = %+v, want 3", res.Failures)
	}
	for _, f := range res.Failures {
		if f.Stage != StageValidate {
			t.Errorf("failure %d stage = %q, want validate", f.Index, f.Stage)
		}
	}
	// The invalid level-2 record is skipped by the outline scan, so the
	// level-3 leaf attaches to the nearest valid shallower record.
	if parents := parentsByName(t, tm, p.ID); parents["leaf"] != "root" {
		t.Errorf("parent(leaf) = %q, want root", parents["leaf"])
	}
}

// failingCreates rejects CreateTask for the named tasks.
type failingCreates struct {
	TaskManager
	names map[string]bool
}

func (f failingCreates) CreateTask(projectID string, draft models.TaskDraft) (*models.Task, error) {
	if f.names[draft.Name] {
		return nil, errors.New("disk full")
	}
	return f.TaskManager.CreateTask(projectID, draft)
}

func TestReconcile_CreateFailureSkippedByOutlineScan(t *testing.T) {
	tm, _, _ := newTestManager(t)
	p := mustProject(t, tm, "Imported")
	r := NewImportReconciler(failingCreates{TaskManager: tm, names: map[string]bool{"lost": true}}, zerolog.Nop())
	raw := []models.RawImportRecord{
		{"name": "root", "outline_level": 1},
		{"name": "lost", "outline_level": 2},
		{"name": "leaf", "outline_level": 3},
	}

	res, err := r.Reconcile(context.Background(), p.ID, raw)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.Created != 2 || res.Linked != 1 {
		t.Fatalf("result = %+v", res)
	}
	if len(res.Failures) != 1 || res.Failures[0].Stage != StageCreate {
		t.Fatalf("failures = %+v, want one create failure", res.Failures)
	}
	if parents := parentsByName(t, tm, p.ID); parents["leaf"] != "root" {
		t.Errorf("parent(leaf) = %q, want root", parents["leaf"])
	}
}

func TestReconcile_UnknownProject(t *testing.T) {
	r, _, _ := newTestImporter(t)
	_, err := r.Reconcile(context.Background(), "missing", []models.RawImportRecord{{"name": "x"}})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestReconcile_CancelledContext(t *testing.T) {
	r, _, p := newTestImporter(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Reconcile(ctx, p.ID, []models.RawImportRecord{{"name": "x"}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestReconcile_NestedRecordWithoutParentStaysRoot(t *testing.T) {
	r, tm, p := newTestImporter(t)
	raw := []models.RawImportRecord{
		{"name": "orphan", "outlineLevel": 3},
		{"name": "ghost-child", "parentTaskName": "ghost"},
	}
	res, err := r.Reconcile(context.Background(), p.ID, raw)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.Linked != 0 {
		t.Errorf("Linked = %d, want 0", res.Linked)
	}
	for name, parent := range parentsByName(t, tm, p.ID) {
		if parent != "" {
			t.Errorf("%s has parent %q, want root", name, parent)
		}
	}
}

func TestImportProject(t *testing.T) {
	tm, _, _ := newTestManager(t)
	r := NewImportReconciler(tm, zerolog.Nop())
	proj, res, err := r.ImportProject(context.Background(), models.Project{Name: "Legacy"}, []models.RawImportRecord{
		{"Task Name": "Kickoff", "Start": "2024-03-01", "Finish": "2024-03-01"},
	})
	if err != nil {
		t.Fatalf("ImportProject: %v", err)
	}
	if proj.Name != "Legacy" || res.Created != 1 {
		t.Fatalf("project = %+v, result = %+v", proj, res)
	}
	tasks, _ := tm.ListTasks(proj.ID)
	if len(tasks) != 1 || !tasks[0].IsMilestone() {
		t.Errorf("tasks = %+v, want one milestone", tasks)
	}
}

func TestNormalizeRecords_Defaults(t *testing.T) {
	recs, errs := NormalizeRecords([]models.RawImportRecord{
		{"name": "done", "percentComplete": 100},
		{"name": "fresh"},
		{"name": "span", "duration": 2.2, "level": 0},
	})
	for i, err := range errs {
		if err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}
	if recs[0].Status != models.StatusCompleted {
		t.Errorf("status at 100%% = %q, want completed", recs[0].Status)
	}
	if recs[1].Status != models.StatusTodo || recs[1].Priority != models.PriorityMedium {
		t.Errorf("defaults = %s/%s, want todo/medium", recs[1].Status, recs[1].Priority)
	}
	if recs[1].OutlineLevel != 1 {
		t.Errorf("OutlineLevel = %d, want 1", recs[1].OutlineLevel)
	}
	if recs[2].Duration == nil || *recs[2].Duration != 3 {
		t.Errorf("duration = %v, want ceil 3", recs[2].Duration)
	}
	if recs[2].OutlineLevel != 1 {
		t.Errorf("level 0 should become 1, got %d", recs[2].OutlineLevel)
	}
}

func TestNormalizeRecords_Priority(t *testing.T) {
	tests := []struct {
		in   any
		want models.Priority
	}{
		{1000, models.PriorityUrgent},
		{900, models.PriorityUrgent},
		{750, models.PriorityHigh},
		{500, models.PriorityMedium},
		{"499", models.PriorityLow},
		{"High", models.PriorityHigh},
		{"normal", models.PriorityMedium},
		{"critical", models.PriorityUrgent},
	}
	for _, tt := range tests {
		recs, errs := NormalizeRecords([]models.RawImportRecord{{"name": "x", "priority": tt.in}})
		if errs[0] != nil {
			t.Errorf("priority %v: %v", tt.in, errs[0])
			continue
		}
		if recs[0].Priority != tt.want {
			t.Errorf("priority %v = %q, want %q", tt.in, recs[0].Priority, tt.want)
		}
	}

	_, errs := NormalizeRecords([]models.RawImportRecord{{"name": "x", "priority": "someday"}})
	if !errors.Is(errs[0], ErrInvalidInput) {
		t.Errorf("unknown priority err = %v, want ErrInvalidInput", errs[0])
	}
}

func TestNormalizeRecords_ProgressClamped(t *testing.T) {
	recs, errs := NormalizeRecords([]models.RawImportRecord{
		{"name": "over", "progress": 140},
		{"name": "under", "progress": -5},
	})
	if errs[0] != nil || errs[1] != nil {
		t.Fatalf("errs = %v", errs)
	}
	if recs[0].Progress != 100 || recs[1].Progress != 0 {
		t.Errorf("progress = %d, %d; want 100, 0", recs[0].Progress, recs[1].Progress)
	}
}

func TestDecodeRawRecords(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    int
		wantErr bool
	}{
		{"json list", `[{"name":"A"},{"name":"B","outlineLevel":2}]`, 2, false},
		{"wrapped", `{"name":"Legacy","startDate":"2024-01-01","tasks":[{"name":"A"}]}`, 1, false},
		{"yaml", "- name: A\n  start_date: 2024-01-02\n- name: B\n", 2, false},
		{"scalar", `"nope"`, 0, true},
		{"broken", `[{"name":`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeRawRecords([]byte(tt.data))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if len(got) != tt.want {
				t.Errorf("got %d records, want %d", len(got), tt.want)
			}
		})
	}
}

func TestDecodeRawRecords_YAMLDatesNormalize(t *testing.T) {
	raw, err := DecodeRawRecords([]byte("- name: A\n  start_date: 2024-01-02\n  finish_date: 2024-01-05\n"))
	if err != nil {
		t.Fatalf("DecodeRawRecords: %v", err)
	}
	recs, errs := NormalizeRecords(raw)
	if errs[0] != nil {
		t.Fatalf("normalize: %v", errs[0])
	}
	if recs[0].StartDate == nil || !recs[0].StartDate.Equal(day(2024, 1, 2)) {
		t.Errorf("StartDate = %v", recs[0].StartDate)
	}
	if recs[0].FinishDate == nil || !recs[0].FinishDate.Equal(day(2024, 1, 5)) {
		t.Errorf("FinishDate = %v", recs[0].FinishDate)
	}
}
