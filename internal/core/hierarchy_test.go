package core

import (
	"errors"
	"testing"

	"github.com/valter-silva-au/projectcolab/pkg/models"
)

func task(id, parent string, order int) models.Task {
	return models.Task{ID: id, ProjectID: "p1", Name: "task " + id, ParentID: parent, Order: order}
}

func rowIDs(rows []FlatRow) []string {
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.Task.ID
	}
	return ids
}

func assertIDs(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestBuildForest_OrdersSiblingsByOrderThenInput(t *testing.T) {
	tasks := []models.Task{
		task("b", "", 2),
		task("a", "", 1),
		task("a2", "a", 5),
		task("a1", "a", 1),
		task("a1bis", "a", 1),
		task("c", "", 2),
	}
	rows := Flatten(BuildForest(tasks))
	assertIDs(t, rowIDs(rows), []string{"a", "a1", "a1bis", "a2", "b", "c"})

	depths := map[string]int{"a": 0, "a1": 1, "a1bis": 1, "a2": 1, "b": 0, "c": 0}
	for _, r := range rows {
		if r.Depth != depths[r.Task.ID] {
			t.Errorf("depth of %s = %d, want %d", r.Task.ID, r.Depth, depths[r.Task.ID])
		}
	}
	if !rows[0].HasChildren || rows[1].HasChildren {
		t.Error("HasChildren not set as expected")
	}
}

func TestBuildForest_UnresolvedParentBecomesRoot(t *testing.T) {
	tasks := []models.Task{
		task("a", "ghost", 0),
		task("b", "b", 1),
		task("c", "a", 0),
	}
	rows := Flatten(BuildForest(tasks))
	assertIDs(t, rowIDs(rows), []string{"a", "c", "b"})
	if rows[0].ParentID != "" || rows[0].Task.ParentID != "ghost" {
		t.Errorf("root should keep stored parent but resolve to none, got %+v", rows[0])
	}
	if rows[2].ParentID != "" {
		t.Errorf("self-parented task should be a root, got parent %q", rows[2].ParentID)
	}
}

func TestBuildForest_StoredLoopKeepsEveryTask(t *testing.T) {
	tasks := []models.Task{
		task("x", "", 0),
		task("a", "c", 1),
		task("b", "a", 2),
		task("c", "b", 3),
	}
	rows := Flatten(BuildForest(tasks))
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %v", rowIDs(rows))
	}
	assertIDs(t, rowIDs(rows), []string{"x", "a", "b", "c"})
	if rows[3].Depth != 2 {
		t.Errorf("c depth = %d, want 2", rows[3].Depth)
	}
}

func TestBuildForest_Empty(t *testing.T) {
	if rows := Flatten(BuildForest(nil)); len(rows) != 0 {
		t.Fatalf("expected no rows, got %d", len(rows))
	}
}

func TestCheckReparent(t *testing.T) {
	tasks := []models.Task{
		task("a", "", 0),
		task("b", "a", 0),
		task("c", "b", 0),
		task("d", "", 0),
	}
	tests := []struct {
		name      string
		taskID    string
		newParent string
		wantCycle bool
	}{
		{"clear parent", "c", "", false},
		{"self", "a", "a", true},
		{"under descendant", "a", "c", true},
		{"under child", "b", "c", true},
		{"sideways", "d", "c", false},
		{"unknown parent", "d", "ghost", false},
		{"under ancestor", "c", "a", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckReparent(tasks, tt.taskID, tt.newParent)
			if got := errors.Is(err, ErrParentCycle); got != tt.wantCycle {
				t.Fatalf("CheckReparent(%s, %s) = %v, want cycle=%v", tt.taskID, tt.newParent, err, tt.wantCycle)
			}
		})
	}
}

func TestCheckReparent_ExistingLoopIsRejected(t *testing.T) {
	tasks := []models.Task{
		task("a", "b", 0),
		task("b", "a", 0),
		task("z", "", 0),
	}
	if err := CheckReparent(tasks, "z", "a"); !errors.Is(err, ErrParentCycle) {
		t.Fatalf("expected ErrParentCycle, got %v", err)
	}
}

func TestComputeVisible(t *testing.T) {
	tasks := []models.Task{
		task("a", "", 0),
		task("a1", "a", 0),
		task("a1x", "a1", 0),
		task("b", "", 1),
		task("b1", "b", 0),
	}
	rows := Flatten(BuildForest(tasks))

	assertIDs(t, rowIDs(ComputeVisible(rows, nil)), []string{"a", "b"})
	assertIDs(t, rowIDs(ComputeVisible(rows, DefaultExpanded(rows))), []string{"a", "a1", "a1x", "b", "b1"})
	// a1 expanded but its parent collapsed: a1x stays hidden.
	assertIDs(t, rowIDs(ComputeVisible(rows, NewIDSet("a1", "b"))), []string{"a", "b", "b1"})
	assertIDs(t, rowIDs(ComputeVisible(rows, NewIDSet("a"))), []string{"a", "a1", "b"})
}

func TestDefaultExpanded(t *testing.T) {
	rows := Flatten(BuildForest([]models.Task{
		task("a", "", 0),
		task("a1", "a", 0),
		task("b", "", 1),
	}))
	got := DefaultExpanded(rows)
	if !got.Has("a") || got.Has("a1") || got.Has("b") {
		t.Fatalf("DefaultExpanded = %v", got.Slice())
	}
}

func TestIDSet_Toggle(t *testing.T) {
	s := NewIDSet()
	if !s.Toggle("x") || !s.Has("x") {
		t.Fatal("toggle should add")
	}
	if s.Toggle("x") || s.Has("x") {
		t.Fatal("toggle should remove")
	}
}
