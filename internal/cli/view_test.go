package cli

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/valter-silva-au/projectcolab/internal/core"
	"github.com/valter-silva-au/projectcolab/pkg/models"
)

func viewFixture() []models.Task {
	start := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	return []models.Task{
		{ID: "p", Name: "Phase", StartDate: &start, EndDate: &end},
		{ID: "a", Name: "Alpha", ParentID: "p", Order: 0, StartDate: &start, EndDate: &start},
		{ID: "b", Name: "Beta", ParentID: "p", Order: 1},
		{ID: "z", Name: "Zeta", Order: 1},
	}
}

func loadedViewModel(t *testing.T) viewModel {
	t.Helper()
	tasks := viewFixture()
	m := newViewModel("proj", core.DefaultTimelineConfig(), func(string) ([]models.Task, error) { return tasks, nil })
	m.now = func() time.Time { return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC) }

	cmd := m.Init()
	if cmd == nil {
		t.Fatal("expected Init to return a load command")
	}
	updated, _ := m.Update(cmd())
	return updated.(viewModel)
}

func press(m viewModel, key string) viewModel {
	var msg tea.KeyMsg
	switch key {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		msg = tea.KeyMsg{Type: tea.KeyUp}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	updated, _ := m.Update(msg)
	return updated.(viewModel)
}

func TestViewModel_LoadShowsFullTree(t *testing.T) {
	m := loadedViewModel(t)
	if m.loading {
		t.Fatal("still loading after tasksLoadedMsg")
	}
	ids := rowIDs(m)
	if strings.Join(ids, ",") != "p,a,b,z" {
		t.Errorf("rows = %v", ids)
	}
}

func TestViewModel_ToggleCollapsesAndExpands(t *testing.T) {
	m := loadedViewModel(t)

	m = press(m, "enter")
	if got := strings.Join(rowIDs(m), ","); got != "p,z" {
		t.Fatalf("after collapse rows = %s", got)
	}

	m = press(m, "enter")
	if got := strings.Join(rowIDs(m), ","); got != "p,a,b,z" {
		t.Errorf("after expand rows = %s", got)
	}

	// A leaf has nothing to toggle.
	m = press(m, "down")
	m = press(m, "enter")
	if len(m.schedule.Rows) != 4 {
		t.Errorf("toggling a leaf changed the rows: %v", rowIDs(m))
	}
}

func TestViewModel_CursorStaysOnVisibleRow(t *testing.T) {
	m := loadedViewModel(t)
	for i := 0; i < 10; i++ {
		m = press(m, "down")
	}
	if m.cursor != 3 {
		t.Fatalf("cursor = %d, want 3", m.cursor)
	}
	m = press(m, "up")
	m = press(m, "up")
	m = press(m, "up")
	m = press(m, "enter")
	if m.cursor != 0 || len(m.schedule.Rows) != 2 {
		t.Errorf("cursor = %d rows = %v", m.cursor, rowIDs(m))
	}
}

func TestViewModel_ExpandedSurvivesReload(t *testing.T) {
	m := loadedViewModel(t)
	m = press(m, "enter")

	updated, _ := m.Update(tasksLoadedMsg{tasks: viewFixture()})
	m = updated.(viewModel)
	if got := strings.Join(rowIDs(m), ","); got != "p,z" {
		t.Errorf("reload reset the expanded rows: %s", got)
	}
}

func TestViewModel_ReloadExpandsNewParents(t *testing.T) {
	m := loadedViewModel(t)
	m = press(m, "enter")

	tasks := append(viewFixture(), models.Task{ID: "c", Name: "Child", ParentID: "z"})
	updated, _ := m.Update(tasksLoadedMsg{tasks: tasks})
	m = updated.(viewModel)
	if got := strings.Join(rowIDs(m), ","); got != "p,z,c" {
		t.Errorf("rows after reload = %s, want p closed and z open", got)
	}

	m = press(m, "enter")
	updated, _ = m.Update(tasksLoadedMsg{tasks: tasks})
	m = updated.(viewModel)
	if got := strings.Join(rowIDs(m), ","); got != "p,a,b,z,c" {
		t.Errorf("rows after reopening p = %s", got)
	}
}

func TestViewModel_Zoom(t *testing.T) {
	m := loadedViewModel(t)
	if m.schedule.Resolution != models.ResolutionDays {
		t.Fatalf("initial resolution = %s", m.schedule.Resolution)
	}

	m = press(m, "+")
	if m.schedule.Resolution != models.ResolutionWeeks {
		t.Errorf("after + resolution = %s", m.schedule.Resolution)
	}
	m = press(m, "-")
	m = press(m, "-")
	if m.schedule.Resolution != models.ResolutionDays {
		t.Errorf("zooming past days: resolution = %s", m.schedule.Resolution)
	}

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m = press(updated.(viewModel), "a")
	if !m.zoom.IsAuto() {
		t.Error("expected auto zoom to be pinned")
	}
	if m.schedule.Resolution == models.ResolutionDays {
		t.Errorf("auto zoom in 80 columns kept days")
	}
	if !strings.Contains(m.View(), "(auto)") {
		t.Error("view does not show auto zoom")
	}
}

func TestViewModel_QuitAndErrors(t *testing.T) {
	m := loadedViewModel(t)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("expected tea.Quit command from q key")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Errorf("expected tea.QuitMsg")
	}

	failing := newViewModel("proj", core.DefaultTimelineConfig(), func(string) ([]models.Task, error) {
		return nil, errors.New("store unavailable")
	})
	updated, _ := failing.Update(failing.Init()())
	if view := updated.(viewModel).View(); !strings.Contains(view, "store unavailable") {
		t.Errorf("view = %q", view)
	}
}

func rowIDs(m viewModel) []string {
	ids := make([]string, len(m.schedule.Rows))
	for i, r := range m.schedule.Rows {
		ids[i] = r.Task.ID
	}
	return ids
}
