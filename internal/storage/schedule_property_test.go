package storage

import (
	"path/filepath"
	"testing"

	"github.com/valter-silva-au/projectcolab/pkg/models"
	"pgregory.net/rapid"
)

func genAlphaString(t *rapid.T, label string, minLen, maxLen int) string {
	letters := "abcdefghijklmnopqrstuvwxyz"
	n := rapid.IntRange(minLen, maxLen).Draw(t, label+"Len")
	b := make([]byte, n)
	for i := range b {
		b[i] = letters[rapid.IntRange(0, len(letters)-1).Draw(t, label+"Char")]
	}
	return string(b)
}

// Feature: schedule store, Property 1: No dangling edges after deletes
// For any sequence of task creations, edges, assignments and deletions, every
// remaining dependency and assignment references tasks that still exist.
func TestProperty_DeleteLeavesNoDanglingEdges(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		dir := t.TempDir()
		s := NewScheduleStore(filepath.Join(dir, "schedule.yaml"))
		p, err := s.CreateProject(models.Project{Name: "p"})
		if err != nil {
			rt.Fatalf("CreateProject: %v", err)
		}

		var ids []string
		steps := rapid.IntRange(1, 30).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			switch op := rapid.IntRange(0, 3).Draw(rt, "op"); {
			case op == 0 || len(ids) < 2:
				tk, err := s.CreateTask(p.ID, models.TaskDraft{Name: genAlphaString(rt, "name", 1, 10)})
				if err != nil {
					rt.Fatalf("CreateTask: %v", err)
				}
				ids = append(ids, tk.ID)
			case op == 1:
				a := rapid.SampledFrom(ids).Draw(rt, "from")
				b := rapid.SampledFrom(ids).Draw(rt, "to")
				if _, err := s.AddDependency(models.Dependency{TaskID: a, DependsOnID: b}); err != nil {
					rt.Fatalf("AddDependency: %v", err)
				}
			case op == 2:
				a := rapid.SampledFrom(ids).Draw(rt, "assignee")
				if _, err := s.AddAssignment(models.Assignment{TaskID: a, UserID: genAlphaString(rt, "user", 1, 4)}); err != nil {
					rt.Fatalf("AddAssignment: %v", err)
				}
			default:
				idx := rapid.IntRange(0, len(ids)-1).Draw(rt, "victim")
				if err := s.DeleteTask(ids[idx]); err != nil {
					rt.Fatalf("DeleteTask: %v", err)
				}
				ids = append(ids[:idx], ids[idx+1:]...)
			}
		}

		live := make(map[string]bool, len(ids))
		for _, id := range ids {
			live[id] = true
		}
		fs := s.(*fileScheduleStore)
		for _, d := range fs.data.Dependencies {
			if !live[d.TaskID] || !live[d.DependsOnID] {
				rt.Fatalf("dangling dependency %+v", d)
			}
		}
		for _, a := range fs.data.Assignments {
			if !live[a.TaskID] {
				rt.Fatalf("dangling assignment %+v", a)
			}
		}
		tasks, _ := s.ListTasks(p.ID)
		if len(tasks) != len(ids) {
			rt.Fatalf("store has %d tasks, expected %d", len(tasks), len(ids))
		}
	})
}
