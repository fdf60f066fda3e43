package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/valter-silva-au/projectcolab/internal/core"
	"github.com/valter-silva-au/projectcolab/internal/storage"
	"github.com/valter-silva-au/projectcolab/pkg/models"
)

// useTestServices points the package-level services at a fresh schedule in
// a temp dir and restores the previous values when the test ends.
func useTestServices(t *testing.T) core.TaskManager {
	t.Helper()
	origTasks, origImporter, origConfig := TaskMgr, Importer, Config
	t.Cleanup(func() {
		TaskMgr, Importer, Config = origTasks, origImporter, origConfig
	})

	store := storage.NewScheduleStore(filepath.Join(t.TempDir(), "schedule.yaml"))
	TaskMgr = core.NewTaskManager(store, nil, nil, core.DefaultTimelineConfig())
	Importer = core.NewImportReconciler(TaskMgr, zerolog.Nop())
	Config = nil
	return TaskMgr
}

// execute runs the root command with args and returns what it printed.
// Flags are reset afterwards so one test's flags never leak into the next.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	origNow := now
	defer func() {
		rootCmd.SetArgs(nil)
		resetFlags(rootCmd)
		now = origNow
	}()
	err := rootCmd.Execute()
	return out.String(), err
}

func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	})
	cmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func mustCreateProject(t *testing.T, tm core.TaskManager, name string) *models.Project {
	t.Helper()
	p, err := tm.CreateProject(models.Project{Name: name})
	if err != nil {
		t.Fatalf("CreateProject(%q): %v", name, err)
	}
	return p
}

func mustCreateTask(t *testing.T, tm core.TaskManager, projectID string, draft models.TaskDraft) *models.Task {
	t.Helper()
	task, err := tm.CreateTask(projectID, draft)
	if err != nil {
		t.Fatalf("CreateTask(%q): %v", draft.Name, err)
	}
	return task
}
