package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/valter-silva-au/projectcolab/pkg/models"
	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when a project, task or dependency id is unknown.
var ErrNotFound = errors.New("not found")

// ScheduleFile represents the top-level structure of schedule.yaml.
type ScheduleFile struct {
	Version      string                    `yaml:"version"`
	Projects     map[string]models.Project `yaml:"projects"`
	Tasks        map[string]models.Task    `yaml:"tasks"`
	Dependencies []models.Dependency       `yaml:"dependencies"`
	Assignments  []models.Assignment       `yaml:"assignments"`
}

// ScheduleStore is the authoritative store of projects, tasks, dependency
// edges and assignments. Every mutation returns the canonical record as
// persisted. Concurrent writers are last-write-wins.
type ScheduleStore interface {
	ListProjects() ([]models.Project, error)
	GetProject(id string) (*models.Project, error)
	CreateProject(p models.Project) (*models.Project, error)
	UpdateProject(id string, patch models.ProjectPatch) (*models.Project, error)

	ListTasks(projectID string) ([]models.Task, error)
	GetTask(id string) (*models.Task, error)
	CreateTask(projectID string, draft models.TaskDraft) (*models.Task, error)
	UpdateTask(id string, patch models.TaskPatch) (*models.Task, error)
	DeleteTask(id string) error

	AddDependency(dep models.Dependency) (*models.Dependency, error)
	ListDependencies(projectID string) ([]models.Dependency, error)
	AddAssignment(a models.Assignment) (*models.Assignment, error)
	ListAssignments(projectID string) ([]models.Assignment, error)

	Load() error
	Path() string
}

type fileScheduleStore struct {
	path string
	mu   sync.RWMutex
	data ScheduleFile
	now  func() time.Time
}

// NewScheduleStore creates a ScheduleStore backed by the YAML document at
// path. Call Load before first use to pick up existing data.
func NewScheduleStore(path string) ScheduleStore {
	return &fileScheduleStore{
		path: path,
		data: emptySchedule(),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func emptySchedule() ScheduleFile {
	return ScheduleFile{
		Version:  "1.0",
		Projects: make(map[string]models.Project),
		Tasks:    make(map[string]models.Task),
	}
}

func (s *fileScheduleStore) Path() string { return s.path }

func (s *fileScheduleStore) lockPath() string { return s.path + ".lock" }

// Load replaces the in-memory state with the document on disk. A missing
// file yields an empty schedule.
func (s *fileScheduleStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(filepath.Dir(s.path)); err != nil {
		// No directory means no document and nowhere to put a lock file.
		return s.loadLocked()
	}
	release, err := flock(s.lockPath(), lockShared)
	if err != nil {
		return err
	}
	defer release()
	return s.loadLocked()
}

func (s *fileScheduleStore) loadLocked() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.data = emptySchedule()
			return nil
		}
		return fmt.Errorf("loading schedule: %w", err)
	}

	var sf ScheduleFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return fmt.Errorf("loading schedule: parsing YAML: %w", err)
	}
	if sf.Projects == nil {
		sf.Projects = make(map[string]models.Project)
	}
	if sf.Tasks == nil {
		sf.Tasks = make(map[string]models.Task)
	}
	s.data = sf
	return nil
}

func (s *fileScheduleStore) saveLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("saving schedule: creating directory: %w", err)
	}
	data, err := yaml.Marshal(&s.data)
	if err != nil {
		return fmt.Errorf("saving schedule: marshaling YAML: %w", err)
	}
	// Write beside the target and rename so a crash never leaves a torn
	// document behind.
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("saving schedule: creating temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("saving schedule: writing file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("saving schedule: writing file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("saving schedule: replacing file: %w", err)
	}
	return nil
}

// mutate reloads the document under the file lock, applies fn and writes the
// result back, so separate processes sharing the file do not drop each
// other's records.
func (s *fileScheduleStore) mutate(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("creating schedule directory: %w", err)
	}
	release, err := flock(s.lockPath(), lockExclusive)
	if err != nil {
		return err
	}
	defer release()

	if err := s.loadLocked(); err != nil {
		return err
	}
	if err := fn(); err != nil {
		return s.discardLocked(err)
	}
	if err := s.saveLocked(); err != nil {
		return s.discardLocked(err)
	}
	return nil
}

// discardLocked drops unsaved changes by reloading the last written document.
func (s *fileScheduleStore) discardLocked(cause error) error {
	if err := s.loadLocked(); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

// --- Projects ---

func (s *fileScheduleStore) ListProjects() ([]models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Project, 0, len(s.data.Projects))
	for _, p := range s.data.Projects {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Created.Equal(out[j].Created) {
			return out[i].Created.Before(out[j].Created)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *fileScheduleStore) GetProject(id string) (*models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.data.Projects[id]
	if !ok {
		return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	return &p, nil
}

func (s *fileScheduleStore) CreateProject(p models.Project) (*models.Project, error) {
	var created models.Project
	err := s.mutate(func() error {
		now := s.now()
		p.ID = uuid.NewString()
		p.StartDate = dateOnly(p.StartDate)
		p.EndDate = dateOnly(p.EndDate)
		p.Created, p.Updated = now, now
		s.data.Projects[p.ID] = p
		created = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("creating project: %w", err)
	}
	return &created, nil
}

func (s *fileScheduleStore) UpdateProject(id string, patch models.ProjectPatch) (*models.Project, error) {
	var updated models.Project
	err := s.mutate(func() error {
		p, ok := s.data.Projects[id]
		if !ok {
			return fmt.Errorf("project %s: %w", id, ErrNotFound)
		}
		if patch.Name != nil {
			p.Name = *patch.Name
		}
		if patch.Description != nil {
			p.Description = *patch.Description
		}
		if patch.Color != nil {
			p.Color = *patch.Color
		}
		if patch.StartDate != nil {
			p.StartDate = dateOnly(patch.StartDate)
		}
		if patch.EndDate != nil {
			p.EndDate = dateOnly(patch.EndDate)
		}
		p.Updated = s.now()
		s.data.Projects[id] = p
		updated = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("updating project: %w", err)
	}
	return &updated, nil
}

// --- Tasks ---

// ListTasks returns the tasks of a project ordered by Order, then creation
// time, then id.
func (s *fileScheduleStore) ListTasks(projectID string) ([]models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.data.Projects[projectID]; !ok {
		return nil, fmt.Errorf("listing tasks: project %s: %w", projectID, ErrNotFound)
	}
	var out []models.Task
	for _, t := range s.data.Tasks {
		if t.ProjectID == projectID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		if !a.Created.Equal(b.Created) {
			return a.Created.Before(b.Created)
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (s *fileScheduleStore) GetTask(id string) (*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.data.Tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return &t, nil
}

// CreateTask stores a new task. Unset fields take their defaults: order is
// one more than the project's current maximum, progress 0, status todo and
// priority medium.
func (s *fileScheduleStore) CreateTask(projectID string, draft models.TaskDraft) (*models.Task, error) {
	var created models.Task
	err := s.mutate(func() error {
		if _, ok := s.data.Projects[projectID]; !ok {
			return fmt.Errorf("project %s: %w", projectID, ErrNotFound)
		}
		now := s.now()
		t := models.Task{
			ID:          uuid.NewString(),
			ProjectID:   projectID,
			Name:        draft.Name,
			Description: draft.Description,
			StartDate:   dateOnly(draft.StartDate),
			EndDate:     dateOnly(draft.EndDate),
			Duration:    draft.Duration,
			Status:      draft.Status,
			Priority:    draft.Priority,
			ParentID:    draft.ParentID,
			Created:     now,
			Updated:     now,
		}
		if draft.Progress != nil {
			t.Progress = *draft.Progress
		}
		if t.Status == "" {
			t.Status = models.StatusTodo
		}
		if t.Priority == "" {
			t.Priority = models.PriorityMedium
		}
		if draft.Order != nil {
			t.Order = *draft.Order
		} else {
			t.Order = s.maxOrderLocked(projectID) + 1
		}
		hydrate(&t)
		s.data.Tasks[t.ID] = t
		created = t
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}
	return &created, nil
}

func (s *fileScheduleStore) maxOrderLocked(projectID string) int {
	highest, seen := 0, false
	for _, t := range s.data.Tasks {
		if t.ProjectID != projectID {
			continue
		}
		if !seen || t.Order > highest {
			highest, seen = t.Order, true
		}
	}
	return highest
}

// UpdateTask applies a partial update. The id and project of a task never
// change.
func (s *fileScheduleStore) UpdateTask(id string, patch models.TaskPatch) (*models.Task, error) {
	var updated models.Task
	err := s.mutate(func() error {
		t, ok := s.data.Tasks[id]
		if !ok {
			return fmt.Errorf("task %s: %w", id, ErrNotFound)
		}
		applyPatch(&t, patch)
		t.Updated = s.now()
		hydrate(&t)
		s.data.Tasks[id] = t
		updated = t
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("updating task: %w", err)
	}
	return &updated, nil
}

func applyPatch(t *models.Task, p models.TaskPatch) {
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.ClearStartDate {
		t.StartDate = nil
	} else if p.StartDate != nil {
		t.StartDate = dateOnly(p.StartDate)
	}
	if p.ClearEndDate {
		t.EndDate = nil
	} else if p.EndDate != nil {
		t.EndDate = dateOnly(p.EndDate)
	}
	if p.Duration != nil {
		d := *p.Duration
		t.Duration = &d
	}
	if p.Progress != nil {
		t.Progress = *p.Progress
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.ClearParent {
		t.ParentID = ""
	} else if p.ParentID != nil {
		t.ParentID = *p.ParentID
	}
	if p.Order != nil {
		t.Order = *p.Order
	}
}

// hydrate keeps the stored duration in line with the dates when both are
// present.
func hydrate(t *models.Task) {
	if t.StartDate != nil && t.EndDate != nil {
		d := t.EffectiveDuration()
		t.Duration = &d
	}
}

// DeleteTask removes a task together with every dependency edge touching it
// and every assignment on it. Children keep their parent id and show up as
// roots once the hierarchy is rebuilt.
func (s *fileScheduleStore) DeleteTask(id string) error {
	err := s.mutate(func() error {
		if _, ok := s.data.Tasks[id]; !ok {
			return fmt.Errorf("task %s: %w", id, ErrNotFound)
		}
		delete(s.data.Tasks, id)

		deps := s.data.Dependencies[:0]
		for _, d := range s.data.Dependencies {
			if d.TaskID != id && d.DependsOnID != id {
				deps = append(deps, d)
			}
		}
		s.data.Dependencies = deps

		assigns := s.data.Assignments[:0]
		for _, a := range s.data.Assignments {
			if a.TaskID != id {
				assigns = append(assigns, a)
			}
		}
		s.data.Assignments = assigns
		return nil
	})
	if err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}
	return nil
}

// --- Dependencies and assignments ---

// AddDependency stores a typed edge. Only the endpoints' existence is
// checked; loops and cross-project edges are accepted.
func (s *fileScheduleStore) AddDependency(dep models.Dependency) (*models.Dependency, error) {
	err := s.mutate(func() error {
		for _, id := range []string{dep.TaskID, dep.DependsOnID} {
			if _, ok := s.data.Tasks[id]; !ok {
				return fmt.Errorf("task %s: %w", id, ErrNotFound)
			}
		}
		if dep.Type == "" {
			dep.Type = models.FinishToStart
		}
		dep.ID = uuid.NewString()
		s.data.Dependencies = append(s.data.Dependencies, dep)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("adding dependency: %w", err)
	}
	return &dep, nil
}

// ListDependencies returns edges whose dependent task is in the project.
func (s *fileScheduleStore) ListDependencies(projectID string) ([]models.Dependency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Dependency
	for _, d := range s.data.Dependencies {
		if t, ok := s.data.Tasks[d.TaskID]; ok && t.ProjectID == projectID {
			out = append(out, d)
		}
	}
	return out, nil
}

// AddAssignment stores an assignment. Assigning the same user and role to a
// task twice keeps a single record.
func (s *fileScheduleStore) AddAssignment(a models.Assignment) (*models.Assignment, error) {
	err := s.mutate(func() error {
		if _, ok := s.data.Tasks[a.TaskID]; !ok {
			return fmt.Errorf("task %s: %w", a.TaskID, ErrNotFound)
		}
		if a.Role == "" {
			a.Role = models.RoleAssignee
		}
		for _, existing := range s.data.Assignments {
			if existing == a {
				return nil
			}
		}
		s.data.Assignments = append(s.data.Assignments, a)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("adding assignment: %w", err)
	}
	return &a, nil
}

func (s *fileScheduleStore) ListAssignments(projectID string) ([]models.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Assignment
	for _, a := range s.data.Assignments {
		if t, ok := s.data.Tasks[a.TaskID]; ok && t.ProjectID == projectID {
			out = append(out, a)
		}
	}
	return out, nil
}

func dateOnly(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := models.DateOnly(*t)
	return &d
}
