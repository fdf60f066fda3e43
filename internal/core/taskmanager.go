package core

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/valter-silva-au/projectcolab/pkg/models"
)

// TaskManager defines the interface for project and task lifecycle
// operations. Every successful mutation is written to the event log and the
// canonical result is published to the project's channel.
type TaskManager interface {
	ListProjects() ([]models.Project, error)
	GetProject(id string) (*models.Project, error)
	CreateProject(p models.Project) (*models.Project, error)
	UpdateProject(id string, patch models.ProjectPatch) (*models.Project, error)

	ListTasks(projectID string) ([]models.Task, error)
	GetTask(id string) (*models.Task, error)
	CreateTask(projectID string, draft models.TaskDraft) (*models.Task, error)
	UpdateTask(id string, patch models.TaskPatch) (*models.Task, error)
	DeleteTask(id string) error

	AddDependency(taskID, dependsOnID string, depType models.DependencyType) (*models.Dependency, error)
	ListDependencies(projectID string) ([]models.Dependency, error)
	AssignUser(taskID, userID string, role models.AssignmentRole) (*models.Assignment, error)
	ListAssignments(projectID string) ([]models.Assignment, error)

	Schedule(projectID string, opts ScheduleOptions) (*Schedule, error)
}

// ScheduleOptions selects how a project's timeline is laid out.
type ScheduleOptions struct {
	// Zoom is a resolution name or "auto". Empty means days.
	Zoom string
	// ContainerPx is the width available to table plus timeline; only used
	// by auto zoom.
	ContainerPx int
	// Expanded is the set of expanded rows. Nil means fully expanded.
	Expanded IDSet
	// Now anchors the default window of dateless projects. Zero means the
	// current time.
	Now time.Time
}

type taskManager struct {
	store    ScheduleStore
	pub      Publisher
	events   EventLogger
	timeline models.TimelineConfig

	// Writes to one project and their broadcasts happen under that
	// project's lock, so viewers receive updates in store order.
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewTaskManager creates a TaskManager. pub and events may be nil.
func NewTaskManager(store ScheduleStore, pub Publisher, events EventLogger, timeline models.TimelineConfig) TaskManager {
	return &taskManager{
		store:    store,
		pub:      pub,
		events:   events,
		timeline: timeline,
		locks:    make(map[string]*sync.Mutex),
	}
}

// lockProject takes the write lock of projectID and returns its release.
func (tm *taskManager) lockProject(projectID string) func() {
	tm.locksMu.Lock()
	m, ok := tm.locks[projectID]
	if !ok {
		m = &sync.Mutex{}
		tm.locks[projectID] = m
	}
	tm.locksMu.Unlock()
	m.Lock()
	return m.Unlock
}

// --- Projects ---

func (tm *taskManager) ListProjects() ([]models.Project, error) {
	return tm.store.ListProjects()
}

func (tm *taskManager) GetProject(id string) (*models.Project, error) {
	return tm.store.GetProject(id)
}

func (tm *taskManager) CreateProject(p models.Project) (*models.Project, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return nil, fmt.Errorf("creating project: name must not be empty: %w", ErrInvalidInput)
	}
	created, err := tm.store.CreateProject(p)
	if err != nil {
		return nil, fmt.Errorf("creating project: %w", err)
	}
	tm.logEvent("project.created", map[string]any{"project_id": created.ID, "name": created.Name})
	tm.publish(created.ID, models.EventProjectUpdated, created)
	return created, nil
}

func (tm *taskManager) UpdateProject(id string, patch models.ProjectPatch) (*models.Project, error) {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, fmt.Errorf("updating project %s: name must not be empty: %w", id, ErrInvalidInput)
	}
	defer tm.lockProject(id)()
	updated, err := tm.store.UpdateProject(id, patch)
	if err != nil {
		return nil, fmt.Errorf("updating project %s: %w", id, err)
	}
	tm.logEvent("project.updated", map[string]any{"project_id": id})
	tm.publish(id, models.EventProjectUpdated, updated)
	return updated, nil
}

// --- Tasks ---

func (tm *taskManager) ListTasks(projectID string) ([]models.Task, error) {
	return tm.store.ListTasks(projectID)
}

func (tm *taskManager) GetTask(id string) (*models.Task, error) {
	return tm.store.GetTask(id)
}

func (tm *taskManager) CreateTask(projectID string, draft models.TaskDraft) (*models.Task, error) {
	draft.Name = strings.TrimSpace(draft.Name)
	if err := validateDraft(draft); err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}
	defer tm.lockProject(projectID)()
	if draft.ParentID != "" {
		if _, err := tm.parentInProject(projectID, draft.ParentID); err != nil {
			return nil, fmt.Errorf("creating task: %w", err)
		}
	}

	created, err := tm.store.CreateTask(projectID, draft)
	if err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}
	tm.logEvent("task.created", map[string]any{
		"task_id":    created.ID,
		"project_id": created.ProjectID,
		"name":       created.Name,
		"status":     string(created.Status),
	})
	tm.publish(created.ProjectID, models.EventTaskCreated, created)
	return created, nil
}

// UpdateTask applies a partial update. A reparent is rejected when the new
// parent lives in another project or when it would close a loop in the
// parent chain.
func (tm *taskManager) UpdateTask(id string, patch models.TaskPatch) (*models.Task, error) {
	if err := validatePatch(patch); err != nil {
		return nil, fmt.Errorf("updating task %s: %w", id, err)
	}

	current, err := tm.store.GetTask(id)
	if err != nil {
		return nil, fmt.Errorf("updating task %s: %w", id, err)
	}
	// A task never changes project, so the lock taken here covers the write.
	defer tm.lockProject(current.ProjectID)()
	if current, err = tm.store.GetTask(id); err != nil {
		return nil, fmt.Errorf("updating task %s: %w", id, err)
	}

	if !patch.ClearParent && patch.ParentID != nil && *patch.ParentID != "" {
		parentID := *patch.ParentID
		if _, err := tm.parentInProject(current.ProjectID, parentID); err != nil {
			return nil, fmt.Errorf("updating task %s: %w", id, err)
		}
		siblings, err := tm.store.ListTasks(current.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("updating task %s: %w", id, err)
		}
		if err := CheckReparent(siblings, id, parentID); err != nil {
			return nil, fmt.Errorf("updating task %s: %w", id, err)
		}
	}

	updated, err := tm.store.UpdateTask(id, patch)
	if err != nil {
		return nil, fmt.Errorf("updating task %s: %w", id, err)
	}
	data := map[string]any{"task_id": id, "project_id": updated.ProjectID}
	if patch.Status != nil && current.Status != updated.Status {
		data["old_status"] = string(current.Status)
		data["new_status"] = string(updated.Status)
	}
	tm.logEvent("task.updated", data)
	tm.publish(updated.ProjectID, models.EventTaskUpdated, updated)
	return updated, nil
}

func (tm *taskManager) DeleteTask(id string) error {
	current, err := tm.store.GetTask(id)
	if err != nil {
		return fmt.Errorf("deleting task %s: %w", id, err)
	}
	defer tm.lockProject(current.ProjectID)()
	if err := tm.store.DeleteTask(id); err != nil {
		return fmt.Errorf("deleting task %s: %w", id, err)
	}
	tm.logEvent("task.deleted", map[string]any{"task_id": id, "project_id": current.ProjectID})
	tm.publish(current.ProjectID, models.EventTaskDeleted, models.TaskDeletedPayload{ID: id, ProjectID: current.ProjectID})
	return nil
}

func (tm *taskManager) parentInProject(projectID, parentID string) (*models.Task, error) {
	parent, err := tm.store.GetTask(parentID)
	if err != nil {
		return nil, fmt.Errorf("parent %s: %w", parentID, err)
	}
	if parent.ProjectID != projectID {
		return nil, fmt.Errorf("parent %s: %w", parentID, ErrCrossProject)
	}
	return parent, nil
}

// --- Dependencies and assignments ---

// AddDependency records that taskID depends on dependsOnID. Edges are
// display metadata: no loop or cross-project check is made and no dates
// move. The dependent task is re-published so viewers redraw its links.
func (tm *taskManager) AddDependency(taskID, dependsOnID string, depType models.DependencyType) (*models.Dependency, error) {
	if depType == "" {
		depType = models.FinishToStart
	}
	if !depType.Valid() {
		return nil, fmt.Errorf("adding dependency: unknown type %q: %w", depType, ErrInvalidInput)
	}
	if t, err := tm.store.GetTask(taskID); err == nil {
		defer tm.lockProject(t.ProjectID)()
	}
	dep, err := tm.store.AddDependency(models.Dependency{TaskID: taskID, DependsOnID: dependsOnID, Type: depType})
	if err != nil {
		return nil, fmt.Errorf("adding dependency: %w", err)
	}
	tm.logEvent("dependency.added", map[string]any{
		"task_id":       taskID,
		"depends_on_id": dependsOnID,
		"type":          string(depType),
	})
	if t, err := tm.store.GetTask(taskID); err == nil {
		tm.publish(t.ProjectID, models.EventTaskUpdated, t)
	}
	return dep, nil
}

func (tm *taskManager) ListDependencies(projectID string) ([]models.Dependency, error) {
	return tm.store.ListDependencies(projectID)
}

func (tm *taskManager) AssignUser(taskID, userID string, role models.AssignmentRole) (*models.Assignment, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("assigning user: user id must not be empty: %w", ErrInvalidInput)
	}
	if role == "" {
		role = models.RoleAssignee
	}
	if !role.Valid() {
		return nil, fmt.Errorf("assigning user: unknown role %q: %w", role, ErrInvalidInput)
	}
	if t, err := tm.store.GetTask(taskID); err == nil {
		defer tm.lockProject(t.ProjectID)()
	}
	a, err := tm.store.AddAssignment(models.Assignment{TaskID: taskID, UserID: userID, Role: role})
	if err != nil {
		return nil, fmt.Errorf("assigning user: %w", err)
	}
	data := map[string]any{"task_id": taskID, "user_id": userID, "role": string(role)}
	t, err := tm.store.GetTask(taskID)
	if err == nil {
		data["project_id"] = t.ProjectID
	}
	tm.logEvent("task.assigned", data)
	if t != nil {
		tm.publish(t.ProjectID, models.EventTaskUpdated, t)
	}
	return a, nil
}

func (tm *taskManager) ListAssignments(projectID string) ([]models.Assignment, error) {
	return tm.store.ListAssignments(projectID)
}

// --- Layout ---

// Schedule lays out the project's current snapshot from scratch.
func (tm *taskManager) Schedule(projectID string, opts ScheduleOptions) (*Schedule, error) {
	tasks, err := tm.store.ListTasks(projectID)
	if err != nil {
		return nil, fmt.Errorf("scheduling project %s: %w", projectID, err)
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	zoom := NewZoomController(models.ResolutionDays, tm.timeline)
	if opts.Zoom != "" {
		rng := DeriveRange(tasks, now, tm.timeline)
		if _, err := zoom.Apply(opts.Zoom, rng, opts.ContainerPx); err != nil {
			return nil, fmt.Errorf("scheduling project %s: %v: %w", projectID, err, ErrInvalidInput)
		}
	}

	s := LayoutSchedule(tasks, opts.Expanded, zoom.Resolution(), now, tm.timeline)
	return &s, nil
}

// --- Helpers ---

func validateDraft(d models.TaskDraft) error {
	var errs []string
	if d.Name == "" {
		errs = append(errs, "name must not be empty")
	}
	if d.Status != "" && !d.Status.Valid() {
		errs = append(errs, fmt.Sprintf("status %q is invalid", d.Status))
	}
	if d.Priority != "" && !d.Priority.Valid() {
		errs = append(errs, fmt.Sprintf("priority %q is invalid", d.Priority))
	}
	if d.Progress != nil && (*d.Progress < 0 || *d.Progress > 100) {
		errs = append(errs, fmt.Sprintf("progress %d must be between 0 and 100", *d.Progress))
	}
	if d.Duration != nil && *d.Duration < 0 {
		errs = append(errs, fmt.Sprintf("duration %d must be non-negative", *d.Duration))
	}
	return joinValidation(errs)
}

func validatePatch(p models.TaskPatch) error {
	var errs []string
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		errs = append(errs, "name must not be empty")
	}
	if p.Status != nil && !p.Status.Valid() {
		errs = append(errs, fmt.Sprintf("status %q is invalid", *p.Status))
	}
	if p.Priority != nil && !p.Priority.Valid() {
		errs = append(errs, fmt.Sprintf("priority %q is invalid", *p.Priority))
	}
	if p.Progress != nil && (*p.Progress < 0 || *p.Progress > 100) {
		errs = append(errs, fmt.Sprintf("progress %d must be between 0 and 100", *p.Progress))
	}
	if p.Duration != nil && *p.Duration < 0 {
		errs = append(errs, fmt.Sprintf("duration %d must be non-negative", *p.Duration))
	}
	return joinValidation(errs)
}

func joinValidation(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("task validation failed:\n  - %s: %w", strings.Join(errs, "\n  - "), ErrInvalidInput)
}

// logEvent emits an event if an EventLogger is configured.
func (tm *taskManager) logEvent(eventType string, data map[string]any) {
	if tm.events != nil {
		_ = tm.events.LogEvent(eventType, data)
	}
}

func (tm *taskManager) publish(projectID, event string, payload any) {
	if tm.pub != nil {
		tm.pub.Publish(models.ProjectChannel(projectID), event, payload)
	}
}
