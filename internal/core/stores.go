package core

import (
	"github.com/valter-silva-au/projectcolab/internal/storage"
	"github.com/valter-silva-au/projectcolab/pkg/models"
)

// ScheduleStore is the subset of storage.ScheduleStore that core services
// need.
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
}

var _ ScheduleStore = storage.ScheduleStore(nil)

// Publisher fans an event out to every member of a channel. The realtime hub
// implements it; a nil Publisher disables broadcasting.
type Publisher interface {
	Publish(channel, event string, payload any)
}

// EventLogger records schedule mutations for metrics and alerts. Every
// task event carries project_id and task_id in data; a nil EventLogger
// disables recording.
type EventLogger interface {
	LogEvent(eventType string, data map[string]any) error
}
