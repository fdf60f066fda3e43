package models

import "time"

// TaskStatus represents the current lifecycle state of a task.
type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in_progress"
	StatusCompleted  TaskStatus = "completed"
	StatusBlocked    TaskStatus = "blocked"
)

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusCompleted, StatusBlocked:
		return true
	}
	return false
}

// Priority represents the urgency level of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Task is a single schedulable unit of work owned by exactly one project.
// ParentID is a weak reference into the same project's task set; a parent
// that cannot be resolved makes the task a root when the hierarchy is built.
type Task struct {
	ID          string     `yaml:"id" json:"id"`
	ProjectID   string     `yaml:"project_id" json:"projectId"`
	Name        string     `yaml:"name" json:"name"`
	Description string     `yaml:"description,omitempty" json:"description,omitempty"`
	StartDate   *time.Time `yaml:"start_date,omitempty" json:"startDate,omitempty"`
	EndDate     *time.Time `yaml:"end_date,omitempty" json:"endDate,omitempty"`
	Duration    *int       `yaml:"duration,omitempty" json:"duration,omitempty"`
	Progress    int        `yaml:"progress" json:"progress"`
	Status      TaskStatus `yaml:"status" json:"status"`
	Priority    Priority   `yaml:"priority" json:"priority"`
	ParentID    string     `yaml:"parent_id,omitempty" json:"parentId,omitempty"`
	Order       int        `yaml:"order" json:"order"`
	Created     time.Time  `yaml:"created" json:"created"`
	Updated     time.Time  `yaml:"updated" json:"updated"`
}

// EffectiveDuration returns the task length in whole days. When both dates
// are present the value is derived from them and never negative; a task with
// only a start date has zero duration; otherwise the stored duration is used.
func (t Task) EffectiveDuration() int {
	if t.StartDate != nil && t.EndDate != nil {
		days := DaysBetween(*t.StartDate, *t.EndDate)
		if days < 0 {
			return 0
		}
		return days
	}
	if t.StartDate != nil {
		return 0
	}
	if t.Duration != nil {
		return *t.Duration
	}
	return 0
}

// IsMilestone reports whether the task is a zero-duration task.
func (t Task) IsMilestone() bool {
	if t.Duration != nil && *t.Duration == 0 {
		return true
	}
	if t.StartDate != nil && t.EndDate != nil && SameDay(*t.StartDate, *t.EndDate) {
		return true
	}
	return t.EffectiveDuration() == 0
}

// TaskDraft carries the fields accepted when creating a task. Zero values
// mean "use the default".
type TaskDraft struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	StartDate   *time.Time `json:"startDate,omitempty"`
	EndDate     *time.Time `json:"endDate,omitempty"`
	Duration    *int       `json:"duration,omitempty"`
	Progress    *int       `json:"progress,omitempty"`
	Status      TaskStatus `json:"status,omitempty"`
	Priority    Priority   `json:"priority,omitempty"`
	ParentID    string     `json:"parentId,omitempty"`
	Order       *int       `json:"order,omitempty"`
}

// TaskPatch is a partial update. Nil pointers leave a field untouched; the
// Clear flags reset a nullable field. ID and ProjectID are never patchable.
type TaskPatch struct {
	Name           *string     `json:"name,omitempty"`
	Description    *string     `json:"description,omitempty"`
	StartDate      *time.Time  `json:"startDate,omitempty"`
	EndDate        *time.Time  `json:"endDate,omitempty"`
	ClearStartDate bool        `json:"clearStartDate,omitempty"`
	ClearEndDate   bool        `json:"clearEndDate,omitempty"`
	Duration       *int        `json:"duration,omitempty"`
	Progress       *int        `json:"progress,omitempty"`
	Status         *TaskStatus `json:"status,omitempty"`
	Priority       *Priority   `json:"priority,omitempty"`
	ParentID       *string     `json:"parentId,omitempty"`
	ClearParent    bool        `json:"clearParent,omitempty"`
	Order          *int        `json:"order,omitempty"`
}

// Reparents reports whether the patch changes the parent link.
func (p TaskPatch) Reparents() bool {
	return p.ClearParent || (p.ParentID != nil)
}

// DependencyType describes how two tasks relate in time. The edge is purely
// descriptive: nothing is rescheduled when a prerequisite moves.
type DependencyType string

const (
	FinishToStart  DependencyType = "finish_to_start"
	StartToStart   DependencyType = "start_to_start"
	FinishToFinish DependencyType = "finish_to_finish"
	StartToFinish  DependencyType = "start_to_finish"
)

// Valid reports whether d is a known dependency type.
func (d DependencyType) Valid() bool {
	switch d {
	case FinishToStart, StartToStart, FinishToFinish, StartToFinish:
		return true
	}
	return false
}

// Dependency is a directed edge: TaskID depends on DependsOnID.
type Dependency struct {
	ID          string         `yaml:"id" json:"id"`
	TaskID      string         `yaml:"task_id" json:"taskId"`
	DependsOnID string         `yaml:"depends_on_id" json:"dependsOnId"`
	Type        DependencyType `yaml:"type" json:"type"`
}

// AssignmentRole is the part a user plays on a task.
type AssignmentRole string

const (
	RoleAssignee AssignmentRole = "assignee"
	RoleReviewer AssignmentRole = "reviewer"
	RoleWatcher  AssignmentRole = "watcher"
)

// Valid reports whether r is a known assignment role.
func (r AssignmentRole) Valid() bool {
	switch r {
	case RoleAssignee, RoleReviewer, RoleWatcher:
		return true
	}
	return false
}

// Assignment links a user to a task.
type Assignment struct {
	TaskID string         `yaml:"task_id" json:"taskId"`
	UserID string         `yaml:"user_id" json:"userId"`
	Role   AssignmentRole `yaml:"role" json:"role"`
}
