package models

import "time"

// Realtime event names.
const (
	EventTaskCreated     = "task:created"
	EventTaskUpdated     = "task:updated"
	EventTaskDeleted     = "task:deleted"
	EventProjectUpdated  = "project:updated"
	EventPresenceEditing = "presence:editing"
)

// Event is the envelope delivered to every member of a project channel.
// Seq increases monotonically per channel and only helps clients order
// what they receive; it carries no conflict semantics.
type Event struct {
	Name    string    `json:"name"`
	Channel string    `json:"channel"`
	Seq     uint64    `json:"seq"`
	Payload any       `json:"payload"`
	Time    time.Time `json:"time"`
}

// TaskDeletedPayload identifies a removed task.
type TaskDeletedPayload struct {
	ID        string `json:"id"`
	ProjectID string `json:"projectId"`
}

// PresencePayload reports whether a user is editing a project's schedule.
type PresencePayload struct {
	ProjectID string `json:"projectId"`
	UserID    string `json:"userId"`
	UserName  string `json:"userName"`
	IsEditing bool   `json:"isEditing"`
}

// ProjectChannel names the broadcast channel of a project.
func ProjectChannel(projectID string) string {
	return "project:" + projectID
}
