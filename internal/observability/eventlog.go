package observability

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DefaultEventLogFile is the event log name under the base path.
const DefaultEventLogFile = ".colab_events.jsonl"

// Event is one schedule mutation recorded for auditing and metrics.
type Event struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"` // INFO, WARN, ERROR
	Type    string         `json:"type"`  // e.g. "task.created", "dependency.added"
	Message string         `json:"msg"`
	Data    map[string]any `json:"data,omitempty"`
}

// ProjectID returns the project the event concerns, if recorded.
func (e Event) ProjectID() string {
	id, _ := e.Data["project_id"].(string)
	return id
}

// TaskID returns the task the event concerns, if recorded.
func (e Event) TaskID() string {
	id, _ := e.Data["task_id"].(string)
	return id
}

// EventFilter selects events. Zero fields match everything.
type EventFilter struct {
	Since     *time.Time
	Until     *time.Time
	Type      string
	Level     string
	ProjectID string
	TaskID    string
}

func (f EventFilter) match(e Event) bool {
	switch {
	case f.Since != nil && e.Time.Before(*f.Since):
		return false
	case f.Until != nil && e.Time.After(*f.Until):
		return false
	case f.Type != "" && e.Type != f.Type:
		return false
	case f.Level != "" && e.Level != f.Level:
		return false
	case f.ProjectID != "" && e.ProjectID() != f.ProjectID:
		return false
	case f.TaskID != "" && e.TaskID() != f.TaskID:
		return false
	}
	return true
}

// EventLog appends events and reads them back in write order.
type EventLog interface {
	Write(event Event) error
	// Scan calls fn for each matching event until fn returns false.
	Scan(filter EventFilter, fn func(Event) bool) error
	Read(filter EventFilter) ([]Event, error)
	Close() error
}

// maxEventLine bounds a single encoded event.
const maxEventLine = 1 << 20

type jsonlEventLog struct {
	path string
	now  func() time.Time

	mu   sync.Mutex
	file *os.File
}

// NewJSONLEventLog opens (or creates) the JSON Lines log at path.
func NewJSONLEventLog(path string) (EventLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("creating event log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening event log: %w", err)
	}
	return &jsonlEventLog{path: path, file: f, now: time.Now}, nil
}

// Write appends event as one line. A zero time is stamped with the current
// UTC time and an empty level becomes INFO.
func (l *jsonlEventLog) Write(event Event) error {
	if event.Time.IsZero() {
		event.Time = l.now().UTC()
	}
	if event.Level == "" {
		event.Level = "INFO"
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", event.Type, err)
	}
	if len(data) >= maxEventLine {
		return fmt.Errorf("encoding %s event: %d bytes exceeds the line limit", event.Type, len(data))
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return fmt.Errorf("writing %s event: event log closed", event.Type)
	}
	if _, err := l.file.Write(data); err != nil {
		return fmt.Errorf("writing %s event: %w", event.Type, err)
	}
	return nil
}

func (l *jsonlEventLog) Scan(filter EventFilter, fn func(Event) bool) error {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("opening event log for reading: %w", err)
	}
	defer func() { _ = f.Close() }()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxEventLine)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev Event
		if json.Unmarshal(line, &ev) != nil {
			// A torn or hand-edited line.
			continue
		}
		if filter.match(ev) && !fn(ev) {
			return nil
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("scanning event log: %w", err)
	}
	return nil
}

func (l *jsonlEventLog) Read(filter EventFilter) ([]Event, error) {
	var out []Event
	err := l.Scan(filter, func(ev Event) bool {
		out = append(out, ev)
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Close closes the log. Later writes fail.
func (l *jsonlEventLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	if err != nil {
		return fmt.Errorf("closing event log: %w", err)
	}
	return nil
}
