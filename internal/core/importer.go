package core

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/valter-silva-au/projectcolab/pkg/models"
	"gopkg.in/yaml.v3"
)

// importValidate checks ImportRecord tags. Initialized in init() with the
// custom validators the tags refer to.
var importValidate *validator.Validate

func init() {
	importValidate = validator.New()
	_ = importValidate.RegisterValidation("nonblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
}

// Import stages reported in ImportFailure.
const (
	StageValidate = "validate"
	StageCreate   = "create"
	StageLink     = "link"
)

// ImportFailure describes one record that could not be fully imported.
type ImportFailure struct {
	Index  int    `json:"index"`
	Name   string `json:"name,omitempty"`
	Stage  string `json:"stage"`
	Reason string `json:"reason"`
}

// ImportResult summarizes a best-effort import.
type ImportResult struct {
	ProjectID string          `json:"projectId"`
	Attempted int             `json:"attempted"`
	Created   int             `json:"created"`
	Linked    int             `json:"linked"`
	Failures  []ImportFailure `json:"failures,omitempty"`
	TaskIDs   []string        `json:"taskIds"`
}

// DecodeRawRecords reads a JSON or YAML document holding either a list of
// records or an object with a "tasks" list.
func DecodeRawRecords(data []byte) ([]models.RawImportRecord, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding import records: %w", err)
	}
	if m, ok := doc.(map[string]any); ok {
		doc = m["tasks"]
	}
	list, ok := doc.([]any)
	if !ok {
		return nil, fmt.Errorf("decoding import records: expected a list of records: %w", ErrInvalidInput)
	}
	out := make([]models.RawImportRecord, len(list))
	for i, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			out[i] = models.RawImportRecord{}
			continue
		}
		out[i] = m
	}
	return out, nil
}

// NormalizeRecords converts loose records into strict ones. The result is
// index aligned with raw; errs[i] is non-nil when record i failed
// validation, in which case records[i] holds whatever could be read.
func NormalizeRecords(raw []models.RawImportRecord) (records []models.ImportRecord, errs []error) {
	records = make([]models.ImportRecord, len(raw))
	errs = make([]error, len(raw))
	for i, r := range raw {
		records[i], errs[i] = normalizeRecord(r)
	}
	return records, errs
}

var keySeparators = strings.NewReplacer("_", "", "-", "", " ", "")

// canonicalKey folds camelCase, snake_case, kebab-case and spaced column
// headers together.
func canonicalKey(k string) string {
	return keySeparators.Replace(strings.ToLower(strings.TrimSpace(k)))
}

var fieldAliases = map[string][]string{
	"name":           {"name", "taskname", "title"},
	"notes":          {"notes", "description"},
	"startDate":      {"startdate", "start"},
	"finishDate":     {"finishdate", "finish", "enddate", "end"},
	"duration":       {"duration"},
	"progress":       {"progress", "percentcomplete"},
	"priority":       {"priority"},
	"status":         {"status"},
	"outlineLevel":   {"outlinelevel", "level"},
	"parentTaskName": {"parenttaskname", "parentname"},
	"parentOrder":    {"parentorder"},
	"order":          {"order"},
}

func normalizeRecord(raw models.RawImportRecord) (models.ImportRecord, error) {
	fields := make(map[string]any, len(raw))
	for k, v := range raw {
		if v != nil {
			fields[canonicalKey(k)] = v
		}
	}
	get := func(field string) (any, bool) {
		for _, alias := range fieldAliases[field] {
			if v, ok := fields[alias]; ok {
				return v, true
			}
		}
		return nil, false
	}

	var rec models.ImportRecord
	var problems []string

	if v, ok := get("name"); ok {
		rec.Name = strings.TrimSpace(fmt.Sprint(v))
	}
	if v, ok := get("notes"); ok {
		rec.Notes = fmt.Sprint(v)
	}
	for _, f := range []struct {
		key string
		dst **time.Time
	}{{"startDate", &rec.StartDate}, {"finishDate", &rec.FinishDate}} {
		v, ok := get(f.key)
		if !ok {
			continue
		}
		t, err := toDate(v)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", f.key, err))
			continue
		}
		*f.dst = t
	}
	if v, ok := get("duration"); ok {
		if n, err := toFloat(v); err != nil {
			problems = append(problems, fmt.Sprintf("duration: %v", err))
		} else {
			d := int(math.Ceil(n))
			rec.Duration = &d
		}
	}
	if v, ok := get("progress"); ok {
		if n, err := toFloat(v); err != nil {
			problems = append(problems, fmt.Sprintf("progress: %v", err))
		} else {
			rec.Progress = clamp(int(math.Round(n)), 0, 100)
		}
	}

	rec.Priority = models.PriorityMedium
	if v, ok := get("priority"); ok {
		rec.Priority = parsePriority(v)
	}

	if v, ok := get("status"); ok {
		rec.Status = models.TaskStatus(strings.ToLower(strings.TrimSpace(fmt.Sprint(v))))
	}
	if rec.Status == "" {
		rec.Status = models.StatusTodo
		if rec.Progress >= 100 {
			rec.Status = models.StatusCompleted
		}
	}

	rec.OutlineLevel = 1
	if v, ok := get("outlineLevel"); ok {
		if n, err := toFloat(v); err != nil {
			problems = append(problems, fmt.Sprintf("outlineLevel: %v", err))
		} else if n >= 1 {
			rec.OutlineLevel = int(n)
		}
	}
	if v, ok := get("parentTaskName"); ok {
		if name := strings.TrimSpace(fmt.Sprint(v)); name != "" {
			rec.ParentTaskName = &name
		}
	}
	for _, f := range []struct {
		key string
		dst **int
	}{{"parentOrder", &rec.ParentOrder}, {"order", &rec.Order}} {
		v, ok := get(f.key)
		if !ok {
			continue
		}
		n, err := toFloat(v)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", f.key, err))
			continue
		}
		i := int(n)
		*f.dst = &i
	}

	if err := importValidate.Struct(&rec); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				problems = append(problems, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
			}
		} else {
			problems = append(problems, err.Error())
		}
	}
	if len(problems) > 0 {
		return rec, fmt.Errorf("record validation failed:\n  - %s: %w", strings.Join(problems, "\n  - "), ErrInvalidInput)
	}
	return rec, nil
}

// parsePriority accepts a priority word or an MS Project numeric priority
// (0-1000). Unknown words are kept so validation reports them.
func parsePriority(v any) models.Priority {
	if n, err := toFloat(v); err == nil {
		switch {
		case n >= 900:
			return models.PriorityUrgent
		case n >= 700:
			return models.PriorityHigh
		case n >= 500:
			return models.PriorityMedium
		default:
			return models.PriorityLow
		}
	}
	word := strings.ToLower(strings.TrimSpace(fmt.Sprint(v)))
	switch word {
	case "":
		return models.PriorityMedium
	case "normal":
		return models.PriorityMedium
	case "critical", "highest":
		return models.PriorityUrgent
	case "lowest":
		return models.PriorityLow
	}
	return models.Priority(word)
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", n)
		}
		return f, nil
	}
	return 0, fmt.Errorf("unsupported value %v (%T)", v, v)
}

func toDate(v any) (*time.Time, error) {
	switch d := v.(type) {
	case time.Time:
		t := models.DateOnly(d)
		return &t, nil
	case *time.Time:
		if d == nil {
			return nil, nil
		}
		t := models.DateOnly(*d)
		return &t, nil
	case string:
		s := strings.TrimSpace(d)
		if s == "" {
			return nil, nil
		}
		t, err := models.ParseDate(s)
		if err != nil {
			return nil, fmt.Errorf("%q is not a date", s)
		}
		return &t, nil
	}
	return nil, fmt.Errorf("unsupported value %v (%T)", v, v)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ImportReconciler rebuilds a task hierarchy from legacy records. It never
// aborts on a bad record: each failure is logged, collected and skipped.
type ImportReconciler struct {
	tasks TaskManager
	log   zerolog.Logger
}

// NewImportReconciler creates an ImportReconciler that writes through tasks.
func NewImportReconciler(tasks TaskManager, log zerolog.Logger) *ImportReconciler {
	return &ImportReconciler{tasks: tasks, log: log.With().Str("component", "import").Logger()}
}

// ImportProject creates a project and imports raw into it.
func (r *ImportReconciler) ImportProject(ctx context.Context, project models.Project, raw []models.RawImportRecord) (*models.Project, *ImportResult, error) {
	created, err := r.tasks.CreateProject(project)
	if err != nil {
		return nil, nil, fmt.Errorf("importing project: %w", err)
	}
	res, err := r.Reconcile(ctx, created.ID, raw)
	if err != nil {
		return created, res, fmt.Errorf("importing project: %w", err)
	}
	return created, res, nil
}

type compositeKey struct {
	name  string
	order int
}

// Reconcile imports raw into an existing project in two passes: first every
// record becomes a root task, then parents are resolved in record order by
// (name, order), then by name alone, then by outline level. The only errors
// returned are an unknown project and cancellation of ctx; per-record
// problems end up in the result.
func (r *ImportReconciler) Reconcile(ctx context.Context, projectID string, raw []models.RawImportRecord) (*ImportResult, error) {
	if _, err := r.tasks.GetProject(projectID); err != nil {
		return nil, fmt.Errorf("reconciling import: %w", err)
	}
	records, errs := NormalizeRecords(raw)
	res := &ImportResult{ProjectID: projectID, Attempted: len(records)}

	created := make([]*models.Task, len(records))
	byKey := make(map[compositeKey]*models.Task)
	byName := make(map[string]*models.Task)

	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("reconciling import: %w", err)
		}
		if errs[i] != nil {
			r.fail(res, i, rec.Name, StageValidate, errs[i])
			continue
		}
		order := res.Created
		if rec.Order != nil {
			order = *rec.Order
		}
		progress := rec.Progress
		t, err := r.tasks.CreateTask(projectID, models.TaskDraft{
			Name:        rec.Name,
			Description: rec.Notes,
			StartDate:   rec.StartDate,
			EndDate:     rec.FinishDate,
			Duration:    rec.Duration,
			Progress:    &progress,
			Status:      rec.Status,
			Priority:    rec.Priority,
			Order:       &order,
		})
		if err != nil {
			r.fail(res, i, rec.Name, StageCreate, err)
			continue
		}
		created[i] = t
		res.Created++
		res.TaskIDs = append(res.TaskIDs, t.ID)
		byKey[compositeKey{rec.Name, order}] = t
		if _, seen := byName[rec.Name]; !seen {
			byName[rec.Name] = t
		}
	}

	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("reconciling import: %w", err)
		}
		if created[i] == nil {
			continue
		}
		parent := resolveImportParent(i, records, errs, created, byKey, byName)
		if parent == nil {
			if rec.OutlineLevel > 1 {
				r.log.Warn().Int("index", i).Str("name", rec.Name).Int("outline_level", rec.OutlineLevel).Msg("no parent found for nested record")
			}
			continue
		}
		parentID := parent.ID
		if _, err := r.tasks.UpdateTask(created[i].ID, models.TaskPatch{ParentID: &parentID}); err != nil {
			r.fail(res, i, rec.Name, StageLink, err)
			continue
		}
		res.Linked++
	}

	r.log.Info().
		Str("project_id", projectID).
		Int("attempted", res.Attempted).
		Int("created", res.Created).
		Int("linked", res.Linked).
		Int("failed", len(res.Failures)).
		Msg("import reconciled")
	return res, nil
}

// resolveImportParent finds the parent task of record i, or nil for a root.
func resolveImportParent(i int, records []models.ImportRecord, errs []error, created []*models.Task, byKey map[compositeKey]*models.Task, byName map[string]*models.Task) *models.Task {
	rec := records[i]
	var parent *models.Task

	if rec.ParentTaskName != nil {
		name := *rec.ParentTaskName
		if rec.ParentOrder != nil {
			parent = byKey[compositeKey{name, *rec.ParentOrder}]
		}
		if parent == nil {
			parent = byName[name]
		}
	}

	if parent == nil && rec.OutlineLevel > 1 {
		for j := i - 1; j >= 0; j-- {
			if errs[j] != nil || created[j] == nil {
				continue
			}
			if records[j].OutlineLevel < rec.OutlineLevel {
				parent = created[j]
				break
			}
		}
	}

	if parent != nil && parent.ID == created[i].ID {
		return nil
	}
	return parent
}

func (r *ImportReconciler) fail(res *ImportResult, index int, name, stage string, err error) {
	r.log.Warn().Err(err).Int("index", index).Str("name", name).Str("stage", stage).Msg("import record skipped")
	res.Failures = append(res.Failures, ImportFailure{Index: index, Name: name, Stage: stage, Reason: err.Error()})
}
