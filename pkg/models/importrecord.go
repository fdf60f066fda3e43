package models

import "time"

// RawImportRecord is a loosely shaped record as produced by an external
// extractor. Keys may be camelCase or snake_case and values may be strings,
// numbers or timestamps.
type RawImportRecord map[string]any

// ImportRecord is the strict form of a legacy record, validated once at the
// ingestion boundary.
type ImportRecord struct {
	Name           string     `json:"name" yaml:"name" validate:"required,nonblank,max=500"`
	Notes          string     `json:"notes,omitempty" yaml:"notes,omitempty"`
	StartDate      *time.Time `json:"startDate,omitempty" yaml:"start_date,omitempty"`
	FinishDate     *time.Time `json:"finishDate,omitempty" yaml:"finish_date,omitempty"`
	Duration       *int       `json:"duration,omitempty" yaml:"duration,omitempty" validate:"omitempty,min=0"`
	Progress       int        `json:"progress" yaml:"progress" validate:"min=0,max=100"`
	Priority       Priority   `json:"priority" yaml:"priority" validate:"oneof=low medium high urgent"`
	Status         TaskStatus `json:"status" yaml:"status" validate:"oneof=todo in_progress completed blocked"`
	OutlineLevel   int        `json:"outlineLevel" yaml:"outline_level" validate:"min=1"`
	ParentTaskName *string    `json:"parentTaskName,omitempty" yaml:"parent_task_name,omitempty"`
	ParentOrder    *int       `json:"parentOrder,omitempty" yaml:"parent_order,omitempty"`
	Order          *int       `json:"order,omitempty" yaml:"order,omitempty"`
}
