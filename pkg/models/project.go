package models

import "time"

// Project owns a set of tasks. Tasks never move between projects.
type Project struct {
	ID          string     `yaml:"id" json:"id"`
	Name        string     `yaml:"name" json:"name"`
	Description string     `yaml:"description,omitempty" json:"description,omitempty"`
	Color       string     `yaml:"color,omitempty" json:"color,omitempty"`
	StartDate   *time.Time `yaml:"start_date,omitempty" json:"startDate,omitempty"`
	EndDate     *time.Time `yaml:"end_date,omitempty" json:"endDate,omitempty"`
	Created     time.Time  `yaml:"created" json:"created"`
	Updated     time.Time  `yaml:"updated" json:"updated"`
}

// ProjectPatch is a partial project update; nil fields are left unchanged.
type ProjectPatch struct {
	Name        *string    `json:"name,omitempty"`
	Description *string    `json:"description,omitempty"`
	Color       *string    `json:"color,omitempty"`
	StartDate   *time.Time `json:"startDate,omitempty"`
	EndDate     *time.Time `json:"endDate,omitempty"`
}
