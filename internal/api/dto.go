package api

import (
	"fmt"
	"time"

	"github.com/valter-silva-au/projectcolab/pkg/models"
)

// Request bodies carry dates as ISO strings. An empty string in a patch
// clears the field.

type createProjectRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Color       string `json:"color"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
}

type updateProjectRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Color       *string `json:"color"`
	StartDate   *string `json:"startDate"`
	EndDate     *string `json:"endDate"`
}

type createTaskRequest struct {
	Name        string            `json:"name" binding:"required"`
	Description string            `json:"description"`
	StartDate   string            `json:"startDate"`
	EndDate     string            `json:"endDate"`
	Duration    *int              `json:"duration" binding:"omitempty,min=0"`
	Progress    *int              `json:"progress" binding:"omitempty,min=0,max=100"`
	Status      models.TaskStatus `json:"status"`
	Priority    models.Priority   `json:"priority"`
	ParentID    string            `json:"parentId"`
	Order       *int              `json:"order"`
}

type updateTaskRequest struct {
	Name        *string            `json:"name"`
	Description *string            `json:"description"`
	StartDate   *string            `json:"startDate"`
	EndDate     *string            `json:"endDate"`
	Duration    *int               `json:"duration" binding:"omitempty,min=0"`
	Progress    *int               `json:"progress" binding:"omitempty,min=0,max=100"`
	Status      *models.TaskStatus `json:"status"`
	Priority    *models.Priority   `json:"priority"`
	ParentID    *string            `json:"parentId"`
	Order       *int               `json:"order"`
}

type addDependencyRequest struct {
	DependsOnID string                `json:"dependsOnId" binding:"required"`
	Type        models.DependencyType `json:"type"`
}

type assignRequest struct {
	UserID string                `json:"userId" binding:"required"`
	Role   models.AssignmentRole `json:"role"`
}

type importRequest struct {
	Project createProjectRequest     `json:"project"`
	Tasks   []models.RawImportRecord `json:"tasks"`
}

func optionalDate(field, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := models.ParseDate(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %q is not a date", field, s)
	}
	return &d, nil
}

func (r createProjectRequest) project() (models.Project, error) {
	start, err := optionalDate("startDate", r.StartDate)
	if err != nil {
		return models.Project{}, err
	}
	end, err := optionalDate("endDate", r.EndDate)
	if err != nil {
		return models.Project{}, err
	}
	return models.Project{
		Name:        r.Name,
		Description: r.Description,
		Color:       r.Color,
		StartDate:   start,
		EndDate:     end,
	}, nil
}

func (r updateProjectRequest) patch() (models.ProjectPatch, error) {
	p := models.ProjectPatch{Name: r.Name, Description: r.Description, Color: r.Color}
	var err error
	if r.StartDate != nil {
		if p.StartDate, err = optionalDate("startDate", *r.StartDate); err != nil {
			return p, err
		}
	}
	if r.EndDate != nil {
		if p.EndDate, err = optionalDate("endDate", *r.EndDate); err != nil {
			return p, err
		}
	}
	return p, nil
}

func (r createTaskRequest) draft() (models.TaskDraft, error) {
	start, err := optionalDate("startDate", r.StartDate)
	if err != nil {
		return models.TaskDraft{}, err
	}
	end, err := optionalDate("endDate", r.EndDate)
	if err != nil {
		return models.TaskDraft{}, err
	}
	return models.TaskDraft{
		Name:        r.Name,
		Description: r.Description,
		StartDate:   start,
		EndDate:     end,
		Duration:    r.Duration,
		Progress:    r.Progress,
		Status:      r.Status,
		Priority:    r.Priority,
		ParentID:    r.ParentID,
		Order:       r.Order,
	}, nil
}

func (r updateTaskRequest) patch() (models.TaskPatch, error) {
	p := models.TaskPatch{
		Name:        r.Name,
		Description: r.Description,
		Duration:    r.Duration,
		Progress:    r.Progress,
		Status:      r.Status,
		Priority:    r.Priority,
		Order:       r.Order,
	}
	var err error
	if r.StartDate != nil {
		if p.StartDate, err = optionalDate("startDate", *r.StartDate); err != nil {
			return p, err
		}
		p.ClearStartDate = p.StartDate == nil
	}
	if r.EndDate != nil {
		if p.EndDate, err = optionalDate("endDate", *r.EndDate); err != nil {
			return p, err
		}
		p.ClearEndDate = p.EndDate == nil
	}
	if r.ParentID != nil {
		if *r.ParentID == "" {
			p.ClearParent = true
		} else {
			p.ParentID = r.ParentID
		}
	}
	return p, nil
}
