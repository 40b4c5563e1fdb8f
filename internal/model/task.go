package model

import (
	"strings"
	"time"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusCompleted
}

// Toggle returns the opposite status.
func (s Status) Toggle() Status {
	if s == StatusCompleted {
		return StatusPending
	}
	return StatusCompleted
}

// Task represents a todo item in the system.
type Task struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `gorm:"not null" json:"description"`
	Status      Status    `gorm:"type:text;not null;default:pending;check:chk_tasks_status,status IN ('pending','completed')" json:"status"`
	CreatedAt   time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

// TableName returns the table name for Task model.
func (Task) TableName() string {
	return "tasks"
}

// TaskPatch holds the fields of a partial update. Nil fields keep their stored value.
type TaskPatch struct {
	Title       *string
	Description *string
	Status      *Status
}

// Apply merges the patch into t.
func (p TaskPatch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
}

// CreateTaskRequest represents the request body for creating a task.
type CreateTaskRequest struct {
	Title       string `json:"title"`
	Description string  `json:"description,omitempty"`
	Status      *Status `json:"status,omitempty"`
}

// UpdateTaskRequest represents the request body for updating a task.
type UpdateTaskRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *Status `json:"status,omitempty"`
}

// Validate checks if the CreateTaskRequest is valid.
func (r *CreateTaskRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return ErrTitleRequired
	}
	if r.Status != nil && !r.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}

// Task builds the row to insert, applying trimming and defaults.
func (r *CreateTaskRequest) Task() *Task {
	status := StatusPending
	if r.Status != nil {
		status = *r.Status
	}
	return &Task{
		Title:       strings.TrimSpace(r.Title),
		Description: r.Description,
		Status:      status,
	}
}

// Validate checks if the UpdateTaskRequest is valid.
func (r *UpdateTaskRequest) Validate() error {
	if r.Title != nil && strings.TrimSpace(*r.Title) == "" {
		return ErrTitleRequired
	}
	if r.Status != nil && !r.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}

// Patch converts the request into a store patch with the title trimmed.
func (r *UpdateTaskRequest) Patch() TaskPatch {
	p := TaskPatch{Description: r.Description, Status: r.Status}
	if r.Title != nil {
		title := strings.TrimSpace(*r.Title)
		p.Title = &title
	}
	return p
}
