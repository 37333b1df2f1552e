package domain

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskStatusOpen       TaskStatus = "OPEN"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusDone       TaskStatus = "DONE"
)

// Valid reports whether s is a known task status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusOpen, TaskStatusInProgress, TaskStatusDone:
		return true
	}
	return false
}

// Task is a unit of back-office work tied to one business.
type Task struct {
	ID         uuid.UUID  `json:"id"`
	BusinessID uuid.UUID  `json:"business_id"`
	Title      string     `json:"title"`
	Status     TaskStatus `json:"status"`
	AssigneeID *uuid.UUID `json:"assignee_id,omitempty"`
	DueDate    *time.Time `json:"due_date,omitempty"`
	Note       *string    `json:"note,omitempty"`
	CreatedBy  uuid.UUID  `json:"created_by"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
}

// TaskPatch is an explicit partial update; nil fields are absent.
type TaskPatch struct {
	Title      *string
	Status     *TaskStatus
	AssigneeID *uuid.UUID
	DueDate    *time.Time
	Note       *string
}

// Apply writes the present fields onto the task.
func (tp *TaskPatch) Apply(t *Task) {
	if tp.Title != nil {
		t.Title = *tp.Title
	}
	if tp.Status != nil {
		t.Status = *tp.Status
	}
	if tp.AssigneeID != nil {
		t.AssigneeID = tp.AssigneeID
	}
	if tp.DueDate != nil {
		t.DueDate = tp.DueDate
	}
	if tp.Note != nil {
		t.Note = tp.Note
	}
}
