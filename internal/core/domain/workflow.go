package domain

import (
	"time"

	"github.com/google/uuid"
)

// WorkflowStatus is the lifecycle state of a workflow instance.
type WorkflowStatus string

const (
	WorkflowStatusActive    WorkflowStatus = "ACTIVE"
	WorkflowStatusCompleted WorkflowStatus = "COMPLETED"
	WorkflowStatusArchived  WorkflowStatus = "ARCHIVED"
)

// Valid reports whether s is a known workflow status.
func (s WorkflowStatus) Valid() bool {
	switch s {
	case WorkflowStatusActive, WorkflowStatusCompleted, WorkflowStatusArchived:
		return true
	}
	return false
}

// Workflow is a multi-step back-office process tied to one business.
// Step editing itself lives in the template editor outside this core.
type Workflow struct {
	ID          uuid.UUID      `json:"id"`
	BusinessID  uuid.UUID      `json:"business_id"`
	Name        string         `json:"name"`
	Status      WorkflowStatus `json:"status"`
	CurrentStep int            `json:"current_step"`
	TotalSteps  int            `json:"total_steps"`
	Note        *string        `json:"note,omitempty"`
	CreatedBy   uuid.UUID      `json:"created_by"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   *time.Time     `json:"deleted_at,omitempty"`
}

// WorkflowPatch is an explicit partial update; nil fields are absent.
type WorkflowPatch struct {
	Name        *string
	Status      *WorkflowStatus
	CurrentStep *int
	Note        *string
}

// Apply writes the present fields onto the workflow.
func (wp *WorkflowPatch) Apply(w *Workflow) {
	if wp.Name != nil {
		w.Name = *wp.Name
	}
	if wp.Status != nil {
		w.Status = *wp.Status
	}
	if wp.CurrentStep != nil {
		w.CurrentStep = *wp.CurrentStep
	}
	if wp.Note != nil {
		w.Note = wp.Note
	}
}
