package dto

import (
	"time"

	"backoffice-ops/internal/core/domain"
	"backoffice-ops/internal/core/ports"

	"github.com/google/uuid"
)

// RegisterRequest is the request body for user provisioning.
type RegisterRequest struct {
	Username  string     `json:"username" binding:"required,min=3,max=50,safe_id"`
	Password  string     `json:"password" binding:"required,min=8,max=128"`
	Role      string     `json:"role" binding:"required"`
	PartnerID *uuid.UUID `json:"partner_id,omitempty"`
}

// LoginRequest is the request body for login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse is the response body for successful login.
type LoginResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
}

// UserResponse is the response body for a provisioned user.
type UserResponse struct {
	ID        string  `json:"id"`
	Username  string  `json:"username"`
	Role      string  `json:"role"`
	PartnerID *string `json:"partner_id,omitempty"`
	Status    string  `json:"status"`
	CreatedAt string  `json:"created_at"`
}

// CreatePaymentRequest is the request body for payment creation.
type CreatePaymentRequest struct {
	BusinessID     uuid.UUID  `json:"business_id" binding:"required"`
	PartnerID      *uuid.UUID `json:"partner_id,omitempty"`
	CategoryID     *uuid.UUID `json:"category_id,omitempty"`
	Type           string     `json:"type" binding:"required"`
	Amount         int64      `json:"amount" binding:"required,gt=0"`
	Tax            *int64     `json:"tax,omitempty" binding:"omitempty,gte=0"`
	WithholdingTax *int64     `json:"withholding_tax,omitempty" binding:"omitempty,gte=0"`
	Period         *string    `json:"period,omitempty" binding:"omitempty,period"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	Note           *string    `json:"note,omitempty" binding:"omitempty,max=1000"`
	Submit         bool       `json:"submit"`
}

// EditPaymentRequest is the request body for partial payment edits. Absent
// fields leave the stored value untouched.
type EditPaymentRequest struct {
	Amount           *int64     `json:"amount,omitempty" binding:"omitempty,gt=0"`
	Tax              *int64     `json:"tax,omitempty" binding:"omitempty,gte=0"`
	WithholdingTax   *int64     `json:"withholding_tax,omitempty" binding:"omitempty,gte=0"`
	Type             *string    `json:"type,omitempty"`
	CategoryID       *uuid.UUID `json:"category_id,omitempty"`
	Period           *string    `json:"period,omitempty" binding:"omitempty,period"`
	DueDate          *time.Time `json:"due_date,omitempty"`
	Note             *string    `json:"note,omitempty" binding:"omitempty,max=1000"`
	AdjustmentReason *string    `json:"adjustment_reason,omitempty" binding:"omitempty,max=500"`
	ExpectedVersion  *int64     `json:"expected_version,omitempty"`
}

// TransitionRequest is the request body for a status transition.
type TransitionRequest struct {
	Status string `json:"status" binding:"required"`
}

// BatchTransitionRequest is the request body for a batch status transition.
type BatchTransitionRequest struct {
	IDs    []uuid.UUID `json:"payment_ids" binding:"required,min=1,max=100"`
	Status string      `json:"status" binding:"required"`
}

// PaymentResponse is the response body for payment results.
type PaymentResponse struct {
	ID               string  `json:"id"`
	BusinessID       string  `json:"business_id"`
	PartnerID        *string `json:"partner_id,omitempty"`
	CategoryID       *string `json:"category_id,omitempty"`
	Type             string  `json:"type"`
	Amount           int64   `json:"amount"`
	Tax              int64   `json:"tax"`
	TotalAmount      int64   `json:"total_amount"`
	WithholdingTax   int64   `json:"withholding_tax"`
	NetAmount        int64   `json:"net_amount"`
	Status           string  `json:"status"`
	Period           *string `json:"period,omitempty"`
	DueDate          *string `json:"due_date,omitempty"`
	PaidAt           *string `json:"paid_at,omitempty"`
	AdjustmentReason *string `json:"adjustment_reason,omitempty"`
	Note             *string `json:"note,omitempty"`
	Version          int64   `json:"version"`
	CreatedBy        string  `json:"created_by"`
	CreatedAt        string  `json:"created_at"`
	UpdatedAt        string  `json:"updated_at"`
}

// PaymentListResponse wraps a paginated payment list.
type PaymentListResponse struct {
	Items      []PaymentResponse `json:"items"`
	Total      int64             `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalPages int               `json:"total_pages"`
}

// GrantItem is one grant row in a replace request.
type GrantItem struct {
	BusinessID  uuid.UUID `json:"business_id" binding:"required"`
	Permissions []string  `json:"permissions" binding:"required,min=1"`
	CanEdit     bool      `json:"can_edit"`
	IsActive    bool      `json:"is_active"`
}

// ReplaceGrantsRequest is the request body for a full grant-set replace.
type ReplaceGrantsRequest struct {
	Accesses []GrantItem `json:"accesses" binding:"dive"`
}

// GrantResponse is the response body for one permission grant.
type GrantResponse struct {
	ID          string   `json:"id"`
	PartnerID   string   `json:"partner_id"`
	BusinessID  string   `json:"business_id"`
	Permissions []string `json:"permissions"`
	CanEdit     bool     `json:"can_edit"`
	IsActive    bool     `json:"is_active"`
	UpdatedAt   string   `json:"updated_at"`
}

// RuleRequest is the request body for approval rule creation and update.
type RuleRequest struct {
	MinAmount    int64  `json:"min_amount" binding:"gte=0"`
	MaxAmount    *int64 `json:"max_amount,omitempty" binding:"omitempty,gt=0"`
	RequiredRole string `json:"required_role" binding:"required"`
	AutoApprove  bool   `json:"auto_approve"`
	SortOrder    int    `json:"sort_order"`
	IsActive     bool   `json:"is_active"`
}

// RuleResponse is the response body for one approval rule.
type RuleResponse struct {
	ID           string `json:"id"`
	MinAmount    int64  `json:"min_amount"`
	MaxAmount    *int64 `json:"max_amount,omitempty"`
	RequiredRole string `json:"required_role"`
	AutoApprove  bool   `json:"auto_approve"`
	SortOrder    int    `json:"sort_order"`
	IsActive     bool   `json:"is_active"`
}

// CreateTaskRequest is the request body for task creation.
type CreateTaskRequest struct {
	BusinessID uuid.UUID  `json:"business_id" binding:"required"`
	Title      string     `json:"title" binding:"required,max=200"`
	AssigneeID *uuid.UUID `json:"assignee_id,omitempty"`
	DueDate    *time.Time `json:"due_date,omitempty"`
	Note       *string    `json:"note,omitempty" binding:"omitempty,max=1000"`
}

// UpdateTaskRequest is the request body for partial task updates.
type UpdateTaskRequest struct {
	Title      *string    `json:"title,omitempty" binding:"omitempty,max=200"`
	Status     *string    `json:"status,omitempty"`
	AssigneeID *uuid.UUID `json:"assignee_id,omitempty"`
	DueDate    *time.Time `json:"due_date,omitempty"`
	Note       *string    `json:"note,omitempty" binding:"omitempty,max=1000"`
}

// TaskResponse is the response body for task results.
type TaskResponse struct {
	ID         string  `json:"id"`
	BusinessID string  `json:"business_id"`
	Title      string  `json:"title"`
	Status     string  `json:"status"`
	AssigneeID *string `json:"assignee_id,omitempty"`
	DueDate    *string `json:"due_date,omitempty"`
	Note       *string `json:"note,omitempty"`
	CreatedAt  string  `json:"created_at"`
	UpdatedAt  string  `json:"updated_at"`
}

// TaskListResponse wraps a paginated task list.
type TaskListResponse struct {
	Items      []TaskResponse `json:"items"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	TotalPages int            `json:"total_pages"`
}

// CreateWorkflowRequest is the request body for workflow creation.
type CreateWorkflowRequest struct {
	BusinessID uuid.UUID `json:"business_id" binding:"required"`
	Name       string    `json:"name" binding:"required,max=200"`
	TotalSteps int       `json:"total_steps" binding:"required,gte=1"`
	Note       *string   `json:"note,omitempty" binding:"omitempty,max=1000"`
}

// UpdateWorkflowRequest is the request body for partial workflow updates.
type UpdateWorkflowRequest struct {
	Name        *string `json:"name,omitempty" binding:"omitempty,max=200"`
	Status      *string `json:"status,omitempty"`
	CurrentStep *int    `json:"current_step,omitempty" binding:"omitempty,gte=0"`
	Note        *string `json:"note,omitempty" binding:"omitempty,max=1000"`
}

// WorkflowResponse is the response body for workflow results.
type WorkflowResponse struct {
	ID          string  `json:"id"`
	BusinessID  string  `json:"business_id"`
	Name        string  `json:"name"`
	Status      string  `json:"status"`
	CurrentStep int     `json:"current_step"`
	TotalSteps  int     `json:"total_steps"`
	Note        *string `json:"note,omitempty"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

// WorkflowListResponse wraps a paginated workflow list.
type WorkflowListResponse struct {
	Items      []WorkflowResponse `json:"items"`
	Total      int64              `json:"total"`
	Page       int                `json:"page"`
	PageSize   int                `json:"page_size"`
	TotalPages int                `json:"total_pages"`
}

// HistoryResponse wraps the rendered audit history of one payment.
type HistoryResponse struct {
	Items []ports.PaymentEvent `json:"items"`
}

// ContentTypes converts the string permission list to domain content types.
// Unknown values pass through for the service layer to reject.
func (g GrantItem) ContentTypes() []domain.ContentType {
	out := make([]domain.ContentType, 0, len(g.Permissions))
	for _, p := range g.Permissions {
		out = append(out, domain.ContentType(p))
	}
	return out
}
