package ports

import (
	"context"
	"time"

	"backoffice-ops/internal/core/domain"

	"github.com/google/uuid"
)

//go:generate mockgen -source=services.go -destination=mocks/services_mock.go -package=mocks

// AccessService resolves row-level visibility and write permission for an
// actor. Every list/detail/mutation operation for tasks, workflows and
// payments consults it before touching storage.
type AccessService interface {
	// ResolveScope computes the set of businesses the actor may see for
	// the given content type. Internal staff get an unrestricted scope.
	ResolveScope(ctx context.Context, actor domain.Actor, contentType domain.ContentType) (domain.BusinessScope, error)
	// CanWrite reports whether the actor may mutate records of the given
	// business. Internal staff always can; partners need an active grant
	// with can_edit set.
	CanWrite(ctx context.Context, actor domain.Actor, businessID uuid.UUID) (bool, error)
}

// TokenService handles JWT token operations for the session collaborator.
type TokenService interface {
	Generate(user *domain.User) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	UserID    uuid.UUID
	Role      domain.Role
	PartnerID *uuid.UUID
}

// HashService handles password hashing (Argon2id).
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// AuthService defines authentication business logic.
type AuthService interface {
	// Register provisions a new operator or partner login. ADMIN only.
	Register(ctx context.Context, actor domain.Actor, req RegisterRequest) (*domain.User, error)
	Login(ctx context.Context, username, password string) (string, time.Time, error) // token, expiry, error
}

// RegisterRequest holds input for user provisioning.
type RegisterRequest struct {
	Username  string
	Password  string
	Role      domain.Role
	PartnerID *uuid.UUID
}

// PaymentService owns the payment lifecycle: creation with auto-approval,
// role-gated transitions, justified edits on settled records, scoped reads,
// diff-based history and batch transitions.
type PaymentService interface {
	Create(ctx context.Context, actor domain.Actor, req CreatePaymentRequest) (*domain.Payment, error)
	Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Payment, error)
	List(ctx context.Context, actor domain.Actor, req ListPaymentsRequest) ([]domain.Payment, int64, error)
	Edit(ctx context.Context, actor domain.Actor, id uuid.UUID, patch domain.PaymentPatch) (*domain.Payment, error)
	Transition(ctx context.Context, actor domain.Actor, id uuid.UUID, target domain.PaymentStatus) (*domain.Payment, error)
	SoftDelete(ctx context.Context, actor domain.Actor, id uuid.UUID) error
	History(ctx context.Context, actor domain.Actor, id uuid.UUID) ([]PaymentEvent, error)
	ApplyBatch(ctx context.Context, actor domain.Actor, ids []uuid.UUID, target domain.PaymentStatus) (*BatchResult, error)
}

// CreatePaymentRequest holds validated input for payment creation.
type CreatePaymentRequest struct {
	BusinessID uuid.UUID
	PartnerID  *uuid.UUID
	CategoryID *uuid.UUID
	Type       domain.PaymentType
	Amount     int64
	// Tax nil defaults to 10% of Amount (advisory, client may override).
	Tax *int64
	// WithholdingTax nil defaults to the progressive calculation on Amount.
	WithholdingTax *int64
	Period         *string
	DueDate        *time.Time
	Note           *string
	// Submit requests an initial PENDING status instead of DRAFT. A
	// matching auto-approve rule overrides both to APPROVED.
	Submit bool
}

// ListPaymentsRequest holds filters and pagination for listing payments.
type ListPaymentsRequest struct {
	BusinessID *uuid.UUID
	Status     *domain.PaymentStatus
	Type       *domain.PaymentType
	Period     *string
	Page       int
	PageSize   int
}

// PaymentEvent is one rendered history entry: the audit metadata plus either
// the field-level diff or, for CREATE entries, the initial snapshot.
type PaymentEvent struct {
	ID        uuid.UUID               `json:"id"`
	Action    domain.AuditAction      `json:"action"`
	ActorID   uuid.UUID               `json:"actor_id"`
	Seq       int64                   `json:"seq"`
	CreatedAt time.Time               `json:"created_at"`
	Changes   []domain.FieldChange    `json:"changes,omitempty"`
	Initial   *domain.PaymentSnapshot `json:"initial,omitempty"`
}

// BatchResult summarizes a batch transition. Items fail independently;
// one failure never rolls back another item.
type BatchResult struct {
	Success int          `json:"success"`
	Failed  int          `json:"failed"`
	Errors  []BatchError `json:"errors"`
}

// BatchError identifies one failed batch item and why it failed.
type BatchError struct {
	ID     uuid.UUID `json:"id"`
	Reason string    `json:"reason"`
}

// GrantService manages partner permission grants.
type GrantService interface {
	// Replace swaps a partner's full grant set: delete-then-upsert, never
	// an incremental patch. ADMIN/MANAGER only.
	Replace(ctx context.Context, actor domain.Actor, partnerID uuid.UUID, grants []GrantInput) ([]domain.PermissionGrant, error)
	ListForPartner(ctx context.Context, actor domain.Actor, partnerID uuid.UUID) ([]domain.PermissionGrant, error)
}

// GrantInput is one grant row in a replace request.
type GrantInput struct {
	BusinessID  uuid.UUID
	Permissions []domain.ContentType
	CanEdit     bool
	IsActive    bool
}

// RuleService manages approval rules. Deletion deactivates.
type RuleService interface {
	Create(ctx context.Context, actor domain.Actor, req RuleInput) (*domain.ApprovalRule, error)
	Update(ctx context.Context, actor domain.Actor, id uuid.UUID, req RuleInput) (*domain.ApprovalRule, error)
	Deactivate(ctx context.Context, actor domain.Actor, id uuid.UUID) error
	List(ctx context.Context, actor domain.Actor, includeInactive bool) ([]domain.ApprovalRule, error)
	// Resolve returns the first active rule containing amount, or nil when
	// no rule matches (default managerial approval path).
	Resolve(ctx context.Context, amount int64) (*domain.ApprovalRule, error)
}

// RuleInput holds validated input for rule creation and update.
type RuleInput struct {
	MinAmount    int64
	MaxAmount    *int64
	RequiredRole domain.Role
	AutoApprove  bool
	SortOrder    int
	IsActive     bool
}

// TaskService is scope-gated CRUD over tasks.
type TaskService interface {
	Create(ctx context.Context, actor domain.Actor, req CreateTaskRequest) (*domain.Task, error)
	Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Task, error)
	List(ctx context.Context, actor domain.Actor, req ListTasksRequest) ([]domain.Task, int64, error)
	Update(ctx context.Context, actor domain.Actor, id uuid.UUID, patch domain.TaskPatch) (*domain.Task, error)
	SoftDelete(ctx context.Context, actor domain.Actor, id uuid.UUID) error
}

// CreateTaskRequest holds validated input for task creation.
type CreateTaskRequest struct {
	BusinessID uuid.UUID
	Title      string
	AssigneeID *uuid.UUID
	DueDate    *time.Time
	Note       *string
}

// ListTasksRequest holds filters and pagination for listing tasks.
type ListTasksRequest struct {
	BusinessID *uuid.UUID
	Status     *domain.TaskStatus
	Page       int
	PageSize   int
}

// WorkflowService is scope-gated CRUD over workflows.
type WorkflowService interface {
	Create(ctx context.Context, actor domain.Actor, req CreateWorkflowRequest) (*domain.Workflow, error)
	Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Workflow, error)
	List(ctx context.Context, actor domain.Actor, req ListWorkflowsRequest) ([]domain.Workflow, int64, error)
	Update(ctx context.Context, actor domain.Actor, id uuid.UUID, patch domain.WorkflowPatch) (*domain.Workflow, error)
	SoftDelete(ctx context.Context, actor domain.Actor, id uuid.UUID) error
}

// CreateWorkflowRequest holds validated input for workflow creation.
type CreateWorkflowRequest struct {
	BusinessID uuid.UUID
	Name       string
	TotalSteps int
	Note       *string
}

// ListWorkflowsRequest holds filters and pagination for listing workflows.
type ListWorkflowsRequest struct {
	BusinessID *uuid.UUID
	Status     *domain.WorkflowStatus
	Page       int
	PageSize   int
}
