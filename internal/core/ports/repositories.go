package ports

import (
	"context"
	"errors"
	"time"

	"backoffice-ops/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrVersionConflict is returned by repositories when an optimistic version
// check fails on update. Services map it to a 409-equivalent error.
var ErrVersionConflict = errors.New("version conflict")

//go:generate mockgen -source=repositories.go -destination=mocks/repositories_mock.go -package=mocks

// UserRepository defines persistence operations for login identities.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

// GrantRepository defines persistence operations for partner permission
// grants. Grants are read per request and never cached across requests.
type GrantRepository interface {
	ListByPartner(ctx context.Context, partnerID uuid.UUID) ([]domain.PermissionGrant, error)
	GetForBusiness(ctx context.Context, partnerID, businessID uuid.UUID) (*domain.PermissionGrant, error)
	// ReplaceForPartner swaps the partner's full grant set inside one
	// transaction: grants for businesses not resent are deleted, the rest
	// are upserted on the (partner_id, business_id) uniqueness constraint.
	ReplaceForPartner(ctx context.Context, tx pgx.Tx, partnerID uuid.UUID, grants []domain.PermissionGrant) error
}

// ApprovalRuleRepository defines persistence operations for approval rules.
type ApprovalRuleRepository interface {
	Create(ctx context.Context, rule *domain.ApprovalRule) error
	Update(ctx context.Context, rule *domain.ApprovalRule) error
	// Deactivate soft-deletes a rule; rules are never physically removed.
	Deactivate(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ApprovalRule, error)
	// List returns rules ordered by sort_order ascending.
	List(ctx context.Context, includeInactive bool) ([]domain.ApprovalRule, error)
}

// PaymentRepository defines persistence operations for payments.
// Methods accepting pgx.Tx run inside transaction blocks; mutations pair
// with an audit write in the same transaction.
type PaymentRepository interface {
	Create(ctx context.Context, tx pgx.Tx, p *domain.Payment) error
	// GetByID applies the business scope and deleted_at filtering; an
	// out-of-scope id reads as absent.
	GetByID(ctx context.Context, id uuid.UUID, scope domain.BusinessScope) (*domain.Payment, error)
	// GetByIDForUpdate re-reads the row with a row lock inside tx so a
	// concurrent transition and edit serialize per payment.
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Payment, error)
	// Update persists the payment if its stored version still matches
	// expectedVersion, bumping the version; otherwise ErrVersionConflict.
	Update(ctx context.Context, tx pgx.Tx, p *domain.Payment, expectedVersion int64) error
	SoftDelete(ctx context.Context, tx pgx.Tx, id uuid.UUID, at time.Time) error
	List(ctx context.Context, params PaymentListParams) ([]domain.Payment, int64, error)
}

// PaymentListParams holds scope, filters and pagination for listing payments.
type PaymentListParams struct {
	Scope    domain.BusinessScope
	Status   *domain.PaymentStatus
	Type     *domain.PaymentType
	Period   *string
	Page     int
	PageSize int
}

// AuditRepository defines persistence for the append-only audit trail.
// Create assigns the per-entity sequence number inside the caller's
// transaction so ordering stays deterministic.
type AuditRepository interface {
	Create(ctx context.Context, tx pgx.Tx, entry *domain.AuditEntry) error
	ListByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]domain.AuditEntry, error)
}

// TaskRepository defines persistence operations for tasks.
type TaskRepository interface {
	Create(ctx context.Context, tx pgx.Tx, t *domain.Task) error
	GetByID(ctx context.Context, id uuid.UUID, scope domain.BusinessScope) (*domain.Task, error)
	Update(ctx context.Context, tx pgx.Tx, t *domain.Task) error
	SoftDelete(ctx context.Context, tx pgx.Tx, id uuid.UUID, at time.Time) error
	List(ctx context.Context, params TaskListParams) ([]domain.Task, int64, error)
}

// TaskListParams holds scope, filters and pagination for listing tasks.
type TaskListParams struct {
	Scope    domain.BusinessScope
	Status   *domain.TaskStatus
	Page     int
	PageSize int
}

// WorkflowRepository defines persistence operations for workflows.
type WorkflowRepository interface {
	Create(ctx context.Context, tx pgx.Tx, w *domain.Workflow) error
	GetByID(ctx context.Context, id uuid.UUID, scope domain.BusinessScope) (*domain.Workflow, error)
	Update(ctx context.Context, tx pgx.Tx, w *domain.Workflow) error
	SoftDelete(ctx context.Context, tx pgx.Tx, id uuid.UUID, at time.Time) error
	List(ctx context.Context, params WorkflowListParams) ([]domain.Workflow, int64, error)
}

// WorkflowListParams holds scope, filters and pagination for listing workflows.
type WorkflowListParams struct {
	Scope    domain.BusinessScope
	Status   *domain.WorkflowStatus
	Page     int
	PageSize int
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
