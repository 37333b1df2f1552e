package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"backoffice-ops/internal/core/domain"
	"backoffice-ops/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const workflowColumns = `id, business_id, name, status, current_step, total_steps, note,
		created_by, created_at, updated_at, deleted_at`

// WorkflowRepo implements ports.WorkflowRepository.
type WorkflowRepo struct {
	pool Pool
}

// NewWorkflowRepo creates a new WorkflowRepo.
func NewWorkflowRepo(pool Pool) *WorkflowRepo {
	return &WorkflowRepo{pool: pool}
}

// Create inserts a new workflow within a database transaction.
func (r *WorkflowRepo) Create(ctx context.Context, tx pgx.Tx, w *domain.Workflow) error {
	query := `INSERT INTO workflows (` + workflowColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := tx.Exec(ctx, query,
		w.ID, w.BusinessID, w.Name, w.Status, w.CurrentStep, w.TotalSteps, w.Note,
		w.CreatedBy, w.CreatedAt, w.UpdatedAt, w.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert workflow: %w", err)
	}
	return nil
}

// GetByID fetches a workflow by UUID with business scope filtering applied.
func (r *WorkflowRepo) GetByID(ctx context.Context, id uuid.UUID, scope domain.BusinessScope) (*domain.Workflow, error) {
	conditions := []string{"id = $1", "deleted_at IS NULL"}
	args := []any{id}
	conditions, args = appendScope(conditions, args, scope)

	query := fmt.Sprintf(`SELECT %s FROM workflows WHERE %s`,
		workflowColumns, strings.Join(conditions, " AND "))

	return r.scanWorkflow(r.pool.QueryRow(ctx, query, args...))
}

// Update overwrites a workflow's mutable fields within a database transaction.
func (r *WorkflowRepo) Update(ctx context.Context, tx pgx.Tx, w *domain.Workflow) error {
	query := `UPDATE workflows SET name = $1, status = $2, current_step = $3,
		note = $4, updated_at = $5 WHERE id = $6 AND deleted_at IS NULL`

	tag, err := tx.Exec(ctx, query,
		w.Name, w.Status, w.CurrentStep, w.Note, w.UpdatedAt, w.ID,
	)
	if err != nil {
		return fmt.Errorf("update workflow: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("workflow not found: %s", w.ID)
	}
	return nil
}

// SoftDelete marks a workflow deleted without removing the row.
func (r *WorkflowRepo) SoftDelete(ctx context.Context, tx pgx.Tx, id uuid.UUID, at time.Time) error {
	query := `UPDATE workflows SET deleted_at = $1, updated_at = $1 WHERE id = $2 AND deleted_at IS NULL`

	tag, err := tx.Exec(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("soft delete workflow: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("workflow not found: %s", id)
	}
	return nil
}

// List fetches workflows with scope, filtering and pagination.
func (r *WorkflowRepo) List(ctx context.Context, params ports.WorkflowListParams) ([]domain.Workflow, int64, error) {
	conditions := []string{"deleted_at IS NULL"}
	var args []any
	conditions, args = appendScope(conditions, args, params.Scope)

	if params.Status != nil {
		args = append(args, *params.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	where := "WHERE " + strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM workflows %s", where)
	var total int64
	err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count workflows: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	dataQuery := fmt.Sprintf(`SELECT %s FROM workflows %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		workflowColumns, where, len(args)+1, len(args)+2)
	args = append(args, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list workflows: %w", err)
	}
	defer rows.Close()

	var workflows []domain.Workflow
	for rows.Next() {
		w := domain.Workflow{}
		err := rows.Scan(
			&w.ID, &w.BusinessID, &w.Name, &w.Status, &w.CurrentStep, &w.TotalSteps, &w.Note,
			&w.CreatedBy, &w.CreatedAt, &w.UpdatedAt, &w.DeletedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan workflow row: %w", err)
		}
		workflows = append(workflows, w)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate workflow rows: %w", err)
	}
	return workflows, total, nil
}

// scanWorkflow is a helper to scan a single row into a Workflow.
func (r *WorkflowRepo) scanWorkflow(row pgx.Row) (*domain.Workflow, error) {
	w := &domain.Workflow{}
	err := row.Scan(
		&w.ID, &w.BusinessID, &w.Name, &w.Status, &w.CurrentStep, &w.TotalSteps, &w.Note,
		&w.CreatedBy, &w.CreatedAt, &w.UpdatedAt, &w.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan workflow: %w", err)
	}
	return w, nil
}
