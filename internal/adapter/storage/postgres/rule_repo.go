package postgres

import (
	"context"
	"errors"
	"fmt"

	"backoffice-ops/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ApprovalRuleRepo implements ports.ApprovalRuleRepository.
type ApprovalRuleRepo struct {
	pool Pool
}

// NewApprovalRuleRepo creates a new ApprovalRuleRepo.
func NewApprovalRuleRepo(pool Pool) *ApprovalRuleRepo {
	return &ApprovalRuleRepo{pool: pool}
}

// Create inserts a new approval rule.
func (r *ApprovalRuleRepo) Create(ctx context.Context, rule *domain.ApprovalRule) error {
	query := `INSERT INTO approval_rules (id, min_amount, max_amount, required_role, auto_approve, sort_order, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, query,
		rule.ID, rule.MinAmount, rule.MaxAmount, rule.RequiredRole,
		rule.AutoApprove, rule.SortOrder, rule.IsActive, rule.CreatedAt, rule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert approval rule: %w", err)
	}
	return nil
}

// Update overwrites an existing rule's policy fields.
func (r *ApprovalRuleRepo) Update(ctx context.Context, rule *domain.ApprovalRule) error {
	query := `UPDATE approval_rules SET min_amount = $1, max_amount = $2, required_role = $3,
		auto_approve = $4, sort_order = $5, is_active = $6, updated_at = $7 WHERE id = $8`

	tag, err := r.pool.Exec(ctx, query,
		rule.MinAmount, rule.MaxAmount, rule.RequiredRole,
		rule.AutoApprove, rule.SortOrder, rule.IsActive, rule.UpdatedAt, rule.ID,
	)
	if err != nil {
		return fmt.Errorf("update approval rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("approval rule not found: %s", rule.ID)
	}
	return nil
}

// Deactivate soft-deletes a rule. Rules are never physically removed.
func (r *ApprovalRuleRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE approval_rules SET is_active = FALSE, updated_at = NOW() WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deactivate approval rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("approval rule not found: %s", id)
	}
	return nil
}

// GetByID fetches an approval rule by UUID.
func (r *ApprovalRuleRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.ApprovalRule, error) {
	query := `SELECT id, min_amount, max_amount, required_role, auto_approve, sort_order, is_active, created_at, updated_at
		FROM approval_rules WHERE id = $1`

	rule := &domain.ApprovalRule{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&rule.ID, &rule.MinAmount, &rule.MaxAmount, &rule.RequiredRole,
		&rule.AutoApprove, &rule.SortOrder, &rule.IsActive, &rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan approval rule: %w", err)
	}
	return rule, nil
}

// List fetches rules ordered by sort_order ascending, the order the
// resolver evaluates them in.
func (r *ApprovalRuleRepo) List(ctx context.Context, includeInactive bool) ([]domain.ApprovalRule, error) {
	query := `SELECT id, min_amount, max_amount, required_role, auto_approve, sort_order, is_active, created_at, updated_at
		FROM approval_rules`
	if !includeInactive {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY sort_order ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list approval rules: %w", err)
	}
	defer rows.Close()

	var rules []domain.ApprovalRule
	for rows.Next() {
		rule := domain.ApprovalRule{}
		err := rows.Scan(
			&rule.ID, &rule.MinAmount, &rule.MaxAmount, &rule.RequiredRole,
			&rule.AutoApprove, &rule.SortOrder, &rule.IsActive, &rule.CreatedAt, &rule.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan approval rule row: %w", err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate approval rule rows: %w", err)
	}
	return rules, nil
}
