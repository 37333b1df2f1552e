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

const paymentColumns = `id, business_id, partner_id, category_id, type, amount, tax, total_amount,
		withholding_tax, net_amount, status, period, due_date, paid_at, adjustment_reason, note,
		version, created_by, created_at, updated_at, deleted_at`

// PaymentRepo implements ports.PaymentRepository.
type PaymentRepo struct {
	pool Pool
}

// NewPaymentRepo creates a new PaymentRepo.
func NewPaymentRepo(pool Pool) *PaymentRepo {
	return &PaymentRepo{pool: pool}
}

// Create inserts a new payment within a database transaction.
func (r *PaymentRepo) Create(ctx context.Context, tx pgx.Tx, p *domain.Payment) error {
	query := `INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`

	_, err := tx.Exec(ctx, query,
		p.ID, p.BusinessID, p.PartnerID, p.CategoryID, p.Type,
		p.Amount, p.Tax, p.TotalAmount, p.WithholdingTax, p.NetAmount,
		p.Status, p.Period, p.DueDate, p.PaidAt, p.AdjustmentReason, p.Note,
		p.Version, p.CreatedBy, p.CreatedAt, p.UpdatedAt, p.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// GetByID fetches a payment by UUID with business scope filtering applied.
// An out-of-scope or soft-deleted id reads as absent.
func (r *PaymentRepo) GetByID(ctx context.Context, id uuid.UUID, scope domain.BusinessScope) (*domain.Payment, error) {
	conditions := []string{"id = $1", "deleted_at IS NULL"}
	args := []any{id}
	conditions, args = appendScope(conditions, args, scope)

	query := fmt.Sprintf(`SELECT %s FROM payments WHERE %s`,
		paymentColumns, strings.Join(conditions, " AND "))

	return r.scanPayment(r.pool.QueryRow(ctx, query, args...))
}

// GetByIDForUpdate re-reads the row with a row lock inside tx so concurrent
// mutations serialize per payment.
func (r *PaymentRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`

	return r.scanPayment(tx.QueryRow(ctx, query, id))
}

// Update persists the payment if its stored version still matches
// expectedVersion, bumping the version column. A zero-row update means the
// row moved on concurrently and maps to ports.ErrVersionConflict.
func (r *PaymentRepo) Update(ctx context.Context, tx pgx.Tx, p *domain.Payment, expectedVersion int64) error {
	query := `UPDATE payments SET partner_id = $1, category_id = $2, type = $3, amount = $4, tax = $5,
		total_amount = $6, withholding_tax = $7, net_amount = $8, status = $9, period = $10,
		due_date = $11, paid_at = $12, adjustment_reason = $13, note = $14,
		version = version + 1, updated_at = $15
		WHERE id = $16 AND version = $17 AND deleted_at IS NULL`

	tag, err := tx.Exec(ctx, query,
		p.PartnerID, p.CategoryID, p.Type, p.Amount, p.Tax,
		p.TotalAmount, p.WithholdingTax, p.NetAmount, p.Status, p.Period,
		p.DueDate, p.PaidAt, p.AdjustmentReason, p.Note,
		p.UpdatedAt, p.ID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrVersionConflict
	}
	p.Version = expectedVersion + 1
	return nil
}

// SoftDelete marks a payment deleted without removing the row.
func (r *PaymentRepo) SoftDelete(ctx context.Context, tx pgx.Tx, id uuid.UUID, at time.Time) error {
	query := `UPDATE payments SET deleted_at = $1, updated_at = $1 WHERE id = $2 AND deleted_at IS NULL`

	tag, err := tx.Exec(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("soft delete payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("payment not found: %s", id)
	}
	return nil
}

// List fetches payments with scope, filtering and pagination.
func (r *PaymentRepo) List(ctx context.Context, params ports.PaymentListParams) ([]domain.Payment, int64, error) {
	conditions := []string{"deleted_at IS NULL"}
	var args []any
	conditions, args = appendScope(conditions, args, params.Scope)

	if params.Status != nil {
		args = append(args, *params.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if params.Type != nil {
		args = append(args, *params.Type)
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)))
	}
	if params.Period != nil {
		args = append(args, *params.Period)
		conditions = append(conditions, fmt.Sprintf("period = $%d", len(args)))
	}

	where := "WHERE " + strings.Join(conditions, " AND ")

	// Count total
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM payments %s", where)
	var total int64
	err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count payments: %w", err)
	}

	// Fetch page
	offset := (params.Page - 1) * params.PageSize
	dataQuery := fmt.Sprintf(`SELECT %s FROM payments %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		paymentColumns, where, len(args)+1, len(args)+2)
	args = append(args, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		p := domain.Payment{}
		err := rows.Scan(
			&p.ID, &p.BusinessID, &p.PartnerID, &p.CategoryID, &p.Type,
			&p.Amount, &p.Tax, &p.TotalAmount, &p.WithholdingTax, &p.NetAmount,
			&p.Status, &p.Period, &p.DueDate, &p.PaidAt, &p.AdjustmentReason, &p.Note,
			&p.Version, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt, &p.DeletedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan payment row: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate payment rows: %w", err)
	}
	return payments, total, nil
}

// scanPayment is a helper to scan a single row into a Payment.
func (r *PaymentRepo) scanPayment(row pgx.Row) (*domain.Payment, error) {
	p := &domain.Payment{}
	err := row.Scan(
		&p.ID, &p.BusinessID, &p.PartnerID, &p.CategoryID, &p.Type,
		&p.Amount, &p.Tax, &p.TotalAmount, &p.WithholdingTax, &p.NetAmount,
		&p.Status, &p.Period, &p.DueDate, &p.PaidAt, &p.AdjustmentReason, &p.Note,
		&p.Version, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt, &p.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan payment: %w", err)
	}
	return p, nil
}
