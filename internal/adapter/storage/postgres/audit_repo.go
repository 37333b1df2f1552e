package postgres

import (
	"context"
	"fmt"

	"backoffice-ops/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AuditRepo implements ports.AuditRepository over the append-only audit_log
// table. Entries are never updated or deleted.
type AuditRepo struct {
	pool Pool
}

// NewAuditRepo creates a new AuditRepo.
func NewAuditRepo(pool Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

// Create inserts an audit entry within the caller's transaction and assigns
// the next per-entity sequence number. The row lock held on the entity by
// the surrounding transaction serializes writers, so MAX(seq)+1 is safe.
func (r *AuditRepo) Create(ctx context.Context, tx pgx.Tx, entry *domain.AuditEntry) error {
	query := `INSERT INTO audit_log (id, entity_type, entity_id, action, actor_id, before, after, seq, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7,
			(SELECT COALESCE(MAX(seq), 0) + 1 FROM audit_log WHERE entity_type = $2 AND entity_id = $3),
			$8)
		RETURNING seq`

	err := tx.QueryRow(ctx, query,
		entry.ID, entry.EntityType, entry.EntityID, entry.Action,
		entry.ActorID, entry.Before, entry.After, entry.CreatedAt,
	).Scan(&entry.Seq)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// ListByEntity fetches the full history of one entity ordered by sequence.
func (r *AuditRepo) ListByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]domain.AuditEntry, error) {
	query := `SELECT id, entity_type, entity_id, action, actor_id, before, after, seq, created_at
		FROM audit_log WHERE entity_type = $1 AND entity_id = $2 ORDER BY seq ASC`

	rows, err := r.pool.Query(ctx, query, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		e := domain.AuditEntry{}
		err := rows.Scan(
			&e.ID, &e.EntityType, &e.EntityID, &e.Action,
			&e.ActorID, &e.Before, &e.After, &e.Seq, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit rows: %w", err)
	}
	return entries, nil
}
