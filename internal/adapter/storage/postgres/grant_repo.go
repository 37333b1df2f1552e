package postgres

import (
	"context"
	"errors"
	"fmt"

	"backoffice-ops/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// GrantRepo implements ports.GrantRepository.
type GrantRepo struct {
	pool Pool
}

// NewGrantRepo creates a new GrantRepo.
func NewGrantRepo(pool Pool) *GrantRepo {
	return &GrantRepo{pool: pool}
}

// ListByPartner fetches every grant held by a partner.
func (r *GrantRepo) ListByPartner(ctx context.Context, partnerID uuid.UUID) ([]domain.PermissionGrant, error) {
	query := `SELECT id, partner_id, business_id, permissions, can_edit, is_active, created_at, updated_at
		FROM permission_grants WHERE partner_id = $1 ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, partnerID)
	if err != nil {
		return nil, fmt.Errorf("list grants: %w", err)
	}
	defer rows.Close()

	var grants []domain.PermissionGrant
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		grants = append(grants, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate grant rows: %w", err)
	}
	return grants, nil
}

// GetForBusiness fetches the grant for one (partner, business) pair.
func (r *GrantRepo) GetForBusiness(ctx context.Context, partnerID, businessID uuid.UUID) (*domain.PermissionGrant, error) {
	query := `SELECT id, partner_id, business_id, permissions, can_edit, is_active, created_at, updated_at
		FROM permission_grants WHERE partner_id = $1 AND business_id = $2`

	g, err := scanGrant(r.pool.QueryRow(ctx, query, partnerID, businessID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return g, nil
}

// ReplaceForPartner swaps the partner's full grant set inside the caller's
// transaction. Businesses not resent are deleted, the rest upserted on the
// (partner_id, business_id) uniqueness constraint.
func (r *GrantRepo) ReplaceForPartner(ctx context.Context, tx pgx.Tx, partnerID uuid.UUID, grants []domain.PermissionGrant) error {
	keep := make([]uuid.UUID, 0, len(grants))
	for i := range grants {
		keep = append(keep, grants[i].BusinessID)
	}

	deleteQuery := `DELETE FROM permission_grants WHERE partner_id = $1 AND NOT (business_id = ANY($2))`
	if _, err := tx.Exec(ctx, deleteQuery, partnerID, keep); err != nil {
		return fmt.Errorf("delete stale grants: %w", err)
	}

	upsertQuery := `INSERT INTO permission_grants (id, partner_id, business_id, permissions, can_edit, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (partner_id, business_id) DO UPDATE SET
			permissions = EXCLUDED.permissions,
			can_edit = EXCLUDED.can_edit,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at`

	for i := range grants {
		g := &grants[i]
		_, err := tx.Exec(ctx, upsertQuery,
			g.ID, g.PartnerID, g.BusinessID, permissionStrings(g.Permissions),
			g.CanEdit, g.IsActive, g.CreatedAt, g.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("upsert grant: %w", err)
		}
	}
	return nil
}

// permissionStrings converts the typed permission list to the text[] column
// representation.
func permissionStrings(perms []domain.ContentType) []string {
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		out = append(out, string(p))
	}
	return out
}

// scanGrant is a helper to scan a single row into a PermissionGrant.
func scanGrant(row pgx.Row) (*domain.PermissionGrant, error) {
	g := &domain.PermissionGrant{}
	var perms []string
	err := row.Scan(
		&g.ID, &g.PartnerID, &g.BusinessID, &perms,
		&g.CanEdit, &g.IsActive, &g.CreatedAt, &g.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan grant: %w", err)
	}
	g.Permissions = make([]domain.ContentType, 0, len(perms))
	for _, p := range perms {
		g.Permissions = append(g.Permissions, domain.ContentType(p))
	}
	return g, nil
}
