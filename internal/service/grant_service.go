package service

import (
	"context"
	"fmt"
	"time"

	"backoffice-ops/internal/core/domain"
	"backoffice-ops/internal/core/ports"
	"backoffice-ops/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// GrantServiceImpl implements ports.GrantService.
type GrantServiceImpl struct {
	grantRepo  ports.GrantRepository
	transactor ports.DBTransactor
	log        zerolog.Logger
}

// NewGrantService creates a new GrantServiceImpl.
func NewGrantService(grantRepo ports.GrantRepository, transactor ports.DBTransactor, log zerolog.Logger) *GrantServiceImpl {
	return &GrantServiceImpl{
		grantRepo:  grantRepo,
		transactor: transactor,
		log:        log,
	}
}

// Replace swaps the partner's entire grant set in one transaction. A grant
// omitted from the request is revoked; there is no incremental patching, so
// the stored set always mirrors the last full submission.
func (s *GrantServiceImpl) Replace(ctx context.Context, actor domain.Actor, partnerID uuid.UUID, inputs []ports.GrantInput) ([]domain.PermissionGrant, error) {
	if !actor.Role.AtLeast(domain.RoleManager) {
		return nil, apperror.ErrForbidden("grant management requires at least manager role")
	}

	seen := make(map[uuid.UUID]struct{}, len(inputs))
	now := time.Now().UTC()
	grants := make([]domain.PermissionGrant, 0, len(inputs))
	for _, in := range inputs {
		if _, dup := seen[in.BusinessID]; dup {
			return nil, apperror.Validation(fmt.Sprintf("duplicate grant for business %s", in.BusinessID))
		}
		seen[in.BusinessID] = struct{}{}

		for _, ct := range in.Permissions {
			if !ct.Valid() {
				return nil, apperror.Validation(fmt.Sprintf("unknown content type %q", ct))
			}
		}

		grants = append(grants, domain.PermissionGrant{
			ID:          uuid.New(),
			PartnerID:   partnerID,
			BusinessID:  in.BusinessID,
			Permissions: in.Permissions,
			CanEdit:     in.CanEdit,
			IsActive:    in.IsActive,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.grantRepo.ReplaceForPartner(ctx, dbTx, partnerID, grants); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("replace grants: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("partner_id", partnerID.String()).
		Int("grants", len(grants)).
		Str("replaced_by", actor.ID.String()).
		Msg("partner grants replaced")

	return grants, nil
}

// ListForPartner returns the partner's grants. Internal staff may inspect
// any partner; a partner may only read its own set.
func (s *GrantServiceImpl) ListForPartner(ctx context.Context, actor domain.Actor, partnerID uuid.UUID) ([]domain.PermissionGrant, error) {
	if !actor.IsInternal() {
		if actor.PartnerID == nil || *actor.PartnerID != partnerID {
			return nil, apperror.ErrForbidden("partners may only read their own grants")
		}
	}

	grants, err := s.grantRepo.ListByPartner(ctx, partnerID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list grants: %w", err))
	}
	return grants, nil
}
