package service

import (
	"context"
	"fmt"

	"backoffice-ops/internal/core/domain"
	"backoffice-ops/internal/core/ports"
	"backoffice-ops/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AccessServiceImpl implements ports.AccessService. Grants are read fresh
// from storage on every resolution: a revoked grant must take effect on the
// partner's next request, so there is no cross-request cache to invalidate.
type AccessServiceImpl struct {
	grantRepo ports.GrantRepository
	log       zerolog.Logger
}

// NewAccessService creates a new AccessServiceImpl.
func NewAccessService(grantRepo ports.GrantRepository, log zerolog.Logger) *AccessServiceImpl {
	return &AccessServiceImpl{
		grantRepo: grantRepo,
		log:       log,
	}
}

// ResolveScope computes the visible business set for one actor and content
// type. Internal staff are unrestricted. A partner sees exactly the
// businesses whose active grant lists the content type; a partner with no
// partner binding or no matching grants resolves to an empty scope, which
// reads as zero rows rather than an error.
func (s *AccessServiceImpl) ResolveScope(ctx context.Context, actor domain.Actor, contentType domain.ContentType) (domain.BusinessScope, error) {
	if actor.IsInternal() {
		return domain.UnrestrictedScope(), nil
	}
	if actor.PartnerID == nil {
		return domain.RestrictedScope(), nil
	}

	grants, err := s.grantRepo.ListByPartner(ctx, *actor.PartnerID)
	if err != nil {
		return domain.BusinessScope{}, apperror.InternalError(fmt.Errorf("list grants: %w", err))
	}

	ids := make([]uuid.UUID, 0, len(grants))
	for i := range grants {
		if grants[i].Covers(contentType) {
			ids = append(ids, grants[i].BusinessID)
		}
	}

	return domain.RestrictedScope(ids...), nil
}

// CanWrite reports whether the actor may mutate records of the business.
// Internal staff always can. Partners need an active grant for the business
// with can_edit set; the content-type list does not gate writes, can_edit is
// a single switch per (partner, business) pair.
func (s *AccessServiceImpl) CanWrite(ctx context.Context, actor domain.Actor, businessID uuid.UUID) (bool, error) {
	if actor.IsInternal() {
		return true, nil
	}
	if actor.PartnerID == nil {
		return false, nil
	}

	grant, err := s.grantRepo.GetForBusiness(ctx, *actor.PartnerID, businessID)
	if err != nil {
		return false, apperror.InternalError(fmt.Errorf("get grant: %w", err))
	}
	if grant == nil {
		return false, nil
	}

	return grant.IsActive && grant.CanEdit, nil
}
