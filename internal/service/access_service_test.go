package service

import (
	"context"
	"testing"

	"backoffice-ops/internal/core/domain"
	"backoffice-ops/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func setupAccessService(t *testing.T) (*AccessServiceImpl, *mocks.MockGrantRepository, *gomock.Controller) {
	ctrl := gomock.NewController(t)
	grantRepo := mocks.NewMockGrantRepository(ctrl)
	return NewAccessService(grantRepo, zerolog.Nop()), grantRepo, ctrl
}

func TestAccessService_ResolveScope_InternalUnrestricted(t *testing.T) {
	svc, _, ctrl := setupAccessService(t)
	defer ctrl.Finish()

	for _, role := range []domain.Role{domain.RoleAdmin, domain.RoleManager, domain.RoleMember} {
		actor := domain.Actor{ID: uuid.New(), Role: role}
		scope, err := svc.ResolveScope(context.Background(), actor, domain.ContentPayments)
		require.NoError(t, err)
		assert.True(t, scope.IsUnrestricted(), "role %s", role)
	}
}

func TestAccessService_ResolveScope_PartnerFiltersByContentType(t *testing.T) {
	svc, grantRepo, ctrl := setupAccessService(t)
	defer ctrl.Finish()

	ctx := context.Background()
	partnerID := uuid.New()
	actor := domain.Actor{ID: uuid.New(), Role: domain.RolePartner, PartnerID: &partnerID}

	bizPayments := uuid.New()
	bizTasksOnly := uuid.New()
	bizInactive := uuid.New()

	grantRepo.EXPECT().ListByPartner(ctx, partnerID).Return([]domain.PermissionGrant{
		{BusinessID: bizPayments, Permissions: []domain.ContentType{domain.ContentPayments}, IsActive: true},
		{BusinessID: bizTasksOnly, Permissions: []domain.ContentType{domain.ContentTasks}, IsActive: true},
		{BusinessID: bizInactive, Permissions: []domain.ContentType{domain.ContentPayments}, IsActive: false},
	}, nil)

	scope, err := svc.ResolveScope(ctx, actor, domain.ContentPayments)
	require.NoError(t, err)
	assert.True(t, scope.Allows(bizPayments))
	assert.False(t, scope.Allows(bizTasksOnly), "grant for another content type must not leak")
	assert.False(t, scope.Allows(bizInactive), "inactive grants cover nothing")
}

func TestAccessService_ResolveScope_PartnerWithoutBindingSeesNothing(t *testing.T) {
	svc, _, ctrl := setupAccessService(t)
	defer ctrl.Finish()

	actor := domain.Actor{ID: uuid.New(), Role: domain.RolePartner}
	scope, err := svc.ResolveScope(context.Background(), actor, domain.ContentPayments)
	require.NoError(t, err)
	assert.True(t, scope.IsEmpty())
}

func TestAccessService_ResolveScope_PartnerWithNoGrantsEmpty(t *testing.T) {
	svc, grantRepo, ctrl := setupAccessService(t)
	defer ctrl.Finish()

	ctx := context.Background()
	partnerID := uuid.New()
	actor := domain.Actor{ID: uuid.New(), Role: domain.RolePartner, PartnerID: &partnerID}

	grantRepo.EXPECT().ListByPartner(ctx, partnerID).Return(nil, nil)

	scope, err := svc.ResolveScope(ctx, actor, domain.ContentTasks)
	require.NoError(t, err)
	assert.True(t, scope.IsEmpty())
}

func TestAccessService_CanWrite_Internal(t *testing.T) {
	svc, _, ctrl := setupAccessService(t)
	defer ctrl.Finish()

	actor := domain.Actor{ID: uuid.New(), Role: domain.RoleMember}
	ok, err := svc.CanWrite(context.Background(), actor, uuid.New())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAccessService_CanWrite_PartnerNeedsActiveEditGrant(t *testing.T) {
	svc, grantRepo, ctrl := setupAccessService(t)
	defer ctrl.Finish()

	ctx := context.Background()
	partnerID := uuid.New()
	businessID := uuid.New()
	actor := domain.Actor{ID: uuid.New(), Role: domain.RolePartner, PartnerID: &partnerID}

	cases := []struct {
		name  string
		grant *domain.PermissionGrant
		want  bool
	}{
		{"no grant", nil, false},
		{"active without can_edit", &domain.PermissionGrant{IsActive: true, CanEdit: false}, false},
		{"inactive with can_edit", &domain.PermissionGrant{IsActive: false, CanEdit: true}, false},
		{"active with can_edit", &domain.PermissionGrant{IsActive: true, CanEdit: true}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			grantRepo.EXPECT().GetForBusiness(ctx, partnerID, businessID).Return(tc.grant, nil)
			ok, err := svc.CanWrite(ctx, actor, businessID)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ok)
		})
	}
}

func TestAccessService_CanWrite_PartnerWithoutBinding(t *testing.T) {
	svc, _, ctrl := setupAccessService(t)
	defer ctrl.Finish()

	actor := domain.Actor{ID: uuid.New(), Role: domain.RolePartner}
	ok, err := svc.CanWrite(context.Background(), actor, uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)
}
