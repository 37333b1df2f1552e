package service

import (
	"context"
	"testing"

	"backoffice-ops/internal/core/domain"
	"backoffice-ops/internal/core/ports"
	"backoffice-ops/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type workflowTestDeps struct {
	svc          *WorkflowServiceImpl
	workflowRepo *mocks.MockWorkflowRepository
	auditRepo    *mocks.MockAuditRepository
	access       *mocks.MockAccessService
	transactor   *mocks.MockDBTransactor
	ctrl         *gomock.Controller
}

func setupWorkflowService(t *testing.T) *workflowTestDeps {
	ctrl := gomock.NewController(t)
	d := &workflowTestDeps{
		workflowRepo: mocks.NewMockWorkflowRepository(ctrl),
		auditRepo:    mocks.NewMockAuditRepository(ctrl),
		access:       mocks.NewMockAccessService(ctrl),
		transactor:   mocks.NewMockDBTransactor(ctrl),
		ctrl:         ctrl,
	}
	d.svc = NewWorkflowService(d.workflowRepo, d.auditRepo, d.access, d.transactor, zerolog.Nop())
	return d
}

func TestWorkflowService_Create_Success(t *testing.T) {
	d := setupWorkflowService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	actor := manager()
	businessID := uuid.New()

	d.access.EXPECT().CanWrite(ctx, actor, businessID).Return(true, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.workflowRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.auditRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)

	wf, err := d.svc.Create(ctx, actor, ports.CreateWorkflowRequest{
		BusinessID: businessID,
		Name:       "month-end close",
		TotalSteps: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.WorkflowStatusActive, wf.Status)
	assert.Equal(t, 0, wf.CurrentStep)
	assert.Equal(t, 5, wf.TotalSteps)
}

func TestWorkflowService_Create_ZeroStepsRejected(t *testing.T) {
	d := setupWorkflowService(t)
	defer d.ctrl.Finish()

	_, err := d.svc.Create(context.Background(), manager(), ports.CreateWorkflowRequest{
		BusinessID: uuid.New(),
		Name:       "x",
		TotalSteps: 0,
	})
	assertAppError(t, err, "VAL_001")
}

func TestWorkflowService_Update_FinalStepCompletes(t *testing.T) {
	d := setupWorkflowService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	actor := manager()
	scope := domain.UnrestrictedScope()
	wf := &domain.Workflow{
		ID: uuid.New(), BusinessID: uuid.New(), Name: "close",
		Status: domain.WorkflowStatusActive, CurrentStep: 4, TotalSteps: 5,
	}

	d.access.EXPECT().ResolveScope(ctx, actor, domain.ContentWorkflows).Return(scope, nil)
	d.workflowRepo.EXPECT().GetByID(ctx, wf.ID, scope).Return(wf, nil)
	d.access.EXPECT().CanWrite(ctx, actor, wf.BusinessID).Return(true, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.workflowRepo.EXPECT().Update(ctx, tx, gomock.Any()).Return(nil)
	d.auditRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)

	step := 5
	result, err := d.svc.Update(ctx, actor, wf.ID, domain.WorkflowPatch{CurrentStep: &step})
	require.NoError(t, err)
	assert.Equal(t, domain.WorkflowStatusCompleted, result.Status)
}

func TestWorkflowService_Update_StepOutOfRange(t *testing.T) {
	d := setupWorkflowService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	actor := manager()
	scope := domain.UnrestrictedScope()
	wf := &domain.Workflow{ID: uuid.New(), BusinessID: uuid.New(), Name: "close", TotalSteps: 3}

	d.access.EXPECT().ResolveScope(ctx, actor, domain.ContentWorkflows).Return(scope, nil)
	d.workflowRepo.EXPECT().GetByID(ctx, wf.ID, scope).Return(wf, nil)
	d.access.EXPECT().CanWrite(ctx, actor, wf.BusinessID).Return(true, nil)

	step := 7
	_, err := d.svc.Update(ctx, actor, wf.ID, domain.WorkflowPatch{CurrentStep: &step})
	assertAppError(t, err, "VAL_001")
}

func TestWorkflowService_Get_OutOfScopeNotFound(t *testing.T) {
	d := setupWorkflowService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	actor := partner(uuid.New())
	id := uuid.New()
	scope := domain.RestrictedScope(uuid.New())

	d.access.EXPECT().ResolveScope(ctx, actor, domain.ContentWorkflows).Return(scope, nil)
	d.workflowRepo.EXPECT().GetByID(ctx, id, scope).Return(nil, nil)

	_, err := d.svc.Get(ctx, actor, id)
	assertAppError(t, err, "ACC_002")
}
