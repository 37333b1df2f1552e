package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"backoffice-ops/internal/core/domain"
	"backoffice-ops/internal/core/ports"
	"backoffice-ops/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const auditEntityWorkflow = "workflows"

// WorkflowServiceImpl implements ports.WorkflowService.
type WorkflowServiceImpl struct {
	workflowRepo ports.WorkflowRepository
	auditRepo    ports.AuditRepository
	access       ports.AccessService
	transactor   ports.DBTransactor
	log          zerolog.Logger
}

// NewWorkflowService creates a new WorkflowServiceImpl.
func NewWorkflowService(
	workflowRepo ports.WorkflowRepository,
	auditRepo ports.AuditRepository,
	access ports.AccessService,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *WorkflowServiceImpl {
	return &WorkflowServiceImpl{
		workflowRepo: workflowRepo,
		auditRepo:    auditRepo,
		access:       access,
		transactor:   transactor,
		log:          log,
	}
}

// Create starts a new workflow instance under the given business.
func (s *WorkflowServiceImpl) Create(ctx context.Context, actor domain.Actor, req ports.CreateWorkflowRequest) (*domain.Workflow, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, apperror.Validation("name is required")
	}
	if req.TotalSteps < 1 {
		return nil, apperror.Validation("total_steps must be at least 1")
	}

	canWrite, err := s.access.CanWrite(ctx, actor, req.BusinessID)
	if err != nil {
		return nil, err
	}
	if !canWrite {
		return nil, apperror.ErrForbidden("no write access to this business")
	}

	now := time.Now().UTC()
	workflow := &domain.Workflow{
		ID:          uuid.New(),
		BusinessID:  req.BusinessID,
		Name:        strings.TrimSpace(req.Name),
		Status:      domain.WorkflowStatusActive,
		CurrentStep: 0,
		TotalSteps:  req.TotalSteps,
		Note:        req.Note,
		CreatedBy:   actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.workflowRepo.Create(ctx, dbTx, workflow); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create workflow: %w", err))
	}
	if err := s.auditWorkflow(ctx, dbTx, workflow.ID, domain.AuditActionCreate, actor.ID, nil, workflow); err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("workflow_id", workflow.ID.String()).
		Str("business_id", workflow.BusinessID.String()).
		Msg("workflow created")

	return workflow, nil
}

// Get returns one workflow if it falls inside the actor's visible scope.
func (s *WorkflowServiceImpl) Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Workflow, error) {
	scope, err := s.access.ResolveScope(ctx, actor, domain.ContentWorkflows)
	if err != nil {
		return nil, err
	}

	workflow, err := s.workflowRepo.GetByID(ctx, id, scope)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get workflow: %w", err))
	}
	if workflow == nil {
		return nil, apperror.ErrNotFound("workflow")
	}
	return workflow, nil
}

// List returns workflows inside the actor's scope with filters applied.
func (s *WorkflowServiceImpl) List(ctx context.Context, actor domain.Actor, req ports.ListWorkflowsRequest) ([]domain.Workflow, int64, error) {
	scope, err := s.access.ResolveScope(ctx, actor, domain.ContentWorkflows)
	if err != nil {
		return nil, 0, err
	}
	if req.BusinessID != nil {
		scope = scope.Intersect(*req.BusinessID)
	}
	if scope.IsEmpty() {
		return []domain.Workflow{}, 0, nil
	}

	page, pageSize := normalizePage(req.Page, req.PageSize)
	workflows, total, err := s.workflowRepo.List(ctx, ports.WorkflowListParams{
		Scope:    scope,
		Status:   req.Status,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list workflows: %w", err))
	}
	return workflows, total, nil
}

// Update applies a partial update to a visible, writable workflow. Advancing
// current_step to total_steps marks the workflow completed.
func (s *WorkflowServiceImpl) Update(ctx context.Context, actor domain.Actor, id uuid.UUID, patch domain.WorkflowPatch) (*domain.Workflow, error) {
	scope, err := s.access.ResolveScope(ctx, actor, domain.ContentWorkflows)
	if err != nil {
		return nil, err
	}
	workflow, err := s.workflowRepo.GetByID(ctx, id, scope)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get workflow: %w", err))
	}
	if workflow == nil {
		return nil, apperror.ErrNotFound("workflow")
	}

	canWrite, err := s.access.CanWrite(ctx, actor, workflow.BusinessID)
	if err != nil {
		return nil, err
	}
	if !canWrite {
		return nil, apperror.ErrForbidden("no write access to this business")
	}

	if patch.Status != nil && !patch.Status.Valid() {
		return nil, apperror.Validation("invalid workflow status")
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, apperror.Validation("name must not be empty")
	}
	if patch.CurrentStep != nil && (*patch.CurrentStep < 0 || *patch.CurrentStep > workflow.TotalSteps) {
		return nil, apperror.Validation("current_step out of range")
	}

	before := *workflow
	patch.Apply(workflow)
	if workflow.Status == domain.WorkflowStatusActive && workflow.CurrentStep == workflow.TotalSteps {
		workflow.Status = domain.WorkflowStatusCompleted
	}
	workflow.UpdatedAt = time.Now().UTC()

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.workflowRepo.Update(ctx, dbTx, workflow); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update workflow: %w", err))
	}
	if err := s.auditWorkflow(ctx, dbTx, workflow.ID, domain.AuditActionUpdate, actor.ID, &before, workflow); err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	return workflow, nil
}

// SoftDelete hides a workflow from all reads.
func (s *WorkflowServiceImpl) SoftDelete(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	scope, err := s.access.ResolveScope(ctx, actor, domain.ContentWorkflows)
	if err != nil {
		return err
	}
	workflow, err := s.workflowRepo.GetByID(ctx, id, scope)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("get workflow: %w", err))
	}
	if workflow == nil {
		return apperror.ErrNotFound("workflow")
	}

	canWrite, err := s.access.CanWrite(ctx, actor, workflow.BusinessID)
	if err != nil {
		return err
	}
	if !canWrite {
		return apperror.ErrForbidden("no write access to this business")
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	now := time.Now().UTC()
	if err := s.workflowRepo.SoftDelete(ctx, dbTx, id, now); err != nil {
		return apperror.InternalError(fmt.Errorf("soft delete workflow: %w", err))
	}
	if err := s.auditWorkflow(ctx, dbTx, id, domain.AuditActionSoftDelete, actor.ID, workflow, nil); err != nil {
		return err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().Str("workflow_id", id.String()).Msg("workflow soft deleted")
	return nil
}

func (s *WorkflowServiceImpl) auditWorkflow(ctx context.Context, dbTx pgx.Tx, entityID uuid.UUID, action domain.AuditAction, actorID uuid.UUID, before, after *domain.Workflow) error {
	entry := &domain.AuditEntry{
		ID:         uuid.New(),
		EntityType: auditEntityWorkflow,
		EntityID:   entityID,
		Action:     action,
		ActorID:    actorID,
		CreatedAt:  time.Now().UTC(),
	}

	var err error
	if before != nil {
		if entry.Before, err = json.Marshal(before); err != nil {
			return apperror.InternalError(fmt.Errorf("marshal before snapshot: %w", err))
		}
	}
	if after != nil {
		if entry.After, err = json.Marshal(after); err != nil {
			return apperror.InternalError(fmt.Errorf("marshal after snapshot: %w", err))
		}
	}

	if err := s.auditRepo.Create(ctx, dbTx, entry); err != nil {
		return apperror.InternalError(fmt.Errorf("write audit entry: %w", err))
	}
	return nil
}
