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

const auditEntityTask = "tasks"

// TaskServiceImpl implements ports.TaskService. Reads filter by resolved
// scope, writes check per-business write permission, and every mutation
// records an audit entry in the same transaction.
type TaskServiceImpl struct {
	taskRepo   ports.TaskRepository
	auditRepo  ports.AuditRepository
	access     ports.AccessService
	transactor ports.DBTransactor
	log        zerolog.Logger
}

// NewTaskService creates a new TaskServiceImpl.
func NewTaskService(
	taskRepo ports.TaskRepository,
	auditRepo ports.AuditRepository,
	access ports.AccessService,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *TaskServiceImpl {
	return &TaskServiceImpl{
		taskRepo:   taskRepo,
		auditRepo:  auditRepo,
		access:     access,
		transactor: transactor,
		log:        log,
	}
}

// Create adds a new task under the given business.
func (s *TaskServiceImpl) Create(ctx context.Context, actor domain.Actor, req ports.CreateTaskRequest) (*domain.Task, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, apperror.Validation("title is required")
	}

	canWrite, err := s.access.CanWrite(ctx, actor, req.BusinessID)
	if err != nil {
		return nil, err
	}
	if !canWrite {
		return nil, apperror.ErrForbidden("no write access to this business")
	}

	now := time.Now().UTC()
	task := &domain.Task{
		ID:         uuid.New(),
		BusinessID: req.BusinessID,
		Title:      strings.TrimSpace(req.Title),
		Status:     domain.TaskStatusOpen,
		AssigneeID: req.AssigneeID,
		DueDate:    req.DueDate,
		Note:       req.Note,
		CreatedBy:  actor.ID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.taskRepo.Create(ctx, dbTx, task); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create task: %w", err))
	}
	if err := s.auditTask(ctx, dbTx, task.ID, domain.AuditActionCreate, actor.ID, nil, task); err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("task_id", task.ID.String()).
		Str("business_id", task.BusinessID.String()).
		Msg("task created")

	return task, nil
}

// Get returns one task if it falls inside the actor's visible scope.
func (s *TaskServiceImpl) Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Task, error) {
	scope, err := s.access.ResolveScope(ctx, actor, domain.ContentTasks)
	if err != nil {
		return nil, err
	}

	task, err := s.taskRepo.GetByID(ctx, id, scope)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get task: %w", err))
	}
	if task == nil {
		return nil, apperror.ErrNotFound("task")
	}
	return task, nil
}

// List returns tasks inside the actor's scope with filters applied.
func (s *TaskServiceImpl) List(ctx context.Context, actor domain.Actor, req ports.ListTasksRequest) ([]domain.Task, int64, error) {
	scope, err := s.access.ResolveScope(ctx, actor, domain.ContentTasks)
	if err != nil {
		return nil, 0, err
	}
	if req.BusinessID != nil {
		scope = scope.Intersect(*req.BusinessID)
	}
	if scope.IsEmpty() {
		return []domain.Task{}, 0, nil
	}

	page, pageSize := normalizePage(req.Page, req.PageSize)
	tasks, total, err := s.taskRepo.List(ctx, ports.TaskListParams{
		Scope:    scope,
		Status:   req.Status,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list tasks: %w", err))
	}
	return tasks, total, nil
}

// Update applies a partial update to a visible, writable task.
func (s *TaskServiceImpl) Update(ctx context.Context, actor domain.Actor, id uuid.UUID, patch domain.TaskPatch) (*domain.Task, error) {
	scope, err := s.access.ResolveScope(ctx, actor, domain.ContentTasks)
	if err != nil {
		return nil, err
	}
	task, err := s.taskRepo.GetByID(ctx, id, scope)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get task: %w", err))
	}
	if task == nil {
		return nil, apperror.ErrNotFound("task")
	}

	canWrite, err := s.access.CanWrite(ctx, actor, task.BusinessID)
	if err != nil {
		return nil, err
	}
	if !canWrite {
		return nil, apperror.ErrForbidden("no write access to this business")
	}

	if patch.Status != nil && !patch.Status.Valid() {
		return nil, apperror.Validation("invalid task status")
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, apperror.Validation("title must not be empty")
	}

	before := *task
	patch.Apply(task)
	task.UpdatedAt = time.Now().UTC()

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.taskRepo.Update(ctx, dbTx, task); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update task: %w", err))
	}
	if err := s.auditTask(ctx, dbTx, task.ID, domain.AuditActionUpdate, actor.ID, &before, task); err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	return task, nil
}

// SoftDelete hides a task from all reads.
func (s *TaskServiceImpl) SoftDelete(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	scope, err := s.access.ResolveScope(ctx, actor, domain.ContentTasks)
	if err != nil {
		return err
	}
	task, err := s.taskRepo.GetByID(ctx, id, scope)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("get task: %w", err))
	}
	if task == nil {
		return apperror.ErrNotFound("task")
	}

	canWrite, err := s.access.CanWrite(ctx, actor, task.BusinessID)
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
	if err := s.taskRepo.SoftDelete(ctx, dbTx, id, now); err != nil {
		return apperror.InternalError(fmt.Errorf("soft delete task: %w", err))
	}
	if err := s.auditTask(ctx, dbTx, id, domain.AuditActionSoftDelete, actor.ID, task, nil); err != nil {
		return err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().Str("task_id", id.String()).Msg("task soft deleted")
	return nil
}

func (s *TaskServiceImpl) auditTask(ctx context.Context, dbTx pgx.Tx, entityID uuid.UUID, action domain.AuditAction, actorID uuid.UUID, before, after *domain.Task) error {
	entry := &domain.AuditEntry{
		ID:         uuid.New(),
		EntityType: auditEntityTask,
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
