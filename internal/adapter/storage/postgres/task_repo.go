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

const taskColumns = `id, business_id, title, status, assignee_id, due_date, note,
		created_by, created_at, updated_at, deleted_at`

// TaskRepo implements ports.TaskRepository.
type TaskRepo struct {
	pool Pool
}

// NewTaskRepo creates a new TaskRepo.
func NewTaskRepo(pool Pool) *TaskRepo {
	return &TaskRepo{pool: pool}
}

// Create inserts a new task within a database transaction.
func (r *TaskRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Task) error {
	query := `INSERT INTO tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := tx.Exec(ctx, query,
		t.ID, t.BusinessID, t.Title, t.Status, t.AssigneeID, t.DueDate, t.Note,
		t.CreatedBy, t.CreatedAt, t.UpdatedAt, t.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// GetByID fetches a task by UUID with business scope filtering applied.
func (r *TaskRepo) GetByID(ctx context.Context, id uuid.UUID, scope domain.BusinessScope) (*domain.Task, error) {
	conditions := []string{"id = $1", "deleted_at IS NULL"}
	args := []any{id}
	conditions, args = appendScope(conditions, args, scope)

	query := fmt.Sprintf(`SELECT %s FROM tasks WHERE %s`,
		taskColumns, strings.Join(conditions, " AND "))

	return r.scanTask(r.pool.QueryRow(ctx, query, args...))
}

// Update overwrites a task's mutable fields within a database transaction.
func (r *TaskRepo) Update(ctx context.Context, tx pgx.Tx, t *domain.Task) error {
	query := `UPDATE tasks SET title = $1, status = $2, assignee_id = $3, due_date = $4,
		note = $5, updated_at = $6 WHERE id = $7 AND deleted_at IS NULL`

	tag, err := tx.Exec(ctx, query,
		t.Title, t.Status, t.AssigneeID, t.DueDate, t.Note, t.UpdatedAt, t.ID,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("task not found: %s", t.ID)
	}
	return nil
}

// SoftDelete marks a task deleted without removing the row.
func (r *TaskRepo) SoftDelete(ctx context.Context, tx pgx.Tx, id uuid.UUID, at time.Time) error {
	query := `UPDATE tasks SET deleted_at = $1, updated_at = $1 WHERE id = $2 AND deleted_at IS NULL`

	tag, err := tx.Exec(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("soft delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("task not found: %s", id)
	}
	return nil
}

// List fetches tasks with scope, filtering and pagination.
func (r *TaskRepo) List(ctx context.Context, params ports.TaskListParams) ([]domain.Task, int64, error) {
	conditions := []string{"deleted_at IS NULL"}
	var args []any
	conditions, args = appendScope(conditions, args, params.Scope)

	if params.Status != nil {
		args = append(args, *params.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	where := "WHERE " + strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM tasks %s", where)
	var total int64
	err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	dataQuery := fmt.Sprintf(`SELECT %s FROM tasks %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		taskColumns, where, len(args)+1, len(args)+2)
	args = append(args, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		t := domain.Task{}
		err := rows.Scan(
			&t.ID, &t.BusinessID, &t.Title, &t.Status, &t.AssigneeID, &t.DueDate, &t.Note,
			&t.CreatedBy, &t.CreatedAt, &t.UpdatedAt, &t.DeletedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan task row: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate task rows: %w", err)
	}
	return tasks, total, nil
}

// scanTask is a helper to scan a single row into a Task.
func (r *TaskRepo) scanTask(row pgx.Row) (*domain.Task, error) {
	t := &domain.Task{}
	err := row.Scan(
		&t.ID, &t.BusinessID, &t.Title, &t.Status, &t.AssigneeID, &t.DueDate, &t.Note,
		&t.CreatedBy, &t.CreatedAt, &t.UpdatedAt, &t.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan task: %w", err)
	}
	return t, nil
}
