package postgres

import (
	"context"
	"testing"
	"time"

	"backoffice-ops/internal/core/domain"
	"backoffice-ops/internal/core/ports"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTask() *domain.Task {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Task{
		ID:         uuid.New(),
		BusinessID: uuid.New(),
		Title:      "verify supplier bank details",
		Status:     domain.TaskStatusOpen,
		CreatedBy:  uuid.New(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func taskColumnNames() []string {
	return []string{"id", "business_id", "title", "status", "assignee_id", "due_date", "note",
		"created_by", "created_at", "updated_at", "deleted_at"}
}

func taskRow(tk *domain.Task) *pgxmock.Rows {
	return pgxmock.NewRows(taskColumnNames()).AddRow(
		tk.ID, tk.BusinessID, tk.Title, tk.Status, tk.AssigneeID, tk.DueDate, tk.Note,
		tk.CreatedBy, tk.CreatedAt, tk.UpdatedAt, tk.DeletedAt,
	)
}

func TestTaskRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTaskRepo(mock)
	tk := newTestTask()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO tasks").
		WithArgs(tk.ID, tk.BusinessID, tk.Title, tk.Status, tk.AssigneeID, tk.DueDate, tk.Note,
			tk.CreatedBy, tk.CreatedAt, tk.UpdatedAt, tk.DeletedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), tx, tk)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepo_GetByID_RestrictedScopeAddsPredicate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTaskRepo(mock)
	tk := newTestTask()
	scope := domain.RestrictedScope(tk.BusinessID)

	mock.ExpectQuery("SELECT .+ FROM tasks WHERE id = .+ AND business_id = ANY").
		WithArgs(tk.ID, scope.IDs()).
		WillReturnRows(taskRow(tk))

	got, err := repo.GetByID(context.Background(), tk.ID, scope)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, tk.Title, got.Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepo_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTaskRepo(mock)
	id := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM tasks WHERE id =").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(taskColumnNames()))

	got, err := repo.GetByID(context.Background(), id, domain.UnrestrictedScope())
	assert.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepo_Update_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTaskRepo(mock)
	tk := newTestTask()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE tasks SET").
		WithArgs(tk.Title, tk.Status, tk.AssigneeID, tk.DueDate, tk.Note, tk.UpdatedAt, tk.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Update(context.Background(), tx, tk)
	assert.ErrorContains(t, err, "task not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepo_List_StatusFilter(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTaskRepo(mock)
	tk := newTestTask()
	status := domain.TaskStatusOpen

	mock.ExpectQuery("SELECT COUNT").
		WithArgs(status).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectQuery("SELECT .+ FROM tasks WHERE deleted_at IS NULL AND status = .+ ORDER BY created_at DESC").
		WithArgs(status, 20, 0).
		WillReturnRows(taskRow(tk))

	tasks, total, err := repo.List(context.Background(), ports.TaskListParams{
		Scope:    domain.UnrestrictedScope(),
		Status:   &status,
		Page:     1,
		PageSize: 20,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, tasks, 1)
	assert.Equal(t, tk.ID, tasks[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
