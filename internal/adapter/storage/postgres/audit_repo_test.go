package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"backoffice-ops/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func auditColumnNames() []string {
	return []string{"id", "entity_type", "entity_id", "action", "actor_id", "before", "after", "seq", "created_at"}
}

func TestAuditRepo_Create_AssignsSeqInTransaction(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAuditRepo(mock)
	entry := &domain.AuditEntry{
		ID:         uuid.New(),
		EntityType: "payments",
		EntityID:   uuid.New(),
		Action:     domain.AuditActionUpdate,
		ActorID:    uuid.New(),
		Before:     json.RawMessage(`{"status":"PENDING"}`),
		After:      json.RawMessage(`{"status":"APPROVED"}`),
		CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO audit_log").
		WithArgs(entry.ID, entry.EntityType, entry.EntityID, entry.Action,
			entry.ActorID, entry.Before, entry.After, entry.CreatedAt).
		WillReturnRows(pgxmock.NewRows([]string{"seq"}).AddRow(int64(4)))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), tx, entry)
	require.NoError(t, err)
	assert.Equal(t, int64(4), entry.Seq)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepo_ListByEntity_OrderedBySeq(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAuditRepo(mock)
	entityID := uuid.New()
	actorID := uuid.New()
	now := time.Now().UTC().Truncate(time.Microsecond)

	rows := pgxmock.NewRows(auditColumnNames()).
		AddRow(uuid.New(), "payments", entityID, domain.AuditActionCreate, actorID,
			json.RawMessage(nil), json.RawMessage(`{"status":"DRAFT"}`), int64(1), now).
		AddRow(uuid.New(), "payments", entityID, domain.AuditActionUpdate, actorID,
			json.RawMessage(`{"status":"DRAFT"}`), json.RawMessage(`{"status":"PENDING"}`), int64(2), now)

	mock.ExpectQuery("SELECT .+ FROM audit_log WHERE entity_type .+ ORDER BY seq ASC").
		WithArgs("payments", entityID).
		WillReturnRows(rows)

	entries, err := repo.ListByEntity(context.Background(), "payments", entityID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.AuditActionCreate, entries[0].Action)
	assert.Equal(t, int64(2), entries[1].Seq)
	assert.NoError(t, mock.ExpectationsWereMet())
}
