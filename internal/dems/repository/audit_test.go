package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pspdems/dems-backend/internal/dems/repository"
	"github.com/pspdems/dems-backend/pkg/database"
	"github.com/pspdems/dems-backend/pkg/logger"
	"github.com/pspdems/dems-backend/pkg/testutil"
)

func newAuditRepo(t *testing.T, caps *database.SchemaCapabilities) (*repository.AuditRepository, *testutil.MockDB) {
	mockDB := testutil.NewMockDB(t)
	db := database.NewFromSqlx(mockDB.DB, logger.New("test", "test"))
	return repository.NewAuditRepository(db, caps), mockDB
}

func TestWriteLoginSkippedWithoutCapability(t *testing.T) {
	repo, mockDB := newAuditRepo(t, &database.SchemaCapabilities{Version: 1, HasLoginAudit: false})
	defer mockDB.Close()

	// No query expectation: the write must be a no-op.
	err := repo.Write(context.Background(), &repository.AuditLog{
		ActorKey: "skumar - S Kumar",
		Action:   repository.AuditLogin,
		Entity:   "user",
	})
	require.NoError(t, err)

	mockDB.ExpectationsWereMet(t)
}

func TestWriteLoginRecordedWithCapability(t *testing.T) {
	repo, mockDB := newAuditRepo(t, &database.SchemaCapabilities{Version: 2, HasLoginAudit: true})
	defer mockDB.Close()

	mockDB.ExpectQuery(`INSERT INTO audit_logs`).
		WillReturnRows(testutil.MockRows("id", "created_at").AddRow(1, time.Now()))

	entry := &repository.AuditLog{ActorKey: "skumar - S Kumar", Action: repository.AuditLogin, Entity: "user"}
	require.NoError(t, repo.Write(context.Background(), entry))
	assert.Equal(t, int64(1), entry.ID)

	mockDB.ExpectationsWereMet(t)
}

func TestWriteNonLoginAlwaysRecorded(t *testing.T) {
	repo, mockDB := newAuditRepo(t, &database.SchemaCapabilities{Version: 1, HasLoginAudit: false})
	defer mockDB.Close()

	mockDB.ExpectQuery(`INSERT INTO audit_logs`).
		WillReturnRows(testutil.MockRows("id", "created_at").AddRow(2, time.Now()))

	entry := &repository.AuditLog{ActorKey: "skumar - S Kumar", Action: repository.AuditIndentCreated, Entity: "indent", EntityID: 7}
	require.NoError(t, repo.Write(context.Background(), entry))

	mockDB.ExpectationsWereMet(t)
}

func TestListAttachesISTDisplayTimestamp(t *testing.T) {
	repo, mockDB := newAuditRepo(t, &database.SchemaCapabilities{Version: 2, HasLoginAudit: true})
	defer mockDB.Close()

	// 10:00 UTC is 15:30 IST.
	createdAt := time.Date(2026, time.September, 1, 10, 0, 0, 0, time.UTC)
	rows := testutil.MockRows("id", "actor_key", "action", "entity", "entity_id", "detail", "created_at").
		AddRow(1, "skumar - S Kumar", repository.AuditIndentCreated, "indent", 7, "", createdAt)

	mockDB.ExpectQuery(`SELECT id, actor_key, action, entity, entity_id, detail, created_at`).
		WithArgs(50).
		WillReturnRows(rows)

	entries, err := repo.List(context.Background(), 50)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "01-09-2026 15:30:00", entries[0].CreatedAtIST)
	assert.True(t, entries[0].CreatedAt.Equal(createdAt), "stored timestamp stays UTC")

	mockDB.ExpectationsWereMet(t)
}
