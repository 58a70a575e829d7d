package storage

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"github.com/mapfarena/verifier/internal/auth"
)

// newMockStore wires a bun.DB backed by go-sqlmock, using regexp query
// matching since bun generates the exact SQL text at call time.
func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	bunDB := bun.NewDB(db, pgdialect.New())
	return &Store{db: bunDB}, mock
}

func TestAPIKeyRepositoryFindByPrefix(t *testing.T) {
	store, mock := newMockStore(t)
	repo := NewAPIKeyRepository(store)

	id := uuid.New()
	userID := uuid.New()
	now := time.Now()

	columns := []string{"id", "user_id", "prefix", "hash", "created_at", "last_used_at", "expires_at", "revoked"}
	rows := sqlmock.NewRows(columns).AddRow(id, userID, "mfv_abc123456", "argon2id$...", now, nil, nil, false)
	mock.ExpectQuery("^SELECT").WillReturnRows(rows)

	keys, err := repo.FindByPrefix(context.Background(), "mfv_abc123456")
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, id, keys[0].ID)
	assert.False(t, keys[0].Revoked)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAPIKeyRepositoryCreate(t *testing.T) {
	store, mock := newMockStore(t)
	repo := NewAPIKeyRepository(store)

	mock.ExpectExec("^INSERT").WillReturnResult(sqlmock.NewResult(1, 1))

	key := &auth.APIKey{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		Prefix:    "mfv_abc123456",
		Hash:      "argon2id$...",
		CreatedAt: time.Now(),
	}
	err := repo.Create(context.Background(), key)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
