package storage

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUserInsertsAndReturnsID(t *testing.T) {
	store, mock := newMockStore(t)
	repo := NewSubmissionRepository(store)

	mock.ExpectExec("^INSERT").WillReturnResult(sqlmock.NewResult(1, 1))

	id, err := repo.CreateUser(context.Background(), "alice")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateSubmissionInsertsAndReturnsID(t *testing.T) {
	store, mock := newMockStore(t)
	repo := NewSubmissionRepository(store)

	mock.ExpectExec("^INSERT").WillReturnResult(sqlmock.NewResult(1, 1))

	id, err := repo.CreateSubmission(context.Background(), uuid.New(), "my-solver", "deadbeef", "empty-8-8", "scen-1", 4, 2048)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordResultAssignsIDAndTimestamp(t *testing.T) {
	store, mock := newMockStore(t)
	repo := NewSubmissionRepository(store)

	mock.ExpectExec("^INSERT").WillReturnResult(sqlmock.NewResult(1, 1))

	result := &VerificationResultModel{SubmissionID: uuid.New(), Valid: true, Cost: 10, Makespan: 5}
	err := repo.RecordResult(context.Background(), result)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, result.ID)
	assert.False(t, result.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaderboardClampsLimitAndFiltersByMap(t *testing.T) {
	store, mock := newMockStore(t)
	repo := NewSubmissionRepository(store)

	columns := []string{"submission_id", "username", "map_name", "scenario_name", "cost", "makespan", "instructions_used", "created_at"}
	rows := sqlmock.NewRows(columns).AddRow(uuid.New(), "alice", "empty-8-8", "scen-1", 10, 5, 42, time.Now())
	mock.ExpectQuery(`^SELECT .*sub\.map_name = 'empty-8-8'.* LIMIT 1000`).WillReturnRows(rows)

	result, err := repo.Leaderboard(context.Background(), "empty-8-8", "", 5000)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "alice", result[0].Username)
	require.NoError(t, mock.ExpectationsWereMet())
}
