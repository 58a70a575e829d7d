package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SubmissionRepository persists submissions and their verification
// results, and serves the leaderboard query.
type SubmissionRepository struct {
	store *Store
}

func NewSubmissionRepository(store *Store) *SubmissionRepository {
	return &SubmissionRepository{store: store}
}

// CreateUser inserts a new user, generating its ID.
func (r *SubmissionRepository) CreateUser(ctx context.Context, username string) (uuid.UUID, error) {
	model := &UserModel{ID: uuid.New(), Username: username, CreatedAt: time.Now()}
	_, err := r.store.db.NewInsert().Model(model).Exec(ctx)
	return model.ID, err
}

// CreateSubmission records a new submission and returns its assigned ID.
// wasmHash is the hex-encoded SHA-256 fingerprint of the module bytes,
// used as the dedup key described in §4.6.
func (r *SubmissionRepository) CreateSubmission(ctx context.Context, userID uuid.UUID, solverName, wasmHash, mapName, scenarioName string, numAgents int, wasmSizeBytes int64) (uuid.UUID, error) {
	model := &SubmissionModel{
		ID:            uuid.New(),
		UserID:        userID,
		SolverName:    solverName,
		WasmHash:      wasmHash,
		MapName:       mapName,
		ScenarioName:  scenarioName,
		NumAgents:     numAgents,
		WasmSizeBytes: wasmSizeBytes,
		CreatedAt:     time.Now(),
	}
	_, err := r.store.db.NewInsert().Model(model).Exec(ctx)
	return model.ID, err
}

// RecordResult stores the outcome of verifying one submission.
func (r *SubmissionRepository) RecordResult(ctx context.Context, result *VerificationResultModel) error {
	result.ID = uuid.New()
	result.CreatedAt = time.Now()
	_, err := r.store.db.NewInsert().Model(result).Exec(ctx)
	return err
}

// Leaderboard clamps limit to [1,1000] per §6 and returns the
// cheapest-cost valid submissions first, breaking ties by instruction
// count, for the given map. An empty scenarioName matches every
// scenario on that map (the HTTP surface's query string only names
// map_name per §6; scenario_name narrows it further when present).
func (r *SubmissionRepository) Leaderboard(ctx context.Context, mapName, scenarioName string, limit int) ([]LeaderboardRow, error) {
	if limit < 1 {
		limit = 1
	}
	if limit > 1000 {
		limit = 1000
	}

	q := r.store.db.NewSelect().
		Model((*SubmissionModel)(nil)).
		ColumnExpr("sub.id AS submission_id").
		ColumnExpr("u.username AS username").
		ColumnExpr("sub.map_name AS map_name").
		ColumnExpr("sub.scenario_name AS scenario_name").
		ColumnExpr("vr.cost AS cost").
		ColumnExpr("vr.makespan AS makespan").
		ColumnExpr("vr.instructions_used AS instructions_used").
		ColumnExpr("vr.created_at AS created_at").
		Join("JOIN verification_results AS vr ON vr.submission_id = sub.id").
		Join("JOIN users AS u ON u.id = sub.user_id").
		Where("vr.valid = true").
		Where("sub.map_name = ?", mapName)

	if scenarioName != "" {
		q = q.Where("sub.scenario_name = ?", scenarioName)
	}

	var rows []LeaderboardRow
	err := q.Order("vr.cost ASC").
		Order("vr.instructions_used ASC").
		Limit(limit).
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
