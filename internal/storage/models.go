package storage

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserModel is an account that owns API keys and submissions.
type UserModel struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID        uuid.UUID `bun:"id,pk"`
	Username  string    `bun:"username,unique,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// APIKeyModel is a stored, hashed bearer credential. Hash never holds
// the plaintext key; Prefix is a short plaintext lookup tag only.
type APIKeyModel struct {
	bun.BaseModel `bun:"table:api_keys,alias:ak"`

	ID         uuid.UUID  `bun:"id,pk"`
	UserID     uuid.UUID  `bun:"user_id,notnull"`
	Prefix     string     `bun:"prefix,notnull"`
	Hash       string     `bun:"hash,notnull"`
	CreatedAt  time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	LastUsedAt *time.Time `bun:"last_used_at"`
	ExpiresAt  *time.Time `bun:"expires_at"`
	Revoked    bool       `bun:"revoked,notnull,default:false"`
}

// SubmissionModel records one guest-solver WASM module submitted
// against a named map/scenario problem.
type SubmissionModel struct {
	bun.BaseModel `bun:"table:solver_submissions,alias:sub"`

	ID            uuid.UUID `bun:"id,pk"`
	UserID        uuid.UUID `bun:"user_id,notnull"`
	SolverName    string    `bun:"solver_name,notnull"`
	WasmHash      string    `bun:"wasm_hash,notnull"`
	MapName       string    `bun:"map_name,notnull"`
	ScenarioName  string    `bun:"scenario_name,notnull"`
	NumAgents     int       `bun:"num_agents,notnull"`
	WasmSizeBytes int64     `bun:"wasm_size_bytes,notnull"`
	CreatedAt     time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// VerificationResultModel records the outcome of running one
// submission's solve() export through the sandbox and validator.
type VerificationResultModel struct {
	bun.BaseModel `bun:"table:verification_results,alias:vr"`

	ID               uuid.UUID `bun:"id,pk"`
	SubmissionID     uuid.UUID `bun:"submission_id,notnull"`
	Valid            bool      `bun:"valid,notnull"`
	Cost             int       `bun:"cost,notnull"`
	Makespan         int       `bun:"makespan,notnull"`
	InstructionsUsed int64     `bun:"instructions_used,notnull"`
	DurationMillis   int64     `bun:"duration_millis,notnull"`
	ErrorSummary     string    `bun:"error_summary"`
	CreatedAt        time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// LeaderboardRow is a denormalized join of a valid submission and its
// result, ready to serialize to the API.
type LeaderboardRow struct {
	SubmissionID uuid.UUID `bun:"submission_id" json:"submission_id"`
	Username     string    `bun:"username" json:"username"`
	MapName      string    `bun:"map_name" json:"map_name"`
	ScenarioName string    `bun:"scenario_name" json:"scenario_name"`
	Cost         int       `bun:"cost" json:"cost"`
	Makespan     int       `bun:"makespan" json:"makespan"`
	Instructions int64     `bun:"instructions_used" json:"instructions_used"`
	CreatedAt    time.Time `bun:"created_at" json:"created_at"`
}
