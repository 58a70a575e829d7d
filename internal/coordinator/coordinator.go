// Package coordinator orchestrates one request's full lifecycle:
// execute the untrusted guest module, validate whatever plan (if any)
// it produced, score it, and persist the outcome. It is the only
// component that talks to the Executor, the Validator and the store in
// the same call — everything else in this service depends on exactly
// one of those three.
package coordinator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/mapfarena/verifier/internal/apperr"
	"github.com/mapfarena/verifier/internal/mapftype"
	"github.com/mapfarena/verifier/internal/mapgrid"
	"github.com/mapfarena/verifier/internal/sandbox"
	"github.com/mapfarena/verifier/internal/storage"
	"github.com/mapfarena/verifier/internal/validator"
)

// Executor is the narrow slice of *sandbox.Executor the coordinator
// needs, so tests can supply a fake without spinning up wazero.
type Executor interface {
	Execute(ctx context.Context, wasmBytes []byte, grid *mapgrid.Grid, starts, goals []mapftype.Coordinate) (mapftype.Plan, sandbox.Stats)
}

// ValidatorFunc matches validator.Validate's signature, letting tests
// substitute a stub validator.
type ValidatorFunc func(plan mapftype.Plan, grid *mapgrid.Grid, starts, goals []mapftype.Coordinate) validator.Result

// Store is the persistence surface a submission needs. Satisfied by
// *storage.SubmissionRepository.
type Store interface {
	CreateSubmission(ctx context.Context, userID uuid.UUID, solverName, wasmHash, mapName, scenarioName string, numAgents int, wasmSizeBytes int64) (uuid.UUID, error)
	RecordResult(ctx context.Context, result *storage.VerificationResultModel) error
}

// ExecutionStats is the public-facing shape of §3's ExecutionStats,
// always present regardless of outcome.
type ExecutionStats struct {
	InstructionsConsumed int64 `json:"instructions_consumed"`
	WallTimeMillis       int64 `json:"wall_time_ms"`
}

// Outcome is §3's VerificationOutcome.
type Outcome struct {
	Valid          bool                        `json:"valid"`
	Errors         []validator.ValidationError `json:"errors,omitempty"`
	Cost           *int                        `json:"cost,omitempty"`
	Makespan       *int                        `json:"makespan,omitempty"`
	Stats          ExecutionStats              `json:"stats"`
	Error          string                      `json:"error,omitempty"`
	SubmissionID   *uuid.UUID                  `json:"submission_id,omitempty"`
	VerificationID *uuid.UUID                  `json:"verification_id,omitempty"`
}

// Problem bundles the grid and problem instance a request carries.
type Problem struct {
	Grid   *mapgrid.Grid
	Starts []mapftype.Coordinate
	Goals  []mapftype.Coordinate
}

// SubmitRequest is §4.6's SubmitRequest.
type SubmitRequest struct {
	UserID      uuid.UUID
	SolverName  string
	MapName     string
	ScenarioID  string
	ModuleBytes []byte
	Problem     Problem
}

// VerifyRequest is SubmitRequest minus the persistence fields.
type VerifyRequest struct {
	ModuleBytes []byte
	Problem     Problem
}

// Coordinator implements §4.6: execute, validate, score, record.
type Coordinator struct {
	executor       Executor
	validate       ValidatorFunc
	store          Store
	maxModuleBytes int64
}

func New(executor Executor, validate ValidatorFunc, store Store, maxModuleBytes int64) *Coordinator {
	return &Coordinator{executor: executor, validate: validate, store: store, maxModuleBytes: maxModuleBytes}
}

// Verify runs the executor and validator but persists nothing — §4.6's
// "identical except steps 2-3 are skipped."
func (c *Coordinator) Verify(ctx context.Context, req VerifyRequest) (*Outcome, error) {
	if c.maxModuleBytes > 0 && int64(len(req.ModuleBytes)) > c.maxModuleBytes {
		return nil, apperr.BadRequest("module size %d bytes exceeds the %d byte limit", len(req.ModuleBytes), c.maxModuleBytes)
	}
	return c.evaluate(ctx, req.ModuleBytes, req.Problem), nil
}

// Submit runs the same execute/validate pipeline as Verify, then
// persists a submission and verification record regardless of outcome.
func (c *Coordinator) Submit(ctx context.Context, req SubmitRequest) (*Outcome, error) {
	if c.maxModuleBytes > 0 && int64(len(req.ModuleBytes)) > c.maxModuleBytes {
		return nil, apperr.BadRequest("module size %d bytes exceeds the %d byte limit", len(req.ModuleBytes), c.maxModuleBytes)
	}

	fingerprint := sha256.Sum256(req.ModuleBytes)
	wasmHash := hex.EncodeToString(fingerprint[:])

	submissionID, err := c.store.CreateSubmission(ctx, req.UserID, req.SolverName, wasmHash, req.MapName, req.ScenarioID, len(req.Problem.Starts), int64(len(req.ModuleBytes)))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindDatabase, "persist submission", err)
	}

	outcome := c.evaluate(ctx, req.ModuleBytes, req.Problem)
	outcome.SubmissionID = &submissionID

	result := &storage.VerificationResultModel{
		SubmissionID:     submissionID,
		Valid:            outcome.Valid,
		InstructionsUsed: outcome.Stats.InstructionsConsumed,
		DurationMillis:   outcome.Stats.WallTimeMillis,
	}
	if outcome.Valid {
		result.Cost = *outcome.Cost
		result.Makespan = *outcome.Makespan
	} else {
		result.ErrorSummary = summarizeFailure(outcome)
	}

	if err := c.store.RecordResult(ctx, result); err != nil {
		return nil, apperr.Wrap(apperr.KindDatabase, "persist verification result", err)
	}
	outcome.VerificationID = &result.ID

	return outcome, nil
}

// evaluate is the shared execute -> validate -> score pipeline used by
// both Verify and Submit; it never returns a Go error, since a guest
// trap or a rule violation is a valid negative result, not a request
// failure (§7).
func (c *Coordinator) evaluate(ctx context.Context, moduleBytes []byte, problem Problem) *Outcome {
	plan, stats := c.executor.Execute(ctx, moduleBytes, problem.Grid, problem.Starts, problem.Goals)
	execStats := ExecutionStats{InstructionsConsumed: stats.InstructionsUsed, WallTimeMillis: stats.DurationMillis}

	if stats.Status != sandbox.StatusOK {
		return &Outcome{Valid: false, Stats: execStats, Error: failureMessage(stats)}
	}

	result := c.validate(plan, problem.Grid, problem.Starts, problem.Goals)
	if !result.Valid {
		return &Outcome{Valid: false, Errors: result.Errors, Stats: execStats}
	}

	cost := plan.Cost()
	makespan := plan.Makespan()
	return &Outcome{Valid: true, Cost: &cost, Makespan: &makespan, Stats: execStats}
}

func failureMessage(stats sandbox.Stats) string {
	if stats.Message == "" {
		return fmt.Sprintf("solver execution ended with status %s", stats.Status)
	}
	return fmt.Sprintf("%s: %s", stats.Status, stats.Message)
}

func summarizeFailure(outcome *Outcome) string {
	if outcome.Error != "" {
		return outcome.Error
	}
	details := make([]string, 0, len(outcome.Errors))
	for _, e := range outcome.Errors {
		details = append(details, e.Details)
	}
	return strings.Join(details, "; ")
}
