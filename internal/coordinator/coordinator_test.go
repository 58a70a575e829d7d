package coordinator

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapfarena/verifier/internal/mapftype"
	"github.com/mapfarena/verifier/internal/mapgrid"
	"github.com/mapfarena/verifier/internal/sandbox"
	"github.com/mapfarena/verifier/internal/storage"
	"github.com/mapfarena/verifier/internal/validator"
)

type fakeExecutor struct {
	plan  mapftype.Plan
	stats sandbox.Stats
}

func (f *fakeExecutor) Execute(ctx context.Context, wasmBytes []byte, grid *mapgrid.Grid, starts, goals []mapftype.Coordinate) (mapftype.Plan, sandbox.Stats) {
	return f.plan, f.stats
}

type fakeStore struct {
	createdSubmission bool
	recordedResult    *storage.VerificationResultModel
}

func (s *fakeStore) CreateSubmission(ctx context.Context, userID uuid.UUID, solverName, wasmHash, mapName, scenarioName string, numAgents int, wasmSizeBytes int64) (uuid.UUID, error) {
	s.createdSubmission = true
	return uuid.New(), nil
}

func (s *fakeStore) RecordResult(ctx context.Context, result *storage.VerificationResultModel) error {
	s.recordedResult = result
	return nil
}

func openGrid(t *testing.T, w, h int) *mapgrid.Grid {
	t.Helper()
	tiles := make([]byte, w*h)
	for i := range tiles {
		tiles[i] = 1
	}
	grid, err := mapgrid.FromBytes(w, h, tiles)
	require.NoError(t, err)
	return grid
}

func TestVerifyReturnsValidOutcomeForGoodPlan(t *testing.T) {
	grid := openGrid(t, 2, 1)
	starts := []mapftype.Coordinate{{X: 0, Y: 0}}
	goals := []mapftype.Coordinate{{X: 1, Y: 0}}
	plan := mapftype.Plan{Paths: []mapftype.Path{{Steps: []mapftype.Coordinate{{X: 0, Y: 0}, {X: 1, Y: 0}}}}}

	exec := &fakeExecutor{plan: plan, stats: sandbox.Stats{Status: sandbox.StatusOK, DurationMillis: 5, InstructionsUsed: 100}}
	c := New(exec, validator.Validate, &fakeStore{}, 1<<20)

	outcome, err := c.Verify(context.Background(), VerifyRequest{
		ModuleBytes: []byte{0x00},
		Problem:     Problem{Grid: grid, Starts: starts, Goals: goals},
	})
	require.NoError(t, err)
	assert.True(t, outcome.Valid)
	require.NotNil(t, outcome.Cost)
	require.NotNil(t, outcome.Makespan)
	assert.Equal(t, 2, *outcome.Cost)
	assert.Equal(t, 2, *outcome.Makespan)
	assert.Nil(t, outcome.SubmissionID)
}

func TestVerifyReturnsInvalidOutcomeForRuleViolation(t *testing.T) {
	grid := openGrid(t, 2, 1)
	starts := []mapftype.Coordinate{{X: 0, Y: 0}}
	goals := []mapftype.Coordinate{{X: 1, Y: 0}}
	// Plan that never reaches the goal cell (stays put) -> InvalidGoal.
	plan := mapftype.Plan{Paths: []mapftype.Path{{Steps: []mapftype.Coordinate{{X: 0, Y: 0}}}}}

	exec := &fakeExecutor{plan: plan, stats: sandbox.Stats{Status: sandbox.StatusOK}}
	c := New(exec, validator.Validate, &fakeStore{}, 1<<20)

	outcome, err := c.Verify(context.Background(), VerifyRequest{
		ModuleBytes: []byte{0x00},
		Problem:     Problem{Grid: grid, Starts: starts, Goals: goals},
	})
	require.NoError(t, err)
	assert.False(t, outcome.Valid)
	assert.NotEmpty(t, outcome.Errors)
	assert.Nil(t, outcome.Cost)
}

func TestVerifyReportsGuestFailureAsOutcomeNotError(t *testing.T) {
	grid := openGrid(t, 2, 1)
	// Message mirrors what sandbox.classifyFailure actually sets on fuel
	// exhaustion, not an arbitrary fake string, so this exercises the
	// substring the coordinator's callers match on (spec scenario 6).
	exec := &fakeExecutor{stats: sandbox.Stats{Status: sandbox.StatusFuelExhausted, Message: "Solver exceeded instruction limit"}}
	c := New(exec, validator.Validate, &fakeStore{}, 1<<20)

	outcome, err := c.Verify(context.Background(), VerifyRequest{
		ModuleBytes: []byte{0x00},
		Problem:     Problem{Grid: grid, Starts: []mapftype.Coordinate{{X: 0, Y: 0}}, Goals: []mapftype.Coordinate{{X: 1, Y: 0}}},
	})
	require.NoError(t, err)
	assert.False(t, outcome.Valid)
	assert.Contains(t, outcome.Error, "instruction limit")
}

func TestVerifyRejectsOversizedModule(t *testing.T) {
	c := New(&fakeExecutor{}, validator.Validate, &fakeStore{}, 4)
	_, err := c.Verify(context.Background(), VerifyRequest{ModuleBytes: []byte{1, 2, 3, 4, 5}})
	require.Error(t, err)
}

func TestSubmitPersistsSubmissionAndResult(t *testing.T) {
	grid := openGrid(t, 2, 1)
	starts := []mapftype.Coordinate{{X: 0, Y: 0}}
	goals := []mapftype.Coordinate{{X: 1, Y: 0}}
	plan := mapftype.Plan{Paths: []mapftype.Path{{Steps: []mapftype.Coordinate{{X: 0, Y: 0}, {X: 1, Y: 0}}}}}

	exec := &fakeExecutor{plan: plan, stats: sandbox.Stats{Status: sandbox.StatusOK, DurationMillis: 3, InstructionsUsed: 42}}
	store := &fakeStore{}
	c := New(exec, validator.Validate, store, 1<<20)

	outcome, err := c.Submit(context.Background(), SubmitRequest{
		UserID:      uuid.New(),
		SolverName:  "my-solver",
		MapName:     "empty-8-8",
		ScenarioID:  "scen-1",
		ModuleBytes: []byte{0x00, 0x01},
		Problem:     Problem{Grid: grid, Starts: starts, Goals: goals},
	})
	require.NoError(t, err)
	assert.True(t, store.createdSubmission)
	require.NotNil(t, store.recordedResult)
	assert.True(t, store.recordedResult.Valid)
	assert.Equal(t, 2, store.recordedResult.Cost)
	require.NotNil(t, outcome.SubmissionID)
	require.NotNil(t, outcome.VerificationID)
}

func TestSubmitRejectsOversizedModuleBeforePersisting(t *testing.T) {
	store := &fakeStore{}
	c := New(&fakeExecutor{}, validator.Validate, store, 4)
	_, err := c.Submit(context.Background(), SubmitRequest{ModuleBytes: []byte{1, 2, 3, 4, 5}})
	require.Error(t, err)
	assert.False(t, store.createdSubmission)
}
