package solver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapfarena/verifier/internal/mapftype"
	"github.com/mapfarena/verifier/internal/mapgrid"
	"github.com/mapfarena/verifier/internal/validator"
)

func openGrid(t *testing.T, w, h int, blocked ...[2]int) *mapgrid.Grid {
	t.Helper()
	tiles := make([]mapgrid.Tile, w*h)
	for i := range tiles {
		tiles[i] = mapgrid.Passable
	}
	for _, b := range blocked {
		tiles[b[1]*w+b[0]] = mapgrid.Blocked
	}
	g, err := mapgrid.New(w, h, tiles)
	require.NoError(t, err)
	return g
}

func coord(x, y int) mapftype.Coordinate { return mapftype.Coordinate{X: x, Y: y} }

func TestSolveJointStateSingleAgent(t *testing.T) {
	grid := openGrid(t, 3, 1)
	starts := []mapftype.Coordinate{coord(0, 0)}
	goals := []mapftype.Coordinate{coord(2, 0)}

	plan, err := SolveJointState(context.Background(), grid, starts, goals, Options{})
	require.NoError(t, err)
	require.Len(t, plan.Paths, 1)
	assert.Equal(t, coord(0, 0), plan.Paths[0].Steps[0])
	assert.Equal(t, coord(2, 0), plan.Paths[0].Steps[len(plan.Paths[0].Steps)-1])

	res := validator.Validate(plan, grid, starts, goals)
	assert.True(t, res.Valid, "%+v", res.Errors)
}

func TestSolveJointStateTwoAgentsSwapCorridor(t *testing.T) {
	// A 3x2 open grid: agents swapping the two ends of the top row must
	// step into the second row or wait, never swap cells directly.
	grid := openGrid(t, 3, 2)
	starts := []mapftype.Coordinate{coord(0, 0), coord(2, 0)}
	goals := []mapftype.Coordinate{coord(2, 0), coord(0, 0)}

	plan, err := SolveJointState(context.Background(), grid, starts, goals, Options{})
	require.NoError(t, err)

	res := validator.Validate(plan, grid, starts, goals)
	assert.True(t, res.Valid, "%+v", res.Errors)
}

func TestSolveJointStateNoSolutionWhenGoalBlocked(t *testing.T) {
	grid := openGrid(t, 2, 1, [2]int{1, 0})
	starts := []mapftype.Coordinate{coord(0, 0)}
	goals := []mapftype.Coordinate{coord(1, 0)}

	_, err := SolveJointState(context.Background(), grid, starts, goals, Options{})
	require.Error(t, err)
}

func TestSolveJointStateRespectsContextCancellation(t *testing.T) {
	grid := openGrid(t, 6, 6)
	starts := []mapftype.Coordinate{coord(0, 0), coord(5, 5), coord(0, 5), coord(5, 0)}
	goals := []mapftype.Coordinate{coord(5, 5), coord(0, 0), coord(5, 0), coord(0, 5)}

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	_, err := SolveJointState(ctx, grid, starts, goals, Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestSolveJointStateExpansionLimit(t *testing.T) {
	grid := openGrid(t, 6, 6)
	starts := []mapftype.Coordinate{coord(0, 0), coord(5, 5), coord(0, 5), coord(5, 0)}
	goals := []mapftype.Coordinate{coord(5, 5), coord(0, 0), coord(5, 0), coord(0, 5)}

	_, err := SolveJointState(context.Background(), grid, starts, goals, Options{MaxExpansions: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExpansionLimit))
}

func TestSolvePrioritizedSingleAgent(t *testing.T) {
	grid := openGrid(t, 3, 1)
	starts := []mapftype.Coordinate{coord(0, 0)}
	goals := []mapftype.Coordinate{coord(2, 0)}

	plan, err := SolvePrioritized(context.Background(), grid, starts, goals)
	require.NoError(t, err)
	res := validator.Validate(plan, grid, starts, goals)
	assert.True(t, res.Valid, "%+v", res.Errors)
}

func TestSolvePrioritizedReportsStuckAgent(t *testing.T) {
	// Two agents head-on in a 1-wide corridor with no side cell: the
	// greedy, no-backtrack planner cannot resolve this even though a
	// joint-state search (with waiting) still could not either here,
	// since there is no room to step aside.
	grid := openGrid(t, 2, 1)
	starts := []mapftype.Coordinate{coord(0, 0), coord(1, 0)}
	goals := []mapftype.Coordinate{coord(1, 0), coord(0, 0)}

	_, err := SolvePrioritized(context.Background(), grid, starts, goals)
	require.Error(t, err)
	var stuck *StuckAgentError
	assert.ErrorAs(t, err, &stuck)
}

func TestEncodeKeyDistinguishesOrderAndTimestep(t *testing.T) {
	a := encodeKey([]mapftype.Coordinate{coord(1, 2), coord(3, 4)}, 5)
	b := encodeKey([]mapftype.Coordinate{coord(3, 4), coord(1, 2)}, 5)
	c := encodeKey([]mapftype.Coordinate{coord(1, 2), coord(3, 4)}, 6)
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
}
