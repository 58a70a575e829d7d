package solver

import (
	"context"
	"fmt"
	"sort"

	"github.com/mapfarena/verifier/internal/mapftype"
	"github.com/mapfarena/verifier/internal/mapgrid"
)

// StuckAgentError reports which agent SolvePrioritized could not move.
type StuckAgentError struct {
	AgentIndex int
	Position   mapftype.Coordinate
}

func (e *StuckAgentError) Error() string {
	return fmt.Sprintf("solver: agent %d stuck at (%d,%d)", e.AgentIndex, e.Position.X, e.Position.Y)
}

func (e *StuckAgentError) Unwrap() error { return ErrStuck }

type action struct {
	target   mapftype.Coordinate
	isWait   bool
	priority int
}

// prioritizedMaxTimestepFactor bounds the loop: (width+height)*factor
// timesteps is generous headroom for any solvable instance and keeps a
// genuinely unsolvable one from spinning forever.
const prioritizedMaxTimestepFactor = 20

// SolvePrioritized plans greedily, one timestep at a time, committing
// each agent's move in index order and rejecting any move that
// conflicts with an already-committed agent at that step. It is fast
// and usually finds a plan, but is not complete: it can report an agent
// stuck even when a solution exists, because it never backtracks a
// commitment once made.
func SolvePrioritized(ctx context.Context, grid *mapgrid.Grid, starts, goals []mapftype.Coordinate) (mapftype.Plan, error) {
	n := len(starts)
	if n == 0 || len(goals) != n {
		return mapftype.Plan{}, fmt.Errorf("solver: starts and goals must be non-empty and equal length")
	}

	positions := append([]mapftype.Coordinate(nil), starts...)
	paths := make([][]mapftype.Coordinate, n)
	for i, p := range positions {
		paths[i] = []mapftype.Coordinate{p}
	}

	maxTimesteps := (grid.Width + grid.Height) * prioritizedMaxTimestepFactor
	if maxTimesteps < 1 {
		maxTimesteps = 1
	}

	for t := 0; t < maxTimesteps; t++ {
		if err := ctx.Err(); err != nil {
			return mapftype.Plan{}, err
		}
		if allAtGoal(positions, goals) {
			break
		}

		committed := make([]*action, n)
		for i := 0; i < n; i++ {
			candidates := prioritizedActions(positions[i], goals[i], grid)
			chosen := false
			for _, cand := range candidates {
				conflict := false
				for j := 0; j < i; j++ {
					if committed[j] != nil && actionsConflict(positions[j], *committed[j], positions[i], cand) {
						conflict = true
						break
					}
				}
				if conflict {
					continue
				}
				c := cand
				committed[i] = &c
				chosen = true
				break
			}
			if !chosen {
				return mapftype.Plan{}, &StuckAgentError{AgentIndex: i, Position: positions[i]}
			}
		}

		for i := 0; i < n; i++ {
			positions[i] = committed[i].target
			paths[i] = append(paths[i], positions[i])
		}
	}

	if !allAtGoal(positions, goals) {
		return mapftype.Plan{}, ErrNoSolution
	}

	result := make([]mapftype.Path, n)
	for i, steps := range paths {
		result[i] = mapftype.Path{Steps: steps}
	}
	return mapftype.Plan{Paths: result}, nil
}

// prioritizedActions lists an agent's moves (plus waiting) ordered by
// how much closer each leaves it to its goal, waiting always ranked
// just behind an equally-distant move.
func prioritizedActions(pos, goal mapftype.Coordinate, grid *mapgrid.Grid) []action {
	actions := make([]action, 0, 5)
	for _, d := range cardinals {
		nx, ny := pos.X+d.X, pos.Y+d.Y
		if grid.IsPassable(nx, ny) {
			target := mapftype.Coordinate{X: nx, Y: ny}
			actions = append(actions, action{target: target, priority: manhattan(target, goal)})
		}
	}
	actions = append(actions, action{target: pos, isWait: true, priority: manhattan(pos, goal)})

	sort.SliceStable(actions, func(i, j int) bool { return actions[i].priority < actions[j].priority })
	return actions
}

// actionsConflict reports a vertex conflict (same target cell) or an
// edge conflict (the two agents swap cells) between two agents' chosen
// actions for the same timestep.
func actionsConflict(fromA mapftype.Coordinate, a action, fromB mapftype.Coordinate, b action) bool {
	if a.target == b.target {
		return true
	}
	if !a.isWait && !b.isWait && fromA == b.target && fromB == a.target {
		return true
	}
	return false
}
