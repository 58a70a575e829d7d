// Package validator rule-checks an arbitrary, untrusted Plan against a
// Problem and a Grid. It never trusts the plan it is given: every rule
// runs to completion and every violation is collected, so a solver that
// breaks several rules at once sees all of them in one response.
package validator

import (
	"fmt"

	"github.com/mapfarena/verifier/internal/mapftype"
	"github.com/mapfarena/verifier/internal/mapgrid"
)

// ErrorKind tags the rule a ValidationError reports.
type ErrorKind string

const (
	DiagonalMove    ErrorKind = "diagonal_move"
	OutOfBounds     ErrorKind = "out_of_bounds"
	BlockedCell     ErrorKind = "blocked_cell"
	InvalidStart    ErrorKind = "invalid_start"
	InvalidGoal     ErrorKind = "invalid_goal"
	VertexCollision ErrorKind = "vertex_collision"
	EdgeCollision   ErrorKind = "edge_collision"
	EmptyPath       ErrorKind = "empty_path"
)

// ValidationError is one rule violation. Timestep is nil when the
// violation isn't tied to a specific step (EmptyPath).
type ValidationError struct {
	Kind       ErrorKind `json:"type"`
	AgentIndex int       `json:"agent_index"`
	Timestep   *int      `json:"timestep,omitempty"`
	Details    string    `json:"details"`
}

func ts(t int) *int { return &t }

// Result is the outcome of Validate: Valid iff Errors is empty.
type Result struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors"`
}

// Validate runs every rule of §4.4 against plan and collects all
// violations. It is a pure function: identical inputs always produce an
// identical result.
func Validate(plan mapftype.Plan, grid *mapgrid.Grid, starts, goals []mapftype.Coordinate) Result {
	var errs []ValidationError

	for i, path := range plan.Paths {
		errs = append(errs, validateEmptyAndCardinal(path, i)...)
		errs = append(errs, validateOnMap(path, i, grid)...)
	}

	errs = append(errs, validateStartsAndGoals(plan.Paths, starts, goals)...)

	if len(plan.Paths) > 1 {
		errs = append(errs, validateVertexCollisions(plan.Paths)...)
		errs = append(errs, validateEdgeCollisions(plan.Paths)...)
	}

	return Result{Valid: len(errs) == 0, Errors: errs}
}

func validateEmptyAndCardinal(path mapftype.Path, agent int) []ValidationError {
	if len(path.Steps) == 0 {
		return []ValidationError{{
			Kind:       EmptyPath,
			AgentIndex: agent,
			Details:    fmt.Sprintf("agent %d has empty path", agent),
		}}
	}

	var errs []ValidationError
	for t := 0; t < len(path.Steps)-1; t++ {
		from, to := path.Steps[t], path.Steps[t+1]
		dx := abs(to.X - from.X)
		dy := abs(to.Y - from.Y)
		if !((dx == 1 && dy == 0) || (dx == 0 && dy == 1) || (dx == 0 && dy == 0)) {
			errs = append(errs, ValidationError{
				Kind:       DiagonalMove,
				AgentIndex: agent,
				Timestep:   ts(t),
				Details: fmt.Sprintf("agent %d made diagonal move from (%d,%d) to (%d,%d) at timestep %d",
					agent, from.X, from.Y, to.X, to.Y, t),
			})
		}
	}
	return errs
}

func validateOnMap(path mapftype.Path, agent int, grid *mapgrid.Grid) []ValidationError {
	var errs []ValidationError
	for t, pos := range path.Steps {
		if !grid.InBounds(pos.X, pos.Y) {
			errs = append(errs, ValidationError{
				Kind:       OutOfBounds,
				AgentIndex: agent,
				Timestep:   ts(t),
				Details:    fmt.Sprintf("agent %d at (%d,%d) is out of bounds at timestep %d", agent, pos.X, pos.Y, t),
			})
			continue
		}
		if !grid.IsPassable(pos.X, pos.Y) {
			errs = append(errs, ValidationError{
				Kind:       BlockedCell,
				AgentIndex: agent,
				Timestep:   ts(t),
				Details:    fmt.Sprintf("agent %d at (%d,%d) is on blocked cell at timestep %d", agent, pos.X, pos.Y, t),
			})
		}
	}
	return errs
}

func validateStartsAndGoals(paths []mapftype.Path, starts, goals []mapftype.Coordinate) []ValidationError {
	var errs []ValidationError
	for i, path := range paths {
		if len(path.Steps) == 0 {
			continue // already reported as EmptyPath
		}
		first := path.Steps[0]
		last := path.Steps[len(path.Steps)-1]

		if i < len(starts) && first != starts[i] {
			errs = append(errs, ValidationError{
				Kind:       InvalidStart,
				AgentIndex: i,
				Timestep:   ts(0),
				Details: fmt.Sprintf("agent %d path starts at (%d,%d) but should start at (%d,%d)",
					i, first.X, first.Y, starts[i].X, starts[i].Y),
			})
		}
		if i < len(goals) && last != goals[i] {
			errs = append(errs, ValidationError{
				Kind:       InvalidGoal,
				AgentIndex: i,
				Timestep:   ts(len(path.Steps) - 1),
				Details: fmt.Sprintf("agent %d path ends at (%d,%d) but should end at (%d,%d)",
					i, last.X, last.Y, goals[i].X, goals[i].Y),
			})
		}
	}
	return errs
}

// validateVertexCollisions applies parking semantics: position(i, t) is
// path i's step at t, or its last step once t runs past the path's end.
func validateVertexCollisions(paths []mapftype.Path) []ValidationError {
	maxT := maxLen(paths)
	var errs []ValidationError

	for t := 0; t < maxT; t++ {
		occupied := make(map[mapftype.Coordinate]int, len(paths))
		for agent, path := range paths {
			if len(path.Steps) == 0 {
				continue
			}
			pos := path.At(t)
			if other, ok := occupied[pos]; ok {
				errs = append(errs, ValidationError{
					Kind:       VertexCollision,
					AgentIndex: agent,
					Timestep:   ts(t),
					Details: fmt.Sprintf("agents %d and %d collide at (%d,%d) at timestep %d",
						other, agent, pos.X, pos.Y, t),
				})
			} else {
				occupied[pos] = agent
			}
		}
	}
	return errs
}

// validateEdgeCollisions reports every unordered pair (i<j) that swaps
// positions across a single timestep, again under parking semantics.
func validateEdgeCollisions(paths []mapftype.Path) []ValidationError {
	maxT := maxLen(paths)
	var errs []ValidationError

	for t := 0; t < maxT-1; t++ {
		for i := 0; i < len(paths); i++ {
			if len(paths[i].Steps) == 0 {
				continue
			}
			for j := i + 1; j < len(paths); j++ {
				if len(paths[j].Steps) == 0 {
					continue
				}
				iT, iT1 := paths[i].At(t), paths[i].At(t+1)
				jT, jT1 := paths[j].At(t), paths[j].At(t+1)
				if iT == jT1 && jT == iT1 {
					errs = append(errs, ValidationError{
						Kind:       EdgeCollision,
						AgentIndex: i,
						Timestep:   ts(t),
						Details: fmt.Sprintf("agents %d and %d swap positions between timesteps %d and %d",
							i, j, t, t+1),
					})
				}
			}
		}
	}
	return errs
}

func maxLen(paths []mapftype.Path) int {
	max := 0
	for _, p := range paths {
		if l := len(p.Steps); l > max {
			max = l
		}
	}
	return max
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
