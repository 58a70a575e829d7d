// Package mapftype holds the data types shared by every core component:
// the parser, the solver, the validator and the sandboxed executor all
// speak Coordinate/Path/Plan/Problem, never their own local copies.
package mapftype

// Coordinate addresses a single grid cell. Immutable.
type Coordinate struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Path is one agent's time-indexed sequence of cells, step 0 being its
// starting position.
type Path struct {
	Steps []Coordinate `json:"steps"`
}

// Len returns the number of steps (timesteps occupied) in the path.
func (p Path) Len() int {
	return len(p.Steps)
}

// At returns the agent's position at timestep t, applying parking
// semantics: once t runs past the end of the path, the agent is treated
// as remaining at its last cell forever. Calling At on an empty path
// panics; callers must check Len() > 0 first (an empty path is itself a
// validation error, never a valid input to this method).
func (p Path) At(t int) Coordinate {
	if t < len(p.Steps) {
		return p.Steps[t]
	}
	return p.Steps[len(p.Steps)-1]
}

// Plan is the solver's output: one Path per agent, in the same order as
// the Problem's Starts/Goals.
type Plan struct {
	Paths []Path `json:"paths"`
}

// Makespan returns the length of the longest path in the plan, 0 for an
// empty plan.
func (p Plan) Makespan() int {
	max := 0
	for _, path := range p.Paths {
		if l := path.Len(); l > max {
			max = l
		}
	}
	return max
}

// Cost returns the sum of path lengths over the plan.
func (p Plan) Cost() int {
	sum := 0
	for _, path := range p.Paths {
		sum += path.Len()
	}
	return sum
}

// Problem is a grid plus the ordered starts/goals for N agents, indexed
// by agent id 0..N-1. The Grid itself is not embedded here; components
// take it as a separate argument since the Grid is frequently shared
// across many Problems (e.g. many scenario entries on one map).
type Problem struct {
	Starts []Coordinate
	Goals  []Coordinate
}

// NumAgents returns len(Starts) (equivalently len(Goals) for a
// well-formed Problem).
func (p Problem) NumAgents() int {
	return len(p.Starts)
}
