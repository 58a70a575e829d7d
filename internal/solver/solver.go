// Package solver implements reference MAPF solvers used to produce
// known-good plans and to back the WebAssembly ABI's own "trusted"
// baseline. SolveJointState is a complete centralized A* search over the
// joint state space; SolvePrioritized is a fast, incomplete fallback
// that can report an agent as stuck rather than search exhaustively.
package solver

import (
	"container/heap"
	"context"
	"errors"
	"strconv"

	"github.com/mapfarena/verifier/internal/mapftype"
	"github.com/mapfarena/verifier/internal/mapgrid"
)

// ErrNoSolution is returned when the joint state space is exhausted
// without every agent reaching its goal, and by SolvePrioritized when its
// timestep budget runs out before every agent is at its goal.
var ErrNoSolution = errors.New("solver: no solution exists for this problem")

// ErrStuck is returned by SolvePrioritized when some agent has no legal
// action left that avoids already-committed agents at that timestep.
var ErrStuck = errors.New("solver: an agent got stuck with no legal move")

// ErrExpansionLimit is returned when SolveJointState exceeds the
// configured expansion budget without finding a solution. It does not
// mean no solution exists, only that the search gave up.
var ErrExpansionLimit = errors.New("solver: expansion limit reached before a solution was found")

// Options bounds the centralized search.
type Options struct {
	// MaxExpansions caps the number of states popped from the open set.
	// Zero means DefaultMaxExpansions.
	MaxExpansions int
}

// DefaultMaxExpansions is a generous but finite cap: the joint state
// space grows as (branching factor)^agents, so an unbounded search over
// a pathological problem never terminates in practice.
const DefaultMaxExpansions = 2_000_000

var cardinals = [4]mapftype.Coordinate{
	{X: 0, Y: -1},
	{X: 0, Y: 1},
	{X: -1, Y: 0},
	{X: 1, Y: 0},
}

func manhattan(a, b mapftype.Coordinate) int {
	return absInt(a.X-b.X) + absInt(a.Y-b.Y)
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// searchNode is one expanded joint state. It stores only the current
// positions and a parent pointer, never the accumulated per-agent
// paths: cloning every agent's path vector into every expanded node (as
// a naive port of the reference implementation does) turns each
// expansion into an O(agents * timestep) copy. Reconstructing the plan
// once, by walking parent pointers after the goal is found, is O(agents
// * makespan) exactly once.
type searchNode struct {
	positions []mapftype.Coordinate
	parent    *searchNode
	g         int
	h         int
	timestep  int
	index     int // heap bookkeeping
}

func (n *searchNode) f() int { return n.g + n.h }

type openQueue []*searchNode

func (q openQueue) Len() int { return len(q) }
func (q openQueue) Less(i, j int) bool {
	if q[i].f() != q[j].f() {
		return q[i].f() < q[j].f()
	}
	// Tie-break toward the deeper node: it has made more committed
	// progress and is less likely to need re-expansion.
	return q[i].g > q[j].g
}
func (q openQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}
func (q *openQueue) Push(x any) {
	n := x.(*searchNode)
	n.index = len(*q)
	*q = append(*q, n)
}
func (q *openQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}

func encodeKey(positions []mapftype.Coordinate, timestep int) string {
	// A compact textual key is plenty fast for map hashing and avoids
	// reaching for a third-party struct-key workaround.
	buf := make([]byte, 0, len(positions)*10+8)
	buf = strconv.AppendInt(buf, int64(timestep), 10)
	buf = append(buf, ';')
	for _, p := range positions {
		buf = strconv.AppendInt(buf, int64(p.X), 10)
		buf = append(buf, ',')
		buf = strconv.AppendInt(buf, int64(p.Y), 10)
		buf = append(buf, ';')
	}
	return string(buf)
}

func allAtGoal(positions, goals []mapftype.Coordinate) bool {
	for i, p := range positions {
		if p != goals[i] {
			return false
		}
	}
	return true
}

func sumHeuristic(positions, goals []mapftype.Coordinate) int {
	h := 0
	for i, p := range positions {
		h += manhattan(p, goals[i])
	}
	return h
}

// SolveJointState runs a complete A* search over the product state space
// of all agents simultaneously, so any solution it finds is guaranteed
// collision-free. It checks ctx for cancellation on every popped state.
func SolveJointState(ctx context.Context, grid *mapgrid.Grid, starts, goals []mapftype.Coordinate, opts Options) (mapftype.Plan, error) {
	n := len(starts)
	if n == 0 || len(goals) != n {
		return mapftype.Plan{}, errors.New("solver: starts and goals must be non-empty and equal length")
	}
	maxExpansions := opts.MaxExpansions
	if maxExpansions <= 0 {
		maxExpansions = DefaultMaxExpansions
	}

	start := &searchNode{
		positions: append([]mapftype.Coordinate(nil), starts...),
		g:         0,
		h:         sumHeuristic(starts, goals),
		timestep:  0,
	}

	open := &openQueue{start}
	heap.Init(open)

	closed := make(map[string]struct{})
	closed[encodeKey(start.positions, 0)] = struct{}{}

	expansions := 0
	movesPerAgent := make([][]mapftype.Coordinate, n)

	for open.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return mapftype.Plan{}, err
		}
		expansions++
		if expansions > maxExpansions {
			return mapftype.Plan{}, ErrExpansionLimit
		}

		current := heap.Pop(open).(*searchNode)

		if allAtGoal(current.positions, goals) {
			return reconstructPlan(current, n), nil
		}

		for i := 0; i < n; i++ {
			moves := movesPerAgent[i][:0]
			pos := current.positions[i]
			for _, d := range cardinals {
				nx, ny := pos.X+d.X, pos.Y+d.Y
				if grid.IsPassable(nx, ny) {
					moves = append(moves, mapftype.Coordinate{X: nx, Y: ny})
				}
			}
			moves = append(moves, pos) // wait
			movesPerAgent[i] = moves
		}

		next := make([]mapftype.Coordinate, n)
		expandJointMoves(movesPerAgent, next, 0, current, goals, open, closed)
	}

	return mapftype.Plan{}, ErrNoSolution
}

// expandJointMoves enumerates the cartesian product of every agent's
// candidate moves, discards joint moves with a vertex or edge conflict,
// and pushes the rest onto open.
func expandJointMoves(
	movesPerAgent [][]mapftype.Coordinate,
	next []mapftype.Coordinate,
	idx int,
	current *searchNode,
	goals []mapftype.Coordinate,
	open *openQueue,
	closed map[string]struct{},
) {
	if idx == len(movesPerAgent) {
		if hasVertexConflict(next) || hasEdgeConflict(current.positions, next) {
			return
		}
		key := encodeKey(next, current.timestep+1)
		if _, seen := closed[key]; seen {
			return
		}
		closed[key] = struct{}{}

		child := &searchNode{
			positions: append([]mapftype.Coordinate(nil), next...),
			parent:    current,
			g:         current.g + 1,
			h:         sumHeuristic(next, goals),
			timestep:  current.timestep + 1,
		}
		heap.Push(open, child)
		return
	}
	for _, m := range movesPerAgent[idx] {
		next[idx] = m
		expandJointMoves(movesPerAgent, next, idx+1, current, goals, open, closed)
	}
}

func hasVertexConflict(positions []mapftype.Coordinate) bool {
	seen := make(map[mapftype.Coordinate]struct{}, len(positions))
	for _, p := range positions {
		if _, ok := seen[p]; ok {
			return true
		}
		seen[p] = struct{}{}
	}
	return false
}

func hasEdgeConflict(from, to []mapftype.Coordinate) bool {
	for i := 0; i < len(from); i++ {
		for j := i + 1; j < len(from); j++ {
			if from[i] == to[j] && from[j] == to[i] {
				return true
			}
		}
	}
	return false
}

// reconstructPlan walks parent pointers from the goal node back to the
// start, building each agent's path in a single reversal pass.
func reconstructPlan(goal *searchNode, numAgents int) mapftype.Plan {
	var chain []*searchNode
	for node := goal; node != nil; node = node.parent {
		chain = append(chain, node)
	}
	// chain is goal..start; walk it backwards to emit start..goal.
	paths := make([]mapftype.Path, numAgents)
	for i := range paths {
		paths[i].Steps = make([]mapftype.Coordinate, len(chain))
	}
	for depth, node := range chain {
		t := len(chain) - 1 - depth
		for agent, pos := range node.positions {
			paths[agent].Steps[t] = pos
		}
	}
	return mapftype.Plan{Paths: paths}
}
