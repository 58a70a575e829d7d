// Command scenctl runs the reference solver against a .map/.scen pair
// and prints one pass/fail line, without going through the HTTP API.
// Every scenario entry is one agent: all entries are solved together as
// a single multi-agent problem and the resulting plan is validated once.
// Useful for sanity-checking a new map/scenario file offline.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/mapfarena/verifier/internal/mapfparser"
	"github.com/mapfarena/verifier/internal/mapftype"
	"github.com/mapfarena/verifier/internal/mapgrid"
	"github.com/mapfarena/verifier/internal/solver"
	"github.com/mapfarena/verifier/internal/validator"
)

func main() {
	var (
		mapPath     = flag.String("map", "", "path to a .map file")
		scenPath    = flag.String("scen", "", "path to a .scen file")
		timeout     = flag.Duration("timeout", 30*time.Second, "per-scenario solve deadline")
		prioritized = flag.Bool("prioritized", false, "use the incomplete prioritized fallback instead of joint-state A*")
		stopOnFail  = flag.Bool("stop-on-fail", false, "exit with a non-zero status when the scenario fails to solve or validate")
	)
	flag.Parse()

	if *mapPath == "" || *scenPath == "" {
		fmt.Fprintln(os.Stderr, "usage: scenctl -map <file.map> -scen <file.scen>")
		os.Exit(2)
	}

	if err := run(*mapPath, *scenPath, *timeout, *prioritized, *stopOnFail); err != nil {
		fmt.Fprintln(os.Stderr, "scenctl:", err)
		os.Exit(1)
	}
}

func run(mapPath, scenPath string, timeout time.Duration, prioritized, stopOnFail bool) error {
	mapFile, err := os.Open(mapPath)
	if err != nil {
		return fmt.Errorf("open map: %w", err)
	}
	defer mapFile.Close()

	grid, err := mapfparser.ParseMap(mapFile)
	if err != nil {
		return fmt.Errorf("parse map: %w", err)
	}

	scenFile, err := os.Open(scenPath)
	if err != nil {
		return fmt.Errorf("open scenario: %w", err)
	}
	defer scenFile.Close()

	scenario, err := mapfparser.ParseScenario(scenFile)
	if err != nil {
		return fmt.Errorf("parse scenario: %w", err)
	}

	starts, goals := scenario.Agents()
	fmt.Printf("%s + %s: %d agents\n", mapPath, scenPath, len(starts))

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	plan, solveErr := solve(ctx, grid, starts, goals, prioritized)
	if solveErr != nil {
		fmt.Printf("FAIL solve: %v\n", solveErr)
		if stopOnFail {
			return solveErr
		}
		return nil
	}

	result := validator.Validate(plan, grid, starts, goals)
	if !result.Valid {
		fmt.Printf("FAIL validate: %d violation(s)\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Printf("  - agent %d: %s (%s)\n", e.AgentIndex, e.Kind, e.Details)
		}
		if stopOnFail {
			return fmt.Errorf("scenario failed validation")
		}
		return nil
	}

	fmt.Printf("PASS makespan=%d cost=%d\n", plan.Makespan(), plan.Cost())
	return nil
}

func solve(ctx context.Context, grid *mapgrid.Grid, starts, goals []mapftype.Coordinate, prioritized bool) (mapftype.Plan, error) {
	if prioritized {
		return solver.SolvePrioritized(ctx, grid, starts, goals)
	}
	return solver.SolveJointState(ctx, grid, starts, goals, solver.Options{})
}
