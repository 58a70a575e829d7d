package mapfparser

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mapfarena/verifier/internal/mapftype"
)

// ScenarioEntry is a single agent task line of a MovingAI .scen file.
type ScenarioEntry struct {
	Bucket        int
	MapName       string
	MapWidth      int
	MapHeight     int
	StartX        int
	StartY        int
	GoalX         int
	GoalY         int
	OptimalLength float64
}

// Scenario is a parsed MovingAI .scen file.
type Scenario struct {
	Version int
	Entries []ScenarioEntry
}

// Agents extracts parallel start/goal coordinate slices from the
// scenario's entries, in entry order, ready to feed a Problem.
func (s *Scenario) Agents() (starts, goals []mapftype.Coordinate) {
	starts = make([]mapftype.Coordinate, len(s.Entries))
	goals = make([]mapftype.Coordinate, len(s.Entries))
	for i, e := range s.Entries {
		starts[i] = mapftype.Coordinate{X: e.StartX, Y: e.StartY}
		goals[i] = mapftype.Coordinate{X: e.GoalX, Y: e.GoalY}
	}
	return starts, goals
}

// ParseScenario decodes a MovingAI .scen file: a leading non-empty
// "version N" line, then tab-separated rows of nine columns. Blank lines
// are ignored throughout.
func ParseScenario(r io.Reader) (*Scenario, error) {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 8*1024*1024)

	lineNo := 0
	version := -1
	for scanner.Scan() {
		lineNo++
		trimmed := strings.TrimSpace(scanner.Text())
		if trimmed == "" {
			continue
		}
		rest, ok := strings.CutPrefix(trimmed, "version ")
		if !ok {
			return nil, &MissingVersionError{}
		}
		v, err := strconv.Atoi(strings.TrimSpace(rest))
		if err != nil || v < 0 {
			return nil, &InvalidVersionError{Value: strings.TrimSpace(rest)}
		}
		version = v
		break
	}
	if version < 0 {
		if err := scanner.Err(); err != nil {
			return nil, err
		}
		return nil, &MissingVersionError{}
	}

	var entries []ScenarioEntry
	for scanner.Scan() {
		lineNo++
		trimmed := strings.TrimSpace(scanner.Text())
		if trimmed == "" {
			continue
		}
		parts := strings.Split(trimmed, "\t")
		if len(parts) != 9 {
			return nil, &MalformedEntryError{Line: lineNo, Reason: fmt.Sprintf("expected 9 columns, got %d", len(parts))}
		}

		parseInt := func(idx int, name string) (int, error) {
			n, err := strconv.Atoi(parts[idx])
			if err != nil {
				return 0, &MalformedEntryError{Line: lineNo, Reason: fmt.Sprintf("invalid %s: %s", name, parts[idx])}
			}
			return n, nil
		}
		parseFloat := func(idx int, name string) (float64, error) {
			f, err := strconv.ParseFloat(parts[idx], 64)
			if err != nil {
				return 0, &MalformedEntryError{Line: lineNo, Reason: fmt.Sprintf("invalid %s: %s", name, parts[idx])}
			}
			return f, nil
		}

		bucket, err := parseInt(0, "bucket")
		if err != nil {
			return nil, err
		}
		mapWidth, err := parseInt(2, "width")
		if err != nil {
			return nil, err
		}
		mapHeight, err := parseInt(3, "height")
		if err != nil {
			return nil, err
		}
		startX, err := parseInt(4, "start_x")
		if err != nil {
			return nil, err
		}
		startY, err := parseInt(5, "start_y")
		if err != nil {
			return nil, err
		}
		goalX, err := parseInt(6, "goal_x")
		if err != nil {
			return nil, err
		}
		goalY, err := parseInt(7, "goal_y")
		if err != nil {
			return nil, err
		}
		optimal, err := parseFloat(8, "optimal_length")
		if err != nil {
			return nil, err
		}

		entries = append(entries, ScenarioEntry{
			Bucket:        bucket,
			MapName:       parts[1],
			MapWidth:      mapWidth,
			MapHeight:     mapHeight,
			StartX:        startX,
			StartY:        startY,
			GoalX:         goalX,
			GoalY:         goalY,
			OptimalLength: optimal,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return &Scenario{Version: version, Entries: entries}, nil
}
