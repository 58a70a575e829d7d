package mapfparser

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/mapfarena/verifier/internal/mapgrid"
)

// ParseMap decodes a MovingAI .map file: header lines (type/height/width,
// any order) terminated by a literal "map" line, followed by exactly
// height rows of exactly width characters each. '.', 'G' and 'S' are
// Passable; every other character is Blocked. Lines beyond height are
// ignored.
func ParseMap(r io.Reader) (*mapgrid.Grid, error) {
	scanner := bufio.NewScanner(r)
	// Map rows can be long; grow the scanner buffer past the default.
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 8*1024*1024)

	var (
		haveType           bool
		height, width      int
		haveHeight         bool
		haveWidth          bool
		sawMapLine         bool
	)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.EqualFold(line, "map") {
			sawMapLine = true
			break
		}
		switch {
		case strings.HasPrefix(line, "type "):
			haveType = true
		case strings.HasPrefix(line, "height "):
			v := strings.TrimSpace(strings.TrimPrefix(line, "height "))
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return nil, &InvalidHeaderError{Field: "height", Value: v}
			}
			height = n
			haveHeight = true
		case strings.HasPrefix(line, "width "):
			v := strings.TrimSpace(strings.TrimPrefix(line, "width "))
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return nil, &InvalidHeaderError{Field: "width", Value: v}
			}
			width = n
			haveWidth = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if !haveType {
		return nil, &MissingHeaderError{Field: "type"}
	}
	if !haveHeight {
		return nil, &MissingHeaderError{Field: "height"}
	}
	if !haveWidth {
		return nil, &MissingHeaderError{Field: "width"}
	}
	_ = sawMapLine // the "map" line is required implicitly: rows only follow it

	tiles := make([]mapgrid.Tile, 0, width*height)
	row := 0
	for scanner.Scan() {
		if row >= height {
			break // trailing lines ignored
		}
		line := scanner.Text()
		chars := []rune(line)
		if len(chars) != width {
			return nil, &RowWidthMismatchError{Row: row, Expected: width, Got: len(chars)}
		}
		for _, ch := range chars {
			tiles = append(tiles, charToTile(ch))
		}
		row++
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if row < height {
		return nil, &DimensionMismatchError{Expected: height, Got: row}
	}

	return mapgrid.New(width, height, tiles)
}

func charToTile(ch rune) mapgrid.Tile {
	switch ch {
	case '.', 'G', 'S':
		return mapgrid.Passable
	default:
		return mapgrid.Blocked
	}
}
