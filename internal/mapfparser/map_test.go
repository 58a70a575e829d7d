package mapfparser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleMap = `type octile
height 3
width 3
map
.@.
...
.@.
`

func TestParseMapBasic(t *testing.T) {
	g, err := ParseMap(strings.NewReader(sampleMap))
	require.NoError(t, err)
	assert.Equal(t, 3, g.Width)
	assert.Equal(t, 3, g.Height)
	assert.True(t, g.IsPassable(0, 0))
	assert.False(t, g.IsPassable(1, 0))
	assert.True(t, g.IsPassable(1, 1))
}

func TestParseMapHeaderOrderDoesNotMatter(t *testing.T) {
	input := `width 2
type octile
height 1
map
..
`
	g, err := ParseMap(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 2, g.Width)
	assert.Equal(t, 1, g.Height)
}

func TestParseMapMissingHeader(t *testing.T) {
	input := `type octile
width 2
map
..
`
	_, err := ParseMap(strings.NewReader(input))
	require.Error(t, err)
	var missing *MissingHeaderError
	assert.ErrorAs(t, err, &missing)
	assert.Equal(t, "height", missing.Field)
}

func TestParseMapRowWidthMismatch(t *testing.T) {
	input := `type octile
height 2
width 3
map
..
...
`
	_, err := ParseMap(strings.NewReader(input))
	require.Error(t, err)
	var mismatch *RowWidthMismatchError
	assert.ErrorAs(t, err, &mismatch)
}

func TestParseMapDimensionMismatch(t *testing.T) {
	input := `type octile
height 3
width 2
map
..
..
`
	_, err := ParseMap(strings.NewReader(input))
	require.Error(t, err)
	var mismatch *DimensionMismatchError
	assert.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 3, mismatch.Expected)
	assert.Equal(t, 2, mismatch.Got)
}

func TestParseMapTrailingLinesIgnored(t *testing.T) {
	input := `type octile
height 1
width 2
map
..
extra garbage line that is not part of the grid
`
	g, err := ParseMap(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 1, g.Height)
}

func TestParseMapInvalidHeaderValue(t *testing.T) {
	input := `type octile
height abc
width 2
map
..
`
	_, err := ParseMap(strings.NewReader(input))
	require.Error(t, err)
	var invalid *InvalidHeaderError
	assert.ErrorAs(t, err, &invalid)
}
