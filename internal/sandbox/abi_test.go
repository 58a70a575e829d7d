package sandbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapfarena/verifier/internal/mapftype"
	"github.com/mapfarena/verifier/internal/mapgrid"
)

func TestEncodeInputThenDecodeOutputRoundTrip(t *testing.T) {
	grid, err := mapgrid.FromBytes(2, 2, []byte{1, 1, 1, 1})
	require.NoError(t, err)

	starts := []mapftype.Coordinate{{X: 0, Y: 0}}
	goals := []mapftype.Coordinate{{X: 1, Y: 1}}

	input := EncodeInput(grid, starts, goals)
	assert.NotEmpty(t, input)

	plan := mapftype.Plan{Paths: []mapftype.Path{{Steps: []mapftype.Coordinate{{X: 0, Y: 0}, {X: 1, Y: 1}}}}}
	output := EncodePlan(plan)

	decoded, err := DecodeOutput(output)
	require.NoError(t, err)
	assert.Equal(t, plan, decoded)
}

func TestDecodeOutputGuestError(t *testing.T) {
	output := EncodeGuestError("agent 0 stuck")
	_, err := DecodeOutput(output)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "agent 0 stuck")
}

func TestDecodeOutputRejectsTruncatedBuffer(t *testing.T) {
	_, err := DecodeOutput([]byte{0, 1, 0}) // ok status, but only 2 of the 4 agent-count bytes
	assert.Error(t, err)
}

func TestDecodeOutputRejectsEmptyBuffer(t *testing.T) {
	_, err := DecodeOutput(nil)
	assert.Error(t, err)
}

func TestDecodeOutputRejectsUnknownStatus(t *testing.T) {
	_, err := DecodeOutput([]byte{7})
	assert.Error(t, err)
}

func TestDecodeOutputRejectsImplausibleAgentCount(t *testing.T) {
	buf := []byte{0}
	buf = appendU32(buf, 0xFFFFFFFF) // claims ~4 billion agents with no backing data
	_, err := DecodeOutput(buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "implausible agent count")
}

func TestDecodeOutputRejectsImplausibleStepCount(t *testing.T) {
	buf := []byte{0}
	buf = appendU32(buf, 1)          // one agent
	buf = appendU32(buf, 0xFFFFFFFF) // claims ~4 billion steps with no backing data
	_, err := DecodeOutput(buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "implausible step count")
}

func TestEncodePlanEmptyPlan(t *testing.T) {
	output := EncodePlan(mapftype.Plan{})
	decoded, err := DecodeOutput(output)
	require.NoError(t, err)
	assert.Empty(t, decoded.Paths)
}
