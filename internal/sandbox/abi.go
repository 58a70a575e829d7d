package sandbox

import (
	"encoding/binary"
	"fmt"

	"github.com/mapfarena/verifier/internal/mapftype"
	"github.com/mapfarena/verifier/internal/mapgrid"
)

// The guest ABI is a flat byte-buffer protocol, not the WebAssembly
// Component Model: wazero has no component support, so every value
// crosses the boundary as bytes in guest linear memory, addressed by a
// plain (pointer, length) pair.
//
// Input layout (all integers little-endian):
//
//	u32 width
//	u32 height
//	u32 tileCount       (== width*height)
//	byte tiles[tileCount]  (1 = passable, 0 = blocked)
//	u32 numAgents
//	repeated numAgents times: i32 startX, i32 startY, i32 goalX, i32 goalY
//
// Output layout:
//
//	byte status          (0 = ok, 1 = error)
//	ok:   u32 numAgents; repeated: u32 stepCount; repeated stepCount times: i32 x, i32 y
//	error: u32 messageLen; byte message[messageLen] (UTF-8)

// EncodeInput serializes a problem for the guest's solve() export.
func EncodeInput(grid *mapgrid.Grid, starts, goals []mapftype.Coordinate) []byte {
	tiles := grid.ToBytes()
	buf := make([]byte, 0, 12+len(tiles)+4+len(starts)*16)

	buf = appendU32(buf, uint32(grid.Width))
	buf = appendU32(buf, uint32(grid.Height))
	buf = appendU32(buf, uint32(len(tiles)))
	buf = append(buf, tiles...)
	buf = appendU32(buf, uint32(len(starts)))
	for i := range starts {
		buf = appendI32(buf, int32(starts[i].X))
		buf = appendI32(buf, int32(starts[i].Y))
		buf = appendI32(buf, int32(goals[i].X))
		buf = appendI32(buf, int32(goals[i].Y))
	}
	return buf
}

// DecodeOutput parses the guest's response: either a Plan or the guest's
// own error message (e.g. "no solution", "agent 2 has no valid move").
func DecodeOutput(data []byte) (mapftype.Plan, error) {
	if len(data) < 1 {
		return mapftype.Plan{}, fmt.Errorf("sandbox: empty solver output")
	}
	status := data[0]
	rest := data[1:]

	if status == 1 {
		if len(rest) < 4 {
			return mapftype.Plan{}, fmt.Errorf("sandbox: truncated error message")
		}
		msgLen := binary.LittleEndian.Uint32(rest)
		rest = rest[4:]
		if uint32(len(rest)) < msgLen {
			return mapftype.Plan{}, fmt.Errorf("sandbox: truncated error message body")
		}
		return mapftype.Plan{}, fmt.Errorf("sandbox: guest reported: %s", string(rest[:msgLen]))
	}
	if status != 0 {
		return mapftype.Plan{}, fmt.Errorf("sandbox: unrecognized status byte %d", status)
	}

	if len(rest) < 4 {
		return mapftype.Plan{}, fmt.Errorf("sandbox: truncated plan header")
	}
	numAgents := binary.LittleEndian.Uint32(rest)
	rest = rest[4:]

	// Each agent needs at least a 4-byte stepCount header, so numAgents
	// can never legitimately exceed len(rest)/4. Reject before
	// allocating: a malicious guest can otherwise claim billions of
	// agents and OOM the process with a single make() call.
	if uint64(numAgents) > uint64(len(rest))/4 {
		return mapftype.Plan{}, fmt.Errorf("sandbox: implausible agent count %d in solver output", numAgents)
	}

	paths := make([]mapftype.Path, numAgents)
	for i := uint32(0); i < numAgents; i++ {
		if len(rest) < 4 {
			return mapftype.Plan{}, fmt.Errorf("sandbox: truncated path header for agent %d", i)
		}
		stepCount := binary.LittleEndian.Uint32(rest)
		rest = rest[4:]

		// Same reasoning as numAgents above: each step is 8 bytes, so
		// stepCount can't exceed what remains in the buffer.
		if uint64(stepCount)*8 > uint64(len(rest)) {
			return mapftype.Plan{}, fmt.Errorf("sandbox: implausible step count %d for agent %d", stepCount, i)
		}

		steps := make([]mapftype.Coordinate, stepCount)
		for s := uint32(0); s < stepCount; s++ {
			if len(rest) < 8 {
				return mapftype.Plan{}, fmt.Errorf("sandbox: truncated step %d for agent %d", s, i)
			}
			x := int32(binary.LittleEndian.Uint32(rest))
			y := int32(binary.LittleEndian.Uint32(rest[4:]))
			steps[s] = mapftype.Coordinate{X: int(x), Y: int(y)}
			rest = rest[8:]
		}
		paths[i] = mapftype.Path{Steps: steps}
	}

	return mapftype.Plan{Paths: paths}, nil
}

// EncodePlan is the inverse of DecodeOutput's success branch, used by
// tests.
func EncodePlan(plan mapftype.Plan) []byte {
	buf := []byte{0}
	buf = appendU32(buf, uint32(len(plan.Paths)))
	for _, path := range plan.Paths {
		buf = appendU32(buf, uint32(len(path.Steps)))
		for _, step := range path.Steps {
			buf = appendI32(buf, int32(step.X))
			buf = appendI32(buf, int32(step.Y))
		}
	}
	return buf
}

// EncodeGuestError is the inverse of DecodeOutput's error branch.
func EncodeGuestError(message string) []byte {
	buf := []byte{1}
	buf = appendU32(buf, uint32(len(message)))
	buf = append(buf, message...)
	return buf
}

func appendU32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendI32(buf []byte, v int32) []byte {
	return appendU32(buf, uint32(v))
}
