package httpapi

import "github.com/mapfarena/verifier/internal/mapftype"

// CoordinateDTO is the wire shape of a mapftype.Coordinate.
type CoordinateDTO struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (c CoordinateDTO) toCoordinate() mapftype.Coordinate {
	return mapftype.Coordinate{X: c.X, Y: c.Y}
}

func coordinates(dtos []CoordinateDTO) []mapftype.Coordinate {
	out := make([]mapftype.Coordinate, len(dtos))
	for i, d := range dtos {
		out[i] = d.toCoordinate()
	}
	return out
}

// MapDTO is the wire shape of a Grid: a flat row-major tile byte for
// each cell (1 = passable, 0 = blocked), matching §4.2 exactly.
type MapDTO struct {
	Width  int    `json:"width" validate:"required,gt=0"`
	Height int    `json:"height" validate:"required,gt=0"`
	Tiles  []byte `json:"tiles" validate:"required"`
}

// RegisterRequest creates an account and issues its first API key.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64,alphanum"`
}

// RegisterResponse carries the plaintext API key exactly once: the
// server never has another occasion to show it again.
type RegisterResponse struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	APIKey   string `json:"api_key"`
}

// VerifyRequest is §6's literal VerifyRequest shape.
type VerifyRequest struct {
	WasmBytes []byte          `json:"wasmBytes" validate:"required"`
	Map       MapDTO          `json:"map" validate:"required"`
	Starts    []CoordinateDTO `json:"starts" validate:"required,min=1,dive"`
	Goals     []CoordinateDTO `json:"goals" validate:"required,min=1,dive"`
}

// SubmitRequest adds the naming fields §6 calls out beyond VerifyRequest.
type SubmitRequest struct {
	WasmBytes  []byte          `json:"wasmBytes" validate:"required"`
	Map        MapDTO          `json:"map" validate:"required"`
	Starts     []CoordinateDTO `json:"starts" validate:"required,min=1,dive"`
	Goals      []CoordinateDTO `json:"goals" validate:"required,min=1,dive"`
	SolverName string          `json:"solver_name" validate:"required,min=1,max=128"`
	MapName    string          `json:"map_name" validate:"required,min=1,max=128"`
	ScenarioID string          `json:"scenario_id" validate:"required,min=1,max=128"`
}

// errorBody is the §6 error envelope: {"error": "<message>"}.
type errorBody struct {
	Error string `json:"error"`
}
