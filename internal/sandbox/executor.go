// Package sandbox runs untrusted guest solver modules inside a wazero
// WebAssembly runtime, bounding both wall-clock time and an approximate
// instruction budget, and never trusting the guest's output: the caller
// is expected to re-validate every returned plan with internal/validator
// before treating it as anything but a candidate answer.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/experimental"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/mapfarena/verifier/internal/mapftype"
	"github.com/mapfarena/verifier/internal/mapgrid"
)

// Status is the terminal state of one execution attempt.
type Status string

const (
	StatusOK            Status = "ok"
	StatusGuestError    Status = "guest_error"
	StatusTimeout       Status = "timeout"
	StatusFuelExhausted Status = "fuel_exhausted"
	StatusCompileError  Status = "compile_error"
	StatusRuntimeTrap   Status = "runtime_trap"
)

// Stats is always returned, even on failure, so a caller can record
// resource usage regardless of outcome.
type Stats struct {
	Status           Status
	DurationMillis   int64
	InstructionsUsed int64
	Message          string
}

// Config bounds every execution the Executor runs.
type Config struct {
	TimeoutSeconds int
	InstructionCap int64
	MaxModuleBytes int64
}

// Executor owns a wazero runtime shared across executions. Runtimes are
// safe for concurrent use; each Execute call gets its own store/module
// instance.
type Executor struct {
	runtime wazero.Runtime
	cfg     Config
}

// NewExecutor builds a wazero runtime configured to close a module the
// instant its context is done, which is how both the wall-clock timeout
// and the fuel cutoff actually stop a guest that refuses to return.
func NewExecutor(ctx context.Context, cfg Config) (*Executor, error) {
	runtimeCfg := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	runtime := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, runtime); err != nil {
		runtime.Close(ctx)
		return nil, fmt.Errorf("sandbox: instantiate wasi: %w", err)
	}

	return &Executor{runtime: runtime, cfg: cfg}, nil
}

func (e *Executor) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// Execute compiles wasmBytes fresh (guest modules are never cached
// across submissions, since a cached compiled module from one
// submitter must never be reachable by another's request) and calls
// its solve() export against the given problem.
func (e *Executor) Execute(ctx context.Context, wasmBytes []byte, grid *mapgrid.Grid, starts, goals []mapftype.Coordinate) (mapftype.Plan, Stats) {
	start := time.Now()

	if e.cfg.MaxModuleBytes > 0 && int64(len(wasmBytes)) > e.cfg.MaxModuleBytes {
		return mapftype.Plan{}, Stats{
			Status:  StatusCompileError,
			Message: fmt.Sprintf("module size %d exceeds limit %d bytes", len(wasmBytes), e.cfg.MaxModuleBytes),
		}
	}

	timeout := time.Duration(e.cfg.TimeoutSeconds) * time.Second
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	fuel := newFuelListenerFactory(e.cfg.InstructionCap, cancel)
	runCtx = experimental.WithFunctionListenerFactory(runCtx, fuel)

	compiled, err := e.runtime.CompileModule(runCtx, wasmBytes)
	if err != nil {
		return mapftype.Plan{}, Stats{
			Status:         StatusCompileError,
			DurationMillis: time.Since(start).Milliseconds(),
			Message:        err.Error(),
		}
	}
	defer compiled.Close(runCtx)

	modCfg := wazero.NewModuleConfig().WithStartFunctions("_initialize")
	module, err := e.runtime.InstantiateModule(runCtx, compiled, modCfg)
	if err != nil {
		return mapftype.Plan{}, classifyFailure(err, fuel, start, e.cfg.TimeoutSeconds)
	}
	defer module.Close(runCtx)

	allocFn := module.ExportedFunction("alloc")
	solveFn := module.ExportedFunction("solve")
	if allocFn == nil || solveFn == nil {
		return mapftype.Plan{}, Stats{
			Status:         StatusCompileError,
			DurationMillis: time.Since(start).Milliseconds(),
			Message:        "guest module must export alloc(u32) -> u32 and solve(u32, u32) -> u64",
		}
	}

	input := EncodeInput(grid, starts, goals)

	allocRes, err := allocFn.Call(runCtx, uint64(len(input)))
	if err != nil {
		return mapftype.Plan{}, classifyFailure(err, fuel, start, e.cfg.TimeoutSeconds)
	}
	inPtr := uint32(allocRes[0])

	if !module.Memory().Write(inPtr, input) {
		return mapftype.Plan{}, Stats{
			Status:         StatusRuntimeTrap,
			DurationMillis: time.Since(start).Milliseconds(),
			Message:        "guest alloc() returned a pointer outside its own memory",
		}
	}

	solveRes, err := solveFn.Call(runCtx, uint64(inPtr), uint64(len(input)))
	if err != nil {
		return mapftype.Plan{}, classifyFailure(err, fuel, start, e.cfg.TimeoutSeconds)
	}

	packed := solveRes[0]
	outPtr := uint32(packed >> 32)
	outLen := uint32(packed)

	output, ok := module.Memory().Read(outPtr, outLen)
	if !ok {
		return mapftype.Plan{}, Stats{
			Status:         StatusRuntimeTrap,
			DurationMillis: time.Since(start).Milliseconds(),
			Message:        "guest solve() returned an out-of-bounds buffer",
		}
	}

	plan, decodeErr := DecodeOutput(output)
	stats := Stats{
		DurationMillis:   time.Since(start).Milliseconds(),
		InstructionsUsed: fuel.Consumed(),
	}
	if decodeErr != nil {
		stats.Status = StatusGuestError
		stats.Message = decodeErr.Error()
		return mapftype.Plan{}, stats
	}

	stats.Status = StatusOK
	return plan, stats
}

// classifyFailure turns a wazero error into one of the host's own
// trap-classification messages (§4.5): fuel exhaustion and timeouts get
// fixed messages a caller can match on; any other failure is reported as
// "Execution error: " followed by the wazero error text.
func classifyFailure(err error, fuel *fuelListenerFactory, start time.Time, timeoutSeconds int) Stats {
	stats := Stats{
		DurationMillis:   time.Since(start).Milliseconds(),
		InstructionsUsed: fuel.Consumed(),
	}
	switch {
	case fuel.Tripped():
		stats.Status = StatusFuelExhausted
		stats.Message = "Solver exceeded instruction limit"
	case ctxDeadlineExceeded(err):
		stats.Status = StatusTimeout
		stats.Message = fmt.Sprintf("Solver timeout after %ds", timeoutSeconds)
	default:
		stats.Status = StatusRuntimeTrap
		stats.Message = fmt.Sprintf("Execution error: %s", err.Error())
	}
	return stats
}

func ctxDeadlineExceeded(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
