package sandbox

import (
	"context"
	"sync/atomic"

	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/experimental"
)

// fuelListenerFactory counts guest function-call boundaries crossed
// during one invocation and cancels the run once the count exceeds a
// budget. wazero has no per-instruction fuel metering (unlike
// wasmtime), so a function-call count is the closest approximation
// available: it under-counts work done inside tight loops within a
// single function and over-counts work spread across many small calls.
// It is good enough to stop a guest that never returns, not to bill
// instructions precisely.
type fuelListenerFactory struct {
	limit   int64
	count   *atomic.Int64
	cancel  context.CancelFunc
	tripped *atomic.Bool
}

func newFuelListenerFactory(limit int64, cancel context.CancelFunc) *fuelListenerFactory {
	return &fuelListenerFactory{
		limit:   limit,
		count:   &atomic.Int64{},
		cancel:  cancel,
		tripped: &atomic.Bool{},
	}
}

func (f *fuelListenerFactory) NewListener(_ context.Context, _ api.Module, _ api.FunctionDefinition) experimental.FunctionListener {
	return &fuelListener{factory: f}
}

// Consumed reports how many call-boundary "instructions" were counted.
func (f *fuelListenerFactory) Consumed() int64 { return f.count.Load() }

// Tripped reports whether the budget was exceeded and the run was
// cancelled as a result.
func (f *fuelListenerFactory) Tripped() bool { return f.tripped.Load() }

type fuelListener struct {
	factory *fuelListenerFactory
}

func (l *fuelListener) Before(ctx context.Context, _ api.Module, _ api.FunctionDefinition, _ []uint64, _ experimental.StackIterator) {
	n := l.factory.count.Add(1)
	if n > l.factory.limit && l.factory.tripped.CompareAndSwap(false, true) {
		l.factory.cancel()
	}
}

func (l *fuelListener) After(context.Context, api.Module, api.FunctionDefinition, []uint64) {}

func (l *fuelListener) Abort(context.Context, api.Module, api.FunctionDefinition, error) {}
