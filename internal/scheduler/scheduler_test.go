package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapfarena/verifier/internal/storage"
)

type fakePruner struct {
	mu       sync.Mutex
	calls    int
	returned int
	err      error
}

func (p *fakePruner) PruneExpired(ctx context.Context, now time.Time) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return p.returned, p.err
}

func (p *fakePruner) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type fakeCache struct {
	mu    sync.Mutex
	calls []string
	rows  []storage.LeaderboardRow
	err   error
}

func (c *fakeCache) Leaderboard(ctx context.Context, mapName, scenarioName string, limit int) ([]storage.LeaderboardRow, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, mapName)
	return c.rows, c.err
}

func (c *fakeCache) callNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

func TestRunPruneJobCallsPrunerAndDoesNotPanicOnError(t *testing.T) {
	pruner := &fakePruner{returned: 3}
	s := New(Config{Pruner: pruner, Logger: zerolog.Nop()})

	job := s.runPruneJob(time.Second)
	job()

	assert.Equal(t, 1, pruner.callCount())

	pruner.err = errors.New("db unavailable")
	job()
	assert.Equal(t, 2, pruner.callCount())
}

func TestRunWarmJobWarmsEveryConfiguredTarget(t *testing.T) {
	cache := &fakeCache{rows: []storage.LeaderboardRow{{}, {}}}
	s := New(Config{
		Cache: cache,
		WarmTargets: []WarmTarget{
			{MapName: "empty-8-8", ScenarioName: "", Limit: 100},
			{MapName: "maze-32-32", ScenarioName: "scen-1", Limit: 50},
		},
		Logger: zerolog.Nop(),
	})

	job := s.runWarmJob(time.Second)
	job()

	assert.Equal(t, []string{"empty-8-8", "maze-32-32"}, cache.callNames())
}

func TestRunWarmJobContinuesAfterOneTargetFails(t *testing.T) {
	cache := &fakeCache{err: errors.New("cache unavailable")}
	s := New(Config{
		Cache: cache,
		WarmTargets: []WarmTarget{
			{MapName: "a", Limit: 10},
			{MapName: "b", Limit: 10},
		},
		Logger: zerolog.Nop(),
	})

	job := s.runWarmJob(time.Second)
	job()

	assert.Equal(t, []string{"a", "b"}, cache.callNames())
}

func TestStartRegistersJobsAndStopShutsDownCleanly(t *testing.T) {
	pruner := &fakePruner{}
	cache := &fakeCache{}
	s := New(Config{
		Pruner: pruner,
		Cache:  cache,
		Logger: zerolog.Nop(),
	})

	err := s.Start("@every 1h", "@every 1h", 5*time.Second)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	s.Stop()
}

func TestStartRejectsMalformedSchedule(t *testing.T) {
	s := New(Config{Pruner: &fakePruner{}, Cache: &fakeCache{}, Logger: zerolog.Nop()})
	err := s.Start("not a cron expression", "@every 1h", time.Second)
	assert.Error(t, err)
}
