package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LeaderboardCache is a read-through cache in front of
// SubmissionRepository.Leaderboard: the query joins three tables and
// is re-run on every request without it, even though leaderboards only
// change when a new valid submission lands.
type LeaderboardCache struct {
	client *redis.Client
	ttl    time.Duration
	source *SubmissionRepository
}

// NewLeaderboardCache dials url (a redis:// connection string) and
// wires it in front of source.
func NewLeaderboardCache(url string, ttl time.Duration, source *SubmissionRepository) (*LeaderboardCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("storage: parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("storage: connect to redis: %w", err)
	}

	return &LeaderboardCache{client: client, ttl: ttl, source: source}, nil
}

// NewLeaderboardCacheWithClient wires a LeaderboardCache around an
// already-constructed client, so tests can point it at miniredis.
func NewLeaderboardCacheWithClient(client *redis.Client, ttl time.Duration, source *SubmissionRepository) *LeaderboardCache {
	return &LeaderboardCache{client: client, ttl: ttl, source: source}
}

func (c *LeaderboardCache) Close() error { return c.client.Close() }

func cacheKey(mapName, scenarioName string, limit int) string {
	return fmt.Sprintf("leaderboard:%s:%s:%d", mapName, scenarioName, limit)
}

// Leaderboard returns a cached result if present and unexpired,
// otherwise queries source, caches the result for ttl, and returns it.
func (c *LeaderboardCache) Leaderboard(ctx context.Context, mapName, scenarioName string, limit int) ([]LeaderboardRow, error) {
	key := cacheKey(mapName, scenarioName, limit)

	cached, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var rows []LeaderboardRow
		if jsonErr := json.Unmarshal(cached, &rows); jsonErr == nil {
			return rows, nil
		}
		// Corrupt cache entry: fall through and recompute.
	} else if err != redis.Nil {
		return nil, fmt.Errorf("storage: read leaderboard cache: %w", err)
	}

	rows, err := c.source.Leaderboard(ctx, mapName, scenarioName, limit)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(rows); err == nil {
		_ = c.client.Set(ctx, key, encoded, c.ttl).Err()
	}

	return rows, nil
}

// Invalidate drops the cached entry for a map/scenario/limit so the
// next read recomputes it. Recording a result does not call it; until it
// is called, a cached entry is replaced only when its ttl expires.
func (c *LeaderboardCache) Invalidate(ctx context.Context, mapName, scenarioName string, limit int) error {
	return c.client.Del(ctx, cacheKey(mapName, scenarioName, limit)).Err()
}
