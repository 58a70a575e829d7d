// Package storage is the bun/Postgres persistence layer: users, API
// keys, solver submissions and their verification results, plus a
// Redis-backed read-through cache in front of the leaderboard query.
package storage

import (
	"context"
	"database/sql"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// Store wraps a bun.DB connection and exposes one repository per
// aggregate. Callers depend on the narrower per-aggregate interfaces
// (auth.Repository, coordinator.Store) rather than *Store directly.
type Store struct {
	db *bun.DB
}

// Open connects to Postgres using dsn. The connection is lazy: no round
// trip happens until the first query.
func Open(dsn string) *Store {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	return &Store{db: db}
}

// DB exposes the underlying *bun.DB for callers (migrations, health
// checks) that need it directly.
func (s *Store) DB() *bun.DB { return s.db }

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.db.DB.Close() }

// InitSchema creates every table this service owns, if missing. It is
// intentionally not a migration framework: schema changes beyond
// additive "create if not exists" need a real migration tool.
func (s *Store) InitSchema(ctx context.Context) error {
	models := []any{
		(*UserModel)(nil),
		(*APIKeyModel)(nil),
		(*SubmissionModel)(nil),
		(*VerificationResultModel)(nil),
	}
	for _, model := range models {
		if _, err := s.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}
