package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mapfarena/verifier/internal/auth"
)

// APIKeyRepository adapts the bun-backed api_keys table to
// auth.Repository.
type APIKeyRepository struct {
	store *Store
}

func NewAPIKeyRepository(store *Store) *APIKeyRepository {
	return &APIKeyRepository{store: store}
}

func (r *APIKeyRepository) Create(ctx context.Context, key *auth.APIKey) error {
	model := &APIKeyModel{
		ID:        key.ID,
		UserID:    key.UserID,
		Prefix:    key.Prefix,
		Hash:      key.Hash,
		CreatedAt: key.CreatedAt,
		ExpiresAt: key.ExpiresAt,
	}
	_, err := r.store.db.NewInsert().Model(model).Exec(ctx)
	return err
}

func (r *APIKeyRepository) FindByPrefix(ctx context.Context, prefix string) ([]*auth.APIKey, error) {
	var models []*APIKeyModel
	err := r.store.db.NewSelect().Model(&models).Where("prefix = ?", prefix).Scan(ctx)
	if err != nil {
		return nil, err
	}
	keys := make([]*auth.APIKey, len(models))
	for i, m := range models {
		keys[i] = toAuthKey(m)
	}
	return keys, nil
}

func (r *APIKeyRepository) UpdateLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.store.db.NewUpdate().
		Model((*APIKeyModel)(nil)).
		Set("last_used_at = ?", at).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// PruneExpired revokes every key past its expiry, for the scheduler's
// stale-key housekeeping job. It returns the number of keys affected.
func (r *APIKeyRepository) PruneExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := r.store.db.NewUpdate().
		Model((*APIKeyModel)(nil)).
		Set("revoked = true").
		Where("expires_at IS NOT NULL AND expires_at < ? AND revoked = false", now).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func toAuthKey(m *APIKeyModel) *auth.APIKey {
	return &auth.APIKey{
		ID:         m.ID,
		UserID:     m.UserID,
		Prefix:     m.Prefix,
		Hash:       m.Hash,
		CreatedAt:  m.CreatedAt,
		LastUsedAt: m.LastUsedAt,
		ExpiresAt:  m.ExpiresAt,
		Revoked:    m.Revoked,
	}
}
