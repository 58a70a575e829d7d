// Package auth issues and verifies the opaque bearer API keys used to
// authenticate submissions. Keys are generated client-side-unknown
// random strings; only an Argon2id hash of the key is ever persisted.
//
// Verification cannot simply "hash the presented key with a fresh salt
// and look it up by that hash": a fresh salt never reproduces a stored
// hash, so no key would ever match. Instead every stored key keeps a
// short plaintext lookup prefix alongside its salted hash: verification
// finds the (small number of) candidates sharing the presented key's
// prefix, then Argon2id-verifies the full key against each candidate's
// stored hash.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"
)

const (
	// keyCharset and keyLength match the original generate_api_key
	// exactly: a 32-character alphanumeric string, nothing else.
	keyCharset      = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	keyLength       = 32
	lookupPrefixLen = 12
)

var (
	ErrInvalidKeyFormat = errors.New("auth: malformed API key")
	ErrKeyNotFound      = errors.New("auth: no API key matches")
	ErrKeyRevoked       = errors.New("auth: API key has been revoked")
	ErrKeyExpired       = errors.New("auth: API key has expired")
)

// argonParams are the Argon2id cost parameters baked into every hash
// this package produces. They are also encoded into the stored hash
// string so a future tuning change never breaks verification of
// already-issued keys.
var argonParams = struct {
	memory      uint32
	iterations  uint32
	parallelism uint8
	saltLength  uint32
	keyLength   uint32
}{
	memory:      64 * 1024,
	iterations:  3,
	parallelism: 2,
	saltLength:  16,
	keyLength:   32,
}

// APIKey is a persisted service credential. It never holds the
// plaintext key; that is returned once, in CreatedKey.PlainKey.
type APIKey struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	Prefix     string
	Hash       string
	CreatedAt  time.Time
	LastUsedAt *time.Time
	ExpiresAt  *time.Time
	Revoked    bool
}

// Repository is the storage dependency this package needs; the concrete
// implementation lives in internal/storage.
type Repository interface {
	Create(ctx context.Context, key *APIKey) error
	FindByPrefix(ctx context.Context, prefix string) ([]*APIKey, error)
	UpdateLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error
}

// Service issues and verifies API keys.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreatedKey is returned once, at creation time, and carries the only
// copy of the plaintext key the caller will ever see.
type CreatedKey struct {
	Record   *APIKey
	PlainKey string
}

// IssueKey generates a new random key for userID, hashes it, and
// persists the record. expiresInDays of 0 means the key never expires.
func (s *Service) IssueKey(ctx context.Context, userID uuid.UUID, expiresInDays int) (*CreatedKey, error) {
	plainKey, prefix, err := generatePlainKey()
	if err != nil {
		return nil, err
	}

	hash, err := hashKey(plainKey)
	if err != nil {
		return nil, fmt.Errorf("auth: hash key: %w", err)
	}

	record := &APIKey{
		ID:        uuid.New(),
		UserID:    userID,
		Prefix:    prefix,
		Hash:      hash,
		CreatedAt: time.Now(),
	}
	if expiresInDays > 0 {
		exp := record.CreatedAt.AddDate(0, 0, expiresInDays)
		record.ExpiresAt = &exp
	}

	if err := s.repo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("auth: persist key: %w", err)
	}

	return &CreatedKey{Record: record, PlainKey: plainKey}, nil
}

// Verify looks up every stored key sharing presented's lookup prefix
// and Argon2id-verifies the full key against each candidate in turn,
// returning the first match. Candidates with the wrong prefix are never
// touched, so this is cheap even with many issued keys.
func (s *Service) Verify(ctx context.Context, presented string) (*APIKey, error) {
	if len(presented) < lookupPrefixLen {
		return nil, ErrInvalidKeyFormat
	}
	prefix := presented[:lookupPrefixLen]

	candidates, err := s.repo.FindByPrefix(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("auth: find by prefix: %w", err)
	}
	if len(candidates) == 0 {
		return nil, ErrKeyNotFound
	}

	for _, candidate := range candidates {
		if !verifyKey(presented, candidate.Hash) {
			continue
		}
		if candidate.Revoked {
			return nil, ErrKeyRevoked
		}
		if candidate.ExpiresAt != nil && time.Now().After(*candidate.ExpiresAt) {
			return nil, ErrKeyExpired
		}
		now := time.Now()
		if err := s.repo.UpdateLastUsed(ctx, candidate.ID, now); err != nil {
			return nil, fmt.Errorf("auth: update last used: %w", err)
		}
		candidate.LastUsedAt = &now
		return candidate, nil
	}

	return nil, ErrKeyNotFound
}

// generatePlainKey draws keyLength characters uniformly from keyCharset
// using rejection sampling: indexing a random byte mod len(keyCharset)
// would bias the lower indices, since 256 is not a multiple of 62.
func generatePlainKey() (plainKey, prefix string, err error) {
	const maxValidByte = 256 - (256 % len(keyCharset))

	key := make([]byte, keyLength)
	chunk := make([]byte, keyLength)
	for filled := 0; filled < keyLength; {
		if _, err := rand.Read(chunk); err != nil {
			return "", "", fmt.Errorf("auth: generate key: %w", err)
		}
		for _, b := range chunk {
			if filled == keyLength {
				break
			}
			if int(b) >= maxValidByte {
				continue
			}
			key[filled] = keyCharset[int(b)%len(keyCharset)]
			filled++
		}
	}

	plainKey = string(key)
	return plainKey, plainKey[:lookupPrefixLen], nil
}

// hashKey produces a self-describing encoded hash:
// argon2id$v=19$m=<mem>,t=<iter>,p=<par>$<salt-b64>$<hash-b64>
func hashKey(plainKey string) (string, error) {
	salt := make([]byte, argonParams.saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	digest := argon2.IDKey([]byte(plainKey), salt, argonParams.iterations, argonParams.memory, argonParams.parallelism, argonParams.keyLength)

	return fmt.Sprintf("argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argonParams.memory, argonParams.iterations, argonParams.parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(digest),
	), nil
}

// verifyKey recomputes the Argon2id digest of plainKey using the
// parameters and salt embedded in encoded, and compares it to the
// stored digest in constant time.
func verifyKey(plainKey, encoded string) bool {
	parts := strings.Split(encoded, "$")
	if len(parts) != 5 || parts[0] != "argon2id" {
		return false
	}

	var version int
	if _, err := fmt.Sscanf(parts[1], "v=%d", &version); err != nil {
		return false
	}

	var memory, iterations uint32
	var parallelism uint8
	if _, err := fmt.Sscanf(parts[2], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil {
		return false
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}

	got := argon2.IDKey([]byte(plainKey), salt, iterations, memory, parallelism, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1
}
