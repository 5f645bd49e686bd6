package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/shramsetu/backend/internal/config"
)

const keyPrefix = "session:"

// ErrNoSession is returned when a session was never created, expired or was revoked.
var ErrNoSession = errors.New("session not found")

// Store keeps server-side login sessions in Redis, keyed by token id, so a token can be
// revoked before it expires.
type Store struct {
	rdb *redis.Client
}

func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// NewClient opens a Redis client for the configured server.
func NewClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
}

func key(tokenID string) string { return keyPrefix + tokenID }

// Create records a session for the account that expires after ttl.
func (s *Store) Create(ctx context.Context, tokenID string, accountID uuid.UUID, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, key(tokenID), accountID.String(), ttl).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// Lookup returns the account a live session belongs to.
func (s *Store) Lookup(ctx context.Context, tokenID string) (uuid.UUID, error) {
	v, err := s.rdb.Get(ctx, key(tokenID)).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, ErrNoSession
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("load session: %w", err)
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return uuid.Nil, fmt.Errorf("corrupt session %s: %w", tokenID, err)
	}
	return id, nil
}

// Revoke deletes the session. Revoking an unknown session is not an error.
func (s *Store) Revoke(ctx context.Context, tokenID string) error {
	if err := s.rdb.Del(ctx, key(tokenID)).Err(); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}
