// Package store implements the Redis-backed session store, user cache and
// authentication rate limiter.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prian3003/gotchu-auth/internal/models"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// ErrUnavailable indicates the backing Redis connection is down or timed
// out. It is never recovered locally; callers decide how to surface it.
var ErrUnavailable = errors.New("session store unavailable")

const (
	sessionPrefix   = "session:"
	userCachePrefix = "user:"

	// opTimeout bounds every store call so a hung Redis cannot hang the
	// auth path.
	opTimeout = 3 * time.Second
)

// Store wraps a Redis client with session, user-cache and rate-limit
// operations. Construct once and share; Close releases the connection on
// shutdown.
type Store struct {
	client *redis.Client
}

// New creates a Store over an existing Redis client.
func New(client *redis.Client) *Store {
	return &Store{client: client}
}

// Connect verifies the backing connection. Safe to call more than once; the
// underlying client pools and reuses connections.
func (s *Store) Connect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Close releases the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}

// SetSession writes a session record under the session namespace with the
// given TTL.
func (s *Store) SetSession(ctx context.Context, sessionID string, session *models.Session, ttl time.Duration) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to serialize session: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := s.client.Set(ctx, sessionPrefix+sessionID, payload, ttl).Err(); err != nil {
		return wrapUnavailable("set session", err)
	}
	return nil
}

// GetSession returns the session record, or nil on miss or expiry.
func (s *Store) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	payload, err := s.client.Get(ctx, sessionPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapUnavailable("get session", err)
	}

	var session models.Session
	if err := json.Unmarshal(payload, &session); err != nil {
		// A corrupt record is unusable; treat it like a miss but log it.
		log.WithError(err).Warn("discarding corrupt session record")
		return nil, nil
	}
	return &session, nil
}

// DeleteSession removes a session. Idempotent; deleting an absent session is
// not an error.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := s.client.Del(ctx, sessionPrefix+sessionID).Err(); err != nil {
		return wrapUnavailable("delete session", err)
	}
	return nil
}

// ExtendSession resets the TTL without touching the stored value. A no-op if
// the session already expired.
func (s *Store) ExtendSession(ctx context.Context, sessionID string, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := s.client.Expire(ctx, sessionPrefix+sessionID, ttl).Err(); err != nil {
		return wrapUnavailable("extend session", err)
	}
	return nil
}

// CacheUser stores a user snapshot under the user-cache namespace.
func (s *Store) CacheUser(ctx context.Context, userID int64, snapshot *models.UserSnapshot, ttl time.Duration) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to serialize user snapshot: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := s.client.Set(ctx, userCacheKey(userID), payload, ttl).Err(); err != nil {
		return wrapUnavailable("cache user", err)
	}
	return nil
}

// GetCachedUser returns the cached snapshot for a user, or nil on miss.
func (s *Store) GetCachedUser(ctx context.Context, userID int64) (*models.UserSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	payload, err := s.client.Get(ctx, userCacheKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapUnavailable("get cached user", err)
	}

	var snapshot models.UserSnapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		log.WithError(err).Warn("discarding corrupt user cache entry")
		return nil, nil
	}
	return &snapshot, nil
}

// InvalidateUserCache drops the cached snapshot for a user. Called by profile
// mutation paths so stale data never outlives an update.
func (s *Store) InvalidateUserCache(ctx context.Context, userID int64) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := s.client.Del(ctx, userCacheKey(userID)).Err(); err != nil {
		return wrapUnavailable("invalidate user cache", err)
	}
	return nil
}

func userCacheKey(userID int64) string {
	return fmt.Sprintf("%s%d", userCachePrefix, userID)
}

func wrapUnavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}
