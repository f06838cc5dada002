package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/contactbook-backend/pkg/config"
	redisclient "github.com/angelmondragon/contactbook-backend/pkg/redis"
	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
)

type sessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	Expire(ctx context.Context, key string, ttl time.Duration) error
	SAdd(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
	SRem(ctx context.Context, key string, members ...string) error
}

type sessionKeyer interface {
	AccessSessionKey(accessID string) string
	UserSessionsKey(userID string) string
}

// Manager tracks which issued access tokens are still valid. Each token id
// maps to its owner and every owner keeps a set of its token ids so an
// account can be signed out everywhere at once.
type Manager struct {
	store sessionStore
	keyer sessionKeyer
	ttl   time.Duration
}

// AccessSessionChecker exposes the read-only surface needed by middleware.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

// NewManager constructs a session manager backed by Redis.
func NewManager(client *redisclient.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	ttl := cfg.TokenTTL()
	if ttl <= 0 {
		return nil, fmt.Errorf("access token ttl must be positive")
	}
	return &Manager{
		store: client,
		keyer: client,
		ttl:   ttl,
	}, nil
}

// Open registers accessID as a live token for userID.
func (m *Manager) Open(ctx context.Context, userID uuid.UUID, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return fmt.Errorf("access id is required")
	}
	if userID == uuid.Nil {
		return fmt.Errorf("user id is required")
	}

	if err := m.store.Set(ctx, m.keyer.AccessSessionKey(accessID), userID.String(), m.ttl); err != nil {
		return fmt.Errorf("storing access session: %w", err)
	}
	userKey := m.keyer.UserSessionsKey(userID.String())
	if err := m.store.SAdd(ctx, userKey, accessID); err != nil {
		return fmt.Errorf("indexing access session: %w", err)
	}
	// the index lives as long as the newest token
	if err := m.store.Expire(ctx, userKey, m.ttl); err != nil {
		return fmt.Errorf("expiring session index: %w", err)
	}
	return nil
}

// HasSession reports whether the provided access ID is still live.
func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if strings.TrimSpace(accessID) == "" {
		return false, fmt.Errorf("access id is required")
	}
	if _, err := m.store.Get(ctx, m.keyer.AccessSessionKey(accessID)); err != nil {
		if errors.Is(err, redislib.Nil) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Revoke invalidates a single access token.
func (m *Manager) Revoke(ctx context.Context, userID uuid.UUID, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return fmt.Errorf("access id is required")
	}
	if err := m.store.Del(ctx, m.keyer.AccessSessionKey(accessID)); err != nil {
		return err
	}
	return m.store.SRem(ctx, m.keyer.UserSessionsKey(userID.String()), accessID)
}

// RevokeAll invalidates every token issued to userID and returns how many
// were tracked.
func (m *Manager) RevokeAll(ctx context.Context, userID uuid.UUID) (int, error) {
	userKey := m.keyer.UserSessionsKey(userID.String())
	accessIDs, err := m.store.SMembers(ctx, userKey)
	if err != nil {
		return 0, fmt.Errorf("listing sessions: %w", err)
	}

	keys := make([]string, 0, len(accessIDs)+1)
	for _, accessID := range accessIDs {
		keys = append(keys, m.keyer.AccessSessionKey(accessID))
	}
	if err := m.store.Del(ctx, append(keys, userKey)...); err != nil {
		return 0, fmt.Errorf("revoking sessions: %w", err)
	}
	return len(accessIDs), nil
}

// NewAccessID produces the identifier used as the JWT jti and Redis key.
func NewAccessID() string {
	return uuid.NewString()
}
