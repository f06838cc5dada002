package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/contactbook-backend/pkg/config"
	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	mu      sync.Mutex
	data    map[string]string
	sets    map[string]map[string]struct{}
	expires map[string]time.Duration
	getErr  error
}

func newMockStore() *mockStore {
	return &mockStore{
		data:    make(map[string]string),
		sets:    make(map[string]map[string]struct{}),
		expires: make(map[string]time.Duration),
	}
}

func (m *mockStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	m.expires[key] = ttl
	return nil
}

func (m *mockStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", m.getErr
	}
	val, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return val, nil
}

func (m *mockStore) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
		delete(m.sets, key)
	}
	return nil
}

func (m *mockStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expires[key] = ttl
	return nil
}

func (m *mockStore) SAdd(ctx context.Context, key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sets[key] == nil {
		m.sets[key] = make(map[string]struct{})
	}
	for _, member := range members {
		m.sets[key][member] = struct{}{}
	}
	return nil
}

func (m *mockStore) SMembers(ctx context.Context, key string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []string{}
	for member := range m.sets[key] {
		out = append(out, member)
	}
	return out, nil
}

func (m *mockStore) SRem(ctx context.Context, key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, member := range members {
		delete(m.sets[key], member)
	}
	return nil
}

func (m *mockStore) AccessSessionKey(accessID string) string {
	return "sess:" + accessID
}

func (m *mockStore) UserSessionsKey(userID string) string {
	return "user-sess:" + userID
}

func newTestManager(store *mockStore) *Manager {
	return &Manager{store: store, keyer: store, ttl: time.Hour}
}

func TestManagerOpenAndHasSession(t *testing.T) {
	store := newMockStore()
	manager := newTestManager(store)
	ctx := context.Background()
	userID := uuid.New()
	accessID := NewAccessID()

	require.NoError(t, manager.Open(ctx, userID, accessID))
	require.Equal(t, userID.String(), store.data["sess:"+accessID])
	require.Equal(t, time.Hour, store.expires["sess:"+accessID])
	require.Equal(t, time.Hour, store.expires["user-sess:"+userID.String()])

	ok, err := manager.HasSession(ctx, accessID)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = manager.HasSession(ctx, "unknown")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestManagerOpenValidatesInput(t *testing.T) {
	manager := newTestManager(newMockStore())
	require.Error(t, manager.Open(context.Background(), uuid.New(), " "))
	require.Error(t, manager.Open(context.Background(), uuid.Nil, "abc"))
}

func TestManagerHasSessionPropagatesStoreErrors(t *testing.T) {
	store := newMockStore()
	store.getErr = errors.New("connection refused")
	manager := newTestManager(store)

	ok, err := manager.HasSession(context.Background(), "abc")
	require.Error(t, err)
	require.False(t, ok)
}

func TestManagerRevokeSingle(t *testing.T) {
	store := newMockStore()
	manager := newTestManager(store)
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, manager.Open(ctx, userID, "first"))
	require.NoError(t, manager.Open(ctx, userID, "second"))
	require.NoError(t, manager.Revoke(ctx, userID, "first"))

	ok, err := manager.HasSession(ctx, "first")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = manager.HasSession(ctx, "second")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestManagerRevokeAll(t *testing.T) {
	store := newMockStore()
	manager := newTestManager(store)
	ctx := context.Background()
	userID := uuid.New()
	other := uuid.New()

	require.NoError(t, manager.Open(ctx, userID, "a"))
	require.NoError(t, manager.Open(ctx, userID, "b"))
	require.NoError(t, manager.Open(ctx, other, "c"))

	revoked, err := manager.RevokeAll(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, 2, revoked)

	for _, id := range []string{"a", "b"} {
		ok, err := manager.HasSession(ctx, id)
		require.NoError(t, err)
		require.False(t, ok, "token %s should be revoked", id)
	}
	ok, err := manager.HasSession(ctx, "c")
	require.NoError(t, err)
	require.True(t, ok, "other users keep their tokens")
	require.NotContains(t, store.sets, "user-sess:"+userID.String())
}

func TestNewManagerValidation(t *testing.T) {
	_, err := NewManager(nil, config.JWTConfig{ExpirationMinutes: 10})
	require.Error(t, err)
}
