package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserLimiterIsPerKey(t *testing.T) {
	l := NewUserLimiter(1, 2, time.Minute)
	now := time.Now()
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"))

	now = now.Add(time.Second)
	assert.True(t, l.Allow("a"))
}

func TestUserLimiterCleanupEvictsIdleBuckets(t *testing.T) {
	l := NewUserLimiter(1, 1, time.Minute)
	now := time.Now()
	l.now = func() time.Time { return now }

	l.Allow("idle")
	now = now.Add(30 * time.Second)
	l.Allow("active")
	now = now.Add(45 * time.Second)

	assert.Equal(t, 1, l.Cleanup())
	assert.Equal(t, 1, l.size())
}

func TestRateLimitMiddleware(t *testing.T) {
	l := NewUserLimiter(0.001, 1, time.Minute)
	handler := RateLimit(l, nil)(okHandler())
	userID := uuid.New()

	do := func() int {
		req := httptest.NewRequest(http.MethodGet, "/api/contacts", nil)
		req = req.WithContext(WithUserID(req.Context(), userID))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusOK, do())
	assert.Equal(t, http.StatusTooManyRequests, do())

	anon := httptest.NewRecorder()
	handler.ServeHTTP(anon, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, anon.Code)
}
