package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Needs a live Redis: TEST_REDIS_ADDR=127.0.0.1:6379 go test ./session
func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, rdb.Ping(ctx).Err())
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestAppSessionRoundTrip(t *testing.T) {
	rdb := testRedis(t)
	ctx := context.Background()
	s := NewAppSessionStore(rdb, time.Minute)

	sid, uid := uuid.NewString(), uuid.NewString()
	require.NoError(t, s.Create(ctx, sid, uid, "bob@example.com"))

	as, err := s.Get(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, uid, as.UserID)
	assert.Equal(t, "bob@example.com", as.Email)
	assert.Equal(t, as.IssuedAt+60, as.ExpiresAt)

	require.NoError(t, s.Delete(ctx, sid))
	_, err = s.Get(ctx, sid)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestCeremonyLoadIsSingleUse(t *testing.T) {
	rdb := testRedis(t)
	ctx := context.Background()
	s := NewCeremonyStore(rdb, time.Minute)

	sid := uuid.NewString()
	require.NoError(t, s.SaveAuth(ctx, sid, &webauthn.SessionData{Challenge: "abc"}))

	sd, err := s.LoadAuth(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, "abc", sd.Challenge)

	_, err = s.LoadAuth(ctx, sid)
	assert.ErrorIs(t, err, redis.Nil)
}
