package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newBlacklistWithClock() (*InMemoryTokenBlacklist, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	b := NewInMemoryTokenBlacklist()
	b.now = clock.now
	return b, clock
}

func TestInMemoryTokenBlacklist_AddToBlacklist(t *testing.T) {
	b, _ := newBlacklistWithClock()
	ctx := context.Background()

	require.NoError(t, b.AddToBlacklist(ctx, "jti-1", time.Hour))

	revoked, err := b.IsBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = b.IsBlacklisted(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestInMemoryTokenBlacklist_Expiry(t *testing.T) {
	b, clock := newBlacklistWithClock()
	ctx := context.Background()

	require.NoError(t, b.AddToBlacklist(ctx, "jti-1", time.Minute))
	clock.advance(2 * time.Minute)

	revoked, err := b.IsBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
	assert.Empty(t, b.revoked)
}

func TestInMemoryTokenBlacklist_SweepOnAdd(t *testing.T) {
	b, clock := newBlacklistWithClock()
	ctx := context.Background()

	require.NoError(t, b.AddToBlacklist(ctx, "old", time.Minute))
	clock.advance(time.Hour)
	require.NoError(t, b.AddToBlacklist(ctx, "new", time.Minute))

	assert.Len(t, b.revoked, 1)
	assert.Contains(t, b.revoked, "new")
}

func TestInMemoryTokenBlacklist_ZeroTTLIgnored(t *testing.T) {
	b, _ := newBlacklistWithClock()
	require.NoError(t, b.AddToBlacklist(context.Background(), "jti", 0))
	assert.Empty(t, b.revoked)
}

func TestInMemoryTokenBlacklist_InvalidateUser(t *testing.T) {
	b, clock := newBlacklistWithClock()
	ctx := context.Background()

	issuedBefore := clock.now()
	clock.advance(time.Second)
	require.NoError(t, b.InvalidateUser(ctx, "user-1", time.Hour))
	clock.advance(time.Second)
	issuedAfter := clock.now()

	invalid, err := b.IsUserTokenInvalidated(ctx, "user-1", issuedBefore)
	require.NoError(t, err)
	assert.True(t, invalid)

	invalid, err = b.IsUserTokenInvalidated(ctx, "user-1", issuedAfter)
	require.NoError(t, err)
	assert.False(t, invalid)

	invalid, err = b.IsUserTokenInvalidated(ctx, "user-2", issuedBefore)
	require.NoError(t, err)
	assert.False(t, invalid)
}

func TestRedisTokenBlacklist_Keys(t *testing.T) {
	b := NewRedisTokenBlacklist(nil)
	assert.Equal(t, "qc:auth:revoked:abc", b.jtiKey("abc"))
	assert.Equal(t, "qc:auth:user:42", b.userKey("42"))
}

func newRedisBlacklist(t *testing.T) (*RedisTokenBlacklist, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisTokenBlacklist(client), mr
}

func TestRedisTokenBlacklist_AddToBlacklist(t *testing.T) {
	b, mr := newRedisBlacklist(t)
	ctx := context.Background()

	require.NoError(t, b.AddToBlacklist(ctx, "jti-1", time.Minute))
	assert.True(t, mr.Exists("qc:auth:revoked:jti-1"))

	revoked, err := b.IsBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	mr.FastForward(2 * time.Minute)
	revoked, err = b.IsBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRedisTokenBlacklist_InvalidateUser(t *testing.T) {
	b, _ := newRedisBlacklist(t)
	ctx := context.Background()

	issued := time.Now().Add(-time.Minute)
	require.NoError(t, b.InvalidateUser(ctx, "user-1", time.Hour))

	invalid, err := b.IsUserTokenInvalidated(ctx, "user-1", issued)
	require.NoError(t, err)
	assert.True(t, invalid)

	invalid, err = b.IsUserTokenInvalidated(ctx, "user-1", time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, invalid)

	invalid, err = b.IsUserTokenInvalidated(ctx, "user-2", issued)
	require.NoError(t, err)
	assert.False(t, invalid)
}

func TestRedisTokenBlacklist_CorruptTimestamp(t *testing.T) {
	b, mr := newRedisBlacklist(t)
	require.NoError(t, mr.Set("qc:auth:user:user-1", "yesterday"))

	_, err := b.IsUserTokenInvalidated(context.Background(), "user-1", time.Now())
	assert.Error(t, err)
}
