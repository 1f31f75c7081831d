package calendar

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newTestTokenStore(t *testing.T) *RedisTokenStore {
	t.Helper()
	mr := miniredis.RunT(t)
	return NewRedisTokenStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), nil)
}

func TestTokenStoreRoundTrip(t *testing.T) {
	store := newTestTokenStore(t)
	ctx := context.Background()

	saved := &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		Expiry:       time.Now().Add(time.Hour),
	}
	require.NoError(t, store.SaveCalendarCredential(ctx, "p1", saved))

	got, err := store.GetCalendarCredential(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "access", got.AccessToken)
	assert.Equal(t, "refresh", got.RefreshToken)
}

func TestTokenStoreMissingCredential(t *testing.T) {
	store := newTestTokenStore(t)

	_, err := store.GetCalendarCredential(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrCredentialExpired)
}

func TestTokenStoreExpiredWithoutRefresh(t *testing.T) {
	store := newTestTokenStore(t)
	ctx := context.Background()

	// Expired and no OAuth config to refresh with.
	require.NoError(t, store.SaveCalendarCredential(ctx, "p1", &oauth2.Token{
		AccessToken: "stale",
		Expiry:      time.Now().Add(-time.Minute),
	}))

	_, err := store.GetCalendarCredential(ctx, "p1")
	assert.ErrorIs(t, err, ErrCredentialExpired)
}

func TestTokenStoreZeroExpiryNeverRefreshes(t *testing.T) {
	store := newTestTokenStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveCalendarCredential(ctx, "p1", &oauth2.Token{AccessToken: "static"}))

	got, err := store.GetCalendarCredential(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "static", got.AccessToken)
}
