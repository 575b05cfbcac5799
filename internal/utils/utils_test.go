package utils

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestJWTRoundTrip(t *testing.T) {
	id := uuid.New()
	token, err := GenerateJWT(id, "s3cret")
	require.NoError(t, err)

	claims, err := ParseJWT(token, "s3cret")
	require.NoError(t, err)
	assert.Equal(t, id, claims.UserID)
	assert.Equal(t, id.String(), claims.Subject)
}

func TestParseJWTRejectsBadTokens(t *testing.T) {
	token, err := GenerateJWT(uuid.New(), "s3cret")
	require.NoError(t, err)

	_, err = ParseJWT(token, "other")
	assert.Error(t, err)

	_, err = ParseJWT("not-a-token", "s3cret")
	assert.Error(t, err)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: uuid.New(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	signed, err := expired.SignedString([]byte("s3cret"))
	require.NoError(t, err)
	_, err = ParseJWT(signed, "s3cret")
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	anonymous := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{})
	signed, err = anonymous.SignedString([]byte("s3cret"))
	require.NoError(t, err)
	_, err = ParseJWT(signed, "s3cret")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestCacheSetGetExpire(t *testing.T) {
	mr, rdb := newRedis(t)
	ctx := context.Background()

	var out []int
	found, err := GetCache(ctx, rdb, "k", &out)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, SetCache(ctx, rdb, "k", []int{1, 2}, time.Minute))
	found, err = GetCache(ctx, rdb, "k", &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []int{1, 2}, out)

	mr.FastForward(2 * time.Minute)
	found, err = GetCache(ctx, rdb, "k", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCacheGeneration(t *testing.T) {
	_, rdb := newRedis(t)
	ctx := context.Background()

	gen, err := CacheGeneration(ctx, rdb, "gen")
	require.NoError(t, err)
	assert.Zero(t, gen)

	for want := int64(1); want <= 3; want++ {
		bumped, err := BumpCacheGeneration(ctx, rdb, "gen")
		require.NoError(t, err)
		assert.Equal(t, want, bumped)
	}
	gen, err = CacheGeneration(ctx, rdb, "gen")
	require.NoError(t, err)
	assert.EqualValues(t, 3, gen)
}

func TestDeleteCachePrefix(t *testing.T) {
	mr, rdb := newRedis(t)
	ctx := context.Background()
	for _, k := range []string{"slots:all", "slots:quantity=3", "users:1"} {
		require.NoError(t, SetCache(ctx, rdb, k, true, time.Minute))
	}

	require.NoError(t, DeleteCachePrefix(ctx, rdb, "slots:"))
	assert.False(t, mr.Exists("slots:all"))
	assert.False(t, mr.Exists("slots:quantity=3"))
	assert.True(t, mr.Exists("users:1"))

	require.NoError(t, DeleteCachePrefix(ctx, rdb, "nothing:"))
}

func TestNilClientDisablesCache(t *testing.T) {
	ctx := context.Background()
	var v int
	found, err := GetCache(ctx, nil, "k", &v)
	assert.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, SetCache(ctx, nil, "k", 1, time.Minute))
	gen, err := CacheGeneration(ctx, nil, "k")
	assert.NoError(t, err)
	assert.Zero(t, gen)
	gen, err = BumpCacheGeneration(ctx, nil, "k")
	assert.NoError(t, err)
	assert.Zero(t, gen)
	assert.NoError(t, DeleteCachePrefix(ctx, nil, "k"))
}
