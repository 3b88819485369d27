package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "accounts:u1", AccountsKey("u1"))
	assert.Equal(t, "transactions:u1", TransactionsKey("u1"))
	assert.Equal(t, "summary:u1", SummaryKey("u1"))
	assert.ElementsMatch(t, []string{"accounts:u1", "transactions:u1", "summary:u1"}, UserKeys("u1"))
}

func TestDisabledCacheNeverHits(t *testing.T) {
	ctx := context.Background()

	for name, c := range map[string]*Cache{
		"nil cache": nil,
		"no client": New(nil, zerolog.Nop()),
	} {
		t.Run(name, func(t *testing.T) {
			c.SetJSON(ctx, "k", map[string]int{"a": 1}, time.Minute)
			var out map[string]int
			assert.False(t, c.GetJSON(ctx, "k", &out))
			assert.Nil(t, out)
			c.Invalidate(ctx, "k")
			assert.NoError(t, c.Ping(ctx))
			assert.NoError(t, c.Close())
		})
	}
}

func newRedisCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := Connect(context.Background(), mr.Addr())
	require.NoError(t, err)
	c := New(client, zerolog.Nop())
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func TestCache_SetThenGet(t *testing.T) {
	ctx := context.Background()
	c, mr := newRedisCache(t)

	var out map[string]int
	assert.False(t, c.GetJSON(ctx, AccountsKey("u1"), &out), "miss on empty cache")

	c.SetJSON(ctx, AccountsKey("u1"), map[string]int{"a": 1}, ListTTL)

	require.True(t, c.GetJSON(ctx, AccountsKey("u1"), &out))
	assert.Equal(t, map[string]int{"a": 1}, out)
	assert.Equal(t, ListTTL, mr.TTL(AccountsKey("u1")))

	mr.FastForward(ListTTL + time.Second)
	assert.False(t, c.GetJSON(ctx, AccountsKey("u1"), &out), "expired entry")
}

func TestCache_UndecodableEntryIsAMiss(t *testing.T) {
	ctx := context.Background()
	c, mr := newRedisCache(t)
	require.NoError(t, mr.Set(SummaryKey("u1"), "{not json"))

	var out map[string]int
	assert.False(t, c.GetJSON(ctx, SummaryKey("u1"), &out))
}

func TestCache_InvalidateUserKeys(t *testing.T) {
	ctx := context.Background()
	c, mr := newRedisCache(t)
	for _, k := range append(UserKeys("u1"), AccountsKey("u2")) {
		c.SetJSON(ctx, k, []int{1}, time.Minute)
	}

	c.Invalidate(ctx, UserKeys("u1")...)

	for _, k := range UserKeys("u1") {
		assert.False(t, mr.Exists(k), k)
	}
	assert.True(t, mr.Exists(AccountsKey("u2")))
	assert.NoError(t, c.Ping(ctx))
}

func TestConnect_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := Connect(context.Background(), "redis://"+addr)

	assert.Error(t, err)
}
