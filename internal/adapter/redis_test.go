package adapter

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticProvider 测试用连接提供者：直接返回现成的客户端
type staticProvider struct {
	client *redis.Client
}

func (p *staticProvider) Client(ctx context.Context) (*redis.Client, error) {
	return p.client, nil
}

func newRedisHarness(t *testing.T) Adapter {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisAdapter(&staticProvider{client: client})
}

func TestRedisAdapter_StringOps(t *testing.T) {
	a := newRedisHarness(t)
	ctx := context.Background()

	// 缺失值统一返回 ErrNil
	_, err := a.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNil)

	require.NoError(t, a.Set(ctx, "k1", `{"a":1}`))
	v, err := a.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, v)

	ok, err := a.Exists(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, a.Del(ctx, "k1"))
	ok, err = a.Exists(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisAdapter_KeysAndMGet(t *testing.T) {
	a := newRedisHarness(t)
	ctx := context.Background()

	require.NoError(t, a.Set(ctx, "u:alice:pr:src+1", "v1"))
	require.NoError(t, a.Set(ctx, "u:alice:pr:src+2", "v2"))
	require.NoError(t, a.Set(ctx, "u:bob:pr:src+1", "v3"))

	keys, err := a.Keys(ctx, "u:alice:pr:*")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"u:alice:pr:src+1", "u:alice:pr:src+2"}, keys)

	vals, err := a.MGet(ctx, "u:alice:pr:src+1", "nope", "u:bob:pr:src+1")
	require.NoError(t, err)
	require.Len(t, vals, 3)
	require.NotNil(t, vals[0])
	assert.Equal(t, "v1", *vals[0])
	assert.Nil(t, vals[1])
	require.NotNil(t, vals[2])
	assert.Equal(t, "v3", *vals[2])
}

func TestRedisAdapter_HashOps(t *testing.T) {
	a := newRedisHarness(t)
	ctx := context.Background()

	require.NoError(t, a.HSet(ctx, "h", map[string]string{"f1": "v1", "f2": "v2"}))

	v, err := a.HGet(ctx, "h", "f1")
	require.NoError(t, err)
	assert.Equal(t, "v1", v)

	_, err = a.HGet(ctx, "h", "nope")
	assert.ErrorIs(t, err, ErrNil)

	all, err := a.HGetAll(ctx, "h")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"f1": "v1", "f2": "v2"}, all)

	require.NoError(t, a.HDel(ctx, "h", "f1"))
	all, err = a.HGetAll(ctx, "h")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"f2": "v2"}, all)
}

func TestRedisAdapter_ListOps(t *testing.T) {
	a := newRedisHarness(t)
	ctx := context.Background()

	require.NoError(t, a.LPush(ctx, "l", "a"))
	require.NoError(t, a.LPush(ctx, "l", "b"))
	require.NoError(t, a.LPush(ctx, "l", "c"))

	vals, err := a.LRange(ctx, "l", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, vals)

	require.NoError(t, a.LTrim(ctx, "l", 0, 1))
	vals, err = a.LRange(ctx, "l", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b"}, vals)

	require.NoError(t, a.LRem(ctx, "l", 0, "b"))
	vals, err = a.LRange(ctx, "l", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, vals)
}

func TestRedisAdapter_LSetNegativeIndex(t *testing.T) {
	a := newRedisHarness(t)
	ctx := context.Background()

	require.NoError(t, a.LPush(ctx, "l", "a", "b", "c")) // 列表为 c, b, a

	require.NoError(t, a.LSet(ctx, "l", -1, "a2"))
	require.NoError(t, a.LSet(ctx, "l", 0, "c2"))

	vals, err := a.LRange(ctx, "l", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"c2", "b", "a2"}, vals)

	assert.Error(t, a.LSet(ctx, "l", 99, "x"))
}

func TestRedisAdapter_SetAndZSetOps(t *testing.T) {
	a := newRedisHarness(t)
	ctx := context.Background()

	require.NoError(t, a.SAdd(ctx, "s", "m1", "m2"))
	members, err := a.SMembers(ctx, "s")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"m1", "m2"}, members)
	require.NoError(t, a.SRem(ctx, "s", "m1"))
	members, err = a.SMembers(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, []string{"m2"}, members)

	// 有序集合按 score 升序
	require.NoError(t, a.ZAdd(ctx, "z", 3, "c"))
	require.NoError(t, a.ZAdd(ctx, "z", 1, "a"))
	require.NoError(t, a.ZAdd(ctx, "z", 2, "b"))

	n, err := a.ZCard(ctx, "z")
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	vals, err := a.ZRange(ctx, "z", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, vals)

	vals, err = a.ZRange(ctx, "z", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, vals)

	require.NoError(t, a.ZRem(ctx, "z", "b"))
	vals, err = a.ZRange(ctx, "z", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, vals)

	rank, err := a.ZRank(ctx, "z", "c")
	require.NoError(t, err)
	assert.EqualValues(t, 1, rank)

	// 不存在的成员返回 ErrNil
	_, err = a.ZRank(ctx, "z", "b")
	assert.ErrorIs(t, err, ErrNil)
}
