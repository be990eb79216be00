//go:build integration

package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/xiebiao/bookstore-order/internal/domain/stock"
)

// 运行: go test -tags=integration ./internal/infrastructure/persistence/redis/...
type RedisSuite struct {
	suite.Suite
	ctx       context.Context
	container *tcredis.RedisContainer
	client    *redis.Client
}

func TestRedisSuite(t *testing.T) {
	suite.Run(t, new(RedisSuite))
}

func (s *RedisSuite) SetupSuite() {
	s.ctx = context.Background()

	var err error
	s.container, err = tcredis.Run(s.ctx, "redis:7-alpine")
	s.Require().NoError(err)

	uri, err := s.container.ConnectionString(s.ctx)
	s.Require().NoError(err)
	opts, err := redis.ParseURL(uri)
	s.Require().NoError(err)
	s.client = redis.NewClient(opts)
	s.Require().NoError(s.client.Ping(s.ctx).Err())
}

func (s *RedisSuite) TearDownSuite() {
	if s.client != nil {
		_ = s.client.Close()
	}
	if err := testcontainers.TerminateContainer(s.container); err != nil {
		s.T().Logf("terminate redis container: %v", err)
	}
}

func (s *RedisSuite) SetupTest() {
	s.Require().NoError(s.client.FlushDB(s.ctx).Err())
}

func (s *RedisSuite) TestStockCache() {
	t := s.T()
	cache := NewStockCache(s.client)

	got, err := cache.Get(s.ctx, 1, 1)
	require.NoError(t, err)
	assert.Nil(t, got, "未命中返回nil")

	item := &stock.StockItem{ID: 9, BookID: 1, WarehouseID: 1, QuantityOnHand: 10, ReservedQuantity: 3, SoldQuantity: 2,
		UpdatedAt: time.Now().UTC().Truncate(time.Second)}
	require.NoError(t, cache.Set(s.ctx, item, time.Minute))

	got, err = cache.Get(s.ctx, 1, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 10, got.QuantityOnHand)
	assert.Equal(t, 3, got.ReservedQuantity)
	assert.Equal(t, 7, got.Available())
	assert.True(t, item.UpdatedAt.Equal(got.UpdatedAt))

	require.NoError(t, cache.Delete(s.ctx, stock.Key{BookID: 1, WarehouseID: 1}, stock.Key{BookID: 2, WarehouseID: 1}))
	got, err = cache.Get(s.ctx, 1, 1)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func (s *RedisSuite) TestLocker() {
	t := s.T()
	locker := NewLocker(s.client)

	unlock, ok, err := locker.TryLock(s.ctx, "lock:test", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = locker.TryLock(s.ctx, "lock:test", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "锁已被持有")

	require.NoError(t, unlock(s.ctx))

	_, ok, err = locker.TryLock(s.ctx, "lock:test", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "释放后可以再次获取")
}

func (s *RedisSuite) TestLocker_UnlockDoesNotReleaseOthersLock() {
	t := s.T()
	locker := NewLocker(s.client)

	unlock, ok, err := locker.TryLock(s.ctx, "lock:expire", 50*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(100 * time.Millisecond)
	_, ok, err = locker.TryLock(s.ctx, "lock:expire", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, unlock(s.ctx))
	exists, err := s.client.Exists(s.ctx, "lock:expire").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), exists, "过期后的旧持有者不能删掉新锁")
}

func (s *RedisSuite) TestTokenBlacklist() {
	t := s.T()
	bl := NewTokenBlacklist(s.client)

	revoked, err := bl.IsRevoked(s.ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, bl.Revoke(s.ctx, "jti-1", time.Minute))
	require.NoError(t, bl.Revoke(s.ctx, "jti-2", 0))

	revoked, err = bl.IsRevoked(s.ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = bl.IsRevoked(s.ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked, "已过期的Token不需要记录")
}
