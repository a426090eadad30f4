package cache

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gitvault/pkg/core"
	"gitvault/pkg/storage"
	"gitvault/pkg/types"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------
// 1. SpyStore (间谍存储)
// 用于统计底层方法被调用的次数，验证请求是否穿透了缓存
// -----------------------------------------------------------------------------
type SpyStore struct {
	hasCount int32
	putCount int32
	getCount int32

	mu      sync.Mutex
	objects map[types.ObjectID][]byte
}

func NewSpyStore() *SpyStore {
	return &SpyStore{
		objects: make(map[types.ObjectID][]byte),
	}
}

func (s *SpyStore) Has(ctx context.Context, id types.ObjectID) (bool, error) {
	atomic.AddInt32(&s.hasCount, 1)
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[id]
	return ok, nil
}

func (s *SpyStore) Put(ctx context.Context, obj core.Object) error {
	atomic.AddInt32(&s.putCount, 1)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[obj.ID()] = obj.Bytes()
	return nil
}

func (s *SpyStore) Get(ctx context.Context, id types.ObjectID) (io.ReadCloser, error) {
	atomic.AddInt32(&s.getCount, 1)
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *SpyStore) ExpandHash(ctx context.Context, prefix types.HashPrefix) (types.ObjectID, error) {
	return "", storage.ErrNotFound
}

// -----------------------------------------------------------------------------
// 2. 不需要 Redis 的测试
// -----------------------------------------------------------------------------

func TestCachedStore_CloseWaitsForFills(t *testing.T) {
	ctx := context.Background()
	spy := NewSpyStore()
	blob := core.NewBlob([]byte("fill me"))
	require.NoError(t, spy.Put(ctx, blob))

	// 没有人监听的端口：所有 Redis 调用都立即失败，走降级路径
	cs := &CachedStore{
		backend: spy,
		client:  redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 200 * time.Millisecond}),
		ttl:     time.Minute,
	}

	exists, err := cs.Has(ctx, blob.ID())
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, cs.Close())
	assert.Equal(t, int32(1), atomic.LoadInt32(&spy.getCount), "Close 返回前回填已经读过底层")

	// 关闭之后不再启动回填
	exists, err = cs.Has(ctx, blob.ID())
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, int32(1), atomic.LoadInt32(&spy.getCount))
}

// -----------------------------------------------------------------------------
// 3. 集成测试
// -----------------------------------------------------------------------------

func newCachedStore(t *testing.T, spy *SpyStore) *CachedStore {
	t.Helper()
	redisAddr := "localhost:6379"
	conn, err := net.DialTimeout("tcp", redisAddr, 1*time.Second)
	if err != nil {
		t.Skipf("Skipping Redis integration test: %v", err)
	}
	conn.Close()

	cs, err := NewCachedStore(spy, Config{
		RedisURL: fmt.Sprintf("redis://%s/0", redisAddr),
		TTL:      1 * time.Hour,
	})
	require.NoError(t, err)
	t.Cleanup(func() { cs.Close() })

	// 清理 Redis (防止上次测试残留)
	cs.client.FlushDB(context.Background())
	return cs
}

func TestCachedStore_Integration(t *testing.T) {
	ctx := context.Background()
	spy := NewSpyStore()
	cachedStore := newCachedStore(t, spy)

	blob := core.NewBlob([]byte("cached content"))

	// --- Step 1: Cache Miss ---
	exists, err := cachedStore.Has(ctx, blob.ID())
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Equal(t, int32(1), atomic.LoadInt32(&spy.hasCount), "Backend Has() should be called on miss")

	// --- Step 2: Put (Write-Through) ---
	require.NoError(t, cachedStore.Put(ctx, blob))
	assert.Equal(t, int32(1), atomic.LoadInt32(&spy.putCount), "Backend Put() should be called")

	redisVal, err := cachedStore.client.Exists(ctx, cachedStore.cacheKey(blob.ID())).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), redisVal, "Redis key should be set after Put")

	// --- Step 3: Cache Hit ---
	exists, err = cachedStore.Has(ctx, blob.ID())
	require.NoError(t, err)
	assert.True(t, exists)
	// Put 内部的预检算一次，所以是 2
	assert.Equal(t, int32(2), atomic.LoadInt32(&spy.hasCount), "Backend Has() should NOT be called on hit")

	// --- Step 4: Info 命中不读底层 ---
	info, err := storage.Stat(ctx, cachedStore, blob.ID())
	require.NoError(t, err)
	assert.Equal(t, storage.ObjectInfo{Type: core.TypeBlob, Size: len("cached content")}, info)
	assert.Equal(t, int32(0), atomic.LoadInt32(&spy.getCount))
}

func TestCachedStore_InfoMissFillsCache(t *testing.T) {
	ctx := context.Background()
	spy := NewSpyStore()
	cachedStore := newCachedStore(t, spy)

	// 直接写底层，绕过缓存
	blob := core.NewBlob([]byte("direct"))
	require.NoError(t, spy.Put(ctx, blob))

	info, err := cachedStore.Info(ctx, blob.ID())
	require.NoError(t, err)
	assert.Equal(t, core.TypeBlob, info.Type)
	assert.Equal(t, 6, info.Size)
	assert.Equal(t, int32(1), atomic.LoadInt32(&spy.getCount))

	_, err = cachedStore.Info(ctx, blob.ID())
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&spy.getCount), "第二次查询应该命中缓存")
}
