package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"gitvault/pkg/core"
	"gitvault/pkg/storage"
	"gitvault/pkg/types"

	"github.com/fxamacker/cbor/v2"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "gv:obj:"

// CachedStore 是一个装饰器，它为底层的 storage.Store 添加 Redis 缓存层
// Redis 里只存对象的元数据 (CBOR 编码的 storage.ObjectInfo)，不存内容。
type CachedStore struct {
	backend storage.Store // 被装饰的底层存储 (磁盘或 S3)
	client  *redis.Client
	ttl     time.Duration

	// 后台回填任务；Close 之后不再启动新的
	mu     sync.Mutex
	closed bool
	fills  sync.WaitGroup
}

type Config struct {
	RedisURL string        // 标准连接字符串: redis://<user>:<password>@<host>:<port>/<db>
	TTL      time.Duration // 过期时间
}

func NewCachedStore(backend storage.Store, cfg Config) (*CachedStore, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	// Fail-fast 连接检查
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &CachedStore{
		backend: backend,
		client:  client,
		ttl:     cfg.TTL,
	}, nil
}

// cacheKey 生成 Redis Key，添加前缀防止冲突
func (s *CachedStore) cacheKey(id types.ObjectID) string {
	return keyPrefix + string(id)
}

// Close 等待进行中的回填结束后再关闭 Redis 连接
func (s *CachedStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.fills.Wait()
	return s.client.Close()
}

// Has 优先查 Redis
func (s *CachedStore) Has(ctx context.Context, id types.ObjectID) (bool, error) {
	key := s.cacheKey(id)

	val, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		// 缓存故障降级：Redis 不可用时直接查底层存储
		slog.Warn("redis exists failed, falling back to backend", "id", id, "error", err)
	} else if val > 0 {
		return true, nil
	}

	found, err := s.backend.Has(ctx, id)
	if err != nil {
		return false, err
	}

	// 缓存回填：异步进行，不阻塞主流程
	if found {
		s.goFill(id)
	}
	return found, nil
}

func (s *CachedStore) goFill(id types.ObjectID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.fills.Go(func() { s.fill(id) })
}

func (s *CachedStore) fill(id types.ObjectID) {
	// 使用 context.Background() 确保即使上层 ctx 取消，回填也能完成
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	info, err := storage.ReadInfo(ctx, s.backend, id)
	if err != nil {
		slog.Debug("cache fill skipped", "id", id, "error", err)
		return
	}
	s.set(ctx, id, info)
}

func (s *CachedStore) set(ctx context.Context, id types.ObjectID, info storage.ObjectInfo) {
	data, err := cbor.Marshal(info)
	if err != nil {
		slog.Warn("cbor encode object info failed", "id", id, "error", err)
		return
	}
	// Set 的错误可以忽略，不影响主流程
	if err := s.client.Set(ctx, s.cacheKey(id), data, s.ttl).Err(); err != nil {
		slog.Warn("redis set failed", "id", id, "error", err)
	}
}

// Put 上传对象。利用 Has 的缓存能力进行预检。
func (s *CachedStore) Put(ctx context.Context, obj core.Object) error {
	exists, err := s.Has(ctx, obj.ID())
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	if err := s.backend.Put(ctx, obj); err != nil {
		return err
	}

	// 只有底层写成功了，才写 Redis
	s.set(ctx, obj.ID(), storage.ObjectInfo{Type: obj.Type(), Size: len(core.Payload(obj))})
	return nil
}

// Info 实现 storage.InfoStore：命中时不需要访问底层存储
func (s *CachedStore) Info(ctx context.Context, id types.ObjectID) (storage.ObjectInfo, error) {
	data, err := s.client.Get(ctx, s.cacheKey(id)).Bytes()
	switch {
	case err == nil:
		var info storage.ObjectInfo
		if err := cbor.Unmarshal(data, &info); err == nil && info.Type != "" {
			return info, nil
		}
		// 旧格式或损坏的值，按未命中处理
	case !errors.Is(err, redis.Nil):
		slog.Warn("redis get failed, falling back to backend", "id", id, "error", err)
	}

	info, err := storage.ReadInfo(ctx, s.backend, id)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	s.set(ctx, id, info)
	return info, nil
}

// Get 透传：只缓存元数据，不缓存内容
func (s *CachedStore) Get(ctx context.Context, id types.ObjectID) (io.ReadCloser, error) {
	return s.backend.Get(ctx, id)
}

// ExpandHash 透传
func (s *CachedStore) ExpandHash(ctx context.Context, prefix types.HashPrefix) (types.ObjectID, error) {
	return s.backend.ExpandHash(ctx, prefix)
}
