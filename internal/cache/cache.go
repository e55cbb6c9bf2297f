package cache

import (
	"context"
	"fmt"
	"time"

	"PropSync/internal/config"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// TypeRoster 名册缓存的数据类型
const TypeRoster = "roster"

// Key 缓存键，Week=0 表示整季数据
type Key struct {
	DataType string
	Season   int
	Week     int
}

func (k Key) String() string {
	return fmt.Sprintf("propsync:%s:%d:%d", k.DataType, k.Season, k.Week)
}

// Store 缓存存储后端
type Store interface {
	// Get 未命中或已过期时返回 ok=false
	Get(ctx context.Context, key Key) (data []byte, ok bool, err error)
	Set(ctx context.Context, key Key, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key Key) error
}

// NewStore 按配置选择后端：redis 或数据库 cached_data 表
func NewStore(cfg *config.CacheConfig, db *gorm.DB, logger *logrus.Logger) Store {
	if cfg.Backend == "redis" {
		logger.WithField("addr", cfg.RedisAddr).Info("参考数据缓存使用 Redis")
		return NewRedisStore(redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPass,
			DB:       cfg.RedisDB,
		}))
	}
	return NewGormStore(db)
}

// Cache 带 TTL 与强制刷新的读穿缓存
type Cache struct {
	store  Store
	ttl    time.Duration
	logger *logrus.Logger
}

func New(store Store, ttl time.Duration, logger *logrus.Logger) *Cache {
	return &Cache{store: store, ttl: ttl, logger: logger}
}

// Load refresh=false 且命中未过期时直接返回缓存，否则调用 fetch 并回写
// 缓存读写失败只记日志，不影响返回 fetch 结果
func (c *Cache) Load(ctx context.Context, key Key, refresh bool, fetch func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	if !refresh {
		data, ok, err := c.store.Get(ctx, key)
		if err != nil {
			c.logger.WithError(err).WithField("key", key.String()).Warn("读取缓存失败，回源")
		} else if ok {
			return data, nil
		}
	}

	data, err := fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("回源失败(%s): %w", key, err)
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.WithError(err).WithField("key", key.String()).Warn("写入缓存失败")
	}
	return data, nil
}

// Invalidate 删除缓存项
func (c *Cache) Invalidate(ctx context.Context, key Key) error {
	return c.store.Delete(ctx, key)
}
