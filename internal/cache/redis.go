package cache

import (
	"context"
	"sync"
	"time"

	"checklist-tracker/internal/config"
	"checklist-tracker/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const (
	catalogCacheKey    = "checklist:catalog"
	recordCachePrefix  = "checklist:record:"
	versionCachePrefix = "checklist:recver:"
	versionTTL         = 48 * time.Hour
	asyncSetTimeout    = 2 * time.Second
)

// setIfVersion writes KEYS[1] only while the version counter KEYS[2] still
// equals ARGV[1]. ARGV[3] is the TTL in seconds (0 = no expiry).
var setIfVersion = redis.NewScript(`
local cur = tonumber(redis.call('GET', KEYS[2]) or '0')
if cur ~= tonumber(ARGV[1]) then
	return 0
end
if tonumber(ARGV[3]) > 0 then
	redis.call('SET', KEYS[1], ARGV[2], 'EX', ARGV[3])
else
	redis.call('SET', KEYS[1], ARGV[2])
end
return 1
`)

var (
	client *redis.Client
	once   sync.Once
)

// Client returns the global Redis client (initialized on first use). Nil when Redis is unreachable.
func Client(ctx context.Context) *redis.Client {
	once.Do(func() {
		cfg := config.Get()
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error(ctx, "Invalid REDIS_URL", "error", err, "url", cfg.RedisURL)
			return
		}
		opts.PoolSize = cfg.RedisPoolSize
		c := redis.NewClient(opts)
		if err := c.Ping(ctx).Err(); err != nil {
			logger.Warn(ctx, "Redis ping failed; cache disabled", "error", err)
			_ = c.Close()
			return
		}
		client = c
		logger.Info(ctx, "Redis client initialized", "pool_size", cfg.RedisPoolSize)
	})
	return client
}

// Use installs c as the global client, replacing lazy initialization.
func Use(c *redis.Client) {
	once.Do(func() {})
	client = c
}

// RecordKey returns the cache key of a daily record.
func RecordKey(recordKey string) string {
	return recordCachePrefix + recordKey
}

func versionKey(recordKey string) string {
	return versionCachePrefix + recordKey
}

// GetRawCatalog returns the cached catalog JSON. Returns (nil, false) on miss or error.
func GetRawCatalog(ctx context.Context) ([]byte, bool) {
	return getRaw(ctx, catalogCacheKey)
}

// SetRawCatalogAsync caches the catalog JSON without blocking the caller's request.
func SetRawCatalogAsync(b []byte) {
	setRawAsync(catalogCacheKey, b)
}

// InvalidateCatalog drops the cached catalog so the next read goes to the DB.
func InvalidateCatalog(ctx context.Context) {
	del(ctx, catalogCacheKey)
}

// GetRawRecord returns the cached JSON of one daily record.
func GetRawRecord(ctx context.Context, recordKey string) ([]byte, bool) {
	return getRaw(ctx, RecordKey(recordKey))
}

// RecordVersion returns the invalidation counter of one daily record. Read it
// before loading the record from the DB and pass it to SetRawRecordIfCurrent.
// ok is false when Redis is unavailable.
func RecordVersion(ctx context.Context, recordKey string) (int64, bool) {
	c := Client(ctx)
	if c == nil {
		return 0, false
	}
	v, err := c.Get(ctx, versionKey(recordKey)).Int64()
	if err == redis.Nil {
		return 0, true
	}
	if err != nil {
		logger.Debug(ctx, "Redis version read failed", "error", err, "key", recordKey)
		return 0, false
	}
	return v, true
}

// SetRawRecordIfCurrent caches one daily record's JSON unless the record was
// invalidated after version was read. Reports whether the value was stored.
func SetRawRecordIfCurrent(ctx context.Context, recordKey string, version int64, b []byte) bool {
	c := Client(ctx)
	if c == nil {
		return false
	}
	ttl := config.Get().CacheTTL
	if ttl < 0 {
		ttl = 0
	}
	n, err := setIfVersion.Run(ctx, c,
		[]string{RecordKey(recordKey), versionKey(recordKey)},
		version, b, ttl,
	).Int()
	if err != nil {
		logger.Debug(ctx, "Redis versioned set failed", "error", err, "key", recordKey)
		return false
	}
	return n == 1
}

// SetRawRecordIfCurrentAsync is SetRawRecordIfCurrent off the request path.
func SetRawRecordIfCurrentAsync(recordKey string, version int64, b []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), asyncSetTimeout)
	defer cancel()
	if !SetRawRecordIfCurrent(ctx, recordKey, version, b) {
		logger.Debug(ctx, "Skipped caching record", "key", recordKey, "version", version)
	}
}

// InvalidateRecord drops one cached daily record and bumps its version so an
// in-flight read that loaded the old row cannot repopulate the cache.
func InvalidateRecord(ctx context.Context, recordKey string) {
	c := Client(ctx)
	if c == nil {
		return
	}
	_, err := c.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, versionKey(recordKey))
		pipe.Expire(ctx, versionKey(recordKey), versionTTL)
		pipe.Del(ctx, RecordKey(recordKey))
		return nil
	})
	if err != nil {
		logger.Debug(ctx, "Redis invalidate failed", "error", err, "key", recordKey)
	}
}

func getRaw(ctx context.Context, key string) ([]byte, bool) {
	c := Client(ctx)
	if c == nil {
		return nil, false
	}
	b, err := c.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		logger.Debug(ctx, "Redis get failed", "error", err, "key", key)
		return nil, false
	}
	return b, true
}

func setRawAsync(key string, b []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), asyncSetTimeout)
	defer cancel()
	c := Client(ctx)
	if c == nil {
		return
	}
	ttl := time.Duration(config.Get().CacheTTL) * time.Second
	if err := c.Set(ctx, key, b, ttl).Err(); err != nil {
		logger.Debug(ctx, "Redis set failed", "error", err, "key", key)
	}
}

func del(ctx context.Context, key string) {
	c := Client(ctx)
	if c == nil {
		return
	}
	if err := c.Del(ctx, key).Err(); err != nil {
		logger.Debug(ctx, "Redis invalidate failed", "error", err, "key", key)
	}
}
