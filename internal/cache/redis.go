package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/williampepple1/listings-scraper/pkg/models"
)

const redisKeyPrefix = "listings:"

// RedisStore keeps cache entries in Redis under the same normalized keys.
// Keys carry no expiry; staleness is decided from the stored write time.
type RedisStore struct {
	client *redis.Client
	TTL    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewRedisStore creates a Redis-backed cache on an existing client
func NewRedisStore(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{
		client: client,
		TTL:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// Ping checks the connection to Redis
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) key(destination, date string) string {
	return redisKeyPrefix + Key(destination, date)
}

// Get returns a fresh cached result set, or false on miss, expiry, corruption
// or an unreachable server
func (s *RedisStore) Get(ctx context.Context, destination, date string) (*models.ResultSet, bool) {
	data, err := s.client.Get(ctx, s.key(destination, date)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("redis cache read failed", zap.String("destination", destination), zap.Error(err))
		}
		return nil, false
	}

	rs, err := decodeEntry(data, s.now(), s.TTL)
	if err != nil {
		if !errors.Is(err, errStale) {
			s.logger.Warn("invalid redis cache entry", zap.String("destination", destination), zap.Error(err))
		}
		return nil, false
	}
	return rs, true
}

// Put overwrites the entry for a search. Failures are logged and dropped.
func (s *RedisStore) Put(ctx context.Context, destination, date string, rs *models.ResultSet) {
	data, err := encodeEntry(rs, s.now())
	if err != nil {
		s.logger.Warn("redis cache encode failed", zap.Error(err))
		return
	}
	if err := s.client.Set(ctx, s.key(destination, date), data, 0).Err(); err != nil {
		s.logger.Warn("redis cache write failed", zap.String("destination", destination), zap.Error(err))
	}
}
