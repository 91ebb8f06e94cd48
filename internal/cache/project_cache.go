// Package cache keeps the public project list in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"seyon/internal/config"
	"seyon/internal/metrics"
	"seyon/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	projectListKey       = "seyon:projects:list"
	projectGenerationKey = "seyon:projects:generation"
	defaultTTL           = 5 * time.Minute
)

// unknownGeneration is returned by Get when Redis could not be read. Set
// never stores a list under it.
const unknownGeneration int64 = -1

var errStaleGeneration = errors.New("project list generation changed")

// NewRedisClient connects to Redis and checks the connection.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// ProjectCache stores the serialized project list under a single key.
// Redis failures degrade to cache misses and are only logged.
type ProjectCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// NewProjectCache creates a ProjectCache. A non-positive ttl uses five minutes.
func NewProjectCache(client *redis.Client, ttl time.Duration, log *zap.Logger) *ProjectCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &ProjectCache{client: client, ttl: ttl, log: log}
}

// Get returns the cached list, the generation it was read under and whether
// the list was present. The generation is returned on a miss too, so the
// caller can hand it back to Set after loading the list from the store.
func (c *ProjectCache) Get(ctx context.Context) ([]models.Project, int64, bool) {
	values, err := c.client.MGet(ctx, projectGenerationKey, projectListKey).Result()
	if err != nil {
		c.log.Warn("project cache read failed", zap.Error(err))
		metrics.ProjectListCache.WithLabelValues("miss").Inc()
		return nil, unknownGeneration, false
	}

	generation, err := parseGeneration(values[0])
	if err != nil {
		c.log.Warn("project cache generation unreadable", zap.Error(err))
		metrics.ProjectListCache.WithLabelValues("miss").Inc()
		return nil, unknownGeneration, false
	}

	data, ok := values[1].(string)
	if !ok {
		metrics.ProjectListCache.WithLabelValues("miss").Inc()
		return nil, generation, false
	}

	var projects []models.Project
	if err := json.Unmarshal([]byte(data), &projects); err != nil {
		c.log.Warn("discarding corrupt project cache entry", zap.Error(err))
		c.Invalidate(ctx)
		metrics.ProjectListCache.WithLabelValues("miss").Inc()
		return nil, unknownGeneration, false
	}
	metrics.ProjectListCache.WithLabelValues("hit").Inc()
	return projects, generation, true
}

// Set replaces the cached list if no Invalidate ran since generation was
// read. The check and the write happen in one WATCH/MULTI transaction.
func (c *ProjectCache) Set(ctx context.Context, generation int64, projects []models.Project) {
	if generation < 0 {
		return
	}
	data, err := json.Marshal(projects)
	if err != nil {
		c.log.Warn("failed to marshal project list", zap.Error(err))
		return
	}

	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, projectGenerationKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != generation {
			return errStaleGeneration
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, projectListKey, data, c.ttl)
			return nil
		})
		return err
	}, projectGenerationKey)

	switch {
	case err == nil:
	case errors.Is(err, errStaleGeneration), errors.Is(err, redis.TxFailedErr):
		c.log.Debug("skipping stale project list", zap.Int64("generation", generation))
	default:
		c.log.Warn("project cache write failed", zap.Error(err))
	}
}

// Invalidate bumps the generation and drops the cached list.
func (c *ProjectCache) Invalidate(ctx context.Context) {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, projectGenerationKey)
		pipe.Del(ctx, projectListKey)
		return nil
	})
	if err != nil {
		c.log.Warn("project cache invalidation failed", zap.Error(err))
	}
}

func parseGeneration(v interface{}) (int64, error) {
	if v == nil {
		return 0, nil
	}
	s, ok := v.(string)
	if !ok {
		return 0, fmt.Errorf("unexpected generation value %T", v)
	}
	return strconv.ParseInt(s, 10, 64)
}
