package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/leadstream/amocrm-sheets-sync/internal/infra/integration/amocrm"
)

// PipelineCache keeps the pipeline/status catalog in Redis per account
// subdomain. Cache failures are logged and treated as misses.
type PipelineCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewPipelineCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *PipelineCache {
	return &PipelineCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *PipelineCache) Get(ctx context.Context, subdomain string) ([]amocrm.Pipeline, bool) {
	data, err := c.client.Get(ctx, key(subdomain)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("pipeline cache read failed", zap.Error(err))
		}
		return nil, false
	}

	var pipelines []amocrm.Pipeline
	if err := json.Unmarshal(data, &pipelines); err != nil {
		c.logger.Warn("pipeline cache entry corrupt, dropping", zap.Error(err))
		_ = c.client.Del(ctx, key(subdomain)).Err()
		return nil, false
	}
	return pipelines, true
}

func (c *PipelineCache) Set(ctx context.Context, subdomain string, pipelines []amocrm.Pipeline) {
	data, err := json.Marshal(pipelines)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key(subdomain), data, c.ttl).Err(); err != nil {
		c.logger.Warn("pipeline cache write failed", zap.Error(err))
	}
}

func key(subdomain string) string {
	if subdomain == "" {
		subdomain = "_default"
	}
	return "amocrm:pipelines:" + subdomain
}
