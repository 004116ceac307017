// Package cache memoizes analysis reports in Redis, keyed by the analysed day
// and a digest of the inputs, so repeated refreshes over unchanged data skip
// recomputation.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"cio-consistency/internal/analysis"
	"cio-consistency/internal/config"
)

// ReportCache stores JSON encoded reports with a TTL.
type ReportCache struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// New wraps a redis client. A nil client yields a cache that never hits.
func New(client redis.Cmdable, prefix string, ttl time.Duration) *ReportCache {
	if prefix == "" {
		prefix = "ciowatch:report"
	}
	return &ReportCache{client: client, prefix: prefix, ttl: ttl}
}

// NewClient builds a redis client from configuration.
func NewClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
}

// Key identifies a report by window start and input digest.
func (c *ReportCache) Key(w analysis.Window, inputHash string) string {
	if c == nil {
		return ""
	}
	return fmt.Sprintf("%s:%s:%s", c.prefix, w.Label(), inputHash)
}

// Get returns the cached report, if any.
func (c *ReportCache) Get(ctx context.Context, key string) (analysis.Report, bool, error) {
	if c == nil || c.client == nil {
		return analysis.Report{}, false, nil
	}

	payload, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return analysis.Report{}, false, nil
	}
	if err != nil {
		return analysis.Report{}, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	var report analysis.Report
	if err := json.Unmarshal([]byte(payload), &report); err != nil {
		return analysis.Report{}, false, fmt.Errorf("decode cached report: %w", err)
	}
	return report, true, nil
}

// Set stores the report under key.
func (c *ReportCache) Set(ctx context.Context, key string, report analysis.Report) error {
	if c == nil || c.client == nil {
		return nil
	}

	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := c.client.Set(ctx, key, string(payload), c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}
