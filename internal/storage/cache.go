package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/retail-rfm/internal/domain"
	"github.com/ignite/retail-rfm/internal/pkg/logger"
)

const latestReportKey = "rfm:report:latest"

// ReportCache keeps the latest report in Redis so API reads skip the
// backing store.
type ReportCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewReportCache creates a cache with the given entry TTL.
func NewReportCache(client *redis.Client, ttl time.Duration) *ReportCache {
	return &ReportCache{client: client, ttl: ttl}
}

// Set stores report as the latest.
func (c *ReportCache) Set(ctx context.Context, report *domain.RunReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	return c.client.Set(ctx, latestReportKey, data, c.ttl).Err()
}

// Get returns ErrNotFound on a cache miss.
func (c *ReportCache) Get(ctx context.Context) (*domain.RunReport, error) {
	data, err := c.client.Get(ctx, latestReportKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var report domain.RunReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("unmarshaling cached report: %w", err)
	}
	return &report, nil
}

// Invalidate drops the cached report.
func (c *ReportCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, latestReportKey).Err()
}

// CachedSink reads through a ReportCache in front of another sink.
// Cache failures are logged and never fail the call.
type CachedSink struct {
	Sink
	cache *ReportCache
}

// NewCachedSink wraps sink with cache.
func NewCachedSink(sink Sink, cache *ReportCache) *CachedSink {
	return &CachedSink{Sink: sink, cache: cache}
}

// Save persists to the backing sink, then primes the cache.
func (s *CachedSink) Save(ctx context.Context, report *domain.RunReport) (string, error) {
	loc, err := s.Sink.Save(ctx, report)
	if err != nil {
		return "", err
	}
	if err := s.cache.Set(ctx, report); err != nil {
		logger.Warn("report cache set failed", "component", "storage", "error", err.Error())
	}
	return loc, nil
}

// Latest serves from the cache, falling back to the backing sink on a miss.
func (s *CachedSink) Latest(ctx context.Context) (*domain.RunReport, error) {
	report, err := s.cache.Get(ctx)
	if err == nil {
		return report, nil
	}
	if !errors.Is(err, ErrNotFound) {
		logger.Warn("report cache get failed", "component", "storage", "error", err.Error())
	}

	report, err = s.Sink.Latest(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, report); err != nil {
		logger.Warn("report cache set failed", "component", "storage", "error", err.Error())
	}
	return report, nil
}
