package cache

import (
	"context"
	"time"

	"github.com/lysyi3m/social-comb/app/pipeline"
)

// CacheInterface defines the Redis-backed run coordination used by the driver and the API
type CacheInterface interface {
	Acquire(ctx context.Context, token string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, token string) error
	RecordRun(ctx context.Context, report pipeline.RunReport) error
	LastRun(ctx context.Context) (*pipeline.RunReport, error)
	Health(ctx context.Context) map[string]interface{}
	Close() error
}
