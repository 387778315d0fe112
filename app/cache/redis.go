package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"

	"github.com/lysyi3m/social-comb/app/pipeline"
)

const (
	DefaultKeyPrefix = "social-comb"
	lastRunTTL       = 7 * 24 * time.Hour
)

var _ CacheInterface = (*Cache)(nil)

// releaseScript deletes the lock only when it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Cache wraps Redis client for the run lock and last run summary
type Cache struct {
	client *redis.Client
	prefix string
}

// NewCache connects to Redis and instruments the client for tracing
func NewCache(ctx context.Context, addr, password string) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if err := redisotel.InstrumentTracing(client); err != nil {
		slog.Warn("Failed to instrument Redis tracing", "error", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	slog.Info("Connected to Redis", "addr", addr)

	return &Cache{
		client: client,
		prefix: DefaultKeyPrefix,
	}, nil
}

func (c *Cache) LockKey() string {
	return fmt.Sprintf("%s:run:lock", c.keyPrefix())
}

func (c *Cache) LastRunKey() string {
	return fmt.Sprintf("%s:run:last", c.keyPrefix())
}

func (c *Cache) keyPrefix() string {
	if c.prefix == "" {
		return DefaultKeyPrefix
	}
	return c.prefix
}

// Acquire takes the run lock for token. It reports false when another run holds it.
func (c *Cache) Acquire(ctx context.Context, token string, ttl time.Duration) (bool, error) {
	ok, err := c.client.SetNX(ctx, c.LockKey(), token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", c.LockKey(), err)
	}
	return ok, nil
}

func (c *Cache) Release(ctx context.Context, token string) error {
	deleted, err := releaseScript.Run(ctx, c.client, []string{c.LockKey()}, token).Int()
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", c.LockKey(), err)
	}
	if deleted == 0 {
		slog.Debug("Run lock already expired or taken over", "token", token)
	}
	return nil
}

// RecordRun stores report as the last run summary
func (c *Cache) RecordRun(ctx context.Context, report pipeline.RunReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal run report %s: %w", report.RunID, err)
	}

	if err := c.client.Set(ctx, c.LastRunKey(), data, lastRunTTL).Err(); err != nil {
		return fmt.Errorf("failed to set key %s: %w", c.LastRunKey(), err)
	}
	return nil
}

// LastRun returns nil without error when no run has been recorded
func (c *Cache) LastRun(ctx context.Context) (*pipeline.RunReport, error) {
	data, err := c.client.Get(ctx, c.LastRunKey()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get key %s: %w", c.LastRunKey(), err)
	}

	report, err := decodeRunReport(data)
	if err != nil {
		// Invalid data format, delete and treat as missing
		c.client.Del(ctx, c.LastRunKey())
		slog.Warn("Discarding unreadable last run summary", "key", c.LastRunKey(), "error", err)
		return nil, nil
	}
	return report, nil
}

func decodeRunReport(data []byte) (*pipeline.RunReport, error) {
	var report pipeline.RunReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, err
	}
	if report.RunID == "" {
		return nil, fmt.Errorf("run report without run_id")
	}
	return &report, nil
}

// Health returns cache health information
func (c *Cache) Health(ctx context.Context) map[string]interface{} {
	health := map[string]interface{}{
		"status": "healthy",
		"type":   "redis",
	}

	if err := c.client.Ping(ctx).Err(); err != nil {
		health["status"] = "unhealthy"
		health["error"] = err.Error()
		return health
	}

	if holder, err := c.client.Get(ctx, c.LockKey()).Result(); err == nil {
		health["active_run"] = holder
	}

	return health
}

func (c *Cache) Close() error {
	return c.client.Close()
}
