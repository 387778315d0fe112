package cache

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestKeys(t *testing.T) {
	cache := &Cache{}

	if got := cache.LockKey(); got != "social-comb:run:lock" {
		t.Errorf("Expected default lock key, got %s", got)
	}
	if got := cache.LastRunKey(); got != "social-comb:run:last" {
		t.Errorf("Expected default last run key, got %s", got)
	}

	custom := &Cache{prefix: "staging"}
	if !strings.HasPrefix(custom.LockKey(), "staging:") {
		t.Errorf("Expected custom prefix, got %s", custom.LockKey())
	}
	if custom.LockKey() == custom.LastRunKey() {
		t.Error("Expected lock and last run keys to differ")
	}
}

func TestDecodeRunReport(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr bool
	}{
		{
			name: "full report",
			data: `{"run_id":"abc","started_at":"2026-01-01T00:00:00Z","finished_at":"2026-01-01T00:00:05Z",` +
				`"fetched":{"X":10,"YouTube":5},"attempted":15,"inserted":12,"failed":1}`,
		},
		{
			name:    "not json",
			data:    "garbage",
			wantErr: true,
		},
		{
			name:    "missing run id",
			data:    `{"attempted":3}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := decodeRunReport([]byte(tt.data))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Expected error, got report %+v", report)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if report.RunID != "abc" || report.Attempted != 15 || report.Inserted != 12 || report.Failed != 1 {
				t.Errorf("Unexpected report: %+v", report)
			}
			if report.Fetched["X"] != 10 || report.Fetched["YouTube"] != 5 {
				t.Errorf("Unexpected fetched counts: %v", report.Fetched)
			}
			if report.Duration() != 5*time.Second {
				t.Errorf("Expected 5s duration, got %s", report.Duration())
			}
		})
	}
}

func TestNewCacheUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cache, err := NewCache(ctx, "127.0.0.1:1", "")
	if err == nil {
		cache.Close()
		t.Fatal("Expected error for unreachable Redis")
	}
	if !strings.Contains(err.Error(), "failed to connect to Redis") {
		t.Errorf("Unexpected error: %v", err)
	}
}
