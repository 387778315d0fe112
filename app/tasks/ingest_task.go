package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/social-comb/app/pipeline"
)

type IngestTask struct {
	Task
	runner    Runner
	locker    RunLocker
	lockTTL   time.Duration
	recorders []RunRecorder
}

type IngestTaskOption func(*IngestTask)

func WithLocker(locker RunLocker, ttl time.Duration) IngestTaskOption {
	return func(t *IngestTask) {
		t.locker = locker
		t.lockTTL = ttl
	}
}

func WithRecorders(recorders ...RunRecorder) IngestTaskOption {
	return func(t *IngestTask) {
		t.recorders = append(t.recorders, recorders...)
	}
}

func WithRetries(maxRetries int, delay time.Duration) IngestTaskOption {
	return func(t *IngestTask) {
		t.MaxRetries = maxRetries
		t.RetryDelay = delay
	}
}

func NewIngestTask(runner Runner, opts ...IngestTaskOption) *IngestTask {
	t := &IngestTask{
		Task:    NewTask(TaskTypeIngest),
		runner:  runner,
		lockTTL: 30 * time.Minute,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *IngestTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if t.locker != nil {
		acquired, err := t.locker.Acquire(ctx, t.ID, t.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire run lock: %w", err)
		}
		if !acquired {
			slog.Warn("Run already in progress elsewhere, skipping", "run_id", t.ID)
			return nil
		}
		defer func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := t.locker.Release(releaseCtx, t.ID); err != nil {
				slog.Warn("Failed to release run lock", "run_id", t.ID, "error", err)
			}
		}()
	}

	report, err := t.runner.Run(ctx, t.ID)
	if err != nil {
		return fmt.Errorf("ingestion run failed: %w", err)
	}

	slog.Info("Task completed",
		"type", string(t.Type),
		"run_id", t.ID,
		"attempt", t.RetryCount+1,
		"duration", t.GetDuration(),
		"fetched", report.Fetched,
		"attempted", report.Attempted,
		"inserted", report.Inserted,
		"failed", report.Failed)

	for _, r := range t.recorders {
		if err := r.RecordRun(ctx, report); err != nil {
			slog.Warn("Failed to record run", "run_id", t.ID, "error", err)
		}
	}

	return nil
}

// MemoryRecorder keeps the last run report in process.
type MemoryRecorder struct {
	mu   sync.RWMutex
	last *pipeline.RunReport
}

func (m *MemoryRecorder) RecordRun(ctx context.Context, report pipeline.RunReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = &report
	return nil
}

func (m *MemoryRecorder) LastRun(ctx context.Context) (*pipeline.RunReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.last == nil {
		return nil, nil
	}
	report := *m.last
	return &report, nil
}
