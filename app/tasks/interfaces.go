package tasks

import (
	"context"
	"time"

	"github.com/lysyi3m/social-comb/app/pipeline"
)

// TaskSchedulerInterface defines the driver operations used by main and the HTTP API.
// At most one ingestion run is queued or running at any time.
// Example usage:
//
//	scheduler := NewScheduler(newIngestTask, 15*time.Minute, 10*time.Minute)
//	scheduler.Start()
//	defer scheduler.Stop()
//	runID, err := scheduler.TriggerRun()
type TaskSchedulerInterface interface {
	Start()
	Stop()
	TriggerRun() (string, error)
	IsRunActive() bool
}

// Runner performs one ingestion run.
type Runner interface {
	Run(ctx context.Context, runID string) (pipeline.RunReport, error)
}

// RunLocker guards against concurrent runs across processes.
type RunLocker interface {
	Acquire(ctx context.Context, token string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, token string) error
}

// RunRecorder receives the report of every completed run.
type RunRecorder interface {
	RecordRun(ctx context.Context, report pipeline.RunReport) error
}
