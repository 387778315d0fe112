package api

import (
	"context"

	"github.com/lysyi3m/social-comb/app/database"
	"github.com/lysyi3m/social-comb/app/pipeline"
	"github.com/lysyi3m/social-comb/app/tasks"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

type RunHistory interface {
	LastRun(ctx context.Context) (*pipeline.RunReport, error)
}

type HealthReporter interface {
	Health(ctx context.Context) map[string]interface{}
}

var _ RunHistory = (*tasks.MemoryRecorder)(nil)

type Handler struct {
	postRepo  database.PostRepository
	scheduler tasks.TaskSchedulerInterface
	history   RunHistory
	cache     HealthReporter
}

type runResponse struct {
	RunID   string `json:"run_id"`
	Message string `json:"message"`
}
