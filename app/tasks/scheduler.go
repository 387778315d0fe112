package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

var ErrRunInProgress = errors.New("run already in progress")

var _ TaskSchedulerInterface = (*Scheduler)(nil)

// Scheduler starts an ingestion task on every tick and retries failed runs.
// A run that is queued, running or waiting for a retry blocks new runs.
type Scheduler struct {
	newTask     func() TaskInterface
	interval    time.Duration
	taskTimeout time.Duration
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface
	active      atomic.Bool
}

func NewScheduler(newTask func() TaskInterface, interval, taskTimeout time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		newTask:     newTask,
		interval:    interval,
		taskTimeout: taskTimeout,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, 1),
	}
}

func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.worker(0)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueScheduledRun()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueScheduledRun()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

// TriggerRun enqueues a run now and returns its id.
func (s *Scheduler) TriggerRun() (string, error) {
	if !s.active.CompareAndSwap(false, true) {
		return "", ErrRunInProgress
	}

	task := s.newTask()
	if err := s.enqueue(task); err != nil {
		s.active.Store(false)
		return "", err
	}
	return task.GetID(), nil
}

func (s *Scheduler) IsRunActive() bool {
	return s.active.Load()
}

func (s *Scheduler) enqueueScheduledRun() {
	runID, err := s.TriggerRun()
	if errors.Is(err, ErrRunInProgress) {
		slog.Info("Previous run still active, skipping scheduled run")
		return
	}
	if err != nil {
		slog.Warn("Failed to enqueue scheduled run", "error", err)
		return
	}
	slog.Debug("Scheduled run enqueued", "run_id", runID)
}

func (s *Scheduler) enqueue(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	err := runAttempt(s.ctx, task, s.taskTimeout)
	if err == nil {
		s.active.Store(false)
		return
	}

	slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

	if !task.CanRetry() {
		slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		s.active.Store(false)
		return
	}

	task.IncrementRetryCount()
	retryDelay := task.GetRetryDelay()

	slog.Warn("Task retry scheduled", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		select {
		case <-s.ctx.Done():
			slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
			s.active.Store(false)
			return
		case <-time.After(retryDelay):
		}

		if retryErr := s.enqueue(task); retryErr != nil {
			slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
			s.active.Store(false)
		}
	}()
}

// RunOnce executes task synchronously, retrying with the task's delay, and
// returns the last error once retries are exhausted.
func RunOnce(ctx context.Context, task TaskInterface, taskTimeout time.Duration) error {
	for {
		err := runAttempt(ctx, task, taskTimeout)
		if err == nil {
			return nil
		}

		slog.Error("Task execution failed", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

		if !task.CanRetry() {
			return fmt.Errorf("task %s failed after %d retries: %w", task.GetID(), task.GetRetryCount(), err)
		}

		task.IncrementRetryCount()
		slog.Warn("Task retry scheduled", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "delay", task.GetRetryDelay().String())

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(task.GetRetryDelay()):
		}
	}
}

func runAttempt(ctx context.Context, task TaskInterface, timeout time.Duration) error {
	task.Start()

	taskCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return task.Execute(taskCtx)
}
