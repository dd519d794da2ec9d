package job

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"image-pipeline/utils/logger"
)

// Job defines a periodic background job.
type Job struct {
	Name     string
	Interval time.Duration
	Timeout  time.Duration
	Fn       func(ctx context.Context) error
}

// JobScheduler runs periodic jobs until its context is cancelled.
type JobScheduler struct {
	jobs   []Job
	wg     sync.WaitGroup
	logger *slog.Logger
}

// NewJobScheduler creates a new scheduler.
func NewJobScheduler(log *slog.Logger) *JobScheduler {
	if log == nil {
		log = slog.Default()
	}
	return &JobScheduler{logger: log}
}

// Add registers a job to be run when Start is called.
func (s *JobScheduler) Add(j Job) {
	s.jobs = append(s.jobs, j)
}

// Start launches every registered job. Each runs immediately, then at its
// interval, until ctx is cancelled.
func (s *JobScheduler) Start(ctx context.Context) {
	for _, j := range s.jobs {
		s.wg.Add(1)
		go s.runJob(ctx, j)
	}
}

func (s *JobScheduler) runJob(ctx context.Context, j Job) {
	defer s.wg.Done()

	ctx = logger.WithOperation(ctx, j.Name)
	s.executeJob(ctx, j)

	if j.Interval <= 0 {
		return
	}
	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "job stopping", "job", j.Name)
			return
		case <-ticker.C:
			s.executeJob(ctx, j)
		}
	}
}

func (s *JobScheduler) executeJob(ctx context.Context, j Job) {
	if ctx.Err() != nil {
		return
	}

	jobCtx := ctx
	if j.Timeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}

	start := time.Now()
	if err := s.safeRun(jobCtx, j); err != nil {
		s.logger.ErrorContext(ctx, "job failed",
			"job", j.Name,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err)
		return
	}
	s.logger.DebugContext(ctx, "job completed",
		"job", j.Name,
		"duration_ms", time.Since(start).Milliseconds())
}

func (s *JobScheduler) safeRun(ctx context.Context, j Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", j.Name, r)
		}
	}()
	return j.Fn(ctx)
}

// Shutdown blocks until all running jobs complete.
func (s *JobScheduler) Shutdown() {
	s.wg.Wait()
}
