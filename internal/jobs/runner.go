package jobs

import (
	"context"
	"log/slog"
	"time"
)

// Job is a named unit of periodic work.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// RunOnce executes job, records metrics, and logs failures.
func RunOnce(ctx context.Context, job Job, metrics *Metrics) error {
	start := time.Now()
	err := job.Run(ctx)
	metrics.observe(job.Name, time.Since(start).Seconds(), err)
	if err != nil {
		slog.ErrorContext(ctx, "background job failed", "job", job.Name, "error", err)
	}
	return err
}

// Every runs job immediately and then every interval until ctx is done.
// It blocks; failures are logged and the schedule continues.
func Every(ctx context.Context, interval time.Duration, job Job, metrics *Metrics) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	_ = RunOnce(ctx, job, metrics)
	for {
		select {
		case <-ctx.Done():
			slog.Debug("stopping background job", "job", job.Name)
			return
		case <-ticker.C:
			_ = RunOnce(ctx, job, metrics)
		}
	}
}
