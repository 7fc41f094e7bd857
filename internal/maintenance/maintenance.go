// Package maintenance runs the recurring ingest jobs on cron schedules for
// the long-running watch command.
package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is one recurring task. Run receives the context passed to Start.
type Job struct {
	Name     string
	Schedule string // standard 5-field cron spec or descriptor ("@hourly")
	Run      func(ctx context.Context) error
}

// Start registers jobs and blocks until ctx is cancelled, then waits for a
// running job to return. A job never overlaps with itself: a tick that
// arrives while the previous run is still going is skipped. An invalid
// schedule fails before anything runs.
func Start(ctx context.Context, jobs []Job, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	cl := cronLogger{logger: logger}
	c := cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))

	for _, job := range jobs {
		id, err := c.AddFunc(job.Schedule, func() { runJob(ctx, job, logger) })
		if err != nil {
			return fmt.Errorf("schedule %s %q: %w", job.Name, job.Schedule, err)
		}
		logger.Info("Job scheduled", "job", job.Name, "schedule", job.Schedule, "next", c.Entry(id).Next)
	}

	c.Start()
	logger.Info("Scheduler started", "jobs", len(jobs))

	<-ctx.Done()
	<-c.Stop().Done()
	logger.Info("Scheduler stopped")
	return nil
}

func runJob(ctx context.Context, job Job, logger *slog.Logger) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	logger.Info("Job started", "job", job.Name)
	if err := job.Run(ctx); err != nil {
		logger.Error("Job failed", "job", job.Name, "duration", time.Since(start).Round(time.Millisecond), "error", err)
		return
	}
	logger.Info("Job finished", "job", job.Name, "duration", time.Since(start).Round(time.Millisecond))
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
