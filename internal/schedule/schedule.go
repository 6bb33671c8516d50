// Package schedule runs the digest pipeline on a cron cadence.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/reugn/go-quartz/quartz"

	"github.com/rsaa/lunations/internal/lunation"
)

// jobName keys the digest job inside the scheduler.
const jobName = "monthly-digest"

// MonthlyJob produces the previous month's digest each time it fires.
type MonthlyJob struct {
	Logger *slog.Logger

	// Run executes the digest pipeline for one month.
	Run func(ctx context.Context, lun lunation.Lunation) error

	// Now supplies the clock; nil means time.Now.
	Now func() time.Time
}

var _ quartz.Job = (*MonthlyJob)(nil)

func (j *MonthlyJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *MonthlyJob) now() time.Time {
	if j.Now != nil {
		return j.Now()
	}
	return time.Now()
}

// Execute runs the digest for the month before the firing time.
func (j *MonthlyJob) Execute(ctx context.Context) error {
	lun := lunation.Previous(j.now())
	j.logger().Info("scheduled digest run starting", "lunation", lun.String())

	if err := j.Run(ctx, lun); err != nil {
		j.logger().Error("scheduled digest run failed", "lunation", lun.String(), "error", err)
		return err
	}

	j.logger().Info("scheduled digest run finished", "lunation", lun.String())
	return nil
}

// Description identifies the job in scheduler logs.
func (j *MonthlyJob) Description() string {
	return "monthly lunation digest"
}

// ValidateExpression checks that expr is a parseable cron expression.
func ValidateExpression(expr string) error {
	if _, err := quartz.NewCronTrigger(expr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return nil
}

// Service owns the scheduler running the digest job.
type Service struct {
	expression string
	job        quartz.Job
	logger     *slog.Logger
	scheduler  quartz.Scheduler
}

// NewService builds a Service firing job on the given cron expression.
func NewService(expression string, job quartz.Job, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		expression: expression,
		job:        job,
		logger:     logger,
		scheduler:  quartz.NewStdScheduler(),
	}
}

// Start schedules the job and starts the scheduler.
func (s *Service) Start(ctx context.Context) error {
	trigger, err := quartz.NewCronTrigger(s.expression)
	if err != nil {
		return fmt.Errorf("parsing schedule %q: %w", s.expression, err)
	}

	detail := quartz.NewJobDetail(s.job, quartz.NewJobKey(jobName))
	if err := s.scheduler.ScheduleJob(detail, trigger); err != nil {
		return fmt.Errorf("scheduling %s: %w", jobName, err)
	}

	s.scheduler.Start(ctx)
	s.logger.Info("scheduler started", "schedule", s.expression, "job", s.job.Description())
	return nil
}

// Stop shuts the scheduler down and waits for a running job to finish.
func (s *Service) Stop(ctx context.Context) {
	s.scheduler.Stop()
	s.scheduler.Wait(ctx)
	s.logger.Info("scheduler stopped")
}
