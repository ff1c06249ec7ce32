// Package jobs runs periodic maintenance of verification state.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"phoneverifier/internal/models"
)

// Cleaner clears expired pending codes.
type Cleaner interface {
	ClearExpired(ctx context.Context) (*models.CleanupResult, error)
}

// NewScheduler builds a started scheduler whose job events go to logger.
func NewScheduler(ctx context.Context, logger *zap.Logger) (gocron.Scheduler, error) {
	scheduler, err := gocron.NewScheduler(
		gocron.WithGlobalJobOptions(
			gocron.WithContext(ctx),
			gocron.WithEventListeners(
				gocron.AfterJobRunsWithError(func(jobID uuid.UUID, jobName string, err error) {
					logger.Error("job failed", zap.String("job_name", jobName), zap.String("job_id", jobID.String()), zap.Error(err))
				}),
				gocron.AfterJobRunsWithPanic(func(jobID uuid.UUID, jobName string, recoverData any) {
					logger.Error("job panicked", zap.String("job_name", jobName), zap.String("job_id", jobID.String()), zap.Any("recover_data", recoverData))
				}),
			),
		),
		gocron.WithLogger(zapLogger{l: logger.Sugar()}),
		gocron.WithLocation(time.UTC),
	)
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	scheduler.Start()
	return scheduler, nil
}

// RegisterCleanup schedules ClearExpired every interval. Runs never overlap.
func RegisterCleanup(ctx context.Context, s gocron.Scheduler, cleaner Cleaner, interval time.Duration) (gocron.Job, error) {
	return s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(
			func(ctx context.Context, c Cleaner) error {
				_, err := c.ClearExpired(ctx)
				return err
			},
			cleaner,
		),
		gocron.WithContext(ctx),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName("clear expired verification codes"),
	)
}

type zapLogger struct {
	l *zap.SugaredLogger
}

func (z zapLogger) Debug(msg string, args ...any) { z.l.Debugw(msg, args...) }
func (z zapLogger) Error(msg string, args ...any) { z.l.Errorw(msg, args...) }
func (z zapLogger) Info(msg string, args ...any)  { z.l.Infow(msg, args...) }
func (z zapLogger) Warn(msg string, args ...any)  { z.l.Warnw(msg, args...) }
