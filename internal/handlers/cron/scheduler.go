package cron

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/kevin07696/clientledger/internal/services/ports"
	"github.com/kevin07696/clientledger/pkg/resilience"
)

// Scheduler runs the overdue sweep on a cron schedule inside the server
type Scheduler struct {
	cron     *cron.Cron
	sweeper  ports.OverdueSweeper
	logger   *zap.Logger
	timeouts *resilience.TimeoutConfig
}

// NewScheduler creates a scheduler. Jobs are skipped while the previous run
// is still going.
func NewScheduler(sweeper ports.OverdueSweeper, logger *zap.Logger, timeouts *resilience.TimeoutConfig) *Scheduler {
	cronLogger := zapCronLogger{logger: logger.Named("cron")}
	c := cron.New(cron.WithChain(
		cron.Recover(cronLogger),
		cron.SkipIfStillRunning(cronLogger),
	))

	return &Scheduler{
		cron:     c,
		sweeper:  sweeper,
		logger:   logger,
		timeouts: timeouts,
	}
}

// Start registers the overdue sweep on schedule and starts the cron runner
func (s *Scheduler) Start(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, s.runOverdueSweep); err != nil {
		s.logger.Error("Failed to schedule overdue sweep", zap.String("schedule", schedule), zap.Error(err))
		return err
	}
	s.logger.Info("Scheduled overdue sweep", zap.String("schedule", schedule))

	s.cron.Start()
	return nil
}

// Stop stops scheduling new runs. The returned context is done when running
// jobs have finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) runOverdueSweep() {
	ctx, cancel := s.timeouts.CronContext(context.Background())
	defer cancel()

	if _, err := s.sweeper.Sweep(ctx, ""); err != nil {
		s.logger.Error("Scheduled overdue sweep failed", zap.Error(err))
	}
}

// zapCronLogger adapts zap to cron.Logger
type zapCronLogger struct {
	logger *zap.Logger
}

func (l zapCronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l zapCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
