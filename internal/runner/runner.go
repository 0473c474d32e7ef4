// Package runner re-runs a reconciliation operation on a cron schedule, so
// alert definitions that drift back toward the legacy provider keep getting
// converged.
package runner

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/oncallops/pagemigrate/internal/model"
	"github.com/oncallops/pagemigrate/internal/reconcile"
)

// Engine is the reconciliation entry point the runner drives.
type Engine interface {
	Run(ctx context.Context, op reconcile.Operation, opts reconcile.Options) (*model.RunResult, error)
}

// Recorder receives each completed run's result. Optional.
type Recorder interface {
	RecordResult(ctx context.Context, result *model.RunResult) error
}

// cronLogger adapts zap.Logger to cron.Logger
type cronLogger struct {
	logger *zap.Logger
}

func (l *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info(msg)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, zap.Error(err))
}

// Runner owns the cron loop. Overlapping runs are skipped rather than
// stacked: a tick that arrives while the previous run is still in flight is
// dropped.
type Runner struct {
	logger   *zap.Logger
	engine   Engine
	recorder Recorder
	cron     *cron.Cron
}

// New creates a runner. recorder may be nil.
func New(engine Engine, recorder Recorder, logger *zap.Logger) *Runner {
	cl := &cronLogger{logger: logger.Named("cron")}
	return &Runner{
		logger:   logger,
		engine:   engine,
		recorder: recorder,
		cron: cron.New(
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
	}
}

// Schedule registers the operation to run on the given cron expression.
func (r *Runner) Schedule(expression string, op reconcile.Operation, opts reconcile.Options) error {
	_, err := r.cron.AddFunc(expression, func() {
		r.runOnce(op, opts)
	})
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expression, err)
	}
	return nil
}

// Start starts the cron loop.
func (r *Runner) Start() {
	r.cron.Start()
	r.logger.Info("Watch mode started")
}

// Stop stops the cron loop and waits for an in-flight run to finish.
func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	r.logger.Info("Watch mode stopped")
}

func (r *Runner) runOnce(op reconcile.Operation, opts reconcile.Options) {
	ctx := context.Background()
	result, err := r.engine.Run(ctx, op, opts)
	if err != nil {
		r.logger.Error("Scheduled reconciliation failed",
			zap.String("operation", op.String()),
			zap.Error(err))
		return
	}
	r.logger.Info("Scheduled reconciliation finished",
		zap.String("run_id", result.ID),
		zap.Int("processed", result.Processed),
		zap.Int("updated", result.Updated),
		zap.Int("failed", result.Failed))

	if r.recorder != nil {
		if err := r.recorder.RecordResult(ctx, result); err != nil {
			r.logger.Error("Failed to record run history", zap.Error(err))
		}
	}
}
