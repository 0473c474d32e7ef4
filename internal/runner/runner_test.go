package runner

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/oncallops/pagemigrate/internal/model"
	"github.com/oncallops/pagemigrate/internal/reconcile"
)

type countingEngine struct {
	mu   sync.Mutex
	runs int
}

func (e *countingEngine) Run(context.Context, reconcile.Operation, reconcile.Options) (*model.RunResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.runs++
	return &model.RunResult{ID: "r", Processed: 1}, nil
}

func (e *countingEngine) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runs
}

type countingRecorder struct {
	mu      sync.Mutex
	results []*model.RunResult
}

func (r *countingRecorder) RecordResult(_ context.Context, result *model.RunResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
	return nil
}

func TestScheduleValidation(t *testing.T) {
	r := New(&countingEngine{}, nil, zap.NewNop())

	t.Run("Valid Expression", func(t *testing.T) {
		assert.NoError(t, r.Schedule("@every 1h", reconcile.OpAddWebhooks, reconcile.Options{}))
	})

	t.Run("Invalid Expression", func(t *testing.T) {
		err := r.Schedule("not a schedule", reconcile.OpAddWebhooks, reconcile.Options{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid cron expression")
	})
}

func TestRunnerTicks(t *testing.T) {
	engine := &countingEngine{}
	recorder := &countingRecorder{}
	r := New(engine, recorder, zap.NewNop())
	require.NoError(t, r.Schedule("@every 100ms", reconcile.OpAddWebhooks, reconcile.Options{DryRun: true}))

	r.Start()
	defer r.Stop()

	deadline := time.After(3 * time.Second)
	for engine.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("engine never ran")
		case <-time.After(20 * time.Millisecond):
		}
	}

	r.Stop()
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	assert.NotEmpty(t, recorder.results, "completed runs are recorded")
}
