package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/oncallops/pagemigrate/internal/model"
)

func TestRemoveWebhooks(t *testing.T) {
	t.Run("Strips All Markers", func(t *testing.T) {
		api := &fakeAlertAPI{alerts: []model.AlertDefinition{
			{ID: 1, Message: "DB down @pagerduty-database @webhook-incident-io-platform-team"},
		}}
		engine := New(api, &fakeWebhookAPI{}, perTeamConfig(), zap.NewNop())

		result, err := engine.Run(context.Background(), OpRemoveWebhooks, Options{})
		require.NoError(t, err)
		assert.Equal(t, 1, result.Updated)
		assert.Equal(t, "DB down @pagerduty-database", api.alerts[0].Message)
	})

	t.Run("Nothing To Remove", func(t *testing.T) {
		api := &fakeAlertAPI{alerts: []model.AlertDefinition{
			{ID: 1, Message: "DB down @pagerduty-database"},
		}}
		engine := New(api, &fakeWebhookAPI{}, perTeamConfig(), zap.NewNop())

		result, err := engine.Run(context.Background(), OpRemoveWebhooks, Options{Verbose: true})
		require.NoError(t, err)
		assert.Equal(t, 1, result.Unchanged)
		assert.Equal(t, "no webhook markers found", result.Alerts[0].Reason)
		assert.Zero(t, api.updates)
	})
}

func TestRemoveProvider(t *testing.T) {
	t.Run("Webhook Markers Untouched", func(t *testing.T) {
		api := &fakeAlertAPI{alerts: []model.AlertDefinition{
			{ID: 1, Message: "Alert @pagerduty-x @webhook-incident-io-y"},
		}}
		engine := New(api, &fakeWebhookAPI{}, singleConfig(false), zap.NewNop())

		result, err := engine.Run(context.Background(), OpRemoveProvider, Options{})
		require.NoError(t, err)
		assert.Equal(t, 1, result.Updated)
		assert.Equal(t, "Alert @webhook-incident-io-y", api.alerts[0].Message)
	})

	t.Run("Nothing To Remove", func(t *testing.T) {
		api := &fakeAlertAPI{alerts: []model.AlertDefinition{
			{ID: 1, Message: "Alert @webhook-incident-io-y"},
		}}
		engine := New(api, &fakeWebhookAPI{}, singleConfig(false), zap.NewNop())

		result, err := engine.Run(context.Background(), OpRemoveProvider, Options{Verbose: true})
		require.NoError(t, err)
		assert.Equal(t, "no pagerduty services found", result.Alerts[0].Reason)
	})
}

func TestAddWebhooksIdempotence(t *testing.T) {
	api := &fakeAlertAPI{alerts: []model.AlertDefinition{
		{ID: 1, Message: "High CPU @pagerduty-api-critical"},
		{ID: 2, Message: "DB down @pagerduty-database @webhook-incident-io-stale"},
		{ID: 3, Message: "plain, untouched"},
	}}
	hooks := &fakeWebhookAPI{}
	engine := New(api, hooks, singleConfig(true,
		model.ServiceMapping{Service: "api-critical", Team: "api-team"},
		model.ServiceMapping{Service: "database", Team: "platform-team"},
	), zap.NewNop())

	first, err := engine.Run(context.Background(), OpAddWebhooks, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, first.Updated)

	// The fake applied every update, so the second run sees the new state.
	second, err := engine.Run(context.Background(), OpAddWebhooks, Options{})
	require.NoError(t, err)
	assert.Zero(t, second.Updated, "second run must be a no-op")
	assert.Equal(t, 3, second.Unchanged)
}

func TestAddThenRemoveRoundTrip(t *testing.T) {
	original := "High CPU @pagerduty-api-critical needs attention"
	api := &fakeAlertAPI{alerts: []model.AlertDefinition{
		{ID: 1, Message: original, Tags: []string{"env:prod"}},
	}}
	engine := New(api, &fakeWebhookAPI{}, singleConfig(true,
		model.ServiceMapping{Service: "api-critical", Team: "api-team"},
	), zap.NewNop())

	_, err := engine.Run(context.Background(), OpAddWebhooks, Options{})
	require.NoError(t, err)
	_, err = engine.Run(context.Background(), OpRemoveWebhooks, Options{})
	require.NoError(t, err)

	assert.Equal(t, original, api.alerts[0].Message, "provider markers restored, webhook markers gone")
	// Team tags added during migration are intentionally not reverted.
	assert.Equal(t, []string{"env:prod", "team:api-team"}, api.alerts[0].Tags)
}

func TestValidationGating(t *testing.T) {
	alerts := []model.AlertDefinition{
		{ID: 1, Message: "High CPU @pagerduty-unknown-service"},
	}

	t.Run("Unmapped Service Blocks Real Run", func(t *testing.T) {
		api := &fakeAlertAPI{alerts: alerts}
		engine := New(api, &fakeWebhookAPI{}, singleConfig(false), zap.NewNop())

		_, err := engine.Run(context.Background(), OpAddWebhooks, Options{})
		require.Error(t, err)
		var cfgErr *ConfigError
		require.True(t, errors.As(err, &cfgErr))
		assert.Equal(t, []string{"unknown-service"}, cfgErr.Report.Unmapped)
		assert.Zero(t, api.updates, "no mutation before validation passes")
	})

	t.Run("Simulation Reports Instead Of Blocking", func(t *testing.T) {
		api := &fakeAlertAPI{alerts: alerts}
		engine := New(api, &fakeWebhookAPI{}, singleConfig(false), zap.NewNop())

		result, err := engine.Run(context.Background(), OpAddWebhooks, Options{DryRun: true})
		require.NoError(t, err)
		require.NotNil(t, result.Validation)
		assert.Equal(t, []string{"unknown-service"}, result.Validation.Unmapped)
		assert.Zero(t, api.updates)
	})

	t.Run("Remove Operations Skip Validation", func(t *testing.T) {
		api := &fakeAlertAPI{alerts: alerts}
		engine := New(api, &fakeWebhookAPI{}, singleConfig(false), zap.NewNop())

		result, err := engine.Run(context.Background(), OpRemoveProvider, Options{})
		require.NoError(t, err)
		assert.Nil(t, result.Validation)
		assert.Equal(t, 1, result.Updated)
	})
}

func TestUpdateFailureDowngrade(t *testing.T) {
	api := &fakeAlertAPI{
		alerts: []model.AlertDefinition{
			{ID: 1, Message: "High CPU @pagerduty-api-critical"},
			{ID: 2, Message: "DB down @pagerduty-database"},
		},
		updateErr: map[int64]error{1: errors.New("remote rejected the update")},
	}
	engine := New(api, &fakeWebhookAPI{}, singleConfig(false,
		model.ServiceMapping{Service: "api-critical", Team: "api-team"},
		model.ServiceMapping{Service: "database", Team: "platform-team"},
	), zap.NewNop())

	result, err := engine.Run(context.Background(), OpAddWebhooks, Options{})
	require.NoError(t, err, "a failed update never aborts the run")
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Updated, "the second alert still went through")

	require.Len(t, result.Errors, 1)
	assert.Equal(t, int64(1), result.Errors[0].AlertID)
	assert.Contains(t, result.Errors[0].Error, "remote rejected the update")

	var failed *model.ReconciliationOutcome
	for i := range result.Alerts {
		if result.Alerts[i].AlertID == 1 {
			failed = &result.Alerts[i]
		}
	}
	require.NotNil(t, failed)
	assert.Equal(t, model.StatusUpdateFailed, failed.Status, "distinct from unchanged")
	assert.Contains(t, failed.Reason, "remote rejected the update")
}

func TestDryRunMakesNoUpdates(t *testing.T) {
	api := &fakeAlertAPI{alerts: []model.AlertDefinition{
		{ID: 1, Message: "High CPU @pagerduty-api-critical"},
	}}
	hooks := &fakeWebhookAPI{}
	engine := New(api, hooks, singleConfig(false,
		model.ServiceMapping{Service: "api-critical", Team: "api-team"},
	), zap.NewNop())

	result, err := engine.Run(context.Background(), OpAddWebhooks, Options{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)
	require.Len(t, result.Alerts, 1)
	assert.Equal(t, "High CPU @pagerduty-api-critical @webhook-incident-io", result.Alerts[0].NewMessage)
	assert.Zero(t, api.updates)
	assert.Zero(t, hooks.gets)
	assert.Zero(t, hooks.creates)
	assert.Equal(t, "High CPU @pagerduty-api-critical", api.alerts[0].Message, "remote state untouched")
}

func TestFilters(t *testing.T) {
	alerts := []model.AlertDefinition{
		{ID: 1, Name: "cpu-prod", Message: "High CPU @pagerduty-api", Tags: []string{"env:prod"}},
		{ID: 2, Name: "cpu-staging", Message: "High CPU @pagerduty-api", Tags: []string{"env:staging"}},
		{ID: 3, Name: "db-prod", Message: "DB down @pagerduty-db", Tags: []string{"env:prod"}},
	}
	cfg := singleConfig(false,
		model.ServiceMapping{Service: "api", Team: "api-team"},
		model.ServiceMapping{Service: "db", Team: "platform-team"},
	)

	t.Run("By Tag", func(t *testing.T) {
		api := &fakeAlertAPI{alerts: alerts}
		engine := New(api, &fakeWebhookAPI{}, cfg, zap.NewNop())
		result, err := engine.Run(context.Background(), OpAddWebhooks, Options{
			DryRun: true,
			Filter: Filter{Tag: "env:prod"},
		})
		require.NoError(t, err)
		assert.Equal(t, 2, result.Processed)
	})

	t.Run("By Name Pattern", func(t *testing.T) {
		api := &fakeAlertAPI{alerts: alerts}
		engine := New(api, &fakeWebhookAPI{}, cfg, zap.NewNop())
		result, err := engine.Run(context.Background(), OpAddWebhooks, Options{
			DryRun: true,
			Filter: Filter{NamePattern: "^cpu-"},
		})
		require.NoError(t, err)
		assert.Equal(t, 2, result.Processed)
	})

	t.Run("By Message Pattern", func(t *testing.T) {
		api := &fakeAlertAPI{alerts: alerts}
		engine := New(api, &fakeWebhookAPI{}, cfg, zap.NewNop())
		result, err := engine.Run(context.Background(), OpAddWebhooks, Options{
			DryRun: true,
			Filter: Filter{MessagePattern: "DB down"},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, result.Processed)
	})

	t.Run("Invalid Pattern Is A Config Error", func(t *testing.T) {
		api := &fakeAlertAPI{alerts: alerts}
		engine := New(api, &fakeWebhookAPI{}, cfg, zap.NewNop())
		_, err := engine.Run(context.Background(), OpAddWebhooks, Options{
			Filter: Filter{NamePattern: "("},
		})
		var cfgErr *ConfigError
		require.True(t, errors.As(err, &cfgErr))
	})
}

func TestProvisioningUniquenessAcrossAlerts(t *testing.T) {
	// N alerts all resolving to the same destination team.
	api := &fakeAlertAPI{alerts: []model.AlertDefinition{
		{ID: 1, Message: "a @pagerduty-db"},
		{ID: 2, Message: "b @pagerduty-db"},
		{ID: 3, Message: "c @pagerduty-db-replica"},
	}}
	hooks := &fakeWebhookAPI{}
	engine := New(api, hooks, perTeamConfig(
		model.ServiceMapping{Service: "db", Team: "platform-team"},
		model.ServiceMapping{Service: "db-replica", Team: "platform-team"},
	), zap.NewNop())

	_, err := engine.Run(context.Background(), OpAddWebhooks, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, hooks.creates, "resource creation invoked exactly once")
	assert.Equal(t, 1, hooks.gets)
}
