package platform

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/oncallops/pagemigrate/internal/model"
)

func TestListAlertDefinitions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/monitor", r.URL.Path)
		assert.Equal(t, "test-api-key", r.Header.Get("DD-API-KEY"))
		assert.Equal(t, "test-app-key", r.Header.Get("DD-APPLICATION-KEY"))

		json.NewEncoder(w).Encode([]model.AlertDefinition{
			{ID: 1, Name: "cpu", Message: "High CPU @pagerduty-api", Tags: []string{"env:prod"}},
			{ID: 2, Name: "db", Message: "DB down"},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-api-key", "test-app-key", zap.NewNop())
	alerts, err := client.ListAlertDefinitions(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, int64(1), alerts[0].ID)
	assert.Equal(t, []string{"env:prod"}, alerts[0].Tags)
}

func TestListAlertDefinitionsConnectivity(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse all connections

	client := NewClient(server.URL, "k", "k", zap.NewNop())
	_, err := client.ListAlertDefinitions(context.Background())
	require.Error(t, err)
	var connErr *ConnectivityError
	assert.True(t, errors.As(err, &connErr))
}

func TestUpdateAlertDefinition(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPut, r.Method)
			assert.Equal(t, "/api/v1/monitor/42", r.URL.Path)

			var update model.AlertUpdate
			require.NoError(t, json.NewDecoder(r.Body).Decode(&update))
			json.NewEncoder(w).Encode(model.AlertDefinition{
				ID:      42,
				Message: update.Message,
				Tags:    update.Tags,
			})
		}))
		defer server.Close()

		client := NewClient(server.URL, "k", "k", zap.NewNop())
		alert, err := client.UpdateAlertDefinition(context.Background(), 42, model.AlertUpdate{
			Message: "new message @webhook-incident-io",
			Tags:    []string{"team:api-team"},
		})
		require.NoError(t, err)
		assert.Equal(t, "new message @webhook-incident-io", alert.Message)
		assert.Equal(t, []string{"team:api-team"}, alert.Tags)
	})

	t.Run("API Error Carries Remote Text", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(map[string][]string{"errors": {"invalid credentials"}})
		}))
		defer server.Close()

		client := NewClient(server.URL, "k", "k", zap.NewNop())
		_, err := client.UpdateAlertDefinition(context.Background(), 1, model.AlertUpdate{Message: "m"})
		require.Error(t, err)
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
		assert.Contains(t, apiErr.Message, "invalid credentials")
	})
}

func TestGetWebhook(t *testing.T) {
	t.Run("Found", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/v1/integration/webhooks/configuration/webhooks/incident-io", r.URL.Path)
			json.NewEncoder(w).Encode(model.Webhook{Name: "incident-io", URL: "https://example.com/hook"})
		}))
		defer server.Close()

		client := NewClient(server.URL, "k", "k", zap.NewNop())
		webhook, err := client.GetWebhook(context.Background(), "incident-io")
		require.NoError(t, err)
		assert.Equal(t, "incident-io", webhook.Name)
	})

	t.Run("Not Found", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		client := NewClient(server.URL, "k", "k", zap.NewNop())
		_, err := client.GetWebhook(context.Background(), "missing")
		assert.ErrorIs(t, err, ErrWebhookNotFound)
	})
}

func TestCreateWebhook(t *testing.T) {
	var created model.WebhookCreate
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/integration/webhooks/configuration/webhooks", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&created))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := NewClient(server.URL, "k", "k", zap.NewNop())
	err := client.CreateWebhook(context.Background(), model.WebhookCreate{
		Name:    "incident-io-api-team",
		URL:     "https://api.example.com/hooks",
		Payload: `{"team": "api-team"}`,
	})
	require.NoError(t, err)
	assert.Equal(t, "incident-io-api-team", created.Name)
	assert.Equal(t, `{"team": "api-team"}`, created.Payload)
}
