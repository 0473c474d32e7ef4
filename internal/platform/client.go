// Package platform implements the HTTP client for the monitoring platform's
// REST API: listing and updating alert definitions (monitors) and managing
// webhook integration resources.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/oncallops/pagemigrate/internal/model"
)

const defaultTimeout = 30 * time.Second

// Client talks to the monitoring platform. It holds no per-run state; any
// retry or deadline policy beyond the client timeout belongs here, not in
// the reconciliation engine.
type Client struct {
	baseURL    string
	apiKey     string
	appKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a platform client for the given API base URL and keys.
func NewClient(baseURL, apiKey, appKey string, logger *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		appKey:  appKey,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: logger,
	}
}

// ListAlertDefinitions retrieves every alert definition. A transport failure
// is wrapped in *ConnectivityError; callers abort the run on it.
func (c *Client) ListAlertDefinitions(ctx context.Context) ([]model.AlertDefinition, error) {
	var alerts []model.AlertDefinition
	if err := c.do(ctx, http.MethodGet, "/api/v1/monitor", nil, &alerts); err != nil {
		if _, ok := err.(*APIError); ok {
			return nil, err
		}
		return nil, &ConnectivityError{Err: err}
	}
	return alerts, nil
}

// UpdateAlertDefinition rewrites an alert's message and, when present in the
// update, its tag set. The platform returns the updated definition.
func (c *Client) UpdateAlertDefinition(ctx context.Context, id int64, update model.AlertUpdate) (*model.AlertDefinition, error) {
	var alert model.AlertDefinition
	path := fmt.Sprintf("/api/v1/monitor/%d", id)
	if err := c.do(ctx, http.MethodPut, path, update, &alert); err != nil {
		return nil, err
	}
	return &alert, nil
}

// GetWebhook retrieves a webhook resource by name. A missing resource is
// reported as ErrWebhookNotFound, not as an API failure.
func (c *Client) GetWebhook(ctx context.Context, name string) (*model.Webhook, error) {
	var webhook model.Webhook
	path := "/api/v1/integration/webhooks/configuration/webhooks/" + name
	err := c.do(ctx, http.MethodGet, path, nil, &webhook)
	if err != nil {
		if apiErr, ok := err.(*APIError); ok && apiErr.StatusCode == http.StatusNotFound {
			return nil, ErrWebhookNotFound
		}
		return nil, err
	}
	return &webhook, nil
}

// CreateWebhook creates a webhook resource.
func (c *Client) CreateWebhook(ctx context.Context, create model.WebhookCreate) error {
	return c.do(ctx, http.MethodPost, "/api/v1/integration/webhooks/configuration/webhooks", create, nil)
}

// do performs one API call, encoding body as JSON when non-nil and decoding
// the response into out when non-nil. Non-2xx responses become *APIError
// carrying the remote error text.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("DD-API-KEY", c.apiKey)
	req.Header.Set("DD-APPLICATION-KEY", c.appKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("Platform API request",
		zap.String("method", method),
		zap.String("path", path))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    remoteErrorText(data),
		}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// remoteErrorText pulls the error list out of the platform's error envelope,
// falling back to the raw body.
func remoteErrorText(data []byte) string {
	var envelope struct {
		Errors []string `json:"errors"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil && len(envelope.Errors) > 0 {
		text := envelope.Errors[0]
		for _, e := range envelope.Errors[1:] {
			text += "; " + e
		}
		return text
	}
	return string(data)
}
