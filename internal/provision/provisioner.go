// Package provision ensures destination webhook resources exist on the
// monitoring platform before alert messages reference them.
package provision

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/oncallops/pagemigrate/internal/model"
	"github.com/oncallops/pagemigrate/internal/platform"
)

// ErrMissingCredentials is returned when a webhook must be created but the
// destination URL or auth token is not configured. It is recoverable: the
// affected alert is skipped and the run continues.
var ErrMissingCredentials = errors.New("destination webhook URL or auth token not configured")

// WebhookAPI is the subset of the platform client the provisioner uses.
type WebhookAPI interface {
	GetWebhook(ctx context.Context, name string) (*model.Webhook, error)
	CreateWebhook(ctx context.Context, create model.WebhookCreate) error
}

// Provisioner creates missing destination webhooks, memoizing each name's
// outcome so a distinct name sees at most one creation attempt per run, no
// matter how many alerts reference it. The memo is scoped to one
// Provisioner, and a Provisioner is scoped to one run; repeated runs in the
// same process never share state. Appended to sequentially only; parallel
// alerts would need a mutex here.
type Provisioner struct {
	api    WebhookAPI
	url    string
	token  string
	dryRun bool
	logger *zap.Logger

	// ensured maps webhook name to the result of its single ensure attempt
	// (nil for success).
	ensured map[string]error
}

// New creates a run-scoped provisioner. url and token may be empty; they
// are only required when a webhook actually has to be created.
func New(api WebhookAPI, url, token string, dryRun bool, logger *zap.Logger) *Provisioner {
	return &Provisioner{
		api:     api,
		url:     url,
		token:   token,
		dryRun:  dryRun,
		logger:  logger,
		ensured: make(map[string]error),
	}
}

// EnsureWebhook makes sure a webhook named name exists remotely. team, when
// non-empty, and metadata are interpolated into the payload template of a
// newly created webhook. A nil return means the resource exists (or the run
// is a simulation); any error is a per-alert skip for the caller, never a
// run-level failure.
func (p *Provisioner) EnsureWebhook(ctx context.Context, name, team string, metadata map[string]string) error {
	if p.dryRun {
		p.logger.Debug("Dry run, skipping webhook provisioning", zap.String("webhook", name))
		return nil
	}
	if err, ok := p.ensured[name]; ok {
		return err
	}
	err := p.ensure(ctx, name, team, metadata)
	p.ensured[name] = err
	return err
}

func (p *Provisioner) ensure(ctx context.Context, name, team string, metadata map[string]string) error {
	_, err := p.api.GetWebhook(ctx, name)
	if err == nil {
		return nil
	}
	if !errors.Is(err, platform.ErrWebhookNotFound) {
		return fmt.Errorf("failed to look up webhook %q: %w", name, err)
	}

	if p.url == "" || p.token == "" {
		return ErrMissingCredentials
	}

	create := model.WebhookCreate{
		Name:          name,
		URL:           p.url,
		Payload:       BuildPayload(team, metadata),
		CustomHeaders: fmt.Sprintf(`{"Authorization": "Bearer %s", "Content-Type": "application/json"}`, p.token),
	}
	if err := p.api.CreateWebhook(ctx, create); err != nil {
		return fmt.Errorf("failed to create webhook %q: %w", name, err)
	}

	p.logger.Info("Created destination webhook",
		zap.String("webhook", name),
		zap.String("team", team))
	return nil
}
