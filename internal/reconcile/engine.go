// Package reconcile computes and applies the minimal edits that bring alert
// definitions' notification markers and tags to the desired target state.
package reconcile

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oncallops/pagemigrate/internal/config"
	"github.com/oncallops/pagemigrate/internal/mapping"
	"github.com/oncallops/pagemigrate/internal/marker"
	"github.com/oncallops/pagemigrate/internal/model"
	"github.com/oncallops/pagemigrate/internal/provision"
)

// AlertAPI is the subset of the platform client the engine drives.
type AlertAPI interface {
	ListAlertDefinitions(ctx context.Context) ([]model.AlertDefinition, error)
	UpdateAlertDefinition(ctx context.Context, id int64, update model.AlertUpdate) (*model.AlertDefinition, error)
}

// Engine reconciles alert definitions one at a time, sequentially, in the
// order the platform lists them. All message and tag edits are computed in
// memory before any remote call is issued.
type Engine struct {
	api      AlertAPI
	webhooks provision.WebhookAPI
	dest     config.Destination
	mappings []model.ServiceMapping
	logger   *zap.Logger
}

// New creates an engine from the loaded configuration.
func New(api AlertAPI, webhooks provision.WebhookAPI, cfg *config.Config, logger *zap.Logger) *Engine {
	return &Engine{
		api:      api,
		webhooks: webhooks,
		dest:     cfg.Destination,
		mappings: cfg.Mappings,
		logger:   logger,
	}
}

// Run lists the alert definitions and reconciles them. Listing failures are
// fatal; per-alert failures are recorded in the result and do not stop the
// run.
func (e *Engine) Run(ctx context.Context, op Operation, opts Options) (*model.RunResult, error) {
	alerts, err := e.api.ListAlertDefinitions(ctx)
	if err != nil {
		return nil, err
	}
	return e.Reconcile(ctx, alerts, op, opts)
}

// Reconcile performs one operation across the given alerts. For the
// add-webhooks operation, mapping validation runs once against the full
// filtered set before any remote mutation; blocking findings abort with a
// *ConfigError. In simulation the findings are attached to the result
// instead.
func (e *Engine) Reconcile(ctx context.Context, alerts []model.AlertDefinition, op Operation, opts Options) (*model.RunResult, error) {
	cf, err := opts.Filter.compile()
	if err != nil {
		return nil, &ConfigError{Reason: err.Error()}
	}
	filtered := cf.apply(alerts)

	result := &model.RunResult{
		ID:        uuid.New().String(),
		Operation: op.String(),
		DryRun:    opts.DryRun,
		StartedAt: time.Now(),
	}

	table := mapping.NewTable(e.dest.Provider, e.mappings)
	prov := provision.New(e.webhooks, e.dest.URL, e.dest.AuthToken, opts.DryRun, e.logger.Named("provision"))

	if op == OpAddWebhooks {
		report := mapping.Validate(filtered, table, e.dest.TeamRequired())
		result.Validation = report
		if report.Blocking(opts.DryRun) {
			return nil, &ConfigError{Reason: "mapping validation failed", Report: report}
		}
	}

	e.logger.Info("Starting reconciliation",
		zap.String("run_id", result.ID),
		zap.String("operation", op.String()),
		zap.Bool("dry_run", opts.DryRun),
		zap.Int("alerts", len(filtered)))

	for _, alert := range filtered {
		var out model.ReconciliationOutcome
		switch op {
		case OpAddWebhooks:
			out = e.addWebhooks(ctx, alert, table, prov)
		case OpRemoveWebhooks:
			out = e.removeWebhooks(alert)
		case OpRemoveProvider:
			out = e.removeProvider(alert)
		}
		out = e.commit(ctx, alert, out, opts)
		result.Record(out, opts.Verbose)

		e.logger.Debug("Reconciled alert",
			zap.Int64("alert_id", alert.ID),
			zap.String("status", string(out.Status)),
			zap.String("reason", out.Reason))
	}

	e.logger.Info("Reconciliation finished",
		zap.String("run_id", result.ID),
		zap.Int("processed", result.Processed),
		zap.Int("updated", result.Updated),
		zap.Int("unchanged", result.Unchanged),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed))
	return result, nil
}

// Validate lists the alerts and runs pre-flight mapping validation only,
// without touching anything.
func (e *Engine) Validate(ctx context.Context, opts Options) (*model.ValidationReport, error) {
	cf, err := opts.Filter.compile()
	if err != nil {
		return nil, &ConfigError{Reason: err.Error()}
	}
	alerts, err := e.api.ListAlertDefinitions(ctx)
	if err != nil {
		return nil, err
	}
	table := mapping.NewTable(e.dest.Provider, e.mappings)
	return mapping.Validate(cf.apply(alerts), table, e.dest.TeamRequired()), nil
}

func (e *Engine) addWebhooks(ctx context.Context, alert model.AlertDefinition, table *mapping.Table, prov *provision.Provisioner) model.ReconciliationOutcome {
	out := model.ReconciliationOutcome{
		AlertID:    alert.ID,
		AlertName:  alert.Name,
		OldMessage: alert.Message,
		OldTags:    alert.Tags,
	}

	msg := marker.Parse(alert.Message, e.dest.Provider)
	services := msg.ProviderServices()
	if len(services) == 0 {
		out.Status = model.StatusUnchanged
		out.Reason = "no provider services found"
		return out
	}

	switch mode := e.dest.Mode.(type) {
	case config.SingleWebhook:
		return e.addSingle(ctx, alert, msg, services, mode, table, prov, out)
	case config.PerTeamWebhook:
		return e.addPerTeam(ctx, msg, services, mode, table, prov, out)
	default:
		out.Status = model.StatusSkipped
		out.Reason = "no webhook mode configured"
		return out
	}
}

func (e *Engine) addSingle(ctx context.Context, alert model.AlertDefinition, msg *marker.Message, services []string, mode config.SingleWebhook, table *mapping.Table, prov *provision.Provisioner, out model.ReconciliationOutcome) model.ReconciliationOutcome {
	if err := prov.EnsureWebhook(ctx, mode.Name, "", nil); err != nil {
		out.Status = model.StatusSkipped
		out.Reason = fmt.Sprintf("failed to create required webhook: %v", err)
		return out
	}

	tagsChanged := false
	if e.dest.AnnotateTeams {
		tags := append([]string(nil), alert.Tags...)
		tags, tagsChanged = e.annotateTags(tags, services, table)
		if tagsChanged {
			out.NewTags = tags
		}
	}

	existing := msg.WebhookMarkers()
	canonical := marker.WebhookMarker(mode.Name)
	alreadyCorrect := len(existing) == 1 && existing[0] == canonical

	if alreadyCorrect && !tagsChanged {
		out.Status = model.StatusUnchanged
		out.Reason = "already correct"
		return out
	}
	if !alreadyCorrect {
		msg.StripWebhookMarkers()
		msg.AppendWebhook(mode.Name)
	}
	out.Status = model.StatusUpdated
	out.NewMessage = msg.String()
	return out
}

func (e *Engine) addPerTeam(ctx context.Context, msg *marker.Message, services []string, mode config.PerTeamWebhook, table *mapping.Table, prov *provision.Provisioner, out model.ReconciliationOutcome) model.ReconciliationOutcome {
	// Distinct teams implied by the alert's services, in first-occurrence
	// order. Unresolvable services only arise in simulation; real runs are
	// blocked by pre-flight validation.
	seenService := make(map[string]struct{})
	seenTeam := make(map[string]struct{})
	var teams []string
	teamMetadata := make(map[string]map[string]string)
	for _, svc := range services {
		if _, dup := seenService[svc]; dup {
			continue
		}
		seenService[svc] = struct{}{}
		m, ok := table.Lookup(svc)
		if !ok || m.Team == "" {
			continue
		}
		if _, dup := seenTeam[m.Team]; dup {
			continue
		}
		seenTeam[m.Team] = struct{}{}
		teams = append(teams, m.Team)
		teamMetadata[m.Team] = m.Metadata
	}

	names := make([]string, 0, len(teams))
	expected := make([]string, 0, len(teams))
	for _, team := range teams {
		name := mode.Prefix + "-" + team
		if err := prov.EnsureWebhook(ctx, name, team, teamMetadata[team]); err != nil {
			out.Status = model.StatusSkipped
			out.Reason = fmt.Sprintf("failed to create webhook for team %s: %v", team, err)
			return out
		}
		names = append(names, name)
		expected = append(expected, marker.WebhookMarker(name))
	}

	if markerSetsEqual(msg.WebhookMarkers(), expected) {
		out.Status = model.StatusUnchanged
		out.Reason = "already has all correct webhooks"
		return out
	}

	msg.StripWebhookMarkers()
	for _, name := range names {
		msg.AppendWebhook(name)
	}
	out.Status = model.StatusUpdated
	out.NewMessage = msg.String()
	return out
}

func (e *Engine) removeWebhooks(alert model.AlertDefinition) model.ReconciliationOutcome {
	out := model.ReconciliationOutcome{
		AlertID:    alert.ID,
		AlertName:  alert.Name,
		OldMessage: alert.Message,
		OldTags:    alert.Tags,
	}
	msg := marker.Parse(alert.Message, e.dest.Provider)
	if len(msg.WebhookMarkers()) == 0 {
		out.Status = model.StatusUnchanged
		out.Reason = "no webhook markers found"
		return out
	}
	msg.StripWebhookMarkers()
	out.Status = model.StatusUpdated
	out.NewMessage = msg.String()
	return out
}

func (e *Engine) removeProvider(alert model.AlertDefinition) model.ReconciliationOutcome {
	out := model.ReconciliationOutcome{
		AlertID:    alert.ID,
		AlertName:  alert.Name,
		OldMessage: alert.Message,
		OldTags:    alert.Tags,
	}
	msg := marker.Parse(alert.Message, e.dest.Provider)
	if len(msg.ProviderServices()) == 0 {
		out.Status = model.StatusUnchanged
		out.Reason = fmt.Sprintf("no %s services found", e.dest.Provider)
		return out
	}
	msg.StripProviderMarkers()
	out.Status = model.StatusUpdated
	out.NewMessage = msg.String()
	return out
}

// commit pushes an updated outcome to the platform. A remote failure
// downgrades the outcome to update-failed with the remote error attached;
// later alerts still get processed.
func (e *Engine) commit(ctx context.Context, alert model.AlertDefinition, out model.ReconciliationOutcome, opts Options) model.ReconciliationOutcome {
	if out.Status != model.StatusUpdated || opts.DryRun {
		return out
	}
	update := model.AlertUpdate{Message: out.NewMessage, Tags: out.NewTags}
	if _, err := e.api.UpdateAlertDefinition(ctx, alert.ID, update); err != nil {
		e.logger.Warn("Failed to update alert definition",
			zap.Int64("alert_id", alert.ID),
			zap.Error(err))
		out.Status = model.StatusUpdateFailed
		out.Reason = fmt.Sprintf("update failed: %v", err)
		out.Err = err
	}
	return out
}

// annotateTags appends the team tag and metadata tags implied by the
// alert's services. Returns the tag slice and whether anything was added.
func (e *Engine) annotateTags(tags []string, services []string, table *mapping.Table) ([]string, bool) {
	has := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		has[t] = struct{}{}
	}
	changed := false
	add := func(tag string) {
		if _, ok := has[tag]; ok {
			return
		}
		has[tag] = struct{}{}
		tags = append(tags, tag)
		changed = true
	}

	seen := make(map[string]struct{})
	for _, svc := range services {
		if _, dup := seen[svc]; dup {
			continue
		}
		seen[svc] = struct{}{}
		m, ok := table.Lookup(svc)
		if !ok || m.Team == "" {
			continue
		}
		add(e.dest.TagPrefix + ":" + m.Team)
		for _, k := range sortedKeys(m.Metadata) {
			add(k + ":" + m.Metadata[k])
		}
	}
	return tags, changed
}

// markerSetsEqual compares marker lists as sets, treating duplicates on
// either side as a mismatch so stale repeats get rewritten.
func markerSetsEqual(existing, expected []string) bool {
	if len(existing) != len(expected) {
		return false
	}
	want := make(map[string]struct{}, len(expected))
	for _, m := range expected {
		want[m] = struct{}{}
	}
	if len(want) != len(expected) {
		return false
	}
	for _, m := range existing {
		if _, ok := want[m]; !ok {
			return false
		}
		delete(want, m)
	}
	return len(want) == 0
}

func sortedKeys(m map[string]string) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
