package model

import "time"

// OutcomeStatus is the primary status of one alert's reconciliation.
type OutcomeStatus string

const (
	// StatusUpdated means a change was computed and, outside simulation,
	// committed to the platform.
	StatusUpdated OutcomeStatus = "updated"

	// StatusUnchanged means the alert already matched the target state or
	// contained nothing to reconcile.
	StatusUnchanged OutcomeStatus = "unchanged"

	// StatusSkipped means provisioning could not proceed for this alert,
	// so no update was attempted.
	StatusSkipped OutcomeStatus = "skipped"

	// StatusUpdateFailed means a change was computed but the remote update
	// call failed. Kept distinct from StatusUnchanged so callers can tell
	// "attempted but failed" from "never attempted".
	StatusUpdateFailed OutcomeStatus = "update-failed"
)

// ReconciliationOutcome is the per-alert result of one operation.
type ReconciliationOutcome struct {
	AlertID    int64         `json:"alert_id"`
	AlertName  string        `json:"alert_name"`
	Status     OutcomeStatus `json:"status"`
	Reason     string        `json:"reason,omitempty"`
	OldMessage string        `json:"old_message,omitempty"`
	NewMessage string        `json:"new_message,omitempty"`
	OldTags    []string      `json:"old_tags,omitempty"`
	NewTags    []string      `json:"new_tags,omitempty"`
	Err        error         `json:"-"`
}

// AlertError is a per-alert error surfaced in the run-level error list.
type AlertError struct {
	AlertID int64  `json:"alert_id"`
	Error   string `json:"error"`
}

// RunResult aggregates the outcomes of one reconciliation run.
type RunResult struct {
	ID        string    `json:"id"`
	Operation string    `json:"operation"`
	DryRun    bool      `json:"dry_run"`
	StartedAt time.Time `json:"started_at"`

	Processed int `json:"processed"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`

	// Alerts holds per-alert change records. Unchanged alerts are included
	// only when the run was verbose.
	Alerts []ReconciliationOutcome `json:"alerts,omitempty"`

	Errors []AlertError `json:"errors,omitempty"`

	// Validation is populated for the add-webhooks operation only.
	Validation *ValidationReport `json:"validation,omitempty"`
}

// Record folds one outcome into the run counters, keeping the per-alert
// record unless the alert was unchanged and verbose output is off.
func (r *RunResult) Record(out ReconciliationOutcome, verbose bool) {
	r.Processed++
	switch out.Status {
	case StatusUpdated:
		r.Updated++
	case StatusSkipped:
		r.Skipped++
	case StatusUpdateFailed:
		r.Failed++
	default:
		r.Unchanged++
	}
	if out.Err != nil {
		r.Errors = append(r.Errors, AlertError{AlertID: out.AlertID, Error: out.Err.Error()})
	}
	if out.Status == StatusUnchanged && !verbose {
		return
	}
	r.Alerts = append(r.Alerts, out)
}
