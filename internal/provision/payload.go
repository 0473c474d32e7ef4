package provision

import (
	"fmt"
	"sort"
	"strings"
)

// alertContextFields are the standard alert-context substitution
// placeholders the platform expands when it fires the webhook.
var alertContextFields = [][2]string{
	{"id", "$ID"},
	{"event_title", "$EVENT_TITLE"},
	{"event_message", "$EVENT_MSG"},
	{"alert_id", "$ALERT_ID"},
	{"alert_status", "$ALERT_STATUS"},
	{"alert_transition", "$ALERT_TRANSITION"},
	{"alert_type", "$ALERT_TYPE"},
	{"date", "$DATE"},
	{"link", "$LINK"},
	{"priority", "$PRIORITY"},
	{"tags", "$TAGS"},
}

// BuildPayload renders the JSON-shaped payload template for a new webhook:
// the standard alert-context placeholders, a team field when team identity
// applies, and one field per metadata pair. Values are interpolated
// textually because placeholders must survive as-is for the platform to
// substitute at delivery time.
func BuildPayload(team string, metadata map[string]string) string {
	var b strings.Builder
	b.WriteString("{\n")
	for _, f := range alertContextFields {
		fmt.Fprintf(&b, "  %q: %q,\n", f[0], f[1])
	}
	if team != "" {
		fmt.Fprintf(&b, "  %q: %q,\n", "team", team)
	}
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "  %q: %q,\n", k, metadata[k])
	}
	payload := strings.TrimSuffix(b.String(), ",\n") + "\n}"
	return payload
}
