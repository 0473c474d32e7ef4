// Package marker recognizes the textual directives embedded in alert
// messages: provider service markers such as "@pagerduty-api-critical" and
// destination webhook markers such as "@webhook-incident-io-platform-team".
// All recognizers are pure and total; no match yields an empty result.
package marker

import "regexp"

// Provider identifies the legacy paging provider whose service markers are
// recognized in alert messages.
type Provider string

const (
	ProviderPagerDuty Provider = "pagerduty"
	ProviderOpsgenie  Provider = "opsgenie"
)

// Valid reports whether p is one of the two supported providers.
func (p Provider) Valid() bool {
	return p == ProviderPagerDuty || p == ProviderOpsgenie
}

// webhookPattern matches "@webhook-" followed by one or more hyphen-joined
// tokens, greedily, so destination-plus-team names match as one marker.
var webhookPattern = regexp.MustCompile(`@webhook-[A-Za-z0-9_]+(?:-[A-Za-z0-9_]+)*`)

var providerPatterns = map[Provider]*regexp.Regexp{
	ProviderPagerDuty: regexp.MustCompile(`@pagerduty-([A-Za-z0-9_-]+)`),
	ProviderOpsgenie:  regexp.MustCompile(`@opsgenie-([A-Za-z0-9_-]+)`),
}

// FindProviderServices returns the service keys of every provider marker in
// message, in first-occurrence order. Duplicates are preserved: a service
// mentioned twice appears twice.
func FindProviderServices(message string, p Provider) []string {
	re, ok := providerPatterns[p]
	if !ok {
		return nil
	}
	matches := re.FindAllStringSubmatch(message, -1)
	if len(matches) == 0 {
		return nil
	}
	services := make([]string, 0, len(matches))
	for _, m := range matches {
		services = append(services, m[1])
	}
	return services
}

// FindWebhookMarkers returns every destination webhook marker in message as
// its exact substring, including the leading "@", so callers can remove the
// marker verbatim later.
func FindWebhookMarkers(message string) []string {
	return webhookPattern.FindAllString(message, -1)
}

// WebhookMarker returns the canonical marker literal for a webhook name.
func WebhookMarker(name string) string {
	return "@webhook-" + name
}
