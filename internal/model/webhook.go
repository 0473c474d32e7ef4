package model

// Webhook is a destination webhook integration resource on the monitoring
// platform.
type Webhook struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	Payload string `json:"payload"`
}

// WebhookCreate is the creation request for a webhook resource.
type WebhookCreate struct {
	Name          string `json:"name"`
	URL           string `json:"url"`
	Payload       string `json:"payload"`
	CustomHeaders string `json:"custom_headers,omitempty"`
}
