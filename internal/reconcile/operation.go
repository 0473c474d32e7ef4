package reconcile

// Operation is the reconciliation an engine run performs on each alert.
type Operation int

const (
	// OpAddWebhooks migrates alerts to the destination platform: every
	// alert with provider markers gets the webhook markers (and optionally
	// team tags) its services imply.
	OpAddWebhooks Operation = iota

	// OpRemoveWebhooks strips destination webhook markers, leaving provider
	// markers untouched.
	OpRemoveWebhooks

	// OpRemoveProvider strips the configured provider's service markers,
	// leaving webhook markers untouched.
	OpRemoveProvider
)

func (o Operation) String() string {
	switch o {
	case OpAddWebhooks:
		return "add-webhooks"
	case OpRemoveWebhooks:
		return "remove-webhooks"
	case OpRemoveProvider:
		return "remove-provider"
	default:
		return "unknown"
	}
}

// Options control one engine run.
type Options struct {
	// DryRun computes every outcome without any remote mutation.
	DryRun bool

	// Verbose includes unchanged alerts, with reasons, in the result.
	Verbose bool

	// Filter narrows the alert set before validation and reconciliation.
	Filter Filter
}
