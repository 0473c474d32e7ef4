package model

// AlertDefinition represents an alert (monitor) owned by the remote
// monitoring platform. The engine holds a transient copy for the duration
// of one run; it is never cached across runs.
type AlertDefinition struct {
	ID      int64    `json:"id"`
	Name    string   `json:"name"`
	Message string   `json:"message"`
	Tags    []string `json:"tags"`
}

// HasTag reports whether the alert carries the given tag.
func (a *AlertDefinition) HasTag(tag string) bool {
	for _, t := range a.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// AlertUpdate carries the fields a reconciliation run may rewrite on an
// alert definition. A nil Tags slice leaves the remote tag set untouched.
type AlertUpdate struct {
	Message string   `json:"message"`
	Tags    []string `json:"tags,omitempty"`
}
