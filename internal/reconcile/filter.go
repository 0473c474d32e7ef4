package reconcile

import (
	"fmt"
	"regexp"

	"github.com/oncallops/pagemigrate/internal/model"
)

// Filter narrows the alert set a run operates on. Zero values match
// everything; pattern fields are Go regular expressions.
type Filter struct {
	Tag            string
	NamePattern    string
	MessagePattern string
}

type compiledFilter struct {
	tag     string
	name    *regexp.Regexp
	message *regexp.Regexp
}

func (f Filter) compile() (*compiledFilter, error) {
	cf := &compiledFilter{tag: f.Tag}
	var err error
	if f.NamePattern != "" {
		if cf.name, err = regexp.Compile(f.NamePattern); err != nil {
			return nil, fmt.Errorf("invalid name pattern %q: %w", f.NamePattern, err)
		}
	}
	if f.MessagePattern != "" {
		if cf.message, err = regexp.Compile(f.MessagePattern); err != nil {
			return nil, fmt.Errorf("invalid message pattern %q: %w", f.MessagePattern, err)
		}
	}
	return cf, nil
}

func (cf *compiledFilter) match(a model.AlertDefinition) bool {
	if cf.tag != "" && !a.HasTag(cf.tag) {
		return false
	}
	if cf.name != nil && !cf.name.MatchString(a.Name) {
		return false
	}
	if cf.message != nil && !cf.message.MatchString(a.Message) {
		return false
	}
	return true
}

func (cf *compiledFilter) apply(alerts []model.AlertDefinition) []model.AlertDefinition {
	filtered := make([]model.AlertDefinition, 0, len(alerts))
	for _, a := range alerts {
		if cf.match(a) {
			filtered = append(filtered, a)
		}
	}
	return filtered
}
