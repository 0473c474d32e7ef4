// Package mapping holds the service-to-team mapping table and the pre-flight
// validator run before any remote mutation.
package mapping

import (
	"github.com/oncallops/pagemigrate/internal/marker"
	"github.com/oncallops/pagemigrate/internal/model"
)

// Table is the in-memory mapping table for one provider's key namespace.
// It is loaded once per run and read-only afterwards. Provider namespaces
// are disjoint: a table built for one provider never answers lookups that
// belong to another, because only that provider's mappings are loaded in.
type Table struct {
	provider  marker.Provider
	byService map[string]model.ServiceMapping
}

// NewTable builds a table for the given provider from its mappings.
func NewTable(provider marker.Provider, mappings []model.ServiceMapping) *Table {
	t := &Table{
		provider:  provider,
		byService: make(map[string]model.ServiceMapping, len(mappings)),
	}
	for _, m := range mappings {
		t.byService[m.Service] = m
	}
	return t
}

// Provider returns the provider namespace this table was built for.
func (t *Table) Provider() marker.Provider {
	return t.provider
}

// Lookup returns the mapping for a service key by exact match, and whether
// it exists at all.
func (t *Table) Lookup(service string) (model.ServiceMapping, bool) {
	m, ok := t.byService[service]
	return m, ok
}
