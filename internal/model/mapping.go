package model

// ServiceMapping associates a legacy provider service key with a destination
// team. An empty Team on an existing mapping is distinct from the mapping
// being absent entirely; the validator reports the two differently.
type ServiceMapping struct {
	Service  string            `json:"service" mapstructure:"service"`
	Team     string            `json:"team,omitempty" mapstructure:"team"`
	Metadata map[string]string `json:"metadata,omitempty" mapstructure:"metadata"`
}

// MalformedTeam records a mapping whose team name fails the destination
// platform's naming rules.
type MalformedTeam struct {
	Service string `json:"service"`
	Team    string `json:"team"`
}

// ValidationReport is the result of pre-flight mapping validation across the
// full filtered alert set. Every referenced service lands in exactly one of
// mapped-complete, Unmapped or NullMapped.
type ValidationReport struct {
	Unmapped       []string        `json:"unmapped,omitempty"`
	NullMapped     []string        `json:"null_mapped,omitempty"`
	MalformedTeams []MalformedTeam `json:"malformed_teams,omitempty"`

	// TeamRequired records whether team identity was needed for the run
	// that produced this report (per-team webhooks or team-tag annotation).
	TeamRequired bool `json:"team_required"`
}

// Clean reports whether validation found nothing at all.
func (r *ValidationReport) Clean() bool {
	return len(r.Unmapped) == 0 && len(r.NullMapped) == 0 && len(r.MalformedTeams) == 0
}

// Blocking reports whether the findings must abort a run. Simulated runs are
// never blocked. Unmapped services always block a real run; missing or
// malformed team assignments block only when team identity is required.
func (r *ValidationReport) Blocking(simulate bool) bool {
	if simulate {
		return false
	}
	if len(r.Unmapped) > 0 {
		return true
	}
	if r.TeamRequired && (len(r.NullMapped) > 0 || len(r.MalformedTeams) > 0) {
		return true
	}
	return false
}
