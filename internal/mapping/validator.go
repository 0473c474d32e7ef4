package mapping

import (
	"regexp"
	"sort"

	"github.com/oncallops/pagemigrate/internal/marker"
	"github.com/oncallops/pagemigrate/internal/model"
)

// teamNamePattern is what the destination platform accepts as a team slug.
var teamNamePattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// Validate unions the provider service markers referenced across the given
// alerts and classifies each against the table: absent from the table,
// present with an explicitly empty team, or present with a team name the
// destination platform would reject. Malformed team names are only reported
// when team identity is actually required for the run.
//
// It runs once per reconciliation invocation, against the full filtered
// alert set, so a global pass/fail exists before any remote mutation.
func Validate(alerts []model.AlertDefinition, table *Table, teamRequired bool) *model.ValidationReport {
	referenced := make(map[string]struct{})
	for _, a := range alerts {
		for _, svc := range marker.FindProviderServices(a.Message, table.Provider()) {
			referenced[svc] = struct{}{}
		}
	}

	report := &model.ValidationReport{TeamRequired: teamRequired}
	for svc := range referenced {
		m, ok := table.Lookup(svc)
		switch {
		case !ok:
			report.Unmapped = append(report.Unmapped, svc)
		case m.Team == "":
			report.NullMapped = append(report.NullMapped, svc)
		case teamRequired && !teamNamePattern.MatchString(m.Team):
			report.MalformedTeams = append(report.MalformedTeams, model.MalformedTeam{
				Service: svc,
				Team:    m.Team,
			})
		}
	}

	sort.Strings(report.Unmapped)
	sort.Strings(report.NullMapped)
	sort.Slice(report.MalformedTeams, func(i, j int) bool {
		return report.MalformedTeams[i].Service < report.MalformedTeams[j].Service
	})
	return report
}
