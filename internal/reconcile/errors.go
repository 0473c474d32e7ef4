package reconcile

import (
	"fmt"
	"strings"

	"github.com/oncallops/pagemigrate/internal/model"
)

// ConfigError aborts a run during pre-flight, before any remote mutation:
// blocking validation findings or an unusable filter pattern.
type ConfigError struct {
	Reason string
	Report *model.ValidationReport
}

func (e *ConfigError) Error() string {
	if e.Report == nil {
		return e.Reason
	}
	var parts []string
	if len(e.Report.Unmapped) > 0 {
		parts = append(parts, fmt.Sprintf("unmapped services: %s", strings.Join(e.Report.Unmapped, ", ")))
	}
	if len(e.Report.NullMapped) > 0 {
		parts = append(parts, fmt.Sprintf("services without a team: %s", strings.Join(e.Report.NullMapped, ", ")))
	}
	for _, m := range e.Report.MalformedTeams {
		parts = append(parts, fmt.Sprintf("service %s has malformed team name %q", m.Service, m.Team))
	}
	return fmt.Sprintf("%s: %s", e.Reason, strings.Join(parts, "; "))
}
