package store

import (
	"fmt"
	"math"
	"strings"

	"github.com/sells-group/provider-directory/internal/model"
)

// confidenceDelta is the minimum profile-confidence change worth flagging
// in a version's change summary.
const confidenceDelta = 0.05

// ChangeSummary compares a new profile against the previous canonical
// snapshot and produces the human-readable summary stored with the version
// entry. A nil previous snapshot means first insert.
func ChangeSummary(prev, next *model.ProviderProfile) string {
	if prev == nil {
		return "Initial record"
	}

	var changes []string

	oldConf, newConf := qaConfidence(prev), qaConfidence(next)
	if math.Abs(oldConf-newConf) > confidenceDelta {
		changes = append(changes, fmt.Sprintf("confidence %.2f→%.2f", oldConf, newConf))
	}

	oldDec, newDec := qaDecision(prev), qaDecision(next)
	if oldDec != newDec {
		changes = append(changes, fmt.Sprintf("decision %s→%s", oldDec, newDec))
	}

	for _, f := range []struct {
		name     string
		old, new string
	}{
		{"address", prev.Address, next.Address},
		{"phone", prev.Phone, next.Phone},
		{"specialty", prev.Specialty, next.Specialty},
	} {
		if f.old != f.new {
			changes = append(changes, f.name+" updated")
		}
	}

	if len(changes) == 0 {
		return "No significant changes"
	}
	return strings.Join(changes, "; ")
}

func qaConfidence(p *model.ProviderProfile) float64 {
	if p.QA == nil {
		return 0
	}
	return p.QA.ProfileConfidence
}

func qaDecision(p *model.ProviderProfile) model.Decision {
	if p.QA == nil {
		return ""
	}
	return p.QA.Decision
}
