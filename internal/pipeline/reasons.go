package pipeline

import (
	"strings"

	"github.com/sells-group/provider-directory/internal/model"
)

// Reasons evaluates the deterministic reason checklist against the component
// scores and profile fields. Check order is preserved in the output; each
// check contributes at most one code, so duplicates are impossible. Applied
// uplift rule names are appended last.
func Reasons(p *model.ProviderProfile, components map[string]float64, adjustments []model.Adjustment) []string {
	var reasons []string

	if components[model.ComponentIdentity] < 0.70 {
		reasons = append(reasons, model.ReasonLowIdentity)
		switch p.IdentityStatus {
		case model.IdentityNPIMissing:
			reasons = append(reasons, model.ReasonMissingNPI)
		case model.IdentityNPIUnverified:
			reasons = append(reasons, model.ReasonNPIUnverified)
		}
	}

	if components[model.ComponentAddress] < 0.60 {
		reasons = append(reasons, model.ReasonLowAddress)
	}

	if components[model.ComponentPhone] < 0.50 {
		reasons = append(reasons, model.ReasonLowPhone)
	}

	spec := strings.TrimSpace(p.Specialty)
	if (spec == "" || strings.EqualFold(spec, model.SpecialtyUnknown)) && components[model.ComponentSpecialty] < 0.50 {
		reasons = append(reasons, model.ReasonMissingSpec)
	}

	if components[model.ComponentEducation] < 0.40 {
		reasons = append(reasons, model.ReasonLowEducation)
	}

	if len(p.Enrichment.Services.Values) == 0 {
		reasons = append(reasons, model.ReasonNoServices)
	} else if components[model.ComponentServices] < 0.50 {
		reasons = append(reasons, model.ReasonLowServices)
	}

	if len(p.Enrichment.Affiliations.Values) == 0 && components[model.ComponentAffiliations] < 0.50 {
		reasons = append(reasons, model.ReasonNoAffiliations)
	}

	for _, adj := range adjustments {
		reasons = append(reasons, adj.Type)
	}

	return reasons
}
