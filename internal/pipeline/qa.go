package pipeline

import (
	"context"
	"fmt"

	"github.com/sells-group/provider-directory/internal/config"
	"github.com/sells-group/provider-directory/internal/enrich"
	"github.com/sells-group/provider-directory/internal/model"
)

// EvaluateQA scores a reconciled and enriched profile, applies the uplift
// rules, routes it, and builds the explainable summary. The returned result
// is attached to the profile by the caller.
func EvaluateQA(ctx context.Context, p *model.ProviderProfile, th config.QAConfig, fetcher enrich.Fetcher) *model.QAResult {
	components := ComputeComponents(p)
	score := WeightedScore(components)
	score, adjustments := ApplyUplifts(ctx, p, components, score, fetcher)

	decision := Decide(score, th)
	reasons := Reasons(p, components, adjustments)

	return &model.QAResult{
		Decision:          decision,
		ProfileConfidence: score,
		ComponentScores:   components,
		Reasons:           reasons,
		Description:       describe(p, decision, score),
		Summary:           summarize(p, score, components, reasons, adjustments),
	}
}

func describe(p *model.ProviderProfile, decision model.Decision, score float64) string {
	npiLabel := p.NPI
	if npiLabel == "" {
		npiLabel = "NPI_NOT_PROVIDED"
	}
	return fmt.Sprintf("%s | %s | decision=%s | score=%.3f | identity=%s | npi=%s | address=%s | phone=%s",
		p.ProviderID, p.Name, decision, score, p.IdentityStatus, npiLabel, p.Address, p.Phone)
}

func summarize(p *model.ProviderProfile, score float64, components map[string]float64, reasons []string, adjustments []model.Adjustment) *model.ExplainableSummary {
	return &model.ExplainableSummary{
		ProviderID:        p.ProviderID,
		Name:              p.Name,
		NPI:               p.NPI,
		IdentityStatus:    p.IdentityStatus,
		Address:           p.Address,
		Phone:             p.Phone,
		ProfileConfidence: score,
		ComponentScores:   components,
		TopReasons:        reasons,
		Highlights: model.EnrichmentHighlights{
			Education:          p.Enrichment.Education,
			Specialty:          p.Enrichment.Specialty,
			ServicesSample:     sample(p.Enrichment.Services.Values, 3),
			ServicesCount:      len(p.Enrichment.Services.Values),
			AffiliationsSample: sample(p.Enrichment.Affiliations.Values, 3),
			AffiliationsCount:  len(p.Enrichment.Affiliations.Values),
		},
		Adjustments: adjustments,
	}
}

func sample(values []string, n int) []string {
	if len(values) <= n {
		return values
	}
	return values[:n]
}
