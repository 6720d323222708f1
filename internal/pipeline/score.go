package pipeline

import (
	"context"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/provider-directory/internal/enrich"
	"github.com/sells-group/provider-directory/internal/model"
)

// componentWeights is the fixed weight table over the 7 named components.
// Must sum to exactly 1.0; asserted in tests. Order is the scoring order.
var componentWeights = []struct {
	Key    string
	Weight float64
}{
	{model.ComponentIdentity, 0.40},
	{model.ComponentAddress, 0.15},
	{model.ComponentPhone, 0.10},
	{model.ComponentSpecialty, 0.10},
	{model.ComponentEducation, 0.05},
	{model.ComponentServices, 0.10},
	{model.ComponentAffiliations, 0.10},
}

// WeightSum returns the sum of all component weights.
func WeightSum() float64 {
	total := 0.0
	for _, w := range componentWeights {
		total += w.Weight
	}
	return total
}

// ComputeComponents derives the 7 component scores from a reconciled and
// enriched profile. The specialty component takes the better of a flat 0.6
// for an already-resolved non-Unknown specialty and the enrichment
// specialty confidence.
func ComputeComponents(p *model.ProviderProfile) map[string]float64 {
	specConf := 0.0
	if s := strings.TrimSpace(p.Specialty); s != "" && !strings.EqualFold(s, model.SpecialtyUnknown) {
		specConf = 0.6
	}
	specConf = math.Max(specConf, p.Enrichment.Specialty.Confidence)

	return map[string]float64{
		model.ComponentIdentity:     p.Confidence.Identity,
		model.ComponentAddress:      p.Confidence.Address,
		model.ComponentPhone:        p.Confidence.Phone,
		model.ComponentSpecialty:    specConf,
		model.ComponentEducation:    p.Enrichment.Education.Confidence,
		model.ComponentServices:     p.Enrichment.Services.Confidence,
		model.ComponentAffiliations: p.Enrichment.Affiliations.Confidence,
	}
}

// WeightedScore computes the clamped, 3-decimal weighted sum over the
// component scores.
func WeightedScore(components map[string]float64) float64 {
	sum := 0.0
	for _, w := range componentWeights {
		sum += components[w.Key] * w.Weight
	}
	return Round3(clamp01(sum))
}

// ApplyUplifts applies the two deterministic uplift rules, in fixed order,
// each at most once: the semantic specialty boost (recomputes the weighted
// sum after raising the specialty component) and the registry specialty
// uplift (flat +0.05 on top). The rules stack, with the total capped at
// 1.0. Components are mutated in place; every applied uplift is returned
// as a typed adjustment.
func ApplyUplifts(ctx context.Context, p *model.ProviderProfile, components map[string]float64, score float64, fetcher enrich.Fetcher) (float64, []model.Adjustment) {
	var adjustments []model.Adjustment

	// Rule 1: semantic specialty boost.
	spec := p.Enrichment.Specialty
	if spec.Value != "" && strings.HasPrefix(spec.Source, "http") && fetcher != nil {
		pageText, err := fetcher.FetchText(ctx, spec.Source)
		if err != nil {
			zap.L().Debug("score: specialty page fetch failed, skipping boost",
				zap.String("provider_id", p.ProviderID), zap.Error(err))
		} else if pageText != "" {
			sim := Similarity(spec.Value, pageText)
			if sim > 0.60 {
				boost := math.Min(0.15, (sim-0.60)*0.5)
				components[model.ComponentSpecialty] = math.Min(1.0, components[model.ComponentSpecialty]+boost)
				score = WeightedScore(components)
				adjustments = append(adjustments, model.Adjustment{
					Type:       model.AdjustSemanticSpecialtyBoost,
					Value:      Round3(boost),
					Similarity: Round3(sim),
				})
				zap.L().Info("score: semantic specialty boost applied",
					zap.String("provider_id", p.ProviderID),
					zap.Float64("similarity", sim),
					zap.Float64("boost", boost),
					zap.Float64("score", score),
				)
			}
		}
	}

	// Rule 2: registry specialty uplift.
	if p.IdentityStatus == model.IdentityNPIVerified &&
		strings.Contains(spec.Source, "NPI") &&
		spec.Confidence >= 0.70 {
		const uplift = 0.05
		score = Round3(math.Min(1.0, score+uplift))
		adjustments = append(adjustments, model.Adjustment{
			Type:   model.AdjustNPISpecialtyUplift,
			Value:  uplift,
			Reason: "NPI-derived specialty present",
		})
		zap.L().Info("score: registry specialty uplift applied",
			zap.String("provider_id", p.ProviderID),
			zap.Float64("score", score),
		)
	}

	return score, adjustments
}

// Similarity computes Jaccard similarity on lowercased word sets.
func Similarity(a, b string) float64 {
	wordsA := wordSet(strings.ToLower(a))
	wordsB := wordSet(strings.ToLower(b))

	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}

	intersection := 0
	for w := range wordsA {
		if wordsB[w] {
			intersection++
		}
	}

	union := len(wordsA)
	for w := range wordsB {
		if !wordsA[w] {
			union++
		}
	}

	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func wordSet(s string) map[string]bool {
	words := strings.Fields(s)
	set := make(map[string]bool, len(words))
	for _, w := range words {
		w = strings.Trim(w, ".,;:!?()[]{}\"'")
		if w != "" {
			set[w] = true
		}
	}
	return set
}

// Round3 rounds to 3 decimal places.
func Round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
