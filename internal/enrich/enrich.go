// Package enrich implements the enrichment collaborator boundary: strategies
// that attach education, specialty, services, and affiliations field values
// to a reconciled profile. Strategies never raise past the boundary; a
// failed strategy contributes nothing.
package enrich

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/provider-directory/internal/model"
)

// Subject identifies the provider being enriched.
type Subject struct {
	Name      string
	Address   string
	Locality  string
	Specialty string
	NPI       string
}

// Enricher produces enrichment field values for a provider. Each returned
// FieldValue carries a self-reported confidence in [0,1] and a provenance
// tag (source identifier or URL).
type Enricher interface {
	Enrich(ctx context.Context, s Subject) (model.Enrichment, error)
}

// Chain composes strategies in order. Later strategies only fill fields the
// earlier ones left empty. A strategy error is logged and skipped.
type Chain []Enricher

// Enrich runs the chain. Never returns an error: partial data is the
// expected degraded outcome.
func (c Chain) Enrich(ctx context.Context, s Subject) (model.Enrichment, error) {
	var out model.Enrichment
	for _, e := range c {
		got, err := e.Enrich(ctx, s)
		if err != nil {
			zap.L().Warn("enrich: strategy failed", zap.Error(err))
			continue
		}
		merge(&out, got)
	}
	return out, nil
}

func merge(dst *model.Enrichment, src model.Enrichment) {
	if dst.Education.Value == "" && src.Education.Value != "" {
		dst.Education = src.Education
	}
	if dst.Specialty.Value == "" && src.Specialty.Value != "" {
		dst.Specialty = src.Specialty
	}
	if len(dst.Services.Values) == 0 && len(src.Services.Values) > 0 {
		dst.Services = src.Services
	}
	if len(dst.Affiliations.Values) == 0 && len(src.Affiliations.Values) > 0 {
		dst.Affiliations = src.Affiliations
	}
}
