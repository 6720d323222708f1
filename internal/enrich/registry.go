package enrich

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/provider-directory/internal/model"
	"github.com/sells-group/provider-directory/pkg/npi"
)

// registrySource is the provenance tag for registry-derived enrichment.
// The scorer's NPI specialty uplift keys on this tag.
const registrySource = "NPI Registry"

// RegistryEnricher derives enrichment fields from the NPI registry record:
// the primary taxonomy becomes the specialty, the credential hints at
// education.
type RegistryEnricher struct {
	registry npi.Client
}

// NewRegistryEnricher creates a registry-backed enrichment strategy.
func NewRegistryEnricher(reg npi.Client) *RegistryEnricher {
	return &RegistryEnricher{registry: reg}
}

// Enrich looks the subject up by NPI. No NPI or no registry match yields
// an empty Enrichment.
func (r *RegistryEnricher) Enrich(ctx context.Context, s Subject) (model.Enrichment, error) {
	var out model.Enrichment
	if s.NPI == "" {
		return out, nil
	}

	rec, err := r.registry.FetchIdentity(ctx, s.NPI)
	if err != nil {
		zap.L().Warn("enrich: registry lookup failed", zap.String("npi", s.NPI), zap.Error(err))
		return out, nil
	}
	if rec == nil {
		return out, nil
	}

	if rec.Specialty != "" {
		out.Specialty = model.FieldValue{
			Value:      rec.Specialty,
			Confidence: 0.75,
			Source:     registrySource,
		}
	}
	if rec.Credential != "" {
		out.Education = model.FieldValue{
			Value:      rec.Credential,
			Confidence: 0.7,
			Source:     registrySource,
		}
	}

	return out, nil
}
