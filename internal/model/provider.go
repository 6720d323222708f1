package model

// IdentityStatus describes how the provider's NPI was resolved.
// It is a pure function of whether an NPI was supplied and whether the
// registry lookup returned data; nothing else may set it.
type IdentityStatus string

const (
	IdentityNPIVerified   IdentityStatus = "NPI_VERIFIED"
	IdentityNPIUnverified IdentityStatus = "NPI_PROVIDED_UNVERIFIED"
	IdentityNPIMissing    IdentityStatus = "NPI_MISSING"
)

// SpecialtyUnknown is the placeholder used when the registry has no
// specialty data for a provider.
const SpecialtyUnknown = "Unknown"

// InputRow is one row of the batch input CSV.
type InputRow struct {
	ProviderID string `json:"provider_id"`
	FullName   string `json:"full_name"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	State      string `json:"state"`
	NPI        string `json:"npi"`
}

// FieldValue is a single reconciled or enriched scalar observation with a
// self-reported confidence and provenance tag. Immutable once produced.
type FieldValue struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source,omitempty"`
}

// ListFieldValue is a list-valued observation (services, affiliations).
type ListFieldValue struct {
	Values     []string `json:"value"`
	Confidence float64  `json:"confidence"`
	Source     string   `json:"source,omitempty"`
}

// Enrichment holds the field values attached by the enrichment collaborator.
type Enrichment struct {
	Education    FieldValue     `json:"education"`
	Specialty    FieldValue     `json:"specialty"`
	Services     ListFieldValue `json:"services"`
	Affiliations ListFieldValue `json:"affiliations"`
}

// ReconcileConfidence holds the per-field confidences produced by the
// field reconciler.
type ReconcileConfidence struct {
	Identity float64 `json:"identity"`
	Address  float64 `json:"address"`
	Phone    float64 `json:"phone"`
}

// SourceFlags records which collaborators returned usable data for a row.
type SourceFlags struct {
	NPIProvided   bool `json:"npi_provided"`
	NPIVerified   bool `json:"npi_verified"`
	PlacesAddress bool `json:"places_address"`
	PlacesPhone   bool `json:"places_phone"`
}

// ProviderProfile is the canonical reconciled record for one provider.
// Created by the field reconciler, mutated in place by the enricher and
// the QA scorer, then persisted; never deleted, only superseded.
type ProviderProfile struct {
	ProviderID     string              `json:"provider_id"`
	Name           string              `json:"name"`
	NPI            string              `json:"npi,omitempty"`
	IdentityStatus IdentityStatus      `json:"identity_status"`
	Address        string              `json:"address"`
	Phone          string              `json:"phone"`
	Specialty      string              `json:"specialty"`
	Confidence     ReconcileConfidence `json:"confidence"`
	Sources        SourceFlags         `json:"sources"`
	Enrichment     Enrichment          `json:"enrichment"`
	QA             *QAResult           `json:"qa,omitempty"`
}

// EffectiveSpecialty prefers the enriched specialty over the reconciled one,
// falling back to the Unknown placeholder. This is the value indexed by the
// store's specialty column.
func (p *ProviderProfile) EffectiveSpecialty() string {
	if p.Enrichment.Specialty.Value != "" {
		return p.Enrichment.Specialty.Value
	}
	if p.Specialty != "" {
		return p.Specialty
	}
	return SpecialtyUnknown
}
