package model

// Decision is the routing disposition for a scored profile.
type Decision string

const (
	DecisionAuto   Decision = "AUTO"
	DecisionReview Decision = "REVIEW"
	DecisionHold   Decision = "HOLD"
)

// Component score keys. Weights over these must sum to exactly 1.0.
const (
	ComponentIdentity     = "identity"
	ComponentAddress      = "address"
	ComponentPhone        = "phone"
	ComponentSpecialty    = "specialty"
	ComponentEducation    = "education"
	ComponentServices     = "services"
	ComponentAffiliations = "affiliations"
)

// Reason codes emitted by the reason generator, in check order.
const (
	ReasonLowIdentity     = "low_identity_confidence"
	ReasonMissingNPI      = "missing_npi"
	ReasonNPIUnverified   = "npi_unverified"
	ReasonLowAddress      = "low_address_confidence"
	ReasonLowPhone        = "low_phone_confidence"
	ReasonMissingSpec     = "missing_specialty"
	ReasonLowEducation    = "low_education_info"
	ReasonNoServices      = "no_services_listed"
	ReasonLowServices     = "low_services_confidence"
	ReasonNoAffiliations  = "no_affiliations"
	ReasonProcessingError = "processing_error"
)

// Adjustment rule names. Applied uplifts are appended to the reasons list.
const (
	AdjustSemanticSpecialtyBoost = "semantic_specialty_boost"
	AdjustNPISpecialtyUplift     = "npi_specialty_uplift"
)

// Adjustment records one deterministic uplift applied on top of the
// weighted sum. Never silently absorbed into the score.
type Adjustment struct {
	Type       string  `json:"type"`
	Value      float64 `json:"value"`
	Similarity float64 `json:"similarity,omitempty"`
	Reason     string  `json:"reason,omitempty"`
}

// EnrichmentHighlights is a trimmed view of the enrichment block used in
// the explainable summary and reports.
type EnrichmentHighlights struct {
	Education          FieldValue `json:"education"`
	Specialty          FieldValue `json:"specialty"`
	ServicesSample     []string   `json:"services_sample"`
	ServicesCount      int        `json:"services_count"`
	AffiliationsSample []string   `json:"affiliations_sample"`
	AffiliationsCount  int        `json:"affiliations_count"`
}

// ExplainableSummary is a denormalized view of the QA outcome for reporting.
type ExplainableSummary struct {
	ProviderID        string               `json:"provider_id"`
	Name              string               `json:"name"`
	NPI               string               `json:"npi"`
	IdentityStatus    IdentityStatus       `json:"identity_status"`
	Address           string               `json:"address"`
	Phone             string               `json:"phone"`
	ProfileConfidence float64              `json:"profile_confidence"`
	ComponentScores   map[string]float64   `json:"component_scores"`
	TopReasons        []string             `json:"top_reasons"`
	Highlights        EnrichmentHighlights `json:"enrichment_highlights"`
	Adjustments       []Adjustment         `json:"adjustments,omitempty"`
}

// QAResult is the scored, routed outcome attached to a profile.
// Decision is a monotone function of ProfileConfidence and the two
// configured thresholds; no other input influences it.
type QAResult struct {
	Decision          Decision            `json:"decision"`
	ProfileConfidence float64             `json:"profile_confidence"`
	ComponentScores   map[string]float64  `json:"component_scores"`
	Reasons           []string            `json:"reasons"`
	Description       string              `json:"description"`
	Summary           *ExplainableSummary `json:"explainable_summary,omitempty"`
}
