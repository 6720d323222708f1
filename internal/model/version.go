package model

import "time"

// VersionEntry is one immutable audit record for a provider profile.
// Rows are strictly append-only, one per processing pass, ordered by
// VersionTimestamp.
type VersionEntry struct {
	ID               int64            `json:"id"`
	ProviderID       string           `json:"provider_id"`
	VersionTimestamp time.Time        `json:"version_timestamp"`
	Snapshot         *ProviderProfile `json:"record_snapshot"`
	ChangeSummary    string           `json:"change_summary"`
}

// RunStats aggregates one batch execution. Written once per run,
// never mutated after.
type RunStats struct {
	RunID             int64     `json:"run_id,omitempty"`
	RunTimestamp      time.Time `json:"run_timestamp"`
	TotalProcessed    int       `json:"total_processed"`
	AutoCount         int       `json:"auto_count"`
	ReviewCount       int       `json:"review_count"`
	HoldCount         int       `json:"hold_count"`
	AvgAutoConfidence float64   `json:"avg_auto_confidence"`
	Degraded          bool      `json:"degraded,omitempty"`
}

// SpecialtyCount pairs a specialty with its provider count.
type SpecialtyCount struct {
	Specialty string `json:"specialty"`
	Count     int    `json:"count"`
}

// ConfidenceDistribution buckets AUTO providers by profile confidence.
type ConfidenceDistribution struct {
	High   int `json:"high"`   // >= 0.90
	Medium int `json:"medium"` // 0.75 - 0.89
	Low    int `json:"low"`    // < 0.75
}

// DirectoryStats summarizes the current directory contents.
type DirectoryStats struct {
	Total                   int                    `json:"total"`
	ByDecision              map[Decision]int       `json:"by_decision"`
	AvgConfidenceByDecision map[Decision]float64   `json:"avg_confidence_by_decision"`
	TopSpecialties          []SpecialtyCount       `json:"top_specialties"`
	Confidence              ConfidenceDistribution `json:"confidence_distribution"`
}
