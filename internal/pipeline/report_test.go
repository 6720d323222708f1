package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/provider-directory/internal/model"
)

func TestFormatSummary(t *testing.T) {
	stats := model.RunStats{
		RunTimestamp:      time.Now(),
		TotalProcessed:    10,
		AutoCount:         5,
		ReviewCount:       3,
		HoldCount:         2,
		AvgAutoConfidence: 0.923,
	}

	out := FormatSummary(stats)

	assert.Contains(t, out, "QA SUMMARY REPORT")
	assert.Contains(t, out, "Total Providers: 10")
	assert.Contains(t, out, "AUTO:   5 (50.0%)")
	assert.Contains(t, out, "REVIEW: 3 (30.0%)")
	assert.Contains(t, out, "HOLD:   2 (20.0%)")
	assert.Contains(t, out, "Average AUTO Confidence: 0.923")
	assert.NotContains(t, out, "WARNING")
}

func TestFormatSummary_Degraded(t *testing.T) {
	out := FormatSummary(model.RunStats{TotalProcessed: 1, HoldCount: 1, Degraded: true})
	assert.Contains(t, out, "WARNING: run degraded")
	assert.Contains(t, out, "AUTO:   0 (0.0%)")
}

func holdProfile() *model.ProviderProfile {
	return &model.ProviderProfile{
		ProviderID:     "P010",
		Name:           "Jane Doe",
		IdentityStatus: model.IdentityNPIMissing,
		Address:        "200 Oak Ave",
		QA: &model.QAResult{
			Decision:          model.DecisionHold,
			ProfileConfidence: 0.34,
			Reasons:           []string{model.ReasonLowIdentity, model.ReasonMissingNPI},
			Summary: &model.ExplainableSummary{
				ProviderID:        "P010",
				Name:              "Jane Doe",
				IdentityStatus:    model.IdentityNPIMissing,
				Address:           "200 Oak Ave",
				ProfileConfidence: 0.34,
				TopReasons:        []string{model.ReasonLowIdentity},
			},
		},
	}
}

func TestFormatDetailed(t *testing.T) {
	out := FormatDetailed([]*model.ProviderProfile{holdProfile(), {ProviderID: "no-qa"}})

	assert.Contains(t, out, "Provider: P010 - Jane Doe")
	assert.Contains(t, out, "NPI: N/A")
	assert.Contains(t, out, "Profile Confidence: 0.340")
	assert.Contains(t, out, "Top Reasons: low_identity_confidence")
	assert.NotContains(t, out, "no-qa")
}

func TestFormatHoldEmails(t *testing.T) {
	autoProfile := &model.ProviderProfile{
		ProviderID: "P001",
		QA:         &model.QAResult{Decision: model.DecisionAuto},
	}

	out := FormatHoldEmails([]*model.ProviderProfile{holdProfile(), autoProfile})

	assert.Contains(t, out, "Subject: HOLD - Provider P010 requires verification")
	assert.Contains(t, out, "NPI: NOT PROVIDED")
	assert.Contains(t, out, "Issues: low_identity_confidence, missing_npi")
	assert.Contains(t, out, "Phone: N/A")
	assert.NotContains(t, out, "P001")
}
