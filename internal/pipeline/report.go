package pipeline

import (
	"fmt"
	"strings"

	"github.com/sells-group/provider-directory/internal/model"
)

const reportRule = "------------------------------------------------------------"

// FormatSummary generates the run-level QA summary report.
func FormatSummary(stats model.RunStats) string {
	var b strings.Builder

	b.WriteString("QA SUMMARY REPORT\n")
	b.WriteString(strings.Repeat("=", 60) + "\n\n")
	fmt.Fprintf(&b, "Total Providers: %d\n\n", stats.TotalProcessed)

	b.WriteString("DECISIONS:\n")
	fmt.Fprintf(&b, "  AUTO:   %d (%s)\n", stats.AutoCount, percent(stats.AutoCount, stats.TotalProcessed))
	fmt.Fprintf(&b, "  REVIEW: %d (%s)\n", stats.ReviewCount, percent(stats.ReviewCount, stats.TotalProcessed))
	fmt.Fprintf(&b, "  HOLD:   %d (%s)\n\n", stats.HoldCount, percent(stats.HoldCount, stats.TotalProcessed))

	fmt.Fprintf(&b, "Average AUTO Confidence: %.3f\n", stats.AvgAutoConfidence)
	if stats.Degraded {
		b.WriteString("\nWARNING: run degraded, one or more records were not persisted\n")
	}
	return b.String()
}

// FormatDetailed renders one explainable block per profile.
func FormatDetailed(profiles []*model.ProviderProfile) string {
	var b strings.Builder
	for _, p := range profiles {
		if p.QA == nil || p.QA.Summary == nil {
			continue
		}
		s := p.QA.Summary
		fmt.Fprintf(&b, "Provider: %s - %s\n", s.ProviderID, s.Name)
		fmt.Fprintf(&b, "  NPI: %s  Identity: %s\n", orNA(s.NPI), s.IdentityStatus)
		fmt.Fprintf(&b, "  Address: %s\n", orNA(s.Address))
		fmt.Fprintf(&b, "  Phone: %s\n", orNA(s.Phone))
		fmt.Fprintf(&b, "  Decision: %s\n", p.QA.Decision)
		fmt.Fprintf(&b, "  Profile Confidence: %.3f\n", s.ProfileConfidence)
		fmt.Fprintf(&b, "  Component Scores: %s\n", formatComponents(s.ComponentScores))
		fmt.Fprintf(&b, "  Top Reasons: %s\n", orNone(strings.Join(s.TopReasons, ", ")))
		b.WriteString("  Enrichment Highlights:\n")
		fmt.Fprintf(&b, "    Education: %s\n", orNA(s.Highlights.Education.Value))
		fmt.Fprintf(&b, "    Specialty: %s\n", orNA(s.Highlights.Specialty.Value))
		fmt.Fprintf(&b, "    Services Sample: %s\n", orNone(strings.Join(s.Highlights.ServicesSample, ", ")))
		fmt.Fprintf(&b, "    Affiliations Sample: %s\n", orNone(strings.Join(s.Highlights.AffiliationsSample, ", ")))
		b.WriteString(reportRule + "\n\n")
	}
	return b.String()
}

// FormatHoldEmails drafts one verification request per HOLD profile.
func FormatHoldEmails(profiles []*model.ProviderProfile) string {
	var b strings.Builder
	for _, p := range profiles {
		if p.QA == nil || p.QA.Decision != model.DecisionHold {
			continue
		}
		fmt.Fprintf(&b, "Subject: HOLD - Provider %s requires verification\n\n", p.ProviderID)
		fmt.Fprintf(&b, "Provider: %s\n", p.Name)
		fmt.Fprintf(&b, "NPI: %s\n", orNotProvided(p.NPI))
		fmt.Fprintf(&b, "Identity Status: %s\n", p.IdentityStatus)
		fmt.Fprintf(&b, "Profile Confidence: %.3f\n", p.QA.ProfileConfidence)
		fmt.Fprintf(&b, "Issues: %s\n\n", orNone(strings.Join(p.QA.Reasons, ", ")))
		b.WriteString("Action Required:\n")
		b.WriteString("Please contact the provider to verify their information and request missing documentation.\n\n")
		b.WriteString("Contact Info:\n")
		fmt.Fprintf(&b, "Phone: %s\n", orNA(p.Phone))
		fmt.Fprintf(&b, "Address: %s\n\n", orNA(p.Address))
		b.WriteString(reportRule + "\n\n")
	}
	return b.String()
}

func formatComponents(scores map[string]float64) string {
	keys := []string{
		model.ComponentIdentity, model.ComponentAddress, model.ComponentPhone,
		model.ComponentSpecialty, model.ComponentEducation, model.ComponentServices,
		model.ComponentAffiliations,
	}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if v, ok := scores[k]; ok {
			parts = append(parts, fmt.Sprintf("%s=%.2f", k, v))
		}
	}
	return strings.Join(parts, " ")
}

func percent(n, total int) string {
	if total == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(n)/float64(total)*100)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}

func orNotProvided(s string) string {
	if s == "" {
		return "NOT PROVIDED"
	}
	return s
}
