package enrich

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/provider-directory/internal/model"
	"github.com/sells-group/provider-directory/pkg/places"
)

// specialtyKeywords maps a canonical specialty label to the lowercased
// keywords that indicate it in page text. Checked in a stable order.
var specialtyKeywords = []struct {
	Canon    string
	Keywords []string
}{
	{"Cardiology", []string{"cardio", "heart", "cardiovascular"}},
	{"Pediatrics", []string{"pediatr", "children", "kids"}},
	{"Dentist", []string{"dentist", "dental", "dds", "dmd", "orthodont"}},
	{"Ophthalmology", []string{"ophthalmology", "eye", "vision", "lasik"}},
	{"Optometry", []string{"optomet"}},
	{"Pharmacy", []string{"pharmacy", "pharmac", "pharmacist"}},
	{"Chiropractic", []string{"chiropractic", "chiropractor"}},
	{"Gynecology", []string{"gynecology", "obstetric", "ob/gyn", "women's health"}},
	{"Surgery", []string{"surgery", "surgeon", "surgical"}},
	{"Dermatology", []string{"dermatology", "dermato", "skin"}},
	{"Orthopedics", []string{"orthopedic", "ortho", "bone", "joint"}},
	{"Neurology", []string{"neurology", "neuro", "brain", "neurological"}},
	{"ENT", []string{"ear nose throat", "ent", "otolaryngology"}},
	{"Internal Medicine", []string{"internal medicine", "internist"}},
	{"Family Medicine", []string{"family medicine", "primary care", "general practice"}},
	{"Psychiatry", []string{"psychiatry", "psychiatrist", "mental health"}},
	{"Radiology", []string{"radiology", "imaging", "radiologist"}},
	{"Oncology", []string{"oncology", "oncologist", "cancer"}},
}

var (
	educationRe = regexp.MustCompile(`(?i)\b(MD|M\.D\.|DO|D\.O\.|PhD|Ph\.D\.|DDS|DMD)\b.{0,60}?(?:from|at)\s+([A-Z][A-Za-z\s&,.]+(?:University|College|School|Institute))`)
	graduateRe  = regexp.MustCompile(`(?i)(?:graduated from|received .{0,40}?degree from|attended|studied at)\s+([A-Z][A-Za-z0-9&,.\- ]{3,80})`)
	serviceRe   = regexp.MustCompile(`(?i)(?:we offer|we provide|services include|specializ(?:e|ing) in)\s+([A-Za-z0-9 ,&\-]{5,150})`)
	affiliateRe = regexp.MustCompile(`(?i)(?:affiliated with|member of|staff at|practices at)\s+([A-Z][A-Za-z0-9 &\-]{3,80}?(?:Hospital|Medical Center|Health|Clinic))`)
)

var titleCaser = cases.Title(language.AmericanEnglish)

// WebsiteEnricher locates the practice's public website through the places
// lookup and extracts enrichment fields from its text with keyword and
// regex heuristics.
type WebsiteEnricher struct {
	places  places.Client
	fetcher Fetcher
}

// NewWebsiteEnricher creates a website enrichment strategy.
func NewWebsiteEnricher(pl places.Client, f Fetcher) *WebsiteEnricher {
	return &WebsiteEnricher{places: pl, fetcher: f}
}

// Enrich finds and mines the provider's website. Missing website or fetch
// failure yields an empty Enrichment, never an error past the boundary.
func (w *WebsiteEnricher) Enrich(ctx context.Context, s Subject) (model.Enrichment, error) {
	var out model.Enrichment

	place, err := w.places.FindPlace(ctx, s.Name, s.Locality)
	if err != nil {
		zap.L().Warn("enrich: place lookup failed", zap.String("name", s.Name), zap.Error(err))
		return out, nil
	}
	if place == nil || place.Website == "" {
		return out, nil
	}

	text, err := w.fetcher.FetchText(ctx, place.Website)
	if err != nil {
		zap.L().Warn("enrich: website fetch failed", zap.String("url", place.Website), zap.Error(err))
		return out, nil
	}

	src := place.Website

	if edu, conf := extractEducation(text); edu != "" {
		out.Education = model.FieldValue{Value: edu, Confidence: conf, Source: src}
	}
	if spec, conf := extractSpecialty(text, s.Specialty); spec != "" {
		out.Specialty = model.FieldValue{Value: spec, Confidence: conf, Source: src}
	}
	if services := extractServices(text); len(services) > 0 {
		out.Services = model.ListFieldValue{Values: services, Confidence: 0.8, Source: src}
	}
	if affiliations := extractAffiliations(text); len(affiliations) > 0 {
		out.Affiliations = model.ListFieldValue{Values: affiliations, Confidence: 0.85, Source: src}
	}

	return out, nil
}

func extractEducation(text string) (string, float64) {
	if m := educationRe.FindString(text); m != "" {
		if len(m) > 100 {
			m = m[:100]
		}
		return strings.TrimSpace(m), 0.8
	}
	if m := graduateRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1]), 0.75
	}
	return "", 0
}

func extractSpecialty(text, validated string) (string, float64) {
	if validated != "" && validated != model.SpecialtyUnknown {
		return validated, 0.6
	}
	lower := strings.ToLower(text)
	for _, entry := range specialtyKeywords {
		for _, kw := range entry.Keywords {
			if strings.Contains(lower, kw) {
				return entry.Canon, 0.7
			}
		}
	}
	return "", 0
}

func extractServices(text string) []string {
	var services []string
	seen := make(map[string]bool)
	for _, m := range serviceRe.FindAllStringSubmatch(text, -1) {
		for _, item := range strings.Split(m[1], ",") {
			item = strings.TrimSpace(strings.Trim(item, ".&- "))
			if len(item) < 5 || len(item) > 150 {
				continue
			}
			item = titleCaser.String(strings.ToLower(item))
			if !seen[item] {
				seen[item] = true
				services = append(services, item)
			}
		}
	}
	if len(services) > 10 {
		services = services[:10]
	}
	return services
}

func extractAffiliations(text string) []string {
	var affiliations []string
	seen := make(map[string]bool)
	for _, m := range affiliateRe.FindAllStringSubmatch(text, -1) {
		aff := strings.TrimSpace(m[1])
		if !seen[aff] {
			seen[aff] = true
			affiliations = append(affiliations, aff)
		}
	}
	if len(affiliations) > 8 {
		affiliations = affiliations[:8]
	}
	return affiliations
}
