package enrich

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/provider-directory/internal/model"
	"github.com/sells-group/provider-directory/pkg/places"
)

func TestExtractEducation(t *testing.T) {
	edu, conf := extractEducation("Dr. Smith earned his MD from Harvard Medical School in 1998.")
	assert.Equal(t, "MD from Harvard Medical School", edu)
	assert.Equal(t, 0.8, conf)

	edu, conf = extractEducation("She graduated from Yale University")
	assert.Contains(t, edu, "Yale University")
	assert.Equal(t, 0.75, conf)

	edu, conf = extractEducation("We are open weekdays from 9 to 5.")
	assert.Empty(t, edu)
	assert.Zero(t, conf)
}

func TestExtractSpecialty(t *testing.T) {
	// a validated specialty short-circuits keyword matching
	spec, conf := extractSpecialty("anything", "Cardiology")
	assert.Equal(t, "Cardiology", spec)
	assert.Equal(t, 0.6, conf)

	spec, conf = extractSpecialty("We provide compassionate heart and cardiovascular care.", model.SpecialtyUnknown)
	assert.Equal(t, "Cardiology", spec)
	assert.Equal(t, 0.7, conf)

	spec, conf = extractSpecialty("We sell lawnmowers.", "")
	assert.Empty(t, spec)
	assert.Zero(t, conf)
}

func TestExtractServices(t *testing.T) {
	text := "We offer annual physicals, vaccinations, diabetes care. We provide sports medicine evaluations."
	services := extractServices(text)

	assert.Contains(t, services, "Annual Physicals")
	assert.Contains(t, services, "Vaccinations")
	assert.Contains(t, services, "Diabetes Care")
	assert.Contains(t, services, "Sports Medicine Evaluations")
}

func TestExtractServices_CapAndDedup(t *testing.T) {
	text := ""
	for i := 0; i < 3; i++ {
		text += "We offer annual physicals, vaccinations, diabetes care, flu shots, lab testing, minor procedures, wellness exams, sports physicals, travel medicine, skin checks, joint injections, allergy testing. "
	}
	services := extractServices(text)
	assert.Len(t, services, 10)
}

func TestExtractAffiliations(t *testing.T) {
	text := "Dr. Smith is affiliated with Springfield General Hospital and is a member of Prairie Health. He is affiliated with Springfield General Hospital."
	affiliations := extractAffiliations(text)

	assert.Contains(t, affiliations, "Springfield General Hospital")
	assert.Contains(t, affiliations, "Prairie Health")
	// duplicate mention collapsed
	assert.Len(t, affiliations, 2)
}

type fakePlaces struct {
	place *places.PlaceResult
}

func (f *fakePlaces) VerifyAddress(context.Context, string) (*places.AddressResult, error) {
	return nil, nil
}

func (f *fakePlaces) FindPlace(context.Context, string, string) (*places.PlaceResult, error) {
	return f.place, nil
}

type fakeFetcher struct {
	text string
	err  error
}

func (f *fakeFetcher) FetchText(context.Context, string) (string, error) {
	return f.text, f.err
}

func TestWebsiteEnricher(t *testing.T) {
	pl := &fakePlaces{place: &places.PlaceResult{
		Name:    "Smith Family Practice",
		Website: "https://smith.example.com",
	}}
	fetcher := &fakeFetcher{
		text: "Dr. Smith earned his MD from Harvard Medical School. " +
			"We offer annual physicals, vaccinations, diabetes care. " +
			"Dr. Smith is affiliated with Springfield General Hospital.",
	}
	w := NewWebsiteEnricher(pl, fetcher)

	out, err := w.Enrich(context.Background(), Subject{
		Name:      "Smith Family Practice",
		Locality:  "Springfield, IL",
		Specialty: "Family Medicine",
	})
	require.NoError(t, err)

	assert.Equal(t, "MD from Harvard Medical School", out.Education.Value)
	assert.Equal(t, "https://smith.example.com", out.Education.Source)
	assert.Equal(t, "Family Medicine", out.Specialty.Value)
	assert.Equal(t, 0.6, out.Specialty.Confidence)
	assert.NotEmpty(t, out.Services.Values)
	assert.Equal(t, 0.8, out.Services.Confidence)
	assert.Equal(t, []string{"Springfield General Hospital"}, out.Affiliations.Values)
}

func TestWebsiteEnricher_NoWebsite(t *testing.T) {
	w := NewWebsiteEnricher(&fakePlaces{place: &places.PlaceResult{Name: "No Site Clinic"}}, &fakeFetcher{})

	out, err := w.Enrich(context.Background(), Subject{Name: "No Site Clinic"})
	require.NoError(t, err)
	assert.Equal(t, model.Enrichment{}, out)
}

func TestWebsiteEnricher_FetchFailureIsSilent(t *testing.T) {
	pl := &fakePlaces{place: &places.PlaceResult{Website: "https://down.example.com"}}
	w := NewWebsiteEnricher(pl, &fakeFetcher{err: context.DeadlineExceeded})

	out, err := w.Enrich(context.Background(), Subject{Name: "Anyone"})
	require.NoError(t, err)
	assert.Equal(t, model.Enrichment{}, out)
}
