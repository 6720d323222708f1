package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/sells-group/provider-directory/internal/enrich"
	"github.com/sells-group/provider-directory/internal/model"
	"github.com/sells-group/provider-directory/pkg/npi"
	"github.com/sells-group/provider-directory/pkg/places"
)

// Compile-time interface checks.
var (
	_ npi.Client      = (*StubRegistryClient)(nil)
	_ places.Client   = (*StubPlacesClient)(nil)
	_ enrich.Enricher = (*StubEnricher)(nil)
	_ enrich.Fetcher  = (*StubFetcher)(nil)
)

// StubRegistryClient implements npi.Client with canned identities so the
// pipeline can run offline. Any ten-digit NPI resolves; everything else
// returns no match.
type StubRegistryClient struct{}

func (s *StubRegistryClient) FetchIdentity(_ context.Context, npiNumber string) (*npi.IdentityRecord, error) {
	if len(npiNumber) != 10 {
		return nil, nil
	}
	return &npi.IdentityRecord{
		NPI:       npiNumber,
		Name:      "Dr. Stub Provider",
		Address:   "100 Main St, Springfield, IL",
		Phone:     "(217) 555-0100",
		Specialty: "Family Medicine",
	}, nil
}

// StubPlacesClient implements places.Client with deterministic results.
type StubPlacesClient struct{}

func (s *StubPlacesClient) VerifyAddress(_ context.Context, text string) (*places.AddressResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	return &places.AddressResult{
		FormattedAddress: text,
		Lat:              39.7817,
		Lng:              -89.6501,
	}, nil
}

func (s *StubPlacesClient) FindPlace(_ context.Context, name, locality string) (*places.PlaceResult, error) {
	if strings.TrimSpace(name) == "" {
		return nil, nil
	}
	return &places.PlaceResult{
		Name:    name,
		Address: fmt.Sprintf("100 Main St, %s", locality),
		Phone:   "(217) 555-0100",
		Website: "https://example.com/practice",
	}, nil
}

// StubEnricher implements enrich.Enricher with a fixed enrichment block.
type StubEnricher struct{}

func (s *StubEnricher) Enrich(_ context.Context, subject enrich.Subject) (model.Enrichment, error) {
	specialty := subject.Specialty
	if specialty == "" || specialty == model.SpecialtyUnknown {
		specialty = "Family Medicine"
	}
	return model.Enrichment{
		Education: model.FieldValue{Value: "MD, Stub University School of Medicine", Confidence: 0.8, Source: "stub"},
		Specialty: model.FieldValue{Value: specialty, Confidence: 0.7, Source: "stub"},
		Services: model.ListFieldValue{
			Values:     []string{"Annual physicals", "Preventive care"},
			Confidence: 0.8,
			Source:     "stub",
		},
		Affiliations: model.ListFieldValue{
			Values:     []string{"Springfield General Hospital"},
			Confidence: 0.85,
			Source:     "stub",
		},
	}, nil
}

// StubFetcher implements enrich.Fetcher with fixed page text.
type StubFetcher struct{}

func (s *StubFetcher) FetchText(_ context.Context, pageURL string) (string, error) {
	return fmt.Sprintf("Stub page for %s. Family Medicine practice offering annual physicals and preventive care.", pageURL), nil
}
