package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/provider-directory/internal/model"
	"github.com/sells-group/provider-directory/pkg/npi"
	"github.com/sells-group/provider-directory/pkg/places"
)

func TestFieldConfidence_TieBreakTable(t *testing.T) {
	tests := []struct {
		name        string
		registry    string
		place       string
		caller      string
		hasIdentity bool
		want        float64
	}{
		{"all three agree", "100 Main St", "100 Main St", "100 main st", true, 1.0},
		{"registry and place agree, verified", "100 Main St", "100 Main St", "200 Oak Ave", true, 0.90},
		{"registry and place agree, unverified", "100 Main St", "100 Main St", "200 Oak Ave", false, 0.75},
		{"place and caller agree, verified", "200 Oak Ave", "100 Main St", "100 Main St", true, 0.85},
		{"place and caller agree, unverified", "200 Oak Ave", "100 Main St", "100 Main St", false, 0.70},
		{"all three disagree", "100 Main St", "200 Oak Ave", "300 Elm Rd", true, 0.60},
		{"registry and place only, verified", "100 Main St", "100 Main St", "", true, 0.90},
		{"registry and place disagree, no caller", "100 Main St", "200 Oak Ave", "", true, 0.85},
		{"registry and place disagree, no caller, unverified", "100 Main St", "200 Oak Ave", "", false, 0.70},
		{"place only", "", "100 Main St", "", false, 0.70},
		{"registry only", "100 Main St", "", "", true, 0.75},
		{"caller only", "", "", "100 Main St", false, 0.40},
		{"nothing", "", "", "", false, 0.40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fieldConfidence(tt.registry, tt.place, tt.caller, tt.hasIdentity))
		})
	}
}

func TestValuesEqual(t *testing.T) {
	assert.True(t, valuesEqual("100 Main St", "100  main  st"))
	assert.True(t, valuesEqual("(217) 555-0100", "217-555-0100"))
	assert.True(t, valuesEqual("+12175550100", "(217) 555-0100"))
	assert.False(t, valuesEqual("100 Main St", "200 Oak Ave"))
	assert.False(t, valuesEqual("", ""))
	assert.False(t, valuesEqual("100", "100 Main"))
}

func TestIdentityStatus(t *testing.T) {
	assert.Equal(t, model.IdentityNPIVerified, identityStatus(true, true))
	assert.Equal(t, model.IdentityNPIUnverified, identityStatus(true, false))
	assert.Equal(t, model.IdentityNPIMissing, identityStatus(false, false))
}

func TestReconcile_RegistryWins(t *testing.T) {
	row := model.InputRow{
		ProviderID: "P001",
		FullName:   "John Smith",
		NPI:        "1234567890",
		Phone:      "555-0000",
		Address:    "1 Caller Way",
	}
	obs := Observations{
		Registry: &npi.IdentityRecord{
			NPI:       "1234567890",
			Name:      "Dr. John Smith",
			Address:   "100 Main St, Springfield, IL",
			Phone:     "(217) 555-0100",
			Specialty: "Family Medicine",
		},
		Address: &places.AddressResult{FormattedAddress: "100 Main St, Springfield, IL"},
		Place:   &places.PlaceResult{Name: "Smith Family Practice", Phone: "(217) 555-0100"},
	}

	p := Reconcile(row, obs)

	assert.Equal(t, "Dr. John Smith", p.Name)
	assert.Equal(t, "100 Main St, Springfield, IL", p.Address)
	assert.Equal(t, "+12175550100", p.Phone)
	assert.Equal(t, "Family Medicine", p.Specialty)
	assert.Equal(t, model.IdentityNPIVerified, p.IdentityStatus)
	assert.Equal(t, 0.9, p.Confidence.Identity)
	// registry and places agree on address with verified identity
	assert.Equal(t, 0.90, p.Confidence.Address)
	assert.Equal(t, 0.90, p.Confidence.Phone)
	assert.True(t, p.Sources.NPIVerified)
	assert.True(t, p.Sources.PlacesAddress)
	assert.True(t, p.Sources.PlacesPhone)
}

func TestReconcile_NoNPI(t *testing.T) {
	row := model.InputRow{ProviderID: "P002", FullName: "Jane Doe", Address: "200 Oak Ave"}

	p := Reconcile(row, Observations{})

	assert.Equal(t, model.IdentityNPIMissing, p.IdentityStatus)
	assert.Equal(t, 0.6, p.Confidence.Identity)
	assert.Equal(t, "Jane Doe", p.Name)
	assert.Equal(t, "200 Oak Ave", p.Address)
	assert.Equal(t, model.SpecialtyUnknown, p.Specialty)
	assert.Equal(t, 0.40, p.Confidence.Address)
	assert.False(t, p.Sources.NPIProvided)
}

func TestReconcile_UnverifiedNPI(t *testing.T) {
	// NPI supplied but the registry returned nothing.
	row := model.InputRow{ProviderID: "P003", FullName: "Jane Doe", NPI: "9999999999"}

	p := Reconcile(row, Observations{})

	assert.Equal(t, model.IdentityNPIUnverified, p.IdentityStatus)
	assert.Equal(t, 0.6, p.Confidence.Identity)
	assert.True(t, p.Sources.NPIProvided)
	assert.False(t, p.Sources.NPIVerified)
}

func TestReconcile_PlaceFallback(t *testing.T) {
	// No registry data: places wins over the caller row.
	row := model.InputRow{
		ProviderID: "P004",
		FullName:   "Jane Doe",
		Phone:      "555-0000",
		Address:    "1 Caller Way",
	}
	obs := Observations{
		Address: &places.AddressResult{FormattedAddress: "300 Elm Rd, Dayton, OH"},
		Place:   &places.PlaceResult{Name: "Doe Clinic", Phone: "(937) 555-0199"},
	}

	p := Reconcile(row, obs)

	require.Equal(t, "300 Elm Rd, Dayton, OH", p.Address)
	assert.Equal(t, "Doe Clinic", p.Name)
	assert.Equal(t, "+19375550199", p.Phone)
	assert.Equal(t, 0.70, p.Confidence.Phone)
}

func TestReconcile_Deterministic(t *testing.T) {
	row := model.InputRow{ProviderID: "P005", FullName: "Jane Doe", NPI: "1234567890"}
	obs := Observations{Registry: &npi.IdentityRecord{Name: "Dr. Jane Doe", Specialty: "Cardiology"}}

	a := Reconcile(row, obs)
	b := Reconcile(row, obs)
	assert.Equal(t, a, b)
}
