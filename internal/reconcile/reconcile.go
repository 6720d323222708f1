// Package reconcile merges per-field observations from the NPI registry,
// the places lookup, and the caller-supplied row into one resolved value
// per field with a deterministic confidence.
package reconcile

import (
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/provider-directory/internal/model"
	"github.com/sells-group/provider-directory/pkg/npi"
	"github.com/sells-group/provider-directory/pkg/places"
)

// Observations holds the per-source data gathered for one input row.
// Any collaborator that errored or returned nothing is represented as nil;
// reconciliation always proceeds with whatever remains.
type Observations struct {
	Registry *npi.IdentityRecord
	Address  *places.AddressResult
	Place    *places.PlaceResult
}

// Reconcile resolves one input row plus its source observations into a
// canonical profile with per-field confidences. Deterministic: identical
// inputs always yield identical output.
func Reconcile(row model.InputRow, obs Observations) *model.ProviderProfile {
	npiProvided := strings.TrimSpace(row.NPI) != ""
	hasIdentity := npiProvided && obs.Registry != nil

	var regName, regAddress, regPhone, regSpecialty string
	if obs.Registry != nil {
		regName = obs.Registry.Name
		regAddress = obs.Registry.Address
		regPhone = obs.Registry.Phone
		regSpecialty = obs.Registry.Specialty
	}

	var placeName, placeAddress, placePhone string
	if obs.Address != nil {
		placeAddress = obs.Address.FormattedAddress
	}
	if obs.Place != nil {
		placeName = obs.Place.Name
		placePhone = obs.Place.Phone
	}

	p := &model.ProviderProfile{
		ProviderID:     row.ProviderID,
		NPI:            strings.TrimSpace(row.NPI),
		Name:           resolveValue(regName, placeName, row.FullName),
		Address:        resolveValue(regAddress, placeAddress, row.Address),
		Phone:          NormalizePhone(resolveValue(regPhone, placePhone, row.Phone)),
		Specialty:      resolveSpecialty(regSpecialty),
		IdentityStatus: identityStatus(npiProvided, hasIdentity),
		Sources: model.SourceFlags{
			NPIProvided:   npiProvided,
			NPIVerified:   hasIdentity,
			PlacesAddress: obs.Address != nil,
			PlacesPhone:   obs.Place != nil && placePhone != "",
		},
		Confidence: model.ReconcileConfidence{
			Identity: identityConfidence(hasIdentity),
			Address:  fieldConfidence(regAddress, placeAddress, row.Address, hasIdentity),
			Phone:    fieldConfidence(regPhone, placePhone, row.Phone, hasIdentity),
		},
	}

	zap.L().Debug("reconcile: resolved row",
		zap.String("provider_id", p.ProviderID),
		zap.String("identity_status", string(p.IdentityStatus)),
		zap.Float64("address_conf", p.Confidence.Address),
		zap.Float64("phone_conf", p.Confidence.Phone),
	)

	return p
}

// resolveValue picks the field value by source precedence:
// registry wins over places, places wins over the caller-supplied value.
func resolveValue(registry, place, caller string) string {
	if strings.TrimSpace(registry) != "" {
		return registry
	}
	if strings.TrimSpace(place) != "" {
		return place
	}
	return caller
}

// resolveSpecialty falls back to the Unknown placeholder when the registry
// has no specialty data. Places and caller rows never carry specialty.
func resolveSpecialty(registry string) string {
	if strings.TrimSpace(registry) != "" {
		return registry
	}
	return model.SpecialtyUnknown
}

// identityStatus is a pure function of NPI presence and registry resolution.
func identityStatus(npiProvided, registryResolved bool) model.IdentityStatus {
	switch {
	case registryResolved:
		return model.IdentityNPIVerified
	case npiProvided:
		return model.IdentityNPIUnverified
	default:
		return model.IdentityNPIMissing
	}
}

// identityConfidence is 0.9 for a registry-verified NPI, 0.6 otherwise.
func identityConfidence(hasIdentity bool) float64 {
	if hasIdentity {
		return 0.9
	}
	return 0.6
}

// fieldConfidence applies the agreement tie-break table for one logical
// field across the three sources. Evaluated top-down, first match wins.
func fieldConfidence(registry, place, caller string, hasIdentity bool) float64 {
	reg := strings.TrimSpace(registry) != ""
	pl := strings.TrimSpace(place) != ""
	cal := strings.TrimSpace(caller) != ""

	switch {
	case reg && pl && cal && valuesEqual(registry, place) && valuesEqual(place, caller):
		return 1.0
	case reg && pl && valuesEqual(registry, place):
		return pick(hasIdentity, 0.90, 0.75)
	case pl && cal && valuesEqual(place, caller):
		return pick(hasIdentity, 0.85, 0.70)
	case reg && pl && cal:
		return 0.60
	case reg && pl:
		return pick(hasIdentity, 0.85, 0.70)
	case pl:
		return 0.70
	case reg:
		return 0.75
	default:
		return 0.40
	}
}

func pick(cond bool, yes, no float64) float64 {
	if cond {
		return yes
	}
	return no
}

// valuesEqual compares observations loosely: case-insensitive with
// whitespace collapsed. Phone observations additionally compare on digits
// only so formatting differences between sources don't mask agreement.
func valuesEqual(a, b string) bool {
	na, nb := normalizeForCompare(a), normalizeForCompare(b)
	if na == "" || nb == "" {
		return false
	}
	if na == nb {
		return true
	}
	da, db := digitsOnly(a), digitsOnly(b)
	return len(da) >= 7 && da == db
}

func normalizeForCompare(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
