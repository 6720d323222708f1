package npi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const registryFixture = `{
	"result_count": 1,
	"results": [{
		"basic": {"first_name": "JOHN", "last_name": "SMITH", "credential": "MD"},
		"addresses": [
			{"address_purpose": "MAILING", "address_1": "PO BOX 1", "city": "CHICAGO", "state": "IL", "postal_code": "60601", "telephone_number": "312-555-0122"},
			{"address_purpose": "LOCATION", "address_1": "100 MAIN ST", "city": "SPRINGFIELD", "state": "IL", "postal_code": "62701", "telephone_number": "217-555-0100"}
		],
		"taxonomies": [
			{"code": "207R00000X", "desc": "Internal Medicine", "state": "IL", "primary": false},
			{"code": "207Q00000X", "desc": "Family Medicine", "state": "IL", "primary": true}
		]
	}]
}`

func TestFetchIdentity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1234567890", r.URL.Query().Get("number"))
		assert.Equal(t, "2.1", r.URL.Query().Get("version"))
		w.Write([]byte(registryFixture))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	rec, err := c.FetchIdentity(context.Background(), "1234567890")
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, "1234567890", rec.NPI)
	assert.Equal(t, "JOHN SMITH", rec.Name)
	assert.Equal(t, "MD", rec.Credential)
	// practice location, not mailing
	assert.Equal(t, "100 MAIN ST, SPRINGFIELD, IL 62701", rec.Address)
	assert.Equal(t, "217-555-0100", rec.Phone)
	// primary taxonomy wins
	assert.Equal(t, "Family Medicine", rec.Specialty)
	assert.Equal(t, "IL", rec.LicenseState)
	assert.Len(t, rec.RawTaxonomies, 2)
}

func TestFetchIdentity_NoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result_count": 0, "results": []}`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	rec, err := c.FetchIdentity(context.Background(), "9999999999")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestFetchIdentity_EmptyNPI(t *testing.T) {
	c := NewClient()
	rec, err := c.FetchIdentity(context.Background(), "  ")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestFetchIdentity_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broken", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	_, err := c.FetchIdentity(context.Background(), "1234567890")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
