package npi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/provider-directory/internal/resilience"
)

const (
	defaultBaseURL = "https://npiregistry.cms.hhs.gov/api/"
	apiVersion     = "2.1"
)

// IdentityRecord is the normalized identity data returned by the CMS
// NPI registry for one provider.
type IdentityRecord struct {
	NPI           string     `json:"npi"`
	Name          string     `json:"name"`
	Credential    string     `json:"credential,omitempty"`
	Address       string     `json:"address,omitempty"`
	Phone         string     `json:"phone,omitempty"`
	Specialty     string     `json:"specialty,omitempty"`
	LicenseState  string     `json:"license_state,omitempty"`
	RawTaxonomies []Taxonomy `json:"raw_taxonomies,omitempty"`
	RawAddresses  []Address  `json:"raw_addresses,omitempty"`
}

// Taxonomy is one registry taxonomy entry.
type Taxonomy struct {
	Code    string `json:"code"`
	Desc    string `json:"desc"`
	State   string `json:"state"`
	Primary bool   `json:"primary"`
}

// Address is one registry address entry.
type Address struct {
	Purpose    string `json:"address_purpose"`
	Address1   string `json:"address_1"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Telephone  string `json:"telephone_number"`
}

// Client performs NPI registry lookups.
type Client interface {
	// FetchIdentity returns the normalized registry record for an NPI,
	// or (nil, nil) when the registry has no match.
	FetchIdentity(ctx context.Context, npiNumber string) (*IdentityRecord, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit caps outbound requests per second.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

// NewClient creates an NPI registry client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
		retry: resilience.DefaultRetryConfig(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type registryResponse struct {
	ResultCount int              `json:"result_count"`
	Results     []registryResult `json:"results"`
}

type registryResult struct {
	Basic struct {
		FirstName  string `json:"first_name"`
		LastName   string `json:"last_name"`
		Credential string `json:"credential"`
	} `json:"basic"`
	Addresses  []Address  `json:"addresses"`
	Taxonomies []Taxonomy `json:"taxonomies"`
}

func (c *httpClient) FetchIdentity(ctx context.Context, npiNumber string) (*IdentityRecord, error) {
	npiNumber = strings.TrimSpace(npiNumber)
	if npiNumber == "" {
		return nil, nil
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "npi: rate limit wait")
		}
	}

	q := url.Values{}
	q.Set("number", npiNumber)
	q.Set("version", apiVersion)

	var result registryResponse
	err := resilience.Do(ctx, c.retry, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
		if err != nil {
			return eris.Wrap(err, "npi: create request")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return eris.Wrap(err, "npi: send request")
		}
		defer resp.Body.Close() //nolint:errcheck

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return eris.Wrap(err, "npi: read response")
		}

		if resp.StatusCode != http.StatusOK {
			statusErr := eris.Errorf("npi: unexpected status %d: %s", resp.StatusCode, string(body))
			if resilience.TransientStatus(resp.StatusCode) {
				return resilience.NewTransientError(statusErr, resp.StatusCode)
			}
			return statusErr
		}

		return eris.Wrap(json.Unmarshal(body, &result), "npi: unmarshal response")
	})
	if err != nil {
		return nil, err
	}

	if result.ResultCount == 0 || len(result.Results) == 0 {
		return nil, nil
	}

	return normalize(npiNumber, result.Results[0]), nil
}

// normalize extracts the practice-location address, phone, and primary
// taxonomy from a raw registry result.
func normalize(npiNumber string, r registryResult) *IdentityRecord {
	rec := &IdentityRecord{
		NPI:           npiNumber,
		Name:          strings.TrimSpace(r.Basic.FirstName + " " + r.Basic.LastName),
		Credential:    r.Basic.Credential,
		RawTaxonomies: r.Taxonomies,
		RawAddresses:  r.Addresses,
	}

	for _, addr := range r.Addresses {
		if addr.Purpose != "LOCATION" {
			continue
		}
		rec.Address = fmt.Sprintf("%s, %s, %s %s", addr.Address1, addr.City, addr.State, addr.PostalCode)
		rec.Phone = addr.Telephone
		break
	}

	if len(r.Taxonomies) > 0 {
		primary := r.Taxonomies[0]
		for _, t := range r.Taxonomies {
			if t.Primary {
				primary = t
				break
			}
		}
		rec.Specialty = primary.Desc
		rec.LicenseState = primary.State
	}

	return rec
}
