package places

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/provider-directory/internal/resilience"
)

const defaultBaseURL = "https://maps.googleapis.com/maps/api"

// AddressResult is a verified, standardized address.
type AddressResult struct {
	FormattedAddress string  `json:"formatted_address"`
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
}

// PlaceResult is a resolved business listing.
type PlaceResult struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Website string `json:"website"`
}

// Client performs address verification and place lookups.
type Client interface {
	// VerifyAddress geocodes free-text into a standardized address, or
	// (nil, nil) when nothing matches.
	VerifyAddress(ctx context.Context, text string) (*AddressResult, error)
	// FindPlace resolves a business by name and locality, or (nil, nil)
	// when nothing matches.
	FindPlace(ctx context.Context, name, locality string) (*PlaceResult, error)
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
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

// NewClient creates a places client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
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

type geocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

func (c *httpClient) VerifyAddress(ctx context.Context, text string) (*AddressResult, error) {
	if text == "" {
		return nil, nil
	}

	q := url.Values{}
	q.Set("address", text)
	q.Set("key", c.apiKey)

	var result geocodeResponse
	if err := c.get(ctx, "/geocode/json", q, &result); err != nil {
		return nil, err
	}
	if err := checkStatus(result.Status); err != nil {
		return nil, eris.Wrap(err, "places: geocode")
	}
	if len(result.Results) == 0 {
		return nil, nil
	}

	first := result.Results[0]
	return &AddressResult{
		FormattedAddress: first.FormattedAddress,
		Lat:              first.Geometry.Location.Lat,
		Lng:              first.Geometry.Location.Lng,
	}, nil
}

type textSearchResponse struct {
	Status  string `json:"status"`
	Results []struct {
		PlaceID string `json:"place_id"`
	} `json:"results"`
}

type detailsResponse struct {
	Status string `json:"status"`
	Result struct {
		Name                 string `json:"name"`
		FormattedAddress     string `json:"formatted_address"`
		FormattedPhoneNumber string `json:"formatted_phone_number"`
		Website              string `json:"website"`
		URL                  string `json:"url"`
	} `json:"result"`
}

func (c *httpClient) FindPlace(ctx context.Context, name, locality string) (*PlaceResult, error) {
	if name == "" {
		return nil, nil
	}

	q := url.Values{}
	q.Set("query", name+" "+locality)
	q.Set("key", c.apiKey)

	var search textSearchResponse
	if err := c.get(ctx, "/place/textsearch/json", q, &search); err != nil {
		return nil, err
	}
	if err := checkStatus(search.Status); err != nil {
		return nil, eris.Wrap(err, "places: text search")
	}
	if len(search.Results) == 0 {
		return nil, nil
	}

	dq := url.Values{}
	dq.Set("place_id", search.Results[0].PlaceID)
	dq.Set("fields", "name,formatted_address,formatted_phone_number,website,url")
	dq.Set("key", c.apiKey)

	var details detailsResponse
	if err := c.get(ctx, "/place/details/json", dq, &details); err != nil {
		return nil, err
	}
	if err := checkStatus(details.Status); err != nil {
		return nil, eris.Wrap(err, "places: details")
	}
	if details.Result.Name == "" && details.Result.FormattedAddress == "" {
		return nil, nil
	}

	website := details.Result.Website
	if website == "" {
		website = details.Result.URL
	}
	return &PlaceResult{
		Name:    details.Result.Name,
		Address: details.Result.FormattedAddress,
		Phone:   details.Result.FormattedPhoneNumber,
		Website: website,
	}, nil
}

func (c *httpClient) get(ctx context.Context, path string, q url.Values, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "places: rate limit wait")
		}
	}

	return resilience.Do(ctx, c.retry, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
		if err != nil {
			return eris.Wrap(err, "places: create request")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return eris.Wrap(err, "places: send request")
		}
		defer resp.Body.Close() //nolint:errcheck

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return eris.Wrap(err, "places: read response")
		}

		if resp.StatusCode != http.StatusOK {
			statusErr := eris.Errorf("places: unexpected status %d: %s", resp.StatusCode, string(body))
			if resilience.TransientStatus(resp.StatusCode) {
				return resilience.NewTransientError(statusErr, resp.StatusCode)
			}
			return statusErr
		}

		return eris.Wrap(json.Unmarshal(body, out), "places: unmarshal response")
	})
}

// checkStatus maps the API's embedded status field to an error.
// ZERO_RESULTS is not an error; it means no match.
func checkStatus(status string) error {
	switch status {
	case "OK", "ZERO_RESULTS", "":
		return nil
	default:
		return eris.Errorf("api status %s", status)
	}
}
