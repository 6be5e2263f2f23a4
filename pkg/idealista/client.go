// Package idealista provides a client for the Idealista property search API.
package idealista

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"
)

// Listing is one published property from a search response.
type Listing struct {
	PropertyCode string  `json:"propertyCode"`
	Price        float64 `json:"price"`
	Size         float64 `json:"size"`
	Rooms        int     `json:"rooms"`
	Bathrooms    int     `json:"bathrooms"`
	Neighborhood string  `json:"neighborhood"`
	District     string  `json:"district"`
	Municipality string  `json:"municipality"`
	Address      string  `json:"address"`
	URL          string  `json:"url"`
	Exterior     bool    `json:"exterior"`
	HasLift      bool    `json:"hasLift"`
	PriceByArea  float64 `json:"priceByArea"`
}

// SearchRequest holds the sale-search parameters.
type SearchRequest struct {
	Center   string // "lat,lng"
	Distance int    // meters
	MaxItems int
	Page     int
}

// SearchResponse is the parsed search API response.
type SearchResponse struct {
	ElementList []Listing `json:"elementList"`
	Total       int       `json:"total"`
	TotalPages  int       `json:"totalPages"`
}

// Client defines the Idealista API operations used by this application.
type Client interface {
	// Search runs a homes-for-sale search around a coordinate center.
	Search(ctx context.Context, req SearchRequest) (*SearchResponse, error)
}

// Option configures the Idealista client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client, bypassing the OAuth2 transport
// (for testing).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit overrides the default rate limit (1 req/s — the public API
// quota is tight).
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			c.limiter = nil
		}
	}
}

type httpClient struct {
	apiKey  string
	secret  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates an Idealista client. Tokens come from the basic-auth
// client-credentials exchange with scope "read" and are refreshed by the
// transport.
func NewClient(apiKey, secret string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		secret:  secret,
		baseURL: "https://api.idealista.com",
		limiter: rate.NewLimiter(1, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		conf := &clientcredentials.Config{
			ClientID:     apiKey,
			ClientSecret: secret,
			TokenURL:     c.baseURL + "/oauth/token",
			Scopes:       []string{"read"},
			AuthStyle:    oauth2.AuthStyleInHeader,
		}
		c.http = conf.Client(context.Background())
		c.http.Timeout = 30 * time.Second
	}
	return c
}

func (c *httpClient) Search(ctx context.Context, sr SearchRequest) (*SearchResponse, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "idealista: rate limit")
		}
	}

	form := url.Values{}
	form.Set("operation", "sale")
	form.Set("propertyType", "homes")
	form.Set("center", sr.Center)
	form.Set("distance", strconv.Itoa(sr.Distance))
	form.Set("sort", "desc")
	form.Set("maxItems", strconv.Itoa(sr.MaxItems))
	form.Set("language", "es")
	page := sr.Page
	if page < 1 {
		page = 1
	}
	form.Set("numPage", strconv.Itoa(page))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/3.5/es/search",
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, eris.Wrap(err, "idealista: create search request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "idealista: search request failed")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "idealista: read response body")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("idealista: search status %d: %s", resp.StatusCode, string(body))
	}

	var result SearchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "idealista: unmarshal search response")
	}
	return &result, nil
}
