// Package airtable provides a client for the Airtable records API.
package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Record is one Airtable row: its store-assigned id and field values.
type Record struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

// Client defines the Airtable operations used by this application.
type Client interface {
	// CreateRecord inserts one record and returns its store-assigned id.
	CreateRecord(ctx context.Context, tableID string, fields map[string]any) (string, error)
	// ListRecords returns the records matching a filterByFormula expression.
	ListRecords(ctx context.Context, tableID, formula string) ([]Record, error)
	// UpdateRecord patches fields on an existing record.
	UpdateRecord(ctx context.Context, tableID, recordID string, fields map[string]any) error
}

// ClientOption configures the Airtable client.
type ClientOption func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) ClientOption {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit overrides the default Airtable rate limit (5 req/s).
func WithRateLimit(rps float64) ClientOption {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			c.limiter = nil
		}
	}
}

type httpClient struct {
	token   string
	baseID  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates an Airtable client scoped to one base. By default, API
// calls are throttled to 5 req/s (Airtable's per-base rate limit).
func NewClient(token, baseID string, opts ...ClientOption) Client {
	c := &httpClient{
		token:   token,
		baseID:  baseID,
		baseURL: "https://api.airtable.com/v0",
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(5, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// wait blocks until the rate limiter allows one event, or ctx is cancelled.
func (c *httpClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func (c *httpClient) do(ctx context.Context, method, reqURL string, payload []byte) ([]byte, int, error) {
	if err := c.wait(ctx); err != nil {
		return nil, 0, eris.Wrap(err, "airtable: rate limit")
	}

	var rd io.Reader
	if payload != nil {
		rd = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, rd)
	if err != nil {
		return nil, 0, eris.Wrap(err, "airtable: create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, eris.Wrap(err, "airtable: request failed")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, eris.Wrap(err, "airtable: read response body")
	}
	return body, resp.StatusCode, nil
}

func (c *httpClient) tableURL(tableID string) string {
	return fmt.Sprintf("%s/%s/%s", c.baseURL, c.baseID, tableID)
}

type recordsEnvelope struct {
	Records []Record `json:"records"`
}

func (c *httpClient) CreateRecord(ctx context.Context, tableID string, fields map[string]any) (string, error) {
	payload, err := json.Marshal(recordsEnvelope{Records: []Record{{Fields: fields}}})
	if err != nil {
		return "", eris.Wrap(err, "airtable: marshal create payload")
	}

	body, status, err := c.do(ctx, http.MethodPost, c.tableURL(tableID), payload)
	if err != nil {
		return "", eris.Wrap(err, fmt.Sprintf("airtable: create record in %s", tableID))
	}
	if status != http.StatusOK {
		return "", eris.Errorf("airtable: create record in %s status %d: %s", tableID, status, string(body))
	}

	var result recordsEnvelope
	if err := json.Unmarshal(body, &result); err != nil {
		return "", eris.Wrap(err, "airtable: unmarshal create response")
	}
	if len(result.Records) == 0 {
		return "", eris.New("airtable: create response contained no records")
	}
	return result.Records[0].ID, nil
}

func (c *httpClient) ListRecords(ctx context.Context, tableID, formula string) ([]Record, error) {
	q := url.Values{}
	q.Set("filterByFormula", formula)
	reqURL := c.tableURL(tableID) + "?" + q.Encode()

	body, status, err := c.do(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("airtable: list records in %s", tableID))
	}
	if status != http.StatusOK {
		return nil, eris.Errorf("airtable: list records in %s status %d: %s", tableID, status, string(body))
	}

	var result recordsEnvelope
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "airtable: unmarshal list response")
	}
	return result.Records, nil
}

func (c *httpClient) UpdateRecord(ctx context.Context, tableID, recordID string, fields map[string]any) error {
	payload, err := json.Marshal(map[string]any{"fields": fields})
	if err != nil {
		return eris.Wrap(err, "airtable: marshal update payload")
	}

	reqURL := c.tableURL(tableID) + "/" + url.PathEscape(recordID)
	body, status, err := c.do(ctx, http.MethodPatch, reqURL, payload)
	if err != nil {
		return eris.Wrap(err, fmt.Sprintf("airtable: update record %s in %s", recordID, tableID))
	}
	if status != http.StatusOK {
		return eris.Errorf("airtable: update record %s in %s status %d: %s", recordID, tableID, status, string(body))
	}
	return nil
}
