// Package geocode is the client for the external place/geocoding API that
// backs address search and the confirmation form.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	apperrors "github.com/SIACAML/cooqu-order/pkg/errors"
)

const (
	autocompletePath = "/place/autocomplete/json"
	detailsPath      = "/place/details/json"
	reversePath      = "/geocode/json"
)

// ErrLoading is returned by Search while the one-time warm-up has not yet
// completed. Degraded, not fatal: callers retry once the service is ready.
var ErrLoading = &apperrors.AppError{
	Code:    "SERVICE_LOADING",
	Message: "address search is still loading, try again shortly",
	Status:  http.StatusServiceUnavailable,
	Err:     apperrors.ErrServiceUnavail,
}

// Doer executes HTTP requests. Satisfied by httpclient.Client and
// httpclient.CircuitBreakerClient.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Client calls the geocoding API. Search refuses to run until Ready has
// succeeded once; concurrent warm-up attempts are collapsed into a single
// probe via singleflight.
type Client struct {
	baseURL string
	apiKey  string
	http    Doer
	logger  *slog.Logger

	ready  atomic.Bool
	warmup singleflight.Group
}

// NewClient creates a geocoding client.
func NewClient(baseURL, apiKey string, doer Doer, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    doer,
		logger:  logger,
	}
}

// Candidate is one autocomplete suggestion.
type Candidate struct {
	PlaceID     string `json:"place_id"`
	Description string `json:"description"`
}

// Ready probes the external service once and marks the client usable. All
// concurrent callers share the same in-flight probe; a failed probe leaves
// the client not-ready so the next caller retries it.
func (c *Client) Ready(ctx context.Context) error {
	if c.ready.Load() {
		return nil
	}
	_, err, _ := c.warmup.Do("warmup", func() (any, error) {
		if c.ready.Load() {
			return nil, nil
		}
		if err := c.probe(ctx); err != nil {
			return nil, err
		}
		c.ready.Store(true)
		c.logger.InfoContext(ctx, "geocoding service ready")
		return nil, nil
	})
	return err
}

// probe issues a minimal reverse-geocode to confirm the service answers with
// a well-formed status.
func (c *Client) probe(ctx context.Context) error {
	q := url.Values{}
	q.Set("latlng", "0,0")
	var resp geocodeResponse
	if err := c.get(ctx, reversePath, q, &resp); err != nil {
		return fmt.Errorf("geocode warm-up: %w", err)
	}
	// 0,0 is open ocean, so ZERO_RESULTS is the expected healthy answer.
	// Anything else (REQUEST_DENIED, OVER_QUERY_LIMIT) means the service
	// will refuse real lookups too.
	if resp.Status != statusOK && resp.Status != statusZeroResults {
		return apperrors.Upstream(fmt.Sprintf("geocode warm-up failed: %s", resp.Status))
	}
	return nil
}

// Search returns autocomplete candidates for a free-text query. Until the
// warm-up has completed it returns ErrLoading without touching the network.
func (c *Client) Search(ctx context.Context, query string) ([]Candidate, error) {
	if !c.ready.Load() {
		return nil, ErrLoading
	}

	q := url.Values{}
	q.Set("input", query)
	q.Set("components", "country:in")

	var resp struct {
		Status      string      `json:"status"`
		Predictions []Candidate `json:"predictions"`
	}
	if err := c.get(ctx, autocompletePath, q, &resp); err != nil {
		return nil, err
	}
	if resp.Status != statusOK && resp.Status != statusZeroResults {
		return nil, apperrors.Upstream(fmt.Sprintf("place search failed: %s", resp.Status))
	}
	return resp.Predictions, nil
}

// Resolve fetches the full geometry and address components for a candidate.
func (c *Client) Resolve(ctx context.Context, placeID string) (*Resolved, error) {
	q := url.Values{}
	q.Set("place_id", placeID)
	q.Set("fields", "geometry,formatted_address,address_component")

	var resp struct {
		Status string       `json:"status"`
		Result geocodeEntry `json:"result"`
	}
	if err := c.get(ctx, detailsPath, q, &resp); err != nil {
		return nil, err
	}
	if resp.Status != statusOK {
		return nil, apperrors.Upstream(fmt.Sprintf("place details failed: %s", resp.Status))
	}
	return mapEntry(resp.Result), nil
}

// ReverseResolve maps coordinates (typically from browser geolocation) to an
// address, returning the same shape as Resolve.
func (c *Client) ReverseResolve(ctx context.Context, lat, lng float64) (*Resolved, error) {
	q := url.Values{}
	q.Set("latlng", formatLatLng(lat, lng))

	var resp geocodeResponse
	if err := c.get(ctx, reversePath, q, &resp); err != nil {
		return nil, err
	}
	if resp.Status != statusOK || len(resp.Results) == 0 {
		return nil, apperrors.NotFound("address for location", formatLatLng(lat, lng))
	}
	return mapEntry(resp.Results[0]), nil
}

// geocodeResponse is the reverse-geocode body; details uses a single result.
type geocodeResponse struct {
	Status  string         `json:"status"`
	Results []geocodeEntry `json:"results"`
}

const (
	statusOK          = "OK"
	statusZeroResults = "ZERO_RESULTS"
)

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	q.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return apperrors.Upstream(fmt.Sprintf("geocoding service returned %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func formatLatLng(lat, lng float64) string {
	return strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lng, 'f', -1, 64)
}
