// Package airquality looks up third-party pollutant concentrations by
// coordinates. The lookup is strictly best-effort: callers give it a bounded
// timeout and ingest proceeds without enrichment when it fails.
package airquality

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const defaultBaseURL = "https://air-quality-api.open-meteo.com/v1/air-quality"

// Result holds the pollutant concentrations a lookup returned. Fields are
// nil when the provider had no value for them.
type Result struct {
	PM25 *float64 `json:"pm25,omitempty"` // µg/m³
	PM10 *float64 `json:"pm10,omitempty"` // µg/m³
}

// Client queries the Open-Meteo air quality API.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates an air-quality lookup client with a hard request timeout.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    defaultBaseURL,
	}
}

// SetBaseURL points the client at a different provider endpoint, e.g. a
// self-hosted Open-Meteo mirror. Empty values are ignored.
func (c *Client) SetBaseURL(u string) {
	if u != "" {
		c.baseURL = u
	}
}

// Lookup fetches current pollutant concentrations for a coordinate pair.
func (c *Client) Lookup(ctx context.Context, lat, lon float64) (*Result, error) {
	params := url.Values{
		"latitude":  {strconv.FormatFloat(lat, 'f', 6, 64)},
		"longitude": {strconv.FormatFloat(lon, 'f', 6, 64)},
		"current":   {"pm2_5,pm10"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("air quality request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("air quality API error: status %d: %s", resp.StatusCode, body)
	}

	var apiResp response
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &Result{
		PM25: apiResp.Current.PM25,
		PM10: apiResp.Current.PM10,
	}, nil
}

// Open-Meteo API response types.

type response struct {
	Current current `json:"current"`
}

type current struct {
	PM25 *float64 `json:"pm2_5"`
	PM10 *float64 `json:"pm10"`
}
