package location

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

const nominatimUserAgent = "beacon-emergency-alerts"

// Nominatim reverse-geocodes coordinates against a Nominatim-compatible
// endpoint.
type Nominatim struct {
	endpoint string
	client   *http.Client
}

// NewNominatim creates a reverse geocoding client against the given endpoint.
func NewNominatim(endpoint string, timeout time.Duration) *Nominatim {
	return &Nominatim{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// ReverseGeocode implements Geocoder.
func (c *Nominatim) ReverseGeocode(ctx context.Context, lat, lon float64) (string, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("nominatim: invalid endpoint: %w", err)
	}
	q := u.Query()
	q.Set("format", "jsonv2")
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("nominatim: create request: %w", err)
	}
	// Nominatim's usage policy requires an identifying User-Agent.
	req.Header.Set("User-Agent", nominatimUserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("nominatim: query: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("nominatim: endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var out struct {
		DisplayName string `json:"display_name"`
		Error       string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("nominatim: decode response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("nominatim: lookup failed: %s", out.Error)
	}
	if out.DisplayName == "" {
		return "", fmt.Errorf("nominatim: no address for %v, %v", lat, lon)
	}
	return out.DisplayName, nil
}
