package location

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// IPAPI queries an ip-api.com style JSON endpoint for coarse coordinates.
type IPAPI struct {
	endpoint string
	client   *http.Client
}

// NewIPAPI creates an IP geolocation client against the given endpoint.
func NewIPAPI(endpoint string, timeout time.Duration) *IPAPI {
	return &IPAPI{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Locate implements IPLocator.
func (c *IPAPI) Locate(ctx context.Context) (float64, float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("ipapi: create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("ipapi: query: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, 0, fmt.Errorf("ipapi: endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var out struct {
		Status  string  `json:"status"`
		Message string  `json:"message"`
		Lat     float64 `json:"lat"`
		Lon     float64 `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, 0, fmt.Errorf("ipapi: decode response: %w", err)
	}
	if out.Status != "success" {
		return 0, 0, fmt.Errorf("ipapi: lookup failed: %s", out.Message)
	}
	return out.Lat, out.Lon, nil
}
