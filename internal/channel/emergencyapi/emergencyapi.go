// Package emergencyapi sends structured alert payloads to an
// emergency-services dispatch endpoint over HTTPS.
package emergencyapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/linnemanlabs/beacon/internal/channel"
)

const httpTimeout = 10 * time.Second

// ErrNotConfigured is returned when no dispatch endpoint was configured.
// Unlike an optional channel, a missing dispatch endpoint must surface as a
// failed send so the trigger report records it.
var ErrNotConfigured = errors.New("emergencyapi: dispatch endpoint not configured")

// Sender posts alert payloads to the dispatch endpoint.
type Sender struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// New creates a dispatch sender. An empty endpoint is permitted at
// construction; Send then fails with ErrNotConfigured.
func New(endpoint, apiKey string) *Sender {
	return &Sender{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: httpTimeout},
	}
}

// Kind implements channel.Sender.
func (s *Sender) Kind() channel.Kind { return channel.KindEmergencyServices }

// Send posts the structured payload of msg to the dispatch endpoint.
func (s *Sender) Send(ctx context.Context, msg channel.Message) error {
	if s.endpoint == "" {
		return ErrNotConfigured
	}

	body, err := json.Marshal(msg.Payload)
	if err != nil {
		return fmt.Errorf("emergencyapi: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("emergencyapi: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req) //nolint:gosec // G704: endpoint is from trusted config, not user input
	if err != nil {
		return fmt.Errorf("emergencyapi: post alert: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("emergencyapi: endpoint returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
