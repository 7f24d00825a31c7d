package emergencyapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/linnemanlabs/beacon/internal/channel"
)

func testMessage() channel.Message {
	return channel.Message{
		Destination: "dispatch",
		Payload: map[string]any{
			"alert_type": "medical",
			"location":   map[string]any{"latitude": 40.7128, "longitude": -74.006},
		},
	}
}

func TestSend_PostsPayload(t *testing.T) {
	t.Parallel()

	var gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusAccepted)
	}))
	t.Cleanup(srv.Close)

	s := New(srv.URL, "key-123")
	if err := s.Send(context.Background(), testMessage()); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gotAuth != "Bearer key-123" {
		t.Errorf("Authorization = %q, want bearer key", gotAuth)
	}
	if gotBody["alert_type"] != "medical" {
		t.Errorf("payload alert_type = %v, want medical", gotBody["alert_type"])
	}
}

func TestSend_NotConfigured(t *testing.T) {
	t.Parallel()

	s := New("", "")
	err := s.Send(context.Background(), testMessage())
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("Send error = %v, want ErrNotConfigured", err)
	}
}

func TestSend_Non2xx(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "dispatch region unavailable", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	s := New(srv.URL, "")
	err := s.Send(context.Background(), testMessage())
	if err == nil {
		t.Fatal("expected error for 503 response")
	}
	if !strings.Contains(err.Error(), "503") {
		t.Errorf("error = %q, want status code included", err)
	}
}

func TestKind(t *testing.T) {
	t.Parallel()

	if got := New("", "").Kind(); got != channel.KindEmergencyServices {
		t.Errorf("Kind() = %q, want %q", got, channel.KindEmergencyServices)
	}
}
