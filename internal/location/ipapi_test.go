package location

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestIPAPI_Locate(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","lat":52.52,"lon":13.405}`))
	}))
	t.Cleanup(srv.Close)

	c := NewIPAPI(srv.URL, time.Second)
	lat, lon, err := c.Locate(context.Background())
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if lat != 52.52 || lon != 13.405 {
		t.Errorf("Locate = %v, %v, want 52.52, 13.405", lat, lon)
	}
}

func TestIPAPI_LookupFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"fail","message":"private range"}`))
	}))
	t.Cleanup(srv.Close)

	c := NewIPAPI(srv.URL, time.Second)
	_, _, err := c.Locate(context.Background())
	if err == nil {
		t.Fatal("expected error for fail status")
	}
	if !strings.Contains(err.Error(), "private range") {
		t.Errorf("error = %q, want provider message included", err)
	}
}

func TestIPAPI_HTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)

	c := NewIPAPI(srv.URL, time.Second)
	_, _, err := c.Locate(context.Background())
	if err == nil {
		t.Fatal("expected error for non-200 status")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("error = %q, want status code included", err)
	}
}
