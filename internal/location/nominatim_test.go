package location

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNominatim_ReverseGeocode(t *testing.T) {
	t.Parallel()

	var gotLat, gotLon, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLat = r.URL.Query().Get("lat")
		gotLon = r.URL.Query().Get("lon")
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"display_name":"10 Downing Street, London"}`))
	}))
	t.Cleanup(srv.Close)

	c := NewNominatim(srv.URL, time.Second)
	addr, err := c.ReverseGeocode(context.Background(), 51.5034, -0.1276)
	if err != nil {
		t.Fatalf("ReverseGeocode: %v", err)
	}
	if addr != "10 Downing Street, London" {
		t.Errorf("address = %q, want display_name", addr)
	}
	if gotLat != "51.5034" || gotLon != "-0.1276" {
		t.Errorf("query lat/lon = %q, %q, want 51.5034, -0.1276", gotLat, gotLon)
	}
	if gotUA == "" {
		t.Error("expected identifying User-Agent header")
	}
}

func TestNominatim_ProviderError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"Unable to geocode"}`))
	}))
	t.Cleanup(srv.Close)

	c := NewNominatim(srv.URL, time.Second)
	_, err := c.ReverseGeocode(context.Background(), 0, 0)
	if err == nil {
		t.Fatal("expected error for provider error body")
	}
	if !strings.Contains(err.Error(), "Unable to geocode") {
		t.Errorf("error = %q, want provider message included", err)
	}
}

func TestNominatim_EmptyAddress(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)

	c := NewNominatim(srv.URL, time.Second)
	_, err := c.ReverseGeocode(context.Background(), 1, 2)
	if err == nil {
		t.Fatal("expected error for empty display_name")
	}
}
