// Package geo provides the location primitives shared by the resolver and
// the emergency workflow: a resolved fix with source provenance, and
// coordinate validation.
package geo

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrInvalidCoordinates reports a latitude/longitude pair outside the valid
// ranges, or a pair where only one coordinate was supplied.
var ErrInvalidCoordinates = errors.New("invalid coordinates")

// Source identifies where a fix came from in the fallback chain.
type Source string

const (
	// SourceProvided means the caller supplied the coordinates with the trigger.
	SourceProvided Source = "provided"

	// SourceLastKnown means the coordinates came from the subject's stored location.
	SourceLastKnown Source = "last_known"

	// SourceIPFallback means the coordinates came from IP-based geolocation.
	SourceIPFallback Source = "ip_fallback"

	// SourceDefault means the configured default location was used.
	SourceDefault Source = "default"
)

// Fix is a point-in-time location. A Fix is only ever constructed with both
// coordinates present; partial coordinates are rejected before construction.
type Fix struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Address   string    `json:"address,omitempty"`
	Source    Source    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

// ValidCoordinates reports whether lat/lon fall inside -90..90 / -180..180.
func ValidCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// NewFix constructs a Fix after range-checking the coordinates.
func NewFix(lat, lon float64, src Source, ts time.Time) (Fix, error) {
	if !ValidCoordinates(lat, lon) {
		return Fix{}, fmt.Errorf("%w: %v, %v", ErrInvalidCoordinates, lat, lon)
	}
	return Fix{Latitude: lat, Longitude: lon, Source: src, Timestamp: ts}, nil
}

// Coordinates returns the fix as a "lat, lon" string for message formatting.
func (f Fix) Coordinates() string {
	return formatCoord(f.Latitude) + ", " + formatCoord(f.Longitude)
}

// MapsLink returns a Google Maps URL pointing at the fix.
func (f Fix) MapsLink() string {
	return "https://www.google.com/maps?q=" + formatCoord(f.Latitude) + "," + formatCoord(f.Longitude)
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
