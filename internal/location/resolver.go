// Package location resolves a best-available location for a subject through
// an ordered fallback chain: caller-provided coordinates, the subject's last
// stored fix, IP-based geolocation, and finally a configured default. The
// resolver never fails; some location beats none.
package location

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/beacon/internal/geo"
)

// LastFixStore is the slice of the persistence boundary the resolver needs.
type LastFixStore interface {
	GetLastLocation(ctx context.Context, subjectID string) (geo.Fix, bool, error)
}

// IPLocator resolves rough coordinates from the caller's network position.
type IPLocator interface {
	Locate(ctx context.Context) (lat, lon float64, err error)
}

// Geocoder turns coordinates into a human-readable address.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (string, error)
}

// Config carries the resolver's fixed knobs.
type Config struct {
	// DefaultLatitude/DefaultLongitude form the terminal fix of the chain.
	DefaultLatitude  float64
	DefaultLongitude float64

	// StaleAfter flags stored fixes older than this. A stale fix is still
	// used (the chain treats any stored fix as usable), it is only logged.
	StaleAfter time.Duration

	// LookupTimeout bounds each IP-geolocation and reverse-geocoding call.
	LookupTimeout time.Duration
}

// Resolver walks the fallback chain and annotates the winning fix with an
// address when the geocoder cooperates.
type Resolver struct {
	store    LastFixStore
	ip       IPLocator
	geocoder Geocoder
	cfg      Config
	clock    clock.Clock
	logger   log.Logger
}

// NewResolver creates a resolver. A nil clock falls back to the wall clock;
// a nil logger falls back to a no-op logger.
func NewResolver(store LastFixStore, ip IPLocator, geocoder Geocoder, cfg Config, clk clock.Clock, logger log.Logger) *Resolver {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Resolver{
		store:    store,
		ip:       ip,
		geocoder: geocoder,
		cfg:      cfg,
		clock:    clk,
		logger:   logger,
	}
}

// Resolve returns a usable fix for the subject. Provided coordinates win when
// both are present and in range; otherwise the chain falls through to the
// stored fix, IP geolocation, and the configured default. The returned fix
// always has coordinates; the address may be empty when reverse geocoding
// fails within its timeout.
func (r *Resolver) Resolve(ctx context.Context, subjectID string, lat, lon *float64) geo.Fix {
	fix := r.pick(ctx, subjectID, lat, lon)

	if fix.Address == "" {
		fix.Address = r.Address(ctx, fix.Latitude, fix.Longitude)
	}
	return fix
}

func (r *Resolver) pick(ctx context.Context, subjectID string, lat, lon *float64) geo.Fix {
	now := r.clock.Now()

	if lat != nil && lon != nil {
		if f, err := geo.NewFix(*lat, *lon, geo.SourceProvided, now); err == nil {
			return f
		}
		// out-of-range coordinates fall through to the next source
		r.logger.Warn(ctx, "provided coordinates out of range, falling back",
			"subject_id", subjectID, "latitude", *lat, "longitude", *lon)
	}

	if r.store != nil {
		stored, ok, err := r.store.GetLastLocation(ctx, subjectID)
		if err != nil {
			r.logger.Error(ctx, err, "last location lookup failed", "subject_id", subjectID)
		} else if ok {
			if r.cfg.StaleAfter > 0 && now.Sub(stored.Timestamp) > r.cfg.StaleAfter {
				r.logger.Warn(ctx, "using stale stored location",
					"subject_id", subjectID,
					"age_seconds", now.Sub(stored.Timestamp).Seconds(),
				)
			}
			stored.Source = geo.SourceLastKnown
			return stored
		}
	}

	if r.ip != nil {
		cctx, cancel := context.WithTimeout(ctx, r.cfg.LookupTimeout)
		ipLat, ipLon, err := r.ip.Locate(cctx)
		cancel()
		if err != nil {
			r.logger.Warn(ctx, "ip geolocation failed", "subject_id", subjectID, "error", err)
		} else if f, ferr := geo.NewFix(ipLat, ipLon, geo.SourceIPFallback, now); ferr == nil {
			return f
		}
	}

	return geo.Fix{
		Latitude:  r.cfg.DefaultLatitude,
		Longitude: r.cfg.DefaultLongitude,
		Source:    geo.SourceDefault,
		Timestamp: now,
	}
}

// Address reverse-geocodes coordinates within the lookup timeout. It returns
// an empty string on any failure; address lookup never propagates errors.
func (r *Resolver) Address(ctx context.Context, lat, lon float64) string {
	if r.geocoder == nil {
		return ""
	}
	cctx, cancel := context.WithTimeout(ctx, r.cfg.LookupTimeout)
	defer cancel()

	addr, err := r.geocoder.ReverseGeocode(cctx, lat, lon)
	if err != nil {
		r.logger.Warn(ctx, "reverse geocode failed", "latitude", lat, "longitude", lon, "error", err)
		return ""
	}
	return addr
}
