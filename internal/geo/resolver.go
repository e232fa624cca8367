package geo

import (
	"context"
	"log/slog"
	"strings"
)

// Resolver anchors events to the operating region: it geocodes free-text
// locations, reverse-geocodes coordinates, and maps points onto the
// configured zones and neighborhoods. Every lookup degrades gracefully; a
// provider failure or an out-of-region result yields "not resolved", never
// an error the caller has to handle.
type Resolver struct {
	geocoder      Geocoder // nil disables provider lookups
	bounds        BoundingBox
	zones         []Zone
	neighborhoods []string
	logger        *slog.Logger
}

// NewResolver creates a Resolver. Pass a nil geocoder to run offline; zone
// and neighborhood resolution still work from coordinates.
func NewResolver(geocoder Geocoder, bounds BoundingBox, zones []Zone, neighborhoods []string, logger *slog.Logger) *Resolver {
	return &Resolver{
		geocoder:      geocoder,
		bounds:        bounds,
		zones:         zones,
		neighborhoods: neighborhoods,
		logger:        logger,
	}
}

// InBounds reports whether the point lies inside the operating region.
func (r *Resolver) InBounds(lat, lon float64) bool {
	return r.bounds.Contains(lat, lon)
}

// Geocode resolves a free-text address to coordinates. Returns ok=false on
// provider failure, empty results, or coordinates outside the region.
func (r *Resolver) Geocode(ctx context.Context, address string) (lat, lon float64, ok bool) {
	address = strings.TrimSpace(address)
	if r.geocoder == nil || address == "" {
		return 0, 0, false
	}

	result, err := r.geocoder.Geocode(ctx, address)
	if err != nil {
		r.logger.Warn("geocoding failed", "address", address, "error", err)
		return 0, 0, false
	}
	if !result.Found {
		return 0, 0, false
	}
	if !r.bounds.Contains(result.Lat, result.Lon) {
		r.logger.Warn("geocoding result outside operating region",
			"address", address, "lat", result.Lat, "lon", result.Lon)
		return 0, 0, false
	}
	return result.Lat, result.Lon, true
}

// ReverseGeocode resolves coordinates to a formatted address. The bounding
// box is validated first; out-of-region points return ok=false without
// touching the provider.
func (r *Resolver) ReverseGeocode(ctx context.Context, lat, lon float64) (address string, ok bool) {
	if !r.bounds.Contains(lat, lon) {
		return "", false
	}
	if r.geocoder == nil {
		return "", false
	}

	result, err := r.geocoder.ReverseGeocode(ctx, lat, lon)
	if err != nil {
		r.logger.Warn("reverse geocoding failed", "lat", lat, "lon", lon, "error", err)
		return "", false
	}
	if !result.Found || result.FormattedAddress == "" {
		return "", false
	}
	return result.FormattedAddress, true
}

// FindZone returns the name of the nearest configured zone center, or
// ok=false when no zones are configured. Ties break toward the zone listed
// first.
func (r *Resolver) FindZone(lat, lon float64) (string, bool) {
	if len(r.zones) == 0 {
		return "", false
	}

	best := r.zones[0]
	bestDist := DistanceKm(lat, lon, best.Lat, best.Lon)
	for _, z := range r.zones[1:] {
		if d := DistanceKm(lat, lon, z.Lat, z.Lon); d < bestDist {
			best, bestDist = z, d
		}
	}
	return best.Name, true
}

// FindNeighborhood prefers a known neighborhood name appearing in the
// address text; when none matches it falls back to the nearest zone.
func (r *Resolver) FindNeighborhood(lat, lon float64, address string) (string, bool) {
	if address != "" {
		lower := strings.ToLower(address)
		for _, n := range r.neighborhoods {
			if strings.Contains(lower, strings.ToLower(n)) {
				return n, true
			}
		}
	}
	return r.FindZone(lat, lon)
}
