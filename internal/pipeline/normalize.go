package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/city-events-etl/internal/domain"
	"github.com/couchcryptid/city-events-etl/internal/geo"
)

// Normalizer fills in missing location fields: coordinates from the
// free-text location, then full address, zone, and neighborhood from the
// coordinates. It never overwrites a field that already has a value and
// never fails a record; unresolved lookups surface as warnings.
type Normalizer struct {
	resolver *geo.Resolver
	logger   *slog.Logger
}

// NewNormalizer creates a Normalizer.
func NewNormalizer(resolver *geo.Resolver, logger *slog.Logger) *Normalizer {
	return &Normalizer{resolver: resolver, logger: logger}
}

// Normalize enriches one record's location fields. The returned warnings
// record which enrichments were skipped and why.
func (n *Normalizer) Normalize(ctx context.Context, event domain.CityEvent) (domain.CityEvent, []Warning) {
	var warnings []Warning
	warn := func(err error) {
		warnings = append(warnings, Warning{Stage: "normalize", EventID: event.ID, Err: err})
	}

	if event.Location != "" && !event.HasCoordinates() {
		if lat, lon, ok := n.resolver.Geocode(ctx, event.Location); ok {
			event.Coordinates = &domain.Geo{Lat: lat, Lon: lon}
		} else {
			warn(errGeocodeFailed)
		}
	}

	if !event.HasCoordinates() {
		return event, warnings
	}

	lat, lon := event.Coordinates.Lat, event.Coordinates.Lon
	if !n.resolver.InBounds(lat, lon) {
		// Out-of-region coordinates are bad data, not an error: drop them
		// and leave the locality fields unset.
		n.logger.Warn("coordinates outside operating region",
			"event_id", event.ID, "lat", lat, "lon", lon)
		event.Coordinates = nil
		warn(errOutOfRegion)
		return event, warnings
	}

	if event.FullAddress == "" {
		if addr, ok := n.resolver.ReverseGeocode(ctx, lat, lon); ok {
			event.FullAddress = addr
		} else {
			warn(errReverseGeocodeFailed)
		}
	}

	if event.Zone == "" {
		if zone, ok := n.resolver.FindZone(lat, lon); ok {
			event.Zone = zone
		}
	}
	if event.Neighborhood == "" {
		if hood, ok := n.resolver.FindNeighborhood(lat, lon, event.FullAddress); ok {
			event.Neighborhood = hood
		}
	}

	return event, warnings
}
