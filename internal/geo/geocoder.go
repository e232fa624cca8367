package geo

import "context"

// GeocodeResult contains location data returned by a geocoding provider.
// Found is false when the provider had no answer for the query.
type GeocodeResult struct {
	Lat              float64
	Lon              float64
	FormattedAddress string
	PlaceName        string
	Confidence       float64 // 0.0–1.0 provider confidence score
	Found            bool
}

// Geocoder is the port to an external geocoding provider.
type Geocoder interface {
	// Geocode converts a free-text address to coordinates.
	Geocode(ctx context.Context, address string) (GeocodeResult, error)

	// ReverseGeocode converts coordinates to place details.
	ReverseGeocode(ctx context.Context, lat, lon float64) (GeocodeResult, error)
}
