package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/city-events-etl/internal/domain"
	"github.com/couchcryptid/city-events-etl/internal/geo"
)

type stubGeocoder struct {
	forward      map[string]geo.GeocodeResult
	forwardErr   error
	reverseAddr  string
	forwardCalls int
	reverseCalls int
}

func (s *stubGeocoder) Geocode(_ context.Context, address string) (geo.GeocodeResult, error) {
	s.forwardCalls++
	if s.forwardErr != nil {
		return geo.GeocodeResult{}, s.forwardErr
	}
	return s.forward[address], nil
}

func (s *stubGeocoder) ReverseGeocode(_ context.Context, _, _ float64) (geo.GeocodeResult, error) {
	s.reverseCalls++
	if s.reverseAddr == "" {
		return geo.GeocodeResult{}, nil
	}
	return geo.GeocodeResult{Found: true, FormattedAddress: s.reverseAddr}, nil
}

func newTestNormalizer(gc geo.Geocoder) *Normalizer {
	resolver := geo.NewResolver(gc, geo.DefaultBounds, geo.DefaultZones, geo.DefaultNeighborhoods, slog.Default())
	return NewNormalizer(resolver, slog.Default())
}

func TestNormalize_GeocodesMissingCoordinates(t *testing.T) {
	gc := &stubGeocoder{
		forward: map[string]geo.GeocodeResult{
			"Trinity Circle": {Lat: 12.9732, Lon: 77.6194, Found: true},
		},
		reverseAddr: "Trinity Circle, near Indiranagar, Bengaluru",
	}
	n := newTestNormalizer(gc)

	event, warnings := n.Normalize(context.Background(), domain.CityEvent{
		ID:       "evt-1",
		Location: "Trinity Circle",
	})

	require.True(t, event.HasCoordinates())
	assert.InDelta(t, 12.9732, event.Coordinates.Lat, 1e-9)
	assert.Equal(t, "Trinity Circle, near Indiranagar, Bengaluru", event.FullAddress)
	assert.Equal(t, "east", event.Zone)
	assert.Equal(t, "Indiranagar", event.Neighborhood)
	assert.Empty(t, warnings)
}

func TestNormalize_GeocodeFailureIsAWarning(t *testing.T) {
	gc := &stubGeocoder{forwardErr: errors.New("provider down")}
	n := newTestNormalizer(gc)

	event, warnings := n.Normalize(context.Background(), domain.CityEvent{
		ID:       "evt-2",
		Location: "Silk Board",
	})

	assert.False(t, event.HasCoordinates())
	require.Len(t, warnings, 1)
	assert.ErrorIs(t, warnings[0].Err, errGeocodeFailed)
	assert.Equal(t, "evt-2", warnings[0].EventID)
}

func TestNormalize_OutOfRegionCoordinatesCleared(t *testing.T) {
	gc := &stubGeocoder{reverseAddr: "should never be used"}
	n := newTestNormalizer(gc)

	// Chennai, well outside the operating region.
	event, warnings := n.Normalize(context.Background(), domain.CityEvent{
		ID:          "evt-3",
		Coordinates: &domain.Geo{Lat: 13.0827, Lon: 80.2707},
	})

	assert.Nil(t, event.Coordinates)
	assert.Empty(t, event.FullAddress)
	assert.Empty(t, event.Zone)
	require.Len(t, warnings, 1)
	assert.ErrorIs(t, warnings[0].Err, errOutOfRegion)
	assert.Zero(t, gc.reverseCalls, "out-of-region points must not reach the provider")
}

func TestNormalize_SkipsReverseGeocodeWhenAddressPresent(t *testing.T) {
	gc := &stubGeocoder{reverseAddr: "100 MG Road"}
	n := newTestNormalizer(gc)

	event, warnings := n.Normalize(context.Background(), domain.CityEvent{
		ID:          "evt-4",
		Coordinates: &domain.Geo{Lat: 12.9716, Lon: 77.5946},
		FullAddress: "Town Hall, Bengaluru",
	})

	assert.Equal(t, "Town Hall, Bengaluru", event.FullAddress)
	assert.Zero(t, gc.reverseCalls)
	assert.Equal(t, "central", event.Zone)
	assert.Empty(t, warnings)
}

func TestNormalize_ReverseGeocodeFailureIsAWarning(t *testing.T) {
	gc := &stubGeocoder{} // reverse returns not-found
	n := newTestNormalizer(gc)

	event, warnings := n.Normalize(context.Background(), domain.CityEvent{
		ID:          "evt-5",
		Coordinates: &domain.Geo{Lat: 12.9716, Lon: 77.5946},
	})

	assert.Empty(t, event.FullAddress)
	require.Len(t, warnings, 1)
	assert.ErrorIs(t, warnings[0].Err, errReverseGeocodeFailed)
	// Zone still resolves from coordinates alone.
	assert.Equal(t, "central", event.Zone)
}

func TestNormalize_NeverOverwritesExistingFields(t *testing.T) {
	gc := &stubGeocoder{reverseAddr: "somewhere else"}
	n := newTestNormalizer(gc)

	event, _ := n.Normalize(context.Background(), domain.CityEvent{
		ID:           "evt-6",
		Location:     "Majestic",
		Coordinates:  &domain.Geo{Lat: 12.9716, Lon: 77.5946},
		FullAddress:  "Kempegowda Bus Station",
		Zone:         "west",
		Neighborhood: "Majestic",
	})

	assert.Zero(t, gc.forwardCalls, "existing coordinates must not be re-geocoded")
	assert.Equal(t, "Kempegowda Bus Station", event.FullAddress)
	assert.Equal(t, "west", event.Zone)
	assert.Equal(t, "Majestic", event.Neighborhood)
}

func TestNormalize_NoLocationNoCoordinates(t *testing.T) {
	n := newTestNormalizer(&stubGeocoder{})

	event, warnings := n.Normalize(context.Background(), domain.CityEvent{ID: "evt-7"})

	assert.False(t, event.HasCoordinates())
	assert.Empty(t, warnings)
}
