package geo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachedGeocoder_ForwardCachesHits(t *testing.T) {
	stub := &stubGeocoder{forwardResult: GeocodeResult{Lat: 12.97, Lon: 77.59, Found: true}}
	cached := NewCachedGeocoder(stub, 10, 10)

	for range 3 {
		result, err := cached.Geocode(context.Background(), "MG Road")
		require.NoError(t, err)
		assert.True(t, result.Found)
	}
	assert.Equal(t, 1, stub.forwardCalls)
}

func TestCachedGeocoder_DoesNotCacheMisses(t *testing.T) {
	stub := &stubGeocoder{forwardResult: GeocodeResult{Found: false}}
	cached := NewCachedGeocoder(stub, 10, 10)

	for range 3 {
		_, err := cached.Geocode(context.Background(), "nowhere")
		require.NoError(t, err)
	}
	assert.Equal(t, 3, stub.forwardCalls)
}

func TestCachedGeocoder_ReverseRoundsCoordinates(t *testing.T) {
	stub := &stubGeocoder{reverseResult: GeocodeResult{FormattedAddress: "MG Road", Found: true}}
	cached := NewCachedGeocoder(stub, 10, 10)

	// Jittered readings within ~11m share a cache entry.
	_, err := cached.ReverseGeocode(context.Background(), 12.97160, 77.59460)
	require.NoError(t, err)
	_, err = cached.ReverseGeocode(context.Background(), 12.97162, 77.59458)
	require.NoError(t, err)

	assert.Equal(t, 1, stub.reverseCalls)
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := newLRUCache(2)
	c.put("a", GeocodeResult{PlaceName: "a", Found: true})
	c.put("b", GeocodeResult{PlaceName: "b", Found: true})

	_, ok := c.get("a") // refresh a; b becomes LRU
	require.True(t, ok)

	c.put("c", GeocodeResult{PlaceName: "c", Found: true})

	_, ok = c.get("b")
	assert.False(t, ok)
	_, ok = c.get("a")
	assert.True(t, ok)
	_, ok = c.get("c")
	assert.True(t, ok)
}

func TestLRUCache_UpdateExistingKey(t *testing.T) {
	c := newLRUCache(2)
	c.put("a", GeocodeResult{PlaceName: "old", Found: true})
	c.put("a", GeocodeResult{PlaceName: "new", Found: true})

	got, ok := c.get("a")
	require.True(t, ok)
	assert.Equal(t, "new", got.PlaceName)
	assert.Len(t, c.entries, 1)
}
