package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceKm_IdenticalPoints(t *testing.T) {
	assert.Equal(t, 0.0, DistanceKm(12.9716, 77.5946, 12.9716, 77.5946))
}

func TestDistanceKm_Symmetry(t *testing.T) {
	d1 := DistanceKm(12.9716, 77.5946, 13.0358, 77.5970)
	d2 := DistanceKm(13.0358, 77.5970, 12.9716, 77.5946)
	assert.Equal(t, d1, d2)
}

func TestDistanceKm_KnownLandmarks(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		wantKm                 float64
	}{
		{"paris to london", 48.8566, 2.3522, 51.5074, -0.1278, 343.556},
		{"bengaluru to chennai", 12.9716, 77.5946, 13.0827, 80.2707, 290.172},
		{"mg road to whitefield", 12.9757, 77.6067, 12.9698, 77.7500, 15.541},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceKm(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			// 0.1% relative tolerance.
			assert.InDelta(t, tt.wantKm, got, tt.wantKm*0.001)
		})
	}
}

func TestBoundingBox_Contains(t *testing.T) {
	b := DefaultBounds

	assert.True(t, b.Contains(12.9716, 77.5946))  // central Bengaluru
	assert.True(t, b.Contains(12.75, 77.40))      // inclusive corner
	assert.False(t, b.Contains(13.0827, 80.2707)) // Chennai
	assert.False(t, b.Contains(28.6139, 77.2090)) // Delhi (lon in range, lat not)
}
