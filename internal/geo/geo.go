// Package geo provides distance math, operating-region validation, and
// zone/neighborhood resolution for city events, plus the geocoding provider
// port the pipeline enriches records through.
package geo

import "math"

// earthRadiusKm is the mean Earth radius used by the haversine formula.
const earthRadiusKm = 6371.0

// DistanceKm returns the great-circle distance between two points in
// kilometers (haversine). Symmetric, and exactly 0 for identical points.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	if lat1 == lat2 && lon1 == lon2 {
		return 0
	}

	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// BoundingBox is the lat/lon envelope of the operating region. Geocoding
// results outside it are discarded as bad data.
type BoundingBox struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// Contains reports whether the point lies within the box (inclusive).
func (b BoundingBox) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// Zone is a named center point of a coarse geographic partition.
type Zone struct {
	Name string
	Lat  float64
	Lon  float64
}

// Defaults for the Bengaluru operating region. The zone order matters:
// nearest-zone ties break toward the earlier entry.
var (
	DefaultBounds = BoundingBox{MinLat: 12.75, MaxLat: 13.25, MinLon: 77.40, MaxLon: 77.85}

	DefaultZones = []Zone{
		{Name: "central", Lat: 12.9716, Lon: 77.5946},
		{Name: "east", Lat: 12.9784, Lon: 77.6408},
		{Name: "west", Lat: 12.9719, Lon: 77.5128},
		{Name: "south", Lat: 12.9250, Lon: 77.5938},
		{Name: "north", Lat: 13.0358, Lon: 77.5970},
	}

	DefaultNeighborhoods = []string{
		"Indiranagar", "Koramangala", "Jayanagar", "Whitefield",
		"Malleshwaram", "Hebbal", "HSR Layout", "Rajajinagar",
		"Basavanagudi", "Marathahalli", "Electronic City", "Yelahanka",
		"BTM Layout", "Banashankari", "Shivajinagar", "Majestic",
	}
)
