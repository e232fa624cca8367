package pipeline

import "errors"

// Sentinel causes for skipped enrichments, so tests can assert on them.
var (
	errGeocodeFailed        = errors.New("geocoding failed")
	errOutOfRegion          = errors.New("coordinates outside operating region")
	errReverseGeocodeFailed = errors.New("reverse geocoding failed")
)

// Warning records a per-record enrichment that was skipped. Warnings are
// fail-open: the record continues through the pipeline regardless.
type Warning struct {
	Stage   string
	EventID string
	Err     error
}

// BatchStats summarizes one batch for the per-batch log line and tests.
type BatchStats struct {
	Received    int
	Duplicates  int
	Geocoded    int
	Categorized int
	Filtered    int
	Errors      int
	Warnings    []Warning
}
