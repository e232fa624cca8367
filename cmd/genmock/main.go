// Command genmock generates mock city event fixtures for the test suites.
// It runs a fixed set of raw reports through the actual pipeline stages so
// the processed output matches real behavior, with a frozen clock for
// reproducible timestamps and IDs.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -raw-out data/mock/city_reports_raw.json \
//	  -processed-out data/mock/city_reports_processed.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/city-events-etl/internal/classify"
	"github.com/couchcryptid/city-events-etl/internal/dedup"
	"github.com/couchcryptid/city-events-etl/internal/domain"
	"github.com/couchcryptid/city-events-etl/internal/geo"
	"github.com/couchcryptid/city-events-etl/internal/observability"
	"github.com/couchcryptid/city-events-etl/internal/pipeline"
	"github.com/couchcryptid/city-events-etl/internal/quality"
	"github.com/couchcryptid/city-events-etl/internal/similarity"
)

// baseTime anchors all fixture timestamps. A Monday morning, so rush hour
// and weekday tags are exercised.
var baseTime = time.Date(2026, time.March, 16, 8, 30, 0, 0, time.UTC)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	rawOut := flag.String("raw-out", "", "output path for raw report JSON fixture")
	processedOut := flag.String("processed-out", "", "output path for processed event JSON fixture")
	flag.Parse()

	if *rawOut == "" || *processedOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -raw-out, -processed-out")
	}

	// Fixed clock for reproducible ProcessedAt timestamps and quality scores.
	clock := clockwork.NewFakeClockAt(baseTime.Add(45 * time.Minute))
	domain.SetClock(clock)
	defer domain.SetClock(nil)

	reports := mockReports()

	events := make([]domain.CityEvent, 0, len(reports))
	for i, rep := range reports {
		payload, err := json.Marshal(rep)
		if err != nil {
			return fmt.Errorf("marshal report %d: %w", i, err)
		}
		event, err := domain.ParseRawEvent(domain.RawEvent{Value: payload, Timestamp: baseTime})
		if err != nil {
			return fmt.Errorf("parse report %d: %w", i, err)
		}
		events = append(events, event)
	}

	processed, stats, err := newOfflinePipeline(clock).ProcessBatch(context.Background(), events)
	if err != nil {
		return err
	}
	log.Printf("processed %d reports: %d duplicates, %d filtered",
		stats.Received, stats.Duplicates, stats.Filtered)

	if err := writeJSON(*rawOut, reports); err != nil {
		return err
	}
	if err := writeJSON(*processedOut, processed); err != nil {
		return err
	}
	log.Printf("wrote %s and %s", *rawOut, *processedOut)
	return nil
}

// newOfflinePipeline wires the processing stages with no Kafka and no
// geocoding provider.
func newOfflinePipeline(clock clockwork.Clock) *pipeline.Pipeline {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	resolver := geo.NewResolver(nil, geo.DefaultBounds, geo.DefaultZones, geo.DefaultNeighborhoods, logger)
	dd := dedup.New(similarity.NewScorer(), dedup.Config{
		SimilarityThreshold: 0.85,
		TimeWindow:          time.Hour,
		DistanceThresholdKm: 2.0,
		Workers:             4,
	}, logger)
	return pipeline.New(
		nil, // no extractor: ProcessBatch only
		dd,
		pipeline.NewNormalizer(resolver, logger),
		classify.New(time.UTC),
		quality.NewScorer(clock),
		nil, // no sink: ProcessBatch only
		logger,
		observability.NewMetricsForTesting(),
		pipeline.Config{BatchSize: 50, QualityCutoff: 0.3, Workers: 4},
	)
}

func ptr(v float64) *float64 { return &v }

// mockReports covers every event type plus the interesting shapes: an exact
// duplicate pair, a same-spot paraphrase pair, a record without
// coordinates, and a junk record that the quality gate drops.
func mockReports() []domain.RawReport {
	ts := func(offset time.Duration) string {
		return baseTime.Add(offset).Format(time.RFC3339)
	}
	return []domain.RawReport{
		{
			ID:          "traffic-001",
			Type:        "traffic",
			Description: "Massive traffic jam at Silk Board junction, vehicles backed up for 2km",
			Location:    "Silk Board",
			Lat:         ptr(12.9172), Lon: ptr(77.6229),
			Timestamp: ts(0), Severity: "high", Source: "twitter", Verified: true,
		},
		{
			ID:          "traffic-002",
			Type:        "traffic",
			Description: "Massive traffic jam at Silk Board junction, vehicles backed up for 2km",
			Location:    "Silk Board",
			Lat:         ptr(12.9172), Lon: ptr(77.6229),
			Timestamp: ts(3 * time.Minute), Severity: "high", Source: "citizen_app",
		},
		{
			ID:          "traffic-003",
			Type:        "traffic",
			Description: "Accident near Trinity Circle, two cars involved, traffic moving slowly",
			Lat:         ptr(12.9732), Lon: ptr(77.6194),
			Timestamp: ts(5 * time.Minute), Severity: "medium", Source: "twitter",
		},
		{
			ID:          "traffic-004",
			Type:        "traffic",
			Description: "Car crash at Trinity Circle signal, expect delays on MG Road",
			Lat:         ptr(12.9732), Lon: ptr(77.6194),
			Timestamp: ts(8 * time.Minute), Severity: "medium", Source: "citizen_app",
		},
		{
			ID:          "civic-001",
			Type:        "civic",
			Description: "Water supply disruption announced for Jayanagar 4th block tomorrow",
			Location:    "Jayanagar",
			Timestamp:   ts(10 * time.Minute), Severity: "medium", Source: "official", Verified: true,
		},
		{
			ID:          "civic-002",
			Type:        "civic",
			Description: "Power cut reported in Indiranagar since early morning, BESCOM notified",
			Lat:         ptr(12.9719), Lon: ptr(77.6412),
			Timestamp: ts(15 * time.Minute), Severity: "medium", Source: "citizen_app",
		},
		{
			ID:          "emergency-001",
			Type:        "emergency",
			Description: "Fire broke out in a warehouse near Majestic, fire engines on the way",
			Lat:         ptr(12.9767), Lon: ptr(77.5713),
			Timestamp: ts(20 * time.Minute), Severity: "critical", Source: "official", Verified: true,
		},
		{
			ID:          "weather-001",
			Type:        "weather",
			Description: "Heavy rain flooding underpass near KR Puram, avoid the route",
			Lat:         ptr(13.0076), Lon: ptr(77.6953),
			Timestamp: ts(25 * time.Minute), Severity: "high", Source: "twitter",
		},
		{
			ID:          "social-001",
			Type:        "social",
			Description: "Weekend flea market at Cubbon Park entrance, expect crowds near the gate",
			Lat:         ptr(12.9763), Lon: ptr(77.5929),
			Timestamp: ts(30 * time.Minute), Severity: "low", Source: "citizen_app",
		},
		{
			// Junk: no description, no coordinates, stale. Quality gate drops it.
			ID:        "junk-001",
			Type:      "civic",
			Timestamp: baseTime.Add(-48 * time.Hour).Format(time.RFC3339),
			Severity:  "low",
			Source:    "twitter",
		},
	}
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
