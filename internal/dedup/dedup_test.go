package dedup

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/city-events-etl/internal/domain"
	"github.com/couchcryptid/city-events-etl/internal/similarity"
)

var baseTime = time.Date(2026, time.March, 14, 9, 0, 0, 0, time.UTC)

func newDedup(workers int) *Deduplicator {
	return New(similarity.NewScorer(), Config{
		SimilarityThreshold: 0.85,
		TimeWindow:          60 * time.Minute,
		DistanceThresholdKm: 2.0,
		Workers:             workers,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func event(id, eventType, desc string, at time.Time, coords *domain.Geo) domain.CityEvent {
	return domain.CityEvent{
		ID:          id,
		EventType:   eventType,
		Description: desc,
		Timestamp:   at,
		Coordinates: coords,
	}
}

func TestMarkDuplicates_UniqueBatchStaysCanonical(t *testing.T) {
	events := []domain.CityEvent{
		event("e1", "traffic", "Traffic jam on MG Road", baseTime, nil),
		event("e2", "civic", "Water supply disruption in Indiranagar", baseTime, nil),
		event("e3", "weather", "Heavy rain expected over the weekend", baseTime, nil),
	}

	out, err := newDedup(2).MarkDuplicates(context.Background(), events)
	require.NoError(t, err)

	for _, e := range out {
		assert.True(t, e.IsCanonical(), "event %s should be canonical", e.ID)
		assert.Empty(t, e.SimilarEvents)
	}
}

func TestMarkDuplicates_IdenticalDescriptions(t *testing.T) {
	events := []domain.CityEvent{
		event("e1", "traffic", "Traffic jam on MG Road", baseTime, nil),
		event("e2", "traffic", "Traffic jam on MG Road", baseTime.Add(10*time.Minute), nil),
	}

	out, err := newDedup(1).MarkDuplicates(context.Background(), events)
	require.NoError(t, err)

	assert.True(t, out[0].IsCanonical())
	assert.Equal(t, "e1", out[1].DuplicateOf)
	assert.Equal(t, []string{"e2"}, out[0].SimilarEvents)
}

func TestMarkDuplicates_ParaphraseWithSharedLocation(t *testing.T) {
	trinity := &domain.Geo{Lat: 12.9732, Lon: 77.6194}
	events := []domain.CityEvent{
		event("e1", "traffic", "Heavy traffic jam on MG Road near Trinity", baseTime, trinity),
		event("e2", "traffic", "Traffic jam on MG Road at Trinity Circle", baseTime.Add(5*time.Minute), trinity),
	}

	out, err := newDedup(2).MarkDuplicates(context.Background(), events)
	require.NoError(t, err)

	assert.True(t, out[0].IsCanonical())
	assert.Equal(t, "e1", out[1].DuplicateOf)
}

func TestMarkDuplicates_RespectsTimeWindow(t *testing.T) {
	events := []domain.CityEvent{
		event("e1", "traffic", "Traffic jam on MG Road", baseTime, nil),
		event("e2", "traffic", "Traffic jam on MG Road", baseTime.Add(90*time.Minute), nil),
	}

	out, err := newDedup(1).MarkDuplicates(context.Background(), events)
	require.NoError(t, err)

	assert.True(t, out[0].IsCanonical())
	assert.True(t, out[1].IsCanonical())
}

func TestMarkDuplicates_DifferentTypesNeverMatch(t *testing.T) {
	events := []domain.CityEvent{
		event("e1", "traffic", "Fire near the market", baseTime, nil),
		event("e2", "emergency", "Fire near the market", baseTime, nil),
	}

	out, err := newDedup(1).MarkDuplicates(context.Background(), events)
	require.NoError(t, err)

	assert.True(t, out[0].IsCanonical())
	assert.True(t, out[1].IsCanonical())
}

func TestMarkDuplicates_DistantEventsNeedFullTextMatch(t *testing.T) {
	// Same paraphrase pair as above but 10km apart: no geo corroboration,
	// and the text alone is below the 0.85 threshold.
	mgRoad := &domain.Geo{Lat: 12.9757, Lon: 77.6067}
	whitefield := &domain.Geo{Lat: 12.9698, Lon: 77.7500}
	events := []domain.CityEvent{
		event("e1", "traffic", "Heavy traffic jam on MG Road near Trinity", baseTime, mgRoad),
		event("e2", "traffic", "Traffic jam on MG Road at Trinity Circle", baseTime.Add(5*time.Minute), whitefield),
	}

	out, err := newDedup(1).MarkDuplicates(context.Background(), events)
	require.NoError(t, err)

	assert.True(t, out[1].IsCanonical())
}

func TestMarkDuplicates_GreedyFirstSeenWins(t *testing.T) {
	// Three near-identical reports: the first becomes canonical for both
	// of the others; nothing chains off the second.
	events := []domain.CityEvent{
		event("e1", "civic", "Garbage not collected in Jayanagar 4th block", baseTime, nil),
		event("e2", "civic", "Garbage not collected in Jayanagar 4th block", baseTime.Add(5*time.Minute), nil),
		event("e3", "civic", "Garbage not collected in Jayanagar 4th block", baseTime.Add(10*time.Minute), nil),
	}

	out, err := newDedup(4).MarkDuplicates(context.Background(), events)
	require.NoError(t, err)

	assert.Equal(t, []string{"e2", "e3"}, out[0].SimilarEvents)
	assert.Equal(t, "e1", out[1].DuplicateOf)
	assert.Equal(t, "e1", out[2].DuplicateOf)
	assert.Empty(t, out[1].SimilarEvents)
}

func TestMarkDuplicates_DeterministicAcrossWorkerCounts(t *testing.T) {
	build := func() []domain.CityEvent {
		return []domain.CityEvent{
			event("e1", "traffic", "Accident at Silk Board junction", baseTime, nil),
			event("e2", "traffic", "Accident at Silk Board junction", baseTime.Add(3*time.Minute), nil),
			event("e3", "civic", "Streetlight not working in HSR Layout", baseTime, nil),
			event("e4", "traffic", "Accident at Silk Board junction", baseTime.Add(7*time.Minute), nil),
		}
	}

	serial, err := newDedup(1).MarkDuplicates(context.Background(), build())
	require.NoError(t, err)
	parallel, err := newDedup(8).MarkDuplicates(context.Background(), build())
	require.NoError(t, err)

	for i := range serial {
		assert.Equal(t, serial[i].DuplicateOf, parallel[i].DuplicateOf)
		assert.Equal(t, serial[i].SimilarEvents, parallel[i].SimilarEvents)
	}
}

func TestMarkDuplicates_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	events := []domain.CityEvent{
		event("e1", "traffic", "Traffic jam on MG Road", baseTime, nil),
		event("e2", "traffic", "Traffic jam on MG Road", baseTime, nil),
	}

	_, err := newDedup(2).MarkDuplicates(ctx, events)
	assert.Error(t, err)
}

func TestMarkDuplicates_EmptyBatch(t *testing.T) {
	out, err := newDedup(1).MarkDuplicates(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}
