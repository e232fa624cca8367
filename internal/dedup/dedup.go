// Package dedup marks duplicate event reports within a batch.
//
// Detection is a single greedy pass in input order: the first record of a
// group becomes canonical and later matches point at it via DuplicateOf.
// Grouping is deliberately not a transitive closure (A~B and B~C does not
// imply A~C); downstream consumers key on this behavior.
package dedup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/city-events-etl/internal/domain"
	"github.com/couchcryptid/city-events-etl/internal/geo"
	"github.com/couchcryptid/city-events-etl/internal/similarity"
)

// Two records with strongly overlapping locations need less textual
// agreement to count as duplicates.
const (
	geoOverlapThreshold   = 0.8
	corroboratedTextFloor = 0.6
)

// Config tunes duplicate detection.
type Config struct {
	// SimilarityThreshold is the text score at or above which two records
	// are duplicates regardless of location.
	SimilarityThreshold float64
	// TimeWindow is the maximum timestamp gap between duplicates.
	TimeWindow time.Duration
	// DistanceThresholdKm is the radius inside which geographic overlap
	// starts counting toward a match.
	DistanceThresholdKm float64
	// Workers bounds the parallel pair scoring per anchor record.
	Workers int
}

// Deduplicator finds and marks duplicates using text similarity and
// geographic proximity.
type Deduplicator struct {
	scorer *similarity.Scorer
	cfg    Config
	logger *slog.Logger
}

// New creates a Deduplicator.
func New(scorer *similarity.Scorer, cfg Config, logger *slog.Logger) *Deduplicator {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Deduplicator{scorer: scorer, cfg: cfg, logger: logger}
}

// MarkDuplicates classifies every record in the batch as canonical or a
// duplicate of an earlier record. Deterministic for a given input order.
// The pairwise comparisons per anchor run concurrently, but verdicts are
// applied serially in input order, so the result is identical to the
// sequential greedy pass.
func (d *Deduplicator) MarkDuplicates(ctx context.Context, events []domain.CityEvent) ([]domain.CityEvent, error) {
	processed := make([]bool, len(events))

	for i := range events {
		if processed[i] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return events, fmt.Errorf("dedup cancelled: %w", err)
		}

		matches, err := d.scoreCandidates(ctx, events, processed, i)
		if err != nil {
			return events, err
		}

		for j := i + 1; j < len(events); j++ {
			if !matches[j] || processed[j] {
				continue
			}
			processed[j] = true
			events[j].DuplicateOf = events[i].ID
			events[i].SimilarEvents = append(events[i].SimilarEvents, events[j].ID)
			d.logger.Debug("duplicate marked",
				"canonical", events[i].ID, "duplicate", events[j].ID)
		}
	}

	return events, nil
}

// scoreCandidates compares the anchor against every later unprocessed
// record and reports which of them match. Scoring is CPU-bound, so it fans
// out across a bounded errgroup; each goroutine writes only its own slot.
func (d *Deduplicator) scoreCandidates(ctx context.Context, events []domain.CityEvent, processed []bool, anchor int) ([]bool, error) {
	matches := make([]bool, len(events))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(d.cfg.Workers)

	for j := anchor + 1; j < len(events); j++ {
		if processed[j] {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			matches[j] = d.isDuplicate(&events[anchor], &events[j])
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("dedup cancelled: %w", err)
	}
	return matches, nil
}

// isDuplicate applies the match rule: same type, timestamps within the
// window, then either high text similarity alone or strong geographic
// overlap corroborated by moderate text similarity.
func (d *Deduplicator) isDuplicate(a, b *domain.CityEvent) bool {
	if a.EventType != b.EventType {
		return false
	}
	if gap := absDuration(a.Timestamp.Sub(b.Timestamp)); gap > d.cfg.TimeWindow {
		return false
	}

	textSim := d.scorer.Score(a.Description, b.Description)
	if textSim >= d.cfg.SimilarityThreshold {
		return true
	}

	return d.geoSimilarity(a, b) >= geoOverlapThreshold && textSim >= corroboratedTextFloor
}

// geoSimilarity maps the distance between two records onto [0,1], where 1
// is the same point and 0 is at or beyond the distance threshold. Records
// without coordinates contribute no geographic signal.
func (d *Deduplicator) geoSimilarity(a, b *domain.CityEvent) float64 {
	if !a.HasCoordinates() || !b.HasCoordinates() {
		return 0
	}
	dist := geo.DistanceKm(a.Coordinates.Lat, a.Coordinates.Lon, b.Coordinates.Lat, b.Coordinates.Lon)
	if dist > d.cfg.DistanceThresholdKm {
		return 0
	}
	sim := 1 - dist/d.cfg.DistanceThresholdKm
	if sim < 0 {
		return 0
	}
	return sim
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
