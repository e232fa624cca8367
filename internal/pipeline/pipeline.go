// Package pipeline orchestrates the event normalization stages: dedup,
// location normalization, categorization, and quality scoring, in that
// order, over bounded batches pulled from a source and handed to a sink.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/city-events-etl/internal/classify"
	"github.com/couchcryptid/city-events-etl/internal/dedup"
	"github.com/couchcryptid/city-events-etl/internal/domain"
	"github.com/couchcryptid/city-events-etl/internal/observability"
	"github.com/couchcryptid/city-events-etl/internal/quality"
)

// BatchExtractor reads up to batchSize raw events from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// Sink receives the processed, filtered batch. Implementations are
// responsible for idempotent upsert keyed by event ID.
type Sink interface {
	StoreBatch(ctx context.Context, events []domain.CityEvent) (int, error)
}

// Config tunes batch processing.
type Config struct {
	BatchSize     int
	QualityCutoff float64
	// Workers bounds concurrent per-record work within a stage.
	Workers int
	// BackfillStart/BackfillEnd bound the time range in backfill mode.
	BackfillStart time.Time
	BackfillEnd   time.Time
}

// Pipeline runs batches through the processing stages.
type Pipeline struct {
	extractor   BatchExtractor
	dedup       *dedup.Deduplicator
	normalizer  *Normalizer
	categorizer *classify.Categorizer
	quality     *quality.Scorer
	sink        Sink
	logger      *slog.Logger
	metrics     *observability.Metrics
	cfg         Config
	ready       atomic.Bool
}

// New creates a Pipeline with the given stages and observability.
func New(
	extractor BatchExtractor,
	dd *dedup.Deduplicator,
	normalizer *Normalizer,
	categorizer *classify.Categorizer,
	qualityScorer *quality.Scorer,
	sink Sink,
	logger *slog.Logger,
	metrics *observability.Metrics,
	cfg Config,
) *Pipeline {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Pipeline{
		extractor:   extractor,
		dedup:       dd,
		normalizer:  normalizer,
		categorizer: categorizer,
		quality:     qualityScorer,
		sink:        sink,
		logger:      logger,
		metrics:     metrics,
		cfg:         cfg,
	}
}

// CheckReadiness returns nil once the pipeline has processed at least one
// batch, or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not processed any batches yet")
	}
	return nil
}

// ProcessBatch runs one batch through all stages and returns the filtered
// records plus per-batch statistics. Per-record failures are fail-open:
// the record passes through the failed stage unmodified. The only returned
// error is context cancellation, which aborts the batch before anything is
// handed downstream.
func (p *Pipeline) ProcessBatch(ctx context.Context, events []domain.CityEvent) ([]domain.CityEvent, BatchStats, error) {
	stats := BatchStats{Received: len(events)}
	if len(events) == 0 {
		return events, stats, nil
	}

	events, err := p.dedup.MarkDuplicates(ctx, events)
	if err != nil {
		return nil, stats, err
	}
	for i := range events {
		if !events[i].IsCanonical() {
			stats.Duplicates++
			p.metrics.RecordsDeduplicated.Inc()
		}
	}

	if err := p.normalizeStage(ctx, events, &stats); err != nil {
		return nil, stats, err
	}

	for i := range events {
		events[i] = p.guardRecord("categorize", events[i], &stats, func(e domain.CityEvent) (domain.CityEvent, []Warning) {
			return p.categorizer.Categorize(e), nil
		})
		if events[i].Subtype != "" {
			stats.Categorized++
			p.metrics.RecordsCategorized.Inc()
		}
	}

	out := p.scoreAndFilter(events, &stats)
	return out, stats, nil
}

// normalizeStage runs location normalization across the batch. Records are
// independent, so they fan out over a bounded errgroup; geocoder rate
// limiting happens below in the resolver's decorators.
func (p *Pipeline) normalizeStage(ctx context.Context, events []domain.CityEvent, stats *BatchStats) error {
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)
	for i := range events {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			hadCoords := events[i].HasCoordinates()
			normalized, warnings := p.guardRecordWarnings("normalize", events[i], func(e domain.CityEvent) (domain.CityEvent, []Warning) {
				return p.normalizer.Normalize(gctx, e)
			})
			events[i] = normalized
			mu.Lock()
			stats.Warnings = append(stats.Warnings, warnings...)
			if !hadCoords && normalized.HasCoordinates() {
				stats.Geocoded++
				p.metrics.RecordsGeocoded.Inc()
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("normalize stage cancelled: %w", err)
	}
	return nil
}

// scoreAndFilter assigns quality scores and drops records at or below the
// cutoff. A panic while scoring excludes the record (fail-closed here:
// an unscored record must not reach storage).
func (p *Pipeline) scoreAndFilter(events []domain.CityEvent, stats *BatchStats) []domain.CityEvent {
	out := make([]domain.CityEvent, 0, len(events))
	for i := range events {
		scored, err := p.runGuarded(events[i], func(e domain.CityEvent) (domain.CityEvent, []Warning) {
			e.QualityScore = p.quality.Score(&e)
			return domain.StampProcessed(e), nil
		})
		if err != nil {
			p.logger.Error("quality scoring failed, excluding record",
				"event_id", events[i].ID, "error", err)
			p.metrics.RecordErrors.WithLabelValues("quality").Inc()
			stats.Errors++
			continue
		}
		if scored.QualityScore <= p.cfg.QualityCutoff {
			stats.Filtered++
			p.metrics.RecordsFiltered.Inc()
			continue
		}
		out = append(out, scored)
	}
	return out
}

// guardRecord applies fn fail-open: on panic the record passes through
// unmodified and the failure is counted.
func (p *Pipeline) guardRecord(stage string, event domain.CityEvent, stats *BatchStats, fn func(domain.CityEvent) (domain.CityEvent, []Warning)) domain.CityEvent {
	out, warnings := p.guardRecordWarnings(stage, event, fn)
	stats.Warnings = append(stats.Warnings, warnings...)
	return out
}

func (p *Pipeline) guardRecordWarnings(stage string, event domain.CityEvent, fn func(domain.CityEvent) (domain.CityEvent, []Warning)) (domain.CityEvent, []Warning) {
	out, err := p.runGuardedWarnings(event, fn)
	if err != nil {
		p.logger.Error("stage failed for record, passing through",
			"stage", stage, "event_id", event.ID, "error", err)
		p.metrics.RecordErrors.WithLabelValues(stage).Inc()
		return event, []Warning{{Stage: stage, EventID: event.ID, Err: err}}
	}
	return out.event, out.warnings
}

type guardedResult struct {
	event    domain.CityEvent
	warnings []Warning
}

func (p *Pipeline) runGuardedWarnings(event domain.CityEvent, fn func(domain.CityEvent) (domain.CityEvent, []Warning)) (result guardedResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("record stage panic: %v", r)
		}
	}()
	result.event, result.warnings = fn(event)
	return result, nil
}

func (p *Pipeline) runGuarded(event domain.CityEvent, fn func(domain.CityEvent) (domain.CityEvent, []Warning)) (domain.CityEvent, error) {
	result, err := p.runGuardedWarnings(event, fn)
	return result.event, err
}
