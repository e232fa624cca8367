package pipeline

import (
	"context"
	"time"

	"github.com/couchcryptid/city-events-etl/internal/domain"
)

// Run executes the extract-process-store loop until the context is
// cancelled. In backfill mode the loop also stops once a batch shows the
// source has moved past the configured end time.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.cfg.BatchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	// Keeps retry storms short while avoiding tight loops during Kafka outages.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !p.processCycle(ctx, &backoff, maxBackoff) {
			return nil
		}
	}
}

// RunOnce executes a single extract-process-store cycle and returns. Used
// in batch mode, where an external scheduler owns the cadence.
func (p *Pipeline) RunOnce(ctx context.Context) error {
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	backoff := 200 * time.Millisecond
	p.processCycle(ctx, &backoff, 5*time.Second)
	return ctx.Err()
}

// processCycle runs one extract-process-store cycle. Returns false if the
// pipeline should stop.
func (p *Pipeline) processCycle(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	start := time.Now()

	rawBatch, err := p.extractor.ExtractBatch(ctx, p.cfg.BatchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("extract batch failed", "error", err)
		p.metrics.RecordErrors.WithLabelValues("extract").Inc()
		return p.backoffOrStop(ctx, backoff, maxBackoff)
	}

	if len(rawBatch) == 0 {
		return ctx.Err() == nil
	}

	p.metrics.RecordsReceived.Add(float64(len(rawBatch)))
	p.metrics.BatchSize.Observe(float64(len(rawBatch)))
	*backoff = 200 * time.Millisecond

	events, parsedRaws, pastWindow := p.parseBatch(ctx, rawBatch)

	stored, ok := p.processAndStore(ctx, events, parsedRaws, backoff, maxBackoff)
	if !ok {
		return false
	}

	if stored > 0 {
		p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
		p.ready.Store(true)
	}

	// In backfill mode, an entire batch past the end time means the source
	// has caught up and the run is complete.
	if pastWindow == len(rawBatch) && !p.cfg.BackfillEnd.IsZero() {
		p.logger.Info("backfill complete, source past end time",
			"end", p.cfg.BackfillEnd)
		return false
	}
	return true
}

// parseBatch decodes the raw batch into events. Undecodable records and,
// in backfill mode, records outside the time window are committed and
// skipped. Returns the parsed events, the raw messages they came from, and
// the count of records past the backfill end time.
func (p *Pipeline) parseBatch(ctx context.Context, rawBatch []domain.RawEvent) ([]domain.CityEvent, []domain.RawEvent, int) {
	events := make([]domain.CityEvent, 0, len(rawBatch))
	parsedRaws := make([]domain.RawEvent, 0, len(rawBatch))
	pastWindow := 0

	for _, raw := range rawBatch {
		event, err := domain.ParseRawEvent(raw)
		if err != nil {
			p.logger.Warn("parse failed, skipping record",
				"error", err,
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			p.metrics.RecordErrors.WithLabelValues("parse").Inc()
			p.commitOffset(ctx, raw)
			continue
		}
		if !p.cfg.BackfillEnd.IsZero() && event.Timestamp.After(p.cfg.BackfillEnd) {
			pastWindow++
			p.commitOffset(ctx, raw)
			continue
		}
		if !p.cfg.BackfillStart.IsZero() && event.Timestamp.Before(p.cfg.BackfillStart) {
			p.commitOffset(ctx, raw)
			continue
		}
		events = append(events, event)
		parsedRaws = append(parsedRaws, raw)
	}
	return events, parsedRaws, pastWindow
}

// processAndStore runs the parsed events through the stages, stores the
// survivors, and commits offsets. Filtered records count as consumed, so
// their offsets commit too. Returns the number of stored records and false
// if the pipeline should stop.
func (p *Pipeline) processAndStore(ctx context.Context, events []domain.CityEvent, parsedRaws []domain.RawEvent, backoff *time.Duration, maxBackoff time.Duration) (int, bool) {
	if len(events) == 0 {
		// Still emit the summary: a batch of nothing but parse failures
		// should be visible in the logs, not silent.
		p.logger.Info("batch processed", "received", 0, "stored", 0)
		return 0, true
	}

	out, stats, err := p.ProcessBatch(ctx, events)
	if err != nil {
		return 0, ctx.Err() == nil
	}

	if len(out) > 0 {
		stored, err := p.sink.StoreBatch(ctx, out)
		if err != nil {
			p.logger.Error("store batch failed", "error", err, "batch_size", len(out))
			p.metrics.RecordErrors.WithLabelValues("store").Inc()
			return 0, p.backoffOrStop(ctx, backoff, maxBackoff)
		}
		p.metrics.RecordsStored.Add(float64(stored))
	}

	for _, raw := range parsedRaws {
		p.commitOffset(ctx, raw)
	}

	p.logger.Info("batch processed",
		"received", stats.Received,
		"duplicates", stats.Duplicates,
		"geocoded", stats.Geocoded,
		"categorized", stats.Categorized,
		"filtered", stats.Filtered,
		"errors", stats.Errors,
		"warnings", len(stats.Warnings),
		"stored", len(out),
	)
	return len(out), true
}

// backoffOrStop checks for context cancellation, sleeps with the current
// backoff, and advances the backoff. Returns false if the pipeline should stop.
func (p *Pipeline) backoffOrStop(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !sleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = nextBackoff(*backoff, maxBackoff)
	return true
}

// commitOffset commits the message offset if a commit function is available.
func (p *Pipeline) commitOffset(ctx context.Context, raw domain.RawEvent) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
