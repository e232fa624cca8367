package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/couchcryptid/city-events-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/city-events-etl/internal/adapter/kafka"
	"github.com/couchcryptid/city-events-etl/internal/adapter/mapbox"
	"github.com/couchcryptid/city-events-etl/internal/classify"
	"github.com/couchcryptid/city-events-etl/internal/config"
	"github.com/couchcryptid/city-events-etl/internal/dedup"
	"github.com/couchcryptid/city-events-etl/internal/geo"
	"github.com/couchcryptid/city-events-etl/internal/observability"
	"github.com/couchcryptid/city-events-etl/internal/pipeline"
	"github.com/couchcryptid/city-events-etl/internal/quality"
	"github.com/couchcryptid/city-events-etl/internal/similarity"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	// Geocoding is feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN. When
	// disabled, the resolver still maps coordinates onto zones and
	// neighborhoods; it just never calls out.
	var geocoder geo.Geocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		limited := geo.NewRateLimitedGeocoder(client, cfg.GeocodeRateLimit)
		geocoder = geo.NewCachedGeocoder(limited, cfg.GeocodeCacheSize, cfg.ReverseCacheSize)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled",
			"cache_size", cfg.GeocodeCacheSize,
			"reverse_cache_size", cfg.ReverseCacheSize,
			"rate_limit", cfg.GeocodeRateLimit,
			"timeout", cfg.MapboxTimeout,
		)
	} else {
		metrics.GeocodeEnabled.Set(0)
		logger.Info("mapbox geocoding disabled")
	}

	bounds := geo.BoundingBox{
		MinLat: cfg.RegionMinLat,
		MaxLat: cfg.RegionMaxLat,
		MinLon: cfg.RegionMinLon,
		MaxLon: cfg.RegionMaxLon,
	}
	resolver := geo.NewResolver(geocoder, bounds, geo.DefaultZones, geo.DefaultNeighborhoods, logger)

	// Time-of-day tags follow local city time, not UTC.
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		logger.Warn("failed to load city timezone, using UTC", "error", err)
		loc = time.UTC
	}

	dd := dedup.New(similarity.NewScorer(), dedup.Config{
		SimilarityThreshold: cfg.SimilarityThreshold,
		TimeWindow:          cfg.TimeWindow,
		DistanceThresholdKm: cfg.DistanceThresholdKm,
		Workers:             cfg.DedupWorkers,
	}, logger)

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)

	p := pipeline.New(
		reader,
		dd,
		pipeline.NewNormalizer(resolver, logger),
		classify.New(loc),
		quality.NewScorer(nil),
		writer,
		logger,
		metrics,
		pipeline.Config{
			BatchSize:     cfg.BatchSize,
			QualityCutoff: cfg.QualityCutoff,
			Workers:       cfg.DedupWorkers,
			BackfillStart: cfg.BackfillStart,
			BackfillEnd:   cfg.BackfillEnd,
		},
	)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	pipelineDone := make(chan struct{})
	go func() {
		defer close(pipelineDone)
		var runErr error
		switch cfg.RunMode {
		case config.ModeBatch:
			runErr = p.RunOnce(ctx)
		default:
			// Stream and backfill share the same loop; backfill terminates
			// on its own once the source passes the end of the window.
			runErr = p.Run(ctx)
		}
		if runErr != nil {
			logger.Error("pipeline error", "error", runErr)
		}
	}()

	// Batch and backfill runs finish by themselves; a signal stops all modes.
	select {
	case <-ctx.Done():
	case <-pipelineDone:
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}
