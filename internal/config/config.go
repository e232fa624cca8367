// Package config loads service settings from environment variables and
// validates them at startup, so a misconfigured deployment fails before it
// touches Kafka.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Run modes.
const (
	ModeStream   = "stream"
	ModeBatch    = "batch"
	ModeBackfill = "backfill"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	// RunMode selects stream (continuous), batch (single cycle), or
	// backfill (bounded time range) operation.
	RunMode       string
	BackfillStart time.Time
	BackfillEnd   time.Time

	BatchSize int

	// Deduplication tuning.
	SimilarityThreshold float64
	TimeWindow          time.Duration
	DistanceThresholdKm float64
	DedupWorkers        int

	// Operating region bounding box.
	RegionMinLat float64
	RegionMaxLat float64
	RegionMinLon float64
	RegionMaxLon float64

	// Quality gate: records scoring at or below the cutoff are dropped.
	QualityCutoff float64

	// Mapbox geocoding configuration.
	MapboxToken      string
	MapboxEnabled    bool
	MapboxTimeout    time.Duration
	GeocodeCacheSize int
	ReverseCacheSize int
	GeocodeRateLimit float64
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	mapboxTimeout, err := parseDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	batchSize, err := parseInt("BATCH_SIZE", 50)
	if err != nil {
		return nil, err
	}
	dedupWorkers, err := parseInt("DEDUP_WORKERS", 4)
	if err != nil {
		return nil, err
	}
	geocodeCacheSize, err := parseInt("GEOCODE_CACHE_SIZE", 1000)
	if err != nil {
		return nil, err
	}
	reverseCacheSize, err := parseInt("REVERSE_CACHE_SIZE", 500)
	if err != nil {
		return nil, err
	}

	similarityThreshold, err := parseFloat("SIMILARITY_THRESHOLD", 0.85)
	if err != nil {
		return nil, err
	}
	distanceThreshold, err := parseFloat("DISTANCE_THRESHOLD_KM", 2.0)
	if err != nil {
		return nil, err
	}
	qualityCutoff, err := parseFloat("QUALITY_CUTOFF", 0.3)
	if err != nil {
		return nil, err
	}
	geocodeRateLimit, err := parseFloat("GEOCODE_RATE_LIMIT", 1.0)
	if err != nil {
		return nil, err
	}

	timeWindowMin, err := parseInt("TIME_WINDOW_MINUTES", 60)
	if err != nil {
		return nil, err
	}

	minLat, err := parseFloat("REGION_MIN_LAT", 12.75)
	if err != nil {
		return nil, err
	}
	maxLat, err := parseFloat("REGION_MAX_LAT", 13.25)
	if err != nil {
		return nil, err
	}
	minLon, err := parseFloat("REGION_MIN_LON", 77.40)
	if err != nil {
		return nil, err
	}
	maxLon, err := parseFloat("REGION_MAX_LON", 77.85)
	if err != nil {
		return nil, err
	}

	runMode := envOrDefault("RUN_MODE", ModeStream)
	backfillStart, err := parseTime("BACKFILL_START")
	if err != nil {
		return nil, err
	}
	backfillEnd, err := parseTime("BACKFILL_END")
	if err != nil {
		return nil, err
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		KafkaBrokers:     parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic: envOrDefault("KAFKA_SOURCE_TOPIC", "city-events-raw"),
		KafkaSinkTopic:   envOrDefault("KAFKA_SINK_TOPIC", "city-events-processed"),
		KafkaGroupID:     envOrDefault("KAFKA_GROUP_ID", "city-events-etl"),
		HTTPAddr:         envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:         envOrDefault("LOG_LEVEL", "info"),
		LogFormat:        envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:  shutdownTimeout,

		RunMode:       runMode,
		BackfillStart: backfillStart,
		BackfillEnd:   backfillEnd,

		BatchSize: batchSize,

		SimilarityThreshold: similarityThreshold,
		TimeWindow:          time.Duration(timeWindowMin) * time.Minute,
		DistanceThresholdKm: distanceThreshold,
		DedupWorkers:        dedupWorkers,

		RegionMinLat: minLat,
		RegionMaxLat: maxLat,
		RegionMinLon: minLon,
		RegionMaxLon: maxLon,

		QualityCutoff: qualityCutoff,

		MapboxToken:      mapboxToken,
		MapboxEnabled:    mapboxEnabled,
		MapboxTimeout:    mapboxTimeout,
		GeocodeCacheSize: geocodeCacheSize,
		ReverseCacheSize: reverseCacheSize,
		GeocodeRateLimit: geocodeRateLimit,
	}

	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	if len(c.KafkaBrokers) == 0 {
		return errors.New("KAFKA_BROKERS is required")
	}
	if c.KafkaSourceTopic == "" {
		return errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if c.KafkaSinkTopic == "" {
		return errors.New("KAFKA_SINK_TOPIC is required")
	}
	switch c.RunMode {
	case ModeStream, ModeBatch:
	case ModeBackfill:
		if c.BackfillStart.IsZero() || c.BackfillEnd.IsZero() {
			return errors.New("backfill mode requires BACKFILL_START and BACKFILL_END")
		}
		if !c.BackfillEnd.After(c.BackfillStart) {
			return errors.New("BACKFILL_END must be after BACKFILL_START")
		}
	default:
		return fmt.Errorf("invalid RUN_MODE %q, want stream, batch, or backfill", c.RunMode)
	}
	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		return errors.New("SIMILARITY_THRESHOLD must be in (0, 1]")
	}
	if c.QualityCutoff < 0 || c.QualityCutoff >= 1 {
		return errors.New("QUALITY_CUTOFF must be in [0, 1)")
	}
	if c.DistanceThresholdKm <= 0 {
		return errors.New("DISTANCE_THRESHOLD_KM must be positive")
	}
	if c.RegionMinLat >= c.RegionMaxLat || c.RegionMinLon >= c.RegionMaxLon {
		return errors.New("region bounds are inverted")
	}
	if c.MapboxEnabled && c.MapboxToken == "" {
		return errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBrokers(value string) []string {
	parts := strings.Split(value, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}

func parseInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return n, nil
}

func parseFloat(key string, fallback float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return f, nil
}

func parseDuration(key, fallback string) (time.Duration, error) {
	s := envOrDefault(key, fallback)
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func parseTime(key string) (time.Time, error) {
	s := os.Getenv(key)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s: %q, want RFC 3339", key, s)
	}
	return t.UTC(), nil
}
