package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ParseRawEvent deserializes a RawEvent's value into a CityEvent.
// It expects the flat JSON produced by the collector services.
func ParseRawEvent(raw RawEvent) (CityEvent, error) {
	var rep RawReport
	if err := json.Unmarshal(raw.Value, &rep); err != nil {
		return CityEvent{}, fmt.Errorf("parse raw event: %w", err)
	}

	eventType := normalizeEventType(rep.Type)
	if eventType == "" {
		return CityEvent{}, fmt.Errorf("parse raw event: unknown type %q", rep.Type)
	}

	event := CityEvent{
		ID:          rep.ID,
		EventType:   eventType,
		Description: strings.TrimSpace(rep.Description),
		Location:    strings.TrimSpace(rep.Location),
		Timestamp:   parseTimestamp(rep.Timestamp, raw.Timestamp),
		Severity:    normalizeSeverity(rep.Severity),
		Source:      strings.TrimSpace(rep.Source),
		Verified:    rep.Verified,
		RawPayload:  raw.Value,
	}

	if rep.Lat != nil && rep.Lon != nil {
		event.Coordinates = &Geo{Lat: *rep.Lat, Lon: *rep.Lon}
	}

	if event.ID == "" {
		event.ID = generateID(event)
	}

	return event, nil
}

// parseTimestamp parses an RFC 3339 event time, falling back to the message
// timestamp when absent or unparsable. Records never fail on a bad timestamp;
// they just score lower on freshness later.
func parseTimestamp(value string, fallback time.Time) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback.UTC()
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return fallback.UTC()
	}
	return t.UTC()
}

// normalizeEventType validates the coarse category assigned by the collector.
// Accepts: "traffic", "civic", "emergency", "social", "weather".
func normalizeEventType(value string) string {
	switch v := strings.ToLower(strings.TrimSpace(value)); v {
	case "traffic", "civic", "emergency", "social", "weather":
		return v
	default:
		return ""
	}
}

// normalizeSeverity maps the upstream severity string onto the ordinal scale,
// defaulting to low for unknown values rather than rejecting the record.
func normalizeSeverity(value string) Severity {
	switch v := strings.ToLower(strings.TrimSpace(value)); v {
	case string(SeverityMedium), string(SeverityHigh), string(SeverityCritical):
		return Severity(v)
	default:
		return SeverityLow
	}
}

// generateID produces a deterministic ID for reports that arrive without one.
// Hashing the key fields keeps reprocessing idempotent; a random UUID is the
// last resort when there is nothing stable to hash.
func generateID(event CityEvent) string {
	if event.Description == "" && event.Location == "" {
		return event.EventType + "-" + uuid.NewString()
	}
	input := fmt.Sprintf("%s|%s|%s|%d", event.EventType, event.Description, event.Location, event.Timestamp.Unix())
	hash := sha256.Sum256([]byte(input))
	return event.EventType + "-" + hex.EncodeToString(hash[:8])
}

// StampProcessed records the pipeline processing time on the event.
func StampProcessed(event CityEvent) CityEvent {
	event.ProcessedAt = clock.Now().UTC()
	return event
}

// Slug lowercases a name and replaces spaces with underscores, for use as a
// tag value ("MG Road" -> "mg_road").
func Slug(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ""
	}
	return strings.Join(strings.Fields(name), "_")
}
