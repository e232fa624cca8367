package domain

import (
	"context"
	"time"
)

// Severity is the upstream-supplied ordinal assessment of an event.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Urgency is the pipeline-assigned priority, distinct from Severity.
type Urgency string

const (
	UrgencyCanWait        Urgency = "can_wait"
	UrgencyNeedsAttention Urgency = "needs_attention"
	UrgencyCritical       Urgency = "critical"
	UrgencyResolved       Urgency = "resolved"
)

// RawReport is the flat JSON structure produced by the collector services.
// Coordinates are pointers so "absent" is distinguishable from (0,0).
type RawReport struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Location    string   `json:"location"`
	Lat         *float64 `json:"lat"`
	Lon         *float64 `json:"lon"`
	Timestamp   string   `json:"timestamp"` // RFC 3339
	Severity    string   `json:"severity"`
	Source      string   `json:"source"`
	Verified    bool     `json:"verified"`
}

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// Geo represents a WGS-84 latitude/longitude coordinate pair.
type Geo struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// CityEvent is the domain-rich representation that flows through the
// pipeline. Stages mutate it in place and hand it forward; it lives only
// for the duration of one batch.
type CityEvent struct {
	ID           string    `json:"id"`
	EventType    string    `json:"type"`
	Subtype      string    `json:"subtype,omitempty"`
	Description  string    `json:"description"`
	Location     string    `json:"location,omitempty"`
	Coordinates  *Geo      `json:"coordinates,omitempty"`
	FullAddress  string    `json:"full_address,omitempty"`
	Zone         string    `json:"zone,omitempty"`
	Neighborhood string    `json:"neighborhood,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	Severity     Severity  `json:"severity,omitempty"`
	Urgency      Urgency   `json:"urgency,omitempty"`
	Tags         []string  `json:"tags,omitempty"`
	Source       string    `json:"source,omitempty"`
	Verified     bool      `json:"verified"`

	// Deduplication bookkeeping. DuplicateOf is empty on canonical records;
	// SimilarEvents is populated only on the canonical record of a group.
	DuplicateOf   string   `json:"duplicate_of,omitempty"`
	SimilarEvents []string `json:"similar_events,omitempty"`

	QualityScore float64 `json:"quality_score"`

	RawPayload  []byte    `json:"-"`
	ProcessedAt time.Time `json:"processed_at"`
}

// HasCoordinates reports whether the event carries a coordinate pair.
func (e *CityEvent) HasCoordinates() bool {
	return e.Coordinates != nil
}

// IsCanonical reports whether the event is the representative of its
// duplicate group (or simply unique).
func (e *CityEvent) IsCanonical() bool {
	return e.DuplicateOf == ""
}

// AddTag appends a tag unless it is empty or already present. Tags grow
// monotonically; nothing ever removes one.
func (e *CityEvent) AddTag(tag string) {
	if tag == "" {
		return
	}
	for _, t := range e.Tags {
		if t == tag {
			return
		}
	}
	e.Tags = append(e.Tags, tag)
}

// OutputEvent is the serialized form destined for the sink topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}
