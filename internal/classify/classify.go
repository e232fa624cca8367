// Package classify assigns subtype, tags, and urgency to city events from
// description text and record metadata. The keyword tables are small rule
// engines: ordered lists scanned first-match-wins, so precedence is explicit
// and testable.
package classify

import (
	"strings"
	"time"

	"github.com/couchcryptid/city-events-etl/internal/domain"
)

// subtypeDef maps a subtype refinement to the keywords that trigger it.
// Within one event type the first matching entry wins.
type subtypeDef struct {
	name     string
	keywords []string
}

var subtypeTable = map[string][]subtypeDef{
	"traffic": {
		{"accident", []string{"accident", "collision", "crash", "hit and run"}},
		{"jam", []string{"jam", "congestion", "gridlock", "bumper to bumper"}},
		{"closure", []string{"closed", "closure", "diversion", "barricade"}},
		{"signal_failure", []string{"signal not working", "signal failure", "traffic light"}},
	},
	"civic": {
		{"water_supply", []string{"water supply", "no water", "water shortage", "pipeline burst"}},
		{"power_outage", []string{"power cut", "power outage", "no electricity", "load shedding"}},
		{"garbage", []string{"garbage", "trash", "waste not collected"}},
		{"road_damage", []string{"pothole", "road damage", "road caved"}},
	},
	"emergency": {
		{"fire", []string{"fire", "blaze", "smoke billowing"}},
		{"medical", []string{"ambulance", "injured", "medical emergency", "hospitalised"}},
		{"crime", []string{"robbery", "theft", "assault", "chain snatching"}},
		{"disaster", []string{"building collapse", "wall collapse", "tree fell", "earthquake"}},
	},
	"weather": {
		{"flood", []string{"flood", "waterlogging", "water logged", "inundated"}},
		{"rain", []string{"rain", "drizzle", "downpour", "shower"}},
		{"storm", []string{"storm", "thunder", "lightning", "hailstorm"}},
	},
	"social": {
		{"protest", []string{"protest", "strike", "rally", "bandh", "dharna"}},
		{"festival", []string{"festival", "procession", "celebration"}},
		{"event", []string{"concert", "marathon", "cricket match", "exhibition"}},
	},
}

// contextTags are cross-cutting keyword categories tagged onto any event
// type when the description mentions them.
var contextTags = []subtypeDef{
	{"rush_hour", []string{"rush hour", "peak hour", "office hours"}},
	{"government", []string{"bbmp", "bescom", "bwssb", "government", "municipal", "corporation"}},
	{"urgent", []string{"urgent", "immediately", "asap", "right now"}},
}

var (
	resolvedKeywords = []string{
		"resolved", "cleared", "restored", "fixed", "back to normal", "reopened",
	}
	emergencyKeywords = []string{
		"fire", "explosion", "collapse", "life threatening", "casualty",
		"fatal", "critical condition", "trapped",
	}
	blockingKeywords = []string{
		"blocked", "stuck", "stranded", "outage", "disruption",
		"overflowing", "leakage", "not working",
	}
)

// urgencyRule pairs a predicate with its outcome. Rules are evaluated in
// order; the first match decides.
type urgencyRule struct {
	name    string
	matches func(e *domain.CityEvent, desc string) bool
	outcome domain.Urgency
}

// Categorizer assigns subtype, tags, and urgency.
type Categorizer struct {
	rules []urgencyRule
	loc   *time.Location
}

// New creates a Categorizer. Time-of-day tags are derived in loc; pass nil
// to use UTC.
func New(loc *time.Location) *Categorizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Categorizer{
		loc: loc,
		rules: []urgencyRule{
			{
				// Lexical resolution wins over everything, including
				// emergencies: "fire at market resolved" is resolved.
				name: "resolved",
				matches: func(_ *domain.CityEvent, desc string) bool {
					return containsAny(desc, resolvedKeywords)
				},
				outcome: domain.UrgencyResolved,
			},
			{
				name: "critical",
				matches: func(e *domain.CityEvent, desc string) bool {
					if containsAny(desc, emergencyKeywords) || e.EventType == "emergency" {
						return true
					}
					return strings.Contains(e.Subtype, "accident") &&
						(e.Severity == domain.SeverityHigh || e.Severity == domain.SeverityCritical)
				},
				outcome: domain.UrgencyCritical,
			},
			{
				name: "needs_attention",
				matches: func(e *domain.CityEvent, desc string) bool {
					if containsAny(desc, blockingKeywords) {
						return true
					}
					switch e.Severity {
					case domain.SeverityMedium, domain.SeverityHigh, domain.SeverityCritical:
						return true
					}
					return false
				},
				outcome: domain.UrgencyNeedsAttention,
			},
		},
	}
}

// Categorize assigns subtype, tags, and urgency in that order. Subtype and
// tags feed the urgency rules, which is why the sequence matters.
func (c *Categorizer) Categorize(event domain.CityEvent) domain.CityEvent {
	desc := strings.ToLower(event.Description)

	if event.Subtype == "" {
		if name, ok := matchSubtype(event.EventType, desc); ok {
			event.Subtype = event.EventType + "_" + name
		}
	}

	c.applyTags(&event, desc)
	event.Urgency = c.classifyUrgency(&event, desc)
	return event
}

func matchSubtype(eventType, desc string) (string, bool) {
	for _, def := range subtypeTable[eventType] {
		if containsAny(desc, def.keywords) {
			return def.name, true
		}
	}
	return "", false
}

func (c *Categorizer) applyTags(event *domain.CityEvent, desc string) {
	event.AddTag(event.EventType)

	if event.Subtype != "" {
		// Trailing segment only: "traffic_signal_failure" tags "failure".
		if i := strings.LastIndex(event.Subtype, "_"); i >= 0 {
			event.AddTag(event.Subtype[i+1:])
		}
	}

	for _, def := range contextTags {
		if containsAny(desc, def.keywords) {
			event.AddTag(def.name)
		}
	}

	event.AddTag(domain.Slug(event.Zone))
	event.AddTag(domain.Slug(event.Neighborhood))
	event.AddTag(domain.Slug(event.Source))

	for _, tag := range timeContextTags(event.Timestamp.In(c.loc)) {
		event.AddTag(tag)
	}
}

// timeContextTags derives time-of-day and day-of-week tags in local time.
func timeContextTags(t time.Time) []string {
	if t.IsZero() {
		return nil
	}

	var tags []string
	weekend := t.Weekday() == time.Saturday || t.Weekday() == time.Sunday
	if weekend {
		tags = append(tags, "weekend")
	} else {
		tags = append(tags, "weekday")
		switch h := t.Hour(); {
		case h >= 7 && h < 10:
			tags = append(tags, "morning_rush")
		case h >= 17 && h < 20:
			tags = append(tags, "evening_rush")
		}
	}
	if h := t.Hour(); h >= 22 || h < 5 {
		tags = append(tags, "night")
	}
	return tags
}

func (c *Categorizer) classifyUrgency(event *domain.CityEvent, desc string) domain.Urgency {
	for _, rule := range c.rules {
		if rule.matches(event, desc) {
			return rule.outcome
		}
	}
	return domain.UrgencyCanWait
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
