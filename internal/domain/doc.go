// Package domain models city event reports as they move through the
// normalization pipeline.
//
// # Data Source
//
// Raw reports originate from social media scrapers, sensor feeds, citizen
// reports, and government portals. Upstream collector services publish each
// report as flat JSON to the source topic with a coarse category already
// attached. The pipeline never talks to those collectors directly; it only
// sees batches of RawEvent messages.
//
// # Record Conventions
//
// Type (assigned by the collector, immutable here):
//
//	"traffic", "civic", "emergency", "social", "weather"
//
// Subtype (assigned by the pipeline's categorizer):
//
//	"<type>_<refinement>", e.g. "traffic_accident", "civic_water_supply".
//	The trailing segment always joins the tag set once assigned.
//
// Severity vs. urgency:
//
//	Severity (low, medium, high, critical) arrives from upstream and is
//	never changed. Urgency (can_wait, needs_attention, critical, resolved)
//	is derived by the pipeline from the description text, type, subtype,
//	and severity, in that rule order.
//
// Duplicate groups:
//
//	Exactly one record per group is canonical (empty duplicate_of); the
//	rest point at it. Grouping is single-pass greedy in input order, not a
//	transitive closure; see the dedup package.
//
// # ID Generation
//
// Collectors normally assign stable IDs. When a report arrives without one,
// a deterministic SHA-256 hash of type|description|location|timestamp is
// used so that replaying the same raw message produces the same ID and
// downstream upserts stay idempotent. See [generateID].
package domain
