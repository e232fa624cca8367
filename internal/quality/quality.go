// Package quality computes the composite confidence score that gates which
// records reach storage.
package quality

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/city-events-etl/internal/domain"
)

// Additive contributions, capped at 1.0. Each one rewards a signal that
// the record is complete, well-anchored, and fresh.
const (
	coordinatesWeight  = 0.3
	descriptionWeight  = 0.2
	localityWeight     = 0.2
	tagsWeight         = 0.1
	freshnessWeight    = 0.1
	verifiedWeight     = 0.1
	minDescriptionLen  = 21
	minTagCount        = 3
	freshnessHorizonHr = 1
)

// Scorer computes quality scores. The clock is injected so freshness is
// testable with frozen time.
type Scorer struct {
	clock clockwork.Clock
}

// NewScorer creates a Scorer. Pass nil to use the real clock.
func NewScorer(clock clockwork.Clock) *Scorer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Scorer{clock: clock}
}

// Score returns the record's quality in [0,1]. Adding any one positive
// signal to an otherwise-identical record never lowers the result.
func (s *Scorer) Score(event *domain.CityEvent) float64 {
	score := 0.0

	if event.HasCoordinates() {
		score += coordinatesWeight
	}
	if len(event.Description) >= minDescriptionLen {
		score += descriptionWeight
	}
	if event.Zone != "" && event.Neighborhood != "" {
		score += localityWeight
	}
	if len(event.Tags) >= minTagCount {
		score += tagsWeight
	}
	if s.isFresh(event.Timestamp) {
		score += freshnessWeight
	}
	if event.Verified {
		score += verifiedWeight
	}

	if score > 1 {
		return 1
	}
	return score
}

func (s *Scorer) isFresh(t time.Time) bool {
	if t.IsZero() {
		return false
	}
	age := s.clock.Now().Sub(t)
	return age >= 0 && age < freshnessHorizonHr*time.Hour
}
