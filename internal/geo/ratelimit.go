package geo

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimitedGeocoder throttles provider calls to stay within free-tier
// quotas. Stack it under the cache decorator so cache hits never consume
// quota.
type RateLimitedGeocoder struct {
	inner   Geocoder
	limiter *rate.Limiter
}

// NewRateLimitedGeocoder wraps a geocoder with a token-bucket limiter of
// requestsPerSecond (burst 1).
func NewRateLimitedGeocoder(inner Geocoder, requestsPerSecond float64) *RateLimitedGeocoder {
	return &RateLimitedGeocoder{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

func (r *RateLimitedGeocoder) Geocode(ctx context.Context, address string) (GeocodeResult, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return GeocodeResult{}, fmt.Errorf("geocode rate limit: %w", err)
	}
	return r.inner.Geocode(ctx, address)
}

func (r *RateLimitedGeocoder) ReverseGeocode(ctx context.Context, lat, lon float64) (GeocodeResult, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return GeocodeResult{}, fmt.Errorf("reverse geocode rate limit: %w", err)
	}
	return r.inner.ReverseGeocode(ctx, lat, lon)
}
