// Package shipping computes distance-based shipping costs between two place
// names. Geocoding goes through an external service, so every provider call
// can fail or time out; callers degrade an ErrUnavailable result to a zero
// cost rather than failing the whole pricing calculation.
package shipping

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrUnavailable is returned when a shipping cost cannot be computed, for
// example when one of the locations does not resolve to coordinates.
var ErrUnavailable = errors.New("shipping cost unavailable")

// Provider returns the monetary cost of shipping between two locations.
// The cost is non-negative and proportional to geographic distance.
type Provider interface {
	Cost(ctx context.Context, origin, dest string) (decimal.Decimal, error)
}

// ratePerKm is the flat shipping rate: 0.02 per kilometre.
var ratePerKm = decimal.NewFromFloat(0.02)

// CostForDistance converts a distance in kilometres to a shipping cost.
func CostForDistance(km float64) decimal.Decimal {
	return decimal.NewFromFloat(km).Mul(ratePerKm)
}
