package shipping

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

var _ Provider = (*GeoProvider)(nil)

// GeoProvider computes shipping costs from the great-circle distance between
// two geocoded place names at a flat per-kilometre rate.
type GeoProvider struct {
	geocoder Geocoder
}

// NewGeoProvider creates a GeoProvider backed by the given geocoder.
func NewGeoProvider(geocoder Geocoder) *GeoProvider {
	return &GeoProvider{geocoder: geocoder}
}

// Cost geocodes both endpoints concurrently and returns 0.02 per kilometre of
// great-circle distance. When either place cannot be resolved it returns
// ErrUnavailable.
func (p *GeoProvider) Cost(ctx context.Context, origin, dest string) (decimal.Decimal, error) {
	var from, to Point

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		pt, err := p.geocoder.Geocode(gctx, origin)
		if err != nil {
			return errors.Wrapf(err, "origin %q", origin)
		}
		from = pt
		return nil
	})
	g.Go(func() error {
		pt, err := p.geocoder.Geocode(gctx, dest)
		if err != nil {
			return errors.Wrapf(err, "destination %q", dest)
		}
		to = pt
		return nil
	})

	if err := g.Wait(); err != nil {
		if errors.Is(err, ErrNoResult) {
			return decimal.Zero, errors.Wrapf(ErrUnavailable, "%v", err)
		}
		return decimal.Zero, err
	}

	return CostForDistance(DistanceKm(from, to)), nil
}
