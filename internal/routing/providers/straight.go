package providers

import (
	"context"

	"github.com/i474232898/route-command-engine/internal/route"
)

// StraightLine answers every request with a two-point path and the great-circle
// distance. It is used when no OSRM service is configured.
type StraightLine struct{}

var _ route.Directions = StraightLine{}

func (StraightLine) Name() string { return "straight" }

func (StraightLine) Route(ctx context.Context, req route.DirectionsRequest) (route.DirectionsResult, error) {
	if err := ctx.Err(); err != nil {
		return route.DirectionsResult{}, err
	}
	return route.DirectionsResult{
		Path:     route.StraightPath(req.Origin, req.Destination),
		Distance: route.DirectDistance(req.Origin, req.Destination),
	}, nil
}
