package route

import (
	"context"
	"fmt"

	"github.com/paulmach/orb"

	"github.com/i474232898/route-command-engine/internal/future"
)

// DirectionsRequest asks for a path between two points.
type DirectionsRequest struct {
	Origin      LatLon
	Destination LatLon
	TravelMode  TravelMode
}

// DirectionsResult is a routed leg. Distance is in meters.
type DirectionsResult struct {
	Path     orb.LineString
	Distance float64
}

// Directions computes routed paths.
type Directions interface {
	Route(ctx context.Context, req DirectionsRequest) (DirectionsResult, error)
}

// DirectionsFunc adapts a function to Directions.
type DirectionsFunc func(ctx context.Context, req DirectionsRequest) (DirectionsResult, error)

func (f DirectionsFunc) Route(ctx context.Context, req DirectionsRequest) (DirectionsResult, error) {
	return f(ctx, req)
}

// FetchPath requests the leg from origin to destination in the destination's travel
// mode. The returned Future resolves with (orb.LineString, float64) or rejects with
// an error. The request runs on its own goroutine.
func FetchPath(ctx context.Context, d Directions, origin, destination *Waypoint) *future.Future {
	f := future.New()
	if d == nil {
		f.Reject(fmt.Errorf("%w: no directions service", ErrInvalidArgument))
		return f
	}
	req := DirectionsRequest{
		Origin:      origin.LatLon(),
		Destination: destination.LatLon(),
		TravelMode:  destination.TravelMode(),
	}

	go func() {
		res, err := d.Route(ctx, req)
		if err != nil {
			f.Reject(fmt.Errorf("directions %s -> %s: %w", req.Origin, req.Destination, err))
			return
		}
		if len(res.Path) == 0 {
			f.Reject(fmt.Errorf("directions %s -> %s: empty path", req.Origin, req.Destination))
			return
		}
		if res.Distance < 0 {
			f.Reject(fmt.Errorf("directions %s -> %s: %w: negative distance %v",
				req.Origin, req.Destination, ErrInvalidArgument, res.Distance))
			return
		}
		f.Resolve(res.Path, res.Distance)
	}()
	return f
}

// ApplyLeg stores a routed leg on destination, and the path's endpoints as the
// geocoded coordinates of destination and origin. A negative distance changes nothing.
func ApplyLeg(origin, destination *Waypoint, path orb.LineString, distance float64) error {
	if distance < 0 {
		return fmt.Errorf("%w: negative distance %v", ErrInvalidArgument, distance)
	}
	if len(path) > 0 {
		start := LatLonFromPoint(path[0])
		end := LatLonFromPoint(path[len(path)-1])
		origin.SetGeocodedLatLon(&start)
		destination.SetGeocodedLatLon(&end)
	}
	destination.SetPath(path)
	return destination.SetDistance(distance)
}
