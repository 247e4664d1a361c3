package httpapi

import (
	"github.com/i474232898/route-command-engine/internal/route"
	"github.com/i474232898/route-command-engine/internal/routebuilder"
	"github.com/i474232898/route-command-engine/internal/routing/providers"
)

type waypointView struct {
	ID             string           `json:"id"`
	LatLon         route.LatLon     `json:"latLon"`
	OriginalLatLon route.LatLon     `json:"originalLatLon"`
	GeocodedLatLon *route.LatLon    `json:"geocodedLatLon,omitempty"`
	FollowPaths    bool             `json:"followPaths"`
	TravelMode     route.TravelMode `json:"travelMode"`
	Distance       float64          `json:"distance"`
	// Path is an encoded polyline (precision 5).
	Path string `json:"path,omitempty"`
}

func newWaypointView(w *route.Waypoint) waypointView {
	v := waypointView{
		ID:             w.ID(),
		LatLon:         w.LatLon(),
		OriginalLatLon: w.OriginalLatLon(),
		FollowPaths:    w.FollowPaths(),
		TravelMode:     w.TravelMode(),
		Distance:       w.Distance(),
	}
	if ll, ok := w.GeocodedLatLon(); ok {
		v.GeocodedLatLon = &ll
	}
	if path := w.Path(); len(path) > 0 {
		v.Path = providers.EncodePath(path)
	}
	return v
}

type routeView struct {
	ID        string         `json:"id"`
	Distance  float64        `json:"distance"`
	CanUndo   bool           `json:"canUndo"`
	CanRedo   bool           `json:"canRedo"`
	Waypoints []waypointView `json:"waypoints"`
	Summary   route.Summary  `json:"summary"`
}

func newRouteView(b *routebuilder.Builder) routeView {
	waypoints := b.Route().Waypoints()
	views := make([]waypointView, len(waypoints))
	for i, w := range waypoints {
		views[i] = newWaypointView(w)
	}
	return routeView{
		ID:        b.ID(),
		Distance:  b.Route().Distance(),
		CanUndo:   b.CanUndo(),
		CanRedo:   b.CanRedo(),
		Waypoints: views,
		Summary:   route.Summarize(waypoints),
	}
}
