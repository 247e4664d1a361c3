package route

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrParse reports a malformed waypoint or route document.
var ErrParse = errors.New("route: invalid document")

// WaypointData is the serialized form of a Waypoint. Coordinates are [lat, lon].
type WaypointData struct {
	ID             string     `json:"id"`
	OriginalLatLon LatLon     `json:"originalLatLon"`
	GeocodedLatLon *LatLon    `json:"geocodedLatLon"`
	FollowPaths    bool       `json:"followPaths"`
	TravelMode     TravelMode `json:"travelMode"`
	Path           []LatLon   `json:"path"`
	Distance       float64    `json:"distance"`
}

// rawWaypoint keeps optional fields as pointers so absence can be detected.
type rawWaypoint struct {
	ID             string   `json:"id"`
	OriginalLatLon *LatLon  `json:"originalLatLon"`
	GeocodedLatLon *LatLon  `json:"geocodedLatLon"`
	FollowPaths    *bool    `json:"followPaths"`
	TravelMode     *string  `json:"travelMode"`
	Path           []LatLon `json:"path"`
	Distance       *float64 `json:"distance"`
}

// Data returns the serialized form of w.
func (w *Waypoint) Data() WaypointData {
	w.mu.RLock()
	defer w.mu.RUnlock()
	d := WaypointData{
		ID:             w.id,
		OriginalLatLon: w.original,
		FollowPaths:    w.followPaths,
		TravelMode:     w.travelMode,
		Path:           PathLatLons(w.path),
		Distance:       w.distance,
	}
	if w.geocoded != nil {
		ll := *w.geocoded
		d.GeocodedLatLon = &ll
	}
	return d
}

func (w *Waypoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(w.Data())
}

// UnmarshalJSON replaces the waypoint's data after validating the document.
func (w *Waypoint) UnmarshalJSON(b []byte) error {
	var raw rawWaypoint
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrParse, err)
	}
	d, err := raw.validate()
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.id = d.ID
	w.original = d.OriginalLatLon
	w.geocoded = d.GeocodedLatLon
	w.followPaths = d.FollowPaths
	w.travelMode = d.TravelMode
	w.path = PathFromLatLons(d.Path)
	w.mu.Unlock()

	return w.SetDistance(d.Distance)
}

func (raw rawWaypoint) validate() (WaypointData, error) {
	var d WaypointData
	if raw.Distance == nil || *raw.Distance < 0 {
		return d, fmt.Errorf("%w: distance must be a number >= 0", ErrParse)
	}
	if raw.OriginalLatLon == nil || !raw.OriginalLatLon.Valid() {
		return d, fmt.Errorf("%w: invalid originalLatLon", ErrParse)
	}
	if raw.GeocodedLatLon != nil && !raw.GeocodedLatLon.Valid() {
		return d, fmt.Errorf("%w: invalid geocodedLatLon", ErrParse)
	}
	if raw.Path != nil && len(raw.Path) < 1 {
		return d, fmt.Errorf("%w: path must hold at least one point", ErrParse)
	}
	for _, p := range raw.Path {
		if !p.Valid() {
			return d, fmt.Errorf("%w: invalid path point %s", ErrParse, p)
		}
	}
	if raw.FollowPaths == nil {
		return d, fmt.Errorf("%w: followPaths is required", ErrParse)
	}
	if raw.TravelMode == nil {
		return d, fmt.Errorf("%w: travelMode is required", ErrParse)
	}
	mode, err := ParseTravelMode(*raw.TravelMode)
	if err != nil {
		return d, fmt.Errorf("%w: %v", ErrParse, err)
	}

	d = WaypointData{
		ID:             raw.ID,
		OriginalLatLon: *raw.OriginalLatLon,
		GeocodedLatLon: raw.GeocodedLatLon,
		FollowPaths:    *raw.FollowPaths,
		TravelMode:     mode,
		Path:           raw.Path,
		Distance:       *raw.Distance,
	}
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return d, nil
}

// Export serializes the route as a JSON array of waypoints.
func (r *Route) Export() ([]byte, error) {
	return json.Marshal(r.Waypoints())
}

// Import parses a document produced by Export. The waypoints are not attached to
// any route; callers reset a route with them through a command.
func Import(b []byte) ([]*Waypoint, error) {
	var waypoints []*Waypoint
	if err := json.Unmarshal(b, &waypoints); err != nil {
		if errors.Is(err, ErrParse) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if err := checkDistinct(waypoints); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	ids := make(map[string]struct{}, len(waypoints))
	for _, w := range waypoints {
		if _, ok := ids[w.ID()]; ok {
			return nil, fmt.Errorf("%w: duplicate waypoint id %s", ErrParse, w.ID())
		}
		ids[w.ID()] = struct{}{}
	}
	return waypoints, nil
}

// Snapshot is a point-in-time copy of a route.
type Snapshot struct {
	Key       string         `json:"key"`
	Revision  uint64         `json:"revision"`
	Timestamp time.Time      `json:"timestamp"` // always UTC
	Distance  float64        `json:"distance"`
	Waypoints []WaypointData `json:"waypoints"`
	Summary   Summary        `json:"summary"`
}

// Snapshot copies the route's current state under key.
func (r *Route) Snapshot(key string) Snapshot {
	waypoints := r.Waypoints()
	data := make([]WaypointData, len(waypoints))
	for i, w := range waypoints {
		data[i] = w.Data()
	}
	return Snapshot{
		Key:       key,
		Timestamp: time.Now().UTC(),
		Distance:  r.Distance(),
		Waypoints: data,
		Summary:   Summarize(waypoints),
	}
}
