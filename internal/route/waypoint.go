package route

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
)

// TravelMode selects how a leg is routed.
type TravelMode string

const (
	TravelModeWalking   TravelMode = "WALKING"
	TravelModeDriving   TravelMode = "DRIVING"
	TravelModeBicycling TravelMode = "BICYCLING"
)

// ParseTravelMode accepts a mode name in any case; empty means walking.
func ParseTravelMode(s string) (TravelMode, error) {
	switch TravelMode(strings.ToUpper(strings.TrimSpace(s))) {
	case "", TravelModeWalking:
		return TravelModeWalking, nil
	case TravelModeDriving:
		return TravelModeDriving, nil
	case TravelModeBicycling:
		return TravelModeBicycling, nil
	}
	return "", fmt.Errorf("%w: unknown travel mode %q", ErrInvalidArgument, s)
}

// Waypoint is a point of a Route. Distance is the length of the leg from the
// previous waypoint, in meters.
type Waypoint struct {
	Emitter

	id       string
	original LatLon

	mu          sync.RWMutex
	geocoded    *LatLon
	followPaths bool
	travelMode  TravelMode
	path        orb.LineString
	distance    float64
}

// WaypointOption configures a new Waypoint.
type WaypointOption func(*Waypoint)

// WithID overrides the generated ID.
func WithID(id string) WaypointOption {
	return func(w *Waypoint) { w.id = id }
}

// WithFollowPaths sets whether the leg to this waypoint is routed.
func WithFollowPaths(follow bool) WaypointOption {
	return func(w *Waypoint) { w.followPaths = follow }
}

// WithTravelMode sets the travel mode of the leg to this waypoint.
func WithTravelMode(mode TravelMode) WaypointOption {
	return func(w *Waypoint) { w.travelMode = mode }
}

// WithPath presets the leg geometry and distance.
func WithPath(path orb.LineString, distance float64) WaypointOption {
	return func(w *Waypoint) {
		w.path = path.Clone()
		w.distance = distance
	}
}

// WithGeocodedLatLon presets the snapped coordinates.
func WithGeocodedLatLon(ll LatLon) WaypointOption {
	return func(w *Waypoint) { w.geocoded = &ll }
}

// NewWaypoint creates a walking, path-following waypoint at ll.
func NewWaypoint(ll LatLon, opts ...WaypointOption) *Waypoint {
	w := &Waypoint{
		id:          uuid.NewString(),
		original:    ll,
		followPaths: true,
		travelMode:  TravelModeWalking,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Waypoint) ID() string { return w.id }

// OriginalLatLon returns the coordinates the waypoint was created with.
func (w *Waypoint) OriginalLatLon() LatLon { return w.original }

// GeocodedLatLon returns the coordinates snapped by the directions service, if any.
func (w *Waypoint) GeocodedLatLon() (LatLon, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.geocoded == nil {
		return LatLon{}, false
	}
	return *w.geocoded, true
}

// LatLon returns the geocoded coordinates when known, else the original ones.
func (w *Waypoint) LatLon() LatLon {
	if ll, ok := w.GeocodedLatLon(); ok {
		return ll
	}
	return w.original
}

func (w *Waypoint) FollowPaths() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.followPaths
}

func (w *Waypoint) TravelMode() TravelMode {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.travelMode
}

// Path returns a copy of the leg geometry, nil when none is set.
func (w *Waypoint) Path() orb.LineString {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.path.Clone()
}

// HasPath reports whether a leg geometry is set.
func (w *Waypoint) HasPath() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.path != nil
}

func (w *Waypoint) Distance() float64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.distance
}

// SetDistance stores d and emits change:distance with the new value and the delta.
func (w *Waypoint) SetDistance(d float64) error {
	if d < 0 {
		return fmt.Errorf("%w: negative distance %v", ErrInvalidArgument, d)
	}
	w.mu.Lock()
	delta := d - w.distance
	w.distance = d
	w.mu.Unlock()

	w.emit(Event{Name: EventChangeDistance, Waypoint: w, Value: d, Delta: delta})
	return nil
}

// SetPath replaces the leg geometry. A nil path clears it.
func (w *Waypoint) SetPath(path orb.LineString) {
	w.mu.Lock()
	w.path = path.Clone()
	w.mu.Unlock()
	w.changed()
}

// SetGeocodedLatLon records snapped coordinates. A nil value clears them.
func (w *Waypoint) SetGeocodedLatLon(ll *LatLon) {
	w.mu.Lock()
	if ll == nil {
		w.geocoded = nil
	} else {
		v := *ll
		w.geocoded = &v
	}
	w.mu.Unlock()
	w.changed()
}

func (w *Waypoint) SetFollowPaths(follow bool) {
	w.mu.Lock()
	w.followPaths = follow
	w.mu.Unlock()
	w.changed()
}

func (w *Waypoint) SetTravelMode(mode TravelMode) {
	w.mu.Lock()
	w.travelMode = mode
	w.mu.Unlock()
	w.changed()
}

func (w *Waypoint) changed() {
	w.emit(Event{Name: EventChange, Waypoint: w})
}

// Set applies attrs by name. Keys: path, distance, followPaths, travelMode,
// geocodedLatLon. Every key and value is checked before anything is applied.
func (w *Waypoint) Set(attrs map[string]any) error {
	var (
		apply []func()
		err   error
	)
	for key, value := range attrs {
		var fn func()
		switch key {
		case "path":
			fn, err = setPath(w, value)
		case "distance":
			fn, err = setDistance(w, value)
		case "followPaths":
			follow, ok := value.(bool)
			if !ok {
				err = fmt.Errorf("%w: followPaths must be a bool", ErrInvalidArgument)
				break
			}
			fn = func() { w.SetFollowPaths(follow) }
		case "travelMode":
			fn, err = setTravelMode(w, value)
		case "geocodedLatLon":
			fn, err = setGeocoded(w, value)
		default:
			err = fmt.Errorf("%w: waypoint has no property %q", ErrInvalidArgument, key)
		}
		if err != nil {
			return err
		}
		apply = append(apply, fn)
	}

	for _, fn := range apply {
		fn()
	}
	return nil
}

func setPath(w *Waypoint, value any) (func(), error) {
	switch v := value.(type) {
	case nil:
		return func() { w.SetPath(nil) }, nil
	case orb.LineString:
		return func() { w.SetPath(v) }, nil
	case []LatLon:
		path := PathFromLatLons(v)
		return func() { w.SetPath(path) }, nil
	}
	return nil, fmt.Errorf("%w: unsupported path type %T", ErrInvalidArgument, value)
}

func setDistance(w *Waypoint, value any) (func(), error) {
	var d float64
	switch v := value.(type) {
	case float64:
		d = v
	case int:
		d = float64(v)
	default:
		return nil, fmt.Errorf("%w: distance must be a number", ErrInvalidArgument)
	}
	if d < 0 {
		return nil, fmt.Errorf("%w: negative distance %v", ErrInvalidArgument, d)
	}
	return func() { _ = w.SetDistance(d) }, nil
}

func setTravelMode(w *Waypoint, value any) (func(), error) {
	var s string
	switch v := value.(type) {
	case TravelMode:
		s = string(v)
	case string:
		s = v
	default:
		return nil, fmt.Errorf("%w: travelMode must be a string", ErrInvalidArgument)
	}
	mode, err := ParseTravelMode(s)
	if err != nil {
		return nil, err
	}
	return func() { w.SetTravelMode(mode) }, nil
}

func setGeocoded(w *Waypoint, value any) (func(), error) {
	switch v := value.(type) {
	case nil:
		return func() { w.SetGeocodedLatLon(nil) }, nil
	case LatLon:
		if !v.Valid() {
			return nil, fmt.Errorf("%w: coordinates out of range %s", ErrInvalidArgument, v)
		}
		return func() { w.SetGeocodedLatLon(&v) }, nil
	}
	return nil, fmt.Errorf("%w: unsupported geocodedLatLon type %T", ErrInvalidArgument, value)
}

// DirectDistanceTo returns the great-circle distance to other in meters.
func (w *Waypoint) DirectDistanceTo(other *Waypoint) float64 {
	return DirectDistance(w.LatLon(), other.LatLon())
}

// WaypointState is the mutable part of a Waypoint, captured by commands for undo.
type WaypointState struct {
	Geocoded    *LatLon
	Path        orb.LineString
	Distance    float64
	FollowPaths bool
}

// State captures the geocoded coordinates, path, distance and path-following flag.
func (w *Waypoint) State() WaypointState {
	w.mu.RLock()
	defer w.mu.RUnlock()
	s := WaypointState{Path: w.path.Clone(), Distance: w.distance, FollowPaths: w.followPaths}
	if w.geocoded != nil {
		ll := *w.geocoded
		s.Geocoded = &ll
	}
	return s
}

// Restore reapplies a captured state through the setters so subscribers are notified.
func (w *Waypoint) Restore(s WaypointState) {
	w.SetGeocodedLatLon(s.Geocoded)
	w.SetPath(s.Path)
	w.SetFollowPaths(s.FollowPaths)
	// A captured distance was accepted by SetDistance once, so it cannot fail here.
	_ = w.SetDistance(s.Distance)
}

func (w *Waypoint) String() string {
	return fmt.Sprintf("waypoint %s (%s)", w.id, w.LatLon())
}
