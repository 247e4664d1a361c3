package route

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// LatLon is a latitude/longitude pair in decimal degrees.
type LatLon [2]float64

// NewLatLon builds a LatLon.
func NewLatLon(lat, lon float64) LatLon {
	return LatLon{lat, lon}
}

func (l LatLon) Lat() float64 { return l[0] }
func (l LatLon) Lon() float64 { return l[1] }

// Valid reports whether the coordinates are within WGS84 bounds.
func (l LatLon) Valid() bool {
	return l[0] >= -90 && l[0] <= 90 && l[1] >= -180 && l[1] <= 180
}

// Point converts to an orb.Point, which is ordered lon/lat.
func (l LatLon) Point() orb.Point {
	return orb.Point{l[1], l[0]}
}

func (l LatLon) String() string {
	return fmt.Sprintf("%f,%f", l[0], l[1])
}

// LatLonFromPoint converts an orb.Point back to a LatLon.
func LatLonFromPoint(p orb.Point) LatLon {
	return LatLon{p.Lat(), p.Lon()}
}

// DirectDistance returns the great-circle distance between a and b in meters.
func DirectDistance(a, b LatLon) float64 {
	return geo.Distance(a.Point(), b.Point())
}

// StraightPath returns a two-point path from a to b.
func StraightPath(a, b LatLon) orb.LineString {
	return orb.LineString{a.Point(), b.Point()}
}

// PathFromLatLons converts lat/lon pairs to a path.
func PathFromLatLons(pairs []LatLon) orb.LineString {
	if pairs == nil {
		return nil
	}
	ls := make(orb.LineString, len(pairs))
	for i, p := range pairs {
		ls[i] = p.Point()
	}
	return ls
}

// PathLatLons converts a path to lat/lon pairs.
func PathLatLons(path orb.LineString) []LatLon {
	if path == nil {
		return nil
	}
	out := make([]LatLon, len(path))
	for i, p := range path {
		out[i] = LatLonFromPoint(p)
	}
	return out
}
