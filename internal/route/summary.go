package route

// ModeSummary aggregates the legs travelled in one mode.
type ModeSummary struct {
	Legs     int     `json:"legs"`
	Distance float64 `json:"distance"`
}

// Summary is an aggregated view of a route's legs.
type Summary struct {
	Waypoints     int                        `json:"waypoints"`
	Legs          int                        `json:"legs"`
	RoutedLegs    int                        `json:"routedLegs"`
	StraightLegs  int                        `json:"straightLegs"`
	TotalDistance float64                    `json:"totalDistance"`
	LongestLeg    float64                    `json:"longestLeg"`
	ByMode        map[TravelMode]ModeSummary `json:"byMode"`
}

// Summarize aggregates distances per travel mode. The first waypoint starts the
// route and contributes no leg.
func Summarize(waypoints []*Waypoint) Summary {
	s := Summary{
		Waypoints: len(waypoints),
		ByMode:    make(map[TravelMode]ModeSummary),
	}
	if len(waypoints) < 2 {
		return s
	}

	for _, w := range waypoints[1:] {
		d := w.Distance()
		s.Legs++
		s.TotalDistance += d
		if d > s.LongestLeg {
			s.LongestLeg = d
		}

		if w.FollowPaths() {
			s.RoutedLegs++
		} else {
			s.StraightLegs++
		}

		m := s.ByMode[w.TravelMode()]
		m.Legs++
		m.Distance += d
		s.ByMode[w.TravelMode()] = m
	}
	return s
}
