package model

// RouteStrategy records how a route's visiting order was chosen.
type RouteStrategy string

const (
	RouteStrategyEmpty      RouteStrategy = "empty"
	RouteStrategyExhaustive RouteStrategy = "exhaustive"
	RouteStrategyGreedy     RouteStrategy = "greedy"
)

// RouteLeg is one origin -> destination hop.
type RouteLeg struct {
	Origin      int
	Destination int
	// Departure and Arrival are Adalia days.
	Departure float64
	Arrival   float64
	Cost      float64
}

// Route is an ordered transfer plan. Leg i's Destination is leg i+1's
// Origin; Legs is empty only when no targets were requested.
type Route struct {
	Legs      []RouteLeg
	TotalCost float64
	Strategy  RouteStrategy
}

// Order returns the visited body IDs, starting with the origin of the first
// leg. It is empty for an empty route.
func (r Route) Order() []int {
	if len(r.Legs) == 0 {
		return nil
	}
	out := make([]int, 0, len(r.Legs)+1)
	out = append(out, r.Legs[0].Origin)
	for _, leg := range r.Legs {
		out = append(out, leg.Destination)
	}
	return out
}

// Arrival returns the arrival day of the final leg, or zero for an empty route.
func (r Route) Arrival() float64 {
	if len(r.Legs) == 0 {
		return 0
	}
	return r.Legs[len(r.Legs)-1].Arrival
}
