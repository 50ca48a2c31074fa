package core

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/signalsfoundry/adalia-navigator/model"
)

func lineWorld(xs map[int]float64) *StaticMotionModel {
	positions := make(map[int]model.Position, len(xs))
	for id, x := range xs {
		positions[id] = model.Position{X: x}
	}
	return NewStaticMotionModel(positions)
}

func ids(ids ...int) []model.OrbitalElements {
	out := make([]model.OrbitalElements, len(ids))
	for i, id := range ids {
		out[i] = model.OrbitalElements{BodyID: id}
	}
	return out
}

func unitSpeed(t *testing.T) EuclideanCostModel {
	t.Helper()
	m, err := NewEuclideanCostModel(1)
	if err != nil {
		t.Fatalf("NewEuclideanCostModel: %v", err)
	}
	return m
}

func checkLegChain(t *testing.T, route model.Route, startID int, departDay float64) {
	t.Helper()
	var sum float64
	for i, leg := range route.Legs {
		if i == 0 {
			if leg.Origin != startID || leg.Departure != departDay {
				t.Fatalf("first leg = %+v, want origin %d departing %v", leg, startID, departDay)
			}
		} else {
			prev := route.Legs[i-1]
			if leg.Origin != prev.Destination || leg.Departure != prev.Arrival {
				t.Fatalf("leg %d = %+v does not continue %+v", i, leg, prev)
			}
		}
		if leg.Arrival < leg.Departure {
			t.Fatalf("leg %d arrives before departing: %+v", i, leg)
		}
		sum += leg.Cost
	}
	if math.Abs(sum-route.TotalCost) > 1e-9 {
		t.Fatalf("TotalCost = %v, legs sum to %v", route.TotalCost, sum)
	}
}

func TestPlanEmptyTargets(t *testing.T) {
	p := NewPlanner(NewPropagator(), nil)
	route, err := p.Plan(model.OrbitalElements{BodyID: 1, SemiMajorAxis: 2}, nil, 0)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if route.Legs == nil || len(route.Legs) != 0 {
		t.Fatalf("Legs = %#v, want empty non-nil slice", route.Legs)
	}
	if route.TotalCost != 0 || route.Strategy != model.RouteStrategyEmpty {
		t.Fatalf("route = %+v, want zero cost empty strategy", route)
	}
}

func TestPlanSingleLeg(t *testing.T) {
	p := NewPlanner(lineWorld(map[int]float64{1: 0, 2: 2.5}), unitSpeed(t))
	route, err := p.Plan(model.OrbitalElements{BodyID: 1}, ids(2), 5)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	want := []model.RouteLeg{{Origin: 1, Destination: 2, Departure: 5, Arrival: 7.5, Cost: 2.5}}
	if !reflect.DeepEqual(route.Legs, want) {
		t.Fatalf("Legs = %+v, want %+v", route.Legs, want)
	}
	if route.Strategy != model.RouteStrategyExhaustive {
		t.Fatalf("Strategy = %q, want exhaustive", route.Strategy)
	}
}

func TestPlanExhaustiveBeatsGreedy(t *testing.T) {
	world := lineWorld(map[int]float64{0: 0, 1: 1, 2: -1.5, 3: 3})
	p := NewPlanner(world, unitSpeed(t))

	route, err := p.Plan(model.OrbitalElements{BodyID: 0}, ids(1, 2, 3), 0)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if got := route.Order(); !reflect.DeepEqual(got, []int{0, 2, 1, 3}) {
		t.Fatalf("Order() = %v, want [0 2 1 3]", got)
	}
	if route.TotalCost != 6 {
		t.Fatalf("TotalCost = %v, want 6", route.TotalCost)
	}
	checkLegChain(t, route, 0, 0)
}

func TestPlanGreedyAboveLimit(t *testing.T) {
	world := lineWorld(map[int]float64{0: 0, 1: 1, 2: -1.5, 3: 3})
	p := NewPlanner(world, unitSpeed(t), WithExhaustiveLimit(2))
	if p.ExhaustiveLimit() != 2 {
		t.Fatalf("ExhaustiveLimit() = %d, want 2", p.ExhaustiveLimit())
	}

	route, err := p.Plan(model.OrbitalElements{BodyID: 0}, ids(1, 2, 3), 0)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if route.Strategy != model.RouteStrategyGreedy {
		t.Fatalf("Strategy = %q, want greedy", route.Strategy)
	}
	if got := route.Order(); !reflect.DeepEqual(got, []int{0, 1, 3, 2}) {
		t.Fatalf("Order() = %v, want [0 1 3 2]", got)
	}
	if route.TotalCost != 7.5 {
		t.Fatalf("TotalCost = %v, want 7.5", route.TotalCost)
	}
	checkLegChain(t, route, 0, 0)
}

func TestPlanTieKeepsInputOrder(t *testing.T) {
	world := lineWorld(map[int]float64{0: 0, 1: 1, 2: -1})
	for _, limit := range []int{DefaultExhaustiveLimit, 0} {
		p := NewPlanner(world, unitSpeed(t), WithExhaustiveLimit(limit))
		route, err := p.Plan(model.OrbitalElements{BodyID: 0}, ids(1, 2), 0)
		if err != nil {
			t.Fatalf("Plan: %v", err)
		}
		if got := route.Order(); !reflect.DeepEqual(got, []int{0, 1, 2}) {
			t.Fatalf("limit %d: Order() = %v, want [0 1 2]", limit, got)
		}

		route, _ = p.Plan(model.OrbitalElements{BodyID: 0}, ids(2, 1), 0)
		if got := route.Order(); !reflect.DeepEqual(got, []int{0, 2, 1}) {
			t.Fatalf("limit %d: reversed input Order() = %v, want [0 2 1]", limit, got)
		}
	}
}

func TestPlanNearTieWithinTolerance(t *testing.T) {
	// Visiting 2 first is cheaper, but only by 1e-12.
	world := lineWorld(map[int]float64{0: 0, 1: 1 + 1e-12, 2: -1})
	for _, limit := range []int{DefaultExhaustiveLimit, 0} {
		p := NewPlanner(world, unitSpeed(t), WithExhaustiveLimit(limit))
		route, err := p.Plan(model.OrbitalElements{BodyID: 0}, ids(1, 2), 0)
		if err != nil {
			t.Fatalf("Plan: %v", err)
		}
		if got := route.Order(); !reflect.DeepEqual(got, []int{0, 1, 2}) {
			t.Fatalf("limit %d: Order() = %v, want [0 1 2] within tolerance", limit, got)
		}

		strict := NewPlanner(world, unitSpeed(t), WithExhaustiveLimit(limit), WithCostTolerance(0))
		route, err = strict.Plan(model.OrbitalElements{BodyID: 0}, ids(1, 2), 0)
		if err != nil {
			t.Fatalf("Plan: %v", err)
		}
		if got := route.Order(); !reflect.DeepEqual(got, []int{0, 2, 1}) {
			t.Fatalf("limit %d: zero tolerance Order() = %v, want [0 2 1]", limit, got)
		}
	}
}

func permutations(n int) [][]int {
	if n == 0 {
		return [][]int{{}}
	}
	var out [][]int
	for _, rest := range permutations(n - 1) {
		for i := 0; i <= len(rest); i++ {
			perm := make([]int, 0, n)
			perm = append(perm, rest[:i]...)
			perm = append(perm, n-1)
			perm = append(perm, rest[i:]...)
			out = append(out, perm)
		}
	}
	return out
}

func TestPlanMatchesBruteForce(t *testing.T) {
	prop := NewPropagator()
	cost, err := NewEuclideanCostModel(DefaultTransferSpeed)
	if err != nil {
		t.Fatalf("NewEuclideanCostModel: %v", err)
	}
	bodies := beltSample()
	start, targets := bodies[0], bodies[1:]
	const departDay = 1500.0

	best := math.Inf(1)
	for _, perm := range permutations(len(targets)) {
		current, depart, total := start, departDay, 0.0
		for _, idx := range perm {
			from, _ := prop.PositionAt(current, depart)
			to, _ := prop.PositionAt(targets[idx], depart)
			arrival, c := cost.Cost(from, to, depart)
			total += c
			current, depart = targets[idx], arrival
		}
		best = math.Min(best, total)
	}

	route, err := NewPlanner(prop, cost).Plan(start, targets, departDay)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if math.Abs(route.TotalCost-best) > 1e-9 {
		t.Fatalf("TotalCost = %v, brute force best = %v", route.TotalCost, best)
	}
	if len(route.Legs) != len(targets) {
		t.Fatalf("len(Legs) = %d, want %d", len(route.Legs), len(targets))
	}
	checkLegChain(t, route, start.BodyID, departDay)

	seen := make(map[int]bool)
	for _, id := range route.Order() {
		seen[id] = true
	}
	for _, el := range targets {
		if !seen[el.BodyID] {
			t.Fatalf("body %d not visited; order %v", el.BodyID, route.Order())
		}
	}
}

func TestPlanGreedyVisitsEveryTargetOnce(t *testing.T) {
	prop := NewPropagator()
	bodies := beltSample()
	route, err := NewPlanner(prop, nil, WithExhaustiveLimit(1)).Plan(bodies[0], bodies[1:], 0)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if route.Strategy != model.RouteStrategyGreedy {
		t.Fatalf("Strategy = %q, want greedy", route.Strategy)
	}
	order := route.Order()
	if len(order) != len(bodies) {
		t.Fatalf("Order() = %v, want %d entries", order, len(bodies))
	}
	seen := make(map[int]int)
	for _, id := range order[1:] {
		seen[id]++
	}
	for _, el := range bodies[1:] {
		if seen[el.BodyID] != 1 {
			t.Fatalf("body %d visited %d times", el.BodyID, seen[el.BodyID])
		}
	}
	checkLegChain(t, route, bodies[0].BodyID, 0)
}

type warningMotion struct {
	MotionModel
	noisy int
}

func (w warningMotion) PositionAt(el model.OrbitalElements, day float64) (model.Position, error) {
	pos, err := w.MotionModel.PositionAt(el, day)
	if err == nil && el.BodyID == w.noisy {
		err = &NonConvergenceError{Eccentricity: 0.99, Iterations: 30}
	}
	return pos, err
}

func TestPlanPropagatesPrecisionWarning(t *testing.T) {
	world := warningMotion{
		MotionModel: lineWorld(map[int]float64{0: 0, 1: 1, 2: -1.5, 3: 3}),
		noisy:       2,
	}
	route, err := NewPlanner(world, unitSpeed(t)).Plan(model.OrbitalElements{BodyID: 0}, ids(1, 2, 3), 0)
	if !IsPrecisionWarning(err) {
		t.Fatalf("err = %v, want precision warning", err)
	}
	if got := route.Order(); !reflect.DeepEqual(got, []int{0, 2, 1, 3}) {
		t.Fatalf("Order() = %v, want [0 2 1 3] despite the warning", got)
	}
}

func TestPlanFailsOnMissingPosition(t *testing.T) {
	world := lineWorld(map[int]float64{0: 0, 1: 1})
	_, err := NewPlanner(world, unitSpeed(t)).Plan(model.OrbitalElements{BodyID: 0}, ids(1, 42), 0)
	if !errors.Is(err, ErrNoPosition) {
		t.Fatalf("err = %v, want ErrNoPosition", err)
	}
	if IsPrecisionWarning(err) {
		t.Fatalf("hard failure reported as precision warning")
	}
}

func TestPlanDuplicateTargets(t *testing.T) {
	world := lineWorld(map[int]float64{0: 0, 1: 2})
	route, err := NewPlanner(world, unitSpeed(t)).Plan(model.OrbitalElements{BodyID: 0}, ids(1, 1), 0)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if got := route.Order(); !reflect.DeepEqual(got, []int{0, 1, 1}) {
		t.Fatalf("Order() = %v, want [0 1 1]", got)
	}
	if route.TotalCost != 2 {
		t.Fatalf("TotalCost = %v, want 2", route.TotalCost)
	}
}
