package core

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats/scalar"

	"github.com/signalsfoundry/adalia-navigator/model"
)

const (
	// DefaultExhaustiveLimit is the largest target count searched exhaustively.
	// Worst-case work grows factorially with it.
	DefaultExhaustiveLimit = 8
	// DefaultCostTolerance is the margin below which two route costs tie.
	DefaultCostTolerance = 1e-9
)

// Planner orders a set of target bodies into a transfer route. It holds no
// mutable state and is safe for concurrent use.
type Planner struct {
	motion          MotionModel
	cost            CostModel
	exhaustiveLimit int
	tolerance       float64
}

// PlannerOption configures a Planner.
type PlannerOption func(*Planner)

// WithExhaustiveLimit sets the target count above which the planner falls
// back to the greedy nearest-unvisited heuristic.
func WithExhaustiveLimit(n int) PlannerOption {
	return func(p *Planner) {
		if n >= 0 {
			p.exhaustiveLimit = n
		}
	}
}

// WithCostTolerance sets the tie margin used when comparing route costs.
func WithCostTolerance(tol float64) PlannerOption {
	return func(p *Planner) {
		if tol >= 0 {
			p.tolerance = tol
		}
	}
}

// NewPlanner builds a planner over a motion model and a cost model. A nil
// cost model uses EuclideanCostModel at DefaultTransferSpeed.
func NewPlanner(motion MotionModel, cost CostModel, opts ...PlannerOption) *Planner {
	if cost == nil {
		cost = EuclideanCostModel{Speed: DefaultTransferSpeed}
	}
	p := &Planner{
		motion:          motion,
		cost:            cost,
		exhaustiveLimit: DefaultExhaustiveLimit,
		tolerance:       DefaultCostTolerance,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// ExhaustiveLimit returns the configured exhaustive-search bound.
func (p *Planner) ExhaustiveLimit() int {
	return p.exhaustiveLimit
}

// Plan computes a route from start through every target, departing at
// departDay. Each leg departs when the previous one arrives, with positions
// re-evaluated at that time.
//
// Up to ExhaustiveLimit targets the visiting order minimises the total cost;
// ties go to the ordering that comes first lexicographically over the input
// order. Above the limit the greedy heuristic is used.
//
// An error satisfying IsPrecisionWarning accompanies a valid route.
func (p *Planner) Plan(start model.OrbitalElements, targets []model.OrbitalElements, departDay float64) (model.Route, error) {
	if len(targets) == 0 {
		return model.Route{Legs: []model.RouteLeg{}, Strategy: model.RouteStrategyEmpty}, nil
	}
	if p.motion == nil {
		return model.Route{}, fmt.Errorf("plan route: nil motion model")
	}

	run := newPlanRun(p, start, targets)

	var (
		order    []int
		strategy model.RouteStrategy
		err      error
	)
	if len(targets) <= p.exhaustiveLimit {
		order, err = run.exhaustive(departDay)
		strategy = model.RouteStrategyExhaustive
	} else {
		order, err = run.greedy(departDay)
		strategy = model.RouteStrategyGreedy
	}
	if err != nil {
		return model.Route{}, err
	}

	route, err := run.build(order, departDay)
	if err != nil {
		return model.Route{}, err
	}
	route.Strategy = strategy
	return route, run.warn
}

// better reports whether cost a beats b by more than the tolerance.
func (p *Planner) better(a, b float64) bool {
	return a < b && !scalar.EqualWithinAbs(a, b, p.tolerance)
}

// planRun holds the per-call memo. Bodies are addressed by index: 0 is the
// start, i+1 is targets[i], so duplicate IDs stay distinct.
type planRun struct {
	planner   *Planner
	bodies    []model.OrbitalElements
	legs      map[legKey]legResult
	positions map[positionKey]model.Position
	warn      error
}

type legKey struct {
	from, to int
	depart   float64
}

type legResult struct {
	arrival float64
	cost    float64
}

type positionKey struct {
	body int
	day  float64
}

func newPlanRun(p *Planner, start model.OrbitalElements, targets []model.OrbitalElements) *planRun {
	bodies := make([]model.OrbitalElements, 0, len(targets)+1)
	bodies = append(bodies, start)
	bodies = append(bodies, targets...)
	return &planRun{
		planner:   p,
		bodies:    bodies,
		legs:      make(map[legKey]legResult),
		positions: make(map[positionKey]model.Position),
	}
}

func (r *planRun) position(body int, day float64) (model.Position, error) {
	key := positionKey{body: body, day: day}
	if pos, ok := r.positions[key]; ok {
		return pos, nil
	}
	el := r.bodies[body]
	pos, err := r.planner.motion.PositionAt(el, day)
	if err != nil {
		if !IsPrecisionWarning(err) {
			return model.Position{}, fmt.Errorf("position of body %d at day %g: %w", el.BodyID, day, err)
		}
		if r.warn == nil {
			r.warn = err
		}
	}
	r.positions[key] = pos
	return pos, nil
}

func (r *planRun) leg(from, to int, depart float64) (legResult, error) {
	key := legKey{from: from, to: to, depart: depart}
	if res, ok := r.legs[key]; ok {
		return res, nil
	}
	origin, err := r.position(from, depart)
	if err != nil {
		return legResult{}, err
	}
	dest, err := r.position(to, depart)
	if err != nil {
		return legResult{}, err
	}
	arrival, cost := r.planner.cost.Cost(origin, dest, depart)
	res := legResult{arrival: arrival, cost: cost}
	r.legs[key] = res
	return res, nil
}

// exhaustive runs a depth-first branch-and-bound over all visiting orders,
// enumerating targets in input order. It returns target indices (0-based).
func (r *planRun) exhaustive(departDay float64) ([]int, error) {
	n := len(r.bodies) - 1
	visited := make([]bool, n)
	order := make([]int, 0, n)
	best := make([]int, 0, n)
	bestCost := math.Inf(1)

	var search func(current int, depart, partial float64) error
	search = func(current int, depart, partial float64) error {
		if len(order) == n {
			if r.planner.better(partial, bestCost) {
				bestCost = partial
				best = append(best[:0], order...)
			}
			return nil
		}
		for next := 0; next < n; next++ {
			if visited[next] {
				continue
			}
			res, err := r.leg(current, next+1, depart)
			if err != nil {
				return err
			}
			total := partial + res.cost
			if !r.planner.better(total, bestCost) {
				continue
			}
			visited[next] = true
			order = append(order, next)
			err = search(next+1, res.arrival, total)
			order = order[:len(order)-1]
			visited[next] = false
			if err != nil {
				return err
			}
		}
		return nil
	}

	if err := search(0, departDay, 0); err != nil {
		return nil, err
	}
	if len(best) != n {
		return nil, fmt.Errorf("plan route: no finite-cost ordering for %d targets", n)
	}
	return best, nil
}

// greedy repeatedly hops to the cheapest unvisited target.
func (r *planRun) greedy(departDay float64) ([]int, error) {
	n := len(r.bodies) - 1
	visited := make([]bool, n)
	order := make([]int, 0, n)

	current, depart := 0, departDay
	for len(order) < n {
		pick := -1
		var pickRes legResult
		for next := 0; next < n; next++ {
			if visited[next] {
				continue
			}
			res, err := r.leg(current, next+1, depart)
			if err != nil {
				return nil, err
			}
			if pick < 0 || r.planner.better(res.cost, pickRes.cost) {
				pick, pickRes = next, res
			}
		}
		visited[pick] = true
		order = append(order, pick)
		current, depart = pick+1, pickRes.arrival
	}
	return order, nil
}

// build replays an order into legs using the memoised leg results.
func (r *planRun) build(order []int, departDay float64) (model.Route, error) {
	route := model.Route{Legs: make([]model.RouteLeg, 0, len(order))}
	current, depart := 0, departDay
	for _, target := range order {
		res, err := r.leg(current, target+1, depart)
		if err != nil {
			return model.Route{}, err
		}
		route.Legs = append(route.Legs, model.RouteLeg{
			Origin:      r.bodies[current].BodyID,
			Destination: r.bodies[target+1].BodyID,
			Departure:   depart,
			Arrival:     res.arrival,
			Cost:        res.cost,
		})
		route.TotalCost += res.cost
		current, depart = target+1, res.arrival
	}
	return route, nil
}
