// Package navigator composes the catalog, the propagation engine and the
// route planner behind one request-oriented service.
package navigator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/signalsfoundry/adalia-navigator/core"
	"github.com/signalsfoundry/adalia-navigator/internal/cache"
	"github.com/signalsfoundry/adalia-navigator/internal/logging"
	"github.com/signalsfoundry/adalia-navigator/internal/observability"
	"github.com/signalsfoundry/adalia-navigator/internal/presentation"
	"github.com/signalsfoundry/adalia-navigator/model"
)

// ErrInvalidRequest marks malformed requests such as a route without a start.
var ErrInvalidRequest = errors.New("invalid request")

// Catalog is the read side of kb.Catalog used by the service.
type Catalog interface {
	Lookup(id int) (model.Body, error)
	LookupMany(ids []int) ([]model.Body, error)
	Len() int
}

// Service answers body, position, orbit and route queries. It is safe for
// concurrent use.
type Service struct {
	catalog    Catalog
	propagator *core.Propagator
	planner    *core.Planner
	store      cache.Store
	engine     *observability.EngineCollector
	log        logging.Logger
	tracer     trace.Tracer
	fills      singleflight.Group
}

// Option configures a Service.
type Option func(*Service)

// WithCache enables result caching in store.
func WithCache(store cache.Store) Option {
	return func(s *Service) { s.store = store }
}

// WithEngineMetrics records planning and cache metrics on c.
func WithEngineMetrics(c *observability.EngineCollector) Option {
	return func(s *Service) { s.engine = c }
}

// WithLogger sets the service logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithTracer overrides the tracer used for service spans.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// New builds a service. The planner must share the propagator's motion model
// for route legs to agree with reported positions.
func New(catalog Catalog, propagator *core.Propagator, planner *core.Planner, opts ...Option) (*Service, error) {
	if catalog == nil || propagator == nil || planner == nil {
		return nil, fmt.Errorf("navigator: catalog, propagator and planner are required")
	}
	s := &Service{
		catalog:    catalog,
		propagator: propagator,
		planner:    planner,
		log:        logging.Noop(),
		tracer:     observability.Tracer(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// PrecisionObserver returns a propagator hook that counts and logs
// non-converged Kepler solves.
func PrecisionObserver(engine *observability.EngineCollector, log logging.Logger) core.PrecisionObserver {
	if log == nil {
		log = logging.Noop()
	}
	return func(el model.OrbitalElements, warn *core.NonConvergenceError) {
		engine.IncNonConvergence()
		log.Warn(context.Background(), "kepler solve did not converge",
			logging.Int("body_id", el.BodyID),
			logging.Float64("eccentricity", warn.Eccentricity),
			logging.Float64("mean_anomaly", warn.MeanAnomaly),
			logging.Float64("residual", warn.Residual),
			logging.Int("iterations", warn.Iterations),
		)
	}
}

// CurrentDay returns the current Adalia day.
func (s *Service) CurrentDay() float64 {
	return s.propagator.Now()
}

// CatalogSize returns the number of known bodies.
func (s *Service) CatalogSize() int {
	return s.catalog.Len()
}

// Bodies resolves ids in order with display attributes.
func (s *Service) Bodies(ctx context.Context, ids []int) ([]presentation.Decorated, error) {
	_, span := s.tracer.Start(ctx, "navigator.Bodies", trace.WithAttributes(attribute.Int("body.count", len(ids))))
	defer span.End()

	bodies, err := s.catalog.LookupMany(ids)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	out := make([]presentation.Decorated, 0, len(bodies))
	for _, b := range bodies {
		out = append(out, presentation.Decorate(b))
	}
	return out, nil
}

// Position returns a body's position at day.
func (s *Service) Position(ctx context.Context, id int, day float64) (model.Position, error) {
	ctx, span := s.tracer.Start(ctx, "navigator.Position", trace.WithAttributes(
		attribute.Int("body.id", id),
		attribute.Float64("adalia.day", day),
	))
	defer span.End()

	body, err := s.catalog.Lookup(id)
	if err != nil {
		recordSpanError(span, err)
		return model.Position{}, err
	}
	pos, err := s.position(ctx, body, day)
	if err != nil {
		recordSpanError(span, err)
	}
	return pos, err
}

// CurrentPosition returns a body's position now and the day it was taken at.
func (s *Service) CurrentPosition(ctx context.Context, id int) (model.Position, float64, error) {
	day := s.CurrentDay()
	pos, err := s.Position(ctx, id, day)
	return pos, day, err
}

// MaxOrbitSamples returns the largest samples value Orbit accepts.
func (s *Service) MaxOrbitSamples() int {
	return s.propagator.MaxSampleCount()
}

// Orbit returns a body's closed orbit path. samples <= 0 uses the
// propagator default; samples above MaxOrbitSamples are rejected.
func (s *Service) Orbit(ctx context.Context, id, samples int) (model.OrbitPath, error) {
	ctx, span := s.tracer.Start(ctx, "navigator.Orbit", trace.WithAttributes(attribute.Int("body.id", id)))
	defer span.End()

	if limit := s.MaxOrbitSamples(); samples > limit {
		err := fmt.Errorf("%w: samples %d exceeds limit %d", ErrInvalidRequest, samples, limit)
		recordSpanError(span, err)
		return nil, err
	}

	body, err := s.catalog.Lookup(id)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	path, err := s.orbit(ctx, body, samples)
	if err != nil {
		recordSpanError(span, err)
	}
	return path, err
}

func (s *Service) position(ctx context.Context, body model.Body, day float64) (model.Position, error) {
	positions, err := s.cached(ctx, cache.PositionKey(body.ID, day), func() ([]model.Position, error) {
		pos, err := s.propagator.PositionAt(body.Elements, day)
		return []model.Position{pos}, err
	})
	if err != nil {
		return model.Position{}, err
	}
	return positions[0], nil
}

func (s *Service) orbit(ctx context.Context, body model.Body, samples int) (model.OrbitPath, error) {
	if samples <= 0 {
		samples = s.propagator.SampleCount()
	}
	positions, err := s.cached(ctx, cache.OrbitKey(body.ID, samples), func() ([]model.Position, error) {
		return s.propagator.FullOrbitPath(body.Elements, samples)
	})
	if err != nil {
		return nil, err
	}
	return model.OrbitPath(positions), nil
}

type fillResult struct {
	positions []model.Position
	warn      error
}

// cached serves key from the store or computes it once across concurrent
// callers. Results carrying a precision warning are returned but not stored.
func (s *Service) cached(ctx context.Context, key cache.Key, compute func() ([]model.Position, error)) ([]model.Position, error) {
	if s.store == nil {
		positions, err := compute()
		return s.absorbWarning(ctx, positions, err)
	}

	positions, ok, err := s.store.Get(ctx, key)
	switch {
	case err != nil:
		s.engine.ObserveCache(observability.CacheError)
		s.log.Warn(ctx, "position cache read failed", logging.String("key", key.String()), logging.Err(err))
	case ok:
		s.engine.ObserveCache(observability.CacheHit)
		return positions, nil
	default:
		s.engine.ObserveCache(observability.CacheMiss)
	}

	v, err, _ := s.fills.Do(key.String(), func() (any, error) {
		positions, err := compute()
		if err != nil && !core.IsPrecisionWarning(err) {
			return nil, err
		}
		if err == nil {
			if setErr := s.store.Set(ctx, key, positions); setErr != nil {
				s.log.Warn(ctx, "position cache write failed", logging.String("key", key.String()), logging.Err(setErr))
			}
		}
		return fillResult{positions: positions, warn: err}, nil
	})
	if err != nil {
		return nil, err
	}
	res := v.(fillResult)
	return s.absorbWarning(ctx, append([]model.Position(nil), res.positions...), res.warn)
}

// absorbWarning logs precision warnings and clears them; other errors pass.
func (s *Service) absorbWarning(ctx context.Context, positions []model.Position, err error) ([]model.Position, error) {
	if err == nil {
		return positions, nil
	}
	if core.IsPrecisionWarning(err) {
		s.log.Debug(ctx, "serving best-estimate position", logging.Err(err))
		return positions, nil
	}
	return nil, err
}

// RouteRequest asks for a route from StartIDs[0] through every target.
// A nil Day plans from the current Adalia day.
type RouteRequest struct {
	StartIDs  []int
	TargetIDs []int
	Day       *float64
}

// BodyView is a decorated body with its position at the plan day and its
// full orbit.
type BodyView struct {
	presentation.Decorated
	Position model.Position
	Orbit    model.OrbitPath
}

// RoutePlan is the answer to a RouteRequest.
type RoutePlan struct {
	Day      float64
	Starts   []BodyView
	Targets  []BodyView
	Route    model.Route
	Warnings []string
}

// PlanRoute resolves the request bodies, plans the route and decorates every
// start and target with its position and orbit.
func (s *Service) PlanRoute(ctx context.Context, req RouteRequest) (RoutePlan, error) {
	ctx, span := s.tracer.Start(ctx, "navigator.PlanRoute", trace.WithAttributes(
		attribute.Int("route.starts", len(req.StartIDs)),
		attribute.Int("route.targets", len(req.TargetIDs)),
	))
	defer span.End()

	if len(req.StartIDs) == 0 {
		err := fmt.Errorf("%w: at least one start body is required", ErrInvalidRequest)
		recordSpanError(span, err)
		return RoutePlan{}, err
	}
	day := s.CurrentDay()
	if req.Day != nil {
		day = *req.Day
	}
	span.SetAttributes(attribute.Float64("adalia.day", day))

	starts, err := s.catalog.LookupMany(req.StartIDs)
	if err != nil {
		recordSpanError(span, err)
		return RoutePlan{}, err
	}
	targets, err := s.catalog.LookupMany(req.TargetIDs)
	if err != nil {
		recordSpanError(span, err)
		return RoutePlan{}, err
	}

	targetElements := make([]model.OrbitalElements, 0, len(targets))
	for _, b := range targets {
		targetElements = append(targetElements, b.Elements)
	}

	plan := RoutePlan{Day: day}
	started := time.Now()
	route, err := s.planRoute(ctx, starts[0].Elements, targetElements, day)
	if err != nil {
		if !core.IsPrecisionWarning(err) {
			recordSpanError(span, err)
			return RoutePlan{}, err
		}
		plan.Warnings = append(plan.Warnings, err.Error())
		s.log.Warn(ctx, "route planned with imprecise positions", logging.Err(err))
	}
	elapsed := time.Since(started)
	s.engine.ObservePlan(string(route.Strategy), elapsed)
	span.SetAttributes(
		attribute.String("route.strategy", string(route.Strategy)),
		attribute.Float64("route.total_cost", route.TotalCost),
	)
	s.log.Info(ctx, "route planned",
		logging.Int("start_id", starts[0].ID),
		logging.Int("targets", len(targets)),
		logging.String("strategy", string(route.Strategy)),
		logging.Float64("total_cost", route.TotalCost),
		logging.Any("duration", elapsed),
	)
	plan.Route = route

	if plan.Starts, err = s.views(ctx, starts, day); err != nil {
		recordSpanError(span, err)
		return RoutePlan{}, err
	}
	if plan.Targets, err = s.views(ctx, targets, day); err != nil {
		recordSpanError(span, err)
		return RoutePlan{}, err
	}
	return plan, nil
}

func (s *Service) planRoute(ctx context.Context, start model.OrbitalElements, targets []model.OrbitalElements, day float64) (model.Route, error) {
	_, span := s.tracer.Start(ctx, "core.Planner.Plan", trace.WithAttributes(
		attribute.Int("planner.exhaustive_limit", s.planner.ExhaustiveLimit()),
	))
	defer span.End()
	return s.planner.Plan(start, targets, day)
}

func (s *Service) views(ctx context.Context, bodies []model.Body, day float64) ([]BodyView, error) {
	out := make([]BodyView, 0, len(bodies))
	for _, b := range bodies {
		pos, err := s.position(ctx, b, day)
		if err != nil {
			return nil, err
		}
		orbit, err := s.orbit(ctx, b, 0)
		if err != nil {
			return nil, err
		}
		out = append(out, BodyView{Decorated: presentation.Decorate(b), Position: pos, Orbit: orbit})
	}
	return out, nil
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(otelcodes.Error, err.Error())
}
