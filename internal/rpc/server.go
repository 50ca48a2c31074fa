package rpc

import (
	"context"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/signalsfoundry/adalia-navigator/internal/logging"
	"github.com/signalsfoundry/adalia-navigator/internal/navigator"
)

// Server implements NavigatorServer on top of a navigator.Service.
type Server struct {
	svc *navigator.Service
	log logging.Logger
}

var _ NavigatorServer = (*Server)(nil)

// NewServer wraps svc. A nil logger discards output.
func NewServer(svc *navigator.Service, log logging.Logger) *Server {
	if log == nil {
		log = logging.Noop()
	}
	return &Server{svc: svc, log: log}
}

func (s *Server) logger(ctx context.Context) logging.Logger {
	return logging.FromContext(ctx, s.log)
}

// GetBodies handles {ids: [..]} and returns {bodies: [..]} in request order.
func (s *Server) GetBodies(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	ids, err := intListField(in, fieldIDs)
	if err != nil {
		return nil, ToStatusError(err)
	}
	bodies, err := s.svc.Bodies(ctx, ids)
	if err != nil {
		s.logger(ctx).Debug(ctx, "body lookup failed", logging.Err(err))
		return nil, ToStatusError(err)
	}
	out := make([]any, 0, len(bodies))
	for _, b := range bodies {
		out = append(out, bodyMap(b))
	}
	return s.reply(ctx, map[string]any{"bodies": out})
}

// GetPosition handles {id, day?} and returns {id, day, pos: [x, y, z]}.
func (s *Server) GetPosition(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := intField(in, fieldID)
	if err != nil {
		return nil, ToStatusError(err)
	}
	day, err := optionalFloatField(in, fieldDay)
	if err != nil {
		return nil, ToStatusError(err)
	}
	at := s.svc.CurrentDay()
	if day != nil {
		at = *day
	}
	pos, err := s.svc.Position(ctx, id, at)
	if err != nil {
		return nil, ToStatusError(err)
	}
	return s.reply(ctx, map[string]any{"id": id, "day": at, "pos": positionList(pos)})
}

// GetOrbit handles {id, samples?} and returns {id, orbit: [[x, y, z], ..]}.
func (s *Server) GetOrbit(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := intField(in, fieldID)
	if err != nil {
		return nil, ToStatusError(err)
	}
	samples, err := optionalIntField(in, fieldSamples)
	if err != nil {
		return nil, ToStatusError(err)
	}
	if samples < 0 {
		return nil, ToStatusError(fmt.Errorf("%w: %s must not be negative, got %d", ErrInvalidArgument, fieldSamples, samples))
	}
	if limit := s.svc.MaxOrbitSamples(); samples > limit {
		return nil, ToStatusError(fmt.Errorf("%w: %s must be at most %d, got %d", ErrInvalidArgument, fieldSamples, limit, samples))
	}
	path, err := s.svc.Orbit(ctx, id, samples)
	if err != nil {
		return nil, ToStatusError(err)
	}
	return s.reply(ctx, map[string]any{"id": id, "orbit": orbitList(path)})
}

// GetCurrentDay returns {day}.
func (s *Server) GetCurrentDay(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return s.reply(ctx, map[string]any{"day": s.svc.CurrentDay()})
}

// PlanRoute handles {start_ids, target_ids, day?} and returns the decorated
// starting and target bodies together with the route.
func (s *Server) PlanRoute(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	starts, err := intListField(in, fieldStartIDs)
	if err != nil {
		return nil, ToStatusError(err)
	}
	targets, err := intListField(in, fieldTargetIDs)
	if err != nil {
		return nil, ToStatusError(err)
	}
	day, err := optionalFloatField(in, fieldDay)
	if err != nil {
		return nil, ToStatusError(err)
	}

	plan, err := s.svc.PlanRoute(ctx, navigator.RouteRequest{StartIDs: starts, TargetIDs: targets, Day: day})
	if err != nil {
		s.logger(ctx).Info(ctx, "route planning failed", logging.Err(err))
		return nil, ToStatusError(err)
	}

	startViews := make([]any, 0, len(plan.Starts))
	for _, v := range plan.Starts {
		startViews = append(startViews, bodyViewMap(v))
	}
	targetViews := make([]any, 0, len(plan.Targets))
	for _, v := range plan.Targets {
		targetViews = append(targetViews, bodyViewMap(v))
	}
	warnings := make([]any, 0, len(plan.Warnings))
	for _, w := range plan.Warnings {
		warnings = append(warnings, w)
	}
	return s.reply(ctx, map[string]any{
		"day":                plan.Day,
		"starting_asteroids": startViews,
		"target_asteroids":   targetViews,
		"route":              routeMap(plan.Route),
		"warnings":           warnings,
	})
}

func (s *Server) reply(ctx context.Context, fields map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(fields)
	if err != nil {
		s.logger(ctx).Error(ctx, "encode response", logging.Err(err))
		return nil, ToStatusError(err)
	}
	return out, nil
}
