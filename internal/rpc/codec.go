package rpc

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/signalsfoundry/adalia-navigator/internal/navigator"
	"github.com/signalsfoundry/adalia-navigator/internal/presentation"
	"github.com/signalsfoundry/adalia-navigator/model"
)

// Request field names.
const (
	fieldIDs       = "ids"
	fieldID        = "id"
	fieldDay       = "day"
	fieldSamples   = "samples"
	fieldStartIDs  = "start_ids"
	fieldTargetIDs = "target_ids"
)

// intField reads a required integral number.
func intField(in *structpb.Struct, name string) (int, error) {
	v, ok := in.GetFields()[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s is required", ErrInvalidArgument, name)
	}
	return toInt(v, name)
}

// optionalIntField reads an integral number, returning 0 when absent.
func optionalIntField(in *structpb.Struct, name string) (int, error) {
	v, ok := in.GetFields()[name]
	if !ok {
		return 0, nil
	}
	return toInt(v, name)
}

func toInt(v *structpb.Value, name string) (int, error) {
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("%w: %s must be a number", ErrInvalidArgument, name)
	}
	f := n.NumberValue
	if f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, fmt.Errorf("%w: %s must be an integer, got %v", ErrInvalidArgument, name, f)
	}
	return int(f), nil
}

// optionalFloatField reads a finite number, returning nil when absent.
func optionalFloatField(in *structpb.Struct, name string) (*float64, error) {
	v, ok := in.GetFields()[name]
	if !ok {
		return nil, nil
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return nil, nil
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok || math.IsNaN(n.NumberValue) || math.IsInf(n.NumberValue, 0) {
		return nil, fmt.Errorf("%w: %s must be a finite number", ErrInvalidArgument, name)
	}
	f := n.NumberValue
	return &f, nil
}

// intListField reads a list of integral numbers; absent means empty.
func intListField(in *structpb.Struct, name string) ([]int, error) {
	v, ok := in.GetFields()[name]
	if !ok {
		return []int{}, nil
	}
	list, ok := v.GetKind().(*structpb.Value_ListValue)
	if !ok {
		return nil, fmt.Errorf("%w: %s must be a list", ErrInvalidArgument, name)
	}
	out := make([]int, 0, len(list.ListValue.GetValues()))
	for i, item := range list.ListValue.GetValues() {
		n, err := toInt(item, fmt.Sprintf("%s[%d]", name, i))
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func positionList(p model.Position) []any {
	return []any{p.X, p.Y, p.Z}
}

func orbitList(path model.OrbitPath) []any {
	out := make([]any, 0, len(path))
	for _, p := range path {
		out = append(out, positionList(p))
	}
	return out
}

func bodyMap(d presentation.Decorated) map[string]any {
	el := d.Elements
	return map[string]any{
		"id":            d.ID,
		"name":          d.DisplayName,
		"size":          string(d.Size),
		"radius":        d.Radius,
		"spectral_type": d.SpectralType,
		"orbital": map[string]any{
			"a":      el.SemiMajorAxis,
			"e":      el.Eccentricity,
			"i":      el.Inclination,
			"o":      el.AscendingNode,
			"w":      el.ArgPeriapsis,
			"m":      el.MeanAnomaly,
			"period": el.Period,
			"epoch":  el.Epoch,
		},
	}
}

func bodyViewMap(v navigator.BodyView) map[string]any {
	m := bodyMap(v.Decorated)
	m["pos"] = positionList(v.Position)
	m["orbit"] = orbitList(v.Orbit)
	return m
}

func routeMap(r model.Route) map[string]any {
	legs := make([]any, 0, len(r.Legs))
	for _, leg := range r.Legs {
		legs = append(legs, map[string]any{
			"origin":      leg.Origin,
			"destination": leg.Destination,
			"departure":   leg.Departure,
			"arrival":     leg.Arrival,
			"cost":        leg.Cost,
		})
	}
	order := make([]any, 0, len(r.Legs)+1)
	for _, id := range r.Order() {
		order = append(order, id)
	}
	return map[string]any{
		"legs":       legs,
		"order":      order,
		"total_cost": r.TotalCost,
		"arrival":    r.Arrival(),
		"strategy":   string(r.Strategy),
	}
}

// decodePosition parses an [x, y, z] list value.
func decodePosition(v *structpb.Value) (model.Position, error) {
	items := v.GetListValue().GetValues()
	if len(items) != 3 {
		return model.Position{}, fmt.Errorf("position must have 3 components, got %d", len(items))
	}
	return model.Position{
		X: items[0].GetNumberValue(),
		Y: items[1].GetNumberValue(),
		Z: items[2].GetNumberValue(),
	}, nil
}
