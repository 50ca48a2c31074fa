package rpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/signalsfoundry/adalia-navigator/model"
)

// Client is a thin typed wrapper over NavigatorService.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an established connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) call(ctx context.Context, method string, fields map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", method, err)
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// GetBodies returns the raw decorated body records for ids.
func (c *Client) GetBodies(ctx context.Context, ids []int, opts ...grpc.CallOption) ([]*structpb.Struct, error) {
	out, err := c.call(ctx, GetBodiesMethod, map[string]any{fieldIDs: intsToList(ids)}, opts...)
	if err != nil {
		return nil, err
	}
	items := out.GetFields()["bodies"].GetListValue().GetValues()
	bodies := make([]*structpb.Struct, 0, len(items))
	for _, item := range items {
		bodies = append(bodies, item.GetStructValue())
	}
	return bodies, nil
}

// GetPosition returns the body's position at day, or at the server's
// current day when day is nil. The effective day is returned too.
func (c *Client) GetPosition(ctx context.Context, id int, day *float64, opts ...grpc.CallOption) (model.Position, float64, error) {
	fields := map[string]any{fieldID: id}
	if day != nil {
		fields[fieldDay] = *day
	}
	out, err := c.call(ctx, GetPositionMethod, fields, opts...)
	if err != nil {
		return model.Position{}, 0, err
	}
	pos, err := decodePosition(out.GetFields()["pos"])
	if err != nil {
		return model.Position{}, 0, err
	}
	return pos, out.GetFields()["day"].GetNumberValue(), nil
}

// GetOrbit returns the sampled orbit path; samples 0 uses the server default.
func (c *Client) GetOrbit(ctx context.Context, id, samples int, opts ...grpc.CallOption) (model.OrbitPath, error) {
	fields := map[string]any{fieldID: id}
	if samples > 0 {
		fields[fieldSamples] = samples
	}
	out, err := c.call(ctx, GetOrbitMethod, fields, opts...)
	if err != nil {
		return nil, err
	}
	items := out.GetFields()["orbit"].GetListValue().GetValues()
	path := make(model.OrbitPath, 0, len(items))
	for i, item := range items {
		p, err := decodePosition(item)
		if err != nil {
			return nil, fmt.Errorf("orbit sample %d: %w", i, err)
		}
		path = append(path, p)
	}
	return path, nil
}

// GetCurrentDay returns the server's current Adalia day.
func (c *Client) GetCurrentDay(ctx context.Context, opts ...grpc.CallOption) (float64, error) {
	out, err := c.call(ctx, GetCurrentDayMethod, map[string]any{}, opts...)
	if err != nil {
		return 0, err
	}
	return out.GetFields()["day"].GetNumberValue(), nil
}

// PlanRoute requests a route and returns the raw response.
func (c *Client) PlanRoute(ctx context.Context, starts, targets []int, day *float64, opts ...grpc.CallOption) (*structpb.Struct, error) {
	fields := map[string]any{
		fieldStartIDs:  intsToList(starts),
		fieldTargetIDs: intsToList(targets),
	}
	if day != nil {
		fields[fieldDay] = *day
	}
	return c.call(ctx, PlanRouteMethod, fields, opts...)
}

// RouteOrder extracts the visiting order, origin first, from a PlanRoute
// response.
func RouteOrder(resp *structpb.Struct) []int {
	items := resp.GetFields()["route"].GetStructValue().GetFields()["order"].GetListValue().GetValues()
	order := make([]int, 0, len(items))
	for _, item := range items {
		order = append(order, int(item.GetNumberValue()))
	}
	return order
}

func intsToList(ids []int) []any {
	out := make([]any, 0, len(ids))
	for _, id := range ids {
		out = append(out, id)
	}
	return out
}
