package rpc

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/signalsfoundry/adalia-navigator/internal/logging"
	"github.com/signalsfoundry/adalia-navigator/internal/observability"
)

// RequestIDMetadataKey carries the caller's request id.
const RequestIDMetadataKey = "x-request-id"

// RequestIDUnaryServerInterceptor adopts an inbound x-request-id or mints
// one, and stores a logger tagged with it and the method on the context.
func RequestIDUnaryServerInterceptor(base logging.Logger) grpc.UnaryServerInterceptor {
	if base == nil {
		base = logging.Noop()
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if vals := md.Get(RequestIDMetadataKey); len(vals) > 0 && vals[0] != "" {
				ctx = logging.ContextWithRequestID(ctx, vals[0])
			}
		}
		ctx, reqLog := logging.WithRequestLogger(ctx, base.With(logging.String("method", info.FullMethod)))
		ctx = logging.ContextWithLogger(ctx, reqLog)
		if id := logging.RequestIDFromContext(ctx); id != "" {
			_ = grpc.SetHeader(ctx, metadata.Pairs(RequestIDMetadataKey, id))
		}
		return handler(ctx, req)
	}
}

// RequestIDUnaryClientInterceptor forwards the context's request id, minting
// one when absent.
func RequestIDUnaryClientInterceptor() grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx, id := logging.EnsureRequestID(ctx)
		ctx = metadata.AppendToOutgoingContext(ctx, RequestIDMetadataKey, id)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// TracingUnaryServerInterceptor names and annotates the server span, starting
// one when no stats handler created it.
func TracingUnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		service, method := observability.SplitMethod(info.FullMethod)
		name := fmt.Sprintf("Navigator/%s/%s", service, method)

		span := trace.SpanFromContext(ctx)
		created := false
		if !span.SpanContext().IsValid() {
			ctx, span = observability.Tracer().Start(ctx, name, trace.WithSpanKind(trace.SpanKindServer))
			created = true
		} else {
			span.SetName(name)
		}

		attrs := []attribute.KeyValue{
			attribute.String("rpc.system", "grpc"),
			attribute.String("rpc.service", service),
			attribute.String("rpc.method", method),
			attribute.String("rpc.full_method", strings.TrimPrefix(info.FullMethod, "/")),
		}
		if id := logging.RequestIDFromContext(ctx); id != "" {
			attrs = append(attrs, attribute.String("request_id", id))
		}
		span.SetAttributes(attrs...)

		resp, err := handler(ctx, req)
		if err != nil {
			span.RecordError(err)
		}
		if created {
			span.End()
		}
		return resp, err
	}
}

// RateLimitUnaryServerInterceptor rejects calls to the listed methods with
// ResourceExhausted once limiter runs dry. A nil limiter disables it.
func RateLimitUnaryServerInterceptor(limiter *rate.Limiter, fullMethods ...string) grpc.UnaryServerInterceptor {
	limited := make(map[string]bool, len(fullMethods))
	for _, m := range fullMethods {
		limited[m] = true
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if limiter != nil && limited[info.FullMethod] && !limiter.Allow() {
			logging.FromContext(ctx, nil).Warn(ctx, "request rejected by rate limiter")
			return nil, ToStatusError(fmt.Errorf("%w: %s", ErrRateLimited, info.FullMethod))
		}
		return handler(ctx, req)
	}
}

// NewPlanLimiter builds the PlanRoute limiter; a non-positive rate disables it.
func NewPlanLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}
