package rpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/signalsfoundry/adalia-navigator/internal/config"
	"github.com/signalsfoundry/adalia-navigator/internal/navigator"
	"github.com/signalsfoundry/adalia-navigator/kb"
	"github.com/signalsfoundry/adalia-navigator/model"
)

var (
	// ErrInvalidArgument marks malformed request fields.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrRateLimited is returned when a limiter rejects a call.
	ErrRateLimited = errors.New("rate limited")
)

// ToStatusError maps navigator errors onto gRPC status codes. Errors that
// already carry a status pass through unchanged.
func ToStatusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, kb.ErrBodyNotFound):
		return status.Error(codes.NotFound, err.Error())

	case errors.Is(err, ErrInvalidArgument),
		errors.Is(err, navigator.ErrInvalidRequest),
		errors.Is(err, model.ErrInvalidElements),
		errors.Is(err, config.ErrInvalidConfig):
		return status.Error(codes.InvalidArgument, err.Error())

	case errors.Is(err, ErrRateLimited):
		return status.Error(codes.ResourceExhausted, err.Error())

	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())

	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())

	default:
		return status.Error(codes.Internal, err.Error())
	}
}
