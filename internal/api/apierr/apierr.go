// Package apierr maps domain errors onto gRPC status codes. HTTP surfaces
// derive their status from the code, so both transports agree.
package apierr

import (
	"context"
	"errors"

	"github.com/Domenick1991/parkus/internal/auth"
	"github.com/Domenick1991/parkus/internal/domain"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var table = []struct {
	err  error
	code codes.Code
}{
	// infrastructure first: a storage error may wrap a context error
	{domain.ErrStorageUnavailable, codes.Unavailable},
	{domain.ErrNotFound, codes.NotFound},
	{domain.ErrForbidden, codes.PermissionDenied},
	{auth.ErrUnauthenticated, codes.Unauthenticated},

	{domain.ErrInvalidWindow, codes.InvalidArgument},
	{domain.ErrInvalidDuration, codes.InvalidArgument},
	{domain.ErrInvalidStatus, codes.InvalidArgument},
	{domain.ErrInvalidTransition, codes.InvalidArgument},
	{domain.ErrInvalidSpot, codes.InvalidArgument},
	{domain.ErrPastWindow, codes.InvalidArgument},

	{domain.ErrAlreadyBooked, codes.AlreadyExists},
	{domain.ErrWindowOverlap, codes.AlreadyExists},
	{domain.ErrWindowBooked, codes.Aborted},

	{domain.ErrTooLateToCancel, codes.FailedPrecondition},
	{domain.ErrInvalidState, codes.FailedPrecondition},

	{context.DeadlineExceeded, codes.DeadlineExceeded},
	{context.Canceled, codes.Canceled},
}

func Code(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	if s, ok := status.FromError(err); ok {
		return s.Code()
	}
	for _, e := range table {
		if errors.Is(err, e.err) {
			return e.code
		}
	}
	return codes.Internal
}

// Message is the text shown to callers. Infrastructure details stay in the logs.
func Message(err error) string {
	switch Code(err) {
	case codes.Unavailable:
		return domain.ErrStorageUnavailable.Error()
	case codes.Internal:
		return "internal error"
	}
	if s, ok := status.FromError(err); ok {
		return s.Message()
	}
	return err.Error()
}

// ToStatus converts err into a gRPC status error. Nil stays nil.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Error(Code(err), Message(err))
}

func HTTPStatus(err error) int {
	return runtime.HTTPStatusFromCode(Code(err))
}
