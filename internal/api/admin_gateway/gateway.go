// Package admin_gateway serves the administrative HTTP surface on a
// grpc-gateway ServeMux, so errors are rendered exactly like gateway errors
// of the gRPC service.
package admin_gateway

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Domenick1991/parkus/internal/api/apierr"
	rsapi "github.com/Domenick1991/parkus/internal/api/reservations_service_api"
	"github.com/Domenick1991/parkus/internal/domain"
	"github.com/Domenick1991/parkus/internal/service/availability"
	"github.com/Domenick1991/parkus/internal/service/booking"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

const Prefix = "/admin/v1"

// Authenticate resolves the actor behind a request.
type Authenticate func(r *http.Request) (domain.Actor, error)

type Gateway struct {
	mux          *runtime.ServeMux
	marshaler    runtime.Marshaler
	bookings     booking.BookingUseCase
	availability availability.AvailabilityUseCase
	authenticate Authenticate
}

func NewGateway(bookings booking.BookingUseCase, avail availability.AvailabilityUseCase, authenticate Authenticate) (*Gateway, error) {
	marshaler := &runtime.JSONPb{
		MarshalOptions:   protojson.MarshalOptions{UseProtoNames: true, EmitUnpopulated: true},
		UnmarshalOptions: protojson.UnmarshalOptions{DiscardUnknown: true},
	}
	g := &Gateway{
		mux:          runtime.NewServeMux(runtime.WithMarshalerOption(runtime.MIMEWildcard, marshaler)),
		marshaler:    marshaler,
		bookings:     bookings,
		availability: avail,
		authenticate: authenticate,
	}

	routes := []struct {
		method, pattern string
		handle          func(ctx context.Context, r *http.Request, actor domain.Actor, params map[string]string) (*structpb.Struct, error)
	}{
		{http.MethodGet, Prefix + "/bookings", g.listByStatus},
		{http.MethodGet, Prefix + "/bookings/{id}/history", g.history},
		{http.MethodPost, Prefix + "/bookings/{id}/cancel", g.cancel},
		{http.MethodDelete, Prefix + "/bookings/{id}", g.deleteBooking},
		{http.MethodDelete, Prefix + "/windows/{id}", g.deleteWindow},
		{http.MethodPost, Prefix + "/sweeps/complete", g.completeElapsed},
	}
	for _, rt := range routes {
		if err := g.mux.HandlePath(rt.method, rt.pattern, g.wrap(rt.handle)); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.mux.ServeHTTP(w, r)
}

func (g *Gateway) wrap(handle func(context.Context, *http.Request, domain.Actor, map[string]string) (*structpb.Struct, error)) runtime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		ctx := r.Context()
		actor, err := g.authenticate(r)
		if err != nil {
			g.fail(ctx, w, r, status.Error(codes.Unauthenticated, err.Error()))
			return
		}
		if !actor.IsPrivileged() {
			g.fail(ctx, w, r, domain.ErrForbidden)
			return
		}

		out, err := handle(ctx, r, actor, params)
		if err != nil {
			g.fail(ctx, w, r, err)
			return
		}
		data, err := g.marshaler.Marshal(out)
		if err != nil {
			g.fail(ctx, w, r, err)
			return
		}
		w.Header().Set("Content-Type", g.marshaler.ContentType(out))
		_, _ = w.Write(data)
	}
}

func (g *Gateway) fail(ctx context.Context, w http.ResponseWriter, r *http.Request, err error) {
	runtime.HTTPError(ctx, g.mux, g.marshaler, w, r, apierr.ToStatus(err))
}

func (g *Gateway) listByStatus(ctx context.Context, r *http.Request, _ domain.Actor, _ map[string]string) (*structpb.Struct, error) {
	bookings, err := g.bookings.ListBookingsByStatus(ctx, r.URL.Query().Get("status"))
	if err != nil {
		return nil, err
	}
	return rsapi.BookingsToStruct(bookings)
}

func (g *Gateway) history(ctx context.Context, _ *http.Request, _ domain.Actor, params map[string]string) (*structpb.Struct, error) {
	id, err := pathID(params)
	if err != nil {
		return nil, err
	}
	entries, err := g.bookings.BookingHistory(ctx, id)
	if err != nil {
		return nil, err
	}
	return rsapi.LogEntriesToStruct(entries)
}

func (g *Gateway) cancel(ctx context.Context, _ *http.Request, actor domain.Actor, params map[string]string) (*structpb.Struct, error) {
	id, err := pathID(params)
	if err != nil {
		return nil, err
	}
	b, err := g.bookings.CancelBooking(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	return rsapi.BookingToStruct(b)
}

func (g *Gateway) deleteBooking(ctx context.Context, _ *http.Request, actor domain.Actor, params map[string]string) (*structpb.Struct, error) {
	id, err := pathID(params)
	if err != nil {
		return nil, err
	}
	if err := g.bookings.DeleteBooking(ctx, id, actor); err != nil {
		return nil, err
	}
	return &structpb.Struct{}, nil
}

func (g *Gateway) deleteWindow(ctx context.Context, _ *http.Request, actor domain.Actor, params map[string]string) (*structpb.Struct, error) {
	id, err := pathID(params)
	if err != nil {
		return nil, err
	}
	if err := g.availability.DeleteWindow(ctx, id, actor); err != nil {
		return nil, err
	}
	return &structpb.Struct{}, nil
}

func (g *Gateway) completeElapsed(ctx context.Context, _ *http.Request, _ domain.Actor, _ map[string]string) (*structpb.Struct, error) {
	completed, err := g.bookings.CompleteElapsedBookings(ctx)
	if err != nil {
		return nil, err
	}
	return rsapi.BookingsToStruct(completed)
}

func pathID(params map[string]string) (int64, error) {
	id, err := strconv.ParseInt(params["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, status.Errorf(codes.InvalidArgument, "invalid id %q", params["id"])
	}
	return id, nil
}
