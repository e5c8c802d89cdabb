package reservations_service_api

import (
	"context"
	"log"
	"time"

	"github.com/Domenick1991/parkus/internal/api/apierr"
	"github.com/Domenick1991/parkus/internal/auth"
	"github.com/Domenick1991/parkus/internal/domain"
	"github.com/Domenick1991/parkus/internal/service/availability"
	"github.com/Domenick1991/parkus/internal/service/booking"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "parkus.v1.ReservationsService"

// Metadata keys carrying the caller identity set by a trusted front end.
const (
	ActorIDKey   = "x-actor-id"
	ActorRoleKey = "x-actor-role"
)

// ReservationsServiceServer is the server API of parkus.v1.ReservationsService.
// Requests and responses are google.protobuf.Struct documents.
type ReservationsServiceServer interface {
	CreateWindow(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteWindow(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListWindowsBySpot(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListAvailableWindows(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateBooking(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateStatus(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CancelBooking(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetBooking(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListBookingsByRenter(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListBookingsByOwner(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ReservationsServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("CreateWindow", ReservationsServiceServer.CreateWindow),
		unary("DeleteWindow", ReservationsServiceServer.DeleteWindow),
		unary("ListWindowsBySpot", ReservationsServiceServer.ListWindowsBySpot),
		unary("ListAvailableWindows", ReservationsServiceServer.ListAvailableWindows),
		unary("CreateBooking", ReservationsServiceServer.CreateBooking),
		unary("UpdateStatus", ReservationsServiceServer.UpdateStatus),
		unary("CancelBooking", ReservationsServiceServer.CancelBooking),
		unary("GetBooking", ReservationsServiceServer.GetBooking),
		unary("ListBookingsByRenter", ReservationsServiceServer.ListBookingsByRenter),
		unary("ListBookingsByOwner", ReservationsServiceServer.ListBookingsByOwner),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "parkus/v1/reservations.proto",
}

func RegisterReservationsServiceServer(s grpc.ServiceRegistrar, srv ReservationsServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

type rpc func(ReservationsServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(method string, call rpc) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ReservationsServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(ReservationsServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// Server implements ReservationsServiceServer on top of the use cases.
type Server struct {
	availability availability.AvailabilityUseCase
	bookings     booking.BookingUseCase
}

func NewServer(availability availability.AvailabilityUseCase, bookings booking.BookingUseCase) *Server {
	return &Server{availability: availability, bookings: bookings}
}

func (s *Server) CreateWindow(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := ActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	spotID, err := Int64Field(req, "spot_id")
	if err != nil {
		return nil, err
	}
	start, err := TimeField(req, "start_time")
	if err != nil {
		return nil, err
	}
	end, err := TimeField(req, "end_time")
	if err != nil {
		return nil, err
	}
	w, err := s.availability.CreateWindow(ctx, spotID, start, end, actor)
	if err != nil {
		return nil, err
	}
	return WindowToStruct(w)
}

func (s *Server) DeleteWindow(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := ActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	id, err := Int64Field(req, "window_id")
	if err != nil {
		return nil, err
	}
	if err := s.availability.DeleteWindow(ctx, id, actor); err != nil {
		return nil, err
	}
	return &structpb.Struct{}, nil
}

func (s *Server) ListWindowsBySpot(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	spotID, err := Int64Field(req, "spot_id")
	if err != nil {
		return nil, err
	}
	windows, err := s.availability.ListWindowsBySpot(ctx, spotID)
	if err != nil {
		return nil, err
	}
	return WindowsToStruct(windows)
}

func (s *Server) ListAvailableWindows(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	spotID, err := Int64Field(req, "spot_id")
	if err != nil {
		return nil, err
	}
	windows, err := s.availability.ListAvailableWindowsBySpot(ctx, spotID)
	if err != nil {
		return nil, err
	}
	return WindowsToStruct(windows)
}

func (s *Server) CreateBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := ActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	windowID, err := Int64Field(req, "window_id")
	if err != nil {
		return nil, err
	}
	renterID := actor.ID
	if _, ok := req.GetFields()["renter_id"]; ok {
		if renterID, err = Int64Field(req, "renter_id"); err != nil {
			return nil, err
		}
	}
	b, err := s.bookings.CreateBooking(ctx, windowID, renterID, actor)
	if err != nil {
		return nil, err
	}
	return BookingToStruct(b)
}

func (s *Server) UpdateStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := ActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	id, err := Int64Field(req, "booking_id")
	if err != nil {
		return nil, err
	}
	st, err := StringField(req, "status")
	if err != nil {
		return nil, err
	}
	b, err := s.bookings.UpdateStatus(ctx, id, domain.BookingStatus(st), actor)
	if err != nil {
		return nil, err
	}
	return BookingToStruct(b)
}

func (s *Server) CancelBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := ActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	id, err := Int64Field(req, "booking_id")
	if err != nil {
		return nil, err
	}
	b, err := s.bookings.CancelBooking(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	return BookingToStruct(b)
}

func (s *Server) GetBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := Int64Field(req, "booking_id")
	if err != nil {
		return nil, err
	}
	b, err := s.bookings.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	return BookingToStruct(b)
}

func (s *Server) ListBookingsByRenter(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := Int64Field(req, "renter_id")
	if err != nil {
		return nil, err
	}
	bookings, err := s.bookings.ListBookingsByRenter(ctx, id)
	if err != nil {
		return nil, err
	}
	return BookingsToStruct(bookings)
}

func (s *Server) ListBookingsByOwner(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := Int64Field(req, "owner_id")
	if err != nil {
		return nil, err
	}
	bookings, err := s.bookings.ListBookingsByOwner(ctx, id)
	if err != nil {
		return nil, err
	}
	return BookingsToStruct(bookings)
}

// ActorFromContext reads x-actor-id and x-actor-role from incoming metadata.
func ActorFromContext(ctx context.Context) (domain.Actor, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return domain.Actor{}, status.Error(codes.Unauthenticated, "missing metadata")
	}
	ids, roles := md.Get(ActorIDKey), md.Get(ActorRoleKey)
	if len(ids) == 0 || len(roles) == 0 {
		return domain.Actor{}, status.Error(codes.Unauthenticated, "missing actor")
	}
	actor, err := auth.ActorFromStrings(ids[0], roles[0])
	if err != nil {
		return domain.Actor{}, status.Error(codes.Unauthenticated, err.Error())
	}
	return actor, nil
}

// UnaryErrorInterceptor logs every call and turns domain errors into statuses.
func UnaryErrorInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	started := time.Now()
	resp, err := handler(ctx, req)
	if err != nil {
		log.Printf("grpc %s failed in %s: %v", info.FullMethod, time.Since(started), err)
		return nil, apierr.ToStatus(err)
	}
	log.Printf("grpc %s ok in %s", info.FullMethod, time.Since(started))
	return resp, nil
}

var _ ReservationsServiceServer = (*Server)(nil)
