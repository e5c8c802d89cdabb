package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/Domenick1991/parkus/api"
	"github.com/Domenick1991/parkus/config"
	"github.com/Domenick1991/parkus/internal/api/admin_gateway"
	reservationsapi "github.com/Domenick1991/parkus/internal/api/reservations_service_api"
	"github.com/Domenick1991/parkus/internal/auth"
	"github.com/Domenick1991/parkus/internal/service/availability"
	"github.com/Domenick1991/parkus/internal/service/booking"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const swaggerFile = "parkus.swagger.json"

// Deps are the services and collaborators the servers expose.
type Deps struct {
	Availability availability.AvailabilityUseCase
	Bookings     booking.BookingUseCase
	Auth         *auth.Authenticator
	// Ping checks the backing stores for /healthz. Optional.
	Ping func(ctx context.Context) error
}

type Servers struct {
	grpcServer *grpc.Server
	httpServer *http.Server
	health     *health.Server
}

// Run starts gRPC and HTTP (REST, admin gateway, swagger, metrics) servers and
// blocks until context is canceled or a server fails.
func Run(ctx context.Context, cfg *config.Config, deps Deps) error {
	s, err := newServers(cfg, deps)
	if err != nil {
		return err
	}

	errCh := make(chan error, 2)

	// gRPC server
	lis, err := net.Listen("tcp", cfg.GRPC.Address)
	if err != nil {
		return fmt.Errorf("listen gRPC %s: %w", cfg.GRPC.Address, err)
	}
	go func() { errCh <- s.grpcServer.Serve(lis) }()

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	log.Printf("bootstrap: http on %s, grpc on %s", cfg.HTTP.Address, cfg.GRPC.Address)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.health.Shutdown()
		s.grpcServer.GracefulStop()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}

func newServers(cfg *config.Config, deps Deps) (*Servers, error) {
	grpcSrv := grpc.NewServer(grpc.UnaryInterceptor(reservationsapi.UnaryErrorInterceptor))
	reservationsapi.RegisterReservationsServiceServer(grpcSrv, reservationsapi.NewServer(deps.Availability, deps.Bookings))

	healthSrv := health.NewServer()
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthSrv.SetServingStatus(reservationsapi.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcSrv, healthSrv)

	handler, err := newHTTPHandler(cfg.HTTP, deps)
	if err != nil {
		return nil, err
	}

	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &Servers{
		grpcServer: grpcSrv,
		httpServer: httpSrv,
		health:     healthSrv,
	}, nil
}

func newHTTPHandler(cfg config.HTTPConfig, deps Deps) (http.Handler, error) {
	gateway, err := admin_gateway.NewGateway(deps.Bookings, deps.Availability, deps.Auth.FromRequest)
	if err != nil {
		return nil, fmt.Errorf("register admin gateway: %w", err)
	}
	rest := api.NewRouter(deps.Auth, deps.Availability, deps.Bookings)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if deps.Ping != nil {
			if err := deps.Ping(r.Context()); err != nil {
				log.Printf("bootstrap: health check: %v", err)
				http.Error(w, "unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Handle(api.BasePath+"/*", rest)
	r.Handle(admin_gateway.Prefix+"/*", gateway)

	if cfg.SwaggerDir != "" {
		doc := filepath.Join(cfg.SwaggerDir, swaggerFile)
		r.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
			http.ServeFile(w, r, doc)
		})
		r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
	}

	return r, nil
}
