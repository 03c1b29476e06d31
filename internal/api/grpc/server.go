package grpc

import (
	"library-circulation/internal/api/grpc/interceptor"
	"library-circulation/internal/service"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// NewServer builds the gRPC server with the circulation, health and
// reflection services registered.
func NewServer(svc service.CirculationService, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	opts = append([]grpc.ServerOption{
		grpc.ChainUnaryInterceptor(interceptor.Logging(), interceptor.Recovery()),
	}, opts...)
	s := grpc.NewServer(opts...)

	RegisterCirculationServer(s, NewCirculationHandler(svc))

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, hs)

	reflection.Register(s)
	return s, hs
}
